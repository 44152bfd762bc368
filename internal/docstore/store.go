// Package docstore is the contract over the shared, schemaless document
// database every actor reads and writes, plus its backends.
package docstore

import (
	"context"
	"errors"
	"sort"
)

var (
	ErrNotFound      = errors.New("document not found")
	ErrAlreadyExists = errors.New("document already exists")
	// ErrConflict is returned by UpdateIf when the guard no longer holds at
	// write time.
	ErrConflict = errors.New("document guard failed")
)

// Fields is the body of a document. A nil value is persisted as null.
type Fields map[string]any

type Document struct {
	ID     string
	Fields Fields
}

// Filter is an equality match on a top-level field.
type Filter struct {
	Field string
	Value any
}

func Eq(field string, value any) Filter {
	return Filter{Field: field, Value: value}
}

type OpKind int

const (
	OpCreate OpKind = iota
	OpSet
	OpUpdate
	OpDelete
)

func (k OpKind) String() string {
	switch k {
	case OpCreate:
		return "create"
	case OpSet:
		return "set"
	case OpUpdate:
		return "update"
	case OpDelete:
		return "delete"
	}
	return "unknown"
}

// Operation is one write inside a batch commit. When Guard is set the
// document must exist and match every guard filter at commit time, or the
// whole batch fails with ErrConflict.
type Operation struct {
	Kind       OpKind
	Collection string
	ID         string
	Fields     Fields
	Guard      []Filter
}

func CreateOp(collection, id string, fields Fields) Operation {
	return Operation{Kind: OpCreate, Collection: collection, ID: id, Fields: fields}
}

func DeleteOp(collection, id string) Operation {
	return Operation{Kind: OpDelete, Collection: collection, ID: id}
}

// GuardedDeleteOp deletes the document only if it still matches guard.
func GuardedDeleteOp(collection, id string, guard ...Filter) Operation {
	return Operation{Kind: OpDelete, Collection: collection, ID: id, Guard: guard}
}

func (op Operation) guarded() bool {
	return len(op.Guard) > 0
}

// ChangeFunc receives the full result set of a live query each time it
// changes, or the error that ended the subscription.
type ChangeFunc func(docs []Document, err error)

// Subscription is a live query owned by its caller. Close must be called to
// stop delivery; calling it more than once is safe.
type Subscription interface {
	Close()
}

type Store interface {
	Get(ctx context.Context, collection, id string) (Document, error)
	Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error)
	Create(ctx context.Context, collection, id string, fields Fields) error
	// Update merges fields into an existing document.
	Update(ctx context.Context, collection, id string, fields Fields) error
	// UpdateIf merges fields only if every guard filter matches the stored
	// document at write time.
	UpdateIf(ctx context.Context, collection, id string, guard []Filter, fields Fields) error
	Delete(ctx context.Context, collection, id string) error
	// Commit applies every operation or none of them.
	Commit(ctx context.Context, ops []Operation) error
	Subscribe(ctx context.Context, collection string, filters []Filter, onChange ChangeFunc) (Subscription, error)
}

func sortByID(docs []Document) {
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
}
