package docstore

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"time"
)

// Memory is a process-local Store. Every document handed in or out is deep
// copied so callers never share maps with the store.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string]Fields

	subsMu  sync.Mutex
	subs    map[int]*memorySubscription
	nextSub int

	fault func(op Operation) error
}

func NewMemory() *Memory {
	return &Memory{
		collections: make(map[string]map[string]Fields),
		subs:        make(map[int]*memorySubscription),
	}
}

// InjectFault installs a hook consulted before every write, including each
// operation of a batch. A non-nil return fails that write. Pass nil to clear.
func (m *Memory) InjectFault(fn func(op Operation) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fault = fn
}

func (m *Memory) Get(ctx context.Context, collection, id string) (Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	fields, ok := m.collections[collection][id]
	if !ok {
		return Document{}, fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}

	return Document{ID: id, Fields: cloneFields(fields)}, nil
}

func (m *Memory) Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.query(collection, filters), nil
}

func (m *Memory) query(collection string, filters []Filter) []Document {
	docs := make([]Document, 0)
	for id, fields := range m.collections[collection] {
		if !matches(fields, filters) {
			continue
		}
		docs = append(docs, Document{ID: id, Fields: cloneFields(fields)})
	}
	sortByID(docs)
	return docs
}

func (m *Memory) Create(ctx context.Context, collection, id string, fields Fields) error {
	return m.Commit(ctx, []Operation{CreateOp(collection, id, fields)})
}

func (m *Memory) Update(ctx context.Context, collection, id string, fields Fields) error {
	return m.Commit(ctx, []Operation{{Kind: OpUpdate, Collection: collection, ID: id, Fields: fields}})
}

func (m *Memory) UpdateIf(ctx context.Context, collection, id string, guard []Filter, fields Fields) error {
	m.mu.Lock()
	existing, ok := m.collections[collection][id]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	}
	if !matches(existing, guard) {
		m.mu.Unlock()
		return fmt.Errorf("%s/%s: %w", collection, id, ErrConflict)
	}

	err := m.apply([]Operation{{Kind: OpUpdate, Collection: collection, ID: id, Fields: fields}})
	m.mu.Unlock()
	if err != nil {
		return err
	}

	m.notify(collection)
	return nil
}

func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	return m.Commit(ctx, []Operation{DeleteOp(collection, id)})
}

type stagedDoc struct {
	fields  Fields
	deleted bool
}

type docKey struct {
	collection string
	id         string
}

func (m *Memory) Commit(ctx context.Context, ops []Operation) error {
	m.mu.Lock()
	err := m.apply(ops)
	m.mu.Unlock()
	if err != nil {
		return err
	}

	touched := make(map[string]struct{})
	for _, op := range ops {
		touched[op.Collection] = struct{}{}
	}
	for collection := range touched {
		m.notify(collection)
	}

	return nil
}

// apply stages every operation against an overlay and only writes the overlay
// back once all of them succeeded. Callers hold m.mu.
func (m *Memory) apply(ops []Operation) error {
	staged := make(map[docKey]stagedDoc)

	lookup := func(k docKey) (Fields, bool) {
		if doc, ok := staged[k]; ok {
			return doc.fields, !doc.deleted
		}
		fields, ok := m.collections[k.collection][k.id]
		return fields, ok
	}

	for _, op := range ops {
		if m.fault != nil {
			if err := m.fault(op); err != nil {
				return fmt.Errorf("%s %s/%s: %w", op.Kind, op.Collection, op.ID, err)
			}
		}

		k := docKey{collection: op.Collection, id: op.ID}
		existing, exists := lookup(k)

		if op.guarded() && (!exists || !matches(existing, op.Guard)) {
			return fmt.Errorf("%s/%s: %w", op.Collection, op.ID, ErrConflict)
		}

		switch op.Kind {
		case OpCreate:
			if exists {
				return fmt.Errorf("%s/%s: %w", op.Collection, op.ID, ErrAlreadyExists)
			}
			staged[k] = stagedDoc{fields: cloneFields(op.Fields)}
		case OpSet:
			staged[k] = stagedDoc{fields: cloneFields(op.Fields)}
		case OpUpdate:
			if !exists {
				return fmt.Errorf("%s/%s: %w", op.Collection, op.ID, ErrNotFound)
			}
			merged := cloneFields(existing)
			for field, value := range op.Fields {
				merged[field] = cloneValue(value)
			}
			staged[k] = stagedDoc{fields: merged}
		case OpDelete:
			staged[k] = stagedDoc{deleted: true}
		default:
			return fmt.Errorf("unsupported operation %d", op.Kind)
		}
	}

	for k, doc := range staged {
		if doc.deleted {
			delete(m.collections[k.collection], k.id)
			continue
		}
		if m.collections[k.collection] == nil {
			m.collections[k.collection] = make(map[string]Fields)
		}
		m.collections[k.collection][k.id] = doc.fields
	}

	return nil
}

type memorySubscription struct {
	id         int
	collection string
	filters    []Filter
	onChange   ChangeFunc
	signal     chan struct{}
	done       chan struct{}
	once       sync.Once
	remove     func(id int)
}

func (s *memorySubscription) Close() {
	s.once.Do(func() {
		close(s.done)
		s.remove(s.id)
	})
}

// poke schedules a redelivery. Pending pokes collapse into one since each
// delivery reads the latest state.
func (s *memorySubscription) poke() {
	select {
	case s.signal <- struct{}{}:
	default:
	}
}

func (m *Memory) Subscribe(ctx context.Context, collection string, filters []Filter, onChange ChangeFunc) (Subscription, error) {
	m.subsMu.Lock()
	m.nextSub++
	sub := &memorySubscription{
		id:         m.nextSub,
		collection: collection,
		filters:    append([]Filter(nil), filters...),
		onChange:   onChange,
		signal:     make(chan struct{}, 1),
		done:       make(chan struct{}),
		remove:     m.removeSubscription,
	}
	m.subs[sub.id] = sub
	m.subsMu.Unlock()

	sub.poke()

	go func() {
		defer sub.Close()
		for {
			select {
			case <-sub.done:
				return
			case <-ctx.Done():
				return
			case <-sub.signal:
				m.mu.RLock()
				docs := m.query(sub.collection, sub.filters)
				m.mu.RUnlock()

				select {
				case <-sub.done:
					return
				default:
				}
				sub.onChange(docs, nil)
			}
		}
	}()

	return sub, nil
}

func (m *Memory) removeSubscription(id int) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	delete(m.subs, id)
}

// SubscriptionCount reports live subscriptions.
func (m *Memory) SubscriptionCount() int {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	return len(m.subs)
}

func (m *Memory) notify(collection string) {
	m.subsMu.Lock()
	defer m.subsMu.Unlock()
	for _, sub := range m.subs {
		if sub.collection == collection {
			sub.poke()
		}
	}
}

func matches(fields Fields, filters []Filter) bool {
	for _, filter := range filters {
		value, ok := fields[filter.Field]
		if !ok || !valuesEqual(value, filter.Value) {
			return false
		}
	}
	return true
}

func valuesEqual(a, b any) bool {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		return ok && af == bf
	}
	if at, ok := a.(time.Time); ok {
		bt, ok := b.(time.Time)
		return ok && at.Equal(bt)
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func cloneFields(fields Fields) Fields {
	if fields == nil {
		return Fields{}
	}
	out := make(Fields, len(fields))
	for k, v := range fields {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch value := v.(type) {
	case Fields:
		return map[string]any(cloneFields(value))
	case map[string]any:
		return map[string]any(cloneFields(value))
	case []any:
		out := make([]any, len(value))
		for i, item := range value {
			out[i] = cloneValue(item)
		}
		return out
	}
	return v
}
