package docstore

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Firestore is the Store over a Cloud Firestore database.
type Firestore struct {
	client *firestore.Client
}

func NewFirestore(client *firestore.Client) *Firestore {
	return &Firestore{client: client}
}

func (f *Firestore) Get(ctx context.Context, collection, id string) (Document, error) {
	snap, err := f.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		return Document{}, translate(err, collection, id)
	}

	return Document{ID: snap.Ref.ID, Fields: Fields(snap.Data())}, nil
}

func (f *Firestore) query(collection string, filters []Filter) firestore.Query {
	q := f.client.Collection(collection).Query
	for _, filter := range filters {
		q = q.Where(filter.Field, "==", filter.Value)
	}
	return q
}

func (f *Firestore) Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	snaps, err := f.query(collection, filters).Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", collection, err)
	}

	return snapshotDocuments(snaps), nil
}

func (f *Firestore) Create(ctx context.Context, collection, id string, fields Fields) error {
	_, err := f.client.Collection(collection).Doc(id).Create(ctx, map[string]any(fields))
	return translate(err, collection, id)
}

func (f *Firestore) Update(ctx context.Context, collection, id string, fields Fields) error {
	_, err := f.client.Collection(collection).Doc(id).Update(ctx, updates(fields))
	return translate(err, collection, id)
}

func (f *Firestore) UpdateIf(ctx context.Context, collection, id string, guard []Filter, fields Fields) error {
	ref := f.client.Collection(collection).Doc(id)

	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return translate(err, collection, id)
		}

		if !matches(Fields(snap.Data()), guard) {
			return fmt.Errorf("%s/%s: %w", collection, id, ErrConflict)
		}

		return tx.Update(ref, updates(fields))
	})
	if err != nil {
		return fmt.Errorf("failed guarded update of %s/%s: %w", collection, id, err)
	}

	return nil
}

func (f *Firestore) Delete(ctx context.Context, collection, id string) error {
	_, err := f.client.Collection(collection).Doc(id).Delete(ctx)
	return translate(err, collection, id)
}

func (f *Firestore) Commit(ctx context.Context, ops []Operation) error {
	if len(ops) == 0 {
		return nil
	}

	for _, op := range ops {
		if op.guarded() {
			return f.commitGuarded(ctx, ops)
		}
	}

	batch := f.client.Batch()
	for _, op := range ops {
		ref := f.client.Collection(op.Collection).Doc(op.ID)
		switch op.Kind {
		case OpCreate:
			batch.Create(ref, map[string]any(op.Fields))
		case OpSet:
			batch.Set(ref, map[string]any(op.Fields))
		case OpUpdate:
			batch.Update(ref, updates(op.Fields))
		case OpDelete:
			batch.Delete(ref)
		default:
			return fmt.Errorf("unsupported operation %d", op.Kind)
		}
	}

	if _, err := batch.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit document batch: %w", translate(err, "", ""))
	}

	return nil
}

// commitGuarded runs the batch as a transaction so the guards are checked
// against the same snapshot the writes apply to. Firestore requires every
// read to come before the first write.
func (f *Firestore) commitGuarded(ctx context.Context, ops []Operation) error {
	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		for _, op := range ops {
			if !op.guarded() {
				continue
			}

			snap, err := tx.Get(f.client.Collection(op.Collection).Doc(op.ID))
			if err != nil {
				if status.Code(err) == codes.NotFound {
					return fmt.Errorf("%s/%s: %w", op.Collection, op.ID, ErrConflict)
				}
				return translate(err, op.Collection, op.ID)
			}
			if !matches(Fields(snap.Data()), op.Guard) {
				return fmt.Errorf("%s/%s: %w", op.Collection, op.ID, ErrConflict)
			}
		}

		for _, op := range ops {
			ref := f.client.Collection(op.Collection).Doc(op.ID)

			var err error
			switch op.Kind {
			case OpCreate:
				err = tx.Create(ref, map[string]any(op.Fields))
			case OpSet:
				err = tx.Set(ref, map[string]any(op.Fields))
			case OpUpdate:
				err = tx.Update(ref, updates(op.Fields))
			case OpDelete:
				err = tx.Delete(ref)
			default:
				err = fmt.Errorf("unsupported operation %d", op.Kind)
			}
			if err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to commit guarded document batch: %w", translate(err, "", ""))
	}

	return nil
}

type firestoreSubscription struct {
	cancel context.CancelFunc
}

func (s *firestoreSubscription) Close() {
	s.cancel()
}

func (f *Firestore) Subscribe(ctx context.Context, collection string, filters []Filter, onChange ChangeFunc) (Subscription, error) {
	subCtx, cancel := context.WithCancel(ctx)
	iter := f.query(collection, filters).Snapshots(subCtx)

	go func() {
		defer iter.Stop()
		for {
			qs, err := iter.Next()
			if err != nil {
				if subCtx.Err() == nil && status.Code(err) != codes.Canceled {
					onChange(nil, fmt.Errorf("snapshot listener on %s: %w", collection, err))
				}
				return
			}

			snaps, err := qs.Documents.GetAll()
			if err != nil {
				onChange(nil, fmt.Errorf("failed to read snapshot of %s: %w", collection, err))
				return
			}

			onChange(snapshotDocuments(snaps), nil)
		}
	}()

	return &firestoreSubscription{cancel: cancel}, nil
}

func updates(fields Fields) []firestore.Update {
	out := make([]firestore.Update, 0, len(fields))
	for path, value := range fields {
		out = append(out, firestore.Update{Path: path, Value: value})
	}
	return out
}

func snapshotDocuments(snaps []*firestore.DocumentSnapshot) []Document {
	docs := make([]Document, 0, len(snaps))
	for _, snap := range snaps {
		docs = append(docs, Document{ID: snap.Ref.ID, Fields: Fields(snap.Data())})
	}
	sortByID(docs)
	return docs
}

// translate maps gRPC status codes onto the store sentinels.
func translate(err error, collection, id string) error {
	if err == nil {
		return nil
	}

	switch status.Code(err) {
	case codes.NotFound:
		return fmt.Errorf("%s/%s: %w", collection, id, ErrNotFound)
	case codes.AlreadyExists:
		return fmt.Errorf("%s/%s: %w", collection, id, ErrAlreadyExists)
	}

	return err
}
