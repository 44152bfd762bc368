package store

import (
	"context"
	"fmt"

	"foodshare/internal/docstore"
	"foodshare/pkg/types"
)

type NotificationRepository struct {
	store docstore.Store
}

func NewNotificationRepository(store docstore.Store) *NotificationRepository {
	return &NotificationRepository{store: store}
}

// Create writes the record under its own ID, so a repeated create of the same
// record fails with docstore.ErrAlreadyExists in the chain.
func (r *NotificationRepository) Create(ctx context.Context, record *types.NotificationRecord) error {
	err := r.store.Create(ctx, NotificationsCollection, record.ID, EncodeNotification(record))
	if err != nil {
		return fmt.Errorf("failed to create notification %s: %w: %w", record.ID, types.ErrStoreFailure, err)
	}
	return nil
}

func (r *NotificationRepository) ForRecipient(ctx context.Context, userID string) ([]*types.NotificationRecord, error) {
	docs, err := r.store.Query(ctx, NotificationsCollection, docstore.Eq("userId", userID))
	if err != nil {
		return nil, storeError(err, fmt.Sprintf("failed to fetch notifications for %s", userID))
	}

	return decodeNotifications(docs)
}

func (r *NotificationRepository) Global(ctx context.Context) ([]*types.NotificationRecord, error) {
	docs, err := r.store.Query(ctx, NotificationsCollection, docstore.Eq("isGlobal", true))
	if err != nil {
		return nil, storeError(err, "failed to fetch global notifications")
	}

	return decodeNotifications(docs)
}

func decodeNotifications(docs []docstore.Document) ([]*types.NotificationRecord, error) {
	records := make([]*types.NotificationRecord, 0, len(docs))
	for _, doc := range docs {
		record, err := DecodeNotification(doc)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}
