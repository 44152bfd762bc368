package types

import "time"

// NotificationRecord is immutable once written. Global records have no
// recipient.
type NotificationRecord struct {
	ID              string
	Title           string
	Message         string
	RecipientUserID *string
	IsGlobal        bool
	IsAnnouncement  bool
	CreatedAt       time.Time
}
