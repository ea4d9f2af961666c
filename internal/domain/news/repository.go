package news

import (
	"context"
)

// Repository provides access to news items and read statuses.
type Repository interface {
	// GetByID returns a news item by ID.
	GetByID(ctx context.Context, id string) (*Item, error)

	// List returns all news items, newest first.
	List(ctx context.Context) ([]*Item, error)

	// Create persists a new news item.
	Create(ctx context.Context, item *Item) error

	// MarkRead records that a user read a news item. Idempotent: marking
	// an already-read item changes nothing.
	MarkRead(ctx context.Context, userID, newsID string) (*ReadStatus, error)

	// UnreadSummary returns the user's read/unread projection.
	UnreadSummary(ctx context.Context, userID string) (*UnreadSummary, error)
}
