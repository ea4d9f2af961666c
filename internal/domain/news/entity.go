// Package news contains program announcements and per-user read tracking.
// This is a pure read-side feature: nothing here touches balances or stock.
package news

import (
	"strings"
	"time"

	"github.com/bilim-hub/bilim-points-hub/internal/domain/shared"
)

// Item is one published announcement.
type Item struct {
	ID        string
	Title     string
	Body      string
	ImagePath string // opaque storage path
	CreatedAt time.Time
}

// Validate checks entity-level invariants.
func (i *Item) Validate() error {
	if strings.TrimSpace(i.Title) == "" {
		return ErrMissingTitle
	}
	return nil
}

// ReadStatus marks one user's read state for one news item.
type ReadStatus struct {
	ID     string
	UserID string
	NewsID string
	IsRead bool
	ReadAt time.Time
}

// UnreadSummary is the per-user projection served to clients: how much is
// unread and which items those are.
type UnreadSummary struct {
	UnreadCount int      `json:"num_unread_news"`
	UnreadIDs   []string `json:"unread_news_ids"`
	ReadIDs     []string `json:"read_news_ids"`
}

var (
	// ErrNewsNotFound is returned when a news lookup fails.
	ErrNewsNotFound = shared.NewDomainError("news", "Find", shared.ErrNotFound, "news item not found")

	// ErrMissingTitle rejects untitled news items.
	ErrMissingTitle = shared.NewDomainError("news", "Validate", shared.ErrEmptyValue, "title is required")
)
