package query

import (
	"context"

	"github.com/bilim-hub/bilim-points-hub/internal/domain/news"
	"github.com/bilim-hub/bilim-points-hub/internal/domain/shared"
)

// NewsHandler serves announcements and per-user read tracking.
type NewsHandler struct {
	news news.Repository
}

// NewNewsHandler creates a NewsHandler.
func NewNewsHandler(repo news.Repository) *NewsHandler {
	return &NewsHandler{news: repo}
}

// GetNews returns one announcement.
func (h *NewsHandler) GetNews(ctx context.Context, id string) (*news.Item, error) {
	return h.news.GetByID(ctx, id)
}

// ListNews returns all announcements, newest first.
func (h *NewsHandler) ListNews(ctx context.Context) ([]*news.Item, error) {
	return h.news.List(ctx)
}

// GetUnreadSummary returns the user's read/unread projection.
func (h *NewsHandler) GetUnreadSummary(ctx context.Context, userID string) (*news.UnreadSummary, error) {
	if userID == "" {
		return nil, shared.NewDomainError("news", "UnreadSummary", shared.ErrEmptyValue, "user id is required")
	}
	return h.news.UnreadSummary(ctx, userID)
}

// MarkRead records that a user read an announcement. Idempotent.
func (h *NewsHandler) MarkRead(ctx context.Context, userID, newsID string) (*news.ReadStatus, error) {
	if userID == "" || newsID == "" {
		return nil, shared.NewDomainError("news", "MarkRead", shared.ErrEmptyValue, "user id and news id are required")
	}
	return h.news.MarkRead(ctx, userID, newsID)
}
