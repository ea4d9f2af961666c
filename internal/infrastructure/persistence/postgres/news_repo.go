package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bilim-hub/bilim-points-hub/internal/domain/news"
)

// ══════════════════════════════════════════════════════════════════════════════
// NEWS REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// NewsRepository implements news.Repository.
type NewsRepository struct {
	conn *Connection
}

// NewNewsRepository creates a PostgreSQL news repository.
func NewNewsRepository(conn *Connection) *NewsRepository {
	return &NewsRepository{conn: conn}
}

// GetByID returns a news item by ID.
func (r *NewsRepository) GetByID(ctx context.Context, id string) (*news.Item, error) {
	var item news.Item
	err := r.conn.QueryRow(ctx, `
		SELECT id, title, COALESCE(body, ''), COALESCE(image_path, ''), created_at
		FROM news
		WHERE id = $1
	`, id).Scan(&item.ID, &item.Title, &item.Body, &item.ImagePath, &item.CreatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, news.ErrNewsNotFound
		}
		return nil, err
	}
	return &item, nil
}

// List returns all news items, newest first.
func (r *NewsRepository) List(ctx context.Context) ([]*news.Item, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT id, title, COALESCE(body, ''), COALESCE(image_path, ''), created_at
		FROM news
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*news.Item
	for rows.Next() {
		var item news.Item
		if err := rows.Scan(&item.ID, &item.Title, &item.Body, &item.ImagePath, &item.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}

// Create persists a new news item.
func (r *NewsRepository) Create(ctx context.Context, item *news.Item) error {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now()
	}

	_, err := r.conn.Exec(ctx, `
		INSERT INTO news (id, title, body, image_path, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, item.ID, item.Title, item.Body, item.ImagePath, item.CreatedAt)
	return err
}

// MarkRead upserts the user's read status for one item. Marking an
// already-read item keeps the original read_at, so the call is idempotent.
func (r *NewsRepository) MarkRead(ctx context.Context, userID, newsID string) (*news.ReadStatus, error) {
	var (
		status news.ReadStatus
		readAt *time.Time
	)
	err := r.conn.QueryRow(ctx, `
		INSERT INTO news_read_statuses (id, user_id, news_id, is_read, read_at)
		VALUES ($1, $2, $3, TRUE, NOW())
		ON CONFLICT (user_id, news_id) DO UPDATE
		SET is_read = TRUE,
		    read_at = COALESCE(news_read_statuses.read_at, EXCLUDED.read_at)
		RETURNING id, user_id, news_id, is_read, read_at
	`, uuid.NewString(), userID, newsID).Scan(
		&status.ID, &status.UserID, &status.NewsID, &status.IsRead, &readAt,
	)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return nil, news.ErrNewsNotFound
		}
		return nil, err
	}
	if readAt != nil {
		status.ReadAt = *readAt
	}
	return &status, nil
}

// UnreadSummary projects the user's read/unread split over all news items.
// An item with no status row counts as unread.
func (r *NewsRepository) UnreadSummary(ctx context.Context, userID string) (*news.UnreadSummary, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT n.id, COALESCE(rs.is_read, FALSE)
		FROM news n
		LEFT JOIN news_read_statuses rs ON rs.news_id = n.id AND rs.user_id = $1
		ORDER BY n.created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summary := &news.UnreadSummary{
		UnreadIDs: []string{},
		ReadIDs:   []string{},
	}
	for rows.Next() {
		var (
			id     string
			isRead bool
		)
		if err := rows.Scan(&id, &isRead); err != nil {
			return nil, err
		}
		if isRead {
			summary.ReadIDs = append(summary.ReadIDs, id)
		} else {
			summary.UnreadCount++
			summary.UnreadIDs = append(summary.UnreadIDs, id)
		}
	}
	return summary, rows.Err()
}
