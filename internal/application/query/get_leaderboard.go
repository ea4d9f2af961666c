package query

import (
	"context"

	"github.com/bilim-hub/bilim-points-hub/internal/application/eventhandler"
	"github.com/bilim-hub/bilim-points-hub/internal/domain/student"
	"github.com/bilim-hub/bilim-points-hub/internal/infrastructure/persistence/redis"
	"github.com/bilim-hub/bilim-points-hub/pkg/logger"
)

// DefaultLeaderboardSize is served when the caller does not specify a limit.
const DefaultLeaderboardSize = 50

// LeaderboardHandler serves the points ranking, cache-aside: Redis first,
// rebuilt from PostgreSQL on a miss, and straight from PostgreSQL when
// Redis is unavailable. PostgreSQL is always the source of truth.
type LeaderboardHandler struct {
	cache    *redis.LeaderboardCache
	students student.Repository
	log      *logger.Logger
}

// NewLeaderboardHandler creates a LeaderboardHandler. cache may be nil, in
// which case every read goes to PostgreSQL.
func NewLeaderboardHandler(cache *redis.LeaderboardCache, students student.Repository, log *logger.Logger) *LeaderboardHandler {
	if log == nil {
		log = logger.Default()
	}
	return &LeaderboardHandler{
		cache:    cache,
		students: students,
		log:      log.With(logger.Component("leaderboard_query")),
	}
}

// GetTop returns the top N students by point balance.
func (h *LeaderboardHandler) GetTop(ctx context.Context, limit int) ([]redis.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardSize
	}

	if h.cache != nil {
		entries, err := h.fromCache(ctx, limit)
		if err == nil {
			return entries, nil
		}
		h.log.Warn("leaderboard cache unavailable, reading from database", logger.Err(err))
	}

	return h.fromDatabase(ctx, limit)
}

func (h *LeaderboardHandler) fromCache(ctx context.Context, limit int) ([]redis.LeaderboardEntry, error) {
	populated, err := h.cache.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !populated {
		if err := eventhandler.RebuildLeaderboard(ctx, h.cache, h.students); err != nil {
			return nil, err
		}
	}
	return h.cache.GetTop(ctx, limit)
}

func (h *LeaderboardHandler) fromDatabase(ctx context.Context, limit int) ([]redis.LeaderboardEntry, error) {
	top, err := h.students.List(ctx, student.ListFilter{OrderBy: "-point", Limit: limit})
	if err != nil {
		return nil, err
	}

	entries := make([]redis.LeaderboardEntry, 0, len(top))
	for i, s := range top {
		entries = append(entries, redis.LeaderboardEntry{
			StudentID: s.ID,
			FullName:  s.FullName,
			GroupID:   s.GroupID,
			Points:    int(s.Point),
			Rank:      int64(i + 1),
		})
	}
	return entries, nil
}
