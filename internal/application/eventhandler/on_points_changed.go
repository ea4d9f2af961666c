// Package eventhandler contains subscribers that update read models after
// balance-affecting transactions commit.
package eventhandler

import (
	"context"

	"github.com/bilim-hub/bilim-points-hub/internal/domain/shared"
	"github.com/bilim-hub/bilim-points-hub/internal/domain/student"
	"github.com/bilim-hub/bilim-points-hub/internal/infrastructure/persistence/redis"
	"github.com/bilim-hub/bilim-points-hub/pkg/logger"
)

// PointsChangedHandler mirrors committed balance changes into the Redis
// leaderboard. The cache is an accelerator only: a failure here is logged
// and the next read rebuilds from PostgreSQL, so the handler never blocks
// or fails the transaction that published the event.
type PointsChangedHandler struct {
	cache    *redis.LeaderboardCache
	students student.Repository
	log      *logger.Logger
}

// NewPointsChangedHandler creates the leaderboard sync handler.
func NewPointsChangedHandler(cache *redis.LeaderboardCache, students student.Repository, log *logger.Logger) *PointsChangedHandler {
	return &PointsChangedHandler{
		cache:    cache,
		students: students,
		log:      log.With(logger.Component("points_changed_handler")),
	}
}

// Subscribe wires the handler into the bus.
func (h *PointsChangedHandler) Subscribe(bus interface {
	Subscribe(shared.EventType, shared.EventHandler) error
}) error {
	// Grant mutations publish BalanceChangedEvents under their own types,
	// so every balance-carrying type feeds the same score update.
	for _, t := range []shared.EventType{
		shared.EventBalanceChanged,
		shared.EventPointsGranted,
		shared.EventPointsRevoked,
		shared.EventGrantCorrected,
	} {
		if err := bus.Subscribe(t, h.OnBalanceChanged); err != nil {
			return err
		}
	}
	return bus.Subscribe(shared.EventBalancesReset, h.OnBalancesReset)
}

// OnBalanceChanged updates a single student's score in the ranking.
func (h *PointsChangedHandler) OnBalanceChanged(ctx context.Context, event shared.Event) error {
	e, ok := event.(shared.BalanceChangedEvent)
	if !ok {
		return nil
	}

	if err := h.cache.UpdateScore(ctx, e.StudentID, e.NewBalance); err != nil {
		h.log.Warn("leaderboard score update failed",
			logger.StudentID(e.StudentID),
			logger.Int("new_balance", e.NewBalance),
			logger.Err(err),
		)
	}
	return nil
}

// OnBalancesReset drops the cached ranking. With every balance at zero a
// rebuild on next read is cheaper than touching each member.
func (h *PointsChangedHandler) OnBalancesReset(ctx context.Context, event shared.Event) error {
	if err := h.cache.Invalidate(ctx); err != nil {
		h.log.Warn("leaderboard invalidation failed", logger.Err(err))
	}
	return nil
}

// RebuildLeaderboard snapshots all students from PostgreSQL into the cache.
// Called by the leaderboard query on a cache miss.
func RebuildLeaderboard(ctx context.Context, cache *redis.LeaderboardCache, students student.Repository) error {
	all, err := students.List(ctx, student.ListFilter{OrderBy: "-point"})
	if err != nil {
		return err
	}

	entries := make([]redis.LeaderboardEntry, 0, len(all))
	for i, s := range all {
		entries = append(entries, redis.LeaderboardEntry{
			StudentID: s.ID,
			FullName:  s.FullName,
			GroupID:   s.GroupID,
			Points:    int(s.Point),
			Rank:      int64(i + 1),
		})
	}

	return cache.Rebuild(ctx, entries)
}
