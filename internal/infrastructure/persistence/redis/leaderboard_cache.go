package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD CACHE ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrLeaderboardEmpty is returned when the leaderboard has no entries.
	ErrLeaderboardEmpty = errors.New("leaderboard_cache: leaderboard is empty")

	// ErrStudentNotRanked is returned when a student is not in the leaderboard.
	ErrStudentNotRanked = errors.New("leaderboard_cache: student not ranked")

	// ErrStudentIDEmpty is returned when an empty student ID is provided.
	ErrStudentIDEmpty = errors.New("leaderboard_cache: student ID cannot be empty")
)

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD CACHE
// ══════════════════════════════════════════════════════════════════════════════

// LeaderboardEntry is one row of the cached points ranking.
type LeaderboardEntry struct {
	StudentID string `json:"student_id"`
	FullName  string `json:"full_name"`
	GroupID   string `json:"group_id,omitempty"`
	Points    int    `json:"points"`
	Rank      int64  `json:"rank"`
}

// LeaderboardCache ranks students by point balance using a Redis sorted set.
//
// Layout:
//   - Sorted set "points:rank" maps studentID -> balance
//   - Hash "points:info" maps studentID -> LeaderboardEntry JSON
//
// The balance-changed event handler keeps scores current after every
// committed transaction; readers rebuild from PostgreSQL on a miss.
type LeaderboardCache struct {
	cache *Cache
}

const (
	keyLeaderboardRank = "points:rank"
	keyLeaderboardInfo = "points:info"
)

// NewLeaderboardCache creates a leaderboard cache over an existing client.
func NewLeaderboardCache(cache *Cache) *LeaderboardCache {
	return &LeaderboardCache{cache: cache}
}

// UpdateScore writes a single student's balance into the ranking. O(log N).
func (l *LeaderboardCache) UpdateScore(ctx context.Context, studentID string, points int) error {
	if studentID == "" {
		return ErrStudentIDEmpty
	}

	return l.cache.Client().ZAdd(ctx, keyLeaderboardRank, redis.Z{
		Score:  float64(points),
		Member: studentID,
	}).Err()
}

// Rebuild replaces the whole ranking with a fresh snapshot, atomically.
func (l *LeaderboardCache) Rebuild(ctx context.Context, entries []LeaderboardEntry) error {
	pipe := l.cache.Client().TxPipeline()

	pipe.Del(ctx, keyLeaderboardRank, keyLeaderboardInfo)

	if len(entries) > 0 {
		zMembers := make([]redis.Z, 0, len(entries))
		hashData := make(map[string]interface{}, len(entries))

		for _, entry := range entries {
			if entry.StudentID == "" {
				continue
			}

			zMembers = append(zMembers, redis.Z{
				Score:  float64(entry.Points),
				Member: entry.StudentID,
			})

			data, err := json.Marshal(entry)
			if err != nil {
				return err
			}
			hashData[entry.StudentID] = data
		}

		if len(zMembers) > 0 {
			pipe.ZAdd(ctx, keyLeaderboardRank, zMembers...)
		}
		if len(hashData) > 0 {
			pipe.HSet(ctx, keyLeaderboardInfo, hashData)
		}
	}

	pipe.Expire(ctx, keyLeaderboardRank, TTLLeaderboard)
	pipe.Expire(ctx, keyLeaderboardInfo, TTLLeaderboard)

	_, err := pipe.Exec(ctx)
	return err
}

// GetTop returns the top N students by balance, ranks populated.
func (l *LeaderboardCache) GetTop(ctx context.Context, count int) ([]LeaderboardEntry, error) {
	if count <= 0 {
		return []LeaderboardEntry{}, nil
	}

	studentIDs, err := l.cache.Client().ZRevRange(ctx, keyLeaderboardRank, 0, int64(count-1)).Result()
	if err != nil {
		return nil, err
	}
	if len(studentIDs) == 0 {
		return []LeaderboardEntry{}, nil
	}

	return l.entriesFor(ctx, studentIDs)
}

// GetRank returns a student's 1-based rank.
func (l *LeaderboardCache) GetRank(ctx context.Context, studentID string) (int64, error) {
	if studentID == "" {
		return 0, ErrStudentIDEmpty
	}

	rank, err := l.cache.Client().ZRevRank(ctx, keyLeaderboardRank, studentID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrStudentNotRanked
		}
		return 0, err
	}

	return rank + 1, nil
}

// GetScore returns a student's cached balance.
func (l *LeaderboardCache) GetScore(ctx context.Context, studentID string) (int, error) {
	if studentID == "" {
		return 0, ErrStudentIDEmpty
	}

	score, err := l.cache.Client().ZScore(ctx, keyLeaderboardRank, studentID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrStudentNotRanked
		}
		return 0, err
	}

	return int(score), nil
}

// Count returns the number of ranked students.
func (l *LeaderboardCache) Count(ctx context.Context) (int64, error) {
	return l.cache.Client().ZCard(ctx, keyLeaderboardRank).Result()
}

// Exists reports whether the ranking is populated at all. A false result
// means readers should rebuild from the database.
func (l *LeaderboardCache) Exists(ctx context.Context) (bool, error) {
	count, err := l.cache.Client().Exists(ctx, keyLeaderboardRank).Result()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Invalidate drops the cached ranking entirely. Called after the reset-all
// operation, where a full rebuild is cheaper than N score updates.
func (l *LeaderboardCache) Invalidate(ctx context.Context) error {
	return l.cache.Delete(ctx, keyLeaderboardRank, keyLeaderboardInfo)
}

// RefreshTTL extends the ranking's lifetime after a successful rebuild.
func (l *LeaderboardCache) RefreshTTL(ctx context.Context, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = TTLLeaderboard
	}

	pipe := l.cache.Client().Pipeline()
	pipe.Expire(ctx, keyLeaderboardRank, ttl)
	pipe.Expire(ctx, keyLeaderboardInfo, ttl)

	_, err := pipe.Exec(ctx)
	return err
}

// entriesFor loads entry details for the given IDs and fills in ranks and
// live scores from the sorted set.
func (l *LeaderboardCache) entriesFor(ctx context.Context, studentIDs []string) ([]LeaderboardEntry, error) {
	data, err := l.cache.Client().HMGet(ctx, keyLeaderboardInfo, studentIDs...).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]LeaderboardEntry, 0, len(studentIDs))
	for i, v := range data {
		var entry LeaderboardEntry

		if str, ok := v.(string); ok {
			if err := json.Unmarshal([]byte(str), &entry); err != nil {
				continue
			}
		} else {
			// Score exists but details were evicted; serve the bare row.
			entry.StudentID = studentIDs[i]
		}

		if score, err := l.GetScore(ctx, entry.StudentID); err == nil {
			entry.Points = score
		}
		if rank, err := l.GetRank(ctx, entry.StudentID); err == nil {
			entry.Rank = rank
		}
		entries = append(entries, entry)
	}

	return entries, nil
}
