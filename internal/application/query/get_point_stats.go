package query

import (
	"context"

	"github.com/bilim-hub/bilim-points-hub/internal/domain/points"
	"github.com/bilim-hub/bilim-points-hub/internal/domain/student"
)

// StatsHandler serves the per-category grant statistics read model.
type StatsHandler struct {
	grants   points.Repository
	students student.Repository
}

// NewStatsHandler creates a StatsHandler.
func NewStatsHandler(grants points.Repository, students student.Repository) *StatsHandler {
	return &StatsHandler{
		grants:   grants,
		students: students,
	}
}

// GetStudentStats returns one student's per-category sums, counts,
// averages, and percentages over an optional date range.
func (h *StatsHandler) GetStudentStats(ctx context.Context, studentID string, dr points.DateRange) (*points.StudentStats, error) {
	if _, err := h.students.GetByID(ctx, studentID); err != nil {
		return nil, err
	}

	stats, err := h.grants.Aggregate(ctx, []string{studentID}, dr)
	if err != nil {
		return nil, err
	}
	return &stats[0], nil
}

// GetGroupStats returns statistics for every student in a group.
func (h *StatsHandler) GetGroupStats(ctx context.Context, groupID string, dr points.DateRange) ([]points.StudentStats, error) {
	members, err := h.students.List(ctx, student.ListFilter{GroupID: groupID})
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	return h.grants.Aggregate(ctx, ids, dr)
}

// ListGrants returns grant records matching the filter.
func (h *StatsHandler) ListGrants(ctx context.Context, filter points.ListFilter) ([]*points.GrantRecord, error) {
	return h.grants.List(ctx, filter)
}

// CountGrants returns the number of records matching the filter.
func (h *StatsHandler) CountGrants(ctx context.Context, filter points.ListFilter) (int64, error) {
	return h.grants.Count(ctx, filter)
}

// ListPointTypes returns the grant categories.
func (h *StatsHandler) ListPointTypes(ctx context.Context) ([]*points.PointType, error) {
	return h.grants.ListPointTypes(ctx)
}
