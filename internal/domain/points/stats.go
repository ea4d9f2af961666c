package points

import (
	"math"
	"sort"
	"time"
)

// CategoryStat is the per-point-type slice of a student's grant statistics.
type CategoryStat struct {
	PointTypeID   string  `json:"point_type_id"`
	PointTypeName string  `json:"point_type_name"`
	Sum           int     `json:"total"`
	Count         int     `json:"count"`
	Avg           float64 `json:"avg"`
	Percentage    float64 `json:"percentage"`
}

// StudentStats aggregates a student's grants over an optional date range.
type StudentStats struct {
	StudentID   string         `json:"student_id"`
	TotalPoints int            `json:"total_points"`
	GrantCount  int            `json:"give_point_count"`
	ByCategory  []CategoryStat `json:"point_type"`
}

// DateRange bounds an aggregation. Zero endpoints are unbounded.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether d falls inside the range (inclusive).
func (r DateRange) Contains(d time.Time) bool {
	if !r.From.IsZero() && d.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && d.After(r.To) {
		return false
	}
	return true
}

// ComputeStats builds per-category statistics from a student's grant records.
// The percentage of a category is its sum over the grand total, rounded to
// two decimals; an all-zero total divides by one so empty data yields zero
// percentages rather than NaN.
func ComputeStats(studentID string, grants []*GrantRecord, typeNames map[string]string) StudentStats {
	stats := StudentStats{
		StudentID:  studentID,
		ByCategory: []CategoryStat{},
	}

	byType := make(map[string]*CategoryStat)
	for _, g := range grants {
		stats.TotalPoints += g.Amount
		stats.GrantCount++

		cs, ok := byType[g.PointTypeID]
		if !ok {
			cs = &CategoryStat{
				PointTypeID:   g.PointTypeID,
				PointTypeName: typeNames[g.PointTypeID],
			}
			byType[g.PointTypeID] = cs
		}
		cs.Sum += g.Amount
		cs.Count++
	}

	totalSum := 0
	for _, cs := range byType {
		totalSum += cs.Sum
	}
	if totalSum == 0 {
		totalSum = 1
	}

	for _, cs := range byType {
		cs.Avg = round2(float64(cs.Sum) / float64(cs.Count))
		cs.Percentage = round2(float64(cs.Sum) / float64(totalSum) * 100)
		stats.ByCategory = append(stats.ByCategory, *cs)
	}

	sort.Slice(stats.ByCategory, func(i, j int) bool {
		return stats.ByCategory[i].PointTypeName < stats.ByCategory[j].PointTypeName
	})

	return stats
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
