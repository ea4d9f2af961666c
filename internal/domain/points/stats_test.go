package points

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func grant(typeID string, amount int) *GrantRecord {
	return &GrantRecord{PointTypeID: typeID, Amount: amount}
}

func TestComputeStats_Empty(t *testing.T) {
	stats := ComputeStats("s1", nil, nil)

	assert.Equal(t, "s1", stats.StudentID)
	assert.Equal(t, 0, stats.TotalPoints)
	assert.Equal(t, 0, stats.GrantCount)
	assert.NotNil(t, stats.ByCategory, "serializes as [] rather than null")
	assert.Empty(t, stats.ByCategory)
}

func TestComputeStats_SingleCategory(t *testing.T) {
	names := map[string]string{"t1": "Attendance"}
	stats := ComputeStats("s1", []*GrantRecord{
		grant("t1", 10),
		grant("t1", 20),
	}, names)

	assert.Equal(t, 30, stats.TotalPoints)
	assert.Equal(t, 2, stats.GrantCount)
	require.Len(t, stats.ByCategory, 1)

	cat := stats.ByCategory[0]
	assert.Equal(t, "Attendance", cat.PointTypeName)
	assert.Equal(t, 30, cat.Sum)
	assert.Equal(t, 2, cat.Count)
	assert.Equal(t, 15.0, cat.Avg)
	assert.Equal(t, 100.0, cat.Percentage)
}

func TestComputeStats_PercentagesAndOrdering(t *testing.T) {
	names := map[string]string{"t1": "Homework", "t2": "Activity"}
	stats := ComputeStats("s1", []*GrantRecord{
		grant("t1", 75),
		grant("t2", 25),
	}, names)

	require.Len(t, stats.ByCategory, 2)

	// Sorted by category name ascending.
	assert.Equal(t, "Activity", stats.ByCategory[0].PointTypeName)
	assert.Equal(t, "Homework", stats.ByCategory[1].PointTypeName)

	assert.Equal(t, 25.0, stats.ByCategory[0].Percentage)
	assert.Equal(t, 75.0, stats.ByCategory[1].Percentage)
}

func TestComputeStats_RoundsToTwoDecimals(t *testing.T) {
	names := map[string]string{"t1": "A", "t2": "B", "t3": "C"}
	stats := ComputeStats("s1", []*GrantRecord{
		grant("t1", 1),
		grant("t2", 1),
		grant("t3", 1),
	}, names)

	require.Len(t, stats.ByCategory, 3)
	for _, cat := range stats.ByCategory {
		assert.Equal(t, 33.33, cat.Percentage)
	}
}

func TestComputeStats_AllZeroAmounts(t *testing.T) {
	names := map[string]string{"t1": "A"}
	stats := ComputeStats("s1", []*GrantRecord{
		grant("t1", 0),
		grant("t1", 0),
	}, names)

	require.Len(t, stats.ByCategory, 1)
	assert.Equal(t, 0, stats.TotalPoints)
	assert.Equal(t, 0.0, stats.ByCategory[0].Percentage, "zero totals yield zero, not NaN")
	assert.Equal(t, 0.0, stats.ByCategory[0].Avg)
}

func TestComputeStats_UncategorizedGrants(t *testing.T) {
	stats := ComputeStats("s1", []*GrantRecord{
		grant("", 40),
	}, nil)

	require.Len(t, stats.ByCategory, 1)
	assert.Equal(t, "", stats.ByCategory[0].PointTypeID)
	assert.Equal(t, "", stats.ByCategory[0].PointTypeName)
	assert.Equal(t, 100.0, stats.ByCategory[0].Percentage)
}

func TestDateRange_Contains(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2026, 5, d, 0, 0, 0, 0, time.UTC) }

	unbounded := DateRange{}
	assert.True(t, unbounded.Contains(day(1)))

	from := DateRange{From: day(10)}
	assert.False(t, from.Contains(day(9)))
	assert.True(t, from.Contains(day(10)), "bounds are inclusive")
	assert.True(t, from.Contains(day(11)))

	full := DateRange{From: day(10), To: day(20)}
	assert.True(t, full.Contains(day(20)))
	assert.False(t, full.Contains(day(21)))
}
