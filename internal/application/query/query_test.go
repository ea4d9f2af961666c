package query

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bilim-hub/bilim-points-hub/internal/domain/student"
)

// fakeStudentRepo is a slice-backed student.Repository that honors the
// "-point" ordering, limit, and course filtering the queries rely on.
type fakeStudentRepo struct {
	students []*student.Student

	// courseOf maps group IDs to course IDs for CourseID filtering.
	courseOf map[string]string
}

func (f *fakeStudentRepo) GetByID(ctx context.Context, id string) (*student.Student, error) {
	for _, s := range f.students {
		if s.ID == id {
			cp := *s
			return &cp, nil
		}
	}
	return nil, student.ErrStudentNotFound
}

func (f *fakeStudentRepo) List(ctx context.Context, filter student.ListFilter) ([]*student.Student, error) {
	var out []*student.Student
	for _, s := range f.students {
		if filter.GroupID != "" && s.GroupID != filter.GroupID {
			continue
		}
		if filter.CourseID != "" && f.courseOf[s.GroupID] != filter.CourseID {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}

	if filter.OrderBy == "-point" || filter.OrderBy == "" {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Point > out[j].Point })
	}
	if filter.Offset > 0 && filter.Offset < len(out) {
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *fakeStudentRepo) Count(ctx context.Context, filter student.ListFilter) (int64, error) {
	all, _ := f.List(ctx, student.ListFilter{GroupID: filter.GroupID, CourseID: filter.CourseID})
	return int64(len(all)), nil
}

func (f *fakeStudentRepo) Create(ctx context.Context, s *student.Student) error {
	cp := *s
	f.students = append(f.students, &cp)
	return nil
}

func (f *fakeStudentRepo) UpdateProfile(ctx context.Context, s *student.Student) error {
	for i, existing := range f.students {
		if existing.ID == s.ID {
			cp := *s
			cp.Point = existing.Point // profile updates never move balances
			f.students[i] = &cp
			return nil
		}
	}
	return student.ErrStudentNotFound
}

// fakeGroupRepo serves the course catalogue for the averages query.
type fakeGroupRepo struct {
	groups  []*student.Group
	courses []*student.Course
}

func (f *fakeGroupRepo) GetGroup(ctx context.Context, id string) (*student.Group, error) {
	for _, g := range f.groups {
		if g.ID == id {
			return g, nil
		}
	}
	return nil, student.ErrGroupNotFound
}

func (f *fakeGroupRepo) ListGroups(ctx context.Context, activeOnly bool) ([]*student.Group, error) {
	if !activeOnly {
		return f.groups, nil
	}
	var out []*student.Group
	for _, g := range f.groups {
		if g.Active {
			out = append(out, g)
		}
	}
	return out, nil
}

func (f *fakeGroupRepo) GetMentor(ctx context.Context, id string) (*student.Mentor, error) {
	return nil, student.ErrMentorNotFound
}

func (f *fakeGroupRepo) ListCourses(ctx context.Context) ([]*student.Course, error) {
	return f.courses, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LEADERBOARD
// ══════════════════════════════════════════════════════════════════════════════

func TestLeaderboard_DatabaseFallbackWithoutCache(t *testing.T) {
	repo := &fakeStudentRepo{students: []*student.Student{
		{ID: "s1", FullName: "Aruzhan", GroupID: "g1", Point: 120},
		{ID: "s2", FullName: "Bekzat", GroupID: "g1", Point: 300},
		{ID: "s3", FullName: "Camila", GroupID: "g2", Point: 10},
	}}

	h := NewLeaderboardHandler(nil, repo, nil)

	entries, err := h.GetTop(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "s2", entries[0].StudentID)
	assert.Equal(t, int64(1), entries[0].Rank)
	assert.Equal(t, 300, entries[0].Points)

	assert.Equal(t, "s1", entries[1].StudentID)
	assert.Equal(t, int64(2), entries[1].Rank)
}

func TestLeaderboard_DefaultLimit(t *testing.T) {
	repo := &fakeStudentRepo{students: []*student.Student{
		{ID: "s1", FullName: "Aruzhan", Point: 10},
	}}

	h := NewLeaderboardHandler(nil, repo, nil)

	entries, err := h.GetTop(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestLeaderboard_EmptyProgram(t *testing.T) {
	h := NewLeaderboardHandler(nil, &fakeStudentRepo{}, nil)

	entries, err := h.GetTop(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// ══════════════════════════════════════════════════════════════════════════════
// COURSE AVERAGES
// ══════════════════════════════════════════════════════════════════════════════

func TestCourseAverages(t *testing.T) {
	students := &fakeStudentRepo{
		students: []*student.Student{
			{ID: "s1", GroupID: "g1", Point: 100},
			{ID: "s2", GroupID: "g1", Point: 50},
			{ID: "s3", GroupID: "g2", Point: 33},
		},
		courseOf: map[string]string{"g1": "c1", "g2": "c2"},
	}
	groups := &fakeGroupRepo{courses: []*student.Course{
		{ID: "c1", Name: "Go Backend"},
		{ID: "c2", Name: "Frontend"},
		{ID: "c3", Name: "Design"},
	}}

	h := NewCourseAverageHandler(students, groups)

	rows, err := h.GetCourseAverages(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, "Go Backend", rows[0].CourseName)
	assert.Equal(t, 2, rows[0].StudentCount)
	assert.Equal(t, 150, rows[0].TotalPoints)
	assert.Equal(t, 75.0, rows[0].AveragePoints)

	assert.Equal(t, 1, rows[1].StudentCount)
	assert.Equal(t, 33.0, rows[1].AveragePoints)

	// An empty course averages zero rather than dividing by zero.
	assert.Equal(t, 0, rows[2].StudentCount)
	assert.Equal(t, 0.0, rows[2].AveragePoints)
}

func TestCourseAverages_RoundsToTwoDecimals(t *testing.T) {
	students := &fakeStudentRepo{
		students: []*student.Student{
			{ID: "s1", GroupID: "g1", Point: 10},
			{ID: "s2", GroupID: "g1", Point: 10},
			{ID: "s3", GroupID: "g1", Point: 11},
		},
		courseOf: map[string]string{"g1": "c1"},
	}
	groups := &fakeGroupRepo{courses: []*student.Course{{ID: "c1", Name: "Go Backend"}}}

	h := NewCourseAverageHandler(students, groups)

	rows, err := h.GetCourseAverages(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 10.33, rows[0].AveragePoints)
}
