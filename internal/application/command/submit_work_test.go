package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bilim-hub/bilim-points-hub/internal/domain/assignment"
	"github.com/bilim-hub/bilim-points-hub/internal/domain/shared"
)

// fakeAssignmentRepo is a map-backed assignment.Repository.
type fakeAssignmentRepo struct {
	assignments map[string]*assignment.Assignment
	submissions map[string]*assignment.Submission
}

func newFakeAssignmentRepo() *fakeAssignmentRepo {
	return &fakeAssignmentRepo{
		assignments: make(map[string]*assignment.Assignment),
		submissions: make(map[string]*assignment.Submission),
	}
}

func (f *fakeAssignmentRepo) GetAssignment(ctx context.Context, id string) (*assignment.Assignment, error) {
	a, ok := f.assignments[id]
	if !ok {
		return nil, assignment.ErrAssignmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeAssignmentRepo) ListAssignmentsForGroup(ctx context.Context, groupID string) ([]*assignment.Assignment, error) {
	var out []*assignment.Assignment
	for _, a := range f.assignments {
		if a.GroupID == groupID {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeAssignmentRepo) CreateAssignment(ctx context.Context, a *assignment.Assignment) error {
	cp := *a
	f.assignments[a.ID] = &cp
	return nil
}

func (f *fakeAssignmentRepo) UpdateAssignment(ctx context.Context, a *assignment.Assignment) error {
	if _, ok := f.assignments[a.ID]; !ok {
		return assignment.ErrAssignmentNotFound
	}
	cp := *a
	f.assignments[a.ID] = &cp
	return nil
}

func (f *fakeAssignmentRepo) GetSubmission(ctx context.Context, id string) (*assignment.Submission, error) {
	s, ok := f.submissions[id]
	if !ok {
		return nil, assignment.ErrSubmissionNotFound
	}
	cp := *s
	return &cp, nil
}

func (f *fakeAssignmentRepo) ListSubmissionsForAssignment(ctx context.Context, assignmentID string) ([]*assignment.Submission, error) {
	var out []*assignment.Submission
	for _, s := range f.submissions {
		if s.AssignmentID == assignmentID {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeAssignmentRepo) CreateSubmission(ctx context.Context, s *assignment.Submission) error {
	cp := *s
	f.submissions[s.ID] = &cp
	return nil
}

func (f *fakeAssignmentRepo) UpdateSubmission(ctx context.Context, s *assignment.Submission) error {
	if _, ok := f.submissions[s.ID]; !ok {
		return assignment.ErrSubmissionNotFound
	}
	cp := *s
	f.submissions[s.ID] = &cp
	return nil
}

func openAssignment(repo *fakeAssignmentRepo, id string, maxPoint int, deadline time.Time) {
	repo.assignments[id] = &assignment.Assignment{
		ID:       id,
		Title:    "Build a REST API",
		GroupID:  "g1",
		MaxPoint: maxPoint,
		Status:   assignment.StatusInProgress,
		Deadline: deadline,
	}
}

func TestSubmit_Success(t *testing.T) {
	repo := newFakeAssignmentRepo()
	openAssignment(repo, "a1", 10, time.Now().Add(24*time.Hour))

	h := NewSubmitWorkHandler(repo, nil)

	sub, err := h.Submit(context.Background(), SubmitWorkCommand{
		AssignmentID: "a1",
		StudentID:    "s1",
		Response:     "https://github.com/s1/rest-api",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, sub.ID)
	assert.Equal(t, assignment.SubmissionAssigned, sub.Status)
	assert.Len(t, repo.submissions, 1)
}

func TestSubmit_EmptyContent(t *testing.T) {
	repo := newFakeAssignmentRepo()
	openAssignment(repo, "a1", 10, time.Now().Add(24*time.Hour))

	h := NewSubmitWorkHandler(repo, nil)

	_, err := h.Submit(context.Background(), SubmitWorkCommand{
		AssignmentID: "a1",
		StudentID:    "s1",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, assignment.ErrEmptySubmission)
	assert.Empty(t, repo.submissions, "a rejected submission leaves no trace")
}

func TestSubmit_DescriptionOnlyCounts(t *testing.T) {
	repo := newFakeAssignmentRepo()
	openAssignment(repo, "a1", 10, time.Now().Add(24*time.Hour))

	h := NewSubmitWorkHandler(repo, nil)

	sub, err := h.Submit(context.Background(), SubmitWorkCommand{
		AssignmentID: "a1",
		StudentID:    "s1",
		Description:  "see attached repo link in class chat",
	})
	require.NoError(t, err)
	assert.Equal(t, assignment.SubmissionAssigned, sub.Status)
}

func TestSubmit_PastDeadline(t *testing.T) {
	repo := newFakeAssignmentRepo()
	openAssignment(repo, "a1", 10, time.Now().Add(-time.Hour))

	h := NewSubmitWorkHandler(repo, nil)

	_, err := h.Submit(context.Background(), SubmitWorkCommand{
		AssignmentID: "a1",
		StudentID:    "s1",
		Response:     "late work",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, assignment.ErrDeadlinePassed)
	assert.Empty(t, repo.submissions)
}

func TestSubmit_UnknownAssignment(t *testing.T) {
	h := NewSubmitWorkHandler(newFakeAssignmentRepo(), nil)

	_, err := h.Submit(context.Background(), SubmitWorkCommand{
		AssignmentID: "ghost",
		StudentID:    "s1",
		Response:     "work",
	})
	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
}

func TestGrade_Success(t *testing.T) {
	repo := newFakeAssignmentRepo()
	openAssignment(repo, "a1", 10, time.Now().Add(24*time.Hour))

	h := NewSubmitWorkHandler(repo, nil)

	sub, err := h.Submit(context.Background(), SubmitWorkCommand{
		AssignmentID: "a1", StudentID: "s1", Response: "work",
	})
	require.NoError(t, err)

	graded, err := h.Grade(context.Background(), GradeWorkCommand{
		SubmissionID: sub.ID, Point: 7,
	})
	require.NoError(t, err)

	assert.Equal(t, 7, graded.Point)
	assert.Equal(t, assignment.SubmissionGraded, graded.Status)
	assert.Equal(t, 7, repo.submissions[sub.ID].Point)
}

func TestGrade_ClampsToMaxPoint(t *testing.T) {
	repo := newFakeAssignmentRepo()
	openAssignment(repo, "a1", 10, time.Now().Add(24*time.Hour))

	h := NewSubmitWorkHandler(repo, nil)

	sub, err := h.Submit(context.Background(), SubmitWorkCommand{
		AssignmentID: "a1", StudentID: "s1", Response: "work",
	})
	require.NoError(t, err)

	graded, err := h.Grade(context.Background(), GradeWorkCommand{
		SubmissionID: sub.ID, Point: 99,
	})
	require.NoError(t, err)
	assert.Equal(t, 10, graded.Point, "points are capped at the assignment maximum")

	graded, err = h.Grade(context.Background(), GradeWorkCommand{
		SubmissionID: sub.ID, Point: -3,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, graded.Point, "negative grades floor at zero")
}

func TestGrade_UnknownSubmission(t *testing.T) {
	h := NewSubmitWorkHandler(newFakeAssignmentRepo(), nil)

	_, err := h.Grade(context.Background(), GradeWorkCommand{SubmissionID: "ghost", Point: 5})
	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
}

func TestGrade_EmptyID(t *testing.T) {
	h := NewSubmitWorkHandler(newFakeAssignmentRepo(), nil)

	_, err := h.Grade(context.Background(), GradeWorkCommand{Point: 5})
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
}
