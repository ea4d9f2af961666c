package assignment

import (
	"context"
)

// Repository provides access to assignments and submissions.
type Repository interface {
	// GetAssignment returns an assignment by ID.
	GetAssignment(ctx context.Context, id string) (*Assignment, error)

	// ListAssignmentsForGroup returns a group's assignments, newest first.
	ListAssignmentsForGroup(ctx context.Context, groupID string) ([]*Assignment, error)

	// CreateAssignment persists a new assignment.
	CreateAssignment(ctx context.Context, a *Assignment) error

	// UpdateAssignment persists changed fields of an assignment.
	UpdateAssignment(ctx context.Context, a *Assignment) error

	// GetSubmission returns a submission by ID.
	GetSubmission(ctx context.Context, id string) (*Submission, error)

	// ListSubmissionsForAssignment returns submissions, newest first.
	ListSubmissionsForAssignment(ctx context.Context, assignmentID string) ([]*Submission, error)

	// CreateSubmission persists a new submission.
	CreateSubmission(ctx context.Context, s *Submission) error

	// UpdateSubmission persists changed fields of a submission.
	UpdateSubmission(ctx context.Context, s *Submission) error
}
