// Package assignment contains mentor-issued assignments and student
// submissions. Submissions award points only after grading, and a graded
// submission never exceeds the assignment's maximum.
package assignment

import (
	"strings"
	"time"

	"github.com/bilim-hub/bilim-points-hub/internal/domain/shared"
)

// Status is the lifecycle of an assignment.
type Status string

const (
	StatusNew        Status = "new"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
)

// IsValid checks that the status is one of the known values.
func (s Status) IsValid() bool {
	switch s {
	case StatusNew, StatusInProgress, StatusCompleted:
		return true
	default:
		return false
	}
}

// SubmissionStatus is the lifecycle of a submission.
type SubmissionStatus string

const (
	// SubmissionGiven - the slot exists but no content was handed in yet.
	SubmissionGiven SubmissionStatus = "given"
	// SubmissionAssigned - the student handed in content.
	SubmissionAssigned SubmissionStatus = "assigned"
	// SubmissionFailed - the deadline passed without acceptable work.
	SubmissionFailed SubmissionStatus = "failed"
	// SubmissionGraded - a mentor graded the work.
	SubmissionGraded SubmissionStatus = "graded"
)

// Assignment is a task issued to a group with a deadline and a point cap.
type Assignment struct {
	ID          string
	Title       string
	Description string
	GroupID     string
	MentorID    string
	FilePath    string // opaque storage path
	MaxPoint    int
	Status      Status
	Deadline    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Validate checks entity-level invariants.
func (a *Assignment) Validate() error {
	if strings.TrimSpace(a.Title) == "" {
		return ErrMissingTitle
	}
	if a.MaxPoint < 0 {
		return ErrNegativeMaxPoint
	}
	if a.Deadline.IsZero() {
		return ErrMissingDeadline
	}
	return nil
}

// IsPastDeadline reports whether the assignment can no longer be submitted to.
func (a *Assignment) IsPastDeadline(now time.Time) bool {
	return now.After(a.Deadline)
}

// Submission is a student's answer to an assignment. At least one of
// Response, Description, or FilePath must be present.
type Submission struct {
	ID           string
	AssignmentID string
	StudentID    string
	Description  string
	Response     string
	FilePath     string // opaque storage path
	Point        int
	Status       SubmissionStatus
	CreatedAt    time.Time
}

// HasContent reports whether the submission carries any work at all.
func (s *Submission) HasContent() bool {
	return strings.TrimSpace(s.Response) != "" ||
		strings.TrimSpace(s.Description) != "" ||
		s.FilePath != ""
}

// Validate rejects empty submissions before any mutation happens.
func (s *Submission) Validate() error {
	if s.AssignmentID == "" || s.StudentID == "" {
		return ErrMissingReference
	}
	if !s.HasContent() {
		return ErrEmptySubmission
	}
	return nil
}

// CapPoint clamps the awarded points to the assignment's maximum, matching
// the grading rule: a submission can never out-earn its assignment.
func (s *Submission) CapPoint(a *Assignment) {
	if s.Point > a.MaxPoint {
		s.Point = a.MaxPoint
	}
	if s.Point < 0 {
		s.Point = 0
	}
}

var (
	// ErrAssignmentNotFound is returned when an assignment lookup fails.
	ErrAssignmentNotFound = shared.NewDomainError("assignment", "Find", shared.ErrNotFound, "assignment not found")

	// ErrSubmissionNotFound is returned when a submission lookup fails.
	ErrSubmissionNotFound = shared.NewDomainError("assignment", "FindSubmission", shared.ErrNotFound, "submission not found")

	// ErrMissingTitle rejects untitled assignments.
	ErrMissingTitle = shared.NewDomainError("assignment", "Validate", shared.ErrEmptyValue, "title is required")

	// ErrMissingDeadline rejects assignments without a deadline.
	ErrMissingDeadline = shared.NewDomainError("assignment", "Validate", shared.ErrEmptyValue, "deadline is required")

	// ErrNegativeMaxPoint rejects negative point caps.
	ErrNegativeMaxPoint = shared.NewDomainError("assignment", "Validate", shared.ErrNegativeValue, "max point cannot be negative")

	// ErrMissingReference rejects submissions without assignment or student.
	ErrMissingReference = shared.NewDomainError("assignment", "ValidateSubmission", shared.ErrEmptyValue, "assignment and student are required")

	// ErrEmptySubmission rejects submissions with no response, description,
	// or file. Returned before any state changes.
	ErrEmptySubmission = shared.NewDomainError("assignment", "ValidateSubmission", shared.ErrValidation, "at least one of response, description, or file is required")

	// ErrDeadlinePassed rejects submissions after the assignment deadline.
	ErrDeadlinePassed = shared.NewDomainError("assignment", "Submit", shared.ErrExpired, "assignment deadline has passed")
)
