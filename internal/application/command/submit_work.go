package command

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bilim-hub/bilim-points-hub/internal/domain/assignment"
	"github.com/bilim-hub/bilim-points-hub/internal/domain/shared"
	"github.com/bilim-hub/bilim-points-hub/pkg/logger"
)

// SubmitWorkCommand hands in a student's answer to an assignment.
// At least one of Response, Description, or FilePath must be present.
type SubmitWorkCommand struct {
	AssignmentID string
	StudentID    string
	Response     string
	Description  string
	FilePath     string
}

// GradeWorkCommand grades a submission. Point is clamped to the
// assignment's MaxPoint.
type GradeWorkCommand struct {
	SubmissionID string
	Point        int
}

// SubmitWorkHandler validates and persists submissions. All validation
// happens before any write: a rejected submission leaves no trace.
type SubmitWorkHandler struct {
	repo assignment.Repository
	log  *logger.Logger
	now  func() time.Time
}

// NewSubmitWorkHandler creates a SubmitWorkHandler.
func NewSubmitWorkHandler(repo assignment.Repository, log *logger.Logger) *SubmitWorkHandler {
	if log == nil {
		log = logger.Default()
	}
	return &SubmitWorkHandler{
		repo: repo,
		log:  log.With(logger.Component("submissions")),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Submit validates the command and persists the submission. Fails with
// assignment.ErrEmptySubmission when no content was handed in and with
// assignment.ErrDeadlinePassed when the assignment is closed.
func (h *SubmitWorkHandler) Submit(ctx context.Context, cmd SubmitWorkCommand) (*assignment.Submission, error) {
	sub := &assignment.Submission{
		ID:           uuid.New().String(),
		AssignmentID: cmd.AssignmentID,
		StudentID:    cmd.StudentID,
		Response:     cmd.Response,
		Description:  cmd.Description,
		FilePath:     cmd.FilePath,
		Status:       assignment.SubmissionAssigned,
		CreatedAt:    h.now(),
	}
	if err := sub.Validate(); err != nil {
		return nil, err
	}

	a, err := h.repo.GetAssignment(ctx, cmd.AssignmentID)
	if err != nil {
		return nil, err
	}
	if a.IsPastDeadline(h.now()) {
		return nil, assignment.ErrDeadlinePassed
	}

	if err := h.repo.CreateSubmission(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to create submission: %w", err)
	}

	h.log.Info("work submitted",
		logger.String("submission_id", sub.ID),
		logger.String("assignment_id", sub.AssignmentID),
		logger.StudentID(sub.StudentID),
	)

	return sub, nil
}

// Grade records a mentor's grade for a submission, clamping the awarded
// points to the assignment's maximum.
func (h *SubmitWorkHandler) Grade(ctx context.Context, cmd GradeWorkCommand) (*assignment.Submission, error) {
	if cmd.SubmissionID == "" {
		return nil, shared.NewDomainError("assignment", "Grade", shared.ErrEmptyValue, "submission id is required")
	}

	sub, err := h.repo.GetSubmission(ctx, cmd.SubmissionID)
	if err != nil {
		return nil, err
	}
	a, err := h.repo.GetAssignment(ctx, sub.AssignmentID)
	if err != nil {
		return nil, err
	}

	sub.Point = cmd.Point
	sub.CapPoint(a)
	sub.Status = assignment.SubmissionGraded

	if err := h.repo.UpdateSubmission(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to update submission: %w", err)
	}

	h.log.Info("work graded",
		logger.String("submission_id", sub.ID),
		logger.StudentID(sub.StudentID),
		logger.Int("point", sub.Point),
	)

	return sub, nil
}
