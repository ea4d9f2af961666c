package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/bilim-hub/bilim-points-hub/internal/domain/assignment"
	"github.com/bilim-hub/bilim-points-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// ASSIGNMENT REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// AssignmentRepository implements assignment.Repository.
type AssignmentRepository struct {
	conn *Connection
}

// NewAssignmentRepository creates a PostgreSQL assignment repository.
func NewAssignmentRepository(conn *Connection) *AssignmentRepository {
	return &AssignmentRepository{conn: conn}
}

const assignmentColumns = `id, title, COALESCE(description, ''), group_id, mentor_id,
	COALESCE(file_path, ''), max_point, status, deadline, created_at, updated_at`

// GetAssignment returns an assignment by ID.
func (r *AssignmentRepository) GetAssignment(ctx context.Context, id string) (*assignment.Assignment, error) {
	row := r.conn.QueryRow(ctx, `
		SELECT `+assignmentColumns+`
		FROM assignments
		WHERE id = $1
	`, id)

	a, err := scanAssignment(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, assignment.ErrAssignmentNotFound
		}
		return nil, err
	}
	return a, nil
}

// ListAssignmentsForGroup returns a group's assignments, newest first.
func (r *AssignmentRepository) ListAssignmentsForGroup(ctx context.Context, groupID string) ([]*assignment.Assignment, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT `+assignmentColumns+`
		FROM assignments
		WHERE group_id = $1
		ORDER BY created_at DESC
	`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var assignments []*assignment.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

// CreateAssignment persists a new assignment.
func (r *AssignmentRepository) CreateAssignment(ctx context.Context, a *assignment.Assignment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	now := time.Now()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	if a.Status == "" {
		a.Status = assignment.StatusNew
	}

	_, err := r.conn.Exec(ctx, `
		INSERT INTO assignments (id, title, description, group_id, mentor_id, file_path, max_point, status, deadline, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, a.ID, a.Title, a.Description, a.GroupID, nullableID(a.MentorID),
		a.FilePath, a.MaxPoint, string(a.Status), a.Deadline, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return student.ErrGroupNotFound
		}
		return err
	}
	return nil
}

// UpdateAssignment persists changed fields of an assignment.
func (r *AssignmentRepository) UpdateAssignment(ctx context.Context, a *assignment.Assignment) error {
	a.UpdatedAt = time.Now()

	tag, err := r.conn.Exec(ctx, `
		UPDATE assignments
		SET title = $1, description = $2, file_path = $3, max_point = $4,
		    status = $5, deadline = $6, updated_at = $7
		WHERE id = $8
	`, a.Title, a.Description, a.FilePath, a.MaxPoint,
		string(a.Status), a.Deadline, a.UpdatedAt, a.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return assignment.ErrAssignmentNotFound
	}
	return nil
}

const submissionColumns = `id, assignment_id, student_id, COALESCE(description, ''),
	COALESCE(response, ''), COALESCE(file_path, ''), point, status, created_at`

// GetSubmission returns a submission by ID.
func (r *AssignmentRepository) GetSubmission(ctx context.Context, id string) (*assignment.Submission, error) {
	row := r.conn.QueryRow(ctx, `
		SELECT `+submissionColumns+`
		FROM submissions
		WHERE id = $1
	`, id)

	s, err := scanSubmission(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, assignment.ErrSubmissionNotFound
		}
		return nil, err
	}
	return s, nil
}

// ListSubmissionsForAssignment returns submissions, newest first.
func (r *AssignmentRepository) ListSubmissionsForAssignment(ctx context.Context, assignmentID string) ([]*assignment.Submission, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT `+submissionColumns+`
		FROM submissions
		WHERE assignment_id = $1
		ORDER BY created_at DESC
	`, assignmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var submissions []*assignment.Submission
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		submissions = append(submissions, s)
	}
	return submissions, rows.Err()
}

// CreateSubmission persists a new submission.
func (r *AssignmentRepository) CreateSubmission(ctx context.Context, s *assignment.Submission) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}
	if s.Status == "" {
		s.Status = assignment.SubmissionGiven
	}

	_, err := r.conn.Exec(ctx, `
		INSERT INTO submissions (id, assignment_id, student_id, description, response, file_path, point, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, s.ID, s.AssignmentID, s.StudentID, s.Description, s.Response,
		s.FilePath, s.Point, string(s.Status), s.CreatedAt)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return assignment.ErrAssignmentNotFound
		}
		return err
	}
	return nil
}

// UpdateSubmission persists changed fields of a submission.
func (r *AssignmentRepository) UpdateSubmission(ctx context.Context, s *assignment.Submission) error {
	tag, err := r.conn.Exec(ctx, `
		UPDATE submissions
		SET description = $1, response = $2, file_path = $3, point = $4, status = $5
		WHERE id = $6
	`, s.Description, s.Response, s.FilePath, s.Point, string(s.Status), s.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return assignment.ErrSubmissionNotFound
	}
	return nil
}

func scanAssignment(row interface{ Scan(dest ...any) error }) (*assignment.Assignment, error) {
	var (
		a        assignment.Assignment
		mentorID *string
		status   string
	)
	err := row.Scan(
		&a.ID, &a.Title, &a.Description, &a.GroupID, &mentorID,
		&a.FilePath, &a.MaxPoint, &status, &a.Deadline, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if mentorID != nil {
		a.MentorID = *mentorID
	}
	a.Status = assignment.Status(status)
	return &a, nil
}

func scanSubmission(row interface{ Scan(dest ...any) error }) (*assignment.Submission, error) {
	var (
		s      assignment.Submission
		status string
	)
	err := row.Scan(
		&s.ID, &s.AssignmentID, &s.StudentID, &s.Description,
		&s.Response, &s.FilePath, &s.Point, &status, &s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Status = assignment.SubmissionStatus(status)
	return &s, nil
}
