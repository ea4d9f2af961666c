package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bilim-hub/bilim-points-hub/internal/domain/student"
)

// ══════════════════════════════════════════════════════════════════════════════
// STUDENT REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// StudentRepository implements student.Repository. It never moves the point
// balance; only the transactional stores do that.
type StudentRepository struct {
	conn *Connection
}

// NewStudentRepository creates a PostgreSQL student repository.
func NewStudentRepository(conn *Connection) *StudentRepository {
	return &StudentRepository{conn: conn}
}

const studentColumns = `s.id, COALESCE(s.user_id, ''), s.full_name, s.group_id,
	s.birth_date, COALESCE(s.image_path, ''), COALESCE(s.bio, ''), s.point, s.created_at`

// GetByID returns a student by ID.
func (r *StudentRepository) GetByID(ctx context.Context, id string) (*student.Student, error) {
	row := r.conn.QueryRow(ctx, `
		SELECT `+studentColumns+`
		FROM students s
		WHERE s.id = $1
	`, id)

	st, err := scanStudent(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, student.ErrStudentNotFound
		}
		return nil, err
	}
	return st, nil
}

// List returns students matching the filter.
func (r *StudentRepository) List(ctx context.Context, filter student.ListFilter) ([]*student.Student, error) {
	query := `
		SELECT ` + studentColumns + `
		FROM students s`
	where, args := buildStudentFilter(filter)
	query += where
	query += studentOrderClause(filter.OrderBy)

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var students []*student.Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		students = append(students, st)
	}
	return students, rows.Err()
}

// Count returns the number of students matching the filter.
func (r *StudentRepository) Count(ctx context.Context, filter student.ListFilter) (int64, error) {
	query := `SELECT COUNT(*) FROM students s`
	where, args := buildStudentFilter(filter)
	query += where

	var count int64
	if err := r.conn.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// Create persists a new student. The balance starts at whatever the entity
// carries, which is zero for fresh enrollments.
func (r *StudentRepository) Create(ctx context.Context, s *student.Student) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now()
	}

	_, err := r.conn.Exec(ctx, `
		INSERT INTO students (id, user_id, full_name, group_id, birth_date, image_path, bio, point, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, s.ID, s.UserID, s.FullName, nullableID(s.GroupID), s.BirthDate,
		s.ImagePath, s.Bio, int(s.Point), s.CreatedAt)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return student.ErrGroupNotFound
		}
		return err
	}
	return nil
}

// UpdateProfile updates non-balance fields. The point column is deliberately
// left out of the SET list.
func (r *StudentRepository) UpdateProfile(ctx context.Context, s *student.Student) error {
	tag, err := r.conn.Exec(ctx, `
		UPDATE students
		SET full_name = $1, group_id = $2, birth_date = $3, image_path = $4, bio = $5
		WHERE id = $6
	`, s.FullName, nullableID(s.GroupID), s.BirthDate, s.ImagePath, s.Bio, s.ID)
	if err != nil {
		if IsForeignKeyViolation(err) {
			return student.ErrGroupNotFound
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return student.ErrStudentNotFound
	}
	return nil
}

func buildStudentFilter(f student.ListFilter) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.GroupID != "" {
		add("s.group_id = $%d", f.GroupID)
	}
	if f.CourseID != "" {
		add(`s.group_id IN (
			SELECT g.id FROM groups g
			JOIN mentors m ON m.id = g.mentor_id
			WHERE m.course_id = $%d
		)`, f.CourseID)
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func studentOrderClause(orderBy string) string {
	switch orderBy {
	case "point":
		return " ORDER BY s.point ASC, s.full_name ASC"
	case "created_at":
		return " ORDER BY s.created_at ASC"
	case "-created_at":
		return " ORDER BY s.created_at DESC"
	case "full_name":
		return " ORDER BY s.full_name ASC"
	default: // "-point", the program's default leaderboard view
		return " ORDER BY s.point DESC, s.full_name ASC"
	}
}

func scanStudent(row interface{ Scan(dest ...any) error }) (*student.Student, error) {
	var (
		st      student.Student
		groupID *string
		point   int
	)
	err := row.Scan(
		&st.ID, &st.UserID, &st.FullName, &groupID,
		&st.BirthDate, &st.ImagePath, &st.Bio, &point, &st.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if groupID != nil {
		st.GroupID = *groupID
	}
	st.Point = student.Points(point)
	return &st, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// GROUP REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// GroupRepository implements student.GroupRepository over the program
// structure tables.
type GroupRepository struct {
	conn *Connection
}

// NewGroupRepository creates a PostgreSQL group repository.
func NewGroupRepository(conn *Connection) *GroupRepository {
	return &GroupRepository{conn: conn}
}

// GetGroup returns a group by ID.
func (r *GroupRepository) GetGroup(ctx context.Context, id string) (*student.Group, error) {
	var (
		g        student.Group
		mentorID *string
	)
	err := r.conn.QueryRow(ctx, `
		SELECT id, name, mentor_id, active, created_at
		FROM groups
		WHERE id = $1
	`, id).Scan(&g.ID, &g.Name, &mentorID, &g.Active, &g.CreatedAt)
	if err != nil {
		if IsNoRows(err) {
			return nil, student.ErrGroupNotFound
		}
		return nil, err
	}
	if mentorID != nil {
		g.MentorID = *mentorID
	}
	return &g, nil
}

// ListGroups returns all groups, optionally only active ones.
func (r *GroupRepository) ListGroups(ctx context.Context, activeOnly bool) ([]*student.Group, error) {
	query := `
		SELECT id, name, mentor_id, active, created_at
		FROM groups`
	if activeOnly {
		query += ` WHERE active`
	}
	query += ` ORDER BY name ASC`

	rows, err := r.conn.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []*student.Group
	for rows.Next() {
		var (
			g        student.Group
			mentorID *string
		)
		if err := rows.Scan(&g.ID, &g.Name, &mentorID, &g.Active, &g.CreatedAt); err != nil {
			return nil, err
		}
		if mentorID != nil {
			g.MentorID = *mentorID
		}
		groups = append(groups, &g)
	}
	return groups, rows.Err()
}

// GetMentor returns a mentor by ID.
func (r *GroupRepository) GetMentor(ctx context.Context, id string) (*student.Mentor, error) {
	var (
		m      student.Mentor
		userID *string
	)
	err := r.conn.QueryRow(ctx, `
		SELECT id, user_id, full_name, course_id, point_limit
		FROM mentors
		WHERE id = $1
	`, id).Scan(&m.ID, &userID, &m.FullName, &m.CourseID, &m.PointLimit)
	if err != nil {
		if IsNoRows(err) {
			return nil, student.ErrMentorNotFound
		}
		return nil, err
	}
	if userID != nil {
		m.UserID = *userID
	}
	return &m, nil
}

// ListCourses returns all courses.
func (r *GroupRepository) ListCourses(ctx context.Context) ([]*student.Course, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT id, name
		FROM courses
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var courses []*student.Course
	for rows.Next() {
		var c student.Course
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		courses = append(courses, &c)
	}
	return courses, rows.Err()
}
