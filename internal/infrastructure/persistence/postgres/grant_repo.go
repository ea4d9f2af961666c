package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/bilim-hub/bilim-points-hub/internal/domain/points"
)

// ══════════════════════════════════════════════════════════════════════════════
// GRANT REPOSITORY
// ══════════════════════════════════════════════════════════════════════════════

// GrantRepository implements points.Repository: the read side of the grant
// ledger. Mutations that touch balances go through GrantAtomic only.
type GrantRepository struct {
	conn *Connection
}

// NewGrantRepository creates a PostgreSQL grant repository.
func NewGrantRepository(conn *Connection) *GrantRepository {
	return &GrantRepository{conn: conn}
}

const grantColumns = `gp.id, gp.student_id, gp.mentor_id, gp.point_type_id,
	gp.amount, COALESCE(gp.description, ''), gp.date, gp.created_at`

// GetByID returns a grant record by ID.
func (r *GrantRepository) GetByID(ctx context.Context, id string) (*points.GrantRecord, error) {
	row := r.conn.QueryRow(ctx, `
		SELECT `+grantColumns+`
		FROM give_points gp
		WHERE gp.id = $1
	`, id)

	rec, err := scanGrant(row)
	if err != nil {
		if IsNoRows(err) {
			return nil, points.ErrGrantNotFound
		}
		return nil, err
	}
	return rec, nil
}

// List returns grant records matching the filter.
func (r *GrantRepository) List(ctx context.Context, filter points.ListFilter) ([]*points.GrantRecord, error) {
	query := `
		SELECT ` + grantColumns + `
		FROM give_points gp`
	where, args := buildGrantFilter(filter)
	query += where
	query += grantOrderClause(filter.OrderBy)

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

	var grants []*points.GrantRecord
	for rows.Next() {
		rec, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		grants = append(grants, rec)
	}
	return grants, rows.Err()
}

// Count returns the number of records matching the filter.
func (r *GrantRepository) Count(ctx context.Context, filter points.ListFilter) (int64, error) {
	query := `SELECT COUNT(*) FROM give_points gp`
	where, args := buildGrantFilter(filter)
	query += where

	var count int64
	if err := r.conn.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// Aggregate computes per-category statistics for the given students over an
// optional date range. The rows are loaded raw and folded by the domain's
// ComputeStats so the rounding and floor rules live in exactly one place.
func (r *GrantRepository) Aggregate(ctx context.Context, studentIDs []string, dr points.DateRange) ([]points.StudentStats, error) {
	if len(studentIDs) == 0 {
		return []points.StudentStats{}, nil
	}

	typeNames, err := r.pointTypeNames(ctx)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT ` + grantColumns + `
		FROM give_points gp
		WHERE gp.student_id = ANY($1::uuid[])`
	args := []interface{}{studentIDs}

	if !dr.From.IsZero() {
		args = append(args, dr.From)
		query += fmt.Sprintf(" AND gp.date >= $%d", len(args))
	}
	if !dr.To.IsZero() {
		args = append(args, dr.To)
		query += fmt.Sprintf(" AND gp.date <= $%d", len(args))
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byStudent := make(map[string][]*points.GrantRecord, len(studentIDs))
	for rows.Next() {
		rec, err := scanGrant(rows)
		if err != nil {
			return nil, err
		}
		byStudent[rec.StudentID] = append(byStudent[rec.StudentID], rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	stats := make([]points.StudentStats, 0, len(studentIDs))
	for _, id := range studentIDs {
		stats = append(stats, points.ComputeStats(id, byStudent[id], typeNames))
	}
	return stats, nil
}

// GetPointType returns a point type by ID.
func (r *GrantRepository) GetPointType(ctx context.Context, id string) (*points.PointType, error) {
	var pt points.PointType
	err := r.conn.QueryRow(ctx, `
		SELECT id, name, max_point
		FROM point_types
		WHERE id = $1
	`, id).Scan(&pt.ID, &pt.Name, &pt.MaxPoint)
	if err != nil {
		if IsNoRows(err) {
			return nil, points.ErrPointTypeNotFound
		}
		return nil, err
	}
	return &pt, nil
}

// ListPointTypes returns all point types ordered by name.
func (r *GrantRepository) ListPointTypes(ctx context.Context) ([]*points.PointType, error) {
	rows, err := r.conn.Query(ctx, `
		SELECT id, name, max_point
		FROM point_types
		ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var types []*points.PointType
	for rows.Next() {
		var pt points.PointType
		if err := rows.Scan(&pt.ID, &pt.Name, &pt.MaxPoint); err != nil {
			return nil, err
		}
		types = append(types, &pt)
	}
	return types, rows.Err()
}

func (r *GrantRepository) pointTypeNames(ctx context.Context) (map[string]string, error) {
	types, err := r.ListPointTypes(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(types))
	for _, pt := range types {
		names[pt.ID] = pt.Name
	}
	return names, nil
}

// buildGrantFilter translates a ListFilter into a WHERE clause. The group
// filter goes through the students table; everything else is a direct
// column match.
func buildGrantFilter(f points.ListFilter) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)

	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.StudentID != "" {
		add("gp.student_id = $%d", f.StudentID)
	}
	if f.MentorID != "" {
		add("gp.mentor_id = $%d", f.MentorID)
	}
	if f.PointTypeID != "" {
		add("gp.point_type_id = $%d", f.PointTypeID)
	}
	if f.GroupID != "" {
		add("gp.student_id IN (SELECT id FROM students WHERE group_id = $%d)", f.GroupID)
	}
	if !f.From.IsZero() {
		add("gp.date >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("gp.date <= $%d", f.To)
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func grantOrderClause(orderBy string) string {
	switch orderBy {
	case "date":
		return " ORDER BY gp.date ASC, gp.created_at ASC"
	case "-date":
		return " ORDER BY gp.date DESC, gp.created_at DESC"
	case "amount":
		return " ORDER BY gp.amount ASC"
	case "-amount":
		return " ORDER BY gp.amount DESC"
	case "created_at":
		return " ORDER BY gp.created_at ASC"
	default:
		return " ORDER BY gp.created_at DESC"
	}
}

func scanGrant(row interface{ Scan(dest ...any) error }) (*points.GrantRecord, error) {
	var (
		rec         points.GrantRecord
		mentorID    *string
		pointTypeID *string
	)
	err := row.Scan(
		&rec.ID, &rec.StudentID, &mentorID, &pointTypeID,
		&rec.Amount, &rec.Description, &rec.Date, &rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if mentorID != nil {
		rec.MentorID = *mentorID
	}
	if pointTypeID != nil {
		rec.PointTypeID = *pointTypeID
	}
	return &rec, nil
}
