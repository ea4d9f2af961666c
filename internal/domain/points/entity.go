// Package points contains the grant side of the ledger: point types,
// grant records ("give point"), and the read-side statistics computed
// over them. A grant record is one credit to a student's balance; the
// grant manager in the application layer keeps record and balance in step.
package points

import (
	"time"

	"github.com/bilim-hub/bilim-points-hub/internal/domain/shared"
)

// PointType categorizes grants (e.g., "Activity", "Homework") and carries
// the maximum single award for that category.
type PointType struct {
	ID       string
	Name     string
	MaxPoint int
}

// GrantRecord is one award of points to a student by a mentor.
// Amount is the credit applied to the student's balance; Date is the
// business date of the award (distinct from CreatedAt).
type GrantRecord struct {
	ID          string
	StudentID   string
	MentorID    string
	PointTypeID string // optional, empty when uncategorized
	Amount      int
	Description string
	Date        time.Time
	CreatedAt   time.Time
}

// Validate checks record-level invariants.
func (g *GrantRecord) Validate() error {
	if g.StudentID == "" {
		return ErrMissingStudent
	}
	if g.Amount < 0 {
		return ErrNegativeAmount
	}
	return nil
}

// ListFilter narrows and orders grant listings.
type ListFilter struct {
	StudentID   string
	MentorID    string
	PointTypeID string
	GroupID     string

	// Date range, inclusive on both ends. Zero values mean unbounded.
	From time.Time
	To   time.Time

	// OrderBy accepts "date", "-date", "amount", "-amount", "created_at".
	OrderBy string

	Limit  int
	Offset int
}

var (
	// ErrGrantNotFound is returned when a grant record lookup fails.
	ErrGrantNotFound = shared.NewDomainError("points", "Find", shared.ErrNotFound, "grant record not found")

	// ErrPointTypeNotFound is returned when a point type lookup fails.
	ErrPointTypeNotFound = shared.NewDomainError("points", "FindType", shared.ErrNotFound, "point type not found")

	// ErrMissingStudent rejects grants without a student reference.
	ErrMissingStudent = shared.NewDomainError("points", "Validate", shared.ErrEmptyValue, "student is required")

	// ErrNegativeAmount rejects negative grant amounts. Corrections are
	// expressed by updating or deleting the record, never by a negative grant.
	ErrNegativeAmount = shared.NewDomainError("points", "Validate", shared.ErrNegativeValue, "grant amount cannot be negative")
)
