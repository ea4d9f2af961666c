// Package student contains the program-structure side of the domain:
// students with their point balances, and the courses, mentors, and groups
// they are organized into. The point balance is mutated only by the purchase
// and grant managers in the application layer; everything else here is
// read-mostly reference data.
package student

import (
	"strings"
	"time"

	"github.com/bilim-hub/bilim-points-hub/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// Points represents a student's point balance.
type Points int

// IsValid checks that the balance is non-negative.
func (p Points) IsValid() bool {
	return p >= 0
}

// Add returns the balance shifted by delta.
func (p Points) Add(delta int) Points {
	return p + Points(delta)
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTITIES
// ══════════════════════════════════════════════════════════════════════════════

// Course is a program track (e.g., "Backend", "Frontend").
type Course struct {
	ID   string
	Name string
}

// Mentor teaches a course and awards points up to a per-mentor limit.
type Mentor struct {
	ID         string
	UserID     string // external identity reference
	FullName   string
	CourseID   string
	PointLimit int
}

// Group is a cohort of students led by one mentor.
type Group struct {
	ID        string
	Name      string
	MentorID  string
	Active    bool
	CreatedAt time.Time
}

// Student is a program participant. Point is the current balance and obeys
//
//	point == initial + sum(grant amounts) - sum(current sale prices)
//
// between transactions. The administrative reset-all operation is the one
// sanctioned exception (see the grant manager).
type Student struct {
	ID        string
	UserID    string // external identity reference
	FullName  string
	GroupID   string
	BirthDate *time.Time
	ImagePath string // opaque storage path
	Bio       string
	Point     Points
	CreatedAt time.Time
}

// Validate checks entity-level invariants.
func (s *Student) Validate() error {
	if strings.TrimSpace(s.FullName) == "" {
		return ErrMissingName
	}
	if !s.Point.IsValid() {
		return ErrNegativeBalance
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrStudentNotFound is returned when a student lookup fails.
	ErrStudentNotFound = shared.NewDomainError("student", "Find", shared.ErrNotFound, "student not found")

	// ErrGroupNotFound is returned when a group lookup fails.
	ErrGroupNotFound = shared.NewDomainError("student", "FindGroup", shared.ErrNotFound, "group not found")

	// ErrMentorNotFound is returned when a mentor lookup fails.
	ErrMentorNotFound = shared.NewDomainError("student", "FindMentor", shared.ErrNotFound, "mentor not found")

	// ErrCourseNotFound is returned when a course lookup fails.
	ErrCourseNotFound = shared.NewDomainError("student", "FindCourse", shared.ErrNotFound, "course not found")

	// ErrMissingName rejects students without a display name.
	ErrMissingName = shared.NewDomainError("student", "Validate", shared.ErrEmptyValue, "full name is required")

	// ErrNegativeBalance rejects balances below zero.
	ErrNegativeBalance = shared.NewDomainError("student", "Validate", shared.ErrNegativeValue, "point balance cannot be negative")

	// ErrInsufficientPoints is returned when a debit would push the balance
	// below zero. The floor is enforced at the storage guard so concurrent
	// debits cannot overdraw.
	ErrInsufficientPoints = shared.NewDomainError("student", "AdjustBalance", shared.ErrInsufficientFunds, "not enough points")
)
