package student

import (
	"context"
)

// ListFilter narrows and orders student listings.
type ListFilter struct {
	GroupID  string
	CourseID string

	// OrderBy accepts "point", "-point", "created_at", "-created_at",
	// "full_name". Empty means "-point" (the program's default view).
	OrderBy string

	Limit  int
	Offset int
}

// Repository provides access to students and program structure.
// Balance mutation is deliberately absent here: only the transactional
// stores held by the purchase / grant managers may move a balance.
type Repository interface {
	// GetByID returns a student by ID.
	GetByID(ctx context.Context, id string) (*Student, error)

	// List returns students matching the filter.
	List(ctx context.Context, filter ListFilter) ([]*Student, error)

	// Count returns the number of students matching the filter.
	Count(ctx context.Context, filter ListFilter) (int64, error)

	// Create persists a new student.
	Create(ctx context.Context, s *Student) error

	// UpdateProfile updates non-balance fields.
	UpdateProfile(ctx context.Context, s *Student) error
}

// GroupRepository provides access to groups, mentors, and courses.
type GroupRepository interface {
	// GetGroup returns a group by ID.
	GetGroup(ctx context.Context, id string) (*Group, error)

	// ListGroups returns all groups, optionally only active ones.
	ListGroups(ctx context.Context, activeOnly bool) ([]*Group, error)

	// GetMentor returns a mentor by ID.
	GetMentor(ctx context.Context, id string) (*Mentor, error)

	// ListCourses returns all courses.
	ListCourses(ctx context.Context) ([]*Course, error)
}
