package points

import (
	"context"
)

// Repository is the ledger store for grant records. It carries no business
// validation; ordering, filtering, and aggregation are read models over the
// raw ledger. Mutations that must stay in step with a student's balance go
// through TxStore instead.
type Repository interface {
	// GetByID returns a grant record by ID.
	GetByID(ctx context.Context, id string) (*GrantRecord, error)

	// List returns grant records matching the filter.
	List(ctx context.Context, filter ListFilter) ([]*GrantRecord, error)

	// Count returns the number of records matching the filter.
	Count(ctx context.Context, filter ListFilter) (int64, error)

	// Aggregate computes per-category statistics for the given students
	// over an optional date range.
	Aggregate(ctx context.Context, studentIDs []string, r DateRange) ([]StudentStats, error)

	// GetPointType returns a point type by ID.
	GetPointType(ctx context.Context, id string) (*PointType, error)

	// ListPointTypes returns all point types.
	ListPointTypes(ctx context.Context) ([]*PointType, error)
}

// TxStore is the transactional view of storage a grant mutation runs
// against. Every method executes inside the transaction opened by Atomic;
// balance adjustments are floor-guarded single statements, never a read
// followed by a write.
type TxStore interface {
	// GrantByID loads a grant record inside the transaction.
	GrantByID(ctx context.Context, id string) (*GrantRecord, error)

	// InsertGrant persists a new record.
	InsertGrant(ctx context.Context, g *GrantRecord) error

	// UpdateGrant persists changed fields of an existing record.
	UpdateGrant(ctx context.Context, g *GrantRecord) error

	// DeleteGrant removes a record.
	DeleteGrant(ctx context.Context, id string) error

	// AdjustBalance applies point += delta to a student, failing with
	// student.ErrInsufficientPoints when the floor would be crossed and
	// student.ErrStudentNotFound when the row does not exist.
	AdjustBalance(ctx context.Context, studentID string, delta int) error

	// ResetAllBalances zeroes every student's balance unconditionally and
	// returns the number of students updated. It intentionally does not
	// touch grant or sale records.
	ResetAllBalances(ctx context.Context) (int64, error)

	// StudentBalance returns the current balance inside the transaction,
	// after any adjustments already applied in it.
	StudentBalance(ctx context.Context, studentID string) (int, error)
}

// Atomic runs fn inside a single storage transaction. If fn returns an
// error every mutation made through the TxStore is rolled back; no partial
// effect is ever observable outside the transaction.
type Atomic interface {
	InTx(ctx context.Context, fn func(ctx context.Context, store TxStore) error) error
}
