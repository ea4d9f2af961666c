package auction

import (
	"context"
)

// Repository is the inventory store's read side: auctions, products, and
// sale listings. Stock mutation lives on TxStore only.
type Repository interface {
	// GetAuction returns an auction by ID.
	GetAuction(ctx context.Context, id string) (*Auction, error)

	// ListAuctions returns all auctions ordered by (date, time) ascending.
	ListAuctions(ctx context.Context) ([]*Auction, error)

	// CurrentAuction returns the auction with the latest (date, time),
	// or nil when no auctions exist.
	CurrentAuction(ctx context.Context) (*Auction, error)

	// GetProduct returns a product by ID.
	GetProduct(ctx context.Context, id string) (*Product, error)

	// ListProductsForAuction returns the products grouped under an auction.
	ListProductsForAuction(ctx context.Context, auctionID string) ([]*Product, error)

	// GetSale returns a sale record by ID.
	GetSale(ctx context.Context, id string) (*SaleRecord, error)

	// ListSalesForProduct returns sales of one product, newest first.
	ListSalesForProduct(ctx context.Context, productID string) ([]*SaleRecord, error)

	// ListSalesForStudent returns a student's purchases, newest first.
	ListSalesForStudent(ctx context.Context, studentID string) ([]*SaleRecord, error)
}

// TxStore is the transactional view of storage a purchase mutation runs
// against. A sale touches a product's stock, a student's balance, and the
// sale record itself; all three move through this interface inside the
// transaction opened by Atomic. Counter adjustments are floor-guarded
// single statements, never a read followed by a write.
type TxStore interface {
	// ProductByID loads a product inside the transaction.
	ProductByID(ctx context.Context, id string) (*Product, error)

	// SaleByID loads a sale record inside the transaction.
	SaleByID(ctx context.Context, id string) (*SaleRecord, error)

	// InsertSale persists a new sale record.
	InsertSale(ctx context.Context, s *SaleRecord) error

	// UpdateSale persists changed fields of an existing record. Date is
	// never rewritten.
	UpdateSale(ctx context.Context, s *SaleRecord) error

	// DeleteSale removes a sale record.
	DeleteSale(ctx context.Context, id string) error

	// AdjustStock applies amount += delta to a product, failing with
	// ErrInsufficientStock when the floor would be crossed and
	// ErrProductNotFound when the row does not exist.
	AdjustStock(ctx context.Context, productID string, delta int) error

	// AdjustBalance applies point += delta to a student, failing with
	// student.ErrInsufficientPoints / student.ErrStudentNotFound.
	AdjustBalance(ctx context.Context, studentID string, delta int) error

	// StudentBalance returns the buyer's balance inside the transaction.
	StudentBalance(ctx context.Context, studentID string) (int, error)
}

// Atomic runs fn inside a single storage transaction. If fn returns an
// error every mutation made through the TxStore is rolled back; no partial
// effect is ever observable outside the transaction.
type Atomic interface {
	InTx(ctx context.Context, fn func(ctx context.Context, store TxStore) error) error
}
