// Package auction contains the inventory side of the domain: auctions,
// the products sold in them, and sale records. A sale record is exactly
// one unit taken from a product's stock and one debit from the buyer's
// balance; the purchase manager in the application layer keeps all three
// in step inside one transaction.
package auction

import (
	"time"

	"github.com/bilim-hub/bilim-points-hub/internal/domain/shared"
)

// Auction is a dated and timed event grouping products. The "current"
// auction is the one with the latest (date, time) pair.
type Auction struct {
	ID          string
	Description string
	Date        time.Time // date component only
	Time        time.Time // time-of-day component
}

// StartsAt combines the date and time-of-day into one instant, used for
// "current auction" ordering.
func (a *Auction) StartsAt() time.Time {
	return time.Date(
		a.Date.Year(), a.Date.Month(), a.Date.Day(),
		a.Time.Hour(), a.Time.Minute(), a.Time.Second(), 0,
		a.Date.Location(),
	)
}

// Product is a lot in an auction. StartPoint is the minimum acceptable
// sale price; Amount is the remaining stock and obeys
//
//	amount == initial - count(current sales of this product)
//
// between transactions.
type Product struct {
	ID         string
	AuctionID  string
	Name       string
	StartPoint int
	Amount     int
	ImagePath  string // opaque storage path
}

// AcceptsPrice reports whether a sale at the given price satisfies the
// product's minimum. This is the only pricing rule of the core.
func (p *Product) AcceptsPrice(price int) bool {
	return price >= p.StartPoint
}

// Validate checks entity-level invariants.
func (p *Product) Validate() error {
	if p.Name == "" {
		return ErrMissingProductName
	}
	if p.StartPoint < 0 || p.Amount < 0 {
		return ErrNegativeCounter
	}
	return nil
}

// SaleRecord is a purchase of one unit of a product by a student.
// Price is the points debited; Date is set at creation and immutable.
type SaleRecord struct {
	ID        string
	ProductID string
	StudentID string
	Price     int
	Date      time.Time
	CreatedAt time.Time
}

var (
	// ErrAuctionNotFound is returned when an auction lookup fails.
	ErrAuctionNotFound = shared.NewDomainError("auction", "Find", shared.ErrNotFound, "auction not found")

	// ErrProductNotFound is returned when a product lookup fails.
	ErrProductNotFound = shared.NewDomainError("auction", "FindProduct", shared.ErrNotFound, "product not found")

	// ErrSaleNotFound is returned when a sale record lookup fails.
	ErrSaleNotFound = shared.NewDomainError("auction", "FindSale", shared.ErrNotFound, "sale record not found")

	// ErrPriceBelowStart rejects sales priced under the product's minimum.
	// No state changes when this is returned.
	ErrPriceBelowStart = shared.NewDomainError("auction", "CheckPrice", shared.ErrInvalidPrice, "price is below the product's starting point")

	// ErrInsufficientStock is returned when a stock debit would push the
	// remaining amount below zero. Enforced by the storage guard, so two
	// concurrent purchases of the last unit serialize into one success
	// and one rejection.
	ErrInsufficientStock = shared.NewDomainError("auction", "AdjustStock", shared.ErrInsufficientFunds, "product is out of stock")

	// ErrMissingProductName rejects unnamed products.
	ErrMissingProductName = shared.NewDomainError("auction", "Validate", shared.ErrEmptyValue, "product name is required")

	// ErrNegativeCounter rejects negative start points or stock.
	ErrNegativeCounter = shared.NewDomainError("auction", "Validate", shared.ErrNegativeValue, "counters cannot be negative")
)
