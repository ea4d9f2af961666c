// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bilim-hub/bilim-points-hub/internal/domain/auction"
	"github.com/bilim-hub/bilim-points-hub/internal/domain/shared"
	"github.com/bilim-hub/bilim-points-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// PURCHASE TRANSACTION MANAGER
// A sale simultaneously debits a student and depletes a product, so every
// edit or removal is expressed as "undo old effect, then (re)apply new
// effect" rather than a direct field patch. The reverse/apply pair below is
// that algorithm; create, update, and delete are compositions of it, each
// running inside one storage transaction.
// ══════════════════════════════════════════════════════════════════════════════

// CreateSaleCommand records a purchase of one unit of a product.
type CreateSaleCommand struct {
	ProductID string
	StudentID string
	Price     int
}

// Validate validates the command shape.
func (c CreateSaleCommand) Validate() error {
	if c.ProductID == "" || c.StudentID == "" {
		return shared.NewDomainError("auction", "CreateSale", shared.ErrEmptyValue, "product and student are required")
	}
	if c.Price < 0 {
		return shared.NewDomainError("auction", "CreateSale", shared.ErrNegativeValue, "price cannot be negative")
	}
	return nil
}

// UpdateSaleCommand corrects an existing sale. NewProductID and
// NewStudentID are optional; empty means "keep the current one".
type UpdateSaleCommand struct {
	SaleID       string
	NewPrice     int
	NewProductID string
	NewStudentID string
}

// Validate validates the command shape.
func (c UpdateSaleCommand) Validate() error {
	if c.SaleID == "" {
		return shared.NewDomainError("auction", "UpdateSale", shared.ErrEmptyValue, "sale id is required")
	}
	if c.NewPrice < 0 {
		return shared.NewDomainError("auction", "UpdateSale", shared.ErrNegativeValue, "price cannot be negative")
	}
	return nil
}

// SaleResult is returned by successful sale mutations.
type SaleResult struct {
	Sale *auction.SaleRecord

	// BuyerBalance is the buyer's balance after the transaction committed.
	BuyerBalance int
}

// PurchaseHandler is the purchase transaction manager. All mutations run
// through auction.Atomic: either every step commits or none do.
type PurchaseHandler struct {
	store  auction.Atomic
	events shared.EventPublisher
	log    *logger.Logger
	now    func() time.Time
}

// NewPurchaseHandler creates a PurchaseHandler.
func NewPurchaseHandler(store auction.Atomic, events shared.EventPublisher, log *logger.Logger) *PurchaseHandler {
	if log == nil {
		log = logger.Default()
	}
	return &PurchaseHandler{
		store:  store,
		events: events,
		log:    log.With(logger.Component("purchase_manager")),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateSale sells one unit of a product to a student. Fails with
// auction.ErrPriceBelowStart when the price is under the product's minimum;
// stock, balance, and the new record move in one transaction.
func (h *PurchaseHandler) CreateSale(ctx context.Context, cmd CreateSaleCommand) (*SaleResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	result := &SaleResult{}
	err := h.store.InTx(ctx, func(ctx context.Context, store auction.TxStore) error {
		product, err := store.ProductByID(ctx, cmd.ProductID)
		if err != nil {
			return err
		}
		if !product.AcceptsPrice(cmd.Price) {
			return auction.ErrPriceBelowStart
		}

		now := h.now()
		sale := &auction.SaleRecord{
			ID:        uuid.New().String(),
			ProductID: cmd.ProductID,
			StudentID: cmd.StudentID,
			Price:     cmd.Price,
			Date:      now,
			CreatedAt: now,
		}

		if err := h.apply(ctx, store, sale); err != nil {
			return err
		}
		if err := store.InsertSale(ctx, sale); err != nil {
			return fmt.Errorf("failed to insert sale record: %w", err)
		}

		balance, err := store.StudentBalance(ctx, sale.StudentID)
		if err != nil {
			return err
		}

		result.Sale = sale
		result.BuyerBalance = balance
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.log.Info("sale created",
		logger.SaleID(result.Sale.ID),
		logger.ProductID(result.Sale.ProductID),
		logger.StudentID(result.Sale.StudentID),
		logger.Price(result.Sale.Price),
	)
	h.publishSale(shared.EventSaleCompleted, result.Sale)
	h.publishBalance(result.Sale.StudentID, -result.Sale.Price, result.BuyerBalance, "sale")

	return result, nil
}

// UpdateSale corrects a sale's price and optionally moves it to another
// product or buyer. The previous effect is reversed and the new effect
// applied inside the same transaction; a failure partway rolls everything
// back, so a retry never observes a half-corrected sale.
func (h *PurchaseHandler) UpdateSale(ctx context.Context, cmd UpdateSaleCommand) (*SaleResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	result := &SaleResult{}
	var (
		prevStudentID string
		prevPrice     int
		prevBalance   int
	)
	err := h.store.InTx(ctx, func(ctx context.Context, store auction.TxStore) error {
		sale, err := store.SaleByID(ctx, cmd.SaleID)
		if err != nil {
			return err
		}
		prevStudentID = sale.StudentID
		prevPrice = sale.Price

		targetProductID := sale.ProductID
		if cmd.NewProductID != "" {
			targetProductID = cmd.NewProductID
		}
		targetStudentID := sale.StudentID
		if cmd.NewStudentID != "" {
			targetStudentID = cmd.NewStudentID
		}

		target, err := store.ProductByID(ctx, targetProductID)
		if err != nil {
			return err
		}
		if !target.AcceptsPrice(cmd.NewPrice) {
			return auction.ErrPriceBelowStart
		}

		if err := h.reverse(ctx, store, sale); err != nil {
			return err
		}

		sale.ProductID = targetProductID
		sale.StudentID = targetStudentID
		sale.Price = cmd.NewPrice

		if err := h.apply(ctx, store, sale); err != nil {
			return err
		}
		if err := store.UpdateSale(ctx, sale); err != nil {
			return fmt.Errorf("failed to update sale record: %w", err)
		}

		balance, err := store.StudentBalance(ctx, sale.StudentID)
		if err != nil {
			return err
		}
		if prevStudentID != sale.StudentID {
			prevBalance, err = store.StudentBalance(ctx, prevStudentID)
			if err != nil {
				return err
			}
		}

		result.Sale = sale
		result.BuyerBalance = balance
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.log.Info("sale corrected",
		logger.SaleID(result.Sale.ID),
		logger.ProductID(result.Sale.ProductID),
		logger.StudentID(result.Sale.StudentID),
		logger.Price(result.Sale.Price),
	)
	h.publishSale(shared.EventSaleCorrected, result.Sale)
	// A cross-buyer move touches two balances: the refunded original buyer
	// needs their own event or read-side projections keep a stale score.
	if prevStudentID != result.Sale.StudentID {
		h.publishBalance(prevStudentID, +prevPrice, prevBalance, "sale_corrected")
	}
	h.publishBalance(result.Sale.StudentID, 0, result.BuyerBalance, "sale_corrected")

	return result, nil
}

// DeleteSale reverses a sale's effect and removes the record, atomically.
// The product regains one unit and the buyer regains exactly the price paid.
func (h *PurchaseHandler) DeleteSale(ctx context.Context, saleID string) error {
	if saleID == "" {
		return shared.NewDomainError("auction", "DeleteSale", shared.ErrEmptyValue, "sale id is required")
	}

	var (
		deleted      *auction.SaleRecord
		buyerBalance int
	)
	err := h.store.InTx(ctx, func(ctx context.Context, store auction.TxStore) error {
		sale, err := store.SaleByID(ctx, saleID)
		if err != nil {
			return err
		}
		if err := h.reverse(ctx, store, sale); err != nil {
			return err
		}
		if err := store.DeleteSale(ctx, sale.ID); err != nil {
			return fmt.Errorf("failed to delete sale record: %w", err)
		}
		balance, err := store.StudentBalance(ctx, sale.StudentID)
		if err != nil {
			return err
		}
		deleted = sale
		buyerBalance = balance
		return nil
	})
	if err != nil {
		return err
	}

	h.log.Info("sale reversed",
		logger.SaleID(deleted.ID),
		logger.ProductID(deleted.ProductID),
		logger.StudentID(deleted.StudentID),
		logger.Price(deleted.Price),
	)
	h.publishSale(shared.EventSaleReversed, deleted)
	h.publishBalance(deleted.StudentID, +deleted.Price, buyerBalance, "sale_reversed")

	return nil
}

// apply charges the sale's current state: one unit off the product's stock
// and the price off the buyer's balance. Runs inside the caller's transaction.
func (h *PurchaseHandler) apply(ctx context.Context, store auction.TxStore, sale *auction.SaleRecord) error {
	if err := store.AdjustStock(ctx, sale.ProductID, -1); err != nil {
		return err
	}
	if err := store.AdjustBalance(ctx, sale.StudentID, -sale.Price); err != nil {
		return err
	}
	return nil
}

// reverse undoes the sale's current state: one unit back onto the product's
// stock and the price back onto the buyer's balance.
func (h *PurchaseHandler) reverse(ctx context.Context, store auction.TxStore, sale *auction.SaleRecord) error {
	if err := store.AdjustStock(ctx, sale.ProductID, +1); err != nil {
		return err
	}
	if err := store.AdjustBalance(ctx, sale.StudentID, +sale.Price); err != nil {
		return err
	}
	return nil
}

func (h *PurchaseHandler) publishSale(t shared.EventType, sale *auction.SaleRecord) {
	if h.events == nil {
		return
	}
	_ = h.events.Publish(shared.NewSaleEvent(t, sale.ID, sale.ProductID, sale.StudentID, sale.Price))
}

func (h *PurchaseHandler) publishBalance(studentID string, delta, newBalance int, reason string) {
	if h.events == nil {
		return
	}
	_ = h.events.Publish(shared.NewBalanceChangedEvent(shared.EventBalanceChanged, studentID, delta, newBalance, reason))
}
