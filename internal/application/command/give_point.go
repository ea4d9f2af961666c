package command

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bilim-hub/bilim-points-hub/internal/domain/points"
	"github.com/bilim-hub/bilim-points-hub/internal/domain/shared"
	"github.com/bilim-hub/bilim-points-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// GRANT MANAGER
// The single-entity analogue of the purchase manager: a grant credits one
// student, so update and delete follow the same reverse-then-apply shape
// with only the balance to keep in step with the record.
// ══════════════════════════════════════════════════════════════════════════════

// CreateGrantCommand awards points to a student.
type CreateGrantCommand struct {
	StudentID   string
	MentorID    string
	PointTypeID string // optional
	Amount      int
	Description string

	// Date is the business date of the award; zero means today.
	Date time.Time
}

// Validate validates the command shape.
func (c CreateGrantCommand) Validate() error {
	if c.StudentID == "" {
		return points.ErrMissingStudent
	}
	if c.Amount < 0 {
		return points.ErrNegativeAmount
	}
	return nil
}

// UpdateGrantCommand corrects a grant's amount and optionally moves it to
// another student. Empty NewStudentID keeps the current one.
type UpdateGrantCommand struct {
	GrantID      string
	NewAmount    int
	NewStudentID string
}

// Validate validates the command shape.
func (c UpdateGrantCommand) Validate() error {
	if c.GrantID == "" {
		return shared.NewDomainError("points", "UpdateGrant", shared.ErrEmptyValue, "grant id is required")
	}
	if c.NewAmount < 0 {
		return points.ErrNegativeAmount
	}
	return nil
}

// GrantResult is returned by successful grant mutations.
type GrantResult struct {
	Grant *points.GrantRecord

	// StudentBalance is the student's balance after the transaction committed.
	StudentBalance int
}

// GrantHandler is the grant manager. All mutations run through
// points.Atomic: record and balance commit together or not at all.
type GrantHandler struct {
	store  points.Atomic
	events shared.EventPublisher
	log    *logger.Logger
	now    func() time.Time
}

// NewGrantHandler creates a GrantHandler.
func NewGrantHandler(store points.Atomic, events shared.EventPublisher, log *logger.Logger) *GrantHandler {
	if log == nil {
		log = logger.Default()
	}
	return &GrantHandler{
		store:  store,
		events: events,
		log:    log.With(logger.Component("grant_manager")),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateGrant credits the student and persists the record atomically.
func (h *GrantHandler) CreateGrant(ctx context.Context, cmd CreateGrantCommand) (*GrantResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	result := &GrantResult{}
	err := h.store.InTx(ctx, func(ctx context.Context, store points.TxStore) error {
		if err := store.AdjustBalance(ctx, cmd.StudentID, +cmd.Amount); err != nil {
			return err
		}

		now := h.now()
		date := cmd.Date
		if date.IsZero() {
			date = now
		}
		grant := &points.GrantRecord{
			ID:          uuid.New().String(),
			StudentID:   cmd.StudentID,
			MentorID:    cmd.MentorID,
			PointTypeID: cmd.PointTypeID,
			Amount:      cmd.Amount,
			Description: cmd.Description,
			Date:        date,
			CreatedAt:   now,
		}
		if err := store.InsertGrant(ctx, grant); err != nil {
			return fmt.Errorf("failed to insert grant record: %w", err)
		}

		balance, err := store.StudentBalance(ctx, cmd.StudentID)
		if err != nil {
			return err
		}

		result.Grant = grant
		result.StudentBalance = balance
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.log.Info("points granted",
		logger.GrantID(result.Grant.ID),
		logger.StudentID(result.Grant.StudentID),
		logger.Amount(result.Grant.Amount),
	)
	h.publishBalance(shared.EventPointsGranted, result.Grant.StudentID, +result.Grant.Amount, result.StudentBalance, "grant")

	return result, nil
}

// UpdateGrant reverses the grant's previous credit and applies the new one
// in a single transaction.
func (h *GrantHandler) UpdateGrant(ctx context.Context, cmd UpdateGrantCommand) (*GrantResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	result := &GrantResult{}
	var (
		prevStudentID string
		prevAmount    int
		prevBalance   int
	)
	err := h.store.InTx(ctx, func(ctx context.Context, store points.TxStore) error {
		grant, err := store.GrantByID(ctx, cmd.GrantID)
		if err != nil {
			return err
		}
		prevStudentID = grant.StudentID
		prevAmount = grant.Amount

		targetStudentID := grant.StudentID
		if cmd.NewStudentID != "" {
			targetStudentID = cmd.NewStudentID
		}

		// Reverse the previous effect, then apply the new one.
		if err := store.AdjustBalance(ctx, grant.StudentID, -grant.Amount); err != nil {
			return err
		}
		if err := store.AdjustBalance(ctx, targetStudentID, +cmd.NewAmount); err != nil {
			return err
		}

		grant.StudentID = targetStudentID
		grant.Amount = cmd.NewAmount
		if err := store.UpdateGrant(ctx, grant); err != nil {
			return fmt.Errorf("failed to update grant record: %w", err)
		}

		balance, err := store.StudentBalance(ctx, targetStudentID)
		if err != nil {
			return err
		}
		if prevStudentID != targetStudentID {
			prevBalance, err = store.StudentBalance(ctx, prevStudentID)
			if err != nil {
				return err
			}
		}

		result.Grant = grant
		result.StudentBalance = balance
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.log.Info("grant corrected",
		logger.GrantID(result.Grant.ID),
		logger.StudentID(result.Grant.StudentID),
		logger.Amount(result.Grant.Amount),
	)
	// A cross-student move touches two balances: the debited original
	// student needs their own event or read-side projections keep a stale score.
	if prevStudentID != result.Grant.StudentID {
		h.publishBalance(shared.EventGrantCorrected, prevStudentID, -prevAmount, prevBalance, "grant_corrected")
	}
	h.publishBalance(shared.EventGrantCorrected, result.Grant.StudentID, 0, result.StudentBalance, "grant_corrected")

	return result, nil
}

// DeleteGrant reverses the credit and removes the record atomically.
func (h *GrantHandler) DeleteGrant(ctx context.Context, grantID string) error {
	if grantID == "" {
		return shared.NewDomainError("points", "DeleteGrant", shared.ErrEmptyValue, "grant id is required")
	}

	var (
		deleted *points.GrantRecord
		balance int
	)
	err := h.store.InTx(ctx, func(ctx context.Context, store points.TxStore) error {
		grant, err := store.GrantByID(ctx, grantID)
		if err != nil {
			return err
		}
		if err := store.AdjustBalance(ctx, grant.StudentID, -grant.Amount); err != nil {
			return err
		}
		if err := store.DeleteGrant(ctx, grant.ID); err != nil {
			return fmt.Errorf("failed to delete grant record: %w", err)
		}
		b, err := store.StudentBalance(ctx, grant.StudentID)
		if err != nil {
			return err
		}
		deleted = grant
		balance = b
		return nil
	})
	if err != nil {
		return err
	}

	h.log.Info("grant revoked",
		logger.GrantID(deleted.ID),
		logger.StudentID(deleted.StudentID),
		logger.Amount(deleted.Amount),
	)
	h.publishBalance(shared.EventPointsRevoked, deleted.StudentID, -deleted.Amount, balance, "grant_revoked")

	return nil
}

// ResetAllBalances zeroes every student's balance and returns the number of
// students updated. Grant and sale records are deliberately left untouched:
// this is the administrative season-reset escape hatch, and the ledger-sum
// invariant stays suspended until records are purged separately.
func (h *GrantHandler) ResetAllBalances(ctx context.Context) (int64, error) {
	var affected int64
	err := h.store.InTx(ctx, func(ctx context.Context, store points.TxStore) error {
		n, err := store.ResetAllBalances(ctx)
		if err != nil {
			return err
		}
		affected = n
		return nil
	})
	if err != nil {
		return 0, err
	}

	h.log.Warn("all student balances reset", logger.Int64("students_affected", affected))
	if h.events != nil {
		_ = h.events.Publish(shared.NewBalancesResetEvent(affected))
	}

	return affected, nil
}

func (h *GrantHandler) publishBalance(t shared.EventType, studentID string, delta, newBalance int, reason string) {
	if h.events == nil {
		return
	}
	_ = h.events.Publish(shared.NewBalanceChangedEvent(t, studentID, delta, newBalance, reason))
}
