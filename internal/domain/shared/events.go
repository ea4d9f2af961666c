// Package shared contains common domain types, errors, and events.
package shared

import (
	"context"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types. Every balance- or stock-affecting commit publishes
// one of these so read models (leaderboard cache) can follow the ledger.
const (
	// Points events
	EventPointsGranted  EventType = "points.granted"
	EventPointsRevoked  EventType = "points.revoked"
	EventGrantCorrected EventType = "points.grant_corrected"
	EventBalanceChanged EventType = "points.balance_changed"
	EventBalancesReset  EventType = "points.balances_reset"

	// Auction events
	EventSaleCompleted EventType = "auction.sale_completed"
	EventSaleCorrected EventType = "auction.sale_corrected"
	EventSaleReversed  EventType = "auction.sale_reversed"

	// Assignment events
	EventWorkSubmitted EventType = "assignment.work_submitted"
	EventWorkGraded    EventType = "assignment.work_graded"

	// News events
	EventNewsPublished EventType = "news.published"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// EventHandler processes a published event.
type EventHandler func(ctx context.Context, event Event) error

// EventPublisher publishes domain events to interested handlers.
type EventPublisher interface {
	Publish(event Event) error
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type        EventType `json:"type"`
	Timestamp   time.Time `json:"timestamp"`
	AggregateId string    `json:"aggregate_id"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now().UTC(),
		AggregateId: aggregateID,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Points events
// ─────────────────────────────────────────────────────────────────────────────

// BalanceChangedEvent is emitted whenever a student's point balance moves.
// Delta is the signed change as seen by the student.
type BalanceChangedEvent struct {
	BaseEvent
	StudentID  string `json:"student_id"`
	Delta      int    `json:"delta"`
	NewBalance int    `json:"new_balance"`
	Reason     string `json:"reason"` // "grant", "grant_corrected", "sale", ...
}

// Payload implements Event interface.
func (e BalanceChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"student_id":  e.StudentID,
		"delta":       e.Delta,
		"new_balance": e.NewBalance,
		"reason":      e.Reason,
	}
}

// NewBalanceChangedEvent creates a balance change event of the given type.
func NewBalanceChangedEvent(t EventType, studentID string, delta, newBalance int, reason string) BalanceChangedEvent {
	return BalanceChangedEvent{
		BaseEvent:  NewBaseEvent(t, studentID),
		StudentID:  studentID,
		Delta:      delta,
		NewBalance: newBalance,
		Reason:     reason,
	}
}

// BalancesResetEvent is emitted by the administrative reset-all operation.
type BalancesResetEvent struct {
	BaseEvent
	StudentsAffected int64 `json:"students_affected"`
}

// Payload implements Event interface.
func (e BalancesResetEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"students_affected": e.StudentsAffected,
	}
}

// NewBalancesResetEvent creates a reset event.
func NewBalancesResetEvent(affected int64) BalancesResetEvent {
	return BalancesResetEvent{
		BaseEvent:        NewBaseEvent(EventBalancesReset, "all"),
		StudentsAffected: affected,
	}
}

// ─────────────────────────────────────────────────────────────────────────────
// Auction events
// ─────────────────────────────────────────────────────────────────────────────

// SaleEvent is emitted when a sale record is created, corrected, or reversed.
type SaleEvent struct {
	BaseEvent
	SaleID    string `json:"sale_id"`
	ProductID string `json:"product_id"`
	StudentID string `json:"student_id"`
	Price     int    `json:"price"`
}

// Payload implements Event interface.
func (e SaleEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"sale_id":    e.SaleID,
		"product_id": e.ProductID,
		"student_id": e.StudentID,
		"price":      e.Price,
	}
}

// NewSaleEvent creates a sale lifecycle event.
func NewSaleEvent(t EventType, saleID, productID, studentID string, price int) SaleEvent {
	return SaleEvent{
		BaseEvent: NewBaseEvent(t, saleID),
		SaleID:    saleID,
		ProductID: productID,
		StudentID: studentID,
		Price:     price,
	}
}
