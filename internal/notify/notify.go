// Package notify publishes ledger events for the external notification service.
package notify

import (
	"context"
	"time"

	"order-ledger/internal/model"

	"github.com/google/uuid"
)

// EventType names an event on the wire.
type EventType string

const (
	EventOrderCreated        EventType = "order.created"
	EventWithdrawalRequested EventType = "withdrawal.requested"
	EventWithdrawalUpdated   EventType = "withdrawal.updated"
)

// Event is the envelope every message is published in.
type Event struct {
	ID         uuid.UUID `json:"id"`
	Type       EventType `json:"type"`
	Key        string    `json:"-"`
	OccurredAt time.Time `json:"occurredAt"`
	Data       any       `json:"data"`
}

// Publisher delivers events. Callers treat failures as non-fatal.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

type orderCreated struct {
	OrderID    uuid.UUID `json:"orderId"`
	OrderCode  string    `json:"orderCode"`
	CustomerID string    `json:"customerId"`
}

// OrderCreated builds the event for a new order.
func OrderCreated(result *model.CreateOrderResult, customerID string, at time.Time) Event {
	return Event{
		ID:         uuid.New(),
		Type:       EventOrderCreated,
		Key:        result.OrderID.String(),
		OccurredAt: at.UTC(),
		Data:       orderCreated{OrderID: result.OrderID, OrderCode: result.OrderCode, CustomerID: customerID},
	}
}

type withdrawalChanged struct {
	WithdrawalID uuid.UUID              `json:"withdrawalId"`
	AffiliateID  uuid.UUID              `json:"affiliateId"`
	Amount       int64                  `json:"amount"`
	Status       model.WithdrawalStatus `json:"status"`
}

// WithdrawalRequested builds the event for a new withdrawal request.
func WithdrawalRequested(w *model.Withdrawal, at time.Time) Event {
	return withdrawalEvent(EventWithdrawalRequested, w, at)
}

// WithdrawalUpdated builds the event for a withdrawal status change.
func WithdrawalUpdated(w *model.Withdrawal, at time.Time) Event {
	return withdrawalEvent(EventWithdrawalUpdated, w, at)
}

// Events are keyed by affiliate so one affiliate's withdrawals stay ordered.
func withdrawalEvent(t EventType, w *model.Withdrawal, at time.Time) Event {
	return Event{
		ID:         uuid.New(),
		Type:       t,
		Key:        w.AffiliateID.String(),
		OccurredAt: at.UTC(),
		Data: withdrawalChanged{
			WithdrawalID: w.ID,
			AffiliateID:  w.AffiliateID,
			Amount:       w.Amount,
			Status:       w.Status,
		},
	}
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

func (Nop) Close() error { return nil }
