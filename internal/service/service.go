package service

import (
	"context"

	"order-ledger/internal/model"

	"github.com/google/uuid"
)

// PriceResolver computes authoritative tier prices.
type PriceResolver interface {
	// Resolve prices every line. Fails with model.ErrProductInvalid if any product is unknown or inactive.
	Resolve(ctx context.Context, items []model.OrderItemRequest) ([]model.ResolvedPrice, error)

	// Quote previews the prices of a set of items with the same rules as Resolve.
	Quote(ctx context.Context, req *model.QuoteRequest) (*model.QuoteResponse, error)
}

// RateLimiter bounds order creation per customer.
type RateLimiter interface {
	// Allow returns model.ErrRateLimited once the customer has reached the ceiling in the window.
	Allow(ctx context.Context, customerID string) error
}

// AttributionValidator cleans referral hints.
type AttributionValidator interface {
	// Validate drops every hint that does not resolve to an active affiliate or link. It never fails.
	Validate(ctx context.Context, ref model.Referral) model.Referral
}

// OrderService defines operations for order management.
type OrderService interface {
	// CreateOrder validates, prices and persists a new order.
	CreateOrder(ctx context.Context, in model.CreateOrderInput) (*model.CreateOrderResult, error)

	// GetByID retrieves an order with its items. Returns nil when not found.
	GetByID(ctx context.Context, id uuid.UUID) (*model.OrderResponse, error)

	// UpdateStatus moves an order along its lifecycle and attributes commission on eligible statuses.
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) (*model.UpdateOrderStatusResponse, error)
}

// CommissionEngine attributes affiliate commission to orders.
type CommissionEngine interface {
	// Attribute records the commission snapshot of an order at most once.
	Attribute(ctx context.Context, orderID uuid.UUID) (*model.CommissionResult, error)
}

// WithdrawalService drives the affiliate withdrawal ledger.
type WithdrawalService interface {
	// Balance returns the affiliate's commission position.
	Balance(ctx context.Context, affiliateID uuid.UUID) (*model.Balance, error)

	// Request creates a pending withdrawal after the minimum and balance checks.
	Request(ctx context.Context, affiliateID uuid.UUID, req *model.WithdrawalRequest) (*model.Withdrawal, error)

	// UpdateStatus applies an admin transition.
	UpdateStatus(ctx context.Context, req *model.UpdateWithdrawalRequest) (*model.Withdrawal, error)

	// List returns withdrawals matching the filter.
	List(ctx context.Context, filter model.WithdrawalFilter) ([]model.Withdrawal, error)
}
