package repository

import (
	"context"
	"time"

	"order-ledger/internal/model"

	"github.com/google/uuid"
)

// ProductRepository defines the catalog lookups the ledger needs.
type ProductRepository interface {
	// GetByID retrieves a single product by its ID.
	GetByID(ctx context.Context, id string) (*model.Product, error)

	// GetByIDs retrieves multiple products by their IDs. Unknown IDs are omitted.
	GetByIDs(ctx context.Context, ids []string) ([]model.Product, error)

	// GetTiers returns explicit price tiers keyed by product ID.
	GetTiers(ctx context.Context, ids []string) (map[string][]model.PriceTier, error)

	// Upsert inserts or updates a product.
	Upsert(ctx context.Context, product *model.Product) error

	// ReplaceTiers replaces all explicit tiers of a product.
	ReplaceTiers(ctx context.Context, productID string, tiers []model.PriceTier) error
}

// OrderRepository defines the interface for order data access operations.
type OrderRepository interface {
	// CreateOrder inserts a new order. Returns model.ErrDuplicateOrderCode when the code is taken.
	CreateOrder(ctx context.Context, order *model.Order) error

	// CreateOrderItems inserts the items of an existing order.
	CreateOrderItems(ctx context.Context, items []model.OrderItem) error

	// CreateOrderWithItems inserts an order and its items in one transaction.
	CreateOrderWithItems(ctx context.Context, order *model.Order, items []model.OrderItem) error

	// DeleteOrder removes an order and its items.
	DeleteOrder(ctx context.Context, id uuid.UUID) error

	// CodeExists reports whether an order code is already used.
	CodeExists(ctx context.Context, code string) (bool, error)

	// CountRecentByCustomer counts a customer's orders created at or after since.
	CountRecentByCustomer(ctx context.Context, customerID string, since time.Time) (int, error)

	// GetByID retrieves an order by its ID along with its items.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Order, []model.OrderItem, error)

	// UpdateStatus sets the status only if the order is still in from. Reports whether a row changed.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.OrderStatus, at time.Time) (bool, error)

	// ApplyCommission writes the snapshot only if none exists and the order is eligible.
	// Reports whether a row changed.
	ApplyCommission(ctx context.Context, id uuid.UUID, snapshot model.CommissionSnapshot) (bool, error)
}

// AffiliateRepository defines affiliate and link lookups.
type AffiliateRepository interface {
	// GetByID retrieves an affiliate. Returns nil when not found.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Affiliate, error)

	// GetLinkByID retrieves an affiliate link. Returns nil when not found.
	GetLinkByID(ctx context.Context, id uuid.UUID) (*model.AffiliateLink, error)

	// Create inserts an affiliate.
	Create(ctx context.Context, affiliate *model.Affiliate) error

	// CreateLink inserts an affiliate link.
	CreateLink(ctx context.Context, link *model.AffiliateLink) error
}

// WithdrawalRepository defines the withdrawal ledger storage.
type WithdrawalRepository interface {
	// Create inserts a withdrawal request.
	Create(ctx context.Context, withdrawal *model.Withdrawal) error

	// GetByID retrieves a withdrawal. Returns nil when not found.
	GetByID(ctx context.Context, id uuid.UUID) (*model.Withdrawal, error)

	// List returns withdrawals matching the filter, newest first.
	List(ctx context.Context, filter model.WithdrawalFilter) ([]model.Withdrawal, error)

	// Balance returns confirmed commission, committed and pending withdrawal totals.
	Balance(ctx context.Context, affiliateID uuid.UUID) (*model.Balance, error)

	// UpdateStatus applies update if the withdrawal is still in expected and returns the new row.
	// With reserve set, the affiliate is locked and the amount must fit the available balance.
	// Returns model.ErrStatusConflict if the status moved and *model.BalanceError if funds are short.
	UpdateStatus(ctx context.Context, id uuid.UUID, expected model.WithdrawalStatus, update model.WithdrawalUpdate, reserve bool) (*model.Withdrawal, error)
}
