package service

import (
	"context"
	"time"

	"order-ledger/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockProductRepository is a mock implementation of ProductRepository.
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetByID(ctx context.Context, id string) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockProductRepository) GetByIDs(ctx context.Context, ids []string) ([]model.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockProductRepository) GetTiers(ctx context.Context, ids []string) (map[string][]model.PriceTier, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string][]model.PriceTier), args.Error(1)
}

func (m *MockProductRepository) Upsert(ctx context.Context, product *model.Product) error {
	return m.Called(ctx, product).Error(0)
}

func (m *MockProductRepository) ReplaceTiers(ctx context.Context, productID string, tiers []model.PriceTier) error {
	return m.Called(ctx, productID, tiers).Error(0)
}

// MockOrderRepository is a mock implementation of OrderRepository.
type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) CreateOrder(ctx context.Context, order *model.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *MockOrderRepository) CreateOrderItems(ctx context.Context, items []model.OrderItem) error {
	return m.Called(ctx, items).Error(0)
}

func (m *MockOrderRepository) CreateOrderWithItems(ctx context.Context, order *model.Order, items []model.OrderItem) error {
	return m.Called(ctx, order, items).Error(0)
}

func (m *MockOrderRepository) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockOrderRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) CountRecentByCustomer(ctx context.Context, customerID string, since time.Time) (int, error) {
	args := m.Called(ctx, customerID, since)
	return args.Int(0), args.Error(1)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, []model.OrderItem, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*model.Order), args.Get(1).([]model.OrderItem), args.Error(2)
}

func (m *MockOrderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.OrderStatus, at time.Time) (bool, error) {
	args := m.Called(ctx, id, from, to, at)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) ApplyCommission(ctx context.Context, id uuid.UUID, snapshot model.CommissionSnapshot) (bool, error) {
	args := m.Called(ctx, id, snapshot)
	return args.Bool(0), args.Error(1)
}

// MockAffiliateRepository is a mock implementation of AffiliateRepository.
type MockAffiliateRepository struct {
	mock.Mock
}

func (m *MockAffiliateRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Affiliate, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Affiliate), args.Error(1)
}

func (m *MockAffiliateRepository) GetLinkByID(ctx context.Context, id uuid.UUID) (*model.AffiliateLink, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AffiliateLink), args.Error(1)
}

func (m *MockAffiliateRepository) Create(ctx context.Context, affiliate *model.Affiliate) error {
	return m.Called(ctx, affiliate).Error(0)
}

func (m *MockAffiliateRepository) CreateLink(ctx context.Context, link *model.AffiliateLink) error {
	return m.Called(ctx, link).Error(0)
}

// MockWithdrawalRepository is a mock implementation of WithdrawalRepository.
type MockWithdrawalRepository struct {
	mock.Mock
}

func (m *MockWithdrawalRepository) Create(ctx context.Context, w *model.Withdrawal) error {
	return m.Called(ctx, w).Error(0)
}

func (m *MockWithdrawalRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Withdrawal, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Withdrawal), args.Error(1)
}

func (m *MockWithdrawalRepository) List(ctx context.Context, filter model.WithdrawalFilter) ([]model.Withdrawal, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Withdrawal), args.Error(1)
}

func (m *MockWithdrawalRepository) Balance(ctx context.Context, affiliateID uuid.UUID) (*model.Balance, error) {
	args := m.Called(ctx, affiliateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Balance), args.Error(1)
}

func (m *MockWithdrawalRepository) UpdateStatus(ctx context.Context, id uuid.UUID, expected model.WithdrawalStatus, update model.WithdrawalUpdate, reserve bool) (*model.Withdrawal, error) {
	args := m.Called(ctx, id, expected, update, reserve)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Withdrawal), args.Error(1)
}

// MockAllocator is a mock implementation of ordercode.Allocator.
type MockAllocator struct {
	mock.Mock
}

func (m *MockAllocator) Allocate(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockAllocator) Regenerate(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// MockCommissionEngine is a mock implementation of CommissionEngine.
type MockCommissionEngine struct {
	mock.Mock
}

func (m *MockCommissionEngine) Attribute(ctx context.Context, orderID uuid.UUID) (*model.CommissionResult, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CommissionResult), args.Error(1)
}

// allowAll is a rate limiter that never refuses.
type allowAll struct{}

func (allowAll) Allow(context.Context, string) error { return nil }

// passThrough is an attribution validator that keeps every hint.
type passThrough struct{}

func (passThrough) Validate(_ context.Context, ref model.Referral) model.Referral { return ref }

var mockAnyTime = mock.AnythingOfType("time.Time")
