package handler

import (
	"context"

	"order-ledger/internal/auth"
	"order-ledger/internal/model"
	"order-ledger/internal/notify"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// MockOrderService is a mock implementation of OrderService.
type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) CreateOrder(ctx context.Context, in model.CreateOrderInput) (*model.CreateOrderResult, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.CreateOrderResult), args.Error(1)
}

func (m *MockOrderService) GetByID(ctx context.Context, id uuid.UUID) (*model.OrderResponse, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.OrderResponse), args.Error(1)
}

func (m *MockOrderService) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) (*model.UpdateOrderStatusResponse, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.UpdateOrderStatusResponse), args.Error(1)
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

// MockPriceResolver is a mock implementation of PriceResolver.
type MockPriceResolver struct {
	mock.Mock
}

func (m *MockPriceResolver) Resolve(ctx context.Context, items []model.OrderItemRequest) ([]model.ResolvedPrice, error) {
	args := m.Called(ctx, items)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.ResolvedPrice), args.Error(1)
}

func (m *MockPriceResolver) Quote(ctx context.Context, req *model.QuoteRequest) (*model.QuoteResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.QuoteResponse), args.Error(1)
}

// MockWithdrawalService is a mock implementation of WithdrawalService.
type MockWithdrawalService struct {
	mock.Mock
}

func (m *MockWithdrawalService) Balance(ctx context.Context, affiliateID uuid.UUID) (*model.Balance, error) {
	args := m.Called(ctx, affiliateID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Balance), args.Error(1)
}

func (m *MockWithdrawalService) Request(ctx context.Context, affiliateID uuid.UUID, req *model.WithdrawalRequest) (*model.Withdrawal, error) {
	args := m.Called(ctx, affiliateID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Withdrawal), args.Error(1)
}

func (m *MockWithdrawalService) UpdateStatus(ctx context.Context, req *model.UpdateWithdrawalRequest) (*model.Withdrawal, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Withdrawal), args.Error(1)
}

func (m *MockWithdrawalService) List(ctx context.Context, filter model.WithdrawalFilter) ([]model.Withdrawal, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Withdrawal), args.Error(1)
}

// MockPublisher is a mock implementation of notify.Publisher.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, event notify.Event) error {
	return m.Called(ctx, event).Error(0)
}

func (m *MockPublisher) Close() error {
	return m.Called().Error(0)
}

func customer(id string) *auth.Principal {
	return &auth.Principal{ID: id, Role: auth.RoleCustomer}
}

func affiliate(id uuid.UUID) *auth.Principal {
	return &auth.Principal{ID: "aff-" + id.String()[:8], Role: auth.RoleAffiliate, AffiliateID: &id}
}

func admin() *auth.Principal {
	return &auth.Principal{ID: "root", Role: auth.RoleAdmin}
}

func eventOfType(t notify.EventType) interface{} {
	return mock.MatchedBy(func(e notify.Event) bool { return e.Type == t })
}
