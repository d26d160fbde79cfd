package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"order-ledger/internal/metrics"
	"order-ledger/internal/model"
	"order-ledger/internal/ordercode"
	"order-ledger/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// compensationTimeout bounds the cleanup delete after a failed item insert.
const compensationTimeout = 5 * time.Second

// OrderSettings holds the intake limits of the order service.
type OrderSettings struct {
	MinQuantity int
	MaxTotal    int64
	// AtomicWrites stores an order and its items in one transaction. When false
	// the order row is inserted first and deleted again if the items fail.
	AtomicWrites bool
}

// orderService implements OrderService.
type orderService struct {
	orderRepo   repository.OrderRepository
	prices      PriceResolver
	limiter     RateLimiter
	attribution AttributionValidator
	codes       ordercode.Allocator
	commission  CommissionEngine
	settings    OrderSettings
	metrics     *metrics.Metrics
	now         func() time.Time
	logger      zerolog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	orderRepo repository.OrderRepository,
	prices PriceResolver,
	limiter RateLimiter,
	attribution AttributionValidator,
	codes ordercode.Allocator,
	commission CommissionEngine,
	settings OrderSettings,
	m *metrics.Metrics,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		prices:      prices,
		limiter:     limiter,
		attribution: attribution,
		codes:       codes,
		commission:  commission,
		settings:    settings,
		metrics:     m,
		now:         time.Now,
		logger:      logger.With().Str("service", "order").Logger(),
	}
}

// CreateOrder validates, prices and persists a new order.
func (s *orderService) CreateOrder(ctx context.Context, in model.CreateOrderInput) (*model.CreateOrderResult, error) {
	if in.CustomerID == "" {
		return nil, model.ErrUnauthorised
	}

	if err := s.validateOrderRequest(in.Request); err != nil {
		s.reject(err)
		return nil, err
	}
	req := in.Request

	if err := s.limiter.Allow(ctx, in.CustomerID); err != nil {
		s.reject(err)
		return nil, err
	}

	prices, err := s.prices.Resolve(ctx, req.Items)
	if err != nil {
		s.reject(err)
		return nil, err
	}

	total, err := orderTotal(prices, s.settings.MaxTotal)
	if err != nil {
		s.logger.Warn().Str("customer_id", in.CustomerID).Msg("order total out of range")
		s.reject(err)
		return nil, err
	}

	ref := s.attribution.Validate(ctx, in.Referral)

	code, err := s.codes.Allocate(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to allocate order code")
		return nil, err
	}

	now := s.now().UTC()
	order := &model.Order{
		ID:              uuid.New(),
		OrderCode:       code,
		CustomerID:      in.CustomerID,
		Status:          model.OrderStatusPendingPayment,
		TotalAmount:     total,
		ShippingAddress: req.ShippingAddress,
		Phone:           req.Phone,
		Notes:           req.Notes,
		AffiliateID:     ref.AffiliateID,
		AffiliateLinkID: ref.AffiliateLinkID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	orderItems := make([]model.OrderItem, len(prices))
	for i, p := range prices {
		orderItems[i] = model.OrderItem{
			ID:              uuid.New(),
			OrderID:         order.ID,
			ProductID:       p.ProductID,
			Quantity:        p.Quantity,
			PriceAtPurchase: p.UnitPrice,
		}
	}

	// One insert-time collision gets a fresh code, a second one is fatal.
	for retried := false; ; retried = true {
		err = s.persist(ctx, order, orderItems)
		if err == nil {
			break
		}
		if !errors.Is(err, model.ErrDuplicateOrderCode) {
			return nil, fmt.Errorf("failed to create order: %w", err)
		}
		if retried {
			s.logger.Error().Str("order_code", order.OrderCode).Msg("order code collided twice at insert")
			return nil, model.ErrCodeAllocation
		}

		s.metrics.RecordCodeRetry()
		s.logger.Warn().Str("order_code", order.OrderCode).Msg("order code collided at insert, regenerating")

		if order.OrderCode, err = s.codes.Regenerate(ctx); err != nil {
			return nil, err
		}
	}

	s.metrics.RecordOrderCreated()
	s.logger.Info().
		Str("order_id", order.ID.String()).
		Str("order_code", order.OrderCode).
		Int("item_count", len(orderItems)).
		Int64("total_amount", total).
		Bool("attributed", order.AffiliateID != nil).
		Msg("order created successfully")

	return &model.CreateOrderResult{OrderID: order.ID, OrderCode: order.OrderCode}, nil
}

// persist writes the order and its items, compensating when they are not written together.
func (s *orderService) persist(ctx context.Context, order *model.Order, items []model.OrderItem) error {
	if s.settings.AtomicWrites {
		return s.orderRepo.CreateOrderWithItems(ctx, order, items)
	}

	if err := s.orderRepo.CreateOrder(ctx, order); err != nil {
		return err
	}

	if err := s.orderRepo.CreateOrderItems(ctx, items); err != nil {
		s.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Int("item_count", len(items)).
			Msg("failed to create order items, removing order")
		s.compensate(ctx, order.ID)
		return fmt.Errorf("failed to create order items: %w", err)
	}

	return nil
}

// compensate deletes an order whose items could not be written. Failures are
// logged and counted only; the item failure is what the caller sees.
func (s *orderService) compensate(ctx context.Context, orderID uuid.UUID) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	err := s.orderRepo.DeleteOrder(cleanupCtx, orderID)
	s.metrics.RecordCompensation(err != nil)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", orderID.String()).Msg("compensating delete failed, order left without items")
		return
	}

	s.logger.Warn().Str("order_id", orderID.String()).Msg("order removed after item insert failure")
}

// GetByID retrieves an order with its items.
func (s *orderService) GetByID(ctx context.Context, id uuid.UUID) (*model.OrderResponse, error) {
	order, items, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to get order")
		return nil, fmt.Errorf("failed to get order: %w", err)
	}

	if order == nil {
		s.logger.Debug().Str("order_id", id.String()).Msg("order not found")
		return nil, nil
	}

	if items == nil {
		items = []model.OrderItem{}
	}

	return &model.OrderResponse{Order: *order, Items: items}, nil
}

// UpdateStatus moves an order to status. Entering an eligible status triggers
// commission attribution; its failure is reported in the response and never
// reverts the status change.
func (s *orderService) UpdateStatus(ctx context.Context, id uuid.UUID, status model.OrderStatus) (*model.UpdateOrderStatusResponse, error) {
	if !status.Valid() {
		return nil, model.ErrInvalidStatus
	}

	order, _, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	if !order.Status.CanTransitionTo(status) {
		s.logger.Warn().
			Str("order_id", id.String()).
			Str("from", string(order.Status)).
			Str("to", string(status)).
			Msg("order status transition rejected")
		return nil, model.ErrInvalidTransition
	}

	now := s.now().UTC()
	changed, err := s.orderRepo.UpdateStatus(ctx, id, order.Status, status, now)
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}
	if !changed {
		return nil, model.ErrStatusConflict
	}

	s.metrics.RecordOrderTransition(string(status))
	s.logger.Info().
		Str("order_id", id.String()).
		Str("from", string(order.Status)).
		Str("to", string(status)).
		Msg("order status updated")

	order.Status = status
	order.UpdatedAt = now
	resp := &model.UpdateOrderStatusResponse{Order: *order}

	if !status.Eligible() {
		return resp, nil
	}

	result, err := s.commission.Attribute(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Str("order_id", id.String()).Msg("commission attribution failed after status change")
		msg := err.Error()
		resp.CommissionError = &msg
		return resp, nil
	}

	if result.Snapshot != nil {
		resp.Order.CommissionRate = &result.Snapshot.Rate
		resp.Order.CommissionAmount = &result.Snapshot.Amount
		resp.Order.CommissionCalculatedAt = &result.Snapshot.CalculatedAt
	}

	return resp, nil
}

// validateOrderRequest checks shape, duplicates and the quantity floor.
func (s *orderService) validateOrderRequest(req *model.OrderRequest) error {
	if req == nil || len(req.Items) == 0 {
		return model.ErrEmptyItems
	}

	if err := checkItems(req.Items, s.settings.MinQuantity); err != nil {
		s.logger.Warn().Err(err).Int("item_count", len(req.Items)).Msg("invalid order items")
		return err
	}

	return nil
}

// reject counts an intake refusal under its error code.
func (s *orderService) reject(err error) {
	var domainErr *model.DomainError
	if errors.As(err, &domainErr) {
		s.metrics.RecordIntakeRejected(strings.ToLower(domainErr.Code))
		return
	}
	s.metrics.RecordIntakeRejected("internal")
}
