package service

import (
	"context"
	"fmt"
	"math"
	"time"

	"order-ledger/internal/metrics"
	"order-ledger/internal/model"
	"order-ledger/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Reasons reported when an attribution call changes nothing.
const (
	ReasonAlreadyCalculated = "already_calculated"
	ReasonNoAffiliate       = "no_affiliate"
	ReasonNotApplied        = "not_applied"
)

// commissionEngine implements CommissionEngine.
type commissionEngine struct {
	orderRepo     repository.OrderRepository
	affiliateRepo repository.AffiliateRepository
	fallbackRate  int64
	metrics       *metrics.Metrics
	now           func() time.Time
	logger        zerolog.Logger
}

// NewCommissionEngine creates a commission engine. fallbackRate applies when
// the affiliate record cannot be read.
func NewCommissionEngine(
	orderRepo repository.OrderRepository,
	affiliateRepo repository.AffiliateRepository,
	fallbackRate int64,
	m *metrics.Metrics,
	logger zerolog.Logger,
) CommissionEngine {
	return &commissionEngine{
		orderRepo:     orderRepo,
		affiliateRepo: affiliateRepo,
		fallbackRate:  fallbackRate,
		metrics:       m,
		now:           time.Now,
		logger:        logger.With().Str("service", "commission").Logger(),
	}
}

func (e *commissionEngine) Attribute(ctx context.Context, orderID uuid.UUID) (*model.CommissionResult, error) {
	order, items, err := e.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		e.metrics.RecordCommissionFailure()
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	result := &model.CommissionResult{OrderID: orderID}

	if order.CommissionCalculatedAt != nil {
		result.Reason = ReasonAlreadyCalculated
		result.Snapshot = existingSnapshot(order)
		return result, nil
	}

	if !order.Status.Eligible() {
		e.logger.Debug().
			Str("order_id", orderID.String()).
			Str("status", string(order.Status)).
			Msg("order not eligible for commission")
		return nil, model.ErrOrderNotEligible
	}

	if order.AffiliateID == nil {
		result.Reason = ReasonNoAffiliate
		return result, nil
	}

	rate := e.rateFor(ctx, *order.AffiliateID)
	cartons := model.Cartons(items)
	if cartons > 0 && rate > math.MaxInt64/cartons {
		e.metrics.RecordCommissionFailure()
		return nil, fmt.Errorf("commission for order %s overflows", orderID)
	}

	snapshot := model.CommissionSnapshot{
		Rate:         rate,
		Amount:       rate * cartons,
		CalculatedAt: e.now().UTC(),
	}

	applied, err := e.orderRepo.ApplyCommission(ctx, orderID, snapshot)
	if err != nil {
		e.metrics.RecordCommissionFailure()
		return nil, fmt.Errorf("failed to apply commission: %w", err)
	}

	if !applied {
		// Lost the race to a concurrent call, or the status moved away.
		result.Reason = ReasonNotApplied
		return result, nil
	}

	e.metrics.RecordCommissionApplied()
	e.logger.Info().
		Str("order_id", orderID.String()).
		Str("affiliate_id", order.AffiliateID.String()).
		Int64("rate", rate).
		Int64("cartons", cartons).
		Int64("amount", snapshot.Amount).
		Msg("commission attributed")

	result.Applied = true
	result.Snapshot = &snapshot
	return result, nil
}

// rateFor returns the affiliate's current rate, or the fallback when the record is unreadable.
func (e *commissionEngine) rateFor(ctx context.Context, affiliateID uuid.UUID) int64 {
	affiliate, err := e.affiliateRepo.GetByID(ctx, affiliateID)
	if err != nil || affiliate == nil {
		e.logger.Warn().
			Err(err).
			Str("affiliate_id", affiliateID.String()).
			Int64("fallback_rate", e.fallbackRate).
			Msg("affiliate unreadable, using fallback commission rate")
		return e.fallbackRate
	}
	return affiliate.CommissionRate
}

func existingSnapshot(order *model.Order) *model.CommissionSnapshot {
	s := &model.CommissionSnapshot{CalculatedAt: *order.CommissionCalculatedAt}
	if order.CommissionRate != nil {
		s.Rate = *order.CommissionRate
	}
	if order.CommissionAmount != nil {
		s.Amount = *order.CommissionAmount
	}
	return s
}
