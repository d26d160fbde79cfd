package service

import (
	"context"
	"fmt"
	"time"

	"order-ledger/internal/model"
	"order-ledger/internal/repository"

	"github.com/rs/zerolog"
)

// rateLimiter counts a customer's persisted orders in a trailing window.
// The count and the later insert are separate statements, so two concurrent
// requests can both pass.
type rateLimiter struct {
	orderRepo repository.OrderRepository
	max       int
	window    time.Duration
	now       func() time.Time
	logger    zerolog.Logger
}

// NewRateLimiter creates a limiter allowing fewer than max orders per window.
func NewRateLimiter(orderRepo repository.OrderRepository, max int, window time.Duration, logger zerolog.Logger) RateLimiter {
	return &rateLimiter{
		orderRepo: orderRepo,
		max:       max,
		window:    window,
		now:       time.Now,
		logger:    logger.With().Str("component", "order-rate-limiter").Logger(),
	}
}

func (l *rateLimiter) Allow(ctx context.Context, customerID string) error {
	since := l.now().UTC().Add(-l.window)

	count, err := l.orderRepo.CountRecentByCustomer(ctx, customerID, since)
	if err != nil {
		return fmt.Errorf("failed to check order rate: %w", err)
	}

	if count >= l.max {
		l.logger.Warn().
			Str("customer_id", customerID).
			Int("count", count).
			Dur("window", l.window).
			Msg("order rate limit reached")
		return model.ErrRateLimited
	}

	return nil
}
