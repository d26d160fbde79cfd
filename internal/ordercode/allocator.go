// Package ordercode allocates human-readable order codes of the form YYMMDD####.
package ordercode

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"order-ledger/internal/metrics"
	"order-ledger/internal/model"

	"github.com/rs/zerolog"
)

const (
	// DayLayout formats the date prefix of a code.
	DayLayout = "060102"
	// MaxSequence is the largest per-day sequence a four-digit suffix can hold.
	MaxSequence = 9999
)

// Counter hands out the next per-day sequence number in a single atomic step.
type Counter interface {
	Next(ctx context.Context, day string) (int64, error)
}

// CodeChecker reports whether an order code is already taken.
type CodeChecker interface {
	CodeExists(ctx context.Context, code string) (bool, error)
}

// Allocator produces order codes.
type Allocator interface {
	// Allocate prefers the atomic counter and falls back to random suffixes.
	Allocate(ctx context.Context) (string, error)
	// Regenerate draws a fresh random code, used after an insert-time collision.
	Regenerate(ctx context.Context) (string, error)
}

type allocator struct {
	counter     Counter
	checker     CodeChecker
	maxAttempts int
	location    *time.Location
	now         func() time.Time
	intn        func(n int) int
	metrics     *metrics.Metrics
	logger      zerolog.Logger
}

// Option configures an allocator.
type Option func(*allocator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(a *allocator) { a.now = now }
}

// WithRandom overrides the random suffix source. intn must return a value in [0, n).
func WithRandom(intn func(n int) int) Option {
	return func(a *allocator) { a.intn = intn }
}

// WithMetrics attaches fallback counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(a *allocator) { a.metrics = m }
}

// NewAllocator creates an allocator. counter may be nil, in which case every code
// comes from the random path.
func NewAllocator(counter Counter, checker CodeChecker, maxAttempts int, location *time.Location, logger zerolog.Logger, opts ...Option) Allocator {
	if location == nil {
		location = time.UTC
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	a := &allocator{
		counter:     counter,
		checker:     checker,
		maxAttempts: maxAttempts,
		location:    location,
		now:         time.Now,
		intn:        rand.Intn,
		logger:      logger.With().Str("component", "order-code-allocator").Logger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// day returns the current date prefix in the allocator's zone.
func (a *allocator) day() string {
	return a.now().In(a.location).Format(DayLayout)
}

func (a *allocator) Allocate(ctx context.Context) (string, error) {
	day := a.day()

	if a.counter == nil {
		a.metrics.RecordCodeFallback("no_counter")
		return a.random(ctx, day)
	}

	seq, err := a.counter.Next(ctx, day)
	switch {
	case err != nil:
		a.logger.Warn().Err(err).Str("day", day).Msg("order code counter failed, using random fallback")
		a.metrics.RecordCodeFallback("counter_error")
	case seq < 1 || seq > MaxSequence:
		a.logger.Warn().Int64("sequence", seq).Str("day", day).Msg("order code counter out of range, using random fallback")
		a.metrics.RecordCodeFallback("counter_exhausted")
	default:
		return Format(day, int(seq)), nil
	}

	return a.random(ctx, day)
}

func (a *allocator) Regenerate(ctx context.Context) (string, error) {
	a.metrics.RecordCodeFallback("regenerate")
	return a.random(ctx, a.day())
}

// random draws suffixes until one is not taken. A failed existence check
// consumes an attempt; the unique index still guards the insert.
func (a *allocator) random(ctx context.Context, day string) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		code := Format(day, a.intn(MaxSequence+1))

		exists, err := a.checker.CodeExists(ctx, code)
		if err != nil {
			lastErr = err
			a.logger.Warn().Err(err).Str("code", code).Int("attempt", attempt).Msg("failed to check order code")
			continue
		}
		if !exists {
			return code, nil
		}

		a.logger.Debug().Str("code", code).Int("attempt", attempt).Msg("order code collision")
	}

	a.logger.Error().Err(lastErr).Int("attempts", a.maxAttempts).Str("day", day).Msg("order code allocation exhausted")

	if lastErr != nil {
		return "", errors.Join(model.ErrCodeAllocation, lastErr)
	}
	return "", model.ErrCodeAllocation
}

// Format renders a day prefix and sequence as an order code.
func Format(day string, seq int) string {
	return fmt.Sprintf("%s%04d", day, seq)
}
