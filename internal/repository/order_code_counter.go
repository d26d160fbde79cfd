package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// OrderCodeCounter hands out per-day sequences with a single upsert statement.
type OrderCodeCounter struct {
	pool *pgxpool.Pool
}

// NewOrderCodeCounter creates a PostgreSQL-backed per-day order code counter.
func NewOrderCodeCounter(pool *pgxpool.Pool) *OrderCodeCounter {
	return &OrderCodeCounter{pool: pool}
}

// Next increments the counter for day and returns the new value.
func (c *OrderCodeCounter) Next(ctx context.Context, day string) (int64, error) {
	query := `
		INSERT INTO order_code_counters (day, value)
		VALUES ($1, 1)
		ON CONFLICT (day) DO UPDATE SET value = order_code_counters.value + 1
		RETURNING value
	`

	var value int64
	if err := c.pool.QueryRow(ctx, query, day).Scan(&value); err != nil {
		return 0, fmt.Errorf("failed to increment order code counter: %w", err)
	}
	return value, nil
}
