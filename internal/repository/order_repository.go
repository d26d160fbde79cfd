package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"order-ledger/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const orderColumns = `
	id, order_code, customer_id, status, total_amount, shipping_address, phone, notes,
	affiliate_id, affiliate_link_id, commission_rate, commission_amount, commission_calculated_at,
	created_at, updated_at`

// orderRepository implements the OrderRepository interface using PostgreSQL.
type orderRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewOrderRepository creates a new PostgreSQL-backed order repository.
func NewOrderRepository(pool *pgxpool.Pool, logger zerolog.Logger) OrderRepository {
	return &orderRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "order").Logger(),
	}
}

// CreateOrder inserts a new order outside any transaction.
func (r *orderRepository) CreateOrder(ctx context.Context, order *model.Order) error {
	return r.insertOrder(ctx, r.pool, order)
}

// CreateOrderItems inserts the items of an existing order outside any transaction.
func (r *orderRepository) CreateOrderItems(ctx context.Context, items []model.OrderItem) error {
	return r.insertItems(ctx, r.pool, items)
}

// CreateOrderWithItems inserts an order and its items atomically.
func (r *orderRepository) CreateOrderWithItems(ctx context.Context, order *model.Order, items []model.OrderItem) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to begin transaction")
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			r.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to rollback transaction")
		}
	}()

	if err := r.insertOrder(ctx, tx, order); err != nil {
		return err
	}

	if err := r.insertItems(ctx, tx, items); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		r.logger.Error().Err(err).Str("order_id", order.ID.String()).Msg("failed to commit order")
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (r *orderRepository) insertOrder(ctx context.Context, q dbtx, order *model.Order) error {
	query := `
		INSERT INTO orders (
			id, order_code, customer_id, status, total_amount, shipping_address, phone, notes,
			affiliate_id, affiliate_link_id, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := q.Exec(ctx, query,
		order.ID,
		order.OrderCode,
		order.CustomerID,
		order.Status,
		order.TotalAmount,
		order.ShippingAddress,
		order.Phone,
		order.Notes,
		order.AffiliateID,
		order.AffiliateLinkID,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err, orderCodeConstraint) {
			r.logger.Warn().
				Str("order_id", order.ID.String()).
				Str("order_code", order.OrderCode).
				Msg("order code already taken")
			return model.ErrDuplicateOrderCode
		}
		r.logger.Error().
			Err(err).
			Str("order_id", order.ID.String()).
			Msg("failed to create order")
		return fmt.Errorf("failed to create order: %w", err)
	}

	r.logger.Debug().
		Str("order_id", order.ID.String()).
		Str("order_code", order.OrderCode).
		Msg("order created successfully")

	return nil
}

func (r *orderRepository) insertItems(ctx context.Context, q dbtx, items []model.OrderItem) error {
	if len(items) == 0 {
		return nil
	}

	query := `
		INSERT INTO order_items (id, order_id, product_id, quantity, price_at_purchase)
		VALUES ($1, $2, $3, $4, $5)
	`

	batch := &pgx.Batch{}
	for _, item := range items {
		batch.Queue(query, item.ID, item.OrderID, item.ProductID, item.Quantity, item.PriceAtPurchase)
	}

	results := q.SendBatch(ctx, batch)
	defer results.Close()

	for i := 0; i < len(items); i++ {
		if _, err := results.Exec(); err != nil {
			r.logger.Error().
				Err(err).
				Str("order_id", items[i].OrderID.String()).
				Str("product_id", items[i].ProductID).
				Msg("failed to create order item")
			return fmt.Errorf("failed to create order item: %w", err)
		}
	}

	r.logger.Debug().
		Int("count", len(items)).
		Msg("order items created successfully")

	return nil
}

// DeleteOrder removes an order; items cascade.
func (r *orderRepository) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM orders WHERE id = $1`, id); err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to delete order")
		return fmt.Errorf("failed to delete order: %w", err)
	}
	return nil
}

// CodeExists reports whether an order code is already used.
func (r *orderRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM orders WHERE order_code = $1)`, code).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check order code: %w", err)
	}
	return exists, nil
}

// CountRecentByCustomer counts a customer's orders created at or after since.
func (r *orderRepository) CountRecentByCustomer(ctx context.Context, customerID string, since time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM orders WHERE customer_id = $1 AND created_at >= $2`,
		customerID, since,
	).Scan(&count)
	if err != nil {
		r.logger.Error().Err(err).Str("customer_id", customerID).Msg("failed to count recent orders")
		return 0, fmt.Errorf("failed to count recent orders: %w", err)
	}
	return count, nil
}

// GetByID retrieves an order by its ID along with its items.
func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Order, []model.OrderItem, error) {
	order, err := scanOrder(r.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("order_id", id.String()).Msg("order not found")
			return nil, nil, nil
		}
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to query order")
		return nil, nil, fmt.Errorf("failed to query order: %w", err)
	}

	itemsQuery := `
		SELECT id, order_id, product_id, quantity, price_at_purchase
		FROM order_items
		WHERE order_id = $1
		ORDER BY product_id
	`

	rows, err := r.pool.Query(ctx, itemsQuery, id)
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("order_id", id.String()).
			Msg("failed to query order items")
		return nil, nil, fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	var items []model.OrderItem
	for rows.Next() {
		var item model.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.PriceAtPurchase); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan order item row")
			return nil, nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating order item rows")
		return nil, nil, fmt.Errorf("error iterating order items: %w", err)
	}

	return order, items, nil
}

// UpdateStatus sets the status only if the order is still in from.
func (r *orderRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.OrderStatus, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE orders SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`,
		id, from, to, at,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to update order status")
		return false, fmt.Errorf("failed to update order status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// ApplyCommission writes the snapshot only if none exists and the order is in an eligible status.
// total_amount is never touched.
func (r *orderRepository) ApplyCommission(ctx context.Context, id uuid.UUID, snapshot model.CommissionSnapshot) (bool, error) {
	query := `
		UPDATE orders
		SET commission_rate = $2,
			commission_amount = $3,
			commission_calculated_at = $4,
			updated_at = $4
		WHERE id = $1
			AND commission_calculated_at IS NULL
			AND affiliate_id IS NOT NULL
			AND status = ANY($5)
	`

	tag, err := r.pool.Exec(ctx, query,
		id,
		snapshot.Rate,
		snapshot.Amount,
		snapshot.CalculatedAt,
		orderStatusStrings(model.EligibleOrderStatuses),
	)
	if err != nil {
		r.logger.Error().Err(err).Str("order_id", id.String()).Msg("failed to apply commission")
		return false, fmt.Errorf("failed to apply commission: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	err := row.Scan(
		&o.ID,
		&o.OrderCode,
		&o.CustomerID,
		&o.Status,
		&o.TotalAmount,
		&o.ShippingAddress,
		&o.Phone,
		&o.Notes,
		&o.AffiliateID,
		&o.AffiliateLinkID,
		&o.CommissionRate,
		&o.CommissionAmount,
		&o.CommissionCalculatedAt,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
