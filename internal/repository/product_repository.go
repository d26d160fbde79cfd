package repository

import (
	"context"
	"errors"
	"fmt"

	"order-ledger/internal/model"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// productRepository implements the ProductRepository interface using PostgreSQL.
type productRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool *pgxpool.Pool, logger zerolog.Logger) ProductRepository {
	return &productRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "product").Logger(),
	}
}

// GetByID retrieves a single product by its ID.
func (r *productRepository) GetByID(ctx context.Context, id string) (*model.Product, error) {
	query := `
		SELECT id, name, price, active, created_at
		FROM products
		WHERE id = $1
	`

	var p model.Product
	err := r.pool.QueryRow(ctx, query, id).Scan(&p.ID, &p.Name, &p.Price, &p.Active, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("product_id", id).Msg("product not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("product_id", id).Msg("failed to query product")
		return nil, fmt.Errorf("failed to query product: %w", err)
	}

	return &p, nil
}

// GetByIDs retrieves multiple products by their IDs.
func (r *productRepository) GetByIDs(ctx context.Context, ids []string) ([]model.Product, error) {
	if len(ids) == 0 {
		return []model.Product{}, nil
	}

	query := `
		SELECT id, name, price, active, created_at
		FROM products
		WHERE id = ANY($1)
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to query products by IDs")
		return nil, fmt.Errorf("failed to query products by IDs: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		var p model.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Active, &p.CreatedAt); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan product row")
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating product rows")
		return nil, fmt.Errorf("error iterating products: %w", err)
	}

	return products, nil
}

// GetTiers returns explicit price tiers keyed by product ID, ascending by quantity.
func (r *productRepository) GetTiers(ctx context.Context, ids []string) (map[string][]model.PriceTier, error) {
	tiers := make(map[string][]model.PriceTier)
	if len(ids) == 0 {
		return tiers, nil
	}

	query := `
		SELECT product_id, min_quantity, unit_price
		FROM product_price_tiers
		WHERE product_id = ANY($1)
		ORDER BY product_id, min_quantity
	`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		r.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to query price tiers")
		return nil, fmt.Errorf("failed to query price tiers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t model.PriceTier
		if err := rows.Scan(&t.ProductID, &t.MinQuantity, &t.UnitPrice); err != nil {
			r.logger.Error().Err(err).Msg("failed to scan price tier row")
			return nil, fmt.Errorf("failed to scan price tier: %w", err)
		}
		tiers[t.ProductID] = append(tiers[t.ProductID], t)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating price tier rows")
		return nil, fmt.Errorf("error iterating price tiers: %w", err)
	}

	return tiers, nil
}

// Upsert inserts or updates a product.
func (r *productRepository) Upsert(ctx context.Context, p *model.Product) error {
	query := `
		INSERT INTO products (id, name, price, active, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, price = EXCLUDED.price, active = EXCLUDED.active
	`

	if _, err := r.pool.Exec(ctx, query, p.ID, p.Name, p.Price, p.Active, p.CreatedAt); err != nil {
		r.logger.Error().Err(err).Str("product_id", p.ID).Msg("failed to upsert product")
		return fmt.Errorf("failed to upsert product: %w", err)
	}

	return nil
}

// ReplaceTiers replaces all explicit tiers of a product in one transaction.
func (r *productRepository) ReplaceTiers(ctx context.Context, productID string, tiers []model.PriceTier) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM product_price_tiers WHERE product_id = $1`, productID); err != nil {
		return fmt.Errorf("failed to clear price tiers: %w", err)
	}

	batch := &pgx.Batch{}
	for _, t := range tiers {
		batch.Queue(
			`INSERT INTO product_price_tiers (product_id, min_quantity, unit_price) VALUES ($1, $2, $3)`,
			productID, t.MinQuantity, t.UnitPrice,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		r.logger.Error().Err(err).Str("product_id", productID).Msg("failed to insert price tiers")
		return fmt.Errorf("failed to insert price tiers: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit price tiers: %w", err)
	}

	return nil
}
