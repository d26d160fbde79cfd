package repository

import (
	"context"
	"errors"
	"fmt"

	"order-ledger/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// affiliateRepository implements the AffiliateRepository interface using PostgreSQL.
type affiliateRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewAffiliateRepository creates a new PostgreSQL-backed affiliate repository.
func NewAffiliateRepository(pool *pgxpool.Pool, logger zerolog.Logger) AffiliateRepository {
	return &affiliateRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "affiliate").Logger(),
	}
}

func (r *affiliateRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Affiliate, error) {
	query := `
		SELECT id, code, name, status, commission_rate, min_withdrawal, created_at
		FROM affiliates
		WHERE id = $1
	`

	var a model.Affiliate
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&a.ID, &a.Code, &a.Name, &a.Status, &a.CommissionRate, &a.MinWithdrawal, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("affiliate_id", id.String()).Msg("affiliate not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("affiliate_id", id.String()).Msg("failed to query affiliate")
		return nil, fmt.Errorf("failed to query affiliate: %w", err)
	}

	return &a, nil
}

func (r *affiliateRepository) GetLinkByID(ctx context.Context, id uuid.UUID) (*model.AffiliateLink, error) {
	query := `
		SELECT id, affiliate_id, slug, campaign, active, created_at
		FROM affiliate_links
		WHERE id = $1
	`

	var l model.AffiliateLink
	err := r.pool.QueryRow(ctx, query, id).Scan(&l.ID, &l.AffiliateID, &l.Slug, &l.Campaign, &l.Active, &l.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Debug().Str("link_id", id.String()).Msg("affiliate link not found")
			return nil, nil
		}
		r.logger.Error().Err(err).Str("link_id", id.String()).Msg("failed to query affiliate link")
		return nil, fmt.Errorf("failed to query affiliate link: %w", err)
	}

	return &l, nil
}

func (r *affiliateRepository) Create(ctx context.Context, a *model.Affiliate) error {
	query := `
		INSERT INTO affiliates (id, code, name, status, commission_rate, min_withdrawal, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.pool.Exec(ctx, query, a.ID, a.Code, a.Name, a.Status, a.CommissionRate, a.MinWithdrawal, a.CreatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("affiliate_code", a.Code).Msg("failed to create affiliate")
		return fmt.Errorf("failed to create affiliate: %w", err)
	}

	return nil
}

func (r *affiliateRepository) CreateLink(ctx context.Context, l *model.AffiliateLink) error {
	query := `
		INSERT INTO affiliate_links (id, affiliate_id, slug, campaign, active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query, l.ID, l.AffiliateID, l.Slug, l.Campaign, l.Active, l.CreatedAt)
	if err != nil {
		r.logger.Error().Err(err).Str("slug", l.Slug).Msg("failed to create affiliate link")
		return fmt.Errorf("failed to create affiliate link: %w", err)
	}

	return nil
}
