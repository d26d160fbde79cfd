package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"order-ledger/internal/model"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const withdrawalColumns = `
	id, affiliate_id, amount, status, bank_name, account_number, account_holder,
	admin_notes, transfer_reference, created_at, updated_at, processed_at`

// balanceQuery computes confirmed commission and withdrawal totals for one affiliate.
const balanceQuery = `
	SELECT
		COALESCE((SELECT SUM(commission_amount) FROM orders
			WHERE affiliate_id = $1 AND commission_amount IS NOT NULL AND status = ANY($2)), 0),
		COALESCE((SELECT SUM(amount) FROM withdrawals
			WHERE affiliate_id = $1 AND status = ANY($3)), 0),
		COALESCE((SELECT SUM(amount) FROM withdrawals
			WHERE affiliate_id = $1 AND status = $4), 0)
`

// withdrawalRepository implements the WithdrawalRepository interface using PostgreSQL.
type withdrawalRepository struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewWithdrawalRepository creates a new PostgreSQL-backed withdrawal repository.
func NewWithdrawalRepository(pool *pgxpool.Pool, logger zerolog.Logger) WithdrawalRepository {
	return &withdrawalRepository{
		pool:   pool,
		logger: logger.With().Str("repository", "withdrawal").Logger(),
	}
}

func (r *withdrawalRepository) Create(ctx context.Context, w *model.Withdrawal) error {
	query := `
		INSERT INTO withdrawals (
			id, affiliate_id, amount, status, bank_name, account_number, account_holder,
			admin_notes, transfer_reference, created_at, updated_at, processed_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.pool.Exec(ctx, query,
		w.ID, w.AffiliateID, w.Amount, w.Status, w.BankName, w.AccountNumber, w.AccountHolder,
		w.AdminNotes, w.TransferReference, w.CreatedAt, w.UpdatedAt, w.ProcessedAt,
	)
	if err != nil {
		r.logger.Error().Err(err).Str("affiliate_id", w.AffiliateID.String()).Msg("failed to create withdrawal")
		return fmt.Errorf("failed to create withdrawal: %w", err)
	}

	r.logger.Debug().
		Str("withdrawal_id", w.ID.String()).
		Int64("amount", w.Amount).
		Msg("withdrawal created successfully")

	return nil
}

func (r *withdrawalRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Withdrawal, error) {
	w, err := scanWithdrawal(r.pool.QueryRow(ctx, `SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error().Err(err).Str("withdrawal_id", id.String()).Msg("failed to query withdrawal")
		return nil, fmt.Errorf("failed to query withdrawal: %w", err)
	}
	return w, nil
}

func (r *withdrawalRepository) List(ctx context.Context, filter model.WithdrawalFilter) ([]model.Withdrawal, error) {
	var (
		conditions []string
		args       []any
	)

	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.AffiliateID != nil {
		args = append(args, *filter.AffiliateID)
		conditions = append(conditions, fmt.Sprintf("affiliate_id = $%d", len(args)))
	}

	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals`
	if len(conditions) > 0 {
		query += ` WHERE ` + strings.Join(conditions, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit, filter.Offset)
	query += fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to query withdrawals")
		return nil, fmt.Errorf("failed to query withdrawals: %w", err)
	}
	defer rows.Close()

	withdrawals := []model.Withdrawal{}
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			r.logger.Error().Err(err).Msg("failed to scan withdrawal row")
			return nil, fmt.Errorf("failed to scan withdrawal: %w", err)
		}
		withdrawals = append(withdrawals, *w)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error().Err(err).Msg("error iterating withdrawal rows")
		return nil, fmt.Errorf("error iterating withdrawals: %w", err)
	}

	return withdrawals, nil
}

func (r *withdrawalRepository) Balance(ctx context.Context, affiliateID uuid.UUID) (*model.Balance, error) {
	return r.balance(ctx, r.pool, affiliateID)
}

func (r *withdrawalRepository) balance(ctx context.Context, q dbtx, affiliateID uuid.UUID) (*model.Balance, error) {
	b := model.Balance{AffiliateID: affiliateID}
	err := q.QueryRow(ctx, balanceQuery,
		affiliateID,
		orderStatusStrings(model.EligibleOrderStatuses),
		withdrawalStatusStrings(model.CommittedWithdrawalStatuses),
		model.WithdrawalStatusPending,
	).Scan(&b.Confirmed, &b.Committed, &b.Pending)
	if err != nil {
		r.logger.Error().Err(err).Str("affiliate_id", affiliateID.String()).Msg("failed to compute balance")
		return nil, fmt.Errorf("failed to compute balance: %w", err)
	}

	b.Available = b.Confirmed - b.Committed
	return &b, nil
}

func (r *withdrawalRepository) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	expected model.WithdrawalStatus,
	update model.WithdrawalUpdate,
	reserve bool,
) (*model.Withdrawal, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			r.logger.Error().Err(err).Str("withdrawal_id", id.String()).Msg("failed to rollback transaction")
		}
	}()

	if reserve {
		if err := r.reserve(ctx, tx, id); err != nil {
			return nil, err
		}
	}

	query := `
		UPDATE withdrawals
		SET status = $3,
			admin_notes = COALESCE($4, admin_notes),
			transfer_reference = COALESCE($5, transfer_reference),
			updated_at = $6,
			processed_at = COALESCE($7, processed_at)
		WHERE id = $1 AND status = $2
		RETURNING ` + withdrawalColumns

	w, err := scanWithdrawal(tx.QueryRow(ctx, query,
		id, expected, update.Status, update.AdminNotes, update.TransferReference, update.UpdatedAt, update.ProcessedAt,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Warn().
				Str("withdrawal_id", id.String()).
				Str("expected_status", string(expected)).
				Msg("withdrawal status changed concurrently")
			return nil, model.ErrStatusConflict
		}
		r.logger.Error().Err(err).Str("withdrawal_id", id.String()).Msg("failed to update withdrawal")
		return nil, fmt.Errorf("failed to update withdrawal: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return w, nil
}

// reserve locks the owning affiliate so concurrent approvals serialise, then checks
// that the withdrawal still fits the available balance.
func (r *withdrawalRepository) reserve(ctx context.Context, tx pgx.Tx, id uuid.UUID) error {
	var (
		affiliateID uuid.UUID
		amount      int64
		minimum     int64
	)

	err := tx.QueryRow(ctx, `
		SELECT a.id, w.amount, a.min_withdrawal
		FROM withdrawals w
		JOIN affiliates a ON a.id = w.affiliate_id
		WHERE w.id = $1
		FOR UPDATE OF a
	`, id).Scan(&affiliateID, &amount, &minimum)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.ErrWithdrawalNotFound
		}
		return fmt.Errorf("failed to lock affiliate: %w", err)
	}

	b, err := r.balance(ctx, tx, affiliateID)
	if err != nil {
		return err
	}

	if amount > b.Available {
		r.logger.Warn().
			Str("withdrawal_id", id.String()).
			Int64("amount", amount).
			Int64("available", b.Available).
			Msg("withdrawal no longer covered by balance")
		return model.NewInsufficientBalanceError(b.Available, minimum)
	}

	return nil
}

func scanWithdrawal(row pgx.Row) (*model.Withdrawal, error) {
	var w model.Withdrawal
	err := row.Scan(
		&w.ID,
		&w.AffiliateID,
		&w.Amount,
		&w.Status,
		&w.BankName,
		&w.AccountNumber,
		&w.AccountHolder,
		&w.AdminNotes,
		&w.TransferReference,
		&w.CreatedAt,
		&w.UpdatedAt,
		&w.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}
