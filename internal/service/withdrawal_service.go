package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"order-ledger/internal/metrics"
	"order-ledger/internal/model"
	"order-ledger/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// withdrawalService implements WithdrawalService.
type withdrawalService struct {
	withdrawalRepo repository.WithdrawalRepository
	affiliateRepo  repository.AffiliateRepository
	metrics        *metrics.Metrics
	now            func() time.Time
	logger         zerolog.Logger
}

// NewWithdrawalService creates a new withdrawal service.
func NewWithdrawalService(
	withdrawalRepo repository.WithdrawalRepository,
	affiliateRepo repository.AffiliateRepository,
	m *metrics.Metrics,
	logger zerolog.Logger,
) WithdrawalService {
	return &withdrawalService{
		withdrawalRepo: withdrawalRepo,
		affiliateRepo:  affiliateRepo,
		metrics:        m,
		now:            time.Now,
		logger:         logger.With().Str("service", "withdrawal").Logger(),
	}
}

func (s *withdrawalService) Balance(ctx context.Context, affiliateID uuid.UUID) (*model.Balance, error) {
	if _, err := s.activeAffiliate(ctx, affiliateID); err != nil {
		return nil, err
	}

	b, err := s.withdrawalRepo.Balance(ctx, affiliateID)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return b, nil
}

// Request creates a pending withdrawal. The minimum is checked before the
// balance, so a small request fails on the minimum even when funds exist.
// Pending requests are not deducted; approval re-checks the balance.
func (s *withdrawalService) Request(ctx context.Context, affiliateID uuid.UUID, req *model.WithdrawalRequest) (*model.Withdrawal, error) {
	if req == nil || req.Amount <= 0 {
		s.metrics.RecordWithdrawalRejected("invalid_amount")
		return nil, model.ErrInvalidAmount
	}

	affiliate, err := s.activeAffiliate(ctx, affiliateID)
	if err != nil {
		return nil, err
	}

	b, err := s.withdrawalRepo.Balance(ctx, affiliateID)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}

	if req.Amount < affiliate.MinWithdrawal {
		s.metrics.RecordWithdrawalRejected("below_minimum")
		s.logger.Warn().
			Str("affiliate_id", affiliateID.String()).
			Int64("amount", req.Amount).
			Int64("minimum", affiliate.MinWithdrawal).
			Msg("withdrawal below minimum")
		return nil, model.NewBelowMinimumError(b.Available, affiliate.MinWithdrawal)
	}

	if req.Amount > b.Available {
		s.metrics.RecordWithdrawalRejected("insufficient_balance")
		s.logger.Warn().
			Str("affiliate_id", affiliateID.String()).
			Int64("amount", req.Amount).
			Int64("available", b.Available).
			Msg("withdrawal exceeds available balance")
		return nil, model.NewInsufficientBalanceError(b.Available, affiliate.MinWithdrawal)
	}

	now := s.now().UTC()
	w := &model.Withdrawal{
		ID:            uuid.New(),
		AffiliateID:   affiliateID,
		Amount:        req.Amount,
		Status:        model.WithdrawalStatusPending,
		BankName:      req.BankName,
		AccountNumber: req.AccountNumber,
		AccountHolder: req.AccountHolder,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.withdrawalRepo.Create(ctx, w); err != nil {
		return nil, fmt.Errorf("failed to create withdrawal: %w", err)
	}

	s.metrics.RecordWithdrawalRequested()
	s.logger.Info().
		Str("withdrawal_id", w.ID.String()).
		Str("affiliate_id", affiliateID.String()).
		Int64("amount", w.Amount).
		Msg("withdrawal requested")

	return w, nil
}

func (s *withdrawalService) UpdateStatus(ctx context.Context, req *model.UpdateWithdrawalRequest) (*model.Withdrawal, error) {
	if req == nil || !req.Status.Valid() {
		return nil, model.ErrInvalidStatus
	}

	current, err := s.withdrawalRepo.GetByID(ctx, req.WithdrawalID)
	if err != nil {
		return nil, fmt.Errorf("failed to get withdrawal: %w", err)
	}
	if current == nil {
		return nil, model.ErrWithdrawalNotFound
	}

	if !current.Status.CanTransitionTo(req.Status) {
		s.logger.Warn().
			Str("withdrawal_id", current.ID.String()).
			Str("from", string(current.Status)).
			Str("to", string(req.Status)).
			Msg("withdrawal transition rejected")
		return nil, model.ErrInvalidTransition
	}

	now := s.now().UTC()
	update := model.WithdrawalUpdate{
		Status:            req.Status,
		AdminNotes:        req.AdminNotes,
		TransferReference: req.TransferReference,
		UpdatedAt:         now,
	}
	if req.Status.Terminal() {
		update.ProcessedAt = &now
	}

	// Approval is where a pending request starts counting against the balance.
	reserve := current.Status == model.WithdrawalStatusPending && req.Status == model.WithdrawalStatusApproved

	updated, err := s.withdrawalRepo.UpdateStatus(ctx, current.ID, current.Status, update, reserve)
	if err != nil {
		var balanceErr *model.BalanceError
		switch {
		case errors.As(err, &balanceErr):
			s.metrics.RecordWithdrawalRejected("insufficient_balance")
			return nil, err
		case errors.Is(err, model.ErrStatusConflict), errors.Is(err, model.ErrWithdrawalNotFound):
			return nil, err
		}
		return nil, fmt.Errorf("failed to update withdrawal: %w", err)
	}

	s.metrics.RecordWithdrawalTransition(string(req.Status))
	s.logger.Info().
		Str("withdrawal_id", updated.ID.String()).
		Str("from", string(current.Status)).
		Str("to", string(updated.Status)).
		Msg("withdrawal status updated")

	return updated, nil
}

func (s *withdrawalService) List(ctx context.Context, filter model.WithdrawalFilter) ([]model.Withdrawal, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, model.ErrInvalidStatus
	}

	withdrawals, err := s.withdrawalRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list withdrawals: %w", err)
	}
	return withdrawals, nil
}

func (s *withdrawalService) activeAffiliate(ctx context.Context, id uuid.UUID) (*model.Affiliate, error) {
	affiliate, err := s.affiliateRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get affiliate: %w", err)
	}
	if !affiliate.Active() {
		return nil, model.ErrAffiliateNotFound
	}
	return affiliate, nil
}
