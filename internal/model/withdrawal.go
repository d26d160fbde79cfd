package model

import (
	"time"

	"github.com/google/uuid"
)

// WithdrawalStatus is the state of a withdrawal request.
type WithdrawalStatus string

const (
	WithdrawalStatusPending    WithdrawalStatus = "pending"
	WithdrawalStatusApproved   WithdrawalStatus = "approved"
	WithdrawalStatusProcessing WithdrawalStatus = "processing"
	WithdrawalStatusCompleted  WithdrawalStatus = "completed"
	WithdrawalStatusRejected   WithdrawalStatus = "rejected"
)

var withdrawalTransitions = map[WithdrawalStatus][]WithdrawalStatus{
	WithdrawalStatusPending:    {WithdrawalStatusApproved, WithdrawalStatusRejected},
	WithdrawalStatusApproved:   {WithdrawalStatusProcessing, WithdrawalStatusRejected},
	WithdrawalStatusProcessing: {WithdrawalStatusCompleted, WithdrawalStatusRejected},
}

// CommittedWithdrawalStatuses are deducted from the available balance.
// Pending requests are deliberately absent.
var CommittedWithdrawalStatuses = []WithdrawalStatus{
	WithdrawalStatusApproved,
	WithdrawalStatusProcessing,
	WithdrawalStatusCompleted,
}

// Valid reports whether s is a known withdrawal status.
func (s WithdrawalStatus) Valid() bool {
	switch s {
	case WithdrawalStatusPending, WithdrawalStatusApproved, WithdrawalStatusProcessing,
		WithdrawalStatusCompleted, WithdrawalStatusRejected:
		return true
	}
	return false
}

// Terminal reports whether s ends the lifecycle.
func (s WithdrawalStatus) Terminal() bool {
	return s == WithdrawalStatusCompleted || s == WithdrawalStatusRejected
}

// CanTransitionTo reports whether a withdrawal may move from s to next.
func (s WithdrawalStatus) CanTransitionTo(next WithdrawalStatus) bool {
	for _, allowed := range withdrawalTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Withdrawal is an affiliate's request to pay out commission.
type Withdrawal struct {
	ID                uuid.UUID        `json:"id" db:"id"`
	AffiliateID       uuid.UUID        `json:"affiliateId" db:"affiliate_id"`
	Amount            int64            `json:"amount" db:"amount"`
	Status            WithdrawalStatus `json:"status" db:"status"`
	BankName          string           `json:"bankName" db:"bank_name"`
	AccountNumber     string           `json:"accountNumber" db:"account_number"`
	AccountHolder     string           `json:"accountHolder" db:"account_holder"`
	AdminNotes        *string          `json:"adminNotes,omitempty" db:"admin_notes"`
	TransferReference *string          `json:"transferReference,omitempty" db:"transfer_reference"`
	CreatedAt         time.Time        `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time        `json:"updatedAt" db:"updated_at"`
	ProcessedAt       *time.Time       `json:"processedAt,omitempty" db:"processed_at"`
}

// WithdrawalRequest is the affiliate-facing payload for a new withdrawal.
type WithdrawalRequest struct {
	Amount        int64  `json:"amount" validate:"required,gt=0"`
	BankName      string `json:"bank_name" validate:"required,max=100"`
	AccountNumber string `json:"account_number" validate:"required,max=50"`
	AccountHolder string `json:"account_holder" validate:"required,max=150"`
}

// UpdateWithdrawalRequest is the admin payload driving the withdrawal state machine.
type UpdateWithdrawalRequest struct {
	WithdrawalID      uuid.UUID        `json:"withdrawal_id" validate:"required"`
	Status            WithdrawalStatus `json:"status" validate:"required"`
	AdminNotes        *string          `json:"admin_notes,omitempty" validate:"omitempty,max=1000"`
	TransferReference *string          `json:"transfer_reference,omitempty" validate:"omitempty,max=100"`
}

// WithdrawalUpdate is the change a repository applies to a withdrawal row.
type WithdrawalUpdate struct {
	Status            WithdrawalStatus
	AdminNotes        *string
	TransferReference *string
	UpdatedAt         time.Time
	ProcessedAt       *time.Time
}

// WithdrawalFilter narrows a withdrawal listing.
type WithdrawalFilter struct {
	Status      *WithdrawalStatus
	AffiliateID *uuid.UUID
	Limit       int
	Offset      int
}

// Balance is an affiliate's commission position in minor units.
// Available = Confirmed - Committed; Pending is informational only.
type Balance struct {
	AffiliateID uuid.UUID `json:"affiliateId"`
	Confirmed   int64     `json:"confirmed"`
	Committed   int64     `json:"committed"`
	Pending     int64     `json:"pending"`
	Available   int64     `json:"available"`
}
