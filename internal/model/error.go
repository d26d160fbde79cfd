package model

import (
	"errors"
	"fmt"
)

// ErrorResponse represents a standardised error response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Available *int64 `json:"available,omitempty"`
	Minimum   *int64 `json:"minimum,omitempty"`
}

// Standard error codes for API responses
const (
	ErrCodeInvalidJSON          = "INVALID_JSON"
	ErrCodeInvalidItems         = "INVALID_ITEMS"
	ErrCodeDuplicateProduct     = "DUPLICATE_PRODUCT"
	ErrCodeInvalidQuantity      = "INVALID_QUANTITY"
	ErrCodeInvalidTotal         = "INVALID_TOTAL"
	ErrCodeUnauthorised         = "UNAUTHORIZED"
	ErrCodeForbidden            = "FORBIDDEN"
	ErrCodeRateLimited          = "RATE_LIMITED"
	ErrCodeProductInvalid       = "PRODUCT_INVALID"
	ErrCodeCodeAllocationFailed = "CODE_ALLOCATION_FAILED"
	ErrCodeOrderNotFound        = "ORDER_NOT_FOUND"
	ErrCodeInvalidStatus        = "INVALID_STATUS"
	ErrCodeInvalidTransition    = "INVALID_TRANSITION"
	ErrCodeOrderNotEligible     = "ORDER_NOT_ELIGIBLE"
	ErrCodeAffiliateNotFound    = "AFFILIATE_NOT_FOUND"
	ErrCodeInsufficientBalance  = "INSUFFICIENT_BALANCE"
	ErrCodeBelowMinimum         = "BELOW_MINIMUM"
	ErrCodeInvalidAmount        = "INVALID_AMOUNT"
	ErrCodeWithdrawalNotFound   = "WITHDRAWAL_NOT_FOUND"
	ErrCodeStatusConflict       = "STATUS_CONFLICT"
	ErrCodeInternalError        = "INTERNAL_ERROR"
)

// Domain errors for business logic
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrEmptyItems           = NewDomainError(ErrCodeInvalidItems, "Order must contain at least one item")
	ErrMissingProductID     = NewDomainError(ErrCodeInvalidItems, "Every item requires a product ID")
	ErrDuplicateProduct     = NewDomainError(ErrCodeDuplicateProduct, "A product may appear only once per order")
	ErrInvalidQuantity      = NewDomainError(ErrCodeInvalidQuantity, "Quantity is below the minimum order quantity")
	ErrInvalidTotal         = NewDomainError(ErrCodeInvalidTotal, "Order total is out of range")
	ErrUnauthorised         = NewDomainError(ErrCodeUnauthorised, "Authentication required")
	ErrForbidden            = NewDomainError(ErrCodeForbidden, "Not allowed to perform this action")
	ErrRateLimited          = NewDomainError(ErrCodeRateLimited, "Too many orders, please try again later")
	ErrProductInvalid       = NewDomainError(ErrCodeProductInvalid, "One or more products are unknown or inactive")
	ErrCodeAllocation       = NewDomainError(ErrCodeCodeAllocationFailed, "Could not allocate an order code")
	ErrOrderNotFound        = NewDomainError(ErrCodeOrderNotFound, "Order not found")
	ErrInvalidStatus        = NewDomainError(ErrCodeInvalidStatus, "Unknown status")
	ErrInvalidTransition    = NewDomainError(ErrCodeInvalidTransition, "Status transition not allowed")
	ErrOrderNotEligible     = NewDomainError(ErrCodeOrderNotEligible, "Order status does not allow commission")
	ErrAffiliateNotFound    = NewDomainError(ErrCodeAffiliateNotFound, "Affiliate not found or inactive")
	ErrInvalidAmount        = NewDomainError(ErrCodeInvalidAmount, "Amount must be greater than zero")
	ErrWithdrawalNotFound   = NewDomainError(ErrCodeWithdrawalNotFound, "Withdrawal not found")
	ErrStatusConflict       = NewDomainError(ErrCodeStatusConflict, "Status changed concurrently, reload and retry")
	ErrDuplicateOrderCode   = errors.New("order code already exists")
	ErrCounterOutOfRange    = errors.New("daily order counter exhausted")
	ErrCounterNotConfigured = errors.New("no order code counter configured")
)

// BalanceError reports a withdrawal rejected by the balance or minimum check.
// It carries the figures the client needs to correct the request.
type BalanceError struct {
	Code      string
	Available int64
	Minimum   int64
}

func (e *BalanceError) Error() string {
	switch e.Code {
	case ErrCodeBelowMinimum:
		return fmt.Sprintf("Amount is below the minimum withdrawal of %d", e.Minimum)
	default:
		return fmt.Sprintf("Amount exceeds the available balance of %d", e.Available)
	}
}

// NewInsufficientBalanceError creates a balance error for an amount above the available balance.
func NewInsufficientBalanceError(available, minimum int64) *BalanceError {
	return &BalanceError{Code: ErrCodeInsufficientBalance, Available: available, Minimum: minimum}
}

// NewBelowMinimumError creates a balance error for an amount below the affiliate minimum.
func NewBelowMinimumError(available, minimum int64) *BalanceError {
	return &BalanceError{Code: ErrCodeBelowMinimum, Available: available, Minimum: minimum}
}
