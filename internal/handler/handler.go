package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"order-ledger/internal/metrics"
	"order-ledger/internal/model"
	"order-ledger/internal/notify"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Available *int64 `json:"available,omitempty"`
	Minimum   *int64 `json:"minimum,omitempty"`
}

var errInvalidJSON = model.NewDomainError(model.ErrCodeInvalidJSON, "Invalid request body")

var internalError = model.NewDomainError(model.ErrCodeInternalError, "Internal server error")

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError maps err to a status code and error body. Unknown errors become a
// generic 500 so store details never reach the client.
func writeError(w http.ResponseWriter, err error, logger zerolog.Logger) {
	status, body := errorResponse(err)

	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Err(err).Int("status", status).Str("code", body.Error).Msg("handler error")

	writeJSON(w, status, body)
}

func errorResponse(err error) (int, ErrorResponse) {
	var balanceErr *model.BalanceError
	if errors.As(err, &balanceErr) {
		return http.StatusUnprocessableEntity, ErrorResponse{
			Error:     balanceErr.Code,
			Message:   balanceErr.Error(),
			Available: &balanceErr.Available,
			Minimum:   &balanceErr.Minimum,
		}
	}

	var domainErr *model.DomainError
	if !errors.As(err, &domainErr) {
		return http.StatusInternalServerError, ErrorResponse{Error: internalError.Code, Message: internalError.Message}
	}

	return statusFor(domainErr.Code), ErrorResponse{Error: domainErr.Code, Message: domainErr.Message}
}

func statusFor(code string) int {
	switch code {
	case model.ErrCodeInvalidJSON, model.ErrCodeInvalidItems, model.ErrCodeDuplicateProduct,
		model.ErrCodeInvalidQuantity, model.ErrCodeInvalidTotal, model.ErrCodeProductInvalid,
		model.ErrCodeInvalidStatus, model.ErrCodeInvalidAmount:
		return http.StatusBadRequest
	case model.ErrCodeUnauthorised:
		return http.StatusUnauthorized
	case model.ErrCodeForbidden:
		return http.StatusForbidden
	case model.ErrCodeOrderNotFound, model.ErrCodeAffiliateNotFound, model.ErrCodeWithdrawalNotFound:
		return http.StatusNotFound
	case model.ErrCodeInvalidTransition, model.ErrCodeOrderNotEligible, model.ErrCodeStatusConflict:
		return http.StatusConflict
	case model.ErrCodeInsufficientBalance, model.ErrCodeBelowMinimum:
		return http.StatusUnprocessableEntity
	case model.ErrCodeRateLimited:
		return http.StatusTooManyRequests
	}
	return http.StatusInternalServerError
}

// decodeJSON reads the body into dst and runs struct validation when v is set.
func decodeJSON(r *http.Request, dst any, v *validator.Validate) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errInvalidJSON
	}
	if v == nil {
		return nil
	}
	if err := v.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

// validationError turns the first failing field into a domain error.
func validationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return errInvalidJSON
	}

	fe := fieldErrs[0]
	switch fe.Field() {
	case "Amount":
		return model.ErrInvalidAmount
	case "Status":
		return model.ErrInvalidStatus
	}
	return model.NewDomainError(model.ErrCodeInvalidJSON,
		fmt.Sprintf("%s failed %s validation", strings.ToLower(fe.Field()), fe.Tag()))
}

// events publishes after a successful write. Failures are logged and counted only.
type events struct {
	publisher notify.Publisher
	metrics   *metrics.Metrics
	logger    zerolog.Logger
}

func (e events) publish(ctx context.Context, event notify.Event) {
	if e.publisher == nil {
		return
	}
	if err := e.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		e.metrics.RecordPublishFailure(string(event.Type))
		e.logger.Error().
			Err(err).
			Str("event_type", string(event.Type)).
			Str("event_id", event.ID.String()).
			Msg("failed to publish event")
	}
}
