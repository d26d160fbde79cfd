package handler

import (
	"net/http"
	"strconv"
	"time"

	"order-ledger/internal/auth"
	"order-ledger/internal/metrics"
	"order-ledger/internal/model"
	"order-ledger/internal/notify"
	"order-ledger/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const maxListLimit = 100

var errInvalidQuery = model.NewDomainError(model.ErrCodeInvalidJSON, "Invalid query parameter")

// WithdrawalHandler handles affiliate balance and withdrawal requests.
type WithdrawalHandler struct {
	service  service.WithdrawalService
	validate *validator.Validate
	events   events
	logger   zerolog.Logger
}

// NewWithdrawalHandler creates a new withdrawal handler.
func NewWithdrawalHandler(
	withdrawals service.WithdrawalService,
	publisher notify.Publisher,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *WithdrawalHandler {
	logger = logger.With().Str("handler", "withdrawal").Logger()
	return &WithdrawalHandler{
		service:  withdrawals,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		events:   events{publisher: publisher, metrics: m, logger: logger},
		logger:   logger,
	}
}

// List handles GET /api/withdrawals. Admins see everything; affiliates see their own.
func (h *WithdrawalHandler) List(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	p, _ := auth.FromContext(r.Context())
	if !p.IsAdmin() {
		if p == nil || p.AffiliateID == nil {
			writeError(w, model.ErrForbidden, h.logger)
			return
		}
		filter.AffiliateID = p.AffiliateID
	}

	withdrawals, err := h.service.List(r.Context(), filter)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	if withdrawals == nil {
		withdrawals = []model.Withdrawal{}
	}
	writeJSON(w, http.StatusOK, withdrawals)
}

// Request handles POST /api/withdrawals from an affiliate.
func (h *WithdrawalHandler) Request(w http.ResponseWriter, r *http.Request) {
	affiliateID, ok := h.affiliateID(w, r)
	if !ok {
		return
	}

	var req model.WithdrawalRequest
	if err := decodeJSON(r, &req, h.validate); err != nil {
		writeError(w, err, h.logger)
		return
	}

	withdrawal, err := h.service.Request(r.Context(), affiliateID, &req)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	h.events.publish(r.Context(), notify.WithdrawalRequested(withdrawal, time.Now()))

	writeJSON(w, http.StatusCreated, withdrawal)
}

// UpdateStatus handles PUT /api/withdrawals from an admin.
func (h *WithdrawalHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req model.UpdateWithdrawalRequest
	if err := decodeJSON(r, &req, h.validate); err != nil {
		writeError(w, err, h.logger)
		return
	}

	withdrawal, err := h.service.UpdateStatus(r.Context(), &req)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	h.events.publish(r.Context(), notify.WithdrawalUpdated(withdrawal, time.Now()))

	writeJSON(w, http.StatusOK, withdrawal)
}

// Balance handles GET /api/affiliates/me/balance.
func (h *WithdrawalHandler) Balance(w http.ResponseWriter, r *http.Request) {
	affiliateID, ok := h.affiliateID(w, r)
	if !ok {
		return
	}

	balance, err := h.service.Balance(r.Context(), affiliateID)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, balance)
}

func (h *WithdrawalHandler) affiliateID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	p, ok := auth.FromContext(r.Context())
	if !ok {
		writeError(w, model.ErrUnauthorised, h.logger)
		return uuid.Nil, false
	}
	if p.AffiliateID == nil {
		writeError(w, model.ErrForbidden, h.logger)
		return uuid.Nil, false
	}
	return *p.AffiliateID, true
}

func parseFilter(r *http.Request) (model.WithdrawalFilter, error) {
	q := r.URL.Query()
	filter := model.WithdrawalFilter{Limit: 50}

	if s := q.Get("status"); s != "" {
		status := model.WithdrawalStatus(s)
		filter.Status = &status
	}

	if s := q.Get("affiliate_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return filter, errInvalidQuery
		}
		filter.AffiliateID = &id
	}

	if s := q.Get("limit"); s != "" {
		limit, err := strconv.Atoi(s)
		if err != nil || limit < 1 {
			return filter, errInvalidQuery
		}
		filter.Limit = min(limit, maxListLimit)
	}

	if s := q.Get("offset"); s != "" {
		offset, err := strconv.Atoi(s)
		if err != nil || offset < 0 {
			return filter, errInvalidQuery
		}
		filter.Offset = offset
	}

	return filter, nil
}
