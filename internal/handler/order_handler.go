package handler

import (
	"net/http"
	"time"

	"order-ledger/internal/auth"
	"order-ledger/internal/metrics"
	"order-ledger/internal/model"
	"order-ledger/internal/notify"
	"order-ledger/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Referral cookies set by the click tracker.
const (
	CookieAffiliateID = "ref_affiliate_id"
	CookieLinkID      = "ref_link_id"
)

// CommissionResponse is the body of POST /api/orders/{id}/commission.
type CommissionResponse struct {
	OrderID          uuid.UUID `json:"orderId"`
	Applied          bool      `json:"applied"`
	Reason           string    `json:"reason,omitempty"`
	CommissionRate   *int64    `json:"commissionRate,omitempty"`
	CommissionAmount *int64    `json:"commissionAmount,omitempty"`
}

// OrderHandler handles order-related HTTP requests.
type OrderHandler struct {
	service    service.OrderService
	commission service.CommissionEngine
	validate   *validator.Validate
	events     events
	logger     zerolog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(
	orders service.OrderService,
	commission service.CommissionEngine,
	publisher notify.Publisher,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *OrderHandler {
	logger = logger.With().Str("handler", "order").Logger()
	return &OrderHandler{
		service:    orders,
		commission: commission,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
		events:     events{publisher: publisher, metrics: m, logger: logger},
		logger:     logger,
	}
}

// Create handles POST /api/orders requests.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.OrderRequest
	if err := decodeJSON(r, &req, nil); err != nil {
		writeError(w, err, h.logger)
		return
	}

	var customerID string
	if p, ok := auth.FromContext(r.Context()); ok {
		customerID = p.ID
	}

	result, err := h.service.CreateOrder(r.Context(), model.CreateOrderInput{
		CustomerID: customerID,
		Request:    &req,
		Referral:   readReferral(r),
	})
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	h.events.publish(r.Context(), notify.OrderCreated(result, customerID, time.Now()))

	writeJSON(w, http.StatusOK, result)
}

// GetByID handles GET /api/orders/{id}. Only the ordering customer or an admin may read an order.
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}

	order, err := h.service.GetByID(r.Context(), orderID)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	if order == nil {
		writeError(w, model.ErrOrderNotFound, h.logger)
		return
	}

	p, _ := auth.FromContext(r.Context())
	if !p.IsAdmin() && (p == nil || p.ID != order.Order.CustomerID) {
		writeError(w, model.ErrForbidden, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, order)
}

// UpdateStatus handles PUT /api/orders/{id}/status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}

	var req model.UpdateOrderStatusRequest
	if err := decodeJSON(r, &req, h.validate); err != nil {
		writeError(w, err, h.logger)
		return
	}

	resp, err := h.service.UpdateStatus(r.Context(), orderID, req.Status)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Attribute handles POST /api/orders/{id}/commission. Safe to retry.
func (h *OrderHandler) Attribute(w http.ResponseWriter, r *http.Request) {
	orderID, ok := h.orderID(w, r)
	if !ok {
		return
	}

	result, err := h.commission.Attribute(r.Context(), orderID)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	resp := CommissionResponse{OrderID: result.OrderID, Applied: result.Applied, Reason: result.Reason}
	if result.Snapshot != nil {
		resp.CommissionRate = &result.Snapshot.Rate
		resp.CommissionAmount = &result.Snapshot.Amount
	}

	writeJSON(w, http.StatusOK, resp)
}

func (h *OrderHandler) orderID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, model.NewDomainError(model.ErrCodeInvalidJSON, "Invalid order ID format"), h.logger)
		return uuid.Nil, false
	}
	return id, true
}

// readReferral extracts attribution hints from the referral cookies.
// Malformed values are ignored; validation happens in the service.
func readReferral(r *http.Request) model.Referral {
	var ref model.Referral
	if c, err := r.Cookie(CookieAffiliateID); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			ref.AffiliateID = &id
		}
	}
	if c, err := r.Cookie(CookieLinkID); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			ref.AffiliateLinkID = &id
		}
	}
	return ref
}
