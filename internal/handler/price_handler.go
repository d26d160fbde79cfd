package handler

import (
	"net/http"

	"order-ledger/internal/model"
	"order-ledger/internal/service"

	"github.com/rs/zerolog"
)

// PriceHandler serves price previews.
type PriceHandler struct {
	service service.PriceResolver
	logger  zerolog.Logger
}

// NewPriceHandler creates a new price handler.
func NewPriceHandler(service service.PriceResolver, logger zerolog.Logger) *PriceHandler {
	return &PriceHandler{
		service: service,
		logger:  logger.With().Str("handler", "price").Logger(),
	}
}

// Quote handles POST /api/prices/quote requests.
func (h *PriceHandler) Quote(w http.ResponseWriter, r *http.Request) {
	var req model.QuoteRequest
	if err := decodeJSON(r, &req, nil); err != nil {
		writeError(w, err, h.logger)
		return
	}

	quote, err := h.service.Quote(r.Context(), &req)
	if err != nil {
		writeError(w, err, h.logger)
		return
	}

	writeJSON(w, http.StatusOK, quote)
}
