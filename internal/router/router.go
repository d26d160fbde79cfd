package router

import (
	"net/http"

	"order-ledger/internal/auth"
	"order-ledger/internal/handler"
	"order-ledger/internal/metrics"
	"order-ledger/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handlers groups the HTTP handlers served by the router.
type Handlers struct {
	Health     *handler.HealthHandler
	Orders     *handler.OrderHandler
	Prices     *handler.PriceHandler
	Withdrawal *handler.WithdrawalHandler
}

// New creates a new HTTP router with all routes and middleware configured.
func New(
	h Handlers,
	verifier auth.Verifier,
	throttle *middleware.Throttle,
	m *metrics.Metrics,
	logger zerolog.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Apply middleware in order: Recovery -> Logging -> CORS -> Throttle -> Authenticate
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger, m))
	r.Use(middleware.CORS)
	if throttle != nil {
		r.Use(throttle.Middleware)
	}
	r.Use(middleware.Authenticate(verifier, logger, "/health", "/metrics"))

	// Health check and metrics (no authentication required)
	r.Get("/health", h.Health.Health)
	r.Method(http.MethodGet, "/metrics", m.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			r.With(middleware.RequireRole(auth.RoleCustomer)).Post("/", h.Orders.Create)
			r.Get("/{id}", h.Orders.GetByID)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole(auth.RoleAdmin))
				r.Put("/{id}/status", h.Orders.UpdateStatus)
				r.Post("/{id}/commission", h.Orders.Attribute)
			})
		})

		r.Post("/prices/quote", h.Prices.Quote)

		r.Route("/withdrawals", func(r chi.Router) {
			r.With(middleware.RequireRole(auth.RoleAdmin, auth.RoleAffiliate)).Get("/", h.Withdrawal.List)
			r.With(middleware.RequireRole(auth.RoleAffiliate)).Post("/", h.Withdrawal.Request)
			r.With(middleware.RequireRole(auth.RoleAdmin)).Put("/", h.Withdrawal.UpdateStatus)
		})

		r.With(middleware.RequireRole(auth.RoleAffiliate)).Get("/affiliates/me/balance", h.Withdrawal.Balance)
	})

	return r
}
