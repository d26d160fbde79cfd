package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"order-ledger/internal/model"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// Throttle is a per-remote-address token bucket in front of the handlers.
type Throttle struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	now      func() time.Time
	logger   zerolog.Logger
}

// NewThrottle allows perMinute requests per client with the given burst.
func NewThrottle(perMinute, burst int, logger zerolog.Logger) *Throttle {
	return &Throttle{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    burst,
		now:      time.Now,
		logger:   logger.With().Str("component", "throttle").Logger(),
	}
}

// Middleware returns the throttling handler wrapper.
func (t *Throttle) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientAddr(r)
		if !t.limiter(client).Allow() {
			t.logger.Warn().Str("client", client).Str("path", r.URL.Path).Msg("request throttled")
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, model.ErrRateLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Cleanup forgets clients idle for longer than maxIdle and returns how many were dropped.
func (t *Throttle) Cleanup(maxIdle time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := t.now().Add(-maxIdle)
	dropped := 0
	for client, v := range t.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(t.visitors, client)
			dropped++
		}
	}
	return dropped
}

func (t *Throttle) limiter(client string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()

	v, ok := t.visitors[client]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(t.limit, t.burst)}
		t.visitors[client] = v
	}
	v.lastSeen = t.now()
	return v.limiter
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
