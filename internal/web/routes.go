package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rook-computer/msgboard/internal/state"
)

// StatusSource is the read side of state.Store.
type StatusSource interface {
	Snapshot() state.State
}

type RouterConfig struct {
	Status      StatusSource
	DevCORS     bool
	CORSOrigins []string
	// RateLimit caps /api/v1 requests per client IP per minute. Zero disables it.
	RateLimit int
	// Metrics defaults to the default prometheus registry.
	Metrics http.Handler
	// Now is used for uptime; defaults to time.Now.
	Now func() time.Time
}

// NewRouter builds the status surface:
//   - /api/v1/status  board snapshot
//   - /api/v1/healthz liveness of the coordinator
//   - /metrics        prometheus exposition
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Metrics == nil {
		cfg.Metrics = promhttp.Handler()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))
	if cfg.DevCORS {
		r.Use(WithDevCORS(cfg.CORSOrigins))
	}

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimit > 0 {
			r.Use(httprate.Limit(cfg.RateLimit, time.Minute,
				httprate.WithKeyFuncs(httprate.KeyByIP),
				httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
					writeAPIError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
				}),
			))
		}
		r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
			handleStatus(w, r, cfg.Status, cfg.Now)
		})
		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			handleHealth(w, r, cfg.Status)
		})
	})
	r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, http.StatusNotFound, "not_found", "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeAPIError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed")
	})
	return r
}
