package handler

import (
	"net/http"
	"time"

	"github.com/concierge-labs/member-qa/internal/analytics"
	"github.com/concierge-labs/member-qa/pkg/config"
	"github.com/concierge-labs/member-qa/pkg/health"
	"github.com/concierge-labs/member-qa/pkg/metrics"
	"github.com/concierge-labs/member-qa/pkg/middleware"
)

// Router assembles the full HTTP handler: route table plus middleware chain.
//
// Route table:
//
//	GET /                  → service info
//	GET /ask               → answer a question
//	GET /refresh           → reload the corpus and publish a new snapshot
//	GET /cache/stats       → answer cache counters
//	GET /analytics/stats   → aggregated question statistics (when enabled)
//	GET /analytics/history → persisted statistics snapshots (when enabled)
//	GET /health/live       → liveness
//	GET /health/ready      → readiness
//
// Middleware chain (outermost first):
//
//	RequestID → CORS → RateLimit → Metrics → Timeout → mux
func Router(cfg config.ServerConfig, h *Handler, analyticsH *analytics.Handler, checker *health.Checker, m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", h.Info)
	mux.HandleFunc("GET /ask", h.Ask)
	mux.HandleFunc("GET /refresh", h.Refresh)
	mux.HandleFunc("GET /cache/stats", h.CacheStats)

	if analyticsH != nil {
		mux.HandleFunc("GET /analytics/stats", analyticsH.Stats)
		if analyticsH.HasStore() {
			mux.HandleFunc("GET /analytics/history", analyticsH.History)
		}
	}

	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	// Applied inside-out: the last wrap runs first on each request.
	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.WriteTimeout)(chain)
	if m != nil {
		chain = middleware.Metrics(m)(chain)
	}
	if cfg.RateLimitPerMinute > 0 {
		chain = middleware.RateLimit(middleware.NewLimiter(cfg.RateLimitPerMinute, time.Minute))(chain)
	}
	chain = middleware.CORS(middleware.DefaultCORSConfig())(chain)
	chain = middleware.RequestID(chain)
	return chain
}
