package routing

import (
	"net/http"

	"modguard/internal/auth"
	"modguard/internal/handlers"
	"modguard/internal/middleware"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Config holds the configuration needed for setting up routes
type Config struct {
	Handlers *handlers.Handler
	Logger   zerolog.Logger

	// TracingEnabled wraps the router in otelhttp when set.
	TracingEnabled bool
}

// SetupRouter creates and configures the HTTP router with all routes and middleware
func SetupRouter(cfg Config) http.Handler {
	h := cfg.Handlers
	mux := http.NewServeMux()

	// Report submission and review
	mux.HandleFunc("POST /reports", h.HandleReportCreate)
	mux.HandleFunc("GET /reports", h.HandleReportList)
	mux.HandleFunc("GET /reports/{id}", h.HandleReportGet)

	// Admin decisions and audit trail
	mux.HandleFunc("POST /moderation/decision", h.HandleDecision)
	mux.HandleFunc("GET /moderation/audit", h.HandleAuditLog)

	// Public policy summary
	mux.HandleFunc("GET /moderation/health", h.HandleHealth)

	// Prometheus metrics
	mux.Handle("GET /metrics", promhttp.Handler())

	// Apply middleware in order (outermost first, innermost last)
	var handler http.Handler = mux

	// 1. Limit request body size (innermost - runs first on request)
	handler = middleware.BodyLimit(handler)

	// 2. Lift the gateway identity header into the request context
	handler = auth.Middleware(handler)

	// 3. Apply logging middleware (wraps everything above)
	handler = middleware.LoggingMiddleware(cfg.Logger)(handler)

	// 4. Tracing (outermost) so every request gets a server span
	if cfg.TracingEnabled {
		handler = otelhttp.NewHandler(handler, "modguard")
	}

	return handler
}
