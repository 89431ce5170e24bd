package api

import (
	"net/http"

	"sentiment/internal/health"
	"sentiment/internal/job"
	"sentiment/internal/observability"
)

// RouterConfig holds dependencies for the router.
type RouterConfig struct {
	Service       *job.Service
	Metrics       *observability.Metrics
	HealthChecker *health.Checker
	APIKey        string
}

// NewRouter creates a new HTTP router with all routes configured.
func NewRouter(cfg RouterConfig) http.Handler {
	handler := NewHandler(cfg.Service, cfg.HealthChecker)

	mux := http.NewServeMux()

	// Health check endpoints (liveness/readiness probes) - no auth required
	mux.HandleFunc("GET /livez", handler.Livez)
	mux.HandleFunc("GET /readyz", handler.Readyz)

	// Classification endpoints - identity required
	identity := IdentityMiddleware()
	auth := AuthMiddleware(cfg.APIKey)
	protect := func(h http.HandlerFunc) http.Handler {
		return auth(identity(h))
	}
	mux.Handle("POST /v1/classify", protect(handler.Classify))
	mux.Handle("POST /v1/classify/batch", protect(handler.ClassifyBatch))
	mux.Handle("GET /v1/jobs/{jobId}", protect(handler.GetJob))
	mux.Handle("GET /v1/history", protect(handler.History))

	// Apply middleware chain (order matters: outermost first)
	var h http.Handler = mux
	h = ContentTypeMiddleware()(h)
	h = CORSMiddleware()(h)
	if cfg.Metrics != nil {
		h = MetricsMiddleware(cfg.Metrics)(h)
	}
	h = LoggingMiddleware()(h)
	h = RecoveryMiddleware()(h)

	return h
}
