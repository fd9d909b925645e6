// Package httpx exposes the run trigger endpoints and health probes over HTTP.
package httpx

import (
	"log/slog"
	"net/http"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Pipeline  PipelineRunner  // Required
	Retention RetentionRunner // Required
	// Optional: dependency probes served on /readyz, keyed by name.
	Checks map[string]HealthCheck
	Logger *slog.Logger
}

// NewRouter creates and configures the HTTP router with logging and panic recovery.
func NewRouter(services RouterServices) http.Handler {
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	mux := http.NewServeMux()

	runs := &RunHandlers{
		Pipeline:  services.Pipeline,
		Retention: services.Retention,
		Logger:    logger.With("component", "http"),
	}
	mux.HandleFunc("POST /api/pipeline/run", runs.RunPipeline)
	mux.HandleFunc("POST /api/retention/run", runs.RunRetention)

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("GET /readyz", readinessHandler(services.Checks))

	return Chain(mux, RequestID(), Logging(logger), Recover(logger))
}
