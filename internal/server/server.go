package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Houeta/ems-roster/internal/lib/logger/sl"
)

const (
	readTimeout     = 5 * time.Second
	writeTimeout    = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

// NewMonitoringHandler serves /healthz and the prometheus registry on /metrics.
func NewMonitoringHandler(reg *prometheus.Registry, health http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/healthz", health)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return mux
}

// StartMonitoringServer starts an HTTP server that provides health check and metrics endpoints.
// It blocks until ctx is canceled or the server fails.
//
// Parameters:
// - ctx: A context.Context for managing cancellation and timeouts.
// - log: A logger for logging server events and errors.
// - reg: A registry with Prometheus collectors.
// - health: The health checker served on /healthz.
// - port: The port number on which the server will listen.
func StartMonitoringServer(
	ctx context.Context,
	log *slog.Logger,
	reg *prometheus.Registry,
	health *HealthChecker,
	port int,
) {
	log.InfoContext(ctx, "Starting monitoring server", "port", port)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      NewMonitoringHandler(reg, health),
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	}

	serve(ctx, log.With(slog.String("server", "monitoring")), server)
}

// StartAPIServer serves the roster API until ctx is canceled or the server fails.
func StartAPIServer(ctx context.Context, log *slog.Logger, handler http.Handler, addr string) {
	log.InfoContext(ctx, "Starting API server", "address", addr)

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readTimeout,
	}

	serve(ctx, log.With(slog.String("server", "api")), server)
}

func serve(ctx context.Context, log *slog.Logger, server *http.Server) {
	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		log.InfoContext(ctx, "Server shutting down.")
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.ErrorContext(ctx, "Server failed to shutdown", sl.Err(err))
		}
	case err := <-serverErr:
		if !errors.Is(err, http.ErrServerClosed) {
			log.ErrorContext(ctx, "Server failed", sl.Err(err))
		}
	}
}
