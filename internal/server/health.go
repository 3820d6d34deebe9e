package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"maps"
	"net/http"
	"slices"
	"time"

	"github.com/Houeta/ems-roster/internal/lib/logger/sl"
	"github.com/Houeta/ems-roster/internal/store"
)

const healthCheckTimeout = 5 * time.Second

// HealthChecker pings every dependency and reports each one by name.
type HealthChecker struct {
	checks map[string]store.Pinger
	log    *slog.Logger
}

func NewHealthChecker(log *slog.Logger, checks map[string]store.Pinger) *HealthChecker {
	return &HealthChecker{
		checks: checks,
		log:    log,
	}
}

func (h *HealthChecker) ServeHTTP(writer http.ResponseWriter, req *http.Request) {
	h.log.DebugContext(req.Context(), "Performing health checks...")

	ctx, cancel := context.WithTimeout(req.Context(), healthCheckTimeout)
	defer cancel()

	status := make(map[string]string, len(h.checks))
	overallStatus := http.StatusOK

	for _, name := range slices.Sorted(maps.Keys(h.checks)) {
		if err := h.checks[name].Ping(ctx); err != nil {
			status[name] = "unavailable"
			overallStatus = http.StatusServiceUnavailable
			h.log.WarnContext(req.Context(), "Health check failed", "dependency", name, sl.Err(err))
			continue
		}
		status[name] = "ok"
	}

	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(overallStatus)
	if err := json.NewEncoder(writer).Encode(status); err != nil {
		h.log.ErrorContext(req.Context(), "Failed to write health check response", sl.Err(err))
	}

	h.log.DebugContext(req.Context(), "Health checks completed", "status", overallStatus)
}
