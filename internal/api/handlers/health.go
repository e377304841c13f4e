package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// Pinger is a dependency the health check probes
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check requests
type HealthHandler struct {
	checks map[string]Pinger
	logger *logrus.Logger
}

// NewHealthHandler creates a new health handler probing checks
func NewHealthHandler(checks map[string]Pinger, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{checks: checks, logger: logger}
}

// ServeHTTP handles the health check endpoint
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	response := map[string]string{
		"status": "healthy",
	}
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			h.logger.WithError(err).WithField("dependency", name).Warn("Health check failed")
			response[name] = err.Error()
			response["status"] = "unhealthy"
			status = http.StatusServiceUnavailable
			continue
		}
		response[name] = "ok"
	}

	writeJSON(w, status, response)
}
