// Package health provides health check handlers for the tweet filter monitor
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Nexora-Open-Source/tweet-filter/middleware"
	"github.com/sirupsen/logrus"
)

// HealthStatus represents the health check response structure
type HealthStatus struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Version   string            `json:"version"`
	Services  map[string]string `json:"services"`
	Uptime    string            `json:"uptime"`
}

// UpstreamChecker reports the health of the remote filter service
type UpstreamChecker interface {
	Health(ctx context.Context) (string, error)
}

// Handler contains dependencies for health handlers
type Handler struct {
	Upstream UpstreamChecker
	Logger   *logrus.Logger
	Version  string
	Timeout  time.Duration
}

// NewHandler creates a new health handler
func NewHandler(upstream UpstreamChecker, logger *logrus.Logger, version string) *Handler {
	return &Handler{
		Upstream: upstream,
		Logger:   logger,
		Version:  version,
		Timeout:  5 * time.Second,
	}
}

// HandleHealthCheck provides a health check endpoint for monitoring
func (h *Handler) HandleHealthCheck(w http.ResponseWriter, r *http.Request) {
	health := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().Format(time.RFC3339),
		Version:   h.Version,
		Services:  make(map[string]string),
		Uptime:    time.Since(startTime).String(),
	}

	status, err := h.checkUpstream(r.Context())
	if err != nil {
		health.Status = "degraded"
		health.Services["filter_service"] = "unhealthy: " + err.Error()
		h.Logger.WithFields(logrus.Fields{
			"service": "filter_service",
			"error":   err.Error(),
		}).Error("Health check failed for filter service")
	} else {
		health.Services["filter_service"] = status
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(health)
}

// HandleLivenessCheck provides a simple liveness probe
func (h *Handler) HandleLivenessCheck(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"status":    "alive",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(startTime).String(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// HandleReadinessCheck reports ready only while the filter service answers
func (h *Handler) HandleReadinessCheck(w http.ResponseWriter, r *http.Request) {
	if _, err := h.checkUpstream(r.Context()); err != nil {
		middleware.RespondServiceUnavailable(w, err, middleware.RequestID(r))
		return
	}

	response := map[string]interface{}{
		"status":    "ready",
		"timestamp": time.Now().Format(time.RFC3339),
		"services": map[string]string{
			"filter_service": "ready",
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// checkUpstream returns the status string of the filter service; any
// successful answer counts as healthy
func (h *Handler) checkUpstream(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, h.Timeout)
	defer cancel()

	return h.Upstream.Health(ctx)
}

var startTime = time.Now()
