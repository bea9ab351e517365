package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/qvu3/bb-chatbot/internal/store"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	repo       store.Repository
	corpusSize int
	policy     string
	timeout    time.Duration
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(repo store.Repository, corpusSize int, policy string) *HealthHandler {
	return &HealthHandler{repo: repo, corpusSize: corpusSize, policy: policy, timeout: 5 * time.Second}
}

// Health returns the health status of the API and its dependencies.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	checks := map[string]string{"api": "ok"}
	status := map[string]interface{}{
		"status":            "healthy",
		"checks":            checks,
		"faq_entries":       h.corpusSize,
		"escalation_policy": h.policy,
	}
	statusCode := http.StatusOK

	switch err := h.repo.Ping(ctx); {
	case err == nil:
		checks["database"] = "ok"
		if n, err := h.repo.CountEmails(ctx); err == nil {
			status["subscribers"] = n
		} else {
			slog.Warn("Failed to count subscribers", "error", err)
		}
	case errors.Is(err, store.ErrUnavailable):
		checks["database"] = "disabled"
	default:
		slog.Error("Health check failed", "error", err)
		status["status"] = "degraded"
		checks["database"] = "unreachable"
		statusCode = http.StatusServiceUnavailable
	}

	JSON(w, statusCode, status)
}

// RegisterHealth registers the health check route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/health", h.Health)
}
