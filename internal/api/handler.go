// Package api provides HTTP handlers for the chatbot.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/qvu3/bb-chatbot/internal/chat"
	"github.com/qvu3/bb-chatbot/internal/identity"
)

// NoQueryMessage is the answer returned with 400 when the query is missing.
const NoQueryMessage = "Error: No query provided."

// IndexMessage is served at the root as a liveness banner.
const IndexMessage = "Chatbot backend is running."

const maxRequestBody = 64 << 10

// TurnHandler answers one message for a session.
type TurnHandler interface {
	HandleTurn(ctx context.Context, sessionID, text string) (chat.Reply, error)
}

// Handler serves the chat endpoints.
type Handler struct {
	turns TurnHandler
}

// NewHandler creates a new Handler.
func NewHandler(turns TurnHandler) *Handler {
	return &Handler{turns: turns}
}

// askRequest is the POST /ask body.
type askRequest struct {
	Query     string `json:"query"`
	SessionID string `json:"session_id,omitempty"`
}

// answerResponse is the POST /ask reply.
type answerResponse struct {
	Answer string   `json:"answer"`
	URLs   []string `json:"urls,omitempty"`
}

// RegisterRoutes registers the chat routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Index)
	r.Post("/ask", h.Ask)
}

// Index reports that the backend is up.
func (h *Handler) Index(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(IndexMessage))
}

// Ask handles one chat turn.
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Debug("Rejecting unreadable ask body", "error", err)
		JSON(w, http.StatusBadRequest, answerResponse{Answer: NoQueryMessage})
		return
	}

	sessionID := identity.ResolveSessionID(r.Context(), req.SessionID)
	ctx := chat.WithMeta(r.Context(), chat.Meta{
		RequestID: chiMiddleware.GetReqID(r.Context()),
		Channel:   "http",
	})

	reply, err := h.turns.HandleTurn(ctx, sessionID, req.Query)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyQuery) {
			JSON(w, http.StatusBadRequest, answerResponse{Answer: NoQueryMessage})
			return
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			Error(w, http.StatusServiceUnavailable, "request cancelled")
			return
		}
		slog.Error("Turn failed", "session_id", sessionID, "error", err)
		Error(w, http.StatusInternalServerError, "internal error")
		return
	}

	JSON(w, http.StatusOK, answerResponse{Answer: reply.Answer, URLs: reply.URLs})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("Failed to encode response", "error", err)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}
