package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/qvu3/bb-chatbot/internal/chat"
	"github.com/qvu3/bb-chatbot/internal/identity"
)

const (
	wsReadLimit    = 64 << 10
	wsWriteTimeout = 5 * time.Second
)

// ChatSocketHandler serves chat turns over a WebSocket.
type ChatSocketHandler struct {
	turns          TurnHandler
	conns          *ConnManager
	allowedOrigins []string
}

// NewChatSocketHandler creates a new WebSocket chat handler.
func NewChatSocketHandler(turns TurnHandler, conns *ConnManager, allowedOrigins []string) *ChatSocketHandler {
	return &ChatSocketHandler{turns: turns, conns: conns, allowedOrigins: allowedOrigins}
}

// wsMessage is an inbound frame.
type wsMessage struct {
	Type      string `json:"type"`
	Query     string `json:"query,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// wsReply is an outbound frame.
type wsReply struct {
	Type   string   `json:"type"`
	Answer string   `json:"answer,omitempty"`
	URLs   []string `json:"urls,omitempty"`
	Error  string   `json:"error,omitempty"`
}

// ServeHTTP implements http.Handler for WebSocket upgrade.
func (h *ChatSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID := identity.SessionIDFromContext(r.Context())
	requestID := chiMiddleware.GetReqID(r.Context())
	slog.Info("WebSocket connection request", "session_id", sessionID, "ip", identity.IPFromRequest(r))

	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		slog.Error("Failed to accept WebSocket", "error", err, "session_id", sessionID)
		return
	}
	defer func() {
		if closeErr := ws.Close(websocket.StatusNormalClosure, "session ended"); closeErr != nil {
			slog.Debug("Failed to close websocket", "error", closeErr, "session_id", sessionID)
		}
	}()
	ws.SetReadLimit(wsReadLimit)

	h.conns.Register(sessionID, ws)
	defer h.conns.Unregister(sessionID, ws)

	ctx := chat.WithMeta(r.Context(), chat.Meta{RequestID: requestID, Channel: "websocket"})
	h.readLoop(ctx, ws, sessionID)
	slog.Info("Chat socket ended", "session_id", sessionID)
}

func (h *ChatSocketHandler) readLoop(ctx context.Context, ws *websocket.Conn, sessionID string) {
	for {
		_, data, err := ws.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 || errors.Is(err, context.Canceled) {
				slog.Debug("WebSocket closed", "session_id", sessionID)
			} else {
				slog.Warn("WebSocket read error", "error", err, "session_id", sessionID)
			}
			return
		}

		var msg wsMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			if err := h.write(ctx, ws, wsReply{Type: "error", Error: "invalid_message"}); err != nil {
				return
			}
			continue
		}

		var reply wsReply
		switch msg.Type {
		case "ask":
			reply = h.ask(ctx, sessionID, msg)
		case "ping":
			reply = wsReply{Type: "pong"}
		default:
			reply = wsReply{Type: "error", Error: "unknown_message_type"}
		}
		if err := h.write(ctx, ws, reply); err != nil {
			slog.Debug("WebSocket write error", "error", err, "session_id", sessionID)
			return
		}
	}
}

func (h *ChatSocketHandler) ask(ctx context.Context, connSessionID string, msg wsMessage) wsReply {
	sessionID := connSessionID
	if msg.SessionID != "" {
		sessionID = identity.SanitizeSessionID(msg.SessionID)
	}

	reply, err := h.turns.HandleTurn(ctx, sessionID, msg.Query)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyQuery) {
			return wsReply{Type: "error", Error: NoQueryMessage}
		}
		slog.Error("Turn failed", "session_id", sessionID, "error", err)
		return wsReply{Type: "error", Error: "internal_error"}
	}
	return wsReply{Type: "answer", Answer: reply.Answer, URLs: reply.URLs}
}

func (h *ChatSocketHandler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range h.allowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}
	slog.Warn("WebSocket origin rejected", "origin", origin)
	return false
}

func (h *ChatSocketHandler) write(ctx context.Context, ws *websocket.Conn, v wsReply) error {
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, ws, v)
}
