// Package identity resolves the chat session a request belongs to.
package identity

import (
	"context"
	"net"
	"net/http"
	"regexp"
	"strings"

	"github.com/qvu3/bb-chatbot/internal/session"
)

const (
	SessionHeaderName = "X-Session-ID"
	SessionQueryParam = "session_id"
	DefaultSessionID  = session.DefaultID
)

type contextKey int

const sessionIDKey contextKey = iota

var sessionIDPattern = regexp.MustCompile(`^[A-Za-z0-9._:-]{1,128}$`)

// SessionIDFromContext extracts the session ID from the request context.
func SessionIDFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(sessionIDKey).(string); ok {
		return v
	}
	return DefaultSessionID
}

// WithSessionID stores a sanitized session ID in ctx.
func WithSessionID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionIDKey, SanitizeSessionID(id))
}

// SanitizeSessionID returns id, or the default session when id is empty or
// not a safe identifier.
func SanitizeSessionID(id string) string {
	id = strings.TrimSpace(id)
	if id == "" || !sessionIDPattern.MatchString(id) {
		return DefaultSessionID
	}
	return id
}

// ResolveSessionID picks the body value when present, falling back to the
// id the middleware found on the request.
func ResolveSessionID(ctx context.Context, bodyID string) string {
	if strings.TrimSpace(bodyID) != "" {
		return SanitizeSessionID(bodyID)
	}
	return SessionIDFromContext(ctx)
}

func sessionIDFromRequest(r *http.Request) string {
	sid := r.Header.Get(SessionHeaderName)
	if sid == "" {
		sid = r.URL.Query().Get(SessionQueryParam)
	}
	return SanitizeSessionID(sid)
}

// Middleware injects the per-request session ID from the X-Session-ID header
// or the session_id query parameter.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithSessionID(r.Context(), sessionIDFromRequest(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IPFromRequest returns a normalized remote IP for request tracing.
func IPFromRequest(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
