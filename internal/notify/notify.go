// Package notify forwards unanswered questions to a human support channel.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNoChannel is returned when no notification channel is configured.
var ErrNoChannel = errors.New("no support notification channel configured")

// Escalation is an unanswered question headed for support.
// Name and Email are empty when the user was not asked for contact details.
type Escalation struct {
	ID        string    `json:"escalation_id"`
	SessionID string    `json:"session_id"`
	Query     string    `json:"query"`
	Name      string    `json:"name,omitempty"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// NewEscalation stamps a new escalation with an id and creation time.
func NewEscalation(sessionID, query, name, email string) Escalation {
	return Escalation{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Query:     query,
		Name:      name,
		Email:     email,
		CreatedAt: time.Now().UTC(),
	}
}

// Summary renders the escalation as plain text for humans.
func (e Escalation) Summary() string {
	var b strings.Builder
	b.WriteString("A chatbot user asked a question that could not be answered.\n\n")
	fmt.Fprintf(&b, "Question: %s\n", e.Query)
	if e.Name != "" {
		fmt.Fprintf(&b, "Name: %s\n", e.Name)
	}
	if e.Email != "" {
		fmt.Fprintf(&b, "Email: %s\n", e.Email)
	}
	fmt.Fprintf(&b, "Session: %s\n", e.SessionID)
	fmt.Fprintf(&b, "Reference: %s\n", e.ID)
	fmt.Fprintf(&b, "Received: %s\n", e.CreatedAt.Format(time.RFC1123))
	return b.String()
}

// Notifier delivers an escalation to support.
type Notifier interface {
	Notify(ctx context.Context, esc Escalation) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, esc Escalation) error

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, esc Escalation) error {
	return f(ctx, esc)
}
