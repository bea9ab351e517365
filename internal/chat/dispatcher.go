// Package chat decides how each inbound message is handled: contact details
// for a pending escalation, an email opt-in, or a question for the FAQ.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/qvu3/bb-chatbot/internal/answer"
	"github.com/qvu3/bb-chatbot/internal/config"
	"github.com/qvu3/bb-chatbot/internal/extract"
	"github.com/qvu3/bb-chatbot/internal/faq"
	"github.com/qvu3/bb-chatbot/internal/notify"
	"github.com/qvu3/bb-chatbot/internal/session"
	"github.com/qvu3/bb-chatbot/internal/store"
	"github.com/qvu3/bb-chatbot/internal/transcript"
)

// ErrEmptyQuery is returned when the message is empty after trimming.
var ErrEmptyQuery = errors.New("no query provided")

// DiscountCode is handed out on a first-time email opt-in.
const DiscountCode = "BBTPOFF5"

// Branches label how a turn was handled in logs, metrics and transcripts.
const (
	BranchContactForwarded = "contact_forwarded"
	BranchContactDeclined  = "contact_declined"
	BranchContactRequested = "contact_rerequested"
	BranchEmailSaved       = "email_saved"
	BranchEmailExisting    = "email_existing"
	BranchAnswered         = "answered"
	BranchAwaitingContact  = "awaiting_contact"
	BranchEscalated        = "escalated"
)

// Reply texts.
const (
	SubscribedReply    = "Thank you for subscribing! Here is your 5% discount code: " + DiscountCode
	AlreadySubscribed  = "It looks like you're already subscribed. Thank you for staying in touch!"
	AskContactReply    = "I'm sorry, I don't have an answer for that yet. If you share your name and email, I'll forward your question to our support team."
	DeclinedReply      = "No problem. Without your contact information we aren't able to forward your question to our support team."
	RerequestReply     = "Please share both your name and your email address so our support team can get back to you."
	AutoEscalatedReply = "I'm sorry, I don't have an answer for that yet. I've forwarded your question to our support team and they'll follow up soon."

	forwardedReplyFmt = "Thanks, %s! Your question has been forwarded to our support team. They'll reach out to you at %s."
)

// Email capture outcomes.
const (
	EmailSaved    = "saved"
	EmailExisting = "already_present"
	EmailFailed   = "error"
)

// Phrases that mean the user will not share contact details. "no" is matched
// as a whole word.
var (
	declinePhrases = []string{"don't want to share", "dont want to share", "do not want to share", "rather not"}
	declineWord    = regexp.MustCompile(`(?i)\bno\b`)
)

// Reply is the outbound message for one turn.
type Reply struct {
	Answer string   `json:"answer"`
	URLs   []string `json:"urls,omitempty"`
}

// Observer receives turn metrics.
type Observer interface {
	ObserveTurn(branch string, d time.Duration)
	ObserveEmailCapture(outcome string)
}

// Transcript receives transcript events.
type Transcript interface {
	Log(ev transcript.Event)
}

// Dispatcher handles turns. All collaborators are injected.
type Dispatcher struct {
	sessions session.Store
	answerer answer.Answerer
	corpus   faq.Corpus
	emails   store.Repository
	notifier notify.Notifier
	policy   string

	observer   Observer
	transcript Transcript
	logger     *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithPolicy sets the escalation policy. Unknown values keep the default.
func WithPolicy(policy string) Option {
	return func(d *Dispatcher) {
		if policy == config.PolicyAuto || policy == config.PolicyCollectContact {
			d.policy = policy
		}
	}
}

// WithObserver records turn metrics.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) { d.observer = o }
}

// WithTranscript records every message.
func WithTranscript(t Transcript) Option {
	return func(d *Dispatcher) { d.transcript = t }
}

// WithLogger overrides slog.Default.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// NewDispatcher creates a dispatcher. A nil repository disables email
// persistence and a nil notifier drops escalations.
func NewDispatcher(sessions session.Store, answerer answer.Answerer, corpus faq.Corpus, emails store.Repository, notifier notify.Notifier, opts ...Option) *Dispatcher {
	if emails == nil {
		emails = store.Disabled{}
	}
	d := &Dispatcher{
		sessions: sessions,
		answerer: answerer,
		corpus:   corpus,
		emails:   emails,
		notifier: notifier,
		policy:   config.PolicyCollectContact,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Policy returns the active escalation policy.
func (d *Dispatcher) Policy() string { return d.policy }

// HandleTurn produces the reply to one message. It returns ErrEmptyQuery for
// a blank message and the context error when ctx ends while the turn waits
// for its session. Every collaborator fault degrades to a reply.
func (d *Dispatcher) HandleTurn(ctx context.Context, sessionID, text string) (Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Reply{}, ErrEmptyQuery
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		sessionID = session.DefaultID
	}

	start := time.Now()
	meta := metaFrom(ctx)
	d.record(sessionID, meta, transcript.Inbound, "", text, nil)

	reply, branch, err := d.decide(ctx, sessionID, text)
	if err != nil {
		d.logger.Warn("Turn abandoned", "session_id", sessionID, "request_id", meta.RequestID, "error", err)
		return Reply{}, err
	}

	if d.observer != nil {
		d.observer.ObserveTurn(branch, time.Since(start))
	}
	d.logger.Info("Turn handled",
		"session_id", sessionID,
		"request_id", meta.RequestID,
		"channel", meta.Channel,
		"branch", branch,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	d.record(sessionID, meta, transcript.Outbound, branch, reply.Answer, reply.URLs)
	return reply, nil
}

// decide runs the branches in order. The session lock covers state
// transitions only; opt-ins and answer generation run without it.
func (d *Dispatcher) decide(ctx context.Context, sessionID, text string) (Reply, string, error) {
	unlock, err := d.sessions.Lock(ctx, sessionID)
	if err != nil {
		return Reply{}, "", fmt.Errorf("lock session: %w", err)
	}
	if state := d.sessions.Get(sessionID); state.AwaitingContact {
		defer unlock()
		reply, branch := d.handleContact(ctx, sessionID, state, text)
		return reply, branch, nil
	}
	unlock()

	if email, ok := extract.Email(text); ok {
		reply, branch := d.handleOptIn(ctx, sessionID, email)
		return reply, branch, nil
	}
	reply, branch := d.handleQuestion(ctx, sessionID, text)
	return reply, branch, nil
}

func (d *Dispatcher) handleContact(ctx context.Context, sessionID string, state session.State, text string) (Reply, string) {
	name, hasName := extract.Name(text)
	email, hasEmail := extract.Email(text)

	switch {
	case hasName && hasEmail:
		d.escalate(ctx, notify.NewEscalation(sessionID, state.PendingQuery, name, email))
		d.sessions.Clear(sessionID)
		return Reply{Answer: fmt.Sprintf(forwardedReplyFmt, name, email)}, BranchContactForwarded
	case isDecline(text):
		d.sessions.Clear(sessionID)
		return Reply{Answer: DeclinedReply}, BranchContactDeclined
	default:
		return Reply{Answer: RerequestReply}, BranchContactRequested
	}
}

func (d *Dispatcher) handleOptIn(ctx context.Context, sessionID, email string) (Reply, string) {
	result, err := d.emails.SaveEmail(ctx, email)
	switch {
	case err != nil:
		if errors.Is(err, store.ErrUnavailable) {
			d.logger.Warn("Email opt-in not stored, persistence disabled", "session_id", sessionID)
		} else {
			d.logger.Error("Failed to store email", "session_id", sessionID, "error", err)
		}
		d.observeEmail(EmailFailed)
		return Reply{Answer: AlreadySubscribed}, BranchEmailExisting
	case result == store.Saved:
		d.observeEmail(EmailSaved)
		return Reply{Answer: SubscribedReply}, BranchEmailSaved
	default:
		d.observeEmail(EmailExisting)
		return Reply{Answer: AlreadySubscribed}, BranchEmailExisting
	}
}

func (d *Dispatcher) handleQuestion(ctx context.Context, sessionID, query string) (Reply, string) {
	text := d.answerer.Answer(ctx, query, d.corpus)
	if !answer.IsUnresolved(text) {
		return Reply{Answer: text, URLs: extract.URLs(text)}, BranchAnswered
	}

	if d.policy == config.PolicyAuto {
		d.escalate(ctx, notify.NewEscalation(sessionID, query, "", ""))
		return Reply{Answer: AutoEscalatedReply}, BranchEscalated
	}
	d.awaitContact(ctx, sessionID, query)
	return Reply{Answer: AskContactReply}, BranchAwaitingContact
}

// awaitContact stores query as pending unless another turn already did.
func (d *Dispatcher) awaitContact(ctx context.Context, sessionID, query string) {
	unlock, err := d.sessions.Lock(context.WithoutCancel(ctx), sessionID)
	if err != nil {
		return
	}
	defer unlock()
	if d.sessions.Get(sessionID).AwaitingContact {
		d.logger.Debug("Pending question kept", "session_id", sessionID)
		return
	}
	d.sessions.Set(sessionID, session.AwaitContact(query))
}

func isDecline(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range declinePhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return declineWord.MatchString(text)
}

// escalate reports the outcome of a notification but never fails the turn.
func (d *Dispatcher) escalate(ctx context.Context, esc notify.Escalation) {
	if d.notifier == nil {
		d.logger.Warn("Escalation dropped, notifier not configured", "escalation_id", esc.ID, "session_id", esc.SessionID)
		return
	}
	if err := d.notifier.Notify(ctx, esc); err != nil {
		d.logger.Error("Failed to escalate question", "escalation_id", esc.ID, "session_id", esc.SessionID, "error", err)
		return
	}
	d.logger.Info("Escalation queued", "escalation_id", esc.ID, "session_id", esc.SessionID, "with_contact", esc.Email != "")
}

func (d *Dispatcher) observeEmail(outcome string) {
	if d.observer != nil {
		d.observer.ObserveEmailCapture(outcome)
	}
}

func (d *Dispatcher) record(sessionID string, meta Meta, direction, branch, text string, urls []string) {
	if d.transcript == nil {
		return
	}
	channel := meta.Channel
	if channel == "" {
		channel = "unknown"
	}
	d.transcript.Log(transcript.Event{
		SessionID: sessionID,
		RequestID: meta.RequestID,
		Channel:   channel,
		Direction: direction,
		Branch:    branch,
		Text:      text,
		URLs:      urls,
	})
}
