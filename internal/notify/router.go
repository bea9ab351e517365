package notify

import (
	"context"
	"log/slog"
	"time"
)

// Channel names.
const (
	ChannelWebhook = "webhook"
	ChannelEmail   = "email"
)

// Window is a daily time range [Start, End) expressed as offsets from midnight.
type Window struct {
	Start time.Duration
	End   time.Duration
}

// BusinessHours is a set of daily windows in a fixed location.
type BusinessHours struct {
	Location *time.Location
	Windows  []Window
}

// DefaultBusinessHours is 09:00–12:00 and 13:00–17:30 in loc.
func DefaultBusinessHours(loc *time.Location) BusinessHours {
	return BusinessHours{
		Location: loc,
		Windows: []Window{
			{Start: 9 * time.Hour, End: 12 * time.Hour},
			{Start: 13 * time.Hour, End: 17*time.Hour + 30*time.Minute},
		},
	}
}

// Contains reports whether t falls inside a window.
func (h BusinessHours) Contains(t time.Time) bool {
	if h.Location != nil {
		t = t.In(h.Location)
	}
	offset := time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second
	for _, w := range h.Windows {
		if offset >= w.Start && offset < w.End {
			return true
		}
	}
	return false
}

// Observer is told the outcome of each delivery attempt.
type Observer interface {
	ObserveEscalation(channel string, err error)
}

// Router picks the webhook during business hours and email otherwise. When
// the preferred channel is not configured the other one is used.
type Router struct {
	webhook  Notifier
	email    Notifier
	hours    BusinessHours
	now      func() time.Time
	observer Observer
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithClock overrides the time source.
func WithClock(now func() time.Time) RouterOption {
	return func(r *Router) { r.now = now }
}

// WithObserver reports delivery outcomes.
func WithObserver(o Observer) RouterOption {
	return func(r *Router) { r.observer = o }
}

// NewRouter creates a router. Either notifier may be nil.
func NewRouter(webhook, email Notifier, hours BusinessHours, opts ...RouterOption) *Router {
	r := &Router{webhook: webhook, email: email, hours: hours, now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Route returns the channel name and notifier for time t.
func (r *Router) Route(t time.Time) (string, Notifier) {
	inHours := r.hours.Contains(t)
	switch {
	case inHours && r.webhook != nil:
		return ChannelWebhook, r.webhook
	case !inHours && r.email != nil:
		return ChannelEmail, r.email
	case r.webhook != nil:
		return ChannelWebhook, r.webhook
	case r.email != nil:
		return ChannelEmail, r.email
	default:
		return "", nil
	}
}

// Notify implements Notifier.
func (r *Router) Notify(ctx context.Context, esc Escalation) error {
	channel, n := r.Route(r.now())
	if n == nil {
		slog.Warn("Escalation dropped, no support channel configured", "escalation_id", esc.ID, "session_id", esc.SessionID)
		if r.observer != nil {
			r.observer.ObserveEscalation("none", ErrNoChannel)
		}
		return ErrNoChannel
	}

	err := n.Notify(ctx, esc)
	if r.observer != nil {
		r.observer.ObserveEscalation(channel, err)
	}
	if err != nil {
		return err
	}
	slog.Info("Escalation delivered", "channel", channel, "escalation_id", esc.ID, "session_id", esc.SessionID)
	return nil
}
