package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// Async delivers escalations in the background. Notify never blocks on the
// delivery and never returns its error; failures are logged once and dropped.
type Async struct {
	next    Notifier
	timeout time.Duration
	sem     *semaphore.Weighted
	wg      sync.WaitGroup
}

// NewAsync wraps next. At most maxInflight deliveries run at once and each is
// bounded by timeout.
func NewAsync(next Notifier, timeout time.Duration, maxInflight int) *Async {
	if maxInflight <= 0 {
		maxInflight = 1
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Async{
		next:    next,
		timeout: timeout,
		sem:     semaphore.NewWeighted(int64(maxInflight)),
	}
}

// Notify implements Notifier.
func (a *Async) Notify(ctx context.Context, esc Escalation) error {
	// The request context ends when the reply is written.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer cancel()

		if err := a.sem.Acquire(ctx, 1); err != nil {
			slog.Error("Escalation not sent, notifier saturated", "escalation_id", esc.ID, "error", err)
			return
		}
		defer a.sem.Release(1)

		if err := a.next.Notify(ctx, esc); err != nil {
			slog.Error("Failed to send escalation", "escalation_id", esc.ID, "session_id", esc.SessionID, "error", err)
		}
	}()
	return nil
}

// Wait blocks until in-flight deliveries finish or ctx is done.
func (a *Async) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
