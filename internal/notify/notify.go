// Package notify sends best-effort email notifications about todo changes.
//
// Delivery is fire-and-forget: a Notify call returns immediately, the send
// runs in its own goroutine bounded by a timeout, and every failure is
// logged and dropped. Nothing here ever returns an error to the caller.
package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Action labels a change in the message subject and body.
type Action string

const (
	ActionCompleted       Action = "Task Completed"
	ActionReopened        Action = "Task Reopened"
	ActionUpdated         Action = "Task Updated"
	ActionDeadlineUpdated Action = "Deadline Updated"
)

const (
	subjectPrefix = "Todo: "
	footer        = "This is an automated message from your Todo app."

	defaultTimeout = 10 * time.Second
)

// Notification describes one change. Details is optional.
type Notification struct {
	Action  Action
	Task    string
	Details string
}

// Message is a composed plain-text email.
type Message struct {
	From    string
	To      string
	Subject string
	Body    string
}

// Sender delivers one message. Implementations must honor ctx cancellation.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Notifier is what the service layer depends on.
type Notifier interface {
	Notify(n Notification)
}

// Dispatcher guards, composes and dispatches notifications.
type Dispatcher struct {
	sender  Sender
	from    string
	to      string
	timeout time.Duration
	log     zerolog.Logger

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher returns a Dispatcher sending from -> to through sender.
// A zero timeout falls back to 10s.
func NewDispatcher(sender Sender, from, to string, timeout time.Duration, log zerolog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Dispatcher{
		sender:  sender,
		from:    strings.TrimSpace(from),
		to:      strings.TrimSpace(to),
		timeout: timeout,
		log:     log.With().Str("component", "notify").Logger(),
	}
}

// Configured reports whether both a sender identity and a recipient are set.
func (d *Dispatcher) Configured() bool {
	return d != nil && d.sender != nil && d.from != "" && d.to != ""
}

// Notify schedules n for delivery and returns immediately.
func (d *Dispatcher) Notify(n Notification) {
	if d == nil {
		return
	}
	if !d.Configured() {
		d.log.Debug().
			Str("action", string(n.Action)).
			Msg("notifications not configured, skipping")
		return
	}

	msg := Compose(d.from, d.to, n)

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.log.Warn().
			Str("action", string(n.Action)).
			Msg("dispatcher stopped, dropping notification")
		return
	}
	d.wg.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.log.Error().
					Interface("panic", r).
					Str("action", string(n.Action)).
					Msg("notification sender panicked")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.sender.Send(ctx, msg); err != nil {
			d.log.Warn().
				Err(err).
				Str("action", string(n.Action)).
				Msg("failed to send notification")
			return
		}
		d.log.Info().
			Str("action", string(n.Action)).
			Str("to", d.to).
			Msg("sent notification")
	}()
}

// Wait stops accepting notifications and blocks until in-flight ones
// finish or ctx is done.
func (d *Dispatcher) Wait(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Compose renders n with the fixed plain-text template.
func Compose(from, to string, n Notification) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", n.Action)
	fmt.Fprintf(&b, "Task: %s\n", n.Task)
	if n.Details != "" {
		fmt.Fprintf(&b, "Details: %s\n", n.Details)
	}
	fmt.Fprintf(&b, "\n--\n%s\n", footer)

	return Message{
		From:    from,
		To:      to,
		Subject: subjectPrefix + string(n.Action),
		Body:    b.String(),
	}
}
