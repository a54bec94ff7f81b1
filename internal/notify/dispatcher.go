// Package notify sends best-effort email about event changes.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"eventcal/internal/models"
)

// Sender delivers one message. Implementations handle their own failures.
type Sender interface {
	Send(ctx context.Context, to, subject, body string)
}

type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
)

// Dispatcher runs sends in the background. A nil Dispatcher is valid and does
// nothing.
type Dispatcher struct {
	sender  Sender
	logger  *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewDispatcher(sender Sender, logger *slog.Logger, timeout time.Duration) *Dispatcher {
	return &Dispatcher{sender: sender, logger: logger, timeout: timeout}
}

// EventChanged schedules a notification to the event's email address, if it
// has one, and returns immediately.
func (d *Dispatcher) EventChanged(action Action, event models.Event) {
	if d == nil || d.sender == nil || !event.HasEmail() {
		return
	}
	to := *event.Email
	subject, body := Compose(action, event)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				d.logger.Error("Notification sender panicked", "event", event.ID, "panic", r)
			}
		}()

		ctx := context.Background()
		if d.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, d.timeout)
			defer cancel()
		}
		d.sender.Send(ctx, to, subject, body)
	}()
}

// Wait blocks until all scheduled notifications have finished.
func (d *Dispatcher) Wait() {
	if d == nil {
		return
	}
	d.wg.Wait()
}

// Compose builds the subject and plain-text body for an event notification.
func Compose(action Action, event models.Event) (string, string) {
	subject := fmt.Sprintf("Event %s: %s", action, event.Title)

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", event.Title)
	if event.Description != "" {
		fmt.Fprintf(&b, "%s\n\n", event.Description)
	}
	fmt.Fprintf(&b, "Start: %s\n", event.StartTime)
	fmt.Fprintf(&b, "End:   %s\n", event.EndTime)
	if event.Recurrence != nil && *event.Recurrence != "" {
		fmt.Fprintf(&b, "Repeats: %s\n", *event.Recurrence)
	}
	return subject, b.String()
}
