package notify

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"eventcal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type message struct {
	to, subject, body string
}

type recordingSender struct {
	mu    sync.Mutex
	sent  []message
	block chan struct{}
	panic bool
}

func (r *recordingSender) Send(_ context.Context, to, subject, body string) {
	if r.block != nil {
		<-r.block
	}
	if r.panic {
		panic("smtp exploded")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, message{to, subject, body})
}

func event(email *string) models.Event {
	return models.Event{
		ID:          "evt-1",
		Title:       "Standup",
		Description: "daily sync",
		StartTime:   "2024-01-02T09:00",
		EndTime:     "2024-01-02T09:15",
		Email:       email,
	}
}

func TestDispatcher_SendsToEventEmail(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, slog.New(slog.DiscardHandler), time.Second)

	d.EventChanged(ActionCreated, event(models.String("me@example.com")))
	d.Wait()

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "me@example.com", sender.sent[0].to)
	assert.Equal(t, "Event created: Standup", sender.sent[0].subject)
	assert.Contains(t, sender.sent[0].body, "Start: 2024-01-02T09:00")
}

func TestDispatcher_SkipsEventsWithoutEmail(t *testing.T) {
	sender := &recordingSender{}
	d := NewDispatcher(sender, slog.New(slog.DiscardHandler), 0)

	d.EventChanged(ActionUpdated, event(nil))
	d.EventChanged(ActionUpdated, event(models.String("")))
	d.Wait()

	assert.Empty(t, sender.sent)
}

func TestDispatcher_DoesNotBlockCaller(t *testing.T) {
	sender := &recordingSender{block: make(chan struct{})}
	d := NewDispatcher(sender, slog.New(slog.DiscardHandler), 0)

	returned := make(chan struct{})
	go func() {
		d.EventChanged(ActionCreated, event(models.String("me@example.com")))
		close(returned)
	}()

	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("EventChanged blocked on the sender")
	}
	close(sender.block)
	d.Wait()
	assert.Len(t, sender.sent, 1)
}

func TestDispatcher_ContainsPanics(t *testing.T) {
	d := NewDispatcher(&recordingSender{panic: true}, slog.New(slog.DiscardHandler), 0)

	d.EventChanged(ActionCreated, event(models.String("me@example.com")))
	d.Wait()
}

func TestDispatcher_NilIsNoop(t *testing.T) {
	var d *Dispatcher
	d.EventChanged(ActionCreated, event(models.String("me@example.com")))
	d.Wait()
}

func TestCompose(t *testing.T) {
	e := event(nil)
	e.Recurrence = models.String("FREQ=DAILY")

	subject, body := Compose(ActionUpdated, e)

	assert.Equal(t, "Event updated: Standup", subject)
	assert.Contains(t, body, "daily sync")
	assert.Contains(t, body, "End:   2024-01-02T09:15")
	assert.Contains(t, body, "Repeats: FREQ=DAILY")
}
