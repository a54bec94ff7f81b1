package icloud

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"eventcal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type putRecorder struct {
	mu     sync.Mutex
	bodies map[string]string
	auth   []string
	agents []string
	fail   string
}

func (p *putRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	p.mu.Lock()
	defer p.mu.Unlock()

	user, pass, _ := r.BasicAuth()
	p.auth = append(p.auth, user+":"+pass)
	p.agents = append(p.agents, r.UserAgent())

	if r.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if p.fail != "" && strings.HasSuffix(r.URL.Path, p.fail) {
		w.WriteHeader(http.StatusForbidden)
		return
	}
	p.bodies[r.URL.Path] = string(body)
	w.WriteHeader(http.StatusCreated)
}

func newTestClient(t *testing.T, rec *putRecorder) *CalDAVClient {
	t.Helper()
	srv := httptest.NewServer(rec)
	t.Cleanup(srv.Close)

	httpClient := &http.Client{Transport: &customTransport{
		Username:  "alice",
		Password:  "app-password",
		Transport: http.DefaultTransport,
	}}
	c, err := newClient(httpClient, srv.URL+"/", slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	c.calendarPath = "/alice/calendars/work/"
	return c
}

func TestPublishEvent_PutsICalObject(t *testing.T) {
	rec := &putRecorder{bodies: map[string]string{}}
	c := newTestClient(t, rec)

	err := c.PublishEvent(context.Background(), models.Event{
		ID:          "evt-1",
		Title:       "Standup",
		Description: "daily sync",
		StartTime:   "2024-01-02T09:00",
		EndTime:     "2024-01-02T09:15",
	})
	require.NoError(t, err)

	body, ok := rec.bodies["/alice/calendars/work/evt-1.ics"]
	require.True(t, ok, "unexpected paths: %v", rec.bodies)
	assert.Contains(t, body, "BEGIN:VEVENT")
	assert.Contains(t, body, "UID:evt-1")
	assert.Contains(t, body, "SUMMARY:Standup")
	assert.Equal(t, []string{"alice:app-password"}, rec.auth)
	assert.Equal(t, []string{"eventcal/1.0"}, rec.agents)
}

func TestPublish_ContinuesPastFailures(t *testing.T) {
	rec := &putRecorder{bodies: map[string]string{}, fail: "bad.ics"}
	c := newTestClient(t, rec)

	n, err := c.Publish(context.Background(), []models.Event{
		{ID: "good-1", Title: "a"},
		{ID: "bad", Title: "b"},
		{ID: "good-2", Title: "c"},
	})

	assert.Equal(t, 2, n)
	assert.ErrorContains(t, err, "1 of 3")
	assert.Len(t, rec.bodies, 2)
}
