package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"eventcal/internal/events"
	"eventcal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func runApp(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ErrWriter = &out
	err := app.Run(append([]string{"eventcal", "--env-file", filepath.Join(t.TempDir(), "missing.env")}, args...))
	return out.String(), err
}

func setupStore(t *testing.T) {
	t.Helper()
	t.Setenv("STORE_DRIVER", "json")
	t.Setenv("STORE_PATH", filepath.Join(t.TempDir(), "events.json"))
	t.Setenv("EMAIL_HOST", "")
	t.Setenv("LOG_LEVEL", "error")
}

func TestCLI_EventLifecycle(t *testing.T) {
	setupStore(t)

	out, err := runApp(t, "create",
		"--title", "Standup", "--description", "daily sync",
		"--start", "2024-01-02T09:00:00Z", "--end", "2024-01-02T09:15:00Z",
		"--email", "team@example.com")
	require.NoError(t, err)

	var created map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &created))
	id, _ := created["id"].(string)
	require.NotEmpty(t, id)
	assert.Equal(t, "team@example.com", created["email"])
	assert.Nil(t, created["recurrence"])

	out, err = runApp(t, "update", "--title", "Daily standup", "--clear-email", id)
	require.NoError(t, err)
	var updated map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &updated))
	assert.Equal(t, "Daily standup", updated["title"])
	assert.Equal(t, "daily sync", updated["description"])
	assert.Nil(t, updated["email"])

	out, err = runApp(t, "--output", "yaml", "search", "daily")
	require.NoError(t, err)
	var found []map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &found))
	require.Len(t, found, 1)
	assert.Equal(t, id, found[0]["id"])

	_, err = runApp(t, "delete", id)
	require.NoError(t, err)

	_, err = runApp(t, "get", id)
	assert.ErrorIs(t, err, events.ErrNotFound)
}

func TestCLI_CreateMissingField(t *testing.T) {
	setupStore(t)

	_, err := runApp(t, "create", "--title", "Standup", "--start", "2024-01-02T09:00:00Z")
	require.ErrorIs(t, err, events.ErrValidation)

	var verr *events.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, models.FieldDescription, verr.Field)
}

func TestCLI_GetRequiresID(t *testing.T) {
	setupStore(t)

	_, err := runApp(t, "get")
	assert.ErrorContains(t, err, "missing <id>")
}

func TestPrintResult(t *testing.T) {
	event := models.Event{ID: "1", Title: "Standup", StartTime: "2024-01-02T09:00:00Z", Recurrence: models.String("FREQ=DAILY")}

	var buf bytes.Buffer
	require.NoError(t, printResult(&buf, formatYAML, []models.Event{event}))
	assert.Contains(t, buf.String(), "recurrence: FREQ=DAILY")
	assert.Contains(t, buf.String(), "email: null")

	buf.Reset()
	require.NoError(t, printResult(&buf, formatJSON, event))
	assert.JSONEq(t, `{"id":"1","title":"Standup","description":"","start_time":"2024-01-02T09:00:00Z","end_time":"","recurrence":"FREQ=DAILY","email":null}`, buf.String())

	assert.ErrorContains(t, printResult(&buf, "xml", event), "unknown output format")
}
