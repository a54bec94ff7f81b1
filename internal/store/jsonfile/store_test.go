package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"eventcal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_MissingFileIsEmpty(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "events.json"))

	got, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "events.json")
	s := New(path)

	in := []models.Event{
		{ID: "2", Title: "b", Description: "second", StartTime: "2024-01-03T10:00", EndTime: "2024-01-03T11:00", Email: models.String("x@example.com")},
		{ID: "1", Title: "a", Description: "", StartTime: "2024-01-02T10:00", EndTime: "2024-01-02T11:00", Recurrence: models.String("FREQ=DAILY;COUNT=2")},
	}
	require.NoError(t, s.Save(ctx, in))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, in, got)

	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestStore_SaveEmptyWritesArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")
	require.NoError(t, New(path).Save(context.Background(), nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := New(path).Load(context.Background())
	assert.ErrorContains(t, err, "decode")
}
