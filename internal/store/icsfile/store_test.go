package icsfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"eventcal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := New(filepath.Join(dir, "events.ics"))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)

	in := []models.Event{
		{ID: "b", Title: "Second", Description: "x", StartTime: "2024-01-03T10:00", EndTime: "2024-01-03T11:00"},
		{ID: "a", Title: "First", Description: "y", StartTime: "2024-01-02T10:00", EndTime: "2024-01-02T11:00", Email: models.String("a@example.com")},
	}
	require.NoError(t, s.Save(ctx, in))

	got, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, in, got)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must be renamed away")
}

func TestStore_SaveEmptySet(t *testing.T) {
	ctx := context.Background()
	s := New(filepath.Join(t.TempDir(), "events.ics"))

	require.NoError(t, s.Save(ctx, []models.Event{{ID: "a", Title: "x"}}))
	require.NoError(t, s.Save(ctx, nil))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, got)
}
