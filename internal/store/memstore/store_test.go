package memstore

import (
	"context"
	"testing"

	"eventcal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_CopiesOnLoadAndSave(t *testing.T) {
	ctx := context.Background()
	s := New(models.Event{ID: "1", Title: "seed"})

	got, err := s.Load(ctx)
	require.NoError(t, err)
	got[0].Title = "mutated"

	again, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "seed", again[0].Title)

	in := []models.Event{{ID: "2"}}
	require.NoError(t, s.Save(ctx, in))
	in[0].ID = "changed"

	again, err = s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2", again[0].ID)
}
