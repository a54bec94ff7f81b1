package store

import (
	"context"
	"path/filepath"
	"testing"

	"eventcal/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_AllDriversRoundTrip(t *testing.T) {
	files := map[string]string{
		DriverJSON:   "events.json",
		DriverICS:    "events.ics",
		DriverSQLite: "events.db",
		DriverMemory: "",
	}
	in := []models.Event{
		{ID: "1", Title: "Standup", Description: "daily sync", StartTime: "2024-01-02T09:00", EndTime: "2024-01-02T09:15"},
		{ID: "2", Title: "Retro", Description: "", StartTime: "2024-01-01T09:00", EndTime: "2024-01-01T10:00", Recurrence: models.String("FREQ=WEEKLY"), Email: models.String("r@example.com")},
		{ID: "3", Title: "line1\r\nline2", Description: "a\rb", StartTime: "2024-01-03T09:00", EndTime: "2024-01-03T10:00", Recurrence: models.String("RRULE:FREQ=WEEKLY\nEXDATE:20240109T100000Z")},
		{ID: "4", Title: "Planning", Description: "quarterly", StartTime: "2024-01-04T09:00", EndTime: "2024-01-04T10:00", Recurrence: models.String(`{"freq":"weekly","interval":1}`)},
	}

	for _, driver := range Drivers {
		t.Run(driver, func(t *testing.T) {
			ctx := context.Background()
			b, err := Open(driver, filepath.Join(t.TempDir(), files[driver]))
			require.NoError(t, err)
			defer b.Close()

			require.NoError(t, b.Save(ctx, in))
			got, err := b.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, in, got)
		})
	}
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open("csv", "x")
	assert.ErrorContains(t, err, "unsupported")
}
