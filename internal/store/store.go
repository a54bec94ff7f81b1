// Package store opens the configured event store backend.
package store

import (
	"context"
	"fmt"
	"io"

	"eventcal/internal/models"
	"eventcal/internal/store/icsfile"
	"eventcal/internal/store/jsonfile"
	"eventcal/internal/store/memstore"
	"eventcal/internal/store/sqlite"
)

const (
	DriverJSON   = "json"
	DriverICS    = "ics"
	DriverSQLite = "sqlite"
	DriverMemory = "memory"
)

// Drivers lists the accepted driver names.
var Drivers = []string{DriverJSON, DriverICS, DriverSQLite, DriverMemory}

// Backend is an event store that may hold resources until closed.
type Backend interface {
	Load(ctx context.Context) ([]models.Event, error)
	Save(ctx context.Context, events []models.Event) error
	io.Closer
}

// Open returns the backend for driver rooted at path.
func Open(driver, path string) (Backend, error) {
	switch driver {
	case DriverJSON:
		return jsonfile.New(path), nil
	case DriverICS:
		return icsfile.New(path), nil
	case DriverSQLite:
		s, err := sqlite.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store %s: %w", path, err)
		}
		return s, nil
	case DriverMemory:
		return memstore.New(), nil
	}
	return nil, fmt.Errorf("unsupported store driver %q", driver)
}
