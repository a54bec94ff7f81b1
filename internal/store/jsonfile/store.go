package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"eventcal/internal/models"
)

// Store keeps the event set as a JSON array in a single file.
type Store struct {
	path string
}

// New returns a Store for path. The file is created on first save.
func New(path string) *Store {
	return &Store{path: path}
}

// Load reads the event set. A missing or empty file is an empty set.
func (s *Store) Load(_ context.Context) ([]models.Event, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []models.Event{}, nil
		}
		return nil, err
	}
	if len(data) == 0 {
		return []models.Event{}, nil
	}

	var events []models.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.path, err)
	}
	if events == nil {
		events = []models.Event{}
	}
	return events, nil
}

// Save replaces the file contents with events, writing a temp file first.
func (s *Store) Save(_ context.Context, events []models.Event) error {
	if events == nil {
		events = []models.Event{}
	}
	data, err := json.MarshalIndent(events, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal events: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func (s *Store) Close() error { return nil }
