package memstore

import (
	"context"
	"sync"

	"eventcal/internal/models"
)

// Store holds the event set in memory. Load and Save copy the slice so callers
// never share backing arrays with the store.
type Store struct {
	mu     sync.Mutex
	events []models.Event
}

func New(seed ...models.Event) *Store {
	return &Store{events: append([]models.Event{}, seed...)}
}

func (s *Store) Load(_ context.Context) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Event{}, s.events...), nil
}

func (s *Store) Save(_ context.Context, events []models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append([]models.Event{}, events...)
	return nil
}

func (s *Store) Close() error { return nil }
