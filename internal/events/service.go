package events

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"eventcal/internal/models"

	"github.com/google/uuid"
)

// Store loads and saves the complete event set. Save followed by Load must
// return every record unchanged and in the same order.
type Store interface {
	Load(ctx context.Context) ([]models.Event, error)
	Save(ctx context.Context, events []models.Event) error
}

// UpdateMode selects how Update treats the supplied fields.
type UpdateMode int

const (
	// UpdatePartial overwrites only the keys present in the input.
	UpdatePartial UpdateMode = iota
	// UpdateFull takes each field from the input when present and keeps the
	// current value otherwise. Absent keys are not reset.
	UpdateFull
)

func (m UpdateMode) String() string {
	if m == UpdateFull {
		return "full"
	}
	return "partial"
}

// ParseUpdateMode maps "partial" and "full" to an UpdateMode.
func ParseUpdateMode(s string) (UpdateMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "partial", "patch":
		return UpdatePartial, nil
	case "full", "put":
		return UpdateFull, nil
	}
	return UpdatePartial, fmt.Errorf("unknown update mode %q", s)
}

var requiredFields = []string{
	models.FieldTitle,
	models.FieldDescription,
	models.FieldStartTime,
	models.FieldEndTime,
}

// Service implements event CRUD and search over a Store. Every call loads the
// whole set; mutating calls save the whole set back. Calls on one Service are
// serialized, so writers in the same process never lose updates. Separate
// processes sharing a store are not coordinated.
type Service struct {
	store  Store
	logger *slog.Logger
	newID  func() string
	mu     sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithIDGenerator replaces the UUID generator used for new events.
func WithIDGenerator(fn func() string) Option {
	return func(s *Service) { s.newID = fn }
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// NewService creates a Service backed by store.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.New(slog.DiscardHandler),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns every event ordered by start time. Events with equal start
// times keep their stored order.
func (s *Service) List(ctx context.Context) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StartTime < events[j].StartTime
	})
	return events, nil
}

// Get returns the event with the given id.
func (s *Service) Get(ctx context.Context, id string) (models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.load(ctx)
	if err != nil {
		return models.Event{}, err
	}
	if i := indexOf(events, id); i >= 0 {
		return events[i], nil
	}
	return models.Event{}, &NotFoundError{ID: id}
}

// Create validates the input, assigns a new id, appends the event and saves
// the set.
func (s *Service) Create(ctx context.Context, data models.Fields) (models.Event, error) {
	for _, field := range requiredFields {
		v, ok := data.Lookup(field)
		if !ok || v == nil || *v == "" {
			return models.Event{}, &ValidationError{Field: field}
		}
	}

	event := models.Event{ID: s.newID()}
	for _, field := range models.ContentFields {
		if v, ok := data.Lookup(field); ok {
			event.Set(field, v)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.load(ctx)
	if err != nil {
		return models.Event{}, err
	}
	events = append(events, event)
	if err := s.save(ctx, events); err != nil {
		return models.Event{}, err
	}

	s.logger.Info("Event created", "id", event.ID, "title", event.Title)
	return event, nil
}

// Update applies data to the event with the given id and saves the set. The
// event keeps its position. Nothing is saved when the id is unknown.
func (s *Service) Update(ctx context.Context, id string, data models.Fields, mode UpdateMode) (models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.load(ctx)
	if err != nil {
		return models.Event{}, err
	}
	i := indexOf(events, id)
	if i < 0 {
		return models.Event{}, &NotFoundError{ID: id}
	}

	event := events[i]
	for _, field := range models.ContentFields {
		switch mode {
		case UpdateFull:
			// Missing keys fall back to the current value rather than resetting.
			v, ok := data.Lookup(field)
			if !ok {
				v = event.Get(field)
			}
			event.Set(field, v)
		default:
			if v, ok := data.Lookup(field); ok {
				event.Set(field, v)
			}
		}
	}
	events[i] = event

	if err := s.save(ctx, events); err != nil {
		return models.Event{}, err
	}

	s.logger.Info("Event updated", "id", id, "mode", mode.String())
	return event, nil
}

// Delete removes the event with the given id and saves the set. Nothing is
// saved when the id is unknown.
func (s *Service) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.load(ctx)
	if err != nil {
		return err
	}
	kept := make([]models.Event, 0, len(events))
	for _, e := range events {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(events) {
		return &NotFoundError{ID: id}
	}
	if err := s.save(ctx, kept); err != nil {
		return err
	}

	s.logger.Info("Event deleted", "id", id)
	return nil
}

// Search returns events whose title or description contains query, ignoring
// case, in stored order. An empty query matches every event.
func (s *Service) Search(ctx context.Context, query string) ([]models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	events, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	q := strings.ToLower(query)
	matches := make([]models.Event, 0)
	for _, e := range events {
		if strings.Contains(strings.ToLower(e.Title), q) || strings.Contains(strings.ToLower(e.Description), q) {
			matches = append(matches, e)
		}
	}
	return matches, nil
}

func (s *Service) load(ctx context.Context) ([]models.Event, error) {
	events, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	if events == nil {
		events = make([]models.Event, 0)
	}
	return events, nil
}

func (s *Service) save(ctx context.Context, events []models.Event) error {
	if err := s.store.Save(ctx, events); err != nil {
		return fmt.Errorf("save events: %w", err)
	}
	return nil
}

func indexOf(events []models.Event, id string) int {
	for i := range events {
		if events[i].ID == id {
			return i
		}
	}
	return -1
}
