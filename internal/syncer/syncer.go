package syncer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"eventcal/internal/models"
)

// SyncState keeps track of which events have been imported.
// The key is the source event ID, and the value is the local event ID.
type SyncState map[string]string

// EventSource returns the upcoming events of one remote calendar.
type EventSource interface {
	GetUpcomingEvents(calendarID string, days int) ([]models.Event, error)
}

// EventCreator stores a new local event.
type EventCreator interface {
	Create(ctx context.Context, data models.Fields) (models.Event, error)
}

// Feed is one remote calendar to import from.
type Feed struct {
	Source     EventSource
	CalendarID string
}

// Syncer imports remote calendar events into the local event store.
type Syncer struct {
	logger    *slog.Logger
	feeds     []Feed
	creator   EventCreator
	statePath string
	state     SyncState
	days      int
	dryRun    bool
}

// NewSyncer creates a new Syncer, loading previous state from statePath.
func NewSyncer(logger *slog.Logger, feeds []Feed, creator EventCreator, statePath string, days int, dryRun bool) (*Syncer, error) {
	state, err := loadState(statePath)
	if err != nil {
		// If the file doesn't exist, we can start with an empty state.
		if os.IsNotExist(err) {
			logger.Info("No sync state file found, starting fresh.", "file", statePath)
			state = make(SyncState)
		} else {
			return nil, fmt.Errorf("failed to load sync state: %w", err)
		}
	}

	return &Syncer{
		logger:    logger,
		feeds:     feeds,
		creator:   creator,
		statePath: statePath,
		state:     state,
		days:      days,
		dryRun:    dryRun,
	}, nil
}

// Sync performs a full import cycle and returns the number of new events.
func (s *Syncer) Sync(ctx context.Context) (int, error) {
	s.logger.Info("Starting sync cycle.")

	remote := s.fetchAll()
	s.logger.Info("Fetched all remote events.", "count", len(remote))

	imported := 0
	for _, event := range remote {
		ok, err := s.importEvent(ctx, event)
		if err != nil {
			s.logger.Error("Failed to import event", "title", event.Title, "error", err)
			// Continue with the next event even if one fails.
			continue
		}
		if ok {
			imported++
		}
	}

	if !s.dryRun && imported > 0 {
		if err := s.saveState(); err != nil {
			return imported, fmt.Errorf("failed to save sync state: %w", err)
		}
	}

	s.logger.Info("Sync cycle finished.", "imported", imported)
	return imported, nil
}

// fetchAll retrieves events from every feed. Feeds that fail are logged and skipped.
func (s *Syncer) fetchAll() []models.Event {
	var all []models.Event
	for _, feed := range s.feeds {
		events, err := feed.Source.GetUpcomingEvents(feed.CalendarID, s.days)
		if err != nil {
			s.logger.Error("Could not fetch events for a calendar", "calendarID", feed.CalendarID, "error", err)
			continue
		}
		all = append(all, events...)
	}
	return all
}

// importEvent creates a local copy of a remote event unless it was imported before.
func (s *Syncer) importEvent(ctx context.Context, event models.Event) (bool, error) {
	if _, exists := s.state[event.ID]; exists {
		s.logger.Debug("Event already imported, skipping.", "title", event.Title, "id", event.ID)
		return false, nil
	}

	data := event.Fields()
	if event.Title == "" {
		data[models.FieldTitle] = models.String("(no title)")
	}
	if event.Description == "" {
		data[models.FieldDescription] = models.String("Imported calendar event")
	}
	if event.EndTime == "" {
		data[models.FieldEndTime] = models.String(event.StartTime)
	}

	if s.dryRun {
		s.logger.Info("[DRY RUN] Would import event", "title", event.Title, "startTime", event.StartTime)
		return false, nil
	}

	created, err := s.creator.Create(ctx, data)
	if err != nil {
		return false, err
	}
	s.logger.Info("Imported event.", "title", created.Title, "id", created.ID, "sourceID", event.ID)
	s.state[event.ID] = created.ID
	return true, nil
}

// loadState loads the sync state from the JSON file.
func loadState(path string) (SyncState, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var state SyncState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	if state == nil {
		state = make(SyncState)
	}
	return state, nil
}

// saveState saves the current sync state to the JSON file.
func (s *Syncer) saveState() error {
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal sync state: %w", err)
	}
	return os.WriteFile(s.statePath, data, 0o644)
}
