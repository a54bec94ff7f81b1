// Package api exposes the event service over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"eventcal/internal/events"
	"eventcal/internal/models"
	"eventcal/internal/notify"

	"github.com/gorilla/mux"
)

// EventService is the part of events.Service the API depends on.
type EventService interface {
	List(ctx context.Context) ([]models.Event, error)
	Get(ctx context.Context, id string) (models.Event, error)
	Create(ctx context.Context, data models.Fields) (models.Event, error)
	Update(ctx context.Context, id string, data models.Fields, mode events.UpdateMode) (models.Event, error)
	Delete(ctx context.Context, id string) error
	Search(ctx context.Context, query string) ([]models.Event, error)
}

// NewRouter wires the event routes. notifier may be nil.
func NewRouter(svc EventService, notifier *notify.Dispatcher, logger *slog.Logger) *mux.Router {
	h := &eventHandler{svc: svc, notifier: notifier, logger: logger}

	router := mux.NewRouter()
	router.Use(h.logRequests)

	router.HandleFunc("/health", h.health).Methods(http.MethodGet)

	router.HandleFunc("/events", h.list).Methods(http.MethodGet)
	router.HandleFunc("/events", h.create).Methods(http.MethodPost)
	// Registered before /events/{id} so "search" is not taken as an id.
	router.HandleFunc("/events/search", h.search).Methods(http.MethodGet)
	router.HandleFunc("/events/{id}", h.get).Methods(http.MethodGet)
	router.HandleFunc("/events/{id}", h.update(events.UpdateFull)).Methods(http.MethodPut)
	router.HandleFunc("/events/{id}", h.update(events.UpdatePartial)).Methods(http.MethodPatch)
	router.HandleFunc("/events/{id}", h.delete).Methods(http.MethodDelete)

	return router
}

func (h *eventHandler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		h.logger.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}

func (h *eventHandler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, map[string]string{"status": "ok"})
}
