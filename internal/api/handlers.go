package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"eventcal/internal/events"
	"eventcal/internal/models"
	"eventcal/internal/notify"

	"github.com/gorilla/mux"
)

type eventHandler struct {
	svc      EventService
	notifier *notify.Dispatcher
	logger   *slog.Logger
}

func (h *eventHandler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, list)
}

func (h *eventHandler) get(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, event)
}

func (h *eventHandler) create(w http.ResponseWriter, r *http.Request) {
	data, ok := h.decodeFields(w, r)
	if !ok {
		return
	}
	event, err := h.svc.Create(r.Context(), data)
	if err != nil {
		h.fail(w, err)
		return
	}
	h.notifier.EventChanged(notify.ActionCreated, event)
	writeJSON(w, h.logger, http.StatusCreated, event)
}

func (h *eventHandler) update(mode events.UpdateMode) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data, ok := h.decodeFields(w, r)
		if !ok {
			return
		}
		event, err := h.svc.Update(r.Context(), mux.Vars(r)["id"], data, mode)
		if err != nil {
			h.fail(w, err)
			return
		}
		h.notifier.EventChanged(notify.ActionUpdated, event)
		writeJSON(w, h.logger, http.StatusOK, event)
	}
}

func (h *eventHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, map[string]bool{"success": true})
}

func (h *eventHandler) search(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, list)
}

// decodeFields reads a JSON object of strings or nulls; recurrence may be any JSON value.
func (h *eventHandler) decodeFields(w http.ResponseWriter, r *http.Request) (models.Fields, bool) {
	var data models.Fields
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return nil, false
	}
	if data == nil {
		data = models.Fields{}
	}
	return data, true
}

func (h *eventHandler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, events.ErrValidation):
		writeError(w, h.logger, http.StatusBadRequest, err.Error())
	case errors.Is(err, events.ErrNotFound):
		writeError(w, h.logger, http.StatusNotFound, err.Error())
	default:
		h.logger.Error("Event operation failed", "error", err)
		writeError(w, h.logger, http.StatusInternalServerError, "internal error")
	}
}
