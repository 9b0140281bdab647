package handlers

import (
	"context"
	"net/http"

	"github.com/academictracker/api/internal/httpapi"
	"github.com/academictracker/api/internal/services/events"
	"github.com/academictracker/api/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// EventService is the calendar surface used by EventHandler.
type EventService interface {
	Create(ctx context.Context, userID uuid.UUID, in events.Input) (*store.Event, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*store.Event, error)
	List(ctx context.Context, userID uuid.UUID, f store.EventFilter) ([]store.Event, error)
	Replace(ctx context.Context, userID, id uuid.UUID, in events.Input) (*store.Event, error)
	Patch(ctx context.Context, userID, id uuid.UUID, in events.Input) (*store.Event, error)
	ToggleComplete(ctx context.Context, userID, id uuid.UUID) (*store.Event, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// EventHandler serves /api/events.
type EventHandler struct {
	service EventService
}

func NewEventHandler(service EventService) *EventHandler {
	return &EventHandler{service: service}
}

// Routes registers the event endpoints behind requireAuth.
func (h *EventHandler) Routes(r chi.Router, wrap httpapi.Adapter, requireAuth func(http.Handler) http.Handler) {
	r.Use(requireAuth)
	r.Get("/", wrap(h.List))
	r.Post("/", wrap(h.Create))
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", wrap(h.Get))
		r.Put("/", wrap(h.Replace))
		r.Patch("/", wrap(h.Patch))
		r.Delete("/", wrap(h.Delete))
		r.Patch("/complete", wrap(h.ToggleComplete))
	})
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) error {
	userID, err := owner(r)
	if err != nil {
		return err
	}
	from, err := queryTime(r, "from")
	if err != nil {
		return err
	}
	to, err := queryTime(r, "to")
	if err != nil {
		return err
	}
	items, err := h.service.List(r.Context(), userID, store.EventFilter{From: from, To: to, Type: r.URL.Query().Get("type")})
	if err != nil {
		return err
	}
	httpapi.List(w, items)
	return nil
}

func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) error {
	userID, err := owner(r)
	if err != nil {
		return err
	}
	var in events.Input
	if err := httpapi.Decode(r, &in); err != nil {
		return err
	}
	e, err := h.service.Create(r.Context(), userID, in)
	if err != nil {
		return err
	}
	httpapi.Success(w, http.StatusCreated, e)
	return nil
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) error {
	userID, id, err := ownerAndID(r)
	if err != nil {
		return err
	}
	e, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		return err
	}
	httpapi.Success(w, http.StatusOK, e)
	return nil
}

func (h *EventHandler) Replace(w http.ResponseWriter, r *http.Request) error {
	return h.update(w, r, h.service.Replace)
}

func (h *EventHandler) Patch(w http.ResponseWriter, r *http.Request) error {
	return h.update(w, r, h.service.Patch)
}

func (h *EventHandler) update(w http.ResponseWriter, r *http.Request, fn func(context.Context, uuid.UUID, uuid.UUID, events.Input) (*store.Event, error)) error {
	userID, id, err := ownerAndID(r)
	if err != nil {
		return err
	}
	var in events.Input
	if err := httpapi.Decode(r, &in); err != nil {
		return err
	}
	e, err := fn(r.Context(), userID, id, in)
	if err != nil {
		return err
	}
	httpapi.Success(w, http.StatusOK, e)
	return nil
}

func (h *EventHandler) ToggleComplete(w http.ResponseWriter, r *http.Request) error {
	userID, id, err := ownerAndID(r)
	if err != nil {
		return err
	}
	e, err := h.service.ToggleComplete(r.Context(), userID, id)
	if err != nil {
		return err
	}
	httpapi.Success(w, http.StatusOK, e)
	return nil
}

func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) error {
	userID, id, err := ownerAndID(r)
	if err != nil {
		return err
	}
	if err := h.service.Delete(r.Context(), userID, id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
