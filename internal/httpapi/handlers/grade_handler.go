package handlers

import (
	"context"
	"net/http"

	"github.com/academictracker/api/internal/httpapi"
	"github.com/academictracker/api/internal/services/grades"
	"github.com/academictracker/api/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// GradeService is the gradebook surface used by GradeHandler.
type GradeService interface {
	Create(ctx context.Context, userID uuid.UUID, in grades.Input) (*store.Grade, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*store.Grade, error)
	List(ctx context.Context, userID uuid.UUID, course string) ([]store.Grade, error)
	Replace(ctx context.Context, userID, id uuid.UUID, in grades.Input) (*store.Grade, error)
	Patch(ctx context.Context, userID, id uuid.UUID, in grades.Input) (*store.Grade, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// GradeHandler serves /api/grades.
type GradeHandler struct {
	service GradeService
}

func NewGradeHandler(service GradeService) *GradeHandler {
	return &GradeHandler{service: service}
}

func (h *GradeHandler) Routes(r chi.Router, wrap httpapi.Adapter, requireAuth func(http.Handler) http.Handler) {
	r.Use(requireAuth)
	r.Get("/", wrap(h.List))
	r.Post("/", wrap(h.Create))
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", wrap(h.Get))
		r.Put("/", wrap(h.Replace))
		r.Patch("/", wrap(h.Patch))
		r.Delete("/", wrap(h.Delete))
	})
}

func (h *GradeHandler) List(w http.ResponseWriter, r *http.Request) error {
	userID, err := owner(r)
	if err != nil {
		return err
	}
	items, err := h.service.List(r.Context(), userID, r.URL.Query().Get("course"))
	if err != nil {
		return err
	}
	httpapi.List(w, items)
	return nil
}

func (h *GradeHandler) Create(w http.ResponseWriter, r *http.Request) error {
	userID, err := owner(r)
	if err != nil {
		return err
	}
	var in grades.Input
	if err := httpapi.Decode(r, &in); err != nil {
		return err
	}
	g, err := h.service.Create(r.Context(), userID, in)
	if err != nil {
		return err
	}
	httpapi.Success(w, http.StatusCreated, g)
	return nil
}

func (h *GradeHandler) Get(w http.ResponseWriter, r *http.Request) error {
	userID, id, err := ownerAndID(r)
	if err != nil {
		return err
	}
	g, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		return err
	}
	httpapi.Success(w, http.StatusOK, g)
	return nil
}

func (h *GradeHandler) Replace(w http.ResponseWriter, r *http.Request) error {
	return h.update(w, r, h.service.Replace)
}

func (h *GradeHandler) Patch(w http.ResponseWriter, r *http.Request) error {
	return h.update(w, r, h.service.Patch)
}

func (h *GradeHandler) update(w http.ResponseWriter, r *http.Request, fn func(context.Context, uuid.UUID, uuid.UUID, grades.Input) (*store.Grade, error)) error {
	userID, id, err := ownerAndID(r)
	if err != nil {
		return err
	}
	var in grades.Input
	if err := httpapi.Decode(r, &in); err != nil {
		return err
	}
	g, err := fn(r.Context(), userID, id, in)
	if err != nil {
		return err
	}
	httpapi.Success(w, http.StatusOK, g)
	return nil
}

func (h *GradeHandler) Delete(w http.ResponseWriter, r *http.Request) error {
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
