package handlers

import (
	"context"
	"net/http"

	"github.com/academictracker/api/internal/httpapi"
	"github.com/academictracker/api/internal/services/academic"
	"github.com/academictracker/api/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// AcademicService manages course enrolment records.
type AcademicService interface {
	Create(ctx context.Context, userID uuid.UUID, in academic.Input) (*store.Record, error)
	Get(ctx context.Context, userID, id uuid.UUID) (*store.Record, error)
	List(ctx context.Context, userID uuid.UUID, f store.RecordFilter) ([]store.Record, error)
	Replace(ctx context.Context, userID, id uuid.UUID, in academic.Input) (*store.Record, error)
	Patch(ctx context.Context, userID, id uuid.UUID, in academic.Input) (*store.Record, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// AcademicHandler serves /api/academic.
type AcademicHandler struct {
	service AcademicService
}

func NewAcademicHandler(service AcademicService) *AcademicHandler {
	return &AcademicHandler{service: service}
}

func (h *AcademicHandler) Routes(r chi.Router, wrap httpapi.Adapter, requireAuth func(http.Handler) http.Handler) {
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

func (h *AcademicHandler) List(w http.ResponseWriter, r *http.Request) error {
	userID, err := owner(r)
	if err != nil {
		return err
	}
	q := r.URL.Query()
	items, err := h.service.List(r.Context(), userID, store.RecordFilter{Term: q.Get("term"), Status: q.Get("status")})
	if err != nil {
		return err
	}
	httpapi.List(w, items)
	return nil
}

func (h *AcademicHandler) Create(w http.ResponseWriter, r *http.Request) error {
	userID, err := owner(r)
	if err != nil {
		return err
	}
	var in academic.Input
	if err := httpapi.Decode(r, &in); err != nil {
		return err
	}
	rec, err := h.service.Create(r.Context(), userID, in)
	if err != nil {
		return err
	}
	httpapi.Success(w, http.StatusCreated, rec)
	return nil
}

func (h *AcademicHandler) Get(w http.ResponseWriter, r *http.Request) error {
	userID, id, err := ownerAndID(r)
	if err != nil {
		return err
	}
	rec, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		return err
	}
	httpapi.Success(w, http.StatusOK, rec)
	return nil
}

func (h *AcademicHandler) Replace(w http.ResponseWriter, r *http.Request) error {
	return h.update(w, r, h.service.Replace)
}

func (h *AcademicHandler) Patch(w http.ResponseWriter, r *http.Request) error {
	return h.update(w, r, h.service.Patch)
}

func (h *AcademicHandler) update(w http.ResponseWriter, r *http.Request, fn func(context.Context, uuid.UUID, uuid.UUID, academic.Input) (*store.Record, error)) error {
	userID, id, err := ownerAndID(r)
	if err != nil {
		return err
	}
	var in academic.Input
	if err := httpapi.Decode(r, &in); err != nil {
		return err
	}
	rec, err := fn(r.Context(), userID, id, in)
	if err != nil {
		return err
	}
	httpapi.Success(w, http.StatusOK, rec)
	return nil
}

func (h *AcademicHandler) Delete(w http.ResponseWriter, r *http.Request) error {
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
