package events

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/academictracker/api/internal/store"
	"github.com/academictracker/api/internal/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Types lists the accepted event categories.
var Types = []string{"exam", "assignment", "class", "deadline", "other"}

const defaultType = "other"

// Repository persists events.
type Repository interface {
	Create(ctx context.Context, e *store.Event) error
	Get(ctx context.Context, userID, id uuid.UUID) (*store.Event, error)
	List(ctx context.Context, userID uuid.UUID, f store.EventFilter) ([]store.Event, error)
	Update(ctx context.Context, e *store.Event) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// Input is the writable shape of an event. Nil fields are left untouched on Patch.
type Input struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Type        *string    `json:"type"`
	StartsAt    *time.Time `json:"starts_at"`
	EndsAt      *time.Time `json:"ends_at"`
	Location    *string    `json:"location"`
	Completed   *bool      `json:"completed"`
}

// Service implements calendar event use cases scoped to a user.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

func New(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, in Input) (*store.Event, error) {
	e := &store.Event{UserID: userID}
	apply(e, in)
	if err := validate(e); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, e); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	s.logger.Debug("event created", zap.Stringer("event_id", e.ID), zap.Stringer("user_id", userID))
	return e, nil
}

func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*store.Event, error) {
	return s.repo.Get(ctx, userID, id)
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, f store.EventFilter) ([]store.Event, error) {
	if err := validation.Var("type", f.Type, "omitempty,"+validation.OneOfTag(Types)); err != nil {
		return nil, err
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return nil, validation.Errors{"to": "must not be before from"}
	}
	return s.repo.List(ctx, userID, f)
}

// Replace overwrites every writable field; omitted fields reset to their defaults.
func (s *Service) Replace(ctx context.Context, userID, id uuid.UUID, in Input) (*store.Event, error) {
	existing, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	e := &store.Event{ID: existing.ID, UserID: existing.UserID, CreatedAt: existing.CreatedAt}
	apply(e, in)
	return s.save(ctx, e)
}

func (s *Service) Patch(ctx context.Context, userID, id uuid.UUID, in Input) (*store.Event, error) {
	e, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	apply(e, in)
	return s.save(ctx, e)
}

// ToggleComplete flips the completion flag.
func (s *Service) ToggleComplete(ctx context.Context, userID, id uuid.UUID) (*store.Event, error) {
	e, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	e.Completed = !e.Completed
	return s.save(ctx, e)
}

func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.Delete(ctx, userID, id)
}

func (s *Service) save(ctx context.Context, e *store.Event) (*store.Event, error) {
	if err := validate(e); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, e); err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	return e, nil
}

func apply(e *store.Event, in Input) {
	if in.Title != nil {
		e.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		e.Description = strings.TrimSpace(*in.Description)
	}
	if in.Type != nil {
		e.Type = strings.ToLower(strings.TrimSpace(*in.Type))
	}
	if in.StartsAt != nil {
		e.StartsAt = in.StartsAt.UTC()
	}
	if in.EndsAt != nil {
		ends := in.EndsAt.UTC()
		e.EndsAt = &ends
	}
	if in.Location != nil {
		e.Location = strings.TrimSpace(*in.Location)
	}
	if in.Completed != nil {
		e.Completed = *in.Completed
	}
	if e.Type == "" {
		e.Type = defaultType
	}
}

func validate(e *store.Event) error {
	return validation.Struct(e)
}
