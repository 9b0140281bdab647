package grades

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

// Repository persists grades.
type Repository interface {
	Create(ctx context.Context, g *store.Grade) error
	Get(ctx context.Context, userID, id uuid.UUID) (*store.Grade, error)
	List(ctx context.Context, userID uuid.UUID, course string) ([]store.Grade, error)
	Update(ctx context.Context, g *store.Grade) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// Input is the writable shape of a grade. Nil fields are left untouched on Patch.
type Input struct {
	Course     *string    `json:"course"`
	Assessment *string    `json:"assessment"`
	Score      *float64   `json:"score"`
	MaxScore   *float64   `json:"max_score"`
	Weight     *float64   `json:"weight"`
	Term       *string    `json:"term"`
	GradedAt   *time.Time `json:"graded_at"`
}

// Service stores assessment results exactly as entered; it performs no grade arithmetic.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

func New(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, in Input) (*store.Grade, error) {
	g := &store.Grade{UserID: userID}
	apply(g, in)
	if err := validate(g); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, g); err != nil {
		return nil, fmt.Errorf("create grade: %w", err)
	}
	s.logger.Debug("grade recorded", zap.Stringer("grade_id", g.ID), zap.String("course", g.Course))
	return g, nil
}

func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*store.Grade, error) {
	return s.repo.Get(ctx, userID, id)
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, course string) ([]store.Grade, error) {
	return s.repo.List(ctx, userID, strings.TrimSpace(course))
}

func (s *Service) Replace(ctx context.Context, userID, id uuid.UUID, in Input) (*store.Grade, error) {
	existing, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	g := &store.Grade{ID: existing.ID, UserID: existing.UserID, CreatedAt: existing.CreatedAt}
	apply(g, in)
	return s.save(ctx, g)
}

func (s *Service) Patch(ctx context.Context, userID, id uuid.UUID, in Input) (*store.Grade, error) {
	g, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	apply(g, in)
	return s.save(ctx, g)
}

func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.Delete(ctx, userID, id)
}

func (s *Service) save(ctx context.Context, g *store.Grade) (*store.Grade, error) {
	if err := validate(g); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, g); err != nil {
		return nil, fmt.Errorf("update grade: %w", err)
	}
	return g, nil
}

func apply(g *store.Grade, in Input) {
	if in.Course != nil {
		g.Course = strings.TrimSpace(*in.Course)
	}
	if in.Assessment != nil {
		g.Assessment = strings.TrimSpace(*in.Assessment)
	}
	if in.Score != nil {
		g.Score = *in.Score
	}
	if in.MaxScore != nil {
		g.MaxScore = *in.MaxScore
	}
	if in.Weight != nil {
		w := *in.Weight
		g.Weight = &w
	}
	if in.Term != nil {
		g.Term = strings.TrimSpace(*in.Term)
	}
	if in.GradedAt != nil {
		at := in.GradedAt.UTC()
		g.GradedAt = &at
	}
}

func validate(g *store.Grade) error {
	return validation.Struct(g)
}
