package academic

import (
	"context"
	"fmt"
	"strings"

	"github.com/academictracker/api/internal/store"
	"github.com/academictracker/api/internal/validation"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Statuses lists the accepted course enrolment states.
var Statuses = []string{"planned", "in_progress", "completed", "dropped"}

const defaultStatus = "planned"

// Repository persists academic records.
type Repository interface {
	Create(ctx context.Context, r *store.Record) error
	Get(ctx context.Context, userID, id uuid.UUID) (*store.Record, error)
	List(ctx context.Context, userID uuid.UUID, f store.RecordFilter) ([]store.Record, error)
	Update(ctx context.Context, r *store.Record) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// Input is the writable shape of a record. Nil fields are left untouched on Patch.
type Input struct {
	CourseCode *string  `json:"course_code"`
	CourseName *string  `json:"course_name"`
	Credits    *float64 `json:"credits"`
	Term       *string  `json:"term"`
	Status     *string  `json:"status"`
	FinalGrade *string  `json:"final_grade"`
	Instructor *string  `json:"instructor"`
	Notes      *string  `json:"notes"`
}

// Service manages a student's course history.
type Service struct {
	repo   Repository
	logger *zap.Logger
}

func New(repo Repository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

func (s *Service) Create(ctx context.Context, userID uuid.UUID, in Input) (*store.Record, error) {
	rec := &store.Record{UserID: userID}
	apply(rec, in)
	if err := validate(rec); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("create academic record: %w", err)
	}
	s.logger.Debug("academic record created", zap.Stringer("record_id", rec.ID), zap.String("course_code", rec.CourseCode))
	return rec, nil
}

func (s *Service) Get(ctx context.Context, userID, id uuid.UUID) (*store.Record, error) {
	return s.repo.Get(ctx, userID, id)
}

func (s *Service) List(ctx context.Context, userID uuid.UUID, f store.RecordFilter) ([]store.Record, error) {
	f.Term = strings.TrimSpace(f.Term)
	if err := validation.Var("status", f.Status, "omitempty,"+validation.OneOfTag(Statuses)); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, userID, f)
}

func (s *Service) Replace(ctx context.Context, userID, id uuid.UUID, in Input) (*store.Record, error) {
	existing, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	rec := &store.Record{ID: existing.ID, UserID: existing.UserID, CreatedAt: existing.CreatedAt}
	apply(rec, in)
	return s.save(ctx, rec)
}

func (s *Service) Patch(ctx context.Context, userID, id uuid.UUID, in Input) (*store.Record, error) {
	rec, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	apply(rec, in)
	return s.save(ctx, rec)
}

func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.Delete(ctx, userID, id)
}

func (s *Service) save(ctx context.Context, rec *store.Record) (*store.Record, error) {
	if err := validate(rec); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, rec); err != nil {
		return nil, fmt.Errorf("update academic record: %w", err)
	}
	return rec, nil
}

func apply(rec *store.Record, in Input) {
	if in.CourseCode != nil {
		rec.CourseCode = strings.ToUpper(strings.TrimSpace(*in.CourseCode))
	}
	if in.CourseName != nil {
		rec.CourseName = strings.TrimSpace(*in.CourseName)
	}
	if in.Credits != nil {
		rec.Credits = *in.Credits
	}
	if in.Term != nil {
		rec.Term = strings.TrimSpace(*in.Term)
	}
	if in.Status != nil {
		rec.Status = strings.ToLower(strings.TrimSpace(*in.Status))
	}
	if in.FinalGrade != nil {
		rec.FinalGrade = strings.TrimSpace(*in.FinalGrade)
	}
	if in.Instructor != nil {
		rec.Instructor = strings.TrimSpace(*in.Instructor)
	}
	if in.Notes != nil {
		rec.Notes = *in.Notes
	}
	if rec.Status == "" {
		rec.Status = defaultStatus
	}
}

func validate(rec *store.Record) error {
	return validation.Struct(rec)
}
