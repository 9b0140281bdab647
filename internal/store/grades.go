package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Grade is a single recorded assessment result.
type Grade struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	UserID     uuid.UUID  `db:"user_id" json:"user_id"`
	Course     string     `db:"course" json:"course" validate:"required,max=120"`
	Assessment string     `db:"assessment" json:"assessment" validate:"required,max=120"`
	Score      float64    `db:"score" json:"score" validate:"gte=0,ltefield=MaxScore"`
	MaxScore   float64    `db:"max_score" json:"max_score" validate:"gt=0"`
	Weight     *float64   `db:"weight" json:"weight,omitempty" validate:"omitempty,gte=0,lte=100"`
	Term       string     `db:"term" json:"term"`
	GradedAt   *time.Time `db:"graded_at" json:"graded_at,omitempty"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at" json:"updated_at"`
}

const gradeColumns = `id, user_id, course, assessment, score, max_score, weight, term, graded_at, created_at, updated_at`

type GradeRepository struct {
	db DBTX
}

func (r *GradeRepository) Create(ctx context.Context, g *Grade) error {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO grades (id, user_id, course, assessment, score, max_score, weight, term, graded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`,
		g.ID, g.UserID, g.Course, g.Assessment, g.Score, g.MaxScore, g.Weight, g.Term, g.GradedAt,
	).Scan(&g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert grade: %w", translate(err))
	}
	return nil
}

func (r *GradeRepository) Get(ctx context.Context, userID, id uuid.UUID) (*Grade, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+gradeColumns+` FROM grades WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return nil, fmt.Errorf("query grade: %w", err)
	}
	g, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[Grade])
	if err != nil {
		return nil, translate(err)
	}
	return g, nil
}

// List returns the user's grades, optionally restricted to one course.
func (r *GradeRepository) List(ctx context.Context, userID uuid.UUID, course string) ([]Grade, error) {
	query := `SELECT ` + gradeColumns + ` FROM grades WHERE user_id = $1`
	args := []any{userID}
	if course != "" {
		query += ` AND course = $2`
		args = append(args, course)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	grades, err := pgx.CollectRows(rows, pgx.RowToStructByName[Grade])
	if err != nil {
		return nil, fmt.Errorf("scan grades: %w", err)
	}
	return grades, nil
}

func (r *GradeRepository) Update(ctx context.Context, g *Grade) error {
	err := r.db.QueryRow(ctx, `
		UPDATE grades
		SET course = $3, assessment = $4, score = $5, max_score = $6, weight = $7,
		    term = $8, graded_at = $9, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING updated_at`,
		g.ID, g.UserID, g.Course, g.Assessment, g.Score, g.MaxScore, g.Weight, g.Term, g.GradedAt,
	).Scan(&g.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update grade: %w", translate(err))
	}
	return nil
}

func (r *GradeRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM grades WHERE id = $1 AND user_id = $2`, id, userID)
	if err := expectOne(tag, err); err != nil {
		return fmt.Errorf("delete grade: %w", err)
	}
	return nil
}
