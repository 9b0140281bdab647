package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Record is one course entry in a student's academic history.
type Record struct {
	ID         uuid.UUID `db:"id" json:"id"`
	UserID     uuid.UUID `db:"user_id" json:"user_id"`
	CourseCode string    `db:"course_code" json:"course_code" validate:"required,max=32"`
	CourseName string    `db:"course_name" json:"course_name" validate:"required,max=200"`
	Credits    float64   `db:"credits" json:"credits" validate:"gte=0,lte=60"`
	Term       string    `db:"term" json:"term" validate:"required"`
	Status     string    `db:"status" json:"status" validate:"oneof=planned in_progress completed dropped"`
	FinalGrade string    `db:"final_grade" json:"final_grade" validate:"max=16"`
	Instructor string    `db:"instructor" json:"instructor"`
	Notes      string    `db:"notes" json:"notes"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// RecordFilter narrows List results. Zero values are ignored.
type RecordFilter struct {
	Term   string
	Status string
}

const recordColumns = `id, user_id, course_code, course_name, credits, term, status, final_grade, instructor, notes, created_at, updated_at`

type RecordRepository struct {
	db DBTX
}

func (r *RecordRepository) Create(ctx context.Context, rec *Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO academic_records (id, user_id, course_code, course_name, credits, term, status, final_grade, instructor, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`,
		rec.ID, rec.UserID, rec.CourseCode, rec.CourseName, rec.Credits, rec.Term, rec.Status,
		rec.FinalGrade, rec.Instructor, rec.Notes,
	).Scan(&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert academic record: %w", translate(err))
	}
	return nil
}

func (r *RecordRepository) Get(ctx context.Context, userID, id uuid.UUID) (*Record, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+recordColumns+` FROM academic_records WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return nil, fmt.Errorf("query academic record: %w", err)
	}
	rec, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[Record])
	if err != nil {
		return nil, translate(err)
	}
	return rec, nil
}

func (r *RecordRepository) List(ctx context.Context, userID uuid.UUID, f RecordFilter) ([]Record, error) {
	where := []string{"user_id = $1"}
	args := []any{userID}
	if f.Term != "" {
		args = append(args, f.Term)
		where = append(where, fmt.Sprintf("term = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+recordColumns+` FROM academic_records WHERE `+strings.Join(where, " AND ")+` ORDER BY term DESC, course_code`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("list academic records: %w", err)
	}
	records, err := pgx.CollectRows(rows, pgx.RowToStructByName[Record])
	if err != nil {
		return nil, fmt.Errorf("scan academic records: %w", err)
	}
	return records, nil
}

func (r *RecordRepository) Update(ctx context.Context, rec *Record) error {
	err := r.db.QueryRow(ctx, `
		UPDATE academic_records
		SET course_code = $3, course_name = $4, credits = $5, term = $6, status = $7,
		    final_grade = $8, instructor = $9, notes = $10, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING updated_at`,
		rec.ID, rec.UserID, rec.CourseCode, rec.CourseName, rec.Credits, rec.Term, rec.Status,
		rec.FinalGrade, rec.Instructor, rec.Notes,
	).Scan(&rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update academic record: %w", translate(err))
	}
	return nil
}

func (r *RecordRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM academic_records WHERE id = $1 AND user_id = $2`, id, userID)
	if err := expectOne(tag, err); err != nil {
		return fmt.Errorf("delete academic record: %w", err)
	}
	return nil
}
