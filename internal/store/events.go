package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Event is a dated item on a student's calendar.
type Event struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	UserID      uuid.UUID  `db:"user_id" json:"user_id"`
	Title       string     `db:"title" json:"title" validate:"required,max=200"`
	Description string     `db:"description" json:"description"`
	Type        string     `db:"type" json:"type" validate:"oneof=exam assignment class deadline other"`
	StartsAt    time.Time  `db:"starts_at" json:"starts_at" validate:"required"`
	EndsAt      *time.Time `db:"ends_at" json:"ends_at,omitempty" validate:"omitempty,gtefield=StartsAt"`
	Location    string     `db:"location" json:"location"`
	Completed   bool       `db:"completed" json:"completed"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`
}

// EventFilter narrows List results. Zero values are ignored.
type EventFilter struct {
	From *time.Time
	To   *time.Time
	Type string
}

const eventColumns = `id, user_id, title, description, type, starts_at, ends_at, location, completed, created_at, updated_at`

type EventRepository struct {
	db DBTX
}

func (r *EventRepository) Create(ctx context.Context, e *Event) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	err := r.db.QueryRow(ctx, `
		INSERT INTO events (id, user_id, title, description, type, starts_at, ends_at, location, completed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`,
		e.ID, e.UserID, e.Title, e.Description, e.Type, e.StartsAt, e.EndsAt, e.Location, e.Completed,
	).Scan(&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert event: %w", translate(err))
	}
	return nil
}

func (r *EventRepository) Get(ctx context.Context, userID, id uuid.UUID) (*Event, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return nil, fmt.Errorf("query event: %w", err)
	}
	e, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[Event])
	if err != nil {
		return nil, translate(err)
	}
	return e, nil
}

func (r *EventRepository) List(ctx context.Context, userID uuid.UUID, f EventFilter) ([]Event, error) {
	where := []string{"user_id = $1"}
	args := []any{userID}
	if f.From != nil {
		args = append(args, *f.From)
		where = append(where, fmt.Sprintf("starts_at >= $%d", len(args)))
	}
	if f.To != nil {
		args = append(args, *f.To)
		where = append(where, fmt.Sprintf("starts_at <= $%d", len(args)))
	}
	if f.Type != "" {
		args = append(args, f.Type)
		where = append(where, fmt.Sprintf("type = $%d", len(args)))
	}

	rows, err := r.db.Query(ctx,
		`SELECT `+eventColumns+` FROM events WHERE `+strings.Join(where, " AND ")+` ORDER BY starts_at DESC`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	events, err := pgx.CollectRows(rows, pgx.RowToStructByName[Event])
	if err != nil {
		return nil, fmt.Errorf("scan events: %w", err)
	}
	return events, nil
}

// Update overwrites all mutable columns of e.
func (r *EventRepository) Update(ctx context.Context, e *Event) error {
	err := r.db.QueryRow(ctx, `
		UPDATE events
		SET title = $3, description = $4, type = $5, starts_at = $6, ends_at = $7,
		    location = $8, completed = $9, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING updated_at`,
		e.ID, e.UserID, e.Title, e.Description, e.Type, e.StartsAt, e.EndsAt, e.Location, e.Completed,
	).Scan(&e.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update event: %w", translate(err))
	}
	return nil
}

func (r *EventRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM events WHERE id = $1 AND user_id = $2`, id, userID)
	if err := expectOne(tag, err); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}
