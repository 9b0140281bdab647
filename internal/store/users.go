package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// User is an account holder. PasswordHash is nil for Google-only accounts.
type User struct {
	ID            uuid.UUID `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Email         string    `db:"email" json:"email"`
	PasswordHash  *string   `db:"password_hash" json:"-"`
	GoogleSubject *string   `db:"google_subject" json:"-"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

const userColumns = `id, name, email, password_hash, google_subject, created_at, updated_at`

type UserRepository struct {
	db DBTX
}

// Create inserts u, assigning ID and timestamps.
func (r *UserRepository) Create(ctx context.Context, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	err := r.db.QueryRow(ctx, `
		INSERT INTO users (id, name, email, password_hash, google_subject)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		u.ID, u.Name, u.Email, u.PasswordHash, u.GoogleSubject,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert user: %w", translate(err))
	}
	return nil
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(strings.TrimSpace(email)))
}

func (r *UserRepository) GetByGoogleSubject(ctx context.Context, subject string) (*User, error) {
	return r.getOne(ctx, `SELECT `+userColumns+` FROM users WHERE google_subject = $1`, subject)
}

// LinkGoogle attaches a Google subject to an existing account.
func (r *UserRepository) LinkGoogle(ctx context.Context, id uuid.UUID, subject string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE users SET google_subject = $2, updated_at = now() WHERE id = $1`, id, subject)
	if err := expectOne(tag, err); err != nil {
		return fmt.Errorf("link google subject: %w", err)
	}
	return nil
}

func (r *UserRepository) getOne(ctx context.Context, query string, args ...any) (*User, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	u, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[User])
	if err != nil {
		return nil, translate(err)
	}
	return u, nil
}
