// Package store persists users and their academic data in PostgreSQL.
package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a row does not exist or belongs to another user.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a unique constraint is violated.
	ErrConflict = errors.New("record already exists")
)

const uniqueViolation = "23505"

// DBTX is the subset of pgx used by the repositories. *pgxpool.Pool and pgx.Tx satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store bundles the repositories sharing one connection pool.
type Store struct {
	Users    *UserRepository
	Events   *EventRepository
	Grades   *GradeRepository
	Records  *RecordRepository
	AuditLog *AuditRepository
}

// New builds all repositories over db.
func New(db DBTX) *Store {
	return &Store{
		Users:    &UserRepository{db: db},
		Events:   &EventRepository{db: db},
		Grades:   &GradeRepository{db: db},
		Records:  &RecordRepository{db: db},
		AuditLog: &AuditRepository{db: db},
	}
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrConflict
	}
	return err
}

func expectOne(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
