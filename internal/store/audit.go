package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AuditEntry is a security-relevant action taken by or on behalf of a user.
type AuditEntry struct {
	ID         uuid.UUID
	UserID     *uuid.UUID
	Action     string
	IPAddress  string
	UserAgent  string
	Context    map[string]any
	OccurredAt time.Time
}

type AuditRepository struct {
	db DBTX
}

func (r *AuditRepository) Insert(ctx context.Context, e AuditEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO audit_logs (id, user_id, action, ip_address, user_agent, context, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.UserID, e.Action, e.IPAddress, e.UserAgent, e.Context, e.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}
