package audit

import (
	"context"
	"time"

	"github.com/academictracker/api/internal/store"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Entry represents a structured audit event.
type Entry struct {
	UserID     *uuid.UUID
	Action     string
	IPAddress  string
	UserAgent  string
	Context    map[string]any
	OccurredAt time.Time
}

// Writer persists audit rows.
type Writer interface {
	Insert(ctx context.Context, e store.AuditEntry) error
}

// Logger writes audit entries into the database.
type Logger struct {
	writer Writer
	logger *zap.Logger
}

// New constructs a Logger. A nil writer only emits log lines.
func New(writer Writer, logger *zap.Logger) *Logger {
	return &Logger{writer: writer, logger: logger}
}

// Record persists an audit entry, logging failures but not interrupting flows.
func (l *Logger) Record(ctx context.Context, entry Entry) {
	if l == nil || entry.Action == "" {
		return
	}
	fields := []zap.Field{zap.String("action", entry.Action), zap.String("ip", entry.IPAddress)}
	if entry.UserID != nil {
		fields = append(fields, zap.Stringer("user_id", entry.UserID))
	}
	l.logger.Debug("audit", fields...)

	if l.writer == nil {
		return
	}
	err := l.writer.Insert(ctx, store.AuditEntry{
		UserID:     entry.UserID,
		Action:     entry.Action,
		IPAddress:  entry.IPAddress,
		UserAgent:  entry.UserAgent,
		Context:    entry.Context,
		OccurredAt: timeOrDefault(entry.OccurredAt),
	})
	if err != nil {
		l.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}

func timeOrDefault(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}
