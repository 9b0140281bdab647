package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/academictracker/api/internal/httpapi"
	"go.uber.org/zap"
)

// WelcomeText is served at the root path.
const WelcomeText = "Welcome to the Academic Tracker API. Visit /api/health to check server status."

// HealthRecord is the liveness body served at /api/health.
type HealthRecord struct {
	Success     bool   `json:"success"`
	Status      string `json:"status"`
	Message     string `json:"message"`
	Timestamp   string `json:"timestamp"`
	Environment string `json:"environment"`
}

// Welcome responds with a plain-text greeting.
func Welcome(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(WelcomeText))
}

// Health reports liveness only. It never touches a dependency.
func Health(environment string, now func() time.Time) http.HandlerFunc {
	if now == nil {
		now = time.Now
	}
	return func(w http.ResponseWriter, _ *http.Request) {
		httpapi.JSON(w, http.StatusOK, HealthRecord{
			Success:     true,
			Status:      "OK",
			Message:     "Server is running",
			Timestamp:   now().UTC().Format("2006-01-02T15:04:05.000Z07:00"),
			Environment: environment,
		})
	}
}

// Pinger is a dependency that can report reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

type readyRecord struct {
	Success bool              `json:"success"`
	Status  string            `json:"status"`
	Checks  map[string]string `json:"checks"`
}

// Ready pings every named dependency and answers 503 if any fails.
func Ready(checks map[string]Pinger, timeout time.Duration, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()

		body := readyRecord{Success: true, Status: "READY", Checks: make(map[string]string, len(checks))}
		for name, p := range checks {
			if err := p.Ping(ctx); err != nil {
				logger.Warn("readiness check failed", zap.String("dependency", name), zap.Error(err))
				body.Checks[name] = "unavailable"
				body.Success = false
				continue
			}
			body.Checks[name] = "ok"
		}

		status := http.StatusOK
		if !body.Success {
			body.Status = "UNAVAILABLE"
			status = http.StatusServiceUnavailable
		}
		httpapi.JSON(w, status, body)
	}
}
