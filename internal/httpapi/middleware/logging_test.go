package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	h := RequestLogger(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodDelete, "/api/grades/1", nil))

	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	entry := entries[0]
	if !strings.HasPrefix(entry.Message, "DELETE /api/grades/1 - ") {
		t.Fatalf("unexpected message %q", entry.Message)
	}
	fields := entry.ContextMap()
	if fields["status"] != int64(http.StatusTeapot) || fields["bytes"] != int64(len("short and stout")) {
		t.Fatalf("unexpected fields %v", fields)
	}
}
