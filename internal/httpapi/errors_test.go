package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/academictracker/api/internal/store"
	"github.com/academictracker/api/internal/validation"
	"go.uber.org/zap"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"api error", Unauthorized("invalid_credentials", "nope"), http.StatusUnauthorized, "invalid_credentials"},
		{"validation", validation.Errors{"title": "is required"}, http.StatusBadRequest, "validation_failed"},
		{"wrapped not found", fmt.Errorf("get event: %w", store.ErrNotFound), http.StatusNotFound, "not_found"},
		{"conflict", store.ErrConflict, http.StatusConflict, "conflict"},
		{"too large", &http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge, "payload_too_large"},
		{"unknown", errors.New("connection reset"), http.StatusInternalServerError, "server_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classify(tt.err)
			if got.Status != tt.status || got.Code != tt.code {
				t.Fatalf("expected %d/%s, got %d/%s", tt.status, tt.code, got.Status, got.Code)
			}
		})
	}
}

func TestHandleHidesCauseOutsideDevelopment(t *testing.T) {
	for _, development := range []bool{false, true} {
		h := NewErrorHandler(zap.NewNop(), development)
		rec := httptest.NewRecorder()
		h.Handle(rec, httptest.NewRequest(http.MethodGet, "/api/grades", nil), errors.New("pq: relation missing"))

		var body ErrorResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Message != "internal server error" {
			t.Fatalf("unexpected message %q", body.Message)
		}
		if (body.Cause != "") != development {
			t.Fatalf("development=%v but cause=%q", development, body.Cause)
		}
	}
}

func TestValidationDetailsRendered(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), false)
	rec := httptest.NewRecorder()
	h.Wrap(func(http.ResponseWriter, *http.Request) error {
		return validation.Errors{"score": "must not be negative"}
	})(rec, httptest.NewRequest(http.MethodPost, "/api/grades", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Details["score"] != "must not be negative" {
		t.Fatalf("expected field detail, got %v", body.Details)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	h := NewErrorHandler(zap.NewNop(), false)
	rec := httptest.NewRecorder()
	h.MethodNotAllowed(rec, httptest.NewRequest(http.MethodDelete, "/api/health", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
