package httpapi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type formTarget struct {
	Title     *string    `json:"title"`
	Score     *float64   `json:"score"`
	Completed *bool      `json:"completed"`
	StartsAt  *time.Time `json:"starts_at"`
	Tags      []string   `json:"tags"`
}

func formRequest(values url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=utf-8")
	return req
}

func TestDecodeForm(t *testing.T) {
	req := formRequest(url.Values{
		"title":     {"Midterm"},
		"score":     {"87.5"},
		"completed": {"true"},
		"starts_at": {"2025-10-01T09:00:00Z"},
		"tags":      {"math", "exam"},
	})

	var got formTarget
	if err := Decode(req, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Title == nil || *got.Title != "Midterm" {
		t.Fatalf("title: %v", got.Title)
	}
	if got.Score == nil || *got.Score != 87.5 {
		t.Fatalf("score: %v", got.Score)
	}
	if got.Completed == nil || !*got.Completed {
		t.Fatalf("completed: %v", got.Completed)
	}
	if got.StartsAt == nil || !got.StartsAt.Equal(time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("starts_at: %v", got.StartsAt)
	}
	if len(got.Tags) != 2 {
		t.Fatalf("tags: %v", got.Tags)
	}
}

func TestDecodeFormRejectsUnknownAndMistyped(t *testing.T) {
	tests := []struct {
		name    string
		values  url.Values
		message string
	}{
		{"unknown field", url.Values{"admin": {"true"}}, `unknown field "admin"`},
		{"non-numeric score", url.Values{"score": {"high"}}, `field "score" has an invalid value`},
		{"bad timestamp", url.Values{"starts_at": {"tomorrow"}}, `field "starts_at" has an invalid value`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var target formTarget
			err := Decode(formRequest(tt.values), &target)
			var apiErr *Error
			if !errors.As(err, &apiErr) || apiErr.Status != http.StatusBadRequest || apiErr.Code != "invalid_request" {
				t.Fatalf("expected 400 invalid_request, got %v", err)
			}
			if apiErr.Message != tt.message {
				t.Fatalf("expected message %q, got %q", tt.message, apiErr.Message)
			}
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name string
		body string
		code string
	}{
		{"empty", "", "invalid_request"},
		{"unknown field", `{"nope":1}`, "invalid_request"},
		{"malformed", `{"title":`, "invalid_request"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			var target formTarget
			err := Decode(req, &target)
			var apiErr *Error
			if !errors.As(err, &apiErr) || apiErr.Code != tt.code {
				t.Fatalf("expected %s, got %v", tt.code, err)
			}
		})
	}
}

func TestURLParamUUID(t *testing.T) {
	id := uuid.New()
	withParam := func(v string) *http.Request {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("id", v)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	}

	got, err := URLParamUUID(withParam(id.String()), "id")
	if err != nil || got != id {
		t.Fatalf("expected %s, got %s (%v)", id, got, err)
	}

	_, err = URLParamUUID(withParam("42"), "id")
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Code != "invalid_id" {
		t.Fatalf("expected invalid_id, got %v", err)
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.7:51234"
	if got := ClientIP(req); got != "10.0.0.7" {
		t.Fatalf("expected remote host, got %q", got)
	}
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := ClientIP(req); got != "10.0.0.7" {
		t.Fatalf("forwarded headers must not change the client address, got %q", got)
	}
}

func TestClientIPAfterRealIP(t *testing.T) {
	var seen string
	h := chimiddleware.RealIP(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = ClientIP(r)
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.7:51234"
	req.Header.Set("X-Real-IP", "198.51.100.4")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "198.51.100.4" {
		t.Fatalf("expected address rewritten by RealIP, got %q", seen)
	}
}
