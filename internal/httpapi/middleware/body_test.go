package middleware

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestBodyLimit(t *testing.T) {
	var readErr error
	h := BodyLimit(8)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, readErr = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789")))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("declared oversize body: expected 413, got %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789"))
	req.ContentLength = -1
	h.ServeHTTP(httptest.NewRecorder(), req)
	var maxErr *http.MaxBytesError
	if readErr == nil || !errors.As(readErr, &maxErr) {
		t.Fatalf("expected MaxBytesError reading streamed body, got %v", readErr)
	}

	readErr = nil
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("small")))
	if rec.Code != http.StatusOK || readErr != nil {
		t.Fatalf("expected small body to pass, got %d (%v)", rec.Code, readErr)
	}
}

func TestParseForm(t *testing.T) {
	var title string
	h := BodyLimit(64)(ParseForm(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		title = r.PostForm.Get("title")
		w.WriteHeader(http.StatusOK)
	})))

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("title=Finals+week"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || title != "Finals week" {
		t.Fatalf("expected parsed form, got %d %q", rec.Code, title)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("title="+strings.Repeat("x", 100)))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.ContentLength = -1
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 for oversize form, got %d", rec.Code)
	}
}
