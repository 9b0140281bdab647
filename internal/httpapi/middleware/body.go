package middleware

import (
	"errors"
	"mime"
	"net/http"
)

// BodyLimit rejects requests whose declared Content-Length exceeds limit and
// caps bodies of unknown length so reads past limit fail.
func BodyLimit(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > limit {
				writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)
			next.ServeHTTP(w, r)
		})
	}
}

// ParseForm eagerly parses URL-encoded bodies so oversize or malformed forms
// are rejected before routing. JSON bodies are decoded by handlers.
func ParseForm(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if mediaType != "application/x-www-form-urlencoded" {
			next.ServeHTTP(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				writeError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "request body too large")
				return
			}
			writeError(w, http.StatusBadRequest, "invalid_request", "malformed form body")
			return
		}
		next.ServeHTTP(w, r)
	})
}
