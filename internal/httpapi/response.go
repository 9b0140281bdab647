package httpapi

import (
	"encoding/json"
	"net/http"
)

// JSON writes a JSON response with provided status code.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// Envelope is the success body shared by every resource endpoint.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Count   *int   `json:"count,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// Success writes {success: true, data: ...}.
func Success(w http.ResponseWriter, status int, data any) {
	JSON(w, status, Envelope{Success: true, Data: data})
}

// List writes a success envelope with the number of items alongside them.
func List[T any](w http.ResponseWriter, items []T) {
	if items == nil {
		items = []T{}
	}
	n := len(items)
	JSON(w, http.StatusOK, Envelope{Success: true, Count: &n, Data: items})
}

// Message writes a success envelope carrying only a message.
func Message(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, Envelope{Success: true, Message: msg})
}

// ErrorResponse standard error envelope.
type ErrorResponse struct {
	Success   bool           `json:"success"`
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Cause     string         `json:"cause,omitempty"`
	Stack     string         `json:"stack,omitempty"`
}
