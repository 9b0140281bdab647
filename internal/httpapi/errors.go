package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/academictracker/api/internal/store"
	"github.com/academictracker/api/internal/validation"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Error is a request-scoped failure with a client-facing status and code.
type Error struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// BadRequest builds a 400 error.
func BadRequest(msg string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: "invalid_request", Message: msg}
}

// Unauthorized builds a 401 error.
func Unauthorized(code, msg string) *Error {
	return &Error{Status: http.StatusUnauthorized, Code: code, Message: msg}
}

// NotFoundError builds a 404 error.
func NotFoundError(msg string) *Error {
	return &Error{Status: http.StatusNotFound, Code: "not_found", Message: msg}
}

// HandlerFunc is an http handler that forwards failures to the error handler.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Adapter turns a HandlerFunc into a plain http.HandlerFunc.
type Adapter func(HandlerFunc) http.HandlerFunc

// panicError carries a recovered panic value to the error handler.
type panicError struct {
	value any
	stack []byte
}

func (p *panicError) Error() string { return fmt.Sprintf("panic: %v", p.value) }

// ErrorHandler is the terminal error handler for every route.
type ErrorHandler struct {
	logger      *zap.Logger
	development bool
}

// NewErrorHandler builds an ErrorHandler. In development, responses include
// the underlying cause and stack; otherwise they never do.
func NewErrorHandler(logger *zap.Logger, development bool) *ErrorHandler {
	return &ErrorHandler{logger: logger, development: development}
}

// Wrap adapts fn so that a returned error is rendered by the handler.
func (h *ErrorHandler) Wrap(fn HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			h.Handle(w, r, err)
		}
	}
}

// Handle renders err as a structured error body.
func (h *ErrorHandler) Handle(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := classify(err)
	reqID := chimiddleware.GetReqID(r.Context())

	body := ErrorResponse{
		Success:   false,
		Code:      apiErr.Code,
		Message:   apiErr.Message,
		Details:   apiErr.Details,
		RequestID: reqID,
	}

	if apiErr.Status >= http.StatusInternalServerError {
		fields := []zap.Field{
			zap.String("request_id", reqID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		}
		var p *panicError
		if errors.As(err, &p) {
			fields = append(fields, zap.ByteString("stack", p.stack))
		}
		h.logger.Error("request failed", fields...)
	}

	if h.development {
		body.Cause = err.Error()
		var p *panicError
		if errors.As(err, &p) {
			body.Stack = string(p.stack)
		}
	}

	JSON(w, apiErr.Status, body)
}

// NotFound responds to requests that matched no route.
func (h *ErrorHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusNotFound, ErrorResponse{
		Code:      "not_found",
		Message:   "Not Found - " + r.URL.Path,
		RequestID: chimiddleware.GetReqID(r.Context()),
	})
}

// MethodNotAllowed responds when the path exists but not for this method.
func (h *ErrorHandler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusMethodNotAllowed, ErrorResponse{
		Code:      "method_not_allowed",
		Message:   fmt.Sprintf("%s not allowed on %s", r.Method, r.URL.Path),
		RequestID: chimiddleware.GetReqID(r.Context()),
	})
}

// Recoverer converts a handler panic into a 500 via Handle.
func (h *ErrorHandler) Recoverer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			h.Handle(w, r, &panicError{value: rec, stack: debug.Stack()})
		}()
		next.ServeHTTP(w, r)
	})
}

func classify(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		return &Error{Status: http.StatusBadRequest, Code: "validation_failed", Message: "validation failed", Details: verrs.Details()}
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return &Error{Status: http.StatusRequestEntityTooLarge, Code: "payload_too_large", Message: "request body too large"}
	}
	if errors.Is(err, store.ErrNotFound) {
		return NotFoundError("resource not found")
	}
	if errors.Is(err, store.ErrConflict) {
		return &Error{Status: http.StatusConflict, Code: "conflict", Message: "resource already exists"}
	}
	return &Error{Status: http.StatusInternalServerError, Code: "server_error", Message: "internal server error"}
}
