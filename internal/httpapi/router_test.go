package httpapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/academictracker/api/internal/httpapi"
	"github.com/academictracker/api/internal/httpapi/handlers"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const clientURL = "http://localhost:5173"

type signupBody struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type authHits struct{ count int }

func (h *authHits) routes(r chi.Router, wrap httpapi.Adapter) {
	r.Post("/signup", wrap(func(w http.ResponseWriter, r *http.Request) error {
		h.count++
		var body signupBody
		if err := httpapi.Decode(r, &body); err != nil {
			return err
		}
		httpapi.Success(w, http.StatusCreated, body)
		return nil
	}))
	r.Get("/explode", func(http.ResponseWriter, *http.Request) { panic("handler blew up") })
}

func newTestRouter(t *testing.T, development bool, logger *zap.Logger) (http.Handler, *authHits) {
	t.Helper()
	hits := &authHits{}
	fixed := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)
	router, err := httpapi.NewRouter(httpapi.RouterDeps{
		Logger:         logger,
		Development:    development,
		ClientURL:      clientURL,
		BodyLimit:      10 << 20,
		RequestTimeout: 5 * time.Second,
		Welcome:        handlers.Welcome,
		Health:         handlers.Health("test", func() time.Time { return fixed }),
		Mounts: []httpapi.Mount{
			{Prefix: "/api/auth", Routes: hits.routes},
			{Prefix: "/api/events", Routes: func(r chi.Router, wrap httpapi.Adapter) {
				r.Get("/", func(w http.ResponseWriter, _ *http.Request) { httpapi.List(w, []string{"exam"}) })
			}},
		},
		Aliases: []httpapi.Alias{{Prefix: "/api", Target: "/api/auth"}},
	})
	if err != nil {
		t.Fatalf("new router: %v", err)
	}
	return router, hits
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestWelcome(t *testing.T) {
	router, _ := newTestRouter(t, false, zap.NewNop())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := rec.Body.String(); got != "Welcome to the Academic Tracker API. Visit /api/health to check server status." {
		t.Fatalf("unexpected welcome text %q", got)
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/plain") {
		t.Fatalf("expected plain text, got %q", rec.Header().Get("Content-Type"))
	}
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t, false, zap.NewNop())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := decodeBody(t, rec)
	want := map[string]any{
		"success":     true,
		"status":      "OK",
		"message":     "Server is running",
		"timestamp":   "2025-09-01T12:00:00.000Z",
		"environment": "test",
	}
	for k, v := range want {
		if body[k] != v {
			t.Fatalf("health %s: expected %v, got %v", k, v, body[k])
		}
	}
}

func TestNotFound(t *testing.T) {
	router, _ := newTestRouter(t, false, zap.NewNop())
	for _, path := range []string{"/nope", "/api/auth/missing", "/api/events/unknown/deep"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s: expected 404, got %d", path, rec.Code)
		}
		body := decodeBody(t, rec)
		if body["success"] != false || body["message"] != "Not Found - "+path {
			t.Fatalf("%s: unexpected body %v", path, body)
		}
	}
}

func TestAliasServesSameGroup(t *testing.T) {
	router, hits := newTestRouter(t, false, zap.NewNop())
	payload := `{"name":"Ada","email":"ada@example.edu"}`

	var bodies []string
	for _, path := range []string{"/api/auth/signup", "/api/signup"} {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("%s: expected 201, got %d: %s", path, rec.Code, rec.Body.String())
		}
		bodies = append(bodies, rec.Body.String())
	}
	if bodies[0] != bodies[1] {
		t.Fatalf("alias responses differ: %q vs %q", bodies[0], bodies[1])
	}
	if hits.count != 2 {
		t.Fatalf("expected both paths to reach the same handler, got %d hits", hits.count)
	}
}

func TestAliasUnknownTarget(t *testing.T) {
	_, err := httpapi.NewRouter(httpapi.RouterDeps{
		ClientURL: clientURL,
		Aliases:   []httpapi.Alias{{Prefix: "/api", Target: "/api/auth"}},
	})
	if err == nil {
		t.Fatal("expected error for alias to unmounted prefix")
	}
}

func TestURLEncodedBody(t *testing.T) {
	router, _ := newTestRouter(t, false, zap.NewNop())
	form := url.Values{"name": {"Grace"}, "email": {"grace@example.edu"}}
	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	data := decodeBody(t, rec)["data"].(map[string]any)
	if data["name"] != "Grace" || data["email"] != "grace@example.edu" {
		t.Fatalf("unexpected decoded form %v", data)
	}
}

func TestBodyOverLimitRejected(t *testing.T) {
	router, hits := newTestRouter(t, false, zap.NewNop())
	big := bytes.Repeat([]byte("a"), 10<<20+1)

	declared := httptest.NewRequest(http.MethodPost, "/api/auth/signup", bytes.NewReader(big))
	declared.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, declared)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("declared length: expected 413, got %d", rec.Code)
	}

	body := append([]byte(`{"name":"`), big...)
	body = append(body, []byte(`"}`)...)
	streamed := httptest.NewRequest(http.MethodPost, "/api/auth/signup", bytes.NewReader(body))
	streamed.Header.Set("Content-Type", "application/json")
	streamed.ContentLength = -1
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, streamed)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("streamed body: expected 413, got %d", rec.Code)
	}
	if hits.count != 1 {
		t.Fatalf("only the streamed request should reach the handler, got %d", hits.count)
	}
}

func TestCORS(t *testing.T) {
	router, _ := newTestRouter(t, false, zap.NewNop())

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/api/auth/signup", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	allowed := preflight(clientURL)
	if got := allowed.Header().Get("Access-Control-Allow-Origin"); got != clientURL {
		t.Fatalf("expected allowed origin echoed, got %q", got)
	}
	if got := allowed.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("expected credentials allowed, got %q", got)
	}

	denied := preflight("http://evil.example")
	if got := denied.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("expected no CORS grant for foreign origin, got %q", got)
	}
}

func TestPanicBecomesServerError(t *testing.T) {
	for _, development := range []bool{false, true} {
		core, logs := observer.New(zapcore.ErrorLevel)
		router, _ := newTestRouter(t, development, zap.New(core))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/explode", nil))

		if rec.Code != http.StatusInternalServerError {
			t.Fatalf("dev=%v: expected 500, got %d", development, rec.Code)
		}
		body := decodeBody(t, rec)
		if body["code"] != "server_error" || body["success"] != false {
			t.Fatalf("dev=%v: unexpected body %v", development, body)
		}
		_, hasStack := body["stack"]
		if hasStack != development {
			t.Fatalf("dev=%v: stack present=%v", development, hasStack)
		}
		if logs.FilterMessage("request failed").Len() != 1 {
			t.Fatalf("dev=%v: expected the failure to be logged", development)
		}
	}
}

func TestRequestLoggerOnlyInDevelopment(t *testing.T) {
	for _, development := range []bool{true, false} {
		core, logs := observer.New(zapcore.InfoLevel)
		router, _ := newTestRouter(t, development, zap.New(core))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/events", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		entries := logs.All()
		if !development {
			if len(entries) != 0 {
				t.Fatalf("expected no request logs outside development, got %v", entries)
			}
			continue
		}
		if len(entries) != 1 || !strings.HasPrefix(entries[0].Message, "GET /api/events - ") {
			t.Fatalf("expected one request log line, got %v", entries)
		}
	}
}
