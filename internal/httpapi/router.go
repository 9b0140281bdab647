package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/academictracker/api/internal/httpapi/middleware"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// RouteGroup registers a collaborator's routes relative to its mount prefix.
type RouteGroup func(r chi.Router, wrap Adapter)

// Mount binds a path prefix to the route group that owns everything below it.
type Mount struct {
	Prefix string
	Routes RouteGroup
}

// Alias exposes the group mounted at Target under Prefix as well. Both paths
// are served by the same router instance.
type Alias struct {
	Prefix string
	Target string
}

// RouterDeps defines router construction dependencies.
type RouterDeps struct {
	Logger         *zap.Logger
	Development    bool
	ClientURL      string
	BodyLimit      int64
	RequestTimeout time.Duration

	Welcome http.HandlerFunc
	Health  http.HandlerFunc
	Ready   http.HandlerFunc

	Mounts  []Mount
	Aliases []Alias
}

// NewRouter wires the middleware chain, static endpoints, route groups and aliases.
func NewRouter(deps RouterDeps) (http.Handler, error) {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	errs := NewErrorHandler(logger, deps.Development)

	r := chi.NewRouter()
	r.NotFound(errs.NotFound)
	r.MethodNotAllowed(errs.MethodNotAllowed)

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(errs.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{deps.ClientURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	if deps.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(deps.RequestTimeout))
	}
	if deps.BodyLimit > 0 {
		r.Use(middleware.BodyLimit(deps.BodyLimit))
	}
	r.Use(middleware.ParseForm)
	if deps.Development {
		r.Use(middleware.RequestLogger(logger))
	}

	if deps.Welcome != nil {
		r.Get("/", deps.Welcome)
	}
	if deps.Health != nil {
		r.Get("/api/health", deps.Health)
	}
	if deps.Ready != nil {
		r.Get("/api/ready", deps.Ready)
	}

	groups := make(map[string]http.Handler, len(deps.Mounts))
	for _, m := range deps.Mounts {
		if _, dup := groups[m.Prefix]; dup {
			return nil, fmt.Errorf("route prefix %q mounted twice", m.Prefix)
		}
		sub := chi.NewRouter()
		sub.NotFound(errs.NotFound)
		sub.MethodNotAllowed(errs.MethodNotAllowed)
		m.Routes(sub, errs.Wrap)
		groups[m.Prefix] = sub
		r.Mount(m.Prefix, sub)
	}

	for _, a := range deps.Aliases {
		target, ok := groups[a.Target]
		if !ok {
			return nil, fmt.Errorf("alias %q targets unmounted prefix %q", a.Prefix, a.Target)
		}
		if _, clash := groups[a.Prefix]; clash {
			return nil, fmt.Errorf("alias %q shadows a mounted prefix", a.Prefix)
		}
		r.Mount(a.Prefix, target)
	}

	return r, nil
}
