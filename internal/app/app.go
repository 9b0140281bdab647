package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/academictracker/api/internal/audit"
	"github.com/academictracker/api/internal/cache"
	"github.com/academictracker/api/internal/config"
	"github.com/academictracker/api/internal/database"
	"github.com/academictracker/api/internal/httpapi"
	"github.com/academictracker/api/internal/httpapi/handlers"
	httpmiddleware "github.com/academictracker/api/internal/httpapi/middleware"
	"github.com/academictracker/api/internal/password"
	googleprovider "github.com/academictracker/api/internal/providers/google"
	"github.com/academictracker/api/internal/revocation"
	"github.com/academictracker/api/internal/services/academic"
	"github.com/academictracker/api/internal/services/auth"
	"github.com/academictracker/api/internal/services/events"
	"github.com/academictracker/api/internal/services/grades"
	"github.com/academictracker/api/internal/store"
	"github.com/academictracker/api/internal/token"
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ErrDatabaseUnavailable marks a startup failure caused by the database. The
// listener is never opened when it occurs.
var ErrDatabaseUnavailable = errors.New("database unavailable")

const readinessTimeout = 2 * time.Second

// Route prefixes served by the API.
const (
	PrefixAuth     = "/api/auth"
	PrefixEvents   = "/api/events"
	PrefixGrades   = "/api/grades"
	PrefixAcademic = "/api/academic"
)

// Aliases lists alternate prefixes for mounted route groups.
var Aliases = []httpapi.Alias{
	{Prefix: "/api", Target: PrefixAuth},
}

// App wires core dependencies and exposes server lifecycle controls.
type App struct {
	cfg        *config.Config
	logger     *zap.Logger
	pool       *pgxpool.Pool
	redis      *redis.Client
	httpServer *http.Server
}

// New connects to the database, applies migrations and builds the HTTP
// server. Nothing listens until Run is called.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	pool, err := database.NewPool(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDatabaseUnavailable, err)
	}
	logger.Info("database connected")

	a := &App{cfg: cfg, logger: logger, pool: pool}
	handler, err := a.build(ctx)
	if err != nil {
		a.close()
		return nil, err
	}

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
		ErrorLog:          zap.NewStdLog(logger.Named("http")),
	}
	return a, nil
}

func (a *App) build(ctx context.Context) (http.Handler, error) {
	cfg, logger := a.cfg, a.logger

	if cfg.Database.RunMigrations {
		if err := database.RunMigrations(cfg.Database.URL, logger); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDatabaseUnavailable, err)
		}
	}

	redisClient, err := cache.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	a.redis = redisClient
	if redisClient == nil {
		logger.Warn("redis not configured; token revocation is process-local and login is not rate limited")
	}

	tokenSvc, err := token.NewService(cfg.Token)
	if err != nil {
		return nil, err
	}
	google, err := googleprovider.New(cfg.Google)
	if err != nil {
		return nil, err
	}

	st := store.New(a.pool)
	revoker := revocation.New(redisClient, cfg.Redis.Namespace)

	deps := auth.Dependencies{
		Users:    st.Users,
		TokenSvc: tokenSvc,
		Hasher:   password.NewHasher(cfg.Security),
		Revoker:  revoker,
		Auditor:  audit.New(st.AuditLog, logger),
		Logger:   logger.Named("auth"),
		Security: cfg.Security,
	}
	if google != nil {
		deps.Google = google
	}
	authService := auth.New(deps)

	authHandler := handlers.NewAuthHandler(authService, logger, cfg.App.ClientURL)
	eventHandler := handlers.NewEventHandler(events.New(st.Events, logger.Named("events")))
	gradeHandler := handlers.NewGradeHandler(grades.New(st.Grades, logger.Named("grades")))
	academicHandler := handlers.NewAcademicHandler(academic.New(st.Records, logger.Named("academic")))

	authMiddleware := httpmiddleware.NewAuth(tokenSvc, revoker, logger)
	rateLimiter := httpmiddleware.NewRateLimiter(redisClient, cfg.Redis.Namespace, logger)
	loginLimit := rateLimiter.Limit("login", cfg.Security.LoginRateLimit, time.Minute, httpapi.ClientIP)

	checks := map[string]handlers.Pinger{"database": a.pool}
	if redisClient != nil {
		checks["redis"] = handlers.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() })
	}

	return httpapi.NewRouter(httpapi.RouterDeps{
		Logger:         logger,
		Development:    cfg.App.IsDevelopment(),
		ClientURL:      cfg.App.ClientURL,
		BodyLimit:      cfg.HTTP.BodyLimitBytes,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		Welcome:        handlers.Welcome,
		Health:         handlers.Health(cfg.App.Environment, time.Now),
		Ready:          handlers.Ready(checks, readinessTimeout, logger),
		Mounts: []httpapi.Mount{
			{Prefix: PrefixAuth, Routes: func(r chi.Router, wrap httpapi.Adapter) {
				authHandler.Routes(r, wrap, authMiddleware.RequireAuth, loginLimit)
			}},
			{Prefix: PrefixEvents, Routes: func(r chi.Router, wrap httpapi.Adapter) {
				eventHandler.Routes(r, wrap, authMiddleware.RequireAuth)
			}},
			{Prefix: PrefixGrades, Routes: func(r chi.Router, wrap httpapi.Adapter) {
				gradeHandler.Routes(r, wrap, authMiddleware.RequireAuth)
			}},
			{Prefix: PrefixAcademic, Routes: func(r chi.Router, wrap httpapi.Adapter) {
				academicHandler.Routes(r, wrap, authMiddleware.RequireAuth)
			}},
		},
		Aliases: Aliases,
	})
}

// Run binds the listen address and serves HTTP until Shutdown is called.
// A clean shutdown returns nil.
func (a *App) Run() error {
	ln, err := net.Listen("tcp", a.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.httpServer.Addr, err)
	}
	a.logger.Info("server listening",
		zap.String("addr", ln.Addr().String()),
		zap.String("environment", a.cfg.App.Environment),
	)
	if err := a.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server and closes resources.
func (a *App) Shutdown(ctx context.Context) error {
	shutdownErr := a.httpServer.Shutdown(ctx)
	if err := a.close(); err != nil && shutdownErr == nil {
		shutdownErr = err
	}
	return shutdownErr
}

func (a *App) close() error {
	var closeErr error
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis client", zap.Error(err))
			closeErr = err
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
	return closeErr
}
