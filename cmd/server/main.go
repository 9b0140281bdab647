package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/academictracker/api/internal/app"
	"github.com/academictracker/api/internal/config"
	"github.com/academictracker/api/internal/logger"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("warning: could not load .env file: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Printf("failed to load config: %v", err)
		os.Exit(app.ExitFailure)
	}

	zapLogger, err := logger.New(cfg.App.Environment)
	if err != nil {
		log.Printf("failed to init logger: %v", err)
		os.Exit(app.ExitFailure)
	}
	os.Exit(run(cfg, zapLogger, app.New))
}

// appFactory builds the application. Tests substitute their own.
type appFactory func(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app.App, error)

func run(cfg *config.Config, zapLogger *zap.Logger, newApp appFactory) (code int) {
	defer zapLogger.Sync() //nolint:errcheck // best effort
	defer app.RecoverBootstrap(zapLogger, &code)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := newApp(ctx, cfg, zapLogger)
	if err != nil {
		if errors.Is(err, app.ErrDatabaseUnavailable) {
			zapLogger.Error("database connection failed, not starting server", logger.ZapError(err))
		} else {
			zapLogger.Error("failed to bootstrap application", logger.ZapError(err))
		}
		return app.ExitFailure
	}

	supervisor := app.NewSupervisor(zapLogger, application.Shutdown, cfg.HTTP.ShutdownTimeout, nil)
	supervisor.Go("http server", application.Run)

	<-ctx.Done()
	zapLogger.Info("shutdown signal received")
	return supervisor.Stop()
}
