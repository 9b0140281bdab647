package main

import (
	"flag"
	"log"
	"os"

	"github.com/academictracker/api/internal/database"
	"github.com/academictracker/api/internal/logger"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()
	list := flag.Bool("list", false, "print embedded migrations and exit")
	flag.Parse()

	zapLogger, err := logger.New(os.Getenv("NODE_ENV"))
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zapLogger.Sync() //nolint:errcheck

	if *list {
		names, err := database.MigrationNames()
		if err != nil {
			zapLogger.Fatal("list migrations", zap.Error(err))
		}
		for _, n := range names {
			zapLogger.Info("migration", zap.String("file", n))
		}
		return
	}

	dbURL := os.Getenv("DB_URL")
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		zapLogger.Fatal("DATABASE_URL is required")
	}
	if err := database.RunMigrations(dbURL, zapLogger); err != nil {
		zapLogger.Fatal("migrate", zap.Error(err))
	}
	zapLogger.Info("migrations completed")
}
