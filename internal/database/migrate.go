package database

import (
	"embed"
	"fmt"
	"net/url"

	"github.com/amacneil/dbmate/v2/pkg/dbmate"
	_ "github.com/amacneil/dbmate/v2/pkg/driver/postgres" // register dbmate postgres driver
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// RunMigrations applies the embedded SQL migrations using dbmate.
func RunMigrations(databaseURL string, logger *zap.Logger) error {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return fmt.Errorf("parse database url: %w", err)
	}

	db := dbmate.New(u)
	db.FS = migrationsFS
	db.MigrationsDir = []string{"migrations"}
	db.AutoDumpSchema = false
	db.Strict = true
	db.Log = zap.NewStdLog(logger.Named("migrations")).Writer()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// MigrationNames lists the embedded migration files in apply order.
func MigrationNames() ([]string, error) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return nil, fmt.Errorf("read migrations: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}
