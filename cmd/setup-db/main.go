package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/joho/godotenv"
)

const duplicateDatabase = "42P04"

// setup-db creates the database named in DATABASE_URL by connecting to the
// server's maintenance database.
func main() {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	parsed, err := url.Parse(dbURL)
	if err != nil {
		log.Fatalf("failed to parse DATABASE_URL: %v", err)
	}
	dbName, err := url.PathUnescape(strings.TrimPrefix(parsed.Path, "/"))
	if err != nil {
		log.Fatalf("failed to unescape database name: %v", err)
	}
	if dbName == "" {
		log.Fatal("no database name in DATABASE_URL")
	}

	adminURL := os.Getenv("DATABASE_ADMIN_URL")
	if adminURL == "" {
		admin := *parsed
		admin.Path = "/postgres"
		adminURL = admin.String()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	conn, err := pgx.Connect(ctx, adminURL)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer conn.Close(ctx) //nolint:errcheck

	_, err = conn.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{dbName}.Sanitize())
	var pgErr *pgconn.PgError
	switch {
	case err == nil:
		fmt.Printf("database %q created\n", dbName)
	case errors.As(err, &pgErr) && pgErr.Code == duplicateDatabase:
		fmt.Printf("database %q already exists\n", dbName)
	default:
		log.Fatalf("failed to create database: %v", err)
	}
}
