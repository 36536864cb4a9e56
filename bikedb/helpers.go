package bikedb

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"raptor.transitrouter.org/internal/appconf"
	"raptor.transitrouter.org/internal/logging"
)

//go:embed schema.sql
var ddl string

func createDB(config Config) (*sql.DB, error) {
	if config.Env == appconf.Test && config.DBPath != ":memory:" {
		return nil, fmt.Errorf("test database must use in-memory storage, got path: %s", config.DBPath)
	}

	db, err := sql.Open("sqlite3", config.DBPath)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	if err := configureSQLitePerformance(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error configuring SQLite performance: %w", err)
	}

	configureConnectionPool(db, config)

	if err := performDatabaseMigration(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error performing database migration: %w", err)
	}
	return db, nil
}

func performDatabaseMigration(ctx context.Context, db *sql.DB) error {
	for _, stmt := range strings.Split(ddl, "-- migrate") {
		trimmed := strings.TrimSpace(stmt)
		if trimmed == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, trimmed); err != nil {
			return fmt.Errorf("error executing DDL statement [%s]: %w", trimmed, err)
		}
	}
	return nil
}

func configureSQLitePerformance(ctx context.Context, db *sql.DB) error {
	pragmas := []struct {
		name        string
		description string
	}{
		{"PRAGMA cache_size=-16000", "Set cache size to 16MB"},
		{"PRAGMA temp_store=MEMORY", "Store temporary data in memory"},
		{"PRAGMA journal_mode=WAL", "Enable write-ahead logging"},
	}

	logger := slog.Default().With(slog.String("component", "sqlite_performance"))
	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma.name); err != nil {
			logging.LogError(logger, fmt.Sprintf("Failed to set %s", pragma.description), err)
			return fmt.Errorf("failed to execute %s: %w", pragma.name, err)
		}
	}
	return nil
}

// configureConnectionPool limits :memory: databases to one connection, since
// every connection to one opens a separate database.
func configureConnectionPool(db *sql.DB, config Config) {
	if config.DBPath == ":memory:" {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
		return
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)
}

// orderedPair stores every pair once, smallest ID first.
func orderedPair(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}
