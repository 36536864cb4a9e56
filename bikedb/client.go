// Package bikedb persists riding distances between shared-bike stations in
// SQLite so they survive restarts and only new station pairs need computing.
package bikedb

import (
	"database/sql"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3" // CGo-based SQLite driver
	"raptor.transitrouter.org/internal/appconf"
	"raptor.transitrouter.org/internal/logging"
)

type Config struct {
	DBPath  string
	Env     appconf.Environment
	Verbose bool
}

// Client is the main entry point for the library
type Client struct {
	config Config
	DB     *sql.DB
	logger *slog.Logger
}

func NewClient(config Config) (*Client, error) {
	logger := slog.Default().With(slog.String("component", "bikedb"))
	db, err := createDB(config)
	if err != nil {
		return nil, fmt.Errorf("unable to create DB: %w", err)
	} else if config.Verbose {
		logging.LogOperation(logger, "bike_distance_tables_created", slog.String("path", config.DBPath))
	}
	return &Client{config: config, DB: db, logger: logger}, nil
}

func (c *Client) Close() error {
	return c.DB.Close()
}

func (c *Client) GetDBPath() string {
	return c.config.DBPath
}
