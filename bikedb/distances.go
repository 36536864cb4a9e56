package bikedb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"raptor.transitrouter.org/internal/logging"
)

// Distance is the riding distance in meters between two stations.
type Distance struct {
	StationA string
	StationB string
	Meters   int
}

// Distance returns the stored distance between a and b in either order.
func (c *Client) Distance(ctx context.Context, a, b string) (int, bool, error) {
	a, b = orderedPair(a, b)
	var meters int
	err := c.DB.QueryRowContext(ctx,
		"SELECT distance FROM distances WHERE station_a = ? AND station_b = ?", a, b).Scan(&meters)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to query distance: %w", err)
	}
	return meters, true, nil
}

// AllDistances streams every stored pair to fn.
func (c *Client) AllDistances(ctx context.Context, fn func(Distance)) error {
	rows, err := c.DB.QueryContext(ctx, "SELECT station_a, station_b, distance FROM distances")
	if err != nil {
		return fmt.Errorf("failed to query distances: %w", err)
	}
	defer logging.SafeCloseWithLogging(rows, c.logger, "database_rows")

	for rows.Next() {
		var d Distance
		if err := rows.Scan(&d.StationA, &d.StationB, &d.Meters); err != nil {
			return fmt.Errorf("failed to scan distance: %w", err)
		}
		fn(d)
	}
	return rows.Err()
}

// UpsertDistances stores distances in a single transaction.
func (c *Client) UpsertDistances(ctx context.Context, distances []Distance) error {
	if len(distances) == 0 {
		return nil
	}
	logging.LogOperation(c.logger, "inserting_distances", slog.Int("count", len(distances)))

	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer logging.SafeRollbackWithLogging(tx, c.logger, "upsert_distances")

	stmt, err := tx.PrepareContext(ctx,
		"INSERT OR REPLACE INTO distances (station_a, station_b, distance) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer logging.SafeCloseWithLogging(stmt, c.logger, "insert_statement")

	for _, d := range distances {
		if d.StationA == d.StationB {
			continue
		}
		a, b := orderedPair(d.StationA, d.StationB)
		if _, err := stmt.ExecContext(ctx, a, b, d.Meters); err != nil {
			return fmt.Errorf("failed to insert distance %s-%s: %w", a, b, err)
		}
	}
	return tx.Commit()
}

// PurgeMissingStations deletes every pair that references a station not in
// current and returns how many rows went.
func (c *Client) PurgeMissingStations(ctx context.Context, current []string) (int64, error) {
	tx, err := c.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer logging.SafeRollbackWithLogging(tx, c.logger, "purge_stations")

	if _, err := tx.ExecContext(ctx, "CREATE TEMP TABLE IF NOT EXISTS current_stations (id TEXT PRIMARY KEY)"); err != nil {
		return 0, fmt.Errorf("failed to create temp table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM current_stations"); err != nil {
		return 0, fmt.Errorf("failed to reset temp table: %w", err)
	}
	for _, id := range current {
		if _, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO current_stations (id) VALUES (?)", id); err != nil {
			return 0, fmt.Errorf("failed to stage station %s: %w", id, err)
		}
	}
	res, err := tx.ExecContext(ctx, `
		DELETE FROM distances
		WHERE station_a NOT IN (SELECT id FROM current_stations)
		   OR station_b NOT IN (SELECT id FROM current_stations)`)
	if err != nil {
		return 0, fmt.Errorf("failed to purge distances: %w", err)
	}
	purged, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	if purged > 0 {
		logging.LogOperation(c.logger, "stale_station_distances_purged", slog.Int64("rows", purged))
	}
	return purged, nil
}

// RecordImport remembers when the station list was last loaded.
func (c *Client) RecordImport(ctx context.Context, stationCount int, source string, at time.Time) error {
	_, err := c.DB.ExecContext(ctx, `
		INSERT INTO import_metadata (id, station_count, import_time, source) VALUES (1, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			station_count = excluded.station_count,
			import_time = excluded.import_time,
			source = excluded.source`,
		stationCount, at.Unix(), source)
	if err != nil {
		return fmt.Errorf("error updating import metadata: %w", err)
	}
	return nil
}
