package bikedb

import (
	"database/sql"
	"log/slog"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableCounts(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	db.SetMaxOpenConns(1)

	client := &Client{DB: db, logger: slog.Default()}

	_, err = db.Exec(`
		CREATE TABLE distances (station_a TEXT, station_b TEXT, distance INTEGER);
		INSERT INTO distances VALUES ('a', 'b', 1), ('a', 'c', 2);

		-- Create a table NOT in the whitelist to ensure it's ignored
		CREATE TABLE secret_table (id TEXT);
	`)
	require.NoError(t, err)

	counts, err := client.TableCounts()
	require.NoError(t, err)

	assert.Equal(t, 2, counts["distances"], "Should count distances correctly")

	_, exists := counts["secret_table"]
	assert.False(t, exists, "Should not include tables outside the whitelist")
}

func TestTableCountsReleasesConnection(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	defer func() { _ = db.Close() }()
	// One connection: a leaked result set would block every later query.
	db.SetMaxOpenConns(1)

	client := &Client{DB: db, logger: slog.Default()}
	_, err = db.Exec(`
		CREATE TABLE distances (station_a TEXT, station_b TEXT, distance INTEGER);
		CREATE TABLE import_metadata (id INTEGER);
		INSERT INTO import_metadata VALUES (1);
	`)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		counts, err := client.TableCounts()
		require.NoError(t, err)
		assert.Equal(t, map[string]int{"distances": 0, "import_metadata": 1}, counts)
	}

	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM distances").Scan(&n))
}
