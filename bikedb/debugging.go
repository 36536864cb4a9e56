package bikedb

import (
	"fmt"

	"raptor.transitrouter.org/internal/logging"
)

func (c *Client) TableCounts() (map[string]int, error) {
	rows, err := c.DB.Query("SELECT name FROM sqlite_master WHERE type='table' AND name NOT LIKE 'sqlite_%'")
	if err != nil {
		return nil, fmt.Errorf("failed to query table names: %w", err)
	}

	defer logging.SafeCloseWithLogging(rows, c.logger, "database_rows")

	var tables []string
	for rows.Next() {
		var tableName string
		if err := rows.Scan(&tableName); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, tableName)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	tableCountQueries := map[string]string{
		"distances":       "SELECT COUNT(*) FROM distances",
		"import_metadata": "SELECT COUNT(*) FROM import_metadata",
	}

	counts := make(map[string]int)
	for _, table := range tables {
		query, ok := tableCountQueries[table]
		if !ok {
			continue
		}
		var count int
		if err := c.DB.QueryRow(query).Scan(&count); err != nil {
			return nil, err
		}
		counts[table] = count
	}
	return counts, nil
}
