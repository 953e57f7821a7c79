package catalog

import (
	"context"
	"fmt"
	"time"
)

type migration struct {
	Version     int
	Description string
	SQL         string
}

var migrations = []migration{
	{
		Version:     1,
		Description: "Product ledger",
		SQL: `
CREATE TABLE IF NOT EXISTS products (
    network TEXT NOT NULL,
    station TEXT NOT NULL,
    format TEXT NOT NULL,
    date TEXT NOT NULL,
    path TEXT NOT NULL,
    bytes INTEGER NOT NULL,
    written_at TEXT NOT NULL,
    PRIMARY KEY (network, station, format, date)
);
`,
	},
	{
		Version:     2,
		Description: "Request IDs",
		SQL:         `ALTER TABLE products ADD COLUMN request_id TEXT NOT NULL DEFAULT '';`,
	},
}

// Migrate applies every migration not yet recorded in schema_migrations.
func (c *Catalog) Migrate(ctx context.Context) error {
	if _, err := c.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			description TEXT,
			applied_at TEXT
		)
	`); err != nil {
		return fmt.Errorf("ensure migrations table: %w", err)
	}

	version, err := c.MigrationVersion(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.Version <= version {
			continue
		}
		c.logger.Info("catalog migration", "version", m.Version, "description", m.Description)

		tx, err := c.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin tx for migration %d: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("execute migration %d: %w", m.Version, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)",
			m.Version, m.Description, time.Now().UTC().Format(time.RFC3339),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.Version, err)
		}
	}
	return nil
}

// MigrationVersion returns the highest applied migration, 0 for a new database.
func (c *Catalog) MigrationVersion(ctx context.Context) (int, error) {
	var v int
	if err := c.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&v); err != nil {
		return 0, fmt.Errorf("read migration version: %w", err)
	}
	return v, nil
}
