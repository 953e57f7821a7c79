// Package catalog records which products have been written, so repeated
// directory runs can skip days that already exist.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one written product.
type Entry struct {
	Network   string
	Station   string
	Format    string
	Date      time.Time
	Path      string
	Bytes     int
	RequestID string
	WrittenAt time.Time
}

// Catalog is a SQLite-backed product ledger.
type Catalog struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the catalog database at path and applies pending
// migrations.
func Open(path string, logger *slog.Logger) (*Catalog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}
	// A single connection keeps :memory: databases shared across calls.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	c := New(db, logger)
	if err := c.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

// New wraps an open database. Call Migrate before use.
func New(db *sql.DB, logger *slog.Logger) *Catalog {
	return &Catalog{db: db, logger: logger}
}

// Close closes the underlying database.
func (c *Catalog) Close() error {
	return c.db.Close()
}

// Record stores e, replacing any earlier entry for the same product.
func (c *Catalog) Record(ctx context.Context, e Entry) error {
	if e.WrittenAt.IsZero() {
		e.WrittenAt = time.Now().UTC()
	}
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO products (network, station, format, date, path, bytes, request_id, written_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(network, station, format, date) DO UPDATE SET
			path = excluded.path,
			bytes = excluded.bytes,
			request_id = excluded.request_id,
			written_at = excluded.written_at
	`, e.Network, e.Station, e.Format, dateKey(e.Date), e.Path, e.Bytes, e.RequestID, e.WrittenAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("record %s.%s %s %s: %w", e.Network, e.Station, e.Format, dateKey(e.Date), err)
	}
	return nil
}

// Lookup returns the entry for a product, or nil when none was recorded.
func (c *Catalog) Lookup(ctx context.Context, network, station, format string, date time.Time) (*Entry, error) {
	row := c.db.QueryRowContext(ctx, `
		SELECT network, station, format, date, path, bytes, request_id, written_at
		FROM products
		WHERE network = ? AND station = ? AND format = ? AND date = ?
	`, network, station, format, dateKey(date))
	e, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup %s.%s: %w", network, station, err)
	}
	return e, nil
}

// Exists reports whether a product was recorded.
func (c *Catalog) Exists(ctx context.Context, network, station, format string, date time.Time) (bool, error) {
	e, err := c.Lookup(ctx, network, station, format, date)
	return e != nil, err
}

// List returns the entries of a station in date order.
func (c *Catalog) List(ctx context.Context, network, station string) ([]Entry, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT network, station, format, date, path, bytes, request_id, written_at
		FROM products
		WHERE network = ? AND station = ?
		ORDER BY date ASC, format ASC
	`, network, station)
	if err != nil {
		return nil, fmt.Errorf("list %s.%s: %w", network, station, err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*Entry, error) {
	var e Entry
	var date, written string
	if err := s.Scan(&e.Network, &e.Station, &e.Format, &date, &e.Path, &e.Bytes, &e.RequestID, &written); err != nil {
		return nil, err
	}
	var err error
	if e.Date, err = time.Parse(time.DateOnly, date); err != nil {
		return nil, fmt.Errorf("parse date %q: %w", date, err)
	}
	if e.WrittenAt, err = time.Parse(time.RFC3339Nano, written); err != nil {
		return nil, fmt.Errorf("parse written_at %q: %w", written, err)
	}
	return &e, nil
}

func dateKey(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}
