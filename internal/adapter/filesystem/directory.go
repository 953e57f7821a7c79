// Package filesystem writes products into a dated directory tree, the layout
// geomagnetic data servers expose, e.g. /data/%Y/%j/ott20190102vmin.min.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/geomag-etl/internal/catalog"
	"github.com/couchcryptid/geomag-etl/internal/domain"
	"github.com/ncruces/go-strftime"
)

// Ledger records written products. *catalog.Catalog satisfies it.
type Ledger interface {
	Exists(ctx context.Context, network, station, format string, date time.Time) (bool, error)
	Record(ctx context.Context, e catalog.Entry) error
}

// Directory writes products below a strftime directory template expanded
// with the product date.
type Directory struct {
	template string
	ledger   Ledger
	force    bool
	logger   *slog.Logger
}

// Option configures a Directory.
type Option func(*Directory)

// WithLedger records every write and skips products already recorded whose
// file still exists.
func WithLedger(l Ledger) Option {
	return func(d *Directory) { d.ledger = l }
}

// WithForce rewrites products even when the ledger lists them.
func WithForce(force bool) Option {
	return func(d *Directory) { d.force = force }
}

// NewDirectory creates a writer for template, e.g. "/data/%Y/%j".
func NewDirectory(template string, logger *slog.Logger, opts ...Option) *Directory {
	d := &Directory{template: template, logger: logger}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Path returns where p is written.
func (d *Directory) Path(p domain.Product) string {
	return filepath.Join(strftime.Format(d.template, p.Date.UTC()), p.Filename)
}

// Put writes p and reports whether it was written (false when skipped).
func (d *Directory) Put(ctx context.Context, p domain.Product) (bool, error) {
	path := d.Path(p)

	if d.ledger != nil && !d.force {
		done, err := d.ledger.Exists(ctx, p.Network, p.Station, p.Format, p.Date)
		if err != nil {
			return false, err
		}
		if done && fileExists(path) {
			d.logger.Info("product exists, skipping", "path", path)
			return false, nil
		}
	}

	if err := writeFileAtomic(path, p.Data); err != nil {
		return false, err
	}
	d.logger.Info("product written", "path", path, "bytes", len(p.Data))

	if d.ledger != nil {
		if err := d.ledger.Record(ctx, catalog.Entry{
			Network:   p.Network,
			Station:   p.Station,
			Format:    p.Format,
			Date:      p.Date,
			Path:      path,
			Bytes:     len(p.Data),
			RequestID: p.RequestID,
		}); err != nil {
			return true, err
		}
	}
	return true, nil
}

// LoadBatch writes every product, stopping at the first failure. It lets the
// directory serve as a pipeline loader.
func (d *Directory) LoadBatch(ctx context.Context, products []domain.Product) error {
	for _, p := range products {
		if _, err := d.Put(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// writeFileAtomic writes a temporary file next to path and renames it into
// place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	_, werr := tmp.Write(data)
	cerr := tmp.Close()
	if err := errors.Join(werr, cerr); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("chmod %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename %s: %w", path, err)
	}
	return nil
}
