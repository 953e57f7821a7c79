// Package ftp uploads products to the FTP servers geomagnetic data centres
// collect from.
package ftp

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/couchcryptid/geomag-etl/internal/domain"
	"github.com/jlaffaye/ftp"
	"github.com/ncruces/go-strftime"
)

// Config locates the upload target. Dir is a strftime template expanded with
// the product date.
type Config struct {
	Addr     string
	User     string
	Password string
	Dir      string
	Timeout  time.Duration
}

// Uploader stores products over FTP, one connection per batch.
type Uploader struct {
	cfg    Config
	logger *slog.Logger
}

// NewUploader creates an uploader. Anonymous login is used when no user is set.
func NewUploader(cfg Config, logger *slog.Logger) *Uploader {
	if cfg.User == "" {
		cfg.User, cfg.Password = "anonymous", "anonymous"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Uploader{cfg: cfg, logger: logger}
}

// Put uploads a single product.
func (u *Uploader) Put(ctx context.Context, p domain.Product) error {
	return u.PutAll(ctx, []domain.Product{p})
}

// PutAll uploads products over one session, creating dated directories as
// needed.
func (u *Uploader) PutAll(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}
	conn, err := ftp.Dial(u.cfg.Addr, ftp.DialWithTimeout(u.cfg.Timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return fmt.Errorf("ftp dial: %w", err)
	}
	defer conn.Quit()

	if err := conn.Login(u.cfg.User, u.cfg.Password); err != nil {
		return fmt.Errorf("ftp login: %w", err)
	}

	made := make(map[string]bool)
	for _, p := range products {
		if err := ctx.Err(); err != nil {
			return err
		}
		dir := u.Dir(p)
		if dir != "" && !made[dir] {
			makeDirs(conn, dir)
			made[dir] = true
		}
		target := path.Join(dir, p.Filename)
		if err := conn.Stor(target, bytes.NewReader(p.Data)); err != nil {
			return fmt.Errorf("ftp stor %s: %w", target, err)
		}
		u.logger.Info("product uploaded", "addr", u.cfg.Addr, "path", target, "bytes", len(p.Data))
	}
	return nil
}

// LoadBatch uploads a pipeline batch.
func (u *Uploader) LoadBatch(ctx context.Context, products []domain.Product) error {
	return u.PutAll(ctx, products)
}

// Dir returns the remote directory of p.
func (u *Uploader) Dir(p domain.Product) string {
	if u.cfg.Dir == "" {
		return ""
	}
	return path.Clean(strftime.Format(u.cfg.Dir, p.Date.UTC()))
}

// makeDirs creates every component of dir. Failures are ignored since the
// usual cause is a directory that already exists; a real failure surfaces
// on STOR.
func makeDirs(conn *ftp.ServerConn, dir string) {
	prefix := ""
	if strings.HasPrefix(dir, "/") {
		prefix = "/"
	}
	for _, part := range strings.Split(strings.Trim(dir, "/"), "/") {
		prefix = path.Join(prefix, part)
		_ = conn.MakeDir(prefix)
	}
}
