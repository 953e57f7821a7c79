package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/couchcryptid/geomag-etl/internal/adapter/filesystem"
	"github.com/couchcryptid/geomag-etl/internal/adapter/ftp"
	"github.com/couchcryptid/geomag-etl/internal/adapter/netcdf"
	"github.com/couchcryptid/geomag-etl/internal/catalog"
	"github.com/couchcryptid/geomag-etl/internal/convert"
	"github.com/couchcryptid/geomag-etl/internal/domain"
	"github.com/couchcryptid/geomag-etl/internal/format"
)

// RequestFlags select the data to convert.
type RequestFlags struct {
	Network       string        `help:"Network code." default:"C2"`
	Station       string        `help:"Station code; ? and * match several stations." required:""`
	Locations     []string      `help:"Location codes, in request order." default:"R?"`
	Channels      []string      `help:"Channel codes." default:"UFX,UFY,UFZ,UFF"`
	Date          string        `help:"UTC day as YYYY-MM-DD; defaults to today."`
	Format        format.Format `help:"Output format: iaga2002, imfv122 or internet." default:"iaga2002"`
	LocationOrder []string      `help:"Locations from lowest to highest merge precedence."`
}

func (f RequestFlags) request() convert.Request {
	return convert.Request{
		Network:       f.Network,
		Station:       f.Station,
		Locations:     f.Locations,
		Channels:      f.Channels,
		Date:          f.Date,
		Format:        f.Format,
		LocationOrder: f.LocationOrder,
	}
}

// FTPFlags configure an optional upload of every product.
type FTPFlags struct {
	Addr     string `help:"FTP server host:port; uploads are skipped when empty." env:"FTP_ADDR"`
	User     string `help:"FTP user; anonymous when empty." env:"FTP_USER"`
	Password string `help:"FTP password." env:"FTP_PASSWORD"`
	Dir      string `help:"Remote directory template (strftime)." env:"FTP_DIR"`
}

func (f FTPFlags) upload(a *app, products []domain.Product) error {
	if f.Addr == "" || len(products) == 0 {
		return nil
	}
	u := ftp.NewUploader(ftp.Config{Addr: f.Addr, User: f.User, Password: f.Password, Dir: f.Dir}, a.logger)
	return u.PutAll(a.ctx, products)
}

// ConvertCmd writes one day to stdout or a single file.
type ConvertCmd struct {
	RequestFlags `embed:""`
	FTP          FTPFlags `embed:"" prefix:"ftp-"`

	Output string `short:"o" help:"Output file; stdout when empty." type:"path"`
}

func (c *ConvertCmd) Run(a *app) error {
	svc, err := a.service()
	if err != nil {
		return err
	}
	products, convErr := svc.Convert(a.ctx, c.request())
	if err := writeProducts(c.Output, products); err != nil {
		return err
	}
	if err := c.FTP.upload(a, products); err != nil {
		return err
	}
	return convErr
}

// DirectoryCmd writes one day into a directory tree, recording each product
// in an optional catalog so reruns skip finished days.
type DirectoryCmd struct {
	RequestFlags `embed:""`
	FTP          FTPFlags `embed:"" prefix:"ftp-"`

	Directory string `help:"Directory template (strftime), e.g. /data/%Y/%j." required:"" env:"OUTPUT_DIR"`
	Catalog   string `help:"SQLite catalog of written products." type:"path" env:"CATALOG_PATH"`
	Force     bool   `help:"Rewrite products the catalog already holds."`
}

func (c *DirectoryCmd) Run(a *app) error {
	svc, err := a.service()
	if err != nil {
		return err
	}
	products, convErr := svc.Convert(a.ctx, c.request())
	if err := storeProducts(a, c.Directory, c.Catalog, c.Force, products); err != nil {
		return err
	}
	if err := c.FTP.upload(a, products); err != nil {
		return err
	}
	return convErr
}

// NetcdfCmd converts NetCDF files read from disk. The station and day come
// from the file unless given.
type NetcdfCmd struct {
	Files []string `arg:"" help:"NetCDF files, one station each." type:"existingfile"`

	Date          string        `help:"UTC day as YYYY-MM-DD; defaults to the first sample's day."`
	Format        format.Format `help:"Output format: iaga2002, imfv122 or internet." default:"iaga2002"`
	LocationOrder []string      `help:"Locations from lowest to highest merge precedence."`

	Output    string `short:"o" help:"Output file; stdout when empty." type:"path"`
	Directory string `help:"Directory template (strftime); overrides --output." env:"OUTPUT_DIR"`
	Catalog   string `help:"SQLite catalog of written products." type:"path" env:"CATALOG_PATH"`
	Force     bool   `help:"Rewrite products the catalog already holds."`
}

func (c *NetcdfCmd) Run(a *app) error {
	var stream domain.Stream
	for _, path := range c.Files {
		s, err := netcdf.Read(path)
		if err != nil {
			return err
		}
		a.logger.Info("netcdf loaded", "path", path, "traces", len(s), "samples", s.SampleCount())
		stream = append(stream, s...)
	}
	if len(stream) == 0 {
		return fmt.Errorf("%w in %d file(s)", convert.ErrNoData, len(c.Files))
	}

	svc, err := a.service()
	if err != nil {
		return err
	}
	req := convert.Request{
		Network:       stream[0].Network,
		Station:       stream[0].Station,
		Date:          c.Date,
		Format:        c.Format,
		LocationOrder: c.LocationOrder,
	}
	if req.Date == "" {
		req.Date = stream[0].Start.UTC().Format(time.DateOnly)
	}

	products, convErr := svc.Encode(a.ctx, req, stream)
	if c.Directory != "" {
		err = storeProducts(a, c.Directory, c.Catalog, c.Force, products)
	} else {
		err = writeProducts(c.Output, products)
	}
	if err != nil {
		return err
	}
	return convErr
}

func storeProducts(a *app, template, catalogPath string, force bool, products []domain.Product) error {
	opts := []filesystem.Option{filesystem.WithForce(force)}
	if catalogPath != "" {
		ledger, err := catalog.Open(catalogPath, a.logger)
		if err != nil {
			return err
		}
		defer ledger.Close()
		opts = append(opts, filesystem.WithLedger(ledger))
	}
	return filesystem.NewDirectory(template, a.logger, opts...).LoadBatch(a.ctx, products)
}

// writeProducts writes the products back to back to path, or to stdout when
// path is empty.
func writeProducts(path string, products []domain.Product) (err error) {
	if len(products) == 0 {
		return nil
	}
	var out io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer func() { err = errors.Join(err, f.Close()) }()
		out = f
	}
	w := bufio.NewWriter(out)
	for _, p := range products {
		if _, err := w.Write(p.Data); err != nil {
			return err
		}
	}
	return w.Flush()
}
