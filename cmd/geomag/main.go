// Command geomag converts geomagnetic observatory data into IAGA-2002,
// IMFv1.22 or internet exchange files from the command line.
//
// Usage:
//
//	geomag convert --station OTT --date 2019-01-02 --format iaga2002
//	geomag directory --station OTT --directory '/data/%Y/%j' --catalog products.db
//	geomag netcdf --format imfv122 --output JAN0219.OTT ott20190102.nc
//
// Every flag also reads the environment variable of the etl service with the
// same meaning; a .env file in the working directory is loaded first.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/couchcryptid/geomag-etl/internal/adapter/fdsn"
	"github.com/couchcryptid/geomag-etl/internal/adapter/stationfile"
	"github.com/couchcryptid/geomag-etl/internal/convert"
	"github.com/couchcryptid/geomag-etl/internal/domain"
	"github.com/couchcryptid/geomag-etl/internal/format"
	"github.com/couchcryptid/geomag-etl/internal/observability"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/joho/godotenv"
)

// Globals are the flags shared by every command.
type Globals struct {
	LogLevel  string `help:"Log level: debug, info, warn or error." default:"info" env:"LOG_LEVEL"`
	LogFormat string `help:"Log format: json or text." default:"text" env:"LOG_FORMAT"`

	FDSNURL     string        `name:"fdsn-url" help:"FDSN web service base URL." default:"http://fdsn.seismo.nrcan.gc.ca" env:"FDSN_URL"`
	FDSNTimeout time.Duration `name:"fdsn-timeout" help:"FDSN request timeout." default:"30s" env:"FDSN_TIMEOUT"`
	Institution string        `help:"Institution reported as the source of FDSN station metadata." default:"Geological Survey of Canada (GSC)" env:"FDSN_INSTITUTION"`
	CacheSize   int           `name:"station-cache-size" help:"Station descriptors kept in memory." default:"256" env:"STATION_CACHE_SIZE"`
	StationFile string        `help:"YAML station descriptors consulted before FDSN." env:"STATION_FILE"`

	IAGASource string `name:"iaga-source" help:"Override for the IAGA-2002 Source of Data header." env:"IAGA_SOURCE"`
	GIN        string `name:"gin" help:"IMFv1.22 geomagnetic information node code." default:"OTT" env:"IMF_GIN_CODE"`
	Strict     bool   `help:"Fail instead of writing a placeholder for a missing component."`
}

// CLI is the command tree.
type CLI struct {
	Globals

	Convert   ConvertCmd   `cmd:"" help:"Fetch one day from FDSN and write it to stdout, a file, or FTP."`
	Directory DirectoryCmd `cmd:"" help:"Fetch one day from FDSN into a dated directory tree."`
	Netcdf    NetcdfCmd    `cmd:"" help:"Convert NetCDF files without contacting FDSN for waveforms."`
}

// app carries what every command needs at run time.
type app struct {
	ctx     context.Context
	logger  *slog.Logger
	metrics *observability.Metrics
	globals *Globals
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "load .env: %v\n", err)
		os.Exit(1)
	}

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("geomag"),
		kong.Description("Convert geomagnetic observatory data to exchange formats."),
		kong.UsageOnError(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a := &app{
		ctx:     ctx,
		logger:  sharedobs.NewLogger(cli.LogLevel, cli.LogFormat),
		metrics: observability.NewMetrics(),
		globals: &cli.Globals,
	}
	kctx.FatalIfErrorf(kctx.Run(a))
}

// service builds the converter over the FDSN client, with the station file
// in front of FDSN station lookups when one is configured.
func (a *app) service() (*convert.Service, error) {
	g := a.globals
	client := fdsn.NewClient(g.FDSNURL, g.Institution, g.FDSNTimeout, a.metrics, a.logger)
	var stations domain.StationSource = fdsn.NewCachedStations(client, g.CacheSize, a.metrics)
	if g.StationFile != "" {
		file, err := stationfile.Load(g.StationFile, stations)
		if err != nil {
			return nil, err
		}
		stations = file
	}
	opts := format.Options{Source: g.IAGASource, GIN: g.GIN, Strict: g.Strict}
	return convert.NewService(client, stations, opts, a.metrics, a.logger), nil
}
