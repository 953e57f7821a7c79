package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/couchcryptid/geomag-etl/internal/adapter/fdsn"
	"github.com/couchcryptid/geomag-etl/internal/adapter/filesystem"
	"github.com/couchcryptid/geomag-etl/internal/adapter/ftp"
	"github.com/couchcryptid/geomag-etl/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/geomag-etl/internal/adapter/kafka"
	"github.com/couchcryptid/geomag-etl/internal/adapter/stationfile"
	"github.com/couchcryptid/geomag-etl/internal/catalog"
	"github.com/couchcryptid/geomag-etl/internal/config"
	"github.com/couchcryptid/geomag-etl/internal/convert"
	"github.com/couchcryptid/geomag-etl/internal/domain"
	"github.com/couchcryptid/geomag-etl/internal/format"
	"github.com/couchcryptid/geomag-etl/internal/observability"
	"github.com/couchcryptid/geomag-etl/internal/pipeline"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	client := fdsn.NewClient(cfg.FDSNURL, cfg.FDSNInstitution, cfg.FDSNTimeout, metrics, logger)
	var stations domain.StationSource = fdsn.NewCachedStations(client, cfg.StationCacheSize, metrics)
	if cfg.StationFile != "" {
		file, err := stationfile.Load(cfg.StationFile, stations)
		if err != nil {
			logger.Error("failed to load station file", "error", err, "path", cfg.StationFile)
			os.Exit(1)
		}
		logger.Info("station file loaded", "path", cfg.StationFile, "stations", file.Len())
		stations = file
	}

	svc := convert.NewService(client, stations, format.Options{Source: cfg.IAGASource, GIN: cfg.IMFGINCode}, metrics, logger)

	reader := kafkaadapter.NewReader(cfg, logger)
	writer := kafkaadapter.NewWriter(cfg, logger)
	loaders := pipeline.Fanout{writer}

	var ledger *catalog.Catalog
	if cfg.OutputDir != "" {
		var opts []filesystem.Option
		if cfg.CatalogPath != "" {
			ledger, err = catalog.Open(cfg.CatalogPath, logger)
			if err != nil {
				logger.Error("failed to open catalog", "error", err, "path", cfg.CatalogPath)
				os.Exit(1)
			}
			opts = append(opts, filesystem.WithLedger(ledger))
		}
		loaders = append(loaders, filesystem.NewDirectory(cfg.OutputDir, logger, opts...))
		logger.Info("directory output enabled", "template", cfg.OutputDir, "catalog", cfg.CatalogPath)
	}
	if cfg.FTPAddr != "" {
		loaders = append(loaders, ftp.NewUploader(ftp.Config{
			Addr:     cfg.FTPAddr,
			User:     cfg.FTPUser,
			Password: cfg.FTPPassword,
			Dir:      cfg.FTPDir,
		}, logger))
		logger.Info("ftp upload enabled", "addr", cfg.FTPAddr, "dir", cfg.FTPDir)
	}

	p := pipeline.New(reader, pipeline.NewTransformer(svc, logger), loaders, logger, metrics, cfg.BatchSize)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, svc, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	// Start ETL pipeline.
	go func() {
		if err := p.Run(ctx); err != nil {
			logger.Error("pipeline error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := reader.Close(); err != nil {
		logger.Error("kafka reader close error", "error", err)
	}
	if err := writer.Close(); err != nil {
		logger.Error("kafka writer close error", "error", err)
	}
	if ledger != nil {
		if err := ledger.Close(); err != nil {
			logger.Error("catalog close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
