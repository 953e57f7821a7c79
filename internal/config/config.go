package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	KafkaBrokers     []string
	KafkaSourceTopic string
	KafkaSinkTopic   string
	KafkaGroupID     string
	HTTPAddr         string
	LogLevel         string
	LogFormat        string
	ShutdownTimeout  time.Duration

	BatchSize          int
	BatchFlushInterval time.Duration

	// FDSN web-service configuration.
	FDSNURL          string
	FDSNTimeout      time.Duration
	FDSNInstitution  string
	StationCacheSize int
	StationFile      string

	// Encoder options.
	IAGASource string
	IMFGINCode string

	// Optional product sinks besides the Kafka topic.
	CatalogPath string
	OutputDir   string
	FTPAddr     string
	FTPUser     string
	FTPPassword string
	FTPDir      string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	fdsnTimeout, err := parsePositiveDuration("FDSN_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "geomag-conversion-requests"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "geomag-products"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "geomag-etl"),
		HTTPAddr:           sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:           sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:          sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:    shutdownTimeout,
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,

		FDSNURL:          sharedcfg.EnvOrDefault("FDSN_URL", "http://fdsn.seismo.nrcan.gc.ca"),
		FDSNTimeout:      fdsnTimeout,
		FDSNInstitution:  sharedcfg.EnvOrDefault("FDSN_INSTITUTION", "Geological Survey of Canada (GSC)"),
		StationCacheSize: parseStationCacheSize(),
		StationFile:      os.Getenv("STATION_FILE"),

		IAGASource: os.Getenv("IAGA_SOURCE"),
		IMFGINCode: sharedcfg.EnvOrDefault("IMF_GIN_CODE", "OTT"),

		CatalogPath: os.Getenv("CATALOG_PATH"),
		OutputDir:   os.Getenv("OUTPUT_DIR"),
		FTPAddr:     os.Getenv("FTP_ADDR"),
		FTPUser:     os.Getenv("FTP_USER"),
		FTPPassword: os.Getenv("FTP_PASSWORD"),
		FTPDir:      os.Getenv("FTP_DIR"),
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if cfg.FDSNURL == "" {
		return nil, errors.New("FDSN_URL is required")
	}
	if len(cfg.IMFGINCode) != 3 {
		return nil, fmt.Errorf("IMF_GIN_CODE must be 3 characters, got %q", cfg.IMFGINCode)
	}
	if cfg.CatalogPath != "" && cfg.OutputDir == "" {
		return nil, errors.New("CATALOG_PATH requires OUTPUT_DIR")
	}

	return cfg, nil
}

func parsePositiveDuration(name, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(name, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return d, nil
}

func parseStationCacheSize() int {
	if s := os.Getenv("STATION_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 256
}
