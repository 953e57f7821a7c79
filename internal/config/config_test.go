package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultBroker = "localhost:9092"

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "geomag-conversion-requests", cfg.KafkaSourceTopic)
	assert.Equal(t, "geomag-products", cfg.KafkaSinkTopic)
	assert.Equal(t, "geomag-etl", cfg.KafkaGroupID)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.BatchFlushInterval)
	assert.Equal(t, "http://fdsn.seismo.nrcan.gc.ca", cfg.FDSNURL)
	assert.Equal(t, 30*time.Second, cfg.FDSNTimeout)
	assert.Equal(t, "Geological Survey of Canada (GSC)", cfg.FDSNInstitution)
	assert.Equal(t, 256, cfg.StationCacheSize)
	assert.Empty(t, cfg.StationFile)
	assert.Empty(t, cfg.IAGASource)
	assert.Equal(t, "OTT", cfg.IMFGINCode)
	assert.Empty(t, cfg.CatalogPath)
	assert.Empty(t, cfg.OutputDir)
	assert.Empty(t, cfg.FTPAddr)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SOURCE_TOPIC", "custom-source")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-sink")
	t.Setenv("KAFKA_GROUP_ID", "custom-group")
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("BATCH_SIZE", "100")
	t.Setenv("BATCH_FLUSH_INTERVAL", "1s")
	t.Setenv("FDSN_URL", "http://localhost:8081")
	t.Setenv("FDSN_TIMEOUT", "5s")
	t.Setenv("FDSN_INSTITUTION", "NRCan")
	t.Setenv("STATION_CACHE_SIZE", "10")
	t.Setenv("STATION_FILE", "/etc/geomag/stations.yaml")
	t.Setenv("IAGA_SOURCE", "Natural Resources Canada")
	t.Setenv("IMF_GIN_CODE", "EDI")
	t.Setenv("CATALOG_PATH", "/var/lib/geomag/catalog.db")
	t.Setenv("OUTPUT_DIR", "/data/%Y/%j")
	t.Setenv("FTP_ADDR", "ftp.example.org:21")
	t.Setenv("FTP_USER", "geomag")
	t.Setenv("FTP_PASSWORD", "secret")
	t.Setenv("FTP_DIR", "/incoming/%Y")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-source", cfg.KafkaSourceTopic)
	assert.Equal(t, "custom-sink", cfg.KafkaSinkTopic)
	assert.Equal(t, "custom-group", cfg.KafkaGroupID)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, 1*time.Second, cfg.BatchFlushInterval)
	assert.Equal(t, "http://localhost:8081", cfg.FDSNURL)
	assert.Equal(t, 5*time.Second, cfg.FDSNTimeout)
	assert.Equal(t, "NRCan", cfg.FDSNInstitution)
	assert.Equal(t, 10, cfg.StationCacheSize)
	assert.Equal(t, "/etc/geomag/stations.yaml", cfg.StationFile)
	assert.Equal(t, "Natural Resources Canada", cfg.IAGASource)
	assert.Equal(t, "EDI", cfg.IMFGINCode)
	assert.Equal(t, "/var/lib/geomag/catalog.db", cfg.CatalogPath)
	assert.Equal(t, "/data/%Y/%j", cfg.OutputDir)
	assert.Equal(t, "ftp.example.org:21", cfg.FTPAddr)
	assert.Equal(t, "geomag", cfg.FTPUser)
	assert.Equal(t, "secret", cfg.FTPPassword)
	assert.Equal(t, "/incoming/%Y", cfg.FTPDir)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		message string
	}{
		{name: "shutdown timeout", env: map[string]string{"SHUTDOWN_TIMEOUT": "not-a-duration"}, message: "SHUTDOWN_TIMEOUT"},
		{name: "negative shutdown timeout", env: map[string]string{"SHUTDOWN_TIMEOUT": "-1s"}, message: "SHUTDOWN_TIMEOUT"},
		{name: "batch size zero", env: map[string]string{"BATCH_SIZE": "0"}, message: "BATCH_SIZE"},
		{name: "batch size too large", env: map[string]string{"BATCH_SIZE": "9999"}, message: "BATCH_SIZE"},
		{name: "flush interval", env: map[string]string{"BATCH_FLUSH_INTERVAL": "not-a-duration"}, message: "BATCH_FLUSH_INTERVAL"},
		{name: "fdsn timeout", env: map[string]string{"FDSN_TIMEOUT": "bad"}, message: "FDSN_TIMEOUT"},
		{name: "fdsn timeout zero", env: map[string]string{"FDSN_TIMEOUT": "0s"}, message: "FDSN_TIMEOUT"},
		{name: "gin code", env: map[string]string{"IMF_GIN_CODE": "OTTAWA"}, message: "IMF_GIN_CODE"},
		{name: "catalog without directory", env: map[string]string{"CATALOG_PATH": "catalog.db"}, message: "OUTPUT_DIR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestLoad_InvalidStationCacheSizeFallsBack(t *testing.T) {
	t.Setenv("STATION_CACHE_SIZE", "-3")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 256, cfg.StationCacheSize)
}
