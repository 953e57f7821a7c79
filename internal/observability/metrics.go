package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "geomag_etl"

// Metrics holds the Prometheus counters, histograms, and gauges for the conversion service.
type Metrics struct {
	RequestsConsumed prometheus.Counter
	ProductsProduced prometheus.Counter
	ConversionErrors *prometheus.CounterVec // labels: reason={invalid,fetch,no_data,encode,decode}
	PipelineRunning  prometheus.Gauge

	// Batch processing metrics.
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram

	// FDSN web-service metrics.
	FDSNRequests *prometheus.CounterVec   // labels: service={dataselect,station}, outcome={success,empty,error}
	FDSNDuration *prometheus.HistogramVec // labels: service={dataselect,station}
	StationCache *prometheus.CounterVec   // labels: result={hit,miss}

	// Encoder output.
	EncodedSamples *prometheus.CounterVec // labels: format
	EncodedBytes   *prometheus.CounterVec // labels: format
}

// NewMetrics creates and registers all service metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.RequestsConsumed,
		m.ProductsProduced,
		m.ConversionErrors,
		m.PipelineRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
		m.FDSNRequests,
		m.FDSNDuration,
		m.StationCache,
		m.EncodedSamples,
		m.EncodedBytes,
	)
	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		RequestsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_consumed_total",
			Help:      "Total conversion requests read from the source topic.",
		}),
		ProductsProduced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "products_produced_total",
			Help:      "Total encoded products written to the sink.",
		}),
		ConversionErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversion_errors_total",
			Help:      "Conversion requests that failed, by reason.",
		}, []string{"reason"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pipeline_running",
			Help:      "1 when the pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_size",
			Help:      "Number of requests per batch extracted from Kafka.",
			Buckets:   []float64{1, 2, 5, 10, 20, 50},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_processing_duration_seconds",
			Help:      "Duration of a complete batch extract-convert-load cycle.",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		FDSNRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fdsn_requests_total",
			Help:      "FDSN web-service requests by service and outcome.",
		}, []string{"service", "outcome"}),
		FDSNDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fdsn_request_duration_seconds",
			Help:      "FDSN web-service request duration in seconds, retries included.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"service"}),
		StationCache: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "station_cache_total",
			Help:      "Station descriptor cache lookups by result.",
		}, []string{"result"}),
		EncodedSamples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "encoded_samples_total",
			Help:      "Samples written into encoded products, by format.",
		}, []string{"format"}),
		EncodedBytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "encoded_bytes_total",
			Help:      "Bytes of encoded products, by format.",
		}, []string{"format"}),
	}
}
