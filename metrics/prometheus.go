package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus metrics for the coda pipeline. Each
// instance carries its own registry so tests can create them freely.
type Metrics struct {
	Registry *prometheus.Registry

	// Encode pipeline metrics
	EncodesStarted   *prometheus.CounterVec
	EncodesCompleted *prometheus.CounterVec
	EncodesFailed    *prometheus.CounterVec
	EncodeDuration   prometheus.Histogram
	AssetBytes       prometheus.Histogram

	// Upload metrics
	UploadsCompleted prometheus.Counter
	UploadsFailed    prometheus.Counter
	UploadedBytes    prometheus.Counter

	// Trim workflow metrics
	TrimSessionsOpened  prometheus.Counter
	TrimSessionsSkipped prometheus.Counter
}

// NewMetrics creates and registers all pipeline metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		Registry: registry,

		EncodesStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coda_encodes_started_total",
			Help: "Total number of encode jobs started, by asset kind",
		}, []string{"kind"}),
		EncodesCompleted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coda_encodes_completed_total",
			Help: "Total number of encode jobs completed, by asset kind",
		}, []string{"kind"}),
		EncodesFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "coda_encodes_failed_total",
			Help: "Total number of encode jobs failed, by asset kind",
		}, []string{"kind"}),
		EncodeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "coda_encode_duration_seconds",
			Help:    "Wall-clock duration of the decode/render/serialize pipeline",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
		AssetBytes: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "coda_asset_bytes",
			Help:    "Size of encoded WAV assets in bytes",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		}),

		UploadsCompleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "coda_uploads_completed_total",
			Help: "Total number of asset uploads completed",
		}),
		UploadsFailed: factory.NewCounter(prometheus.CounterOpts{
			Name: "coda_uploads_failed_total",
			Help: "Total number of asset uploads failed",
		}),
		UploadedBytes: factory.NewCounter(prometheus.CounterOpts{
			Name: "coda_uploaded_bytes_total",
			Help: "Total bytes handed to the upload collaborator",
		}),

		TrimSessionsOpened: factory.NewCounter(prometheus.CounterOpts{
			Name: "coda_trim_sessions_opened_total",
			Help: "Total number of interactive trim sessions opened",
		}),
		TrimSessionsSkipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "coda_trim_sessions_skipped_total",
			Help: "Total number of clip selections routed straight to encode",
		}),
	}
}
