package metrics

import (
	"net/http"
	"time"

	"baniusync/internal/progress"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector collects and exposes upload metrics
type Collector struct {
	registry        *prometheus.Registry
	uploadsTotal    *prometheus.CounterVec
	bytesTotal      prometheus.Counter
	activeWorkers   prometheus.Gauge
	duration        prometheus.Histogram
	progressTracker *progress.Tracker
}

// New creates a new metrics collector with its own registry
func New() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		uploadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "baniusync_uploads_total",
				Help: "Total number of files processed by upload workers",
			},
			[]string{"status"},
		),
		bytesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "baniusync_upload_bytes_total",
				Help: "Total bytes uploaded",
			},
		),
		activeWorkers: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "baniusync_active_workers",
				Help: "Number of upload workers currently running",
			},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "baniusync_upload_duration_seconds",
				Help:    "Time taken to upload a file",
				Buckets: prometheus.DefBuckets,
			},
		),
		progressTracker: progress.NewTracker(),
	}

	c.registry.MustRegister(c.uploadsTotal)
	c.registry.MustRegister(c.bytesTotal)
	c.registry.MustRegister(c.activeWorkers)
	c.registry.MustRegister(c.duration)

	return c
}

// IncSuccess records a finished upload of the given size
func (c *Collector) IncSuccess(bytes int64, duration time.Duration) {
	c.uploadsTotal.WithLabelValues("success").Inc()
	c.bytesTotal.Add(float64(bytes))
	c.duration.Observe(duration.Seconds())
	c.progressTracker.AddSuccess(bytes)
}

// IncFailed records a failed upload
func (c *Collector) IncFailed() {
	c.uploadsTotal.WithLabelValues("failed").Inc()
	c.progressTracker.AddFailed()
}

// WorkerStarted bumps the active worker gauge
func (c *Collector) WorkerStarted() {
	c.activeWorkers.Inc()
}

// WorkerStopped lowers the active worker gauge
func (c *Collector) WorkerStopped() {
	c.activeWorkers.Dec()
}

// Handler serves the collector's registry
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// NewServer returns an HTTP server exposing the registry on /metrics.
// The caller starts it and shuts it down.
func (c *Collector) NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// GetProgressTracker returns the progress tracker
func (c *Collector) GetProgressTracker() *progress.Tracker {
	return c.progressTracker
}

// SetTotalCounts sets the total counts for progress tracking
func (c *Collector) SetTotalCounts(files, bytes int64) {
	c.progressTracker.SetTotal(files, bytes)
}
