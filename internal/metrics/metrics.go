// Package metrics exposes Prometheus metrics for imports and the HTTP API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"product-catalog/internal/importer"
)

// Metrics owns a registry and every collector registered on it.
type Metrics struct {
	registry *prometheus.Registry

	rows           *prometheus.CounterVec
	chunks         *prometheus.CounterVec
	chunkDuration  prometheus.Histogram
	batchesRunning prometheus.Gauge
	batches        *prometheus.CounterVec

	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New registers the catalog collectors plus the Go and process collectors
// on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,
		rows: f.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_import_rows_total",
			Help: "CSV rows read by the importer, by outcome and reject reason",
		}, []string{"outcome", "reason"}),
		chunks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_import_chunks_total",
			Help: "Import chunks finished, by status",
		}, []string{"status"}),
		chunkDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "catalog_import_chunk_duration_seconds",
			Help:    "Time spent writing one chunk",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		batchesRunning: f.NewGauge(prometheus.GaugeOpts{
			Name: "catalog_import_batches_running",
			Help: "Import batches currently running",
		}),
		batches: f.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_import_batches_total",
			Help: "Import batches finished, by status",
		}, []string{"status"}),
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_http_requests_total",
			Help: "HTTP requests served, by route and status code",
		}, []string{"method", "route", "code"}),
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "catalog_http_request_duration_seconds",
			Help:    "HTTP request latency by route",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) RowAccepted() {
	m.rows.WithLabelValues("accepted", "").Inc()
}

func (m *Metrics) RowRejected(reason string) {
	m.rows.WithLabelValues("rejected", reason).Inc()
}

func (m *Metrics) ChunkFinished(status importer.ChunkStatus, d time.Duration) {
	m.chunks.WithLabelValues(string(status)).Inc()
	if status != importer.ChunkCancelled {
		m.chunkDuration.Observe(d.Seconds())
	}
}

func (m *Metrics) BatchStarted() {
	m.batchesRunning.Inc()
}

func (m *Metrics) BatchFinished(status importer.Status) {
	m.batchesRunning.Dec()
	m.batches.WithLabelValues(string(status)).Inc()
}

// ObserveRequest records one served request. route is the matched pattern,
// not the raw path, to keep label cardinality bounded.
func (m *Metrics) ObserveRequest(method, route string, code int, d time.Duration) {
	m.requests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.requestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

var _ importer.Metrics = (*Metrics)(nil)
