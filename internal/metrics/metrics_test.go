package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"product-catalog/internal/importer"
)

func TestMetrics_ImportEvents(t *testing.T) {
	m := New()

	m.RowAccepted()
	m.RowAccepted()
	m.RowRejected("cast_error")
	m.BatchStarted()
	m.ChunkFinished(importer.ChunkSucceeded, 20*time.Millisecond)
	m.ChunkFinished(importer.ChunkFailed, 30*time.Millisecond)
	m.ChunkFinished(importer.ChunkCancelled, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.rows.WithLabelValues("accepted", "")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rows.WithLabelValues("rejected", "cast_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.chunks.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.batchesRunning))
	assert.Equal(t, uint64(2), histogramCount(t, m, "catalog_import_chunk_duration_seconds"))

	m.BatchFinished(importer.StatusCompletedWithFailures)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.batchesRunning))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.batches.WithLabelValues("completed_with_failures")))
}

func TestMetrics_Handler(t *testing.T) {
	m := New()
	m.ObserveRequest(http.MethodGet, "/products/:id", http.StatusOK, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `catalog_http_requests_total{code="200",method="GET",route="/products/:id"} 1`), body)
	assert.Contains(t, body, "catalog_import_batches_running 0")
	assert.Contains(t, body, "go_goroutines")
}

func histogramCount(t *testing.T, m *Metrics, name string) uint64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name {
			return f.GetMetric()[0].GetHistogram().GetSampleCount()
		}
	}
	t.Fatalf("metric %s not gathered", name)
	return 0
}
