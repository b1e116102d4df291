package telemetry

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_ObserveBackendAndFallback(t *testing.T) {
	m := NewMetrics()

	m.ObserveBackend("vector/qdrant", "no_candidates", 30*time.Millisecond)
	m.ObserveBackend("relational", "ok", 12*time.Millisecond)
	m.ObserveBackend("relational", "ok", 8*time.Millisecond)
	m.ObserveFallback("vector/qdrant")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.backendCalls.WithLabelValues("vector/qdrant", "no_candidates")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.backendCalls.WithLabelValues("relational", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fallbacks.WithLabelValues("vector/qdrant")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.backendLatency))
}

func TestMetrics_SetCorpusAndHTTP(t *testing.T) {
	m := NewMetrics()

	m.SetCorpus(1200, 8, 1)
	m.ObserveHTTP("/search", http.StatusOK, time.Millisecond)
	m.ObserveHTTP("", http.StatusNotFound, time.Millisecond)

	assert.Equal(t, 1200.0, testutil.ToFloat64(m.corpusSize))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.corpusShards.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("/search", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("unmatched", "404")))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.ObserveFallback("vector/hosted")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), `frivillig_search_fallbacks_total{from="vector/hosted"} 1`))
	assert.Contains(t, string(body), "go_goroutines")
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveBackend("x", "ok", time.Second)
		m.ObserveFallback("x")
		m.SetCorpus(1, 1, 0)
		m.ObserveHTTP("/", 200, time.Second)
	})
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	// Two instances must not collide on registration.
	assert.NotPanics(t, func() {
		NewMetrics()
		NewMetrics()
	})
}
