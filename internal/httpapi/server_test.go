package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davelindo/galleryofbabel/internal/stats"
)

func testSnapshot() StatusSnapshot {
	return StatusSnapshot{
		Counters:        stats.CountersSnapshot{CPUScored: 10, Accepted: 2},
		BestScore:       -3.5,
		HasBest:         true,
		MarginCurrent:   0.1,
		MarginTrend:     "^",
		SubmissionQueue: 5,
	}
}

func TestHealthzOK(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	router := NewRouter(testSnapshot, m, reg)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStatusReturnsJSONSnapshot(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	router := NewRouter(testSnapshot, m, reg)

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"submission_queue_depth":5`)
}

func TestMetricsExposesPrometheusFormat(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	router := NewRouter(testSnapshot, m, reg)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "gallery_accepted_total")
}
