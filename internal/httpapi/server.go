// Package httpapi exposes the read-only local status/metrics surface:
// liveness, a JSON snapshot of the exploration pipeline's stats, and
// Prometheus metrics. It is not part of the scoring hot path.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/davelindo/galleryofbabel/internal/stats"
)

// StatusSnapshot is the JSON body of GET /status.
type StatusSnapshot struct {
	Counters        stats.CountersSnapshot `json:"counters"`
	BestScore       float64                `json:"best_score"`
	HasBest         bool                   `json:"has_best"`
	MarginCurrent   float64                `json:"margin_current"`
	MarginTrend     string                 `json:"margin_trend"`
	ShiftCurrent    float64                `json:"shift_current"`
	ShiftTrend      string                 `json:"shift_trend"`
	SubmissionQueue int                    `json:"submission_queue_depth"`
}

// SnapshotFunc produces the current status snapshot on demand; the
// runner supplies a closure over its live components so this package
// stays decoupled from their concrete types.
type SnapshotFunc func() StatusSnapshot

// Metrics mirrors a subset of stats.Counters as Prometheus gauges.
type Metrics struct {
	cpuScored  prometheus.Gauge
	gpuScored  prometheus.Gauge
	candidates prometheus.Gauge
	samples    prometheus.Gauge
	verified   prometheus.Gauge
	submitted  prometheus.Gauge
	accepted   prometheus.Gauge
	rejected   prometheus.Gauge
	bestScore  prometheus.Gauge
}

// NewMetrics registers the gauges against reg (use
// prometheus.NewRegistry() for test isolation, or nil to fall back to
// the default registry).
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		cpuScored:  prometheus.NewGauge(prometheus.GaugeOpts{Name: "gallery_cpu_scored_total", Help: "seeds scored by CPU workers"}),
		gpuScored:  prometheus.NewGauge(prometheus.GaugeOpts{Name: "gallery_gpu_scored_total", Help: "seeds scored by the GPU backend"}),
		candidates: prometheus.NewGauge(prometheus.GaugeOpts{Name: "gallery_candidates_total", Help: "seeds promoted to candidate priority"}),
		samples:    prometheus.NewGauge(prometheus.GaugeOpts{Name: "gallery_samples_total", Help: "seeds promoted to sample priority"}),
		verified:   prometheus.NewGauge(prometheus.GaugeOpts{Name: "gallery_verified_total", Help: "seeds exact-rescored by the verifier"}),
		submitted:  prometheus.NewGauge(prometheus.GaugeOpts{Name: "gallery_submitted_total", Help: "submission attempts dispatched"}),
		accepted:   prometheus.NewGauge(prometheus.GaugeOpts{Name: "gallery_accepted_total", Help: "submissions accepted by the leaderboard"}),
		rejected:   prometheus.NewGauge(prometheus.GaugeOpts{Name: "gallery_rejected_total", Help: "submissions rejected or exhausted"}),
		bestScore:  prometheus.NewGauge(prometheus.GaugeOpts{Name: "gallery_best_score", Help: "best exact total_score observed this run"}),
	}
	collectors := []prometheus.Collector{m.cpuScored, m.gpuScored, m.candidates, m.samples, m.verified, m.submitted, m.accepted, m.rejected, m.bestScore}
	if reg != nil {
		reg.MustRegister(collectors...)
	} else {
		prometheus.MustRegister(collectors...)
	}
	return m
}

// Update sets every gauge from a fresh snapshot; called right before
// a GET /metrics scrape or on a slow timer.
func (m *Metrics) Update(snap StatusSnapshot) {
	m.cpuScored.Set(float64(snap.Counters.CPUScored))
	m.gpuScored.Set(float64(snap.Counters.GPUScored))
	m.candidates.Set(float64(snap.Counters.Candidates))
	m.samples.Set(float64(snap.Counters.Samples))
	m.verified.Set(float64(snap.Counters.Verified))
	m.submitted.Set(float64(snap.Counters.Submitted))
	m.accepted.Set(float64(snap.Counters.Accepted))
	m.rejected.Set(float64(snap.Counters.Rejected))
	if snap.HasBest {
		m.bestScore.Set(snap.BestScore)
	}
}

// NewRouter builds the chi router for the status/metrics server,
// rate-limited per-IP so a runaway local poller can't compete with
// the scoring pipeline for CPU.
func NewRouter(snapshot SnapshotFunc, metrics *Metrics, reg *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(httprate.LimitByIP(20, time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		snap := snapshot()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(snap)
	})

	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.Update(snapshot())
		handler := promhttp.Handler()
		if reg != nil {
			handler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
		}
		handler.ServeHTTP(w, r)
	})

	return r
}
