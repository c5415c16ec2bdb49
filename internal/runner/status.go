package runner

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/davelindo/galleryofbabel/internal/httpapi"
)

// Snapshot builds the current status snapshot for the /status and
// /metrics endpoints.
func (r *Runner) Snapshot() httpapi.StatusSnapshot {
	snap := httpapi.StatusSnapshot{
		Counters:        r.counters.Snapshot(),
		MarginCurrent:   r.margin.Current(),
		MarginTrend:     r.margin.TrendSymbol(),
		ShiftCurrent:    r.shift.Current(),
		ShiftTrend:      r.shift.TrendSymbol(),
		SubmissionQueue: r.subQueue.Len(),
	}
	if best, ok := r.best.Best(); ok {
		snap.BestScore = best.TotalScore
		snap.HasBest = true
	}
	return snap
}

// StartStatusServer starts the read-only status/metrics HTTP surface
// and stops it when ctx is cancelled. A non-fatal bind failure is
// logged and the run continues without the surface.
func (r *Runner) StartStatusServer(ctx context.Context) {
	if r.cfg.StatusAddr == "" {
		return
	}

	reg := prometheus.NewRegistry()
	r.metrics = httpapi.NewMetrics(reg)
	router := httpapi.NewRouter(r.Snapshot, r.metrics, reg)

	srv := &http.Server{Addr: r.cfg.StatusAddr, Handler: router}

	r.bgWG.Add(1)
	go func() {
		defer r.bgWG.Done()
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Warn().Err(err).Str("addr", r.cfg.StatusAddr).Msg("status server stopped")
		}
	}()

	r.bgWG.Add(1)
	go func() {
		defer r.bgWG.Done()
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
}
