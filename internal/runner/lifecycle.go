package runner

import (
	"context"
	"time"

	"github.com/davelindo/galleryofbabel/internal/archive"
	"github.com/davelindo/galleryofbabel/internal/scorer"
	"github.com/davelindo/galleryofbabel/internal/submission"
	"github.com/davelindo/galleryofbabel/internal/tuninghint"
)

// allocatorSnapshotInterval is how often the seed allocator's
// resumption state is persisted to disk.
const allocatorSnapshotInterval = 10 * time.Second

// Run starts every component and blocks until ctx is cancelled or
// Stop is called, then tears down in the order spec §5 describes:
// workers exit, the verifier drains, the submission manager flushes
// its journal without waiting on in-flight network calls.
func (r *Runner) Run(ctx context.Context) error {
	r.cpuPool.Start(r.cpuWorkers)

	if r.gpuManager != nil {
		r.startGPULoop(ctx)
	}

	r.startVerifierWorkers(ctx, 1)
	r.startMemoryGuard(ctx)
	r.startAllocatorSnapshotLoop(ctx)
	r.startConfigWatch(ctx)
	r.StartStatusServer(ctx)

	if r.cfg.Submission.Endpoint != "" {
		r.startRefreshLoop(ctx)
		r.startDispatchLoop(ctx)
		r.startJournalLoop(ctx)
	}

	<-ctx.Done()
	r.Stop()

	r.cpuPool.Wait()
	r.verifier.Close()
	r.bgWG.Wait()

	if r.journal != nil {
		_ = r.journal.Flush(time.Now())
	}
	if r.cfg.Persist.SeedStatePath != "" {
		_ = r.alloc.Snapshot(r.cfg.Persist.SeedStatePath)
	}
	r.saveTuningHint()
	if r.archive != nil {
		_ = r.archive.Close()
	}
	return nil
}

func (r *Runner) startAllocatorSnapshotLoop(ctx context.Context) {
	if r.cfg.Persist.SeedStatePath == "" {
		return
	}
	r.bgWG.Add(1)
	go func() {
		defer r.bgWG.Done()
		ticker := time.NewTicker(allocatorSnapshotInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := r.alloc.Snapshot(r.cfg.Persist.SeedStatePath); err != nil {
					r.logger.Warn().Err(err).Msg("seed state snapshot failed, will retry next tick")
				}
				if r.stop.Load() {
					return
				}
			}
		}
	}()
}

// saveTuningHint persists the GPU backend's current batch/inflight as
// a warm-start hint for the next run.
func (r *Runner) saveTuningHint() {
	if r.cfg.Persist.TuningHintPath == "" || r.backend == nil {
		return
	}
	hint := tuninghint.Hint{Batch: r.cfg.GPU.BatchSize, Inflight: r.cfg.GPU.Inflight}
	if err := tuninghint.Save(r.cfg.Persist.TuningHintPath, preferredDeviceID(r.cfg.GPU.PreferredOrder), hint, time.Now()); err != nil {
		r.logger.Warn().Err(err).Msg("tuning hint save failed")
	}
}

// Stop raises the shared stop-flag; every hot loop polls it within
// its documented bound and exits.
func (r *Runner) Stop() {
	r.stop.Store(true)
	r.cpuPool.Stop()
	r.gpuMu.Lock()
	gm := r.gpuManager
	r.gpuMu.Unlock()
	if gm != nil {
		gm.Stop()
	}
}

func (r *Runner) startGPULoop(ctx context.Context) {
	r.bgWG.Add(1)
	go func() {
		defer r.bgWG.Done()

		r.gpuMu.Lock()
		gm := r.gpuManager
		batch := r.autotuner.Batch()
		r.gpuMu.Unlock()
		gm.Start(batch)

		ticker := time.NewTicker(tuneInterval)
		defer ticker.Stop()
		var lastCount uint64

		for {
			select {
			case <-ctx.Done():
				r.gpuMu.Lock()
				gm := r.gpuManager
				r.gpuMu.Unlock()
				gm.Stop()
				gm.Wait()
				return
			case <-ticker.C:
				if r.stop.Load() {
					r.gpuMu.Lock()
					gm := r.gpuManager
					r.gpuMu.Unlock()
					gm.Stop()
					gm.Wait()
					return
				}
				snap := r.gpuRunning.Snapshot()
				rate := float64(snap.Count-lastCount) / tuneInterval.Seconds()
				lastCount = snap.Count

				newBatch, changed := r.autotuner.Tick(rate)
				if !changed {
					continue
				}
				r.rebuildGPUManager(newBatch)
			}
		}
	}()
}

// rebuildGPUManager stops the current manager (draining pending per
// spec §4.5's "wait for pending==0 then recreate the scorer"),
// rebuilds the approx backend at the new batch size, and starts a
// fresh manager in its place.
func (r *Runner) rebuildGPUManager(newBatch int) {
	r.gpuMu.Lock()
	old := r.gpuManager
	r.gpuMu.Unlock()
	old.Stop()
	old.Wait()

	backend, err := r.buildBackend(newBatch, r.cfg.GPU.Inflight)
	if err != nil {
		r.logger.Warn().Err(err).Msg("gpu backend rebuild failed, keeping previous backend idle")
		return
	}
	r.cfg.GPU.BatchSize = newBatch
	r.backend = backend

	r.gpuMu.Lock()
	r.initGPUManager()
	gm := r.gpuManager
	r.gpuMu.Unlock()
	if gm != nil && !r.stop.Load() {
		gm.Start(newBatch)
	}
}

func (r *Runner) startVerifierWorkers(ctx context.Context, n int) {
	for i := 0; i < n; i++ {
		r.bgWG.Add(1)
		go func() {
			defer r.bgWG.Done()
			for {
				task, ok := r.verifier.Pop()
				if !ok {
					return
				}
				result := scorer.Exact(task.Seed, r.cfg.ImageSize)
				r.best.Offer(result)
				r.margin.Observe(result.TotalScore, float64(task.ApproxScore))
				r.shift.Observe(result.TotalScore, float64(task.ApproxScore))
				r.counters.AddVerified(1)
				if r.subManager != nil {
					r.subManager.MaybeEnqueue(result.Seed, result.TotalScore, submission.SourceVerifier)
				}
			}
		}()
	}
}

func (r *Runner) startRefreshLoop(ctx context.Context) {
	interval, err := r.cfg.RefreshInterval()
	if err != nil {
		interval = 3 * time.Minute
	}

	r.bgWG.Add(1)
	go func() {
		defer r.bgWG.Done()
		timer := time.NewTimer(0) // refresh immediately on startup
		defer timer.Stop()
		journalReloaded := false

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
				if r.stop.Load() {
					return
				}
				_, err := r.subManager.RefreshTop(ctx, 500, time.Now())
				next := interval
				if err != nil {
					r.logger.Warn().Err(err).Msg("top-500 refresh failed, retrying with backoff")
					next = r.subManager.RefreshBackoff()
					if next <= 0 {
						next = interval
					}
				} else if !journalReloaded {
					// first successful refresh: reload any journalled
					// tasks now that a finite threshold exists.
					journalReloaded = true
					_, _ = submission.Reload(r.cfg.Persist.JournalPath, r.subState, r.subQueue)
				}
				timer.Reset(next)
			}
		}
	}()
}

func (r *Runner) startDispatchLoop(ctx context.Context) {
	r.bgWG.Add(1)
	go func() {
		defer r.bgWG.Done()
		for {
			if r.stop.Load() {
				return
			}
			select {
			case <-ctx.Done():
				return
			default:
			}

			if r.subManager.Pending() == 0 {
				time.Sleep(timerPoll)
				continue
			}

			res := r.subManager.DispatchOnce(ctx, time.Now())
			switch res.Status {
			case submission.DispatchAccepted:
				r.recordAccepted()
			case submission.DispatchBackoffWait:
				wait := time.Until(res.WakeAt)
				if wait > timerPoll {
					wait = timerPoll
				}
				if wait > 0 {
					time.Sleep(wait)
				}
			case submission.DispatchIdle:
				time.Sleep(timerPoll)
			}
		}
	}()
}

func (r *Runner) recordAccepted() {
	if r.archive == nil {
		return
	}
	accepted := r.subManager.Accepted()
	if len(accepted) == 0 {
		return
	}
	last := accepted[len(accepted)-1]
	rec := archive.AcceptedRecord{
		Seed:       uint64(last.Seed),
		Score:      last.Score,
		AcceptedAt: last.Timestamp,
	}
	if last.HasRank {
		rank := last.Rank
		rec.Rank = &rank
	}
	_ = r.archive.RecordAccepted(context.Background(), rec)
}

func (r *Runner) startJournalLoop(ctx context.Context) {
	r.bgWG.Add(1)
	go func() {
		defer r.bgWG.Done()
		ticker := time.NewTicker(timerPoll)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				_ = r.journal.Tick(time.Now())
				if r.stop.Load() {
					return
				}
			}
		}
	}()
}
