// Package runner wires the allocator, CPU/GPU exploration, adaptive
// controllers, verifier, and submission manager into one running
// process, and owns the process lifecycle: startup, the shared
// stop-flag, signal handling, and the memory guard.
package runner

import (
	"math"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/davelindo/galleryofbabel/internal/allocator"
	"github.com/davelindo/galleryofbabel/internal/approx"
	"github.com/davelindo/galleryofbabel/internal/approx/factory"
	"github.com/davelindo/galleryofbabel/internal/archive"
	"github.com/davelindo/galleryofbabel/internal/buildinfo"
	"github.com/davelindo/galleryofbabel/internal/config"
	"github.com/davelindo/galleryofbabel/internal/errs"
	"github.com/davelindo/galleryofbabel/internal/explore"
	"github.com/davelindo/galleryofbabel/internal/httpapi"
	"github.com/davelindo/galleryofbabel/internal/scorer"
	"github.com/davelindo/galleryofbabel/internal/seed"
	"github.com/davelindo/galleryofbabel/internal/stats"
	"github.com/davelindo/galleryofbabel/internal/submission"
	"github.com/davelindo/galleryofbabel/internal/tuninghint"
)

// defaultSampleSlack is the additive slack subtracted from the
// admission gate to derive the GPU manager's sample_gate, per spec
// §4.5's "threshold − margin − slack".
const defaultSampleSlack = 0.05

// tuneInterval is how often the GPU loop measures throughput and lets
// the Autotuner propose a new batch size.
const tuneInterval = time.Second

// timerPoll bounds how quickly the submission dispatch and journal
// loops notice the stop-flag, per spec §5's ≤250ms timer bound.
const timerPoll = 250 * time.Millisecond

// Runner owns every long-lived component for one run.
type Runner struct {
	cfg    *config.Config
	logger zerolog.Logger

	alloc      *allocator.Allocator
	backend    approx.Backend
	cpuWorkers int

	cpuRunning *stats.Running
	gpuRunning *stats.Running
	best       *stats.BestTracker
	approxBest *stats.ApproxBest
	counters   *stats.Counters
	events     *stats.EventLog

	margin *explore.AdaptiveMargin
	shift  *explore.AdaptiveScoreShift
	budget *explore.SampleBudget

	verifier   *explore.Verifier
	cpuPool    *explore.CPUWorkerPool
	gpuManager *explore.GPUManager
	autotuner  *explore.Autotuner
	gpuMu      sync.Mutex // guards gpuManager swap on autotune rebuild

	subState   *submission.State
	subQueue   *submission.Queue
	subClient  submission.LeaderboardClient
	subManager *submission.Manager
	journal    *submission.Journal

	archive *archive.Archive
	metrics *httpapi.Metrics

	configPath string
	cfgMu      sync.Mutex // guards cfg.Memory against concurrent hot-reload

	stop atomic.Bool
	bgWG sync.WaitGroup
}

// SetConfigPath enables hot-reload: Run watches path for writes and
// applies config.HotReload's bounded field set as they land. Call
// before Run; a zero value leaves hot-reload disabled.
func (r *Runner) SetConfigPath(path string) {
	r.configPath = path
}

// New constructs a Runner from cfg. Any error returned here is fatal
// per the Usage/mandated-BackendInit policy in spec §7.
func New(cfg *config.Config, logger zerolog.Logger) (*Runner, error) {
	r := &Runner{
		cfg:        cfg,
		logger:     logger,
		cpuRunning: &stats.Running{},
		gpuRunning: &stats.Running{},
		best:       &stats.BestTracker{},
		approxBest: &stats.ApproxBest{},
		counters:   &stats.Counters{},
		events:     stats.NewEventLog(500),
		budget:     explore.NewSampleBudget(64),
	}

	r.margin = explore.NewAdaptiveMargin(explore.MarginConfig{
		Capacity: 2048, NMin: 64, Quantile: 0.995, Decay: 0.1, Safety: 0.01, Min: 0, Max: 2,
	})
	r.shift = explore.NewAdaptiveScoreShift(explore.ShiftConfig{
		Capacity: 2048, NMin: 64, Decay: 0.1, Safety: 0, Min: -2, Max: 2,
	})
	r.verifier = explore.NewVerifier(512)

	r.initAllocator()
	if err := r.initBackend(); err != nil {
		return nil, err
	}
	r.initSubmission()
	r.initCPUPool()
	r.initGPUManager()

	if cfg.Persist.ArchiveDBPath != "" {
		a, err := archive.Open(cfg.Persist.ArchiveDBPath)
		if err != nil {
			r.logger.Warn().Err(err).Msg("archive open failed, accepted-submission history will not be recorded")
		} else {
			r.archive = a
		}
	}

	return r, nil
}

func (r *Runner) initAllocator() {
	size := r.cfg.SeedSpaceSize
	if size == 0 {
		size = seed.Size
	}
	st, err := allocator.Load(r.cfg.Persist.SeedStatePath)
	switch {
	case err == nil:
		r.alloc = allocator.NewFromState(st, size, 0)
	case os.IsNotExist(err):
		r.alloc = allocator.New(size, 0)
	default:
		r.logger.Warn().Err(err).Msg("seed state unreadable, starting a fresh permutation")
		r.alloc = allocator.New(size, 0)
	}
}

// initBackend runs once at startup: it resolves the initial batch
// size (persisted tuning hint, falling back to config), selects a
// backend, and constructs the Autotuner that owns hill-climbing state
// for the rest of the run. Later batch-size changes go through
// rebuildGPUManager instead, which must not replace the Autotuner.
func (r *Runner) initBackend() error {
	hints := tuninghint.Load(r.cfg.Persist.TuningHintPath)
	batch, inflight := r.cfg.GPU.BatchSize, r.cfg.GPU.Inflight
	if h, ok := hints.Get(preferredDeviceID(r.cfg.GPU.PreferredOrder)); ok {
		if h.Batch > 0 {
			batch = h.Batch
		}
		if h.Inflight > 0 {
			inflight = h.Inflight
		}
	}

	backend, err := r.buildBackend(batch, inflight)
	if err != nil {
		return err
	}
	r.backend = backend
	r.autotuner = explore.NewAutotuner(batch, 64, 65536)
	return nil
}

// buildBackend selects a concrete approx.Backend for the given batch
// and inflight sizes. A non-mandated selection failure is logged and
// yields a nil backend (CPU-only); a mandated failure returns a fatal
// error.
func (r *Runner) buildBackend(batch, inflight int) (approx.Backend, error) {
	backend, err := factory.Select(factory.Config{
		PreferredOrder: r.cfg.GPU.PreferredOrder,
		BatchSize:      batch,
		Inflight:       inflight,
		ImageSize:      r.cfg.ImageSize,
		Mandatory:      r.cfg.GPU.Mandatory,
	})
	if err != nil {
		var e *errs.Error
		if errs.As(err, &e) && e.Fatal() {
			return nil, err
		}
		r.logger.Warn().Err(err).Msg("gpu backend selection failed, continuing CPU-only")
		return nil, nil
	}
	return backend, nil
}

func preferredDeviceID(order []string) string {
	if len(order) == 0 {
		return "software"
	}
	return order[0]
}

func (r *Runner) initCPUPool() {
	var submit explore.SubmitFunc
	if r.cfg.Submission.Endpoint != "" {
		submit = func(res scorer.ScoreResult) {
			r.subManager.MaybeEnqueue(res.Seed, res.TotalScore, submission.SourceCPUWorker)
		}
	}
	workers := r.cfg.CPUWorkers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	r.cpuWorkers = workers
	r.cpuPool = explore.NewCPUWorkerPool(r.alloc, r.best, r.cpuRunning, r.counters, r.cfg.ImageSize, 64, 512, submit)
}

func (r *Runner) initGPUManager() {
	if r.backend == nil {
		return
	}
	gate := func() float64 {
		t := r.subState.Threshold()
		if math.IsNaN(t) {
			return math.Inf(1)
		}
		return t - r.margin.Current()
	}
	cfg := explore.GPUManagerConfig{
		ImageSize:         r.cfg.ImageSize,
		Gate:              gate,
		SubmissionEnabled: r.cfg.Submission.Endpoint != "",
		SamplingEnabled:   r.cfg.Submission.Endpoint != "",
		SampleSlack:       defaultSampleSlack,
	}
	r.gpuManager = explore.NewGPUManager(r.backend, r.alloc, r.verifier, r.gpuRunning, r.approxBest, r.counters, r.budget, cfg)
}

func (r *Runner) initSubmission() {
	r.subState = submission.NewState(r.cfg.Submission.UserMinScore, 10000)
	r.subQueue = submission.NewQueue()
	if r.cfg.Submission.Endpoint != "" {
		r.subClient = submission.NewClient(r.cfg.Submission.Endpoint, buildinfo.Version, buildinfo.Hash())
	}
	r.journal = submission.NewJournal(r.cfg.Persist.JournalPath, r.subQueue, time.Second)
	r.subManager = submission.NewManager(r.subState, r.subQueue, r.subClient, r.events, r.counters, buildinfo.Version, r.cfg.Submission.MaxRetries, r.journal)
}
