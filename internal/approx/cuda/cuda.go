// Package cuda implements the approximate-GPU-A backend. The actual
// GPU kernel is out of scope here (documented black box); this
// package only implements the approx.Backend contract plus a
// deterministic, seed-derived approximation used to exercise the
// pipeline end to end when no CUDA device is configured.
package cuda

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/davelindo/galleryofbabel/internal/approx"
	"github.com/davelindo/galleryofbabel/internal/prng"
	"github.com/davelindo/galleryofbabel/internal/scorer"
	"github.com/davelindo/galleryofbabel/internal/seed"
)

// deviceEnvVar gates availability: a real binding would probe the
// CUDA runtime directly, but that probe lives outside this module.
const deviceEnvVar = "GALLERYOFBABEL_CUDA_DEVICE"

const (
	bias   = 0.35 // this backend's calibrated mean (cpu - gpu) offset
	spread = 0.9  // this backend's approximation noise scale
)

type pending struct {
	seeds []seed.Seed
}

// Backend is the approximate-GPU-A backend.
type Backend struct {
	batchSize int
	inflight  int
	imageSize int

	mu     sync.Mutex
	jobs   map[uint64]pending
	nextID atomic.Uint64
	jobSem chan struct{}
}

func New(batchSize, inflight, imageSize int) *Backend {
	return &Backend{
		batchSize: batchSize,
		inflight:  inflight,
		imageSize: imageSize,
		jobs:      make(map[uint64]pending),
		jobSem:    make(chan struct{}, inflight),
	}
}

func (b *Backend) Name() string      { return "cuda" }
func (b *Backend) IsAvailable() bool { return os.Getenv(deviceEnvVar) != "" }

func (b *Backend) Initialize() error {
	if !b.IsAvailable() {
		return errNoDevice
	}
	return nil
}

func (b *Backend) Shutdown() error { return nil }

func (b *Backend) Capabilities() approx.Capabilities {
	return approx.Capabilities{
		Name:         "cuda",
		IsHardware:   true,
		MaxBatchSize: b.batchSize,
		MaxInflight:  b.inflight,
	}
}

func (b *Backend) Enqueue(seeds []seed.Seed) (approx.Job, error) {
	b.jobSem <- struct{}{}
	id := b.nextID.Add(1)

	cp := make([]seed.Seed, len(seeds))
	copy(cp, seeds)

	b.mu.Lock()
	b.jobs[id] = pending{seeds: cp}
	b.mu.Unlock()

	return approx.Job{ID: id, N: len(seeds)}, nil
}

func (b *Backend) Await(job approx.Job) ([]float32, error) {
	b.mu.Lock()
	p, ok := b.jobs[job.ID]
	if ok {
		delete(b.jobs, job.ID)
	}
	b.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("cuda: unknown job id %d", job.ID)
	}
	<-b.jobSem

	out := make([]float32, len(p.seeds))
	for i, s := range p.seeds {
		exact := scorer.Exact(s, b.imageSize).TotalScore
		out[i] = float32(exact) - bias + noise(s)
	}
	return out, nil
}

// noise derives a deterministic, seed-specific perturbation in
// roughly [-spread/2, spread/2] from a PRNG stream independent of the
// one the exact scorer uses (a different fixed salt constant),
// keeping the approximation reproducible without being identical to
// the exact score.
func noise(s seed.Seed) float32 {
	gen := prng.New(uint64(s) ^ saltConst)
	return (gen.Next() - 0.5) * spread
}

const saltConst = 0xA5A5A5A5A5A5A5A5

var errNoDevice = approxErr("cuda: no device configured (set " + deviceEnvVar + ")")

type approxErr string

func (e approxErr) Error() string { return string(e) }
