// Package ubpf implements the approximate-GPU-B backend, calibrated
// differently from cuda's approximate-GPU-A (a higher spread, lower
// bias approximation — representative of a lower-precision kernel).
// As with cuda, the actual kernel is a documented black box outside
// this module's scope.
package ubpf

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

const deviceEnvVar = "GALLERYOFBABEL_UBPF_DEVICE"

const (
	bias   = -0.1
	spread = 1.6
)

type pending struct {
	seeds []seed.Seed
}

// Backend is the approximate-GPU-B backend.
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

func (b *Backend) Name() string      { return "ubpf" }
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
		Name:         "ubpf",
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
		return nil, fmt.Errorf("ubpf: unknown job id %d", job.ID)
	}
	<-b.jobSem

	out := make([]float32, len(p.seeds))
	for i, s := range p.seeds {
		exact := scorer.Exact(s, b.imageSize).TotalScore
		out[i] = float32(exact) - bias + noise(s)
	}
	return out, nil
}

func noise(s seed.Seed) float32 {
	gen := prng.New(uint64(s) ^ saltConst)
	return (gen.Next() - 0.5) * spread
}

const saltConst = 0x5A5A5A5A5A5A5A5A

var errNoDevice = approxErr("ubpf: no device configured (set " + deviceEnvVar + ")")

type approxErr string

func (e approxErr) Error() string { return string(e) }
