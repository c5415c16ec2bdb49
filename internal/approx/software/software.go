// Package software implements the cpu-only null GPU backend: it
// satisfies the approx.Backend contract by recomputing the exact CPU
// score for every seed in the batch, so it carries zero approximation
// error by construction. It is always available and is the factory's
// last-resort fallback.
package software

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/davelindo/galleryofbabel/internal/approx"
	"github.com/davelindo/galleryofbabel/internal/scorer"
	"github.com/davelindo/galleryofbabel/internal/seed"
)

type pending struct {
	seeds []seed.Seed
}

// Backend is the cpu-only null backend.
type Backend struct {
	batchSize int
	inflight  int
	imageSize int

	mu      sync.Mutex
	jobs    map[uint64]pending
	nextID  atomic.Uint64
	jobSem  chan struct{}
}

// New constructs a null backend with the given batch size, inflight
// depth, and scorer image size.
func New(batchSize, inflight, imageSize int) *Backend {
	return &Backend{
		batchSize: batchSize,
		inflight:  inflight,
		imageSize: imageSize,
		jobs:      make(map[uint64]pending),
		jobSem:    make(chan struct{}, inflight),
	}
}

func (b *Backend) Name() string        { return "software" }
func (b *Backend) IsAvailable() bool   { return true }
func (b *Backend) Initialize() error   { return nil }
func (b *Backend) Shutdown() error     { return nil }

func (b *Backend) Capabilities() approx.Capabilities {
	return approx.Capabilities{
		Name:         "software",
		IsHardware:   false,
		MaxBatchSize: b.batchSize,
		MaxInflight:  b.inflight,
	}
}

// Enqueue records the batch and reserves an inflight slot; it blocks
// only if the backend already has `inflight` jobs outstanding (the
// producer's own backpressure contract, not this package's).
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

// Await recomputes the exact score for every seed in job and returns
// it as the approximate score (error is exactly zero).
func (b *Backend) Await(job approx.Job) ([]float32, error) {
	b.mu.Lock()
	p, ok := b.jobs[job.ID]
	if ok {
		delete(b.jobs, job.ID)
	}
	b.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("software: unknown job id %d", job.ID)
	}
	<-b.jobSem

	out := make([]float32, len(p.seeds))
	for i, s := range p.seeds {
		out[i] = float32(scorer.Exact(s, b.imageSize).TotalScore)
	}
	return out, nil
}
