// Package approx defines the GPU approximate scorer's contract: the
// core never depends on a concrete backend beyond this interface.
// Backend selection and fallback live in Factory; the actual kernel
// dispatch for a real GPU backend is a documented black box outside
// this module's scope.
package approx

import (
	"github.com/davelindo/galleryofbabel/internal/seed"
)

// Job identifies one in-flight batch submitted to a Backend.
type Job struct {
	ID   uint64
	N    int // number of real (non-padding) seeds in the batch
}

// Capabilities describes a backend's static characteristics, reported
// once after Initialize.
type Capabilities struct {
	Name          string
	IsHardware    bool
	MaxBatchSize  int
	MaxInflight   int
}

// Backend is the polymorphic GPU-scorer capability set the rest of
// the pipeline depends on. Enqueue is non-blocking up to the
// backend's inflight capacity; Await blocks the calling goroutine
// until that specific job completes, and completions across jobs
// submitted to one Backend are always observed in submission order.
type Backend interface {
	Name() string
	IsAvailable() bool
	Initialize() error
	Shutdown() error
	Capabilities() Capabilities

	// Enqueue submits a batch for scoring. seeds with len < BatchSize
	// are zero-padded internally; the returned Job carries the real
	// count so callers can discard padding scores.
	Enqueue(seeds []seed.Seed) (Job, error)

	// Await blocks until job completes and returns one score per real
	// seed in the batch, in the same order they were enqueued.
	Await(job Job) ([]float32, error)
}
