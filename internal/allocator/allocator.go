// Package allocator implements the coprime-permutation seed-space
// allocator: a resumable, restart-safe scheme for handing out disjoint
// ranges of the seed space to workers.
package allocator

import (
	"math/rand"
	"sync"
	"time"

	"github.com/davelindo/galleryofbabel/internal/seed"
)

// State is the persisted permutation descriptor: the k-th emitted
// seed is MIN + (StartOffset + k*Step) mod Size.
type State struct {
	StartOffset uint64    `json:"start_offset"`
	Step        uint64    `json:"step"`
	NextIndex   uint64    `json:"next_index"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Claim is a non-persistent slice of permutation indices handed to a
// worker; the allocator guarantees no two live claims overlap.
type Claim struct {
	Offset uint64
	Count  uint64
}

// Allocator hands out disjoint Claims over a permutation of
// [0, size). Target is the number of seeds to ever emit in one pass;
// zero means unbounded (claim() never reports exhaustion).
type Allocator struct {
	mu     sync.Mutex
	state  State
	size   uint64
	target uint64
}

// New picks a fresh random permutation over [0, size) and returns an
// Allocator with NextIndex at zero. target bounds the number of seeds
// ever emitted in one pass (0 = unbounded).
func New(size, target uint64) *Allocator {
	return &Allocator{
		state: State{
			StartOffset: randomOffset(size),
			Step:        randomCoprimeStep(size),
			NextIndex:   0,
			UpdatedAt:   time.Now(),
		},
		size:   size,
		target: target,
	}
}

// NewFromState resumes an allocator from a previously persisted state.
// If the state's step is not coprime with size, the permutation is
// unsafe to resume (NextIndex cannot be trusted against the new
// permutation) and a fresh one is generated with NextIndex reset to
// zero.
func NewFromState(s State, size, target uint64) *Allocator {
	if gcd(s.Step, size) != 1 || s.Step == 0 {
		return New(size, target)
	}
	return &Allocator{state: s, size: size, target: target}
}

// State returns a copy of the current persisted state.
func (a *Allocator) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Claim atomically reserves up to maxCount indices and advances
// NextIndex. Returns false if the target has already been exhausted.
func (a *Allocator) Claim(maxCount uint64) (Claim, bool) {
	if maxCount == 0 {
		maxCount = 1
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	remaining := a.remainingLocked()
	if a.target != 0 && remaining == 0 {
		return Claim{}, false
	}
	count := maxCount
	if a.target != 0 && count > remaining {
		count = remaining
	}
	offset := a.state.NextIndex
	a.state.NextIndex += count
	a.state.UpdatedAt = time.Now()
	return Claim{Offset: offset, Count: count}, true
}

func (a *Allocator) remainingLocked() uint64 {
	if a.target == 0 {
		return ^uint64(0)
	}
	if a.state.NextIndex >= a.target {
		return 0
	}
	return a.target - a.state.NextIndex
}

// SeedAt maps a permutation index k to its seed value.
func (a *Allocator) SeedAt(k uint64) seed.Seed {
	a.mu.Lock()
	start, step, size := a.state.StartOffset, a.state.Step, a.size
	a.mu.Unlock()
	return seed.Seed(seed.Min + (start+k*step)%size)
}

// SeedsForClaim maps every index in c to its seed value, in order.
func (a *Allocator) SeedsForClaim(c Claim) []seed.Seed {
	out := make([]seed.Seed, c.Count)
	for i := uint64(0); i < c.Count; i++ {
		out[i] = a.SeedAt(c.Offset + i)
	}
	return out
}

func randomOffset(size uint64) uint64 {
	if size == 0 {
		return 0
	}
	return rand.Uint64() % size
}

// randomCoprimeStep samples random candidates until one is coprime
// with size; this always succeeds quickly because the seed space has
// few small factors.
func randomCoprimeStep(size uint64) uint64 {
	if size <= 1 {
		return 1
	}
	for {
		candidate := rand.Uint64()%(size-1) + 1
		if gcd(candidate, size) == 1 {
			return candidate
		}
	}
}

func gcd(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
