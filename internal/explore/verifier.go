package explore

import (
	"sync"

	"github.com/davelindo/galleryofbabel/internal/seed"
)

// Priority orders Verifier queue entries; Candidate strictly
// dominates Sample.
type Priority int

const (
	PrioritySample Priority = iota
	PriorityCandidate
)

// VerifyTask is one seed awaiting exact CPU rescoring. ApproxScore
// carries the GPU manager's approximate score at enqueue time so the
// consumer can pair (approx, exact) for the adaptive controllers once
// the exact score comes back.
type VerifyTask struct {
	Seed        seed.Seed
	Priority    Priority
	ApproxScore float32
}

// Verifier is a bounded two-level priority queue: candidates strictly
// precede samples, capacity is fixed, and a full queue evicts the
// oldest sample to make room for an incoming candidate (samples alone
// are rejected when full). A seen-set prevents the same seed being
// queued twice while pending.
type Verifier struct {
	mu         sync.Mutex
	cond       *sync.Cond
	candidates []VerifyTask
	samples    []VerifyTask
	capacity   int
	seen       map[seed.Seed]bool
	closed     bool
}

func NewVerifier(capacity int) *Verifier {
	v := &Verifier{
		capacity: capacity,
		seen:     make(map[seed.Seed]bool),
	}
	v.cond = sync.NewCond(&v.mu)
	return v
}

// Push attempts to enqueue task. Returns false if rejected (seed
// already pending, queue full for a sample, or the verifier is
// closed).
func (v *Verifier) Push(task VerifyTask) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.closed {
		return false
	}
	if v.seen[task.Seed] {
		return false
	}

	total := len(v.candidates) + len(v.samples)

	switch task.Priority {
	case PriorityCandidate:
		if total >= v.capacity {
			if len(v.samples) == 0 {
				return false
			}
			evicted := v.samples[0]
			v.samples = v.samples[1:]
			delete(v.seen, evicted.Seed)
		}
		v.candidates = append(v.candidates, task)
		v.seen[task.Seed] = true
		v.cond.Signal()
		return true

	default: // PrioritySample
		if total >= v.capacity {
			return false
		}
		v.samples = append(v.samples, task)
		v.seen[task.Seed] = true
		v.cond.Signal()
		return true
	}
}

// Pop blocks until a task is available or the verifier is closed and
// drained, in which case it returns false. Candidates are always
// returned before samples. The popped seed is removed from the
// seen-set: it is no longer pending once a verifier thread owns it.
func (v *Verifier) Pop() (VerifyTask, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for len(v.candidates) == 0 && len(v.samples) == 0 {
		if v.closed {
			return VerifyTask{}, false
		}
		v.cond.Wait()
	}

	if len(v.candidates) > 0 {
		t := v.candidates[0]
		v.candidates = v.candidates[1:]
		delete(v.seen, t.Seed)
		return t, true
	}
	t := v.samples[0]
	v.samples = v.samples[1:]
	delete(v.seen, t.Seed)
	return t, true
}

// Close stops accepting new pushes and wakes any blocked poppers;
// already-queued tasks remain poppable until drained.
func (v *Verifier) Close() {
	v.mu.Lock()
	v.closed = true
	v.mu.Unlock()
	v.cond.Broadcast()
}

// Len reports the total number of queued (candidate + sample) tasks.
func (v *Verifier) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.candidates) + len(v.samples)
}
