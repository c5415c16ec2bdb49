package submission

import (
	"container/heap"
	"sync"

	"github.com/davelindo/galleryofbabel/internal/seed"
)

// taskHeap is a container/heap of Tasks ordered by Task.Less (score
// desc, seq asc); see spec's "binary-heap keyed on (-score, seq)"
// guidance.
type taskHeap []Task

func (h taskHeap) Len() int            { return len(h) }
func (h taskHeap) Less(i, j int) bool  { return h[i].Less(h[j]) }
func (h taskHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *taskHeap) Push(x interface{}) { *h = append(*h, x.(Task)) }
func (h *taskHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Queue is a thread-safe priority queue of pending submission Tasks.
type Queue struct {
	mu  sync.Mutex
	h   taskHeap
	seq uint64
}

func NewQueue() *Queue {
	q := &Queue{}
	heap.Init(&q.h)
	return q
}

// Push inserts a task, assigning it the next sequence number if Seq is
// zero (callers restoring from a journal pass an explicit Seq).
func (q *Queue) Push(t Task) Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	if t.Seq == 0 {
		q.seq++
		t.Seq = q.seq
	} else if t.Seq > q.seq {
		q.seq = t.Seq
	}
	heap.Push(&q.h, t)
	return t
}

// Peek returns the head task without removing it.
func (q *Queue) Peek() (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.h) == 0 {
		return Task{}, false
	}
	return q.h[0], true
}

// Pop removes and returns the head task.
func (q *Queue) Pop() (Task, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.h) == 0 {
		return Task{}, false
	}
	return heap.Pop(&q.h).(Task), true
}

// Len returns the number of pending tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.h)
}

// Snapshot returns all pending tasks sorted score-desc, seq-asc,
// without removing them. Used for journal writes and tests.
func (q *Queue) Snapshot() []Task {
	q.mu.Lock()
	defer q.mu.Unlock()
	cp := append(taskHeap(nil), q.h...)
	out := make([]Task, 0, len(cp))
	for len(cp) > 0 {
		out = append(out, heap.Pop(&cp).(Task))
	}
	return out
}

// PruneThreshold removes every task whose score is <= threshold,
// returning how many were removed. Used after a top-list refresh
// raises the admission bar.
func (q *Queue) PruneThreshold(threshold float64) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	kept := q.h[:0]
	removed := 0
	for _, t := range q.h {
		if t.Score <= threshold {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	q.h = kept
	heap.Init(&q.h)
	return removed
}

// PruneKnown removes every task whose seed is in known, returning how
// many were removed.
func (q *Queue) PruneKnown(known func(seed.Seed) bool) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	kept := q.h[:0]
	removed := 0
	for _, t := range q.h {
		if known(t.Seed) {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	q.h = kept
	heap.Init(&q.h)
	return removed
}

// NextSeq reports the sequence number the next Push (without an
// explicit Seq) will assign.
func (q *Queue) NextSeq() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.seq + 1
}
