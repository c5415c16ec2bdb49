package submission

import (
	"github.com/google/uuid"

	"github.com/davelindo/galleryofbabel/internal/seed"
)

// Source identifies where a submission task originated.
type Source int

const (
	SourceVerifier Source = iota
	SourceCPUWorker
	SourceManual
)

// Task is one pending (or active) submission: a seed, its score, where
// it came from, and a monotonic sequence number used to break score
// ties in FIFO order.
type Task struct {
	Seed          seed.Seed
	Score         float64
	Source        Source
	Seq           uint64
	CorrelationID string

	retries int
}

// newCorrelationID returns a fresh trace id for a newly enqueued task.
// The journal does not store it, so journal-reloaded tasks carry none.
func newCorrelationID() string { return uuid.NewString() }

// Less orders tasks score descending, then seq ascending: this is the
// "highest score first, ties broken by insertion order" dispatch rule.
func (t Task) Less(other Task) bool {
	if t.Score != other.Score {
		return t.Score > other.Score
	}
	return t.Seq < other.Seq
}
