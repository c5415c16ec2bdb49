package stats

import (
	"sync"

	"github.com/davelindo/galleryofbabel/internal/scorer"
	"github.com/davelindo/galleryofbabel/internal/seed"
)

// BestTracker keeps the single best ScoreResult seen so far under a
// mutex; comparisons favor the first-seen result on an exact tie so
// updates are order-stable across identical scores.
type BestTracker struct {
	mu   sync.Mutex
	best *scorer.ScoreResult
}

// Offer replaces the tracked best if r scores strictly higher.
// Reports whether it became the new best.
func (b *BestTracker) Offer(r scorer.ScoreResult) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.best == nil || r.TotalScore > b.best.TotalScore {
		cp := r
		b.best = &cp
		return true
	}
	return false
}

// Best returns the current best result, or false if none has been
// recorded yet.
func (b *BestTracker) Best() (scorer.ScoreResult, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.best == nil {
		return scorer.ScoreResult{}, false
	}
	return *b.best, true
}

// ApproxBest tracks the best approximate (GPU) score seen, paired with
// its seed, independent of the exact-score BestTracker above.
type ApproxBest struct {
	mu    sync.Mutex
	seed  seed.Seed
	score float32
	has   bool
}

func (a *ApproxBest) Offer(s seed.Seed, score float32) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.has || score > a.score {
		a.seed, a.score, a.has = s, score, true
		return true
	}
	return false
}

func (a *ApproxBest) Best() (seed.Seed, float32, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.seed, a.score, a.has
}
