// Package submission implements the score-prioritized, rate-limited,
// retrying, disk-journalled submission queue: the last stage between a
// verified seed and the remote leaderboard.
package submission

import (
	"math"
	"sync"

	"github.com/davelindo/galleryofbabel/internal/seed"
)

// State tracks which seeds are already known to the leaderboard or
// have already been attempted, plus the current admission threshold.
// A seed is eligible iff its score clears max(userMinScore,
// top500Threshold) and it is in neither known nor attempted.
type State struct {
	mu sync.Mutex

	userMinScore float64

	known     map[seed.Seed]struct{}
	attempted map[seed.Seed]struct{}
	// attemptedOrder is a FIFO of attempted's insertion order, so the
	// set can be bounded without growing forever.
	attemptedOrder []seed.Seed
	attemptedCap   int

	topScores       []float64
	top500Threshold float64 // NaN until a refresh has completed
	lastRefresh     int64   // unix nanos; 0 until set
}

// NewState builds a State with top500Threshold unset (NaN) until the
// first top-list refresh succeeds.
func NewState(userMinScore float64, attemptedCap int) *State {
	if attemptedCap <= 0 {
		attemptedCap = 100_000
	}
	return &State{
		userMinScore:    userMinScore,
		known:           make(map[seed.Seed]struct{}),
		attempted:       make(map[seed.Seed]struct{}),
		attemptedCap:    attemptedCap,
		top500Threshold: math.NaN(),
	}
}

// Threshold returns max(userMinScore, top500Threshold). It is NaN
// (and therefore nothing is eligible) until a refresh has completed.
func (s *State) Threshold() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.threshold()
}

// SetUserMinScore updates the user-configured floor, e.g. on a
// config hot-reload. It takes effect on the next Threshold call.
func (s *State) SetUserMinScore(v float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userMinScore = v
}

func (s *State) threshold() float64 {
	if math.IsNaN(s.top500Threshold) {
		return math.NaN()
	}
	return math.Max(s.userMinScore, s.top500Threshold)
}

// MarkAttemptIfEligible requires a finite threshold, score strictly
// above it, and the seed absent from known∪attempted. On success it
// records the seed as attempted and returns true.
func (s *State) MarkAttemptIfEligible(sd seed.Seed, score float64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	th := s.threshold()
	if math.IsNaN(th) || !(score > th) {
		return false
	}
	if _, ok := s.known[sd]; ok {
		return false
	}
	if _, ok := s.attempted[sd]; ok {
		return false
	}
	s.markAttempted(sd)
	return true
}

func (s *State) markAttempted(sd seed.Seed) {
	if _, ok := s.attempted[sd]; ok {
		return
	}
	s.attempted[sd] = struct{}{}
	s.attemptedOrder = append(s.attemptedOrder, sd)
	for len(s.attemptedOrder) > s.attemptedCap {
		oldest := s.attemptedOrder[0]
		s.attemptedOrder = s.attemptedOrder[1:]
		delete(s.attempted, oldest)
	}
}

// Rollback removes sd from attempted, e.g. after a rejection or queue
// eviction, so the seed can be re-attempted later.
func (s *State) Rollback(sd seed.Seed) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.attempted[sd]; !ok {
		return
	}
	delete(s.attempted, sd)
	for i, v := range s.attemptedOrder {
		if v == sd {
			s.attemptedOrder = append(s.attemptedOrder[:i], s.attemptedOrder[i+1:]...)
			break
		}
	}
}

// MarkKnown records sd as known to the leaderboard (accepted, or
// present in a refresh response).
func (s *State) MarkKnown(sd seed.Seed) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.known[sd] = struct{}{}
}

// IsKnown reports whether sd is in the known set.
func (s *State) IsKnown(sd seed.Seed) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.known[sd]
	return ok
}

// ApplyRefresh replaces top500Threshold and known_seeds wholesale from
// a successful top-list fetch, sorting scores descending and taking
// the lowest as the new threshold.
func (s *State) ApplyRefresh(scores []float64, knownSeeds []seed.Seed, nowUnixNano int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sorted := append([]float64(nil), scores...)
	sortDesc(sorted)
	s.topScores = sorted
	if len(sorted) > 0 {
		s.top500Threshold = sorted[len(sorted)-1]
	} else {
		s.top500Threshold = math.Inf(-1)
	}

	s.known = make(map[seed.Seed]struct{}, len(knownSeeds))
	for _, sd := range knownSeeds {
		s.known[sd] = struct{}{}
	}
	s.lastRefresh = nowUnixNano
}

// TopScores returns a copy of the last refreshed top-list, descending.
func (s *State) TopScores() []float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]float64(nil), s.topScores...)
}

func sortDesc(v []float64) {
	for i := 1; i < len(v); i++ {
		for j := i; j > 0 && v[j-1] < v[j]; j-- {
			v[j-1], v[j] = v[j], v[j-1]
		}
	}
}
