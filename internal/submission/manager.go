package submission

import (
	"context"
	"fmt"
	"math/rand"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"golang.org/x/time/rate"

	"github.com/davelindo/galleryofbabel/internal/seed"
	"github.com/davelindo/galleryofbabel/internal/stats"
)

// AcceptedEntry records one leaderboard acceptance for the bounded
// "accepted" and "acceptedBest" lists.
type AcceptedEntry struct {
	Seed      seed.Seed
	Score     float64
	Rank      int
	HasRank   bool
	Timestamp time.Time
}

// DispatchStatus classifies what DispatchOnce did this call.
type DispatchStatus int

const (
	DispatchIdle DispatchStatus = iota
	DispatchBackoffWait
	DispatchAccepted
	DispatchRejected
	DispatchRetrying
	DispatchFailedExhausted
)

// DispatchResult reports the outcome of one DispatchOnce call.
type DispatchResult struct {
	Status DispatchStatus
	Task   Task
	WakeAt time.Time
}

const (
	maxAccepted     = 20
	maxAcceptedBest = 3
)

// Manager owns the pending queue, the eligibility state, the
// leaderboard client, and the dispatch/backoff bookkeeping. Exactly
// one DispatchOnce call may be outstanding at a time; callers are
// expected to serialize calls from a single dispatcher goroutine.
type Manager struct {
	state    *State
	queue    *Queue
	client   LeaderboardClient
	events   *stats.EventLog
	counters *stats.Counters

	clientVersion string
	maxRetries    int

	limiter *rate.Limiter
	rng     *rand.Rand

	mu               sync.Mutex
	backoffUntil     time.Time
	rateLimitStreak  int
	refreshBackoff   *backoff.ExponentialBackOff
	lastRefreshDelay time.Duration

	accepted     []AcceptedEntry
	acceptedBest []AcceptedEntry

	journal *Journal
}

// NewManager wires a Manager. maxRetries<=0 defaults to 8 per spec.
func NewManager(state *State, queue *Queue, client LeaderboardClient, events *stats.EventLog, counters *stats.Counters, clientVersion string, maxRetries int, journal *Journal) *Manager {
	if maxRetries <= 0 {
		maxRetries = 8
	}
	return &Manager{
		state:          state,
		queue:          queue,
		client:         client,
		events:         events,
		counters:       counters,
		clientVersion:  clientVersion,
		maxRetries:     maxRetries,
		limiter:        rate.NewLimiter(rate.Limit(5), 5),
		rng:            rand.New(rand.NewSource(1)),
		journal:        journal,
		refreshBackoff: newRefreshBackoff(),
	}
}

// newRefreshBackoff builds the top-500 refresh retry schedule: 5s up
// to 5min, doubling, per spec §4.8.
func newRefreshBackoff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 5 * time.Second
	b.MaxInterval = 5 * time.Minute
	b.Multiplier = 2
	b.RandomizationFactor = 0.2
	return b
}

// MaybeEnqueue is the sole entry point for offering a scored seed to
// the submission manager. It fails fast on score<=userMinScore, then
// defers eligibility to State.MarkAttemptIfEligible.
func (m *Manager) MaybeEnqueue(sd seed.Seed, score float64, source Source) bool {
	if score <= m.state.userMinScore {
		return false
	}
	if !m.state.MarkAttemptIfEligible(sd, score) {
		return false
	}
	m.queue.Push(Task{Seed: sd, Score: score, Source: source, CorrelationID: newCorrelationID()})
	m.markDirty()
	return true
}

// Pending returns the number of tasks currently queued (excluding any
// task mid-dispatch).
func (m *Manager) Pending() int { return m.queue.Len() }

// Accepted returns a copy of the bounded accepted-entries list.
func (m *Manager) Accepted() []AcceptedEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]AcceptedEntry(nil), m.accepted...)
}

// AcceptedBest returns a copy of the top-3 accepted entries, ordered as
// insertAcceptedBest ranks them (rank first, then score).
func (m *Manager) AcceptedBest() []AcceptedEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]AcceptedEntry(nil), m.acceptedBest...)
}

// DispatchOnce attempts to advance the head of the queue by exactly
// one network call, honoring an active backoff window first.
func (m *Manager) DispatchOnce(ctx context.Context, now time.Time) DispatchResult {
	m.mu.Lock()
	wake := m.backoffUntil
	m.mu.Unlock()
	if now.Before(wake) {
		return DispatchResult{Status: DispatchBackoffWait, WakeAt: wake}
	}

	task, ok := m.queue.Pop()
	if !ok {
		return DispatchResult{Status: DispatchIdle}
	}

	m.limiter.Allow() // optimistic: shapes outbound rate but never blocks dispatch

	result := m.client.Submit(ctx, SubmitRequest{Seed: uint64(task.Seed), Score: task.Score})
	m.markDirty()
	if m.counters != nil {
		m.counters.AddSubmitted(1)
	}

	switch result.Outcome {
	case OutcomeAccepted:
		m.onAccepted(task, result, now)
		return DispatchResult{Status: DispatchAccepted, Task: task}

	case OutcomeRejectedTerminal:
		if m.counters != nil {
			m.counters.AddRejected(1)
		}
		m.events.Append(stats.EventRejected, fmt.Sprintf("seed %d rejected: %v", task.Seed, result.Err))
		return DispatchResult{Status: DispatchRejected, Task: task}

	case OutcomeRateLimited:
		m.mu.Lock()
		m.rateLimitStreak++
		delay := rateLimitBackoff(m.rateLimitStreak, m.rng)
		m.backoffUntil = now.Add(delay)
		wake := m.backoffUntil
		m.mu.Unlock()
		m.events.Append(stats.EventWarning, fmt.Sprintf("seed %d rate-limited, retrying in %s", task.Seed, delay))
		m.queue.Push(task)
		m.markDirty()
		return DispatchResult{Status: DispatchRetrying, Task: task, WakeAt: wake}

	case OutcomeRetryableServerError, OutcomeTransportFailure:
		task.retries++
		if task.retries >= m.maxRetries {
			if m.counters != nil {
				m.counters.AddRejected(1)
			}
			m.events.Append(stats.EventRejected, fmt.Sprintf("seed %d failed after %d retries: %v", task.Seed, task.retries, result.Err))
			return DispatchResult{Status: DispatchFailedExhausted, Task: task}
		}
		delay := retryBackoff(task.retries, m.rng)
		m.mu.Lock()
		m.backoffUntil = now.Add(delay)
		wake := m.backoffUntil
		m.mu.Unlock()
		m.events.Append(stats.EventWarning, fmt.Sprintf("seed %d transient failure, retrying in %s: %v", task.Seed, delay, result.Err))
		m.queue.Push(task)
		m.markDirty()
		return DispatchResult{Status: DispatchRetrying, Task: task, WakeAt: wake}

	default:
		return DispatchResult{Status: DispatchRejected, Task: task}
	}
}

func (m *Manager) onAccepted(task Task, result SubmitResult, now time.Time) {
	m.state.MarkKnown(task.Seed)
	if m.counters != nil {
		m.counters.AddAccepted(1)
	}

	m.mu.Lock()
	m.rateLimitStreak = 0
	m.backoffUntil = time.Time{}

	entry := AcceptedEntry{Seed: task.Seed, Score: task.Score, Timestamp: now}
	if result.Response.Rank != nil {
		entry.Rank = *result.Response.Rank
		entry.HasRank = true
	}
	m.accepted = append(m.accepted, entry)
	if len(m.accepted) > maxAccepted {
		m.accepted = m.accepted[len(m.accepted)-maxAccepted:]
	}
	m.acceptedBest = insertAcceptedBest(m.acceptedBest, entry)
	m.mu.Unlock()

	m.events.Append(stats.EventAccepted, fmt.Sprintf("seed %d accepted (score %.6f)", task.Seed, task.Score))
}

// insertAcceptedBest keeps the top maxAcceptedBest entries, ranked by
// rank ascending (best difficulty percentile first) when both entries
// have one, falling back to score descending.
func insertAcceptedBest(best []AcceptedEntry, e AcceptedEntry) []AcceptedEntry {
	best = append(best, e)
	sort.SliceStable(best, func(i, j int) bool {
		a, b := best[i], best[j]
		if a.HasRank && b.HasRank && a.Rank != b.Rank {
			return a.Rank < b.Rank
		}
		return a.Score > b.Score
	})
	if len(best) > maxAcceptedBest {
		best = best[:maxAcceptedBest]
	}
	return best
}

// RefreshTop fetches the current top list and applies it to State,
// pruning the pending queue of now-ineligible tasks.
func (m *Manager) RefreshTop(ctx context.Context, limit int, now time.Time) (pruned int, err error) {
	entries, err := m.client.FetchTop(ctx, limit)
	if err != nil {
		m.mu.Lock()
		m.lastRefreshDelay = m.refreshBackoff.NextBackOff()
		m.mu.Unlock()
		return 0, err
	}

	scores := make([]float64, len(entries))
	seeds := make([]seed.Seed, len(entries))
	for i, e := range entries {
		scores[i] = e.Score
		seeds[i] = seed.Seed(e.Seed)
	}
	m.state.ApplyRefresh(scores, seeds, now.UnixNano())

	m.mu.Lock()
	m.refreshBackoff.Reset()
	m.lastRefreshDelay = 0
	m.mu.Unlock()

	th := m.state.Threshold()
	removed := m.queue.PruneThreshold(th)
	removed += m.queue.PruneKnown(m.state.IsKnown)
	m.markDirty()
	return removed, nil
}

// RefreshBackoff returns the delay computed by the most recent failed
// RefreshTop call, or 0 if the last refresh succeeded (or none ran
// yet).
func (m *Manager) RefreshBackoff() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastRefreshDelay
}

func (m *Manager) markDirty() {
	if m.journal != nil {
		m.journal.MarkDirty()
	}
}
