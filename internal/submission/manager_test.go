package submission

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davelindo/galleryofbabel/internal/seed"
	"github.com/davelindo/galleryofbabel/internal/stats"
)

// scriptedClient replays a fixed sequence of SubmitResults, one per
// Submit call, and a fixed top list for FetchTop.
type scriptedClient struct {
	script []SubmitResult
	calls  int
	top    []TopEntry
	topErr error
}

func (c *scriptedClient) Submit(ctx context.Context, req SubmitRequest) SubmitResult {
	if c.calls >= len(c.script) {
		return SubmitResult{Outcome: OutcomeRejectedTerminal}
	}
	r := c.script[c.calls]
	c.calls++
	return r
}

func (c *scriptedClient) FetchTop(ctx context.Context, limit int) ([]TopEntry, error) {
	return c.top, c.topErr
}

func newTestManager(t *testing.T, client LeaderboardClient, userMinScore float64) *Manager {
	t.Helper()
	state := NewState(userMinScore, 1000)
	queue := NewQueue()
	events := stats.NewEventLog(100)
	var counters stats.Counters
	return NewManager(state, queue, client, events, &counters, "test-1.0", 8, nil)
}

// E1: user_min_score=-2.0, threshold=0.0. maybe_enqueue(seed=42,
// score=0.5) accepted by API with rank=17 -> accepted event,
// acceptedCount=1, known_seeds contains 42, queue empty.
func TestManagerE1Accepted(t *testing.T) {
	rank := 17
	client := &scriptedClient{
		script: []SubmitResult{{Outcome: OutcomeAccepted, Response: SubmitResponse{Accepted: true, Rank: &rank}}},
	}
	m := newTestManager(t, client, -2.0)
	m.state.ApplyRefresh([]float64{0.0}, nil, 1)

	ok := m.MaybeEnqueue(seed.Seed(42), 0.5, SourceVerifier)
	require.True(t, ok)

	res := m.DispatchOnce(context.Background(), time.Unix(0, 0))
	assert.Equal(t, DispatchAccepted, res.Status)
	assert.Equal(t, 1, len(m.Accepted()))
	assert.True(t, m.state.IsKnown(seed.Seed(42)))
	assert.Equal(t, 0, m.Pending())

	snap := m.counters.Snapshot()
	assert.Equal(t, uint64(1), snap.Submitted)
	assert.Equal(t, uint64(1), snap.Accepted)

	events := m.events.Recent()
	require.NotEmpty(t, events)
	assert.Equal(t, stats.EventAccepted, events[len(events)-1].Kind)
}

// E2: same setup, score -1.0 -> immediately ignored, no submission, no
// event, queue stays empty.
func TestManagerE2Ignored(t *testing.T) {
	client := &scriptedClient{}
	m := newTestManager(t, client, -2.0)
	m.state.ApplyRefresh([]float64{0.0}, nil, 1)

	ok := m.MaybeEnqueue(seed.Seed(7), -1.0, SourceVerifier)
	assert.False(t, ok)
	assert.Equal(t, 0, m.Pending())
	assert.Empty(t, m.events.Recent())
	assert.Equal(t, 0, client.calls)
}

// E5: responses [500, 500, 429, accept] for a task at score 1.23:
// exactly 1 accepted event, >=2 "retrying" warnings, backoff strictly
// positive at least once.
func TestManagerE5RetrySequence(t *testing.T) {
	client := &scriptedClient{
		script: []SubmitResult{
			{Outcome: OutcomeRetryableServerError, Err: assertErr("500")},
			{Outcome: OutcomeRetryableServerError, Err: assertErr("500")},
			{Outcome: OutcomeRateLimited, Err: assertErr("429")},
			{Outcome: OutcomeAccepted, Response: SubmitResponse{Accepted: true}},
		},
	}
	m := newTestManager(t, client, -10.0)
	m.state.ApplyRefresh([]float64{0.0}, nil, 1)
	require.True(t, m.MaybeEnqueue(seed.Seed(9), 1.23, SourceVerifier))

	now := time.Unix(0, 0)
	var backoffSeen time.Duration
	var results []DispatchResult
	for i := 0; i < 4; i++ {
		res := m.DispatchOnce(context.Background(), now)
		results = append(results, res)
		if res.Status == DispatchRetrying || res.Status == DispatchBackoffWait {
			if !res.WakeAt.IsZero() {
				d := res.WakeAt.Sub(now)
				if d > backoffSeen {
					backoffSeen = d
				}
			}
		}
		if !res.WakeAt.IsZero() {
			now = res.WakeAt
		}
	}

	accepted := 0
	retrying := 0
	for _, r := range results {
		if r.Status == DispatchAccepted {
			accepted++
		}
		if r.Status == DispatchRetrying {
			retrying++
		}
	}
	assert.Equal(t, 1, accepted)
	assert.GreaterOrEqual(t, retrying, 2)
	assert.Greater(t, backoffSeen, time.Duration(0))

	warnings := 0
	for _, e := range m.events.Recent() {
		if e.Kind == stats.EventWarning {
			warnings++
		}
	}
	assert.GreaterOrEqual(t, warnings, 2)
}

// Testable Property #8: responses [429, 429, 200-accept] lead to
// exactly one accepted event with non-decreasing, 60s-bounded backoff.
func TestManagerRetryBackoffOn429(t *testing.T) {
	client := &scriptedClient{
		script: []SubmitResult{
			{Outcome: OutcomeRateLimited},
			{Outcome: OutcomeRateLimited},
			{Outcome: OutcomeAccepted, Response: SubmitResponse{Accepted: true}},
		},
	}
	m := newTestManager(t, client, -10.0)
	m.state.ApplyRefresh([]float64{0.0}, nil, 1)
	require.True(t, m.MaybeEnqueue(seed.Seed(5), 2.0, SourceVerifier))

	now := time.Unix(0, 0)
	var delays []time.Duration
	accepted := false
	for i := 0; i < 5 && !accepted; i++ {
		res := m.DispatchOnce(context.Background(), now)
		if res.Status == DispatchAccepted {
			accepted = true
			break
		}
		if !res.WakeAt.IsZero() {
			delays = append(delays, res.WakeAt.Sub(now))
			now = res.WakeAt
		}
	}
	require.True(t, accepted)
	require.Len(t, delays, 2)
	assert.LessOrEqual(t, delays[0], 60*time.Second)
	assert.LessOrEqual(t, delays[1], 60*time.Second)
	assert.GreaterOrEqual(t, delays[1], delays[0])
	assert.Equal(t, 1, len(m.Accepted()))
}

func TestManagerRefreshPrunesQueue(t *testing.T) {
	client := &scriptedClient{top: []TopEntry{{Seed: 1, Score: 50}}}
	m := newTestManager(t, client, -10.0)
	m.state.ApplyRefresh([]float64{0.0}, nil, 1)
	m.queue.Push(Task{Seed: seed.Seed(2), Score: 5})
	m.queue.Push(Task{Seed: seed.Seed(3), Score: 100})

	removed, err := m.RefreshTop(context.Background(), 500, time.Unix(0, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, m.Pending())
}

func TestManagerRefreshFailureSetsBackoffAndLeavesThresholdAlone(t *testing.T) {
	client := &scriptedClient{topErr: assertErr("unreachable")}
	m := newTestManager(t, client, -10.0)
	m.state.ApplyRefresh([]float64{0.0}, nil, 1)

	_, err := m.RefreshTop(context.Background(), 500, time.Unix(0, 1))
	require.Error(t, err)
	assert.Greater(t, m.RefreshBackoff(), time.Duration(0))
	assert.LessOrEqual(t, m.RefreshBackoff(), 5*time.Minute)
	assert.Equal(t, 0.0, m.state.Threshold())
}

type simpleErr string

func (e simpleErr) Error() string { return string(e) }

func assertErr(msg string) error { return simpleErr(msg) }
