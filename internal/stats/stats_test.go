package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/davelindo/galleryofbabel/internal/scorer"
	"github.com/davelindo/galleryofbabel/internal/seed"
)

func TestCountersSnapshot(t *testing.T) {
	var c Counters
	c.AddCPUScored(3)
	c.AddAccepted(1)
	snap := c.Snapshot()
	assert.Equal(t, uint64(3), snap.CPUScored)
	assert.Equal(t, uint64(1), snap.Accepted)
	assert.Equal(t, uint64(0), snap.Rejected)
}

func TestRunningPublishAndSnapshot(t *testing.T) {
	var r Running
	r.Publish(2, 10, 52) // values 4 and 6: mean 5, var 1
	snap := r.Snapshot()
	assert.Equal(t, uint64(2), snap.Count)
	assert.InDelta(t, 5.0, snap.Mean, 1e-9)
	assert.InDelta(t, 1.0, snap.StdDev, 1e-9)
}

func TestBatchAccumulatorFlushesAtSize(t *testing.T) {
	var r Running
	ba := NewBatchAccumulator(&r, 3)
	ba.Add(1)
	ba.Add(2)
	assert.Equal(t, uint64(0), r.Snapshot().Count, "should not flush before reaching flushSize")
	ba.Add(3)
	assert.Equal(t, uint64(3), r.Snapshot().Count)
}

func TestBatchAccumulatorExplicitFlush(t *testing.T) {
	var r Running
	ba := NewBatchAccumulator(&r, 100)
	ba.Add(5)
	ba.Flush()
	assert.Equal(t, uint64(1), r.Snapshot().Count)
}

func TestQuantileEmpirical(t *testing.T) {
	data := []float64{5, 1, 4, 2, 3}
	assert.InDelta(t, 3.0, Quantile(data, 0.5), 1e-9)
}

func TestBestTrackerKeepsHighest(t *testing.T) {
	var b BestTracker
	s1 := seed.Normalize(1)
	s2 := seed.Normalize(2)
	assert.True(t, b.Offer(scorer.ScoreResult{Seed: s1, TotalScore: 1.0}))
	assert.False(t, b.Offer(scorer.ScoreResult{Seed: s2, TotalScore: 0.5}))
	best, ok := b.Best()
	assert.True(t, ok)
	assert.Equal(t, s1, best.Seed)
	assert.True(t, b.Offer(scorer.ScoreResult{Seed: s2, TotalScore: 2.0}))
	best, _ = b.Best()
	assert.Equal(t, s2, best.Seed)
}

func TestApproxBestKeepsHighest(t *testing.T) {
	var a ApproxBest
	a.Offer(seed.Normalize(1), 0.1)
	a.Offer(seed.Normalize(2), 0.9)
	s, score, ok := a.Best()
	assert.True(t, ok)
	assert.Equal(t, seed.Normalize(2), s)
	assert.InDelta(t, 0.9, float64(score), 1e-6)
}

func TestEventLogEvictsOldest(t *testing.T) {
	l := NewEventLog(2)
	l.Append(EventInfo, "one")
	l.Append(EventInfo, "two")
	l.Append(EventBest, "three")
	recent := l.Recent()
	assert.Len(t, recent, 2)
	assert.Equal(t, "two", recent[0].Message)
	assert.Equal(t, "three", recent[1].Message)
}
