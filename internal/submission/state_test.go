package submission

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/davelindo/galleryofbabel/internal/seed"
)

func TestStateIneligibleUntilThresholdKnown(t *testing.T) {
	s := NewState(-2.0, 10)
	assert.False(t, s.MarkAttemptIfEligible(seed.Seed(42), 0.5))
}

// E1: user_min_score=-2.0, threshold=0.0. maybe_enqueue(seed=42,
// score=0.5) is eligible.
func TestStateE1Eligible(t *testing.T) {
	s := NewState(-2.0, 10)
	s.ApplyRefresh([]float64{0.0}, nil, 1)
	assert.True(t, s.MarkAttemptIfEligible(seed.Seed(42), 0.5))
	// second attempt at the same seed is now blocked (attempted).
	assert.False(t, s.MarkAttemptIfEligible(seed.Seed(42), 0.5))
}

// E2: same setup, score -1.0 is <= threshold(0.0) -> ineligible.
func TestStateE2Ineligible(t *testing.T) {
	s := NewState(-2.0, 10)
	s.ApplyRefresh([]float64{0.0}, nil, 1)
	assert.False(t, s.MarkAttemptIfEligible(seed.Seed(7), -1.0))
}

func TestStateKnownSeedBlocksEligibility(t *testing.T) {
	s := NewState(-2.0, 10)
	s.ApplyRefresh([]float64{0.0}, nil, 1)
	s.MarkKnown(seed.Seed(99))
	assert.False(t, s.MarkAttemptIfEligible(seed.Seed(99), 10.0))
}

func TestStateRollbackAllowsRetry(t *testing.T) {
	s := NewState(-2.0, 10)
	s.ApplyRefresh([]float64{0.0}, nil, 1)
	assert.True(t, s.MarkAttemptIfEligible(seed.Seed(1), 5.0))
	s.Rollback(seed.Seed(1))
	assert.True(t, s.MarkAttemptIfEligible(seed.Seed(1), 5.0))
}

func TestStateAttemptedSetIsBoundedFIFO(t *testing.T) {
	s := NewState(-2.0, 3)
	s.ApplyRefresh([]float64{0.0}, nil, 1)
	for i := seed.Seed(0); i < 5; i++ {
		s.MarkAttemptIfEligible(i, 5.0)
	}
	// the oldest (0, 1) should have been evicted from attempted, so
	// they're eligible again.
	assert.True(t, s.MarkAttemptIfEligible(seed.Seed(0), 5.0))
}

func TestStateThresholdUsesMaxOfUserMinAndTop500(t *testing.T) {
	s := NewState(3.0, 10)
	s.ApplyRefresh([]float64{1.0}, nil, 1)
	assert.Equal(t, 3.0, s.Threshold())
}

func TestStateThresholdNaNBeforeRefresh(t *testing.T) {
	s := NewState(-2.0, 10)
	assert.True(t, math.IsNaN(s.Threshold()))
}
