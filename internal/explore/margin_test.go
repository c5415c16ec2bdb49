package explore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseMarginConfig() MarginConfig {
	return MarginConfig{
		Capacity: 200,
		NMin:     10,
		Quantile: 0.995,
		Decay:    0.1,
		Safety:   0.01,
		Min:      0.0,
		Max:      5.0,
	}
}

func TestAdaptiveMarginMonotoneUp(t *testing.T) {
	m := NewAdaptiveMargin(baseMarginConfig())
	for i := 0; i < 200; i++ {
		m.Observe(0.5, 0.0) // cpu - gpu = 0.5 every time
	}
	got := m.Current()
	assert.InDelta(t, 0.5+0.01, got, 1e-9)
	assert.LessOrEqual(t, got, 5.0)
}

func TestAdaptiveMarginDecaysSlowly(t *testing.T) {
	m := NewAdaptiveMargin(baseMarginConfig())
	for i := 0; i < 200; i++ {
		m.Observe(0.5, 0.0)
	}
	before := m.Current()

	// The 0.995 empirical quantile of the 200-sample window stays at 0.5
	// until 199 zeros have displaced the 0.5 samples, so feed
	// zero-undershoot samples until the target first drops.
	after := before
	for i := 0; i < 200 && after == before; i++ {
		m.Observe(0.0, 0.0)
		after = m.Current()
	}

	require.Less(t, after, before)
	// decay caps the single-step decrease at decay * (current - target)
	maxDrop := 0.1 * before
	assert.GreaterOrEqual(t, after, before-maxDrop-1e-9)
}

func TestAdaptiveMarginClampsToMax(t *testing.T) {
	cfg := baseMarginConfig()
	cfg.Max = 1.0
	m := NewAdaptiveMargin(cfg)
	for i := 0; i < 200; i++ {
		m.Observe(10.0, 0.0)
	}
	assert.Equal(t, 1.0, m.Current())
}

func TestAdaptiveMarginBelowNMinStaysAtFloor(t *testing.T) {
	m := NewAdaptiveMargin(baseMarginConfig())
	for i := 0; i < 5; i++ {
		m.Observe(3.0, 0.0)
	}
	assert.Equal(t, 0.0, m.Current())
}
