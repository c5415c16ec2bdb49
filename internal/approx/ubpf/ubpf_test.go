package ubpf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davelindo/galleryofbabel/internal/scorer"
	"github.com/davelindo/galleryofbabel/internal/seed"
)

func TestUnavailableWithoutDeviceEnvVar(t *testing.T) {
	t.Setenv(deviceEnvVar, "")
	b := New(4, 2, 8)
	assert.False(t, b.IsAvailable())
	assert.Error(t, b.Initialize())
}

func TestApproximationTracksExactWithinSpread(t *testing.T) {
	t.Setenv(deviceEnvVar, "1")
	b := New(4, 2, 8)
	require.True(t, b.IsAvailable())
	require.NoError(t, b.Initialize())

	seeds := []seed.Seed{seed.Normalize(1), seed.Normalize(2), seed.Normalize(3)}
	job, err := b.Enqueue(seeds)
	require.NoError(t, err)

	scores, err := b.Await(job)
	require.NoError(t, err)
	require.Len(t, scores, 3)
	for i, s := range seeds {
		exact := float32(scorer.Exact(s, 8).TotalScore)
		assert.InDelta(t, exact-bias, scores[i], spread, "approximation must stay within the calibrated spread of exact - bias")
	}
}

func TestCapabilitiesReportsHardware(t *testing.T) {
	b := New(16, 3, 8)
	caps := b.Capabilities()
	assert.Equal(t, "ubpf", caps.Name)
	assert.True(t, caps.IsHardware)
}
