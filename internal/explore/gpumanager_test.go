package explore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davelindo/galleryofbabel/internal/allocator"
	"github.com/davelindo/galleryofbabel/internal/approx/software"
	"github.com/davelindo/galleryofbabel/internal/stats"
)

func newTestGPUManager(t *testing.T, gate float64, submissionEnabled, samplingEnabled bool) (*GPUManager, *allocator.Allocator) {
	t.Helper()
	backend := software.New(8, 2, 8)
	require.NoError(t, backend.Initialize())
	alloc := allocator.NewFromState(allocator.State{StartOffset: 0, Step: 1}, 1000, 1000)
	verifier := NewVerifier(64)
	var running stats.Running
	var approxBest stats.ApproxBest
	var counters stats.Counters
	budget := NewSampleBudget(1000)

	cfg := GPUManagerConfig{
		ImageSize:         8,
		Gate:              func() float64 { return gate },
		SubmissionEnabled: submissionEnabled,
		SamplingEnabled:   samplingEnabled,
		SampleSlack:       0.1,
	}
	m := NewGPUManager(backend, alloc, verifier, &running, &approxBest, &counters, budget, cfg)
	return m, alloc
}

func TestGPUManagerRunBatchProcessesClaim(t *testing.T) {
	m, _ := newTestGPUManager(t, -1000, true, false)
	n := m.RunBatch(8)
	assert.Equal(t, 8, n)
	_, _, ok := m.approxBest.Best()
	assert.True(t, ok)
	assert.Equal(t, uint64(8), m.running.Snapshot().Count)
}

func TestGPUManagerPromotesHighScoresToCandidates(t *testing.T) {
	// gate very low: every scored seed clears the admission bar.
	m, _ := newTestGPUManager(t, -1000, true, false)
	m.RunBatch(8)
	assert.LessOrEqual(t, m.verifier.Len(), candidatesPerBatch)
	assert.Greater(t, m.verifier.Len(), 0)
	assert.Equal(t, uint64(m.verifier.Len()), m.counters.Snapshot().Candidates)
}

func TestGPUManagerRejectsAllBelowImpossibleGate(t *testing.T) {
	m, _ := newTestGPUManager(t, 1e9, true, false)
	m.RunBatch(8)
	assert.Equal(t, 0, m.verifier.Len())
}

func TestGPUManagerExhaustsAllocator(t *testing.T) {
	m, _ := newTestGPUManager(t, -1000, true, false)
	total := 0
	for {
		n := m.RunBatch(8)
		if n == 0 {
			break
		}
		total += n
	}
	assert.Equal(t, 1000, total)
}
