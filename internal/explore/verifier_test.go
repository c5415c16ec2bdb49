package explore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davelindo/galleryofbabel/internal/seed"
)

func TestVerifierCandidateDisplacesOldestSample(t *testing.T) {
	v := NewVerifier(2)

	require.True(t, v.Push(VerifyTask{Seed: seed.Normalize(1), Priority: PrioritySample})) // A
	require.True(t, v.Push(VerifyTask{Seed: seed.Normalize(2), Priority: PrioritySample})) // B
	require.True(t, v.Push(VerifyTask{Seed: seed.Normalize(3), Priority: PriorityCandidate})) // C, evicts A
	assert.False(t, v.Push(VerifyTask{Seed: seed.Normalize(4), Priority: PrioritySample}))    // full, rejected

	d, ok := v.Pop()
	require.True(t, ok)
	assert.Equal(t, PriorityCandidate, d.Priority)
	assert.Equal(t, seed.Normalize(3), d.Seed)

	b, ok := v.Pop()
	require.True(t, ok)
	assert.Equal(t, seed.Normalize(2), b.Seed)

	assert.Equal(t, 0, v.Len())
}

func TestE4SampleEvictionUnderCandidatePressure(t *testing.T) {
	v := NewVerifier(2)
	a, b, c, d := seed.Normalize(1), seed.Normalize(2), seed.Normalize(3), seed.Normalize(4)

	require.True(t, v.Push(VerifyTask{Seed: a, Priority: PrioritySample}))
	require.True(t, v.Push(VerifyTask{Seed: b, Priority: PrioritySample}))
	require.True(t, v.Push(VerifyTask{Seed: c, Priority: PriorityCandidate})) // evicts A
	require.True(t, v.Push(VerifyTask{Seed: d, Priority: PriorityCandidate})) // evicts B

	first, ok := v.Pop()
	require.True(t, ok)
	assert.Equal(t, c, first.Seed)

	second, ok := v.Pop()
	require.True(t, ok)
	assert.Equal(t, d, second.Seed)

	assert.Equal(t, 0, v.Len())
	assert.Empty(t, v.seen)
}

func TestVerifierRejectsDuplicateWhilePending(t *testing.T) {
	v := NewVerifier(10)
	require.True(t, v.Push(VerifyTask{Seed: seed.Normalize(1), Priority: PrioritySample}))
	assert.False(t, v.Push(VerifyTask{Seed: seed.Normalize(1), Priority: PriorityCandidate}))
}

func TestVerifierAllowsReenqueueAfterProcessed(t *testing.T) {
	v := NewVerifier(10)
	require.True(t, v.Push(VerifyTask{Seed: seed.Normalize(1), Priority: PrioritySample}))
	_, ok := v.Pop()
	require.True(t, ok)
	assert.True(t, v.Push(VerifyTask{Seed: seed.Normalize(1), Priority: PrioritySample}))
}

func TestVerifierPreservesApproxScoreAcrossPop(t *testing.T) {
	v := NewVerifier(10)
	require.True(t, v.Push(VerifyTask{Seed: seed.Normalize(1), Priority: PriorityCandidate, ApproxScore: 0.87}))

	d, ok := v.Pop()
	require.True(t, ok)
	assert.Equal(t, float32(0.87), d.ApproxScore)
}

func TestVerifierCandidatesPrecedeSamples(t *testing.T) {
	v := NewVerifier(10)
	require.True(t, v.Push(VerifyTask{Seed: seed.Normalize(1), Priority: PrioritySample}))
	require.True(t, v.Push(VerifyTask{Seed: seed.Normalize(2), Priority: PriorityCandidate}))

	first, ok := v.Pop()
	require.True(t, ok)
	assert.Equal(t, PriorityCandidate, first.Priority)
}

func TestVerifierCloseDrainsThenReturnsFalse(t *testing.T) {
	v := NewVerifier(10)
	require.True(t, v.Push(VerifyTask{Seed: seed.Normalize(1), Priority: PrioritySample}))
	v.Close()

	_, ok := v.Pop()
	assert.True(t, ok, "queued task must still drain after close")

	_, ok = v.Pop()
	assert.False(t, ok, "empty and closed must unblock with false")

	assert.False(t, v.Push(VerifyTask{Seed: seed.Normalize(2), Priority: PrioritySample}))
}
