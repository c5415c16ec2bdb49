package prng

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// firstValueSeed1 and firstValueBits were computed against a reference
// implementation of this exact bit-mixing sequence; seed 1 has salt 0
// so the first output depends only on the increment and the mix.
const (
	firstValueSeed1 float32  = 0.62707394
	firstValueBits  uint32   = 0x3f2087eb
)

func TestNewSeedsStateAndSalt(t *testing.T) {
	g := New(1)
	assert.Equal(t, uint32(1), g.state)
	assert.Equal(t, uint32(0), g.salt)
}

func TestNextFirstValueMatchesReference(t *testing.T) {
	g := New(1)
	got := g.Next()
	require.Equal(t, firstValueBits, math.Float32bits(got), "bit pattern mismatch")
	assert.Equal(t, firstValueSeed1, got)
}

func TestNextIsDeterministic(t *testing.T) {
	seeds := []uint64{0, 1, 42, 0xDEADBEEFCAFEBABE, ^uint64(0)}
	for _, s := range seeds {
		a := New(s)
		b := New(s)
		for i := 0; i < 64; i++ {
			got := math.Float32bits(a.Next())
			want := math.Float32bits(b.Next())
			require.Equal(t, want, got, "seed %d step %d diverged", s, i)
		}
	}
}

func TestNextStaysInUnitRange(t *testing.T) {
	g := New(0xDEADBEEFCAFEBABE)
	for i := 0; i < 10000; i++ {
		v := g.Next()
		assert.GreaterOrEqual(t, v, float32(0))
		assert.Less(t, v, float32(1))
	}
}

func TestSaltDivergesSharedLowHalf(t *testing.T) {
	a := New(0x0000000000000001)
	b := New(0x0000000100000001)
	assert.NotEqual(t, math.Float32bits(a.Next()), math.Float32bits(b.Next()))
}
