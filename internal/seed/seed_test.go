package seed

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeFoldsIntoRange(t *testing.T) {
	assert.True(t, Normalize(0).InRange())
	assert.True(t, Normalize(MaxExcl).InRange())
	assert.True(t, Normalize(^uint64(0)).InRange())
}

func TestNormalizeIsDeterministic(t *testing.T) {
	assert.Equal(t, Normalize(12345), Normalize(12345))
}

func TestInRangeBoundaries(t *testing.T) {
	assert.True(t, Seed(Min).InRange())
	assert.True(t, Seed(MaxExcl-1).InRange())
	assert.False(t, Seed(MaxExcl).InRange())
}

func TestStringFormatsAsDecimal(t *testing.T) {
	assert.Equal(t, "42", Seed(42).String())
}
