package buildinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashFallsBackToUnknown(t *testing.T) {
	t.Setenv("GIT_COMMIT", "")
	t.Setenv("GITHUB_SHA", "")
	assert.Equal(t, "unknown", Hash())
}

func TestHashTruncatesTo12Chars(t *testing.T) {
	t.Setenv("GIT_COMMIT", "0123456789abcdefextra")
	assert.Equal(t, "0123456789ab", Hash())
	assert.Len(t, Hash(), 12)
}

func TestHashPrefersGitCommit(t *testing.T) {
	t.Setenv("GIT_COMMIT", "aaaaaaaaaaaa")
	t.Setenv("GITHUB_SHA", "bbbbbbbbbbbb")
	assert.Equal(t, "aaaaaaaaaaaa", Hash())
}
