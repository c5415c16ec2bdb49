package tuninghint

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hint.json")
	now := time.Unix(100, 0).UTC()
	require.NoError(t, Save(path, "gpu0", Hint{Batch: 4096, Inflight: 4}, now))

	f := Load(path)
	h, ok := f.Get("gpu0")
	require.True(t, ok)
	assert.Equal(t, 4096, h.Batch)
	assert.Equal(t, 4, h.Inflight)
	assert.True(t, h.UpdatedAt.Equal(now))
}

func TestSavePreservesOtherDevices(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hint.json")
	require.NoError(t, Save(path, "gpu0", Hint{Batch: 1000}, time.Unix(1, 0)))
	require.NoError(t, Save(path, "gpu1", Hint{Batch: 2000}, time.Unix(2, 0)))

	f := Load(path)
	h0, ok0 := f.Get("gpu0")
	h1, ok1 := f.Get("gpu1")
	require.True(t, ok0)
	require.True(t, ok1)
	assert.Equal(t, 1000, h0.Batch)
	assert.Equal(t, 2000, h1.Batch)
}

func TestLoadMissingFileReturnsEmpty(t *testing.T) {
	f := Load(filepath.Join(t.TempDir(), "missing.json"))
	_, ok := f.Get("gpu0")
	assert.False(t, ok)
}

func TestLoadCorruptFileReturnsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hint.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	f := Load(path)
	_, ok := f.Get("gpu0")
	assert.False(t, ok)
}
