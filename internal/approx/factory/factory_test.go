package factory

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectFallsBackToSoftwareWhenNoneAvailable(t *testing.T) {
	os.Unsetenv("GALLERYOFBABEL_CUDA_DEVICE")
	os.Unsetenv("GALLERYOFBABEL_UBPF_DEVICE")

	b, err := Select(DefaultConfig(16, 2, 8))
	require.NoError(t, err)
	assert.Equal(t, "software", b.Name())
}

func TestSelectMandatoryFailsWhenNoneAvailable(t *testing.T) {
	os.Unsetenv("GALLERYOFBABEL_CUDA_DEVICE")
	os.Unsetenv("GALLERYOFBABEL_UBPF_DEVICE")

	cfg := DefaultConfig(16, 2, 8)
	cfg.PreferredOrder = []string{"cuda", "ubpf"}
	cfg.Mandatory = true

	_, err := Select(cfg)
	require.Error(t, err)
}

func TestSelectHonorsEnvGatedCuda(t *testing.T) {
	t.Setenv("GALLERYOFBABEL_CUDA_DEVICE", "0")
	os.Unsetenv("GALLERYOFBABEL_UBPF_DEVICE")

	b, err := Select(DefaultConfig(16, 2, 8))
	require.NoError(t, err)
	assert.Equal(t, "cuda", b.Name())
}
