package backend

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wavesim"
)

func TestOpenCPU(t *testing.T) {
	opts := wavesim.ProviderOptions{Addressing: wavesim.Clamp, Format: wavesim.Float16}
	for _, name := range []string{"", "cpu", "CPU"} {
		p, err := Open(name, opts)
		require.NoError(t, err)
		assert.Equal(t, "cpu", p.Name())
		assert.NoError(t, p.Close())
	}
}

func TestOpenUnknown(t *testing.T) {
	_, err := Open("vulkan", wavesim.ProviderOptions{})
	assert.ErrorIs(t, err, wavesim.ErrInvalidConfig)
	assert.ErrorContains(t, err, "opencl")
}
