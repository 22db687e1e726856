//go:build wgpu

package webgpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wavesim"
	"wavesim/cpu"
)

func newTestProvider(t *testing.T, opts wavesim.ProviderOptions) *Provider {
	t.Helper()
	p, err := New(WithOptions(opts))
	if err != nil {
		t.Skipf("no WebGPU adapter: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func advance(t *testing.T, p wavesim.Provider, g wavesim.Grid, seed *wavesim.Field, steps int) *wavesim.Field {
	t.Helper()
	e, err := wavesim.New(p, g.XResolution, g.YResolution, g.XLength, g.YLength, 0.5*g.StableDt(1))
	require.NoError(t, err)
	defer e.Done()

	var tex [3]wavesim.Texture
	for i := range tex {
		tex[i], err = p.NewTexture(g.XResolution, g.YResolution)
		require.NoError(t, err)
	}
	require.NoError(t, e.SetInitialTextures(tex[0], tex[1], tex[2]))
	require.NoError(t, e.Seed(p, seed, seed))
	require.NoError(t, e.Advance(steps))
	require.NoError(t, p.ComputeContext().Finish())

	out := wavesim.NewField(g)
	require.NoError(t, e.ReadRendered(p, out))
	return out
}

func TestMatchesHostProvider(t *testing.T) {
	g := wavesim.Grid{XResolution: 20, YResolution: 12, XLength: 1, YLength: 0.6}
	seed := wavesim.NewField(g)
	seed.Fill(0, 1)
	seed.SetAmplitude(0, 0, 1)
	seed.SetAmplitude(11, 6, -1)

	for _, mode := range []wavesim.AddressMode{wavesim.Wrap, wavesim.Clamp} {
		t.Run(mode.String(), func(t *testing.T) {
			opts := wavesim.ProviderOptions{Addressing: mode}
			want := advance(t, cpu.New(cpu.WithOptions(opts)), g, seed, 15)
			got := advance(t, newTestProvider(t, opts), g, seed, 15)
			for i := range want.Texels {
				assert.InDelta(t, want.Texels[i].Amplitude, got.Texels[i].Amplitude, 1e-5, "texel %d", i)
			}
		})
	}
}

func TestRejectsHalfFormat(t *testing.T) {
	_, err := New(WithOptions(wavesim.ProviderOptions{Format: wavesim.Float16}))
	assert.ErrorIs(t, err, wavesim.ErrInvalidConfig)
}
