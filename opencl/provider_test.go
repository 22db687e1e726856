//go:build opencl

package opencl

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
		t.Skipf("no OpenCL device: %v", err)
	}
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func pulse(g wavesim.Grid) *wavesim.Field {
	f := wavesim.NewField(g)
	f.Fill(0, 1)
	f.SetAmplitude(g.XResolution/2, g.YResolution/2, 1)
	f.SetAmplitude(0, 1, -0.5)
	return f
}

func run(t *testing.T, p wavesim.Provider, g wavesim.Grid, steps int) *wavesim.Field {
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
	f := pulse(g)
	require.NoError(t, e.Seed(p, f, f))
	require.NoError(t, e.Advance(steps))
	require.NoError(t, p.ComputeContext().Finish())

	out := wavesim.NewField(g)
	require.NoError(t, e.ReadRendered(p, out))
	return out
}

func TestMatchesHostProvider(t *testing.T) {
	g := wavesim.Grid{XResolution: 24, YResolution: 16, XLength: 1.5, YLength: 1}
	for _, mode := range []wavesim.AddressMode{wavesim.Wrap, wavesim.Clamp} {
		t.Run(mode.String(), func(t *testing.T) {
			opts := wavesim.ProviderOptions{Addressing: mode}
			want := run(t, cpu.New(cpu.WithOptions(opts)), g, 20)
			got := run(t, newTestProvider(t, opts), g, 20)
			for i := range want.Texels {
				assert.InDelta(t, want.Texels[i].Amplitude, got.Texels[i].Amplitude, 1e-5, "texel %d", i)
				assert.Equal(t, want.Texels[i].Speed, got.Texels[i].Speed, "texel %d", i)
			}
		})
	}
}

func TestHalfTextureRoundTrip(t *testing.T) {
	p := newTestProvider(t, wavesim.ProviderOptions{Format: wavesim.Float16})
	tex, err := p.NewTexture(2, 1)
	require.NoError(t, err)
	in := []wavesim.FieldTexel{{Amplitude: 0.1, Speed: 1}, {Amplitude: -2, Aux: [2]float32{0.5, 3}}}
	require.NoError(t, p.WriteTexture(tex, in))
	out := make([]wavesim.FieldTexel, 2)
	require.NoError(t, p.ReadTexture(tex, out))
	assert.Equal(t, wavesim.QuantizeTexel(in[0]), out[0])
	assert.Equal(t, in[1], out[1])
}

func TestRejectsForeignTextures(t *testing.T) {
	p := newTestProvider(t, wavesim.ProviderOptions{})
	foreign, err := cpu.New().NewTexture(2, 2)
	require.NoError(t, err)
	_, err = p.AttachFramebuffer(foreign)
	assert.ErrorIs(t, err, wavesim.ErrForeignResource)
}
