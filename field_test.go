package wavesim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldAccessors(t *testing.T) {
	f := NewField(Grid{XResolution: 3, YResolution: 2, XLength: 1, YLength: 1})
	require.Len(t, f.Texels, 6)

	f.Fill(0.5, 4)
	f.Set(2, 1, -1, 9)
	f.SetAmplitude(0, 1, 3)
	assert.Equal(t, FieldTexel{Amplitude: -1, Speed: 9}, f.At(2, 1))
	assert.Equal(t, float32(3), f.Amplitude(0, 1))
	assert.Equal(t, float32(4), f.At(0, 1).Speed)
	assert.Equal(t, 3.0, f.MaxWaveSpeed())
	assert.Equal(t, []float32{0.5, 0.5, 0.5, 3, 0.5, -1}, f.Amplitudes(nil))

	c := f.Clone()
	c.SetAmplitude(0, 0, 7)
	assert.Equal(t, float32(0.5), f.Amplitude(0, 0), "clone does not alias")
	assert.ErrorIs(t, f.checkSize(2, 3), ErrInvalidTexture)
	assert.NoError(t, f.checkSize(3, 2))
}

func TestFieldStats(t *testing.T) {
	f := &Field{Width: 4, Height: 1, Texels: []FieldTexel{
		{Amplitude: 1}, {Amplitude: -3}, {Amplitude: float32(math.NaN())}, {Amplitude: 2},
	}}
	s := f.Stats()
	assert.Equal(t, -3.0, s.Min)
	assert.Equal(t, 2.0, s.Max)
	assert.Equal(t, 0.0, s.Mean)
	assert.Equal(t, 14.0, s.Energy)
	assert.Equal(t, 1, s.NaNs)

	empty := &Field{Width: 1, Height: 1, Texels: []FieldTexel{{Amplitude: float32(math.Inf(1))}}}
	assert.Equal(t, Stats{NaNs: 1}, empty.Stats())
}

func TestPackTexels(t *testing.T) {
	src := []FieldTexel{{Amplitude: 1, Speed: 2, Aux: [2]float32{3, 4}}, {Amplitude: -1}}
	flat := make([]float32, TexelChannels*len(src))
	PackTexels(flat, src)
	assert.Equal(t, []float32{1, 2, 3, 4, -1, 0, 0, 0}, flat)

	back := make([]FieldTexel, len(src))
	UnpackTexels(back, flat)
	assert.Equal(t, src, back)
}
