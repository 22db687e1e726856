package wavesim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddressModeResolve(t *testing.T) {
	tests := []struct {
		mode AddressMode
		i, n int
		want int
	}{
		{Wrap, 3, 8, 3},
		{Wrap, -1, 8, 7},
		{Wrap, 8, 8, 0},
		{Wrap, -9, 8, 7},
		{Wrap, 17, 8, 1},
		{Clamp, -1, 8, 0},
		{Clamp, 8, 8, 7},
		{Clamp, 100, 8, 7},
		{Clamp, 5, 8, 5},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.mode.Resolve(tt.i, tt.n), "%s(%d, %d)", tt.mode, tt.i, tt.n)
	}
}

func TestParseAddressMode(t *testing.T) {
	for in, want := range map[string]AddressMode{"": Wrap, "wrap": Wrap, "repeat": Wrap, "clamp": Clamp} {
		got, err := ParseAddressMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseAddressMode("mirror")
	assert.ErrorIs(t, err, ErrInvalidConfig)
	assert.Equal(t, "AddressMode(7)", AddressMode(7).String())
}

func TestGridSpacingAndStableDt(t *testing.T) {
	g := Grid{XResolution: 200, YResolution: 100, XLength: 2, YLength: 0.5}
	assert.InDelta(t, 0.01, g.Dx(), 1e-15)
	assert.InDelta(t, 0.005, g.Dy(), 1e-15)
	assert.Equal(t, 20000, g.Cells())
	assert.Equal(t, 201, g.Index(1, 1))
	assert.True(t, g.Contains(199, 99))
	assert.False(t, g.Contains(200, 0))
	assert.False(t, g.Contains(0, -1))

	assert.InDelta(t, 0.005/math.Sqrt2, g.StableDt(1), 1e-15)
	assert.InDelta(t, 0.005/(2*math.Sqrt2), g.StableDt(2), 1e-15)
	assert.True(t, math.IsInf(g.StableDt(0), 1))
	assert.Equal(t, "200x100 over 2x0.5", g.String())
}

func TestGridValidate(t *testing.T) {
	valid := Grid{XResolution: 4, YResolution: 4, XLength: 1, YLength: 1}
	require.NoError(t, valid.validate())

	for name, g := range map[string]Grid{
		"zero x":      {XResolution: 0, YResolution: 4, XLength: 1, YLength: 1},
		"negative y":  {XResolution: 4, YResolution: -4, XLength: 1, YLength: 1},
		"zero length": {XResolution: 4, YResolution: 4, XLength: 0, YLength: 1},
		"inf length":  {XResolution: 4, YResolution: 4, XLength: 1, YLength: math.Inf(1)},
		"nan length":  {XResolution: 4, YResolution: 4, XLength: math.NaN(), YLength: 1},
	} {
		assert.ErrorIs(t, g.validate(), ErrInvalidConfig, name)
	}
}
