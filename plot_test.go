package wavesim_test

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wavesim"
	"wavesim/cpu"
)

func TestPlotterColormap(t *testing.T) {
	p := cpu.New()
	g := wavesim.Grid{XResolution: 3, YResolution: 1, XLength: 1, YLength: 1}
	f := wavesim.NewField(g)
	f.SetAmplitude(0, 0, 0.5)
	f.SetAmplitude(1, 0, -0.25)

	src, err := p.NewTexture(3, 1)
	require.NoError(t, err)
	dst, err := p.NewTexture(3, 1)
	require.NoError(t, err)
	require.NoError(t, p.WriteTexture(src, f.Texels))
	fb, err := p.AttachFramebuffer(dst)
	require.NoError(t, err)

	plot, err := wavesim.NewPlotter(p)
	require.NoError(t, err)
	require.NoError(t, plot.Render(src, fb))

	out := wavesim.NewField(g)
	require.NoError(t, p.ReadTexture(dst, out.Texels))
	assert.Equal(t, wavesim.FieldTexel{Aux: [2]float32{0.5, 0.5}}, out.Texels[0], "positive is blue")
	assert.Equal(t, wavesim.FieldTexel{Amplitude: 0.25, Aux: [2]float32{0, 0.25}}, out.Texels[1], "negative is red")
	assert.Equal(t, wavesim.FieldTexel{}, out.Texels[2])

	assert.Equal(t, color.RGBA{B: 128, A: 128}, wavesim.TexelColor(out.Texels[0]))

	require.NoError(t, plot.Done())
	require.NoError(t, plot.Done())
	assert.ErrorIs(t, plot.Render(src, fb), wavesim.ErrReleased)
}

func TestPlotterRejectsFeedback(t *testing.T) {
	p := cpu.New()
	tex, err := p.NewTexture(2, 2)
	require.NoError(t, err)
	fb, err := p.AttachFramebuffer(tex)
	require.NoError(t, err)
	plot, err := wavesim.NewPlotter(p)
	require.NoError(t, err)
	defer plot.Done()

	assert.ErrorIs(t, plot.Render(tex, fb), wavesim.ErrInvalidTexture)
}

func TestColorize(t *testing.T) {
	g := wavesim.Grid{XResolution: 2, YResolution: 2, XLength: 1, YLength: 1}
	f := wavesim.NewField(g)
	f.SetAmplitude(0, 0, 2)
	f.SetAmplitude(1, 1, -1)

	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	wavesim.Colorize(f, img)
	assert.Equal(t, color.RGBA{B: 255, A: 255}, img.RGBAAt(0, 0))
	assert.Equal(t, color.RGBA{R: 255, A: 255}, img.RGBAAt(1, 1))
	assert.Equal(t, color.RGBA{A: 255}, img.RGBAAt(1, 0))
}
