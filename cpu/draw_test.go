package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wavesim"
)

func TestAssignRowBands(t *testing.T) {
	tests := []struct {
		height, workers int
		want            []rowBand
	}{
		{height: 4, workers: 8, want: []rowBand{{0, 4}}},
		{height: 16, workers: 2, want: []rowBand{{0, 8}, {8, 16}}},
		{height: 17, workers: 2, want: []rowBand{{0, 9}, {9, 17}}},
		{height: 100, workers: 3, want: []rowBand{{0, 34}, {34, 67}, {67, 100}}},
		{height: 24, workers: 0, want: []rowBand{{0, 24}}},
		{height: 0, workers: 4, want: []rowBand{}},
	}
	for _, tt := range tests {
		got := assignRowBands(tt.height, tt.workers)
		assert.Equal(t, tt.want, got, "height=%d workers=%d", tt.height, tt.workers)
	}
}

func TestAssignRowBandsCoversEveryRow(t *testing.T) {
	for height := 1; height < 70; height++ {
		for workers := 1; workers <= 9; workers++ {
			next := 0
			for _, b := range assignRowBands(height, workers) {
				require.Equal(t, next, b.start)
				require.Greater(t, b.end, b.start)
				next = b.end
			}
			require.Equal(t, height, next, "height=%d workers=%d", height, workers)
		}
	}
}

// copyProgram copies the "src" sampler into the target.
func copyProgram() wavesim.ProgramSource {
	return wavesim.ProgramSource{
		Name:   "copy",
		Params: []wavesim.Param{{Name: "src", Kind: wavesim.ParamSampler}},
		Host: wavesim.HostKernelFunc(func(inv *wavesim.HostInvocation, y0, y1 int) {
			src := inv.Sampler("src")
			for y := y0; y < y1; y++ {
				row := inv.Row(y)
				for x := range row {
					row[x] = src.At(x, y)
				}
			}
		}),
	}
}

func newCopyPass(t *testing.T, p *Provider, target wavesim.Framebuffer, src wavesim.Texture) *wavesim.Pass {
	t.Helper()
	prog, err := p.CreateProgram(copyProgram())
	require.NoError(t, err)
	return &wavesim.Pass{
		Program:  prog,
		Target:   target,
		Quad:     p.StandardVertices(),
		Samplers: []wavesim.SamplerBinding{{Location: prog.UniformLocation("src"), Texture: src}},
	}
}

func TestDrawCopiesThroughHostKernel(t *testing.T) {
	p := New(WithWorkers(3))
	src, err := p.NewTexture(5, 40)
	require.NoError(t, err)
	dst, err := p.NewTexture(5, 40)
	require.NoError(t, err)

	in := make([]wavesim.FieldTexel, 5*40)
	for i := range in {
		in[i] = wavesim.FieldTexel{Amplitude: float32(i), Speed: 1, Aux: [2]float32{2, 3}}
	}
	require.NoError(t, p.WriteTexture(src, in))
	fb, err := p.AttachFramebuffer(dst)
	require.NoError(t, err)
	assert.Same(t, dst, fb.Texture())

	require.NoError(t, p.ComputeContext().Draw(newCopyPass(t, p, fb, src)))
	require.NoError(t, p.ComputeContext().Finish())
	out := make([]wavesim.FieldTexel, len(in))
	require.NoError(t, p.ReadTexture(dst, out))
	assert.Equal(t, in, out)
}

func TestDrawValidatesPass(t *testing.T) {
	p := New()
	tex, err := p.NewTexture(4, 4)
	require.NoError(t, err)
	other, err := p.NewTexture(4, 4)
	require.NoError(t, err)
	fb, err := p.AttachFramebuffer(tex)
	require.NoError(t, err)
	ctx := p.ComputeContext()

	assert.ErrorIs(t, ctx.Draw(newCopyPass(t, p, fb, tex)), wavesim.ErrInvalidTexture, "feedback")
	assert.ErrorIs(t, ctx.Draw(newCopyPass(t, p, nil, other)), wavesim.ErrInvalidTexture, "no target")

	pass := newCopyPass(t, p, fb, other)
	pass.Quad = wavesim.Quad{Count: 3, Topology: wavesim.TriangleStrip}
	assert.Error(t, ctx.Draw(pass))

	pass = newCopyPass(t, p, fb, other)
	require.NoError(t, p.DeleteProgram(pass.Program))
	assert.ErrorIs(t, ctx.Draw(pass), wavesim.ErrReleased)
	assert.ErrorIs(t, p.DeleteProgram(pass.Program), wavesim.ErrReleased)
}

func TestResourcesBelongToOneProvider(t *testing.T) {
	a, b := New(), New()
	tex, err := a.NewTexture(2, 2)
	require.NoError(t, err)

	_, err = b.AttachFramebuffer(tex)
	assert.ErrorIs(t, err, wavesim.ErrForeignResource)
	assert.ErrorIs(t, b.WriteTexture(tex, make([]wavesim.FieldTexel, 4)), wavesim.ErrForeignResource)

	prog, err := a.CreateProgram(copyProgram())
	require.NoError(t, err)
	assert.ErrorIs(t, b.DeleteProgram(prog), wavesim.ErrForeignResource)
}

func TestTextureLifecycle(t *testing.T) {
	p := New()
	_, err := p.NewTexture(0, 3)
	assert.ErrorIs(t, err, wavesim.ErrInvalidTexture)

	tex, err := p.NewTexture(2, 3)
	require.NoError(t, err)
	w, h := tex.Size()
	assert.Equal(t, [2]int{2, 3}, [2]int{w, h})
	assert.ErrorIs(t, p.WriteTexture(tex, make([]wavesim.FieldTexel, 5)), wavesim.ErrInvalidTexture)
	assert.ErrorIs(t, p.ReadTexture(tex, make([]wavesim.FieldTexel, 7)), wavesim.ErrInvalidTexture)

	require.NoError(t, p.DeleteTexture(tex))
	assert.ErrorIs(t, p.ReadTexture(tex, make([]wavesim.FieldTexel, 6)), wavesim.ErrInvalidTexture)

	require.NoError(t, p.Close())
	_, err = p.NewTexture(1, 1)
	assert.Error(t, err)
	assert.Error(t, p.ComputeContext().Finish())
}

func TestCreateProgramRequiresHostKernel(t *testing.T) {
	_, err := New().CreateProgram(wavesim.ProgramSource{Name: "glsl-only", FragmentShader: "void main(){}"})
	assert.ErrorIs(t, err, wavesim.ErrCompile)
}

func TestHalfFormatQuantizesWrites(t *testing.T) {
	p := New(WithOptions(wavesim.ProviderOptions{Format: wavesim.Float16}))
	assert.Equal(t, wavesim.Float16, p.Options().Format)
	tex, err := p.NewTexture(1, 1)
	require.NoError(t, err)
	require.NoError(t, p.WriteTexture(tex, []wavesim.FieldTexel{{Amplitude: 0.1}}))
	out := make([]wavesim.FieldTexel, 1)
	require.NoError(t, p.ReadTexture(tex, out))
	assert.Equal(t, wavesim.QuantizeHalf(0.1), out[0].Amplitude)
	assert.NotEqual(t, float32(0.1), out[0].Amplitude)
}
