package scenario

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wavesim"
	"wavesim/cpu"
)

func smallGrid() wavesim.Grid {
	return wavesim.Grid{XResolution: 32, YResolution: 32, XLength: 1, YLength: 1}
}

func TestFootprint(t *testing.T) {
	assert.Nil(t, Footprint(-1))
	assert.Equal(t, []Offset{{0, 0}}, Footprint(0))
	assert.Len(t, Footprint(1), 5)
	assert.Len(t, Footprint(2), 13)
	for _, o := range Footprint(3) {
		assert.LessOrEqual(t, o.DX*o.DX+o.DY*o.DY, 9)
	}
}

func TestEmitterInjectWrapsAcrossEdge(t *testing.T) {
	g := smallGrid()
	e := NewEmitter(0, 0, 1, 2)

	wrapped := wavesim.NewField(g)
	e.Inject(wrapped, wavesim.Wrap)
	assert.Equal(t, float32(2), wrapped.Amplitude(0, 0))
	assert.Equal(t, float32(2), wrapped.Amplitude(31, 0))
	assert.Equal(t, float32(2), wrapped.Amplitude(0, 31))

	clamped := wavesim.NewField(g)
	e.Inject(clamped, wavesim.Clamp)
	assert.Equal(t, float32(2), clamped.Amplitude(0, 0))
	assert.Equal(t, float32(2), clamped.Amplitude(1, 0))
	assert.Zero(t, clamped.Amplitude(31, 0))
	assert.Zero(t, clamped.Amplitude(0, 31))
}

func TestEmitterMoveStaysInside(t *testing.T) {
	e := NewEmitter(1, 1, 0, 1)
	e.Move(-5, 3, 4, 4)
	assert.Equal(t, 0, e.X)
	assert.Equal(t, 3, e.Y)
	e.Move(10, 10, 4, 4)
	assert.Equal(t, 3, e.X)
	assert.Equal(t, 3, e.Y)
}

func TestEmitterPulseWritesBothSources(t *testing.T) {
	g := smallGrid()
	p := cpu.New()
	engine, err := wavesim.New(p, g.XResolution, g.YResolution, g.XLength, g.YLength, 0.005)
	require.NoError(t, err)
	t.Cleanup(func() { _ = engine.Done() })

	e := NewEmitter(10, 12, 2, 0.5)
	require.ErrorIs(t, e.Pulse(engine, p, wavesim.Wrap), wavesim.ErrNotSeeded)

	var tex [3]wavesim.Texture
	for i := range tex {
		tex[i], err = p.NewTexture(g.XResolution, g.YResolution)
		require.NoError(t, err)
	}
	require.NoError(t, engine.SetInitialTextures(tex[0], tex[1], tex[2]))
	zero := wavesim.NewField(g)
	zero.Fill(0, 1)
	require.NoError(t, engine.Seed(p, zero, zero))

	require.NoError(t, e.Pulse(engine, p, wavesim.Wrap))
	for _, src := range engine.SourceTextures() {
		f := wavesim.NewField(g)
		require.NoError(t, p.ReadTexture(src, f.Texels))
		assert.Equal(t, float32(0.5), f.Amplitude(10, 12))
		assert.Equal(t, float32(0.5), f.Amplitude(12, 12))
		assert.Zero(t, f.Amplitude(13, 12))
		assert.Equal(t, float32(1), f.At(10, 12).Speed)
	}
}

func TestBuildPulseStartsAtRest(t *testing.T) {
	g := smallGrid()
	s := Scene{Speed: 1, Pulses: []Pulse{{X: 0.5, Y: 0.5, Width: 0.05, Amplitude: 1}}}
	old, cur, err := s.Build(g, 0.01)
	require.NoError(t, err)

	assert.Equal(t, old.Texels, cur.Texels)
	assert.InDelta(t, 1, cur.Amplitude(16, 16), 1e-6)
	assert.Less(t, cur.Amplitude(0, 0), float32(1e-6))
	assert.Equal(t, float32(1), cur.At(3, 7).Speed)
}

func TestBuildStandingWavePhase(t *testing.T) {
	g := smallGrid()
	dt := 0.01
	s := Scene{Speed: 4, Standing: &StandingWave{ModesX: 2, Amplitude: 1}}
	old, cur, err := s.Build(g, dt)
	require.NoError(t, err)

	k := 2 * math.Pi
	omega := 2 * k
	x := 3
	px := float64(x) * g.Dx()
	for _, y := range []int{0, 9, 31} {
		assert.InDelta(t, math.Sin(k*px), cur.Amplitude(x, y), 1e-6)
		assert.InDelta(t, math.Sin(k*px)*math.Cos(omega*dt), old.Amplitude(x, y), 1e-6)
	}
}

func TestSlabsAreDeterministicAndKeepClear(t *testing.T) {
	g := wavesim.Grid{XResolution: 64, YResolution: 64, XLength: 1, YLength: 1}
	s := Scene{
		Speed:  1,
		Pulses: []Pulse{{X: 0.5, Y: 0.5, Width: 0.02, Amplitude: 1}},
		Slabs: &Slabs{
			Count: 40, MinLength: 8, MaxLength: 20, Thickness: 1,
			Speed: 0.25, Seed: 7, Clearance: 6,
		},
	}
	_, a, err := s.Build(g, 0.001)
	require.NoError(t, err)
	_, b, err := s.Build(g, 0.001)
	require.NoError(t, err)
	assert.Equal(t, a.Texels, b.Texels)

	slab := 0
	for y := 0; y < g.YResolution; y++ {
		for x := 0; x < g.XResolution; x++ {
			if a.At(x, y).Speed != 0.25 {
				continue
			}
			slab++
			dx, dy := x-32, y-32
			assert.GreaterOrEqual(t, dx*dx+dy*dy, 36, "slab cell (%d,%d) inside clearance", x, y)
			assert.True(t, x > 1 && x < 63 && y > 1 && y < 63, "slab cell (%d,%d) on border", x, y)
		}
	}
	assert.Positive(t, slab)
	assert.Equal(t, 1.0, s.MaxWaveSpeed())
	assert.Equal(t, 2.0, Scene{Speed: 1, Slabs: &Slabs{Count: 1, Speed: 4}}.MaxWaveSpeed())

	s.Slabs.Seed = 8
	_, c, err := s.Build(g, 0.001)
	require.NoError(t, err)
	assert.NotEqual(t, a.Texels, c.Texels)
}

func TestSceneValidate(t *testing.T) {
	g := smallGrid()
	cases := map[string]Scene{
		"zero speed":    {},
		"flat pulse":    {Speed: 1, Pulses: []Pulse{{Width: 0}}},
		"short slabs":   {Speed: 1, Slabs: &Slabs{Count: 1, MinLength: 0, MaxLength: 1, Speed: 1}},
		"slow slabs":    {Speed: 1, Slabs: &Slabs{Count: 1, MinLength: 1, MaxLength: 1}},
		"probe outside": {Speed: 1, Probes: []Probe{{Name: "p", X: 32, Y: 0}}},
	}
	for name, s := range cases {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, s.Validate(g), wavesim.ErrInvalidConfig)
		})
	}
	assert.NoError(t, Scene{Speed: 1, Probes: []Probe{{X: 31, Y: 31}}}.Validate(g))
}

func TestParseKeepsDefaults(t *testing.T) {
	f, err := Parse([]byte(`
provider: opencl
engine:
  x_resolution: 128
  addressing: clamp
scene:
  speed: 2
  probes:
    - {name: centre, x: 64, y: 64}
steps: 50
`))
	require.NoError(t, err)
	def := wavesim.DefaultConfig()
	assert.Equal(t, "opencl", f.Provider)
	assert.Equal(t, 128, f.Engine.XResolution)
	assert.Equal(t, def.YResolution, f.Engine.YResolution)
	assert.Equal(t, def.Dt, f.Engine.Dt)
	assert.Equal(t, "clamp", f.Engine.Addressing)
	assert.Equal(t, 2.0, f.Scene.Speed)
	assert.Equal(t, 50, f.Steps)
	assert.Equal(t, DefaultProbeEvery, f.ProbeEvery)
	require.Len(t, f.Scene.Probes, 1)
	assert.Equal(t, "centre", f.Scene.Probes[0].Name)
}

func TestParseRejects(t *testing.T) {
	for name, doc := range map[string]string{
		"syntax":     "engine: [",
		"addressing": "engine: {addressing: mirror}",
		"steps":      "steps: -1",
		"probe":      "scene: {probes: [{x: 9999, y: 0}]}",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.ErrorIs(t, err, wavesim.ErrInvalidConfig)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scene.yaml")
	require.NoError(t, os.WriteFile(path, []byte("steps: 7\n"), 0o644))

	f, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, f.Steps)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
