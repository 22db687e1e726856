//go:build ebiten

package main

import (
	"fmt"
	"image/color"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"go.uber.org/zap"

	"wavesim"
	"wavesim/internal/scenario"
)

var (
	emitterColor = color.RGBA{255, 0, 0, 255}
	slabTint     = color.RGBA{30, 40, 80, 255}
)

// viewer drives an engine from Ebiten's game loop. Each frame it steps the
// engine, colormaps the rendered generation on the provider and copies the
// result to the screen.
type viewer struct {
	provider wavesim.Provider
	engine   *wavesim.Engine
	plotter  *wavesim.Plotter
	mode     wavesim.AddressMode
	log      *zap.Logger

	ring     [wavesim.RingSize]wavesim.Texture
	colorTex wavesim.Texture
	colorFB  wavesim.Framebuffer
	colors   []wavesim.FieldTexel
	pixels   []byte
	slabs    []bool

	emitter      *scenario.Emitter
	footprint    []scenario.Offset
	ex, ey       float64
	impulseTimer int

	stepsPerFrame int
	lastSim       time.Duration
	drawErr       error

	walker       *walker
	walkDeadline time.Time
	walkDone     func()
}

func newViewer(provider wavesim.Provider, file *scenario.File, mode wavesim.AddressMode, log *zap.Logger) (v *viewer, err error) {
	engine, err := wavesim.NewFromConfig(provider, file.Engine, wavesim.WithLogger(log))
	if err != nil {
		return nil, err
	}
	g := engine.Grid()
	v = &viewer{
		provider:      provider,
		engine:        engine,
		mode:          mode,
		log:           log,
		colors:        make([]wavesim.FieldTexel, g.Cells()),
		pixels:        make([]byte, g.Cells()*4),
		slabs:         make([]bool, g.Cells()),
		footprint:     scenario.Footprint(emitterRadius),
		ex:            float64(g.XResolution / 2),
		ey:            float64(g.YResolution / 2),
		impulseTimer:  impulseDelay,
		stepsPerFrame: min(max(*stepsPerFrameFlag, minStepsPerFrame), maxStepsPerFrame),
	}
	v.emitter = scenario.NewEmitter(int(v.ex), int(v.ey), emitterRadius, float32(*impulseFlag))
	defer func() {
		if err != nil {
			v.close()
			v = nil
		}
	}()

	for i := range v.ring {
		if v.ring[i], err = provider.NewTexture(g.XResolution, g.YResolution); err != nil {
			return v, err
		}
	}
	if err = engine.SetInitialTextures(v.ring[0], v.ring[1], v.ring[2]); err != nil {
		return v, err
	}
	old, cur, err := file.Scene.Build(g, engine.Dt())
	if err != nil {
		return v, err
	}
	if err = engine.Seed(provider, old, cur); err != nil {
		return v, err
	}
	background := float32(file.Scene.Speed)
	for i, t := range cur.Texels {
		v.slabs[i] = t.Speed != background
	}

	if v.plotter, err = wavesim.NewPlotter(provider); err != nil {
		return v, err
	}
	if v.colorTex, err = provider.NewTexture(g.XResolution, g.YResolution); err != nil {
		return v, err
	}
	if v.colorFB, err = provider.AttachFramebuffer(v.colorTex); err != nil {
		return v, err
	}
	return v, nil
}

func (v *viewer) close() {
	if v.plotter != nil {
		_ = v.plotter.Done()
	}
	_ = v.engine.Done()
	for _, tex := range append(v.ring[:], v.colorTex) {
		if tex != nil {
			_ = v.provider.DeleteTexture(tex)
		}
	}
}

// startAutoWalk replaces keyboard movement with a scripted walk until d
// elapses, then calls done.
func (v *viewer) startAutoWalk(d time.Duration, done func()) {
	v.walker = newWalker(time.Now().UnixNano())
	v.walkDeadline = time.Now().Add(d)
	v.walkDone = done
}

// movementVector selects either manual or scripted movement.
func (v *viewer) movementVector() (float64, float64) {
	if v.walker != nil {
		if time.Now().After(v.walkDeadline) {
			v.walker = nil
			if v.walkDone != nil {
				v.walkDone()
			}
			return 0, 0
		}
		g := v.engine.Grid()
		return v.walker.next(v.ex, v.ey, g.XResolution, g.YResolution)
	}
	dx, dy := 0.0, 0.0
	if ebiten.IsKeyPressed(ebiten.KeyW) {
		dy--
	}
	if ebiten.IsKeyPressed(ebiten.KeyS) {
		dy++
	}
	if ebiten.IsKeyPressed(ebiten.KeyA) {
		dx--
	}
	if ebiten.IsKeyPressed(ebiten.KeyD) {
		dx++
	}
	return scaleMovement(dx, dy)
}

func (v *viewer) handleStepControls() {
	if inpututil.IsKeyJustPressed(ebiten.KeyMinus) || inpututil.IsKeyJustPressed(ebiten.KeyKPSubtract) {
		v.stepsPerFrame = adjustStepsPerFrame(v.stepsPerFrame, false)
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEqual) || inpututil.IsKeyJustPressed(ebiten.KeyKPAdd) {
		v.stepsPerFrame = adjustStepsPerFrame(v.stepsPerFrame, true)
	}
}

// Update moves the emitter, fires impulses while it moves and advances the
// engine by the current batch of steps.
func (v *viewer) Update() error {
	if v.drawErr != nil {
		return v.drawErr
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	v.handleStepControls()

	g := v.engine.Grid()
	dx, dy := v.movementVector()
	v.ex = min(max(v.ex+dx, emitterRadius), float64(g.XResolution-emitterRadius-1))
	v.ey = min(max(v.ey+dy, emitterRadius), float64(g.YResolution-emitterRadius-1))
	v.emitter.Move(int(v.ex)-v.emitter.X, int(v.ey)-v.emitter.Y, g.XResolution, g.YResolution)

	if dx != 0 || dy != 0 {
		v.impulseTimer++
		if v.impulseTimer >= impulseDelay {
			v.impulseTimer = 0
			if err := v.emitter.Pulse(v.engine, v.provider, v.mode); err != nil {
				return fmt.Errorf("injecting impulse: %w", err)
			}
		}
	} else {
		v.impulseTimer = impulseDelay
	}

	start := time.Now()
	if err := v.engine.Advance(v.stepsPerFrame); err != nil {
		return err
	}
	if err := v.provider.ComputeContext().Finish(); err != nil {
		return err
	}
	v.lastSim = time.Since(start)
	return nil
}

// Draw colormaps the rendered generation and overlays slabs, the emitter
// and the optional debug text.
func (v *viewer) Draw(screen *ebiten.Image) {
	if err := v.plotter.Render(v.engine.RenderedTexture(), v.colorFB); err != nil {
		v.drawErr = fmt.Errorf("colormap: %w", err)
		return
	}
	if err := v.provider.ReadTexture(v.colorTex, v.colors); err != nil {
		v.drawErr = fmt.Errorf("reading colormap: %w", err)
		return
	}
	for i, t := range v.colors {
		c := wavesim.TexelColor(t)
		if *showSlabsFlag && v.slabs[i] {
			c.R, c.G, c.B = max(c.R, slabTint.R), max(c.G, slabTint.G), max(c.B, slabTint.B)
		}
		base := i * 4
		v.pixels[base] = c.R
		v.pixels[base+1] = c.G
		v.pixels[base+2] = c.B
		v.pixels[base+3] = 255
	}
	screen.WritePixels(v.pixels)

	g := v.engine.Grid()
	for _, o := range v.footprint {
		x, y := v.emitter.X+o.DX, v.emitter.Y+o.DY
		if g.Contains(x, y) {
			screen.Set(x, y, emitterColor)
		}
	}

	if *debugFlag {
		tps := max(ebiten.ActualTPS(), 0)
		simMS := v.lastSim.Seconds() * 1000
		msg := fmt.Sprintf("FPS: %.1f\nTPS: %.1f\nSteps/frame: %d (+/-)\nSim steps: %.0f/s\nSim: %.2f ms\nStep: %d on %s",
			ebiten.ActualFPS(), tps, v.stepsPerFrame, tps*float64(v.stepsPerFrame), simMS,
			v.engine.Steps(), v.provider.Name())
		ebitenutil.DebugPrint(screen, msg)
	}
}

// Layout reports the grid as the logical screen size.
func (v *viewer) Layout(_, _ int) (int, int) {
	g := v.engine.Grid()
	return g.XResolution, g.YResolution
}
