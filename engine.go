package wavesim

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Engine advances a 2D scalar wave field with an explicit leapfrog scheme.
// Field generations live in three caller-owned textures whose roles rotate
// every step; the update runs as a program on the compute provider.
//
// An Engine is not safe for concurrent use. Calls on one instance must be
// serialized by the caller.
type Engine struct {
	id       string
	provider ComputeProvider
	grid     Grid
	dt       float64

	kernel    *updateKernel
	ring      stateRing
	potential Texture
	steps     uint64
	released  bool

	log     *zap.Logger
	metrics *Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger overrides the package logger for one engine.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// WithMetrics reports step counts and dispatch timings to m.
func WithMetrics(m *Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New builds an engine for a grid of xResolution by yResolution cells
// spanning xLength by yLength, stepped by dt. The update program is compiled
// immediately; compile failures wrap ErrCompile and invalid parameters
// ErrInvalidConfig.
func New(provider ComputeProvider, xResolution, yResolution int, xLength, yLength, dt float64, opts ...Option) (*Engine, error) {
	if provider == nil {
		return nil, errInvalidf("nil compute provider")
	}
	g := Grid{XResolution: xResolution, YResolution: yResolution, XLength: xLength, YLength: yLength}
	if err := g.validate(); err != nil {
		return nil, err
	}
	if err := validateDt(dt); err != nil {
		return nil, err
	}
	e := &Engine{
		id:       uuid.NewString(),
		provider: provider,
		grid:     g,
		dt:       dt,
		log:      Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With(
		zap.String("engine", e.id),
		zap.String("provider", provider.Name()),
	)
	k, err := newUpdateKernel(provider, g, dt)
	if err != nil {
		return nil, err
	}
	e.kernel = k
	e.metrics.engineDelta(provider.Name(), 1)
	e.log.Info("wave engine created",
		zap.Stringer("grid", g),
		zap.Float64("dt", dt),
		zap.Float64("stable_dt", g.StableDt(1)),
	)
	return e, nil
}

// NewFromConfig builds an engine from cfg after validating it.
func NewFromConfig(provider ComputeProvider, cfg Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return New(provider, cfg.XResolution, cfg.YResolution, cfg.XLength, cfg.YLength, cfg.Dt, opts...)
}

// ID returns the engine's instance id, as used in log fields.
func (e *Engine) ID() string { return e.id }

// Grid returns the grid fixed at construction.
func (e *Engine) Grid() Grid { return e.grid }

// Dt returns the time step fixed at construction.
func (e *Engine) Dt() float64 { return e.dt }

// StepIndex returns the role index in {0, 1, 2}.
func (e *Engine) StepIndex() int { return e.ring.step }

// Steps returns the number of successful timesteps since the ring was seeded.
func (e *Engine) Steps() uint64 { return e.steps }

// SetInitialTextures places three caller-owned textures in ring slots 0, 1
// and 2, attaches a framebuffer to each and resets the role index to 0. The
// caller keeps ownership of the textures.
func (e *Engine) SetInitialTextures(t0, t1, t2 Texture) error {
	if e.released {
		return ErrReleased
	}
	textures := [RingSize]Texture{t0, t1, t2}
	var slots [RingSize]slot
	for i, tex := range textures {
		if tex == nil {
			return fmt.Errorf("%w: slot %d is nil", ErrInvalidTexture, i)
		}
		if w, h := tex.Size(); w != e.grid.XResolution || h != e.grid.YResolution {
			return fmt.Errorf("%w: slot %d is %dx%d, grid is %dx%d",
				ErrInvalidTexture, i, w, h, e.grid.XResolution, e.grid.YResolution)
		}
		for j := 0; j < i; j++ {
			if textures[j] == tex {
				return fmt.Errorf("%w: slots %d and %d share a texture", ErrInvalidTexture, j, i)
			}
		}
		fb, err := e.provider.AttachFramebuffer(tex)
		if err != nil {
			return fmt.Errorf("attaching framebuffer to slot %d: %w", i, err)
		}
		slots[i] = slot{tex: tex, fb: fb}
	}
	e.ring.reset(slots)
	e.steps = 0
	e.log.Info("state ring seeded")
	return nil
}

// SetPotential stores an optional coefficient texture. The update draws its
// speed coefficient from the current state's green channel, so the potential
// has no numerical effect.
func (e *Engine) SetPotential(tex Texture) {
	e.potential = tex
}

// Potential returns the texture stored by SetPotential.
func (e *Engine) Potential() Texture { return e.potential }

// Timestep advances the field by one dt: it renders the update from the old
// and current slots into the target slot and rotates roles. The role index
// only rotates when the provider accepted the dispatch, so RenderedTexture
// keeps naming the last good generation after a failure.
func (e *Engine) Timestep() error {
	if e.released {
		return ErrReleased
	}
	if !e.ring.seeded {
		return ErrNotSeeded
	}
	roles := e.ring.roles()
	pass := e.kernel.bind(
		e.ring.slots[roles.Target].fb,
		e.ring.slots[roles.Old].tex,
		e.ring.slots[roles.Current].tex,
	)
	start := time.Now()
	if err := e.provider.ComputeContext().Draw(pass); err != nil {
		e.metrics.failed(e.provider.Name())
		e.log.Warn("timestep dispatch failed",
			zap.Int("step", e.ring.step),
			zap.Uint64("steps", e.steps),
			zap.Error(err),
		)
		return fmt.Errorf("%w: step %d: %w", ErrDispatch, e.steps, err)
	}
	e.metrics.stepped(e.provider.Name(), time.Since(start))
	e.ring.rotate()
	e.steps++
	return nil
}

// Advance runs n timesteps, stopping at the first failure.
func (e *Engine) Advance(n int) error {
	for i := 0; i < n; i++ {
		if err := e.Timestep(); err != nil {
			return err
		}
	}
	return nil
}

// RenderedTexture returns the most recently produced generation, slot
// (step+1) mod 3. Before the first step it is the seeded current state.
func (e *Engine) RenderedTexture() Texture {
	return e.ring.rendered()
}

// SourceFramebuffers returns the framebuffers of the old and current slots
// of the next step. Render initial conditions into these before stepping.
func (e *Engine) SourceFramebuffers() [2]Framebuffer {
	old, cur := e.ring.sources()
	return [2]Framebuffer{old.fb, cur.fb}
}

// SourceTextures returns the textures of the old and current slots of the
// next step.
func (e *Engine) SourceTextures() [2]Texture {
	old, cur := e.ring.sources()
	return [2]Texture{old.tex, cur.tex}
}

// Seed uploads host fields into the two source slots: old holds t-dt and cur
// holds t. Pass the same field twice for a field initially at rest.
func (e *Engine) Seed(store TextureStore, old, cur *Field) error {
	if !e.ring.seeded {
		return ErrNotSeeded
	}
	targets := e.SourceTextures()
	for i, f := range [2]*Field{old, cur} {
		if f == nil {
			return fmt.Errorf("%w: nil seed field", ErrInvalidTexture)
		}
		if err := f.checkSize(e.grid.XResolution, e.grid.YResolution); err != nil {
			return err
		}
		if err := store.WriteTexture(targets[i], f.Texels); err != nil {
			return fmt.Errorf("seeding source %d: %w", i, err)
		}
	}
	return nil
}

// ReadRendered copies the rendered generation into dst.
func (e *Engine) ReadRendered(store TextureStore, dst *Field) error {
	tex := e.RenderedTexture()
	if tex == nil {
		return ErrNotSeeded
	}
	if err := dst.checkSize(e.grid.XResolution, e.grid.YResolution); err != nil {
		return err
	}
	return store.ReadTexture(tex, dst.Texels)
}

// CheckStability reports ErrUnstable when dt exceeds the CFL limit for the
// given maximum wave speed. The engine never calls it on its own.
func (e *Engine) CheckStability(maxWaveSpeed float64) error {
	limit := e.grid.StableDt(maxWaveSpeed)
	if e.dt > limit {
		return fmt.Errorf("%w: dt %g exceeds limit %g for wave speed %g", ErrUnstable, e.dt, limit, maxWaveSpeed)
	}
	return nil
}

// Done releases the compiled program. Textures and framebuffers stay with
// the caller. Done is idempotent.
func (e *Engine) Done() error {
	if e.released {
		return nil
	}
	e.released = true
	e.metrics.engineDelta(e.provider.Name(), -1)
	if err := e.provider.DeleteProgram(e.kernel.program); err != nil {
		e.log.Warn("releasing update program", zap.Error(err))
		return fmt.Errorf("releasing update program: %w", err)
	}
	e.log.Debug("update program released", zap.Uint64("steps", e.steps))
	return nil
}
