// Package cpu is a software compute provider. Textures live in host memory
// and each pass rasterizes the full-screen quad by running the program's
// host kernel over bands of target rows in parallel.
package cpu

import (
	"errors"
	"fmt"
	"runtime"

	"go.uber.org/zap"

	"wavesim"
)

const providerName = "cpu"

// Texture is a host-memory RGBA float texture.
type Texture struct {
	owner         *Provider
	width, height int
	texels        []wavesim.FieldTexel
	deleted       bool
}

// Size reports the texture dimensions.
func (t *Texture) Size() (int, int) { return t.width, t.height }

// Framebuffer renders into one Texture.
type Framebuffer struct {
	tex *Texture
}

// Texture returns the attached texture.
func (f *Framebuffer) Texture() wavesim.Texture { return f.tex }

// Program is a host kernel with its parameter signature.
type Program struct {
	owner   *Provider
	src     wavesim.ProgramSource
	deleted bool
}

// AttribLocation returns the fixed location of a standard quad attribute.
func (p *Program) AttribLocation(name string) wavesim.Location {
	return wavesim.QuadAttribLocation(name)
}

// UniformLocation returns the index of the named parameter.
func (p *Program) UniformLocation(name string) wavesim.Location {
	return p.src.ParamLocation(name)
}

// Provider implements wavesim.Provider on the host.
type Provider struct {
	opts    wavesim.ProviderOptions
	workers int
	quad    wavesim.Quad
	ctx     *drawContext
	closed  bool
	log     *zap.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithWorkers caps the number of row bands shaded concurrently.
func WithWorkers(n int) Option {
	return func(p *Provider) {
		if n > 0 {
			p.workers = n
		}
	}
}

// WithOptions applies the shared provider settings.
func WithOptions(o wavesim.ProviderOptions) Option {
	return func(p *Provider) { p.opts = o }
}

// New returns a provider using one worker per CPU by default.
func New(opts ...Option) *Provider {
	p := &Provider{
		workers: runtime.GOMAXPROCS(0),
		quad:    wavesim.StandardQuad(),
		log:     wavesim.Logger().With(zap.String("provider", providerName)),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.ctx = &drawContext{p: p}
	p.log.Info("cpu provider ready",
		zap.Int("workers", p.workers),
		zap.Stringer("addressing", p.opts.Addressing),
		zap.Stringer("format", p.opts.Format),
	)
	return p
}

// Name identifies the provider.
func (p *Provider) Name() string { return providerName }

// Options returns the provider settings.
func (p *Provider) Options() wavesim.ProviderOptions { return p.opts }

// CreateProgram accepts any source carrying a host kernel.
func (p *Provider) CreateProgram(src wavesim.ProgramSource) (wavesim.Program, error) {
	if p.closed {
		return nil, errClosed
	}
	if src.Host == nil {
		return nil, fmt.Errorf("%w: %s has no host kernel", wavesim.ErrCompile, src.Name)
	}
	return &Program{owner: p, src: src}, nil
}

// DeleteProgram marks prog unusable.
func (p *Provider) DeleteProgram(prog wavesim.Program) error {
	cp, err := p.program(prog)
	if err != nil {
		return err
	}
	cp.deleted = true
	return nil
}

// AttachFramebuffer wraps tex as a render target.
func (p *Provider) AttachFramebuffer(tex wavesim.Texture) (wavesim.Framebuffer, error) {
	t, err := p.texture(tex)
	if err != nil {
		return nil, err
	}
	return &Framebuffer{tex: t}, nil
}

// StandardVertices returns the full-screen quad.
func (p *Provider) StandardVertices() wavesim.Quad { return p.quad }

// ComputeContext returns the context update passes run on.
func (p *Provider) ComputeContext() wavesim.Context { return p.ctx }

// RenderContext returns the same context; the host has one queue.
func (p *Provider) RenderContext() wavesim.Context { return p.ctx }

// NewTexture allocates a zeroed texture.
func (p *Provider) NewTexture(width, height int) (wavesim.Texture, error) {
	if p.closed {
		return nil, errClosed
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: size %dx%d", wavesim.ErrInvalidTexture, width, height)
	}
	return &Texture{
		owner:  p,
		width:  width,
		height: height,
		texels: make([]wavesim.FieldTexel, width*height),
	}, nil
}

// WriteTexture replaces the contents of tex.
func (p *Provider) WriteTexture(tex wavesim.Texture, texels []wavesim.FieldTexel) error {
	t, err := p.texture(tex)
	if err != nil {
		return err
	}
	if len(texels) != len(t.texels) {
		return fmt.Errorf("%w: %d texels for a %dx%d texture", wavesim.ErrInvalidTexture, len(texels), t.width, t.height)
	}
	copy(t.texels, texels)
	if p.opts.Format == wavesim.Float16 {
		quantize(t.texels)
	}
	return nil
}

// ReadTexture copies the contents of tex into dst.
func (p *Provider) ReadTexture(tex wavesim.Texture, dst []wavesim.FieldTexel) error {
	t, err := p.texture(tex)
	if err != nil {
		return err
	}
	if len(dst) != len(t.texels) {
		return fmt.Errorf("%w: %d texels for a %dx%d texture", wavesim.ErrInvalidTexture, len(dst), t.width, t.height)
	}
	copy(dst, t.texels)
	return nil
}

// DeleteTexture frees the texels of tex.
func (p *Provider) DeleteTexture(tex wavesim.Texture) error {
	t, err := p.texture(tex)
	if err != nil {
		return err
	}
	t.deleted = true
	t.texels = nil
	return nil
}

// Close makes every later call fail.
func (p *Provider) Close() error {
	p.closed = true
	return nil
}

var errClosed = errors.New("cpu provider closed")

func (p *Provider) texture(tex wavesim.Texture) (*Texture, error) {
	if p.closed {
		return nil, errClosed
	}
	t, ok := tex.(*Texture)
	if !ok || t == nil {
		return nil, fmt.Errorf("%w: texture %T", wavesim.ErrForeignResource, tex)
	}
	if t.owner != p {
		return nil, wavesim.ErrForeignResource
	}
	if t.deleted {
		return nil, fmt.Errorf("%w: texture deleted", wavesim.ErrInvalidTexture)
	}
	return t, nil
}

func (p *Provider) program(prog wavesim.Program) (*Program, error) {
	if p.closed {
		return nil, errClosed
	}
	cp, ok := prog.(*Program)
	if !ok || cp == nil {
		return nil, fmt.Errorf("%w: program %T", wavesim.ErrForeignResource, prog)
	}
	if cp.owner != p {
		return nil, wavesim.ErrForeignResource
	}
	if cp.deleted {
		return nil, wavesim.ErrReleased
	}
	return cp, nil
}

func quantize(texels []wavesim.FieldTexel) {
	for i := range texels {
		texels[i] = wavesim.QuantizeTexel(texels[i])
	}
}
