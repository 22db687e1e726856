//go:build opencl

// Package opencl runs wavesim programs as OpenCL kernels. Textures are
// device buffers of RGBA texels and every pass is a 2D NDRange over the
// target texture.
package opencl

import (
	"errors"
	"fmt"
	"strings"
	"unsafe"

	"github.com/jgillich/go-opencl/cl"
	"go.uber.org/zap"

	"wavesim"
)

const providerName = "opencl"

// Leading kernel arguments ahead of the program's Params.
const (
	argTarget = iota
	argWidth
	argHeight
	argParams
)

// Texture is a device buffer holding width*height texels.
type Texture struct {
	owner         *Provider
	width, height int
	buf           *cl.MemObject
}

// Size reports the texture dimensions.
func (t *Texture) Size() (int, int) { return t.width, t.height }

// Framebuffer renders into one Texture.
type Framebuffer struct {
	tex *Texture
}

// Texture returns the attached texture.
func (f *Framebuffer) Texture() wavesim.Texture { return f.tex }

// Program is a built OpenCL program with its entry kernel.
type Program struct {
	owner   *Provider
	src     wavesim.ProgramSource
	program *cl.Program
	kernel  *cl.Kernel
}

// AttribLocation returns the fixed location of a standard quad attribute.
func (p *Program) AttribLocation(name string) wavesim.Location {
	return wavesim.QuadAttribLocation(name)
}

// UniformLocation returns the index of the named parameter. Kernel argument
// argParams+i carries parameter i.
func (p *Program) UniformLocation(name string) wavesim.Location {
	return p.src.ParamLocation(name)
}

// Provider implements wavesim.Provider on one OpenCL device.
type Provider struct {
	opts         wavesim.ProviderOptions
	buildOptions string

	context    *cl.Context
	queue      *cl.CommandQueue
	device     *cl.Device
	deviceName string

	quad     wavesim.Quad
	ctx      *queueContext
	textures map[*Texture]struct{}
	programs map[*Program]struct{}
	log      *zap.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithOptions applies the shared provider settings.
func WithOptions(o wavesim.ProviderOptions) Option {
	return func(p *Provider) { p.opts = o }
}

// WithBuildOptions passes extra flags to the OpenCL compiler.
func WithBuildOptions(flags string) Option {
	return func(p *Provider) { p.buildOptions = flags }
}

// Open returns a provider on the first GPU, falling back to a CPU device.
func Open(o wavesim.ProviderOptions) (wavesim.Provider, error) {
	p, err := New(WithOptions(o))
	if err != nil {
		return nil, err
	}
	return p, nil
}

// New selects a device and creates a context and an in-order queue on it.
func New(opts ...Option) (*Provider, error) {
	p := &Provider{
		quad:     wavesim.StandardQuad(),
		textures: make(map[*Texture]struct{}),
		programs: make(map[*Program]struct{}),
		log:      wavesim.Logger().With(zap.String("provider", providerName)),
	}
	for _, opt := range opts {
		opt(p)
	}

	device, err := selectDevice()
	if err != nil {
		return nil, err
	}
	context, err := cl.CreateContext([]*cl.Device{device})
	if err != nil {
		return nil, fmt.Errorf("creating OpenCL context: %w", err)
	}
	queue, err := context.CreateCommandQueue(device, 0)
	if err != nil {
		context.Release()
		return nil, fmt.Errorf("creating OpenCL command queue: %w", err)
	}
	p.context = context
	p.queue = queue
	p.device = device
	p.deviceName = device.Name()
	p.ctx = &queueContext{p: p}
	p.log.Info("OpenCL provider ready",
		zap.String("device", p.deviceName),
		zap.Stringer("addressing", p.opts.Addressing),
		zap.Stringer("format", p.opts.Format),
	)
	return p, nil
}

func selectDevice() (*cl.Device, error) {
	platforms, err := cl.GetPlatforms()
	if err != nil {
		msg := "querying OpenCL platforms"
		if strings.Contains(err.Error(), "-1001") {
			msg += ": no ICD loader reported any platforms; install OpenCL drivers and verify with `clinfo`"
		}
		return nil, fmt.Errorf("%s: %w", msg, err)
	}
	if len(platforms) == 0 {
		return nil, errors.New("no OpenCL platforms available; ensure a vendor driver is installed and detected by `clinfo`")
	}
	for _, kind := range []cl.DeviceType{cl.DeviceTypeGPU, cl.DeviceTypeCPU} {
		for _, platform := range platforms {
			devices, derr := platform.GetDevices(kind)
			if derr != nil && derr != cl.ErrDeviceNotFound {
				continue
			}
			if len(devices) > 0 {
				return devices[0], nil
			}
		}
	}
	return nil, errors.New("no suitable OpenCL devices found")
}

// Name identifies the provider.
func (p *Provider) Name() string { return providerName }

// DeviceName reports the device the provider runs on.
func (p *Provider) DeviceName() string { return p.deviceName }

// CreateProgram builds src.OpenCL behind the addressing and storage prelude.
func (p *Provider) CreateProgram(src wavesim.ProgramSource) (wavesim.Program, error) {
	if p.context == nil {
		return nil, errClosed
	}
	if src.OpenCL == "" {
		return nil, fmt.Errorf("%w: %s has no OpenCL rendition", wavesim.ErrCompile, src.Name)
	}
	code := wavesim.OpenCLPrelude(p.opts.Addressing, p.opts.Format) + src.OpenCL
	program, err := p.context.CreateProgramWithSource([]string{code})
	if err != nil {
		return nil, fmt.Errorf("creating OpenCL program %s: %w", src.Name, err)
	}
	if err := program.BuildProgram([]*cl.Device{p.device}, p.buildOptions); err != nil {
		program.Release()
		if buildErr, ok := err.(cl.BuildError); ok {
			return nil, fmt.Errorf("%w: building %s: %s", wavesim.ErrCompile, src.Name, string(buildErr))
		}
		return nil, fmt.Errorf("%w: building %s: %w", wavesim.ErrCompile, src.Name, err)
	}
	kernel, err := program.CreateKernel(src.Name)
	if err != nil {
		program.Release()
		return nil, fmt.Errorf("%w: creating kernel %s: %w", wavesim.ErrCompile, src.Name, err)
	}
	prog := &Program{owner: p, src: src, program: program, kernel: kernel}
	p.programs[prog] = struct{}{}
	p.log.Debug("program built", zap.String("program", src.Name))
	return prog, nil
}

// DeleteProgram releases the kernel and program.
func (p *Provider) DeleteProgram(prog wavesim.Program) error {
	cp, err := p.program(prog)
	if err != nil {
		return err
	}
	cp.release()
	delete(p.programs, cp)
	return nil
}

func (cp *Program) release() {
	if cp.kernel != nil {
		cp.kernel.Release()
		cp.kernel = nil
	}
	if cp.program != nil {
		cp.program.Release()
		cp.program = nil
	}
}

// AttachFramebuffer wraps tex as a render target.
func (p *Provider) AttachFramebuffer(tex wavesim.Texture) (wavesim.Framebuffer, error) {
	t, err := p.texture(tex)
	if err != nil {
		return nil, err
	}
	return &Framebuffer{tex: t}, nil
}

// StandardVertices returns the full-screen quad. Kernels cover the target
// with an NDRange, so only its vertex count is checked.
func (p *Provider) StandardVertices() wavesim.Quad { return p.quad }

// ComputeContext returns the context backed by the command queue.
func (p *Provider) ComputeContext() wavesim.Context { return p.ctx }

// RenderContext returns the same queue context.
func (p *Provider) RenderContext() wavesim.Context { return p.ctx }

func (p *Provider) texelBytes() int {
	if p.opts.Format == wavesim.Float16 {
		return wavesim.TexelChannels * int(unsafe.Sizeof(uint16(0)))
	}
	return wavesim.TexelChannels * int(unsafe.Sizeof(float32(0)))
}

// NewTexture allocates an uninitialized device buffer and clears it.
func (p *Provider) NewTexture(width, height int) (wavesim.Texture, error) {
	if p.context == nil {
		return nil, errClosed
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: size %dx%d", wavesim.ErrInvalidTexture, width, height)
	}
	buf, err := p.context.CreateEmptyBuffer(cl.MemReadWrite, width*height*p.texelBytes())
	if err != nil {
		return nil, fmt.Errorf("allocating %dx%d texture: %w", width, height, err)
	}
	t := &Texture{owner: p, width: width, height: height, buf: buf}
	if err := p.WriteTexture(t, make([]wavesim.FieldTexel, width*height)); err != nil {
		buf.Release()
		return nil, err
	}
	p.textures[t] = struct{}{}
	return t, nil
}

// WriteTexture uploads texels, converting to half precision when the
// provider stores Float16.
func (p *Provider) WriteTexture(tex wavesim.Texture, texels []wavesim.FieldTexel) error {
	t, err := p.textureUnchecked(tex)
	if err != nil {
		return err
	}
	if len(texels) != t.width*t.height {
		return fmt.Errorf("%w: %d texels for a %dx%d texture", wavesim.ErrInvalidTexture, len(texels), t.width, t.height)
	}
	flat := make([]float32, wavesim.TexelChannels*len(texels))
	wavesim.PackTexels(flat, texels)
	if p.opts.Format == wavesim.Float16 {
		half := make([]uint16, len(flat))
		wavesim.EncodeHalf(half, flat)
		byteLen := len(half) * int(unsafe.Sizeof(uint16(0)))
		if _, err := p.queue.EnqueueWriteBuffer(t.buf, true, 0, byteLen, unsafe.Pointer(&half[0]), nil); err != nil {
			return fmt.Errorf("writing texture: %w", err)
		}
		return nil
	}
	if _, err := p.queue.EnqueueWriteBufferFloat32(t.buf, true, 0, flat, nil); err != nil {
		return fmt.Errorf("writing texture: %w", err)
	}
	return nil
}

// ReadTexture downloads tex into dst. The read is blocking, so it also
// waits for every pass enqueued before it.
func (p *Provider) ReadTexture(tex wavesim.Texture, dst []wavesim.FieldTexel) error {
	t, err := p.texture(tex)
	if err != nil {
		return err
	}
	if len(dst) != t.width*t.height {
		return fmt.Errorf("%w: %d texels for a %dx%d texture", wavesim.ErrInvalidTexture, len(dst), t.width, t.height)
	}
	flat := make([]float32, wavesim.TexelChannels*len(dst))
	if p.opts.Format == wavesim.Float16 {
		half := make([]uint16, len(flat))
		byteLen := len(half) * int(unsafe.Sizeof(uint16(0)))
		if _, err := p.queue.EnqueueReadBuffer(t.buf, true, 0, byteLen, unsafe.Pointer(&half[0]), nil); err != nil {
			return fmt.Errorf("reading texture: %w", err)
		}
		wavesim.DecodeHalf(flat, half)
	} else if _, err := p.queue.EnqueueReadBufferFloat32(t.buf, true, 0, flat, nil); err != nil {
		return fmt.Errorf("reading texture: %w", err)
	}
	wavesim.UnpackTexels(dst, flat)
	return nil
}

// DeleteTexture releases the device buffer.
func (p *Provider) DeleteTexture(tex wavesim.Texture) error {
	t, err := p.texture(tex)
	if err != nil {
		return err
	}
	t.buf.Release()
	t.buf = nil
	delete(p.textures, t)
	return nil
}

// Close releases every live texture and program, then the queue and
// context. It is idempotent.
func (p *Provider) Close() error {
	if p.context == nil {
		return nil
	}
	for cp := range p.programs {
		cp.release()
	}
	for t := range p.textures {
		if t.buf != nil {
			t.buf.Release()
			t.buf = nil
		}
	}
	p.programs = nil
	p.textures = nil
	if p.queue != nil {
		p.queue.Release()
		p.queue = nil
	}
	p.context.Release()
	p.context = nil
	p.log.Info("OpenCL provider closed")
	return nil
}

var errClosed = errors.New("opencl provider closed")

func (p *Provider) textureUnchecked(tex wavesim.Texture) (*Texture, error) {
	if p.context == nil {
		return nil, errClosed
	}
	t, ok := tex.(*Texture)
	if !ok || t == nil {
		return nil, fmt.Errorf("%w: texture %T", wavesim.ErrForeignResource, tex)
	}
	if t.owner != p {
		return nil, wavesim.ErrForeignResource
	}
	if t.buf == nil {
		return nil, fmt.Errorf("%w: texture deleted", wavesim.ErrInvalidTexture)
	}
	return t, nil
}

// texture resolves tex and checks that it is registered with p.
func (p *Provider) texture(tex wavesim.Texture) (*Texture, error) {
	t, err := p.textureUnchecked(tex)
	if err != nil {
		return nil, err
	}
	if _, ok := p.textures[t]; !ok {
		return nil, fmt.Errorf("%w: texture deleted", wavesim.ErrInvalidTexture)
	}
	return t, nil
}

func (p *Provider) program(prog wavesim.Program) (*Program, error) {
	if p.context == nil {
		return nil, errClosed
	}
	cp, ok := prog.(*Program)
	if !ok || cp == nil {
		return nil, fmt.Errorf("%w: program %T", wavesim.ErrForeignResource, prog)
	}
	if cp.owner != p {
		return nil, wavesim.ErrForeignResource
	}
	if cp.kernel == nil {
		return nil, wavesim.ErrReleased
	}
	return cp, nil
}
