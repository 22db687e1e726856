//go:build wgpu

// Package webgpu runs wavesim programs as WGSL compute shaders. Textures are
// storage buffers of vec4<f32> texels and each pass dispatches 8x8
// workgroups over the target.
package webgpu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"strings"
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/gogpu/naga"
	"go.uber.org/zap"

	"wavesim"
)

const providerName = "webgpu"

// Texture is a storage buffer holding width*height vec4<f32> texels.
type Texture struct {
	owner         *Provider
	width, height int
	buf           *wgpu.Buffer
	size          uint64
}

// Size reports the texture dimensions.
func (t *Texture) Size() (int, int) { return t.width, t.height }

// Framebuffer renders into one Texture.
type Framebuffer struct {
	tex *Texture
}

// Texture returns the attached texture.
func (f *Framebuffer) Texture() wavesim.Texture { return f.tex }

// Program is a compute pipeline with its uniform block.
type Program struct {
	owner    *Provider
	src      wavesim.ProgramSource
	shader   *wgpu.ShaderModule
	pipeline *wgpu.ComputePipeline
	layout   *wgpu.BindGroupLayout
	params   *wgpu.Buffer
	block    []byte
}

// AttribLocation returns the fixed location of a standard quad attribute.
func (p *Program) AttribLocation(name string) wavesim.Location {
	return wavesim.QuadAttribLocation(name)
}

// UniformLocation returns the index of the named parameter.
func (p *Program) UniformLocation(name string) wavesim.Location {
	return p.src.ParamLocation(name)
}

// Provider implements wavesim.Provider on a WebGPU device.
type Provider struct {
	opts        wavesim.ProviderOptions
	instance    *wgpu.Instance
	adapter     *wgpu.Adapter
	device      *wgpu.Device
	queue       *wgpu.Queue
	adapterName string

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

// Open returns a provider on the high-performance adapter.
func Open(o wavesim.ProviderOptions) (wavesim.Provider, error) {
	p, err := New(WithOptions(o))
	if err != nil {
		return nil, err
	}
	return p, nil
}

// New requests an adapter and device. Storage buffers hold float32 texels,
// so Float16 is rejected.
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
	if p.opts.Format != wavesim.Float32 {
		return nil, fmt.Errorf("%w: webgpu provider stores %s only, got %s",
			wavesim.ErrInvalidConfig, wavesim.Float32, p.opts.Format)
	}

	instance := wgpu.CreateInstance(nil)
	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		instance.Release()
		return nil, fmt.Errorf("failed to get GPU adapter: %w", err)
	}
	device, err := adapter.RequestDevice(nil)
	if err != nil {
		adapter.Release()
		instance.Release()
		return nil, fmt.Errorf("failed to get GPU device: %w", err)
	}
	p.instance = instance
	p.adapter = adapter
	p.device = device
	p.queue = device.GetQueue()
	p.adapterName = adapter.GetInfo().Name
	p.ctx = &queueContext{p: p}
	p.log.Info("WebGPU provider ready",
		zap.String("adapter", p.adapterName),
		zap.Stringer("addressing", p.opts.Addressing),
	)
	return p, nil
}

// Name identifies the provider.
func (p *Provider) Name() string { return providerName }

// AdapterName reports the adapter the device was created on.
func (p *Provider) AdapterName() string { return p.adapterName }

// CreateProgram validates src.WGSL with naga, then builds the pipeline and
// its uniform buffer.
func (p *Provider) CreateProgram(src wavesim.ProgramSource) (wavesim.Program, error) {
	if p.device == nil {
		return nil, errClosed
	}
	if src.WGSL == "" {
		return nil, fmt.Errorf("%w: %s has no WGSL rendition", wavesim.ErrCompile, src.Name)
	}
	code := wavesim.WGSLPrelude(p.opts.Addressing) + src.WGSL
	if _, err := naga.Compile(code); err != nil {
		msg := err.Error()
		if !strings.Contains(msg, "not yet implemented") && !strings.Contains(msg, "not supported") {
			return nil, fmt.Errorf("%w: %s: %w", wavesim.ErrCompile, src.Name, err)
		}
		p.log.Debug("naga cannot validate program, deferring to the device",
			zap.String("program", src.Name), zap.Error(err))
	}

	shader, err := p.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: src.Name,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: code,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", wavesim.ErrCompile, src.Name, err)
	}
	pipeline, err := p.device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label: src.Name,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     shader,
			EntryPoint: src.Name,
		},
	})
	if err != nil {
		shader.Release()
		return nil, fmt.Errorf("%w: %s pipeline: %w", wavesim.ErrCompile, src.Name, err)
	}
	block := make([]byte, paramBlockSize(src.Params))
	params, err := p.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: src.Name + "_params",
		Size:  uint64(len(block)),
		Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		pipeline.Release()
		shader.Release()
		return nil, fmt.Errorf("allocating %s uniforms: %w", src.Name, err)
	}
	prog := &Program{
		owner:    p,
		src:      src,
		shader:   shader,
		pipeline: pipeline,
		layout:   pipeline.GetBindGroupLayout(0),
		params:   params,
		block:    block,
	}
	p.programs[prog] = struct{}{}
	p.log.Debug("pipeline created", zap.String("program", src.Name), zap.Int("uniform_bytes", len(block)))
	return prog, nil
}

// DeleteProgram releases the pipeline, shader and uniform buffer.
func (p *Provider) DeleteProgram(prog wavesim.Program) error {
	wp, err := p.program(prog)
	if err != nil {
		return err
	}
	wp.release()
	delete(p.programs, wp)
	return nil
}

func (wp *Program) release() {
	if wp.pipeline == nil {
		return
	}
	wp.params.Release()
	wp.layout.Release()
	wp.pipeline.Release()
	wp.shader.Release()
	wp.pipeline = nil
}

// AttachFramebuffer wraps tex as a render target.
func (p *Provider) AttachFramebuffer(tex wavesim.Texture) (wavesim.Framebuffer, error) {
	t, err := p.texture(tex)
	if err != nil {
		return nil, err
	}
	return &Framebuffer{tex: t}, nil
}

// StandardVertices returns the full-screen quad; dispatches cover the
// target directly.
func (p *Provider) StandardVertices() wavesim.Quad { return p.quad }

// ComputeContext returns the queue context.
func (p *Provider) ComputeContext() wavesim.Context { return p.ctx }

// RenderContext returns the same queue context.
func (p *Provider) RenderContext() wavesim.Context { return p.ctx }

// NewTexture allocates a zeroed storage buffer.
func (p *Provider) NewTexture(width, height int) (wavesim.Texture, error) {
	if p.device == nil {
		return nil, errClosed
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: size %dx%d", wavesim.ErrInvalidTexture, width, height)
	}
	size := uint64(width * height * texelBytes)
	buf, err := p.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: fmt.Sprintf("texture_%dx%d", width, height),
		Size:  size,
		Usage: wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("allocating %dx%d texture: %w", width, height, err)
	}
	t := &Texture{owner: p, width: width, height: height, buf: buf, size: size}
	p.textures[t] = struct{}{}
	if err := p.WriteTexture(t, make([]wavesim.FieldTexel, width*height)); err != nil {
		_ = p.DeleteTexture(t)
		return nil, err
	}
	return t, nil
}

func float32Bytes(data []float32) []byte {
	if len(data) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&data[0])), len(data)*4)
}

// WriteTexture uploads texels through the queue.
func (p *Provider) WriteTexture(tex wavesim.Texture, texels []wavesim.FieldTexel) error {
	t, err := p.texture(tex)
	if err != nil {
		return err
	}
	if len(texels) != t.width*t.height {
		return fmt.Errorf("%w: %d texels for a %dx%d texture", wavesim.ErrInvalidTexture, len(texels), t.width, t.height)
	}
	flat := make([]float32, wavesim.TexelChannels*len(texels))
	wavesim.PackTexels(flat, texels)
	p.queue.WriteBuffer(t.buf, 0, float32Bytes(flat))
	return nil
}

// ReadTexture copies tex into a staging buffer and maps it. It waits for
// every submitted pass.
func (p *Provider) ReadTexture(tex wavesim.Texture, dst []wavesim.FieldTexel) error {
	t, err := p.texture(tex)
	if err != nil {
		return err
	}
	if len(dst) != t.width*t.height {
		return fmt.Errorf("%w: %d texels for a %dx%d texture", wavesim.ErrInvalidTexture, len(dst), t.width, t.height)
	}
	staging, err := p.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label: "staging_read",
		Size:  t.size,
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("failed to create staging buffer: %w", err)
	}
	defer staging.Release()

	encoder, err := p.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("failed to create command encoder: %w", err)
	}
	encoder.CopyBufferToBuffer(t.buf, 0, staging, 0, t.size)
	commands, err := encoder.Finish(nil)
	encoder.Release()
	if err != nil {
		return fmt.Errorf("failed to finish encoder: %w", err)
	}
	p.queue.Submit(commands)
	commands.Release()

	done := make(chan error, 1)
	err = staging.MapAsync(wgpu.MapModeRead, 0, t.size, func(status wgpu.BufferMapAsyncStatus) {
		if status != wgpu.BufferMapAsyncStatusSuccess {
			done <- fmt.Errorf("failed to map buffer: %v", status)
		} else {
			done <- nil
		}
	})
	if err != nil {
		return err
	}
	p.device.Poll(true, nil)
	if err := <-done; err != nil {
		return err
	}

	mapped := staging.GetMappedRange(0, uint(t.size))
	flat := make([]float32, wavesim.TexelChannels*len(dst))
	for i := range flat {
		flat[i] = math.Float32frombits(binary.LittleEndian.Uint32(mapped[i*4:]))
	}
	staging.Unmap()
	wavesim.UnpackTexels(dst, flat)
	return nil
}

// DeleteTexture releases the storage buffer.
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

// Close releases every live resource, the device and the instance.
func (p *Provider) Close() error {
	if p.device == nil {
		return nil
	}
	for wp := range p.programs {
		wp.release()
	}
	for t := range p.textures {
		t.buf.Release()
		t.buf = nil
	}
	p.programs = nil
	p.textures = nil
	p.queue.Release()
	p.device.Release()
	p.adapter.Release()
	p.instance.Release()
	p.device = nil
	p.log.Info("WebGPU provider closed")
	return nil
}

var errClosed = errors.New("webgpu provider closed")

func (p *Provider) texture(tex wavesim.Texture) (*Texture, error) {
	if p.device == nil {
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

func (p *Provider) program(prog wavesim.Program) (*Program, error) {
	if p.device == nil {
		return nil, errClosed
	}
	wp, ok := prog.(*Program)
	if !ok || wp == nil {
		return nil, fmt.Errorf("%w: program %T", wavesim.ErrForeignResource, prog)
	}
	if wp.owner != p {
		return nil, wavesim.ErrForeignResource
	}
	if wp.pipeline == nil {
		return nil, wavesim.ErrReleased
	}
	return wp, nil
}
