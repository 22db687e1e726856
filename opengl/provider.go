//go:build gl

// Package opengl runs wavesim programs as GLSL fragment shaders drawn over a
// full-screen quad into framebuffer-attached float textures.
//
// OpenGL contexts are bound to one OS thread, so every GL call is made by a
// single worker goroutine that owns a hidden GLFW window.
package opengl

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"go.uber.org/zap"

	"wavesim"
)

const providerName = "opengl"

// Texture is a 2D float texture with an optional framebuffer object.
type Texture struct {
	owner         *Provider
	id            uint32
	fbo           uint32
	width, height int
}

// Size reports the texture dimensions.
func (t *Texture) Size() (int, int) { return t.width, t.height }

// Framebuffer renders into one Texture through its cached FBO.
type Framebuffer struct {
	tex *Texture
}

// Texture returns the attached texture.
func (f *Framebuffer) Texture() wavesim.Texture { return f.tex }

// Program is a linked GLSL program.
type Program struct {
	owner *Provider
	id    uint32
	name  string
}

// AttribLocation queries the linker for an attribute location.
func (p *Program) AttribLocation(name string) wavesim.Location {
	loc := wavesim.NoLocation
	_ = p.owner.do(func() error {
		loc = wavesim.Location(gl.GetAttribLocation(p.id, gl.Str(name+"\x00")))
		return nil
	})
	return loc
}

// UniformLocation queries the linker for a uniform location. Uniforms the
// shader never reads are dropped by the linker and report NoLocation.
func (p *Program) UniformLocation(name string) wavesim.Location {
	loc := wavesim.NoLocation
	_ = p.owner.do(func() error {
		loc = wavesim.Location(gl.GetUniformLocation(p.id, gl.Str(name+"\x00")))
		return nil
	})
	return loc
}

type call struct {
	fn   func() error
	done chan error
}

// Provider implements wavesim.Provider on an OpenGL 4.1 core context.
type Provider struct {
	opts     wavesim.ProviderOptions
	calls    chan call
	closed   bool
	window   *glfw.Window
	vao, vbo uint32
	quad     wavesim.Quad
	ctx      *glContext
	renderer string
	log      *zap.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithOptions applies the shared provider settings.
func WithOptions(o wavesim.ProviderOptions) Option {
	return func(p *Provider) { p.opts = o }
}

// Open returns a provider on a hidden-window OpenGL context.
func Open(o wavesim.ProviderOptions) (wavesim.Provider, error) {
	p, err := New(WithOptions(o))
	if err != nil {
		return nil, err
	}
	return p, nil
}

// New starts the GL worker, creates the context and uploads the quad.
func New(opts ...Option) (*Provider, error) {
	p := &Provider{
		calls: make(chan call),
		quad:  wavesim.StandardQuad(),
		log:   wavesim.Logger().With(zap.String("provider", providerName)),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.ctx = &glContext{p: p}

	ready := make(chan error, 1)
	go p.worker(ready)
	if err := <-ready; err != nil {
		return nil, err
	}
	p.log.Info("OpenGL provider ready",
		zap.String("renderer", p.renderer),
		zap.Stringer("addressing", p.opts.Addressing),
		zap.Stringer("format", p.opts.Format),
	)
	return p, nil
}

// worker owns the GL context and runs every queued call on a locked OS
// thread until Close.
func (p *Provider) worker(ready chan<- error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := p.initGL(); err != nil {
		ready <- err
		return
	}
	ready <- nil
	for c := range p.calls {
		c.done <- c.fn()
	}
}

func (p *Provider) initGL() error {
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("glfw init: %w", err)
	}
	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	w, err := glfw.CreateWindow(1, 1, "wavesim", nil, nil)
	if err != nil {
		glfw.Terminate()
		return fmt.Errorf("glfw create window: %w", err)
	}
	w.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		w.Destroy()
		glfw.Terminate()
		return fmt.Errorf("gl init: %w", err)
	}
	p.window = w
	p.renderer = gl.GoStr(gl.GetString(gl.RENDERER))

	gl.GenVertexArrays(1, &p.vao)
	gl.GenBuffers(1, &p.vbo)
	gl.BindVertexArray(p.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, p.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(p.quad.Vertices)*4, gl.Ptr(p.quad.Vertices), gl.STATIC_DRAW)
	gl.BindVertexArray(0)
	gl.PixelStorei(gl.PACK_ALIGNMENT, 4)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 4)
	return nil
}

var errClosed = errors.New("opengl provider closed")

// do runs fn on the GL thread and waits for it.
func (p *Provider) do(fn func() error) error {
	if p.closed {
		return errClosed
	}
	done := make(chan error, 1)
	p.calls <- call{fn: fn, done: done}
	return <-done
}

// Name identifies the provider.
func (p *Provider) Name() string { return providerName }

// Renderer reports the GL_RENDERER string of the context.
func (p *Provider) Renderer() string { return p.renderer }

// CreateProgram compiles and links the program's GLSL renditions.
func (p *Provider) CreateProgram(src wavesim.ProgramSource) (wavesim.Program, error) {
	if src.FragmentShader == "" {
		return nil, fmt.Errorf("%w: %s has no GLSL rendition", wavesim.ErrCompile, src.Name)
	}
	vertex := src.VertexShader
	if vertex == "" {
		vertex = wavesim.StandardVertexShader
	}
	var prog *Program
	err := p.do(func() error {
		id, err := linkProgram(vertex, src.FragmentShader)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", wavesim.ErrCompile, src.Name, err)
		}
		prog = &Program{owner: p, id: id, name: src.Name}
		return nil
	})
	if err != nil {
		return nil, err
	}
	p.log.Debug("program linked", zap.String("program", src.Name))
	return prog, nil
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("shader compile error: %s", strings.TrimRight(log, "\x00"))
	}
	return shader, nil
}

func linkProgram(vertexSource, fragmentSource string) (uint32, error) {
	vertexShader, err := compileShader(vertexSource, gl.VERTEX_SHADER)
	if err != nil {
		return 0, err
	}
	fragmentShader, err := compileShader(fragmentSource, gl.FRAGMENT_SHADER)
	if err != nil {
		gl.DeleteShader(vertexShader)
		return 0, err
	}
	prog := gl.CreateProgram()
	gl.AttachShader(prog, vertexShader)
	gl.AttachShader(prog, fragmentShader)
	gl.LinkProgram(prog)
	gl.DeleteShader(vertexShader)
	gl.DeleteShader(fragmentShader)

	var status int32
	gl.GetProgramiv(prog, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(prog, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(prog, logLength, nil, gl.Str(log))
		gl.DeleteProgram(prog)
		return 0, fmt.Errorf("program link error: %s", strings.TrimRight(log, "\x00"))
	}
	return prog, nil
}

// DeleteProgram deletes the GL program object.
func (p *Provider) DeleteProgram(prog wavesim.Program) error {
	gp, err := p.program(prog)
	if err != nil {
		return err
	}
	return p.do(func() error {
		gl.DeleteProgram(gp.id)
		gp.id = 0
		return nil
	})
}

// AttachFramebuffer returns a framebuffer rendering into tex. The FBO is
// created on first use and shared by later attachments of the same texture.
func (p *Provider) AttachFramebuffer(tex wavesim.Texture) (wavesim.Framebuffer, error) {
	t, err := p.texture(tex)
	if err != nil {
		return nil, err
	}
	err = p.do(func() error {
		if t.fbo != 0 {
			return nil
		}
		gl.GenFramebuffers(1, &t.fbo)
		gl.BindFramebuffer(gl.FRAMEBUFFER, t.fbo)
		gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, t.id, 0)
		status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		if status != gl.FRAMEBUFFER_COMPLETE {
			gl.DeleteFramebuffers(1, &t.fbo)
			t.fbo = 0
			return fmt.Errorf("%w: framebuffer incomplete (0x%x)", wavesim.ErrInvalidTexture, status)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &Framebuffer{tex: t}, nil
}

// StandardVertices returns the full-screen quad held in the provider's VBO.
func (p *Provider) StandardVertices() wavesim.Quad { return p.quad }

// ComputeContext returns the GL context.
func (p *Provider) ComputeContext() wavesim.Context { return p.ctx }

// RenderContext returns the GL context; there is only one.
func (p *Provider) RenderContext() wavesim.Context { return p.ctx }

func (p *Provider) internalFormat() int32 {
	if p.opts.Format == wavesim.Float16 {
		return gl.RGBA16F
	}
	return gl.RGBA32F
}

func (p *Provider) wrapMode() int32 {
	if p.opts.Addressing == wavesim.Clamp {
		return gl.CLAMP_TO_EDGE
	}
	return gl.REPEAT
}

// NewTexture allocates a zeroed float texture with nearest filtering.
func (p *Provider) NewTexture(width, height int) (wavesim.Texture, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: size %dx%d", wavesim.ErrInvalidTexture, width, height)
	}
	t := &Texture{owner: p, width: width, height: height}
	zeros := make([]float32, wavesim.TexelChannels*width*height)
	err := p.do(func() error {
		gl.GenTextures(1, &t.id)
		gl.BindTexture(gl.TEXTURE_2D, t.id)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, p.wrapMode())
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, p.wrapMode())
		gl.TexImage2D(gl.TEXTURE_2D, 0, p.internalFormat(), int32(width), int32(height), 0, gl.RGBA, gl.FLOAT, gl.Ptr(zeros))
		return glError("allocating texture")
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

// WriteTexture uploads texels. Half-float textures are converted by the
// driver.
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
	return p.do(func() error {
		gl.BindTexture(gl.TEXTURE_2D, t.id)
		gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(t.width), int32(t.height), gl.RGBA, gl.FLOAT, gl.Ptr(flat))
		return glError("writing texture")
	})
}

// ReadTexture downloads tex into dst.
func (p *Provider) ReadTexture(tex wavesim.Texture, dst []wavesim.FieldTexel) error {
	t, err := p.texture(tex)
	if err != nil {
		return err
	}
	if len(dst) != t.width*t.height {
		return fmt.Errorf("%w: %d texels for a %dx%d texture", wavesim.ErrInvalidTexture, len(dst), t.width, t.height)
	}
	flat := make([]float32, wavesim.TexelChannels*len(dst))
	err = p.do(func() error {
		gl.BindTexture(gl.TEXTURE_2D, t.id)
		gl.GetTexImage(gl.TEXTURE_2D, 0, gl.RGBA, gl.FLOAT, gl.Ptr(flat))
		return glError("reading texture")
	})
	if err != nil {
		return err
	}
	wavesim.UnpackTexels(dst, flat)
	return nil
}

// DeleteTexture deletes the texture and its cached FBO.
func (p *Provider) DeleteTexture(tex wavesim.Texture) error {
	t, err := p.texture(tex)
	if err != nil {
		return err
	}
	return p.do(func() error {
		if t.fbo != 0 {
			gl.DeleteFramebuffers(1, &t.fbo)
			t.fbo = 0
		}
		gl.DeleteTextures(1, &t.id)
		t.id = 0
		return nil
	})
}

// Close destroys the context and stops the GL worker. Resources the caller
// did not delete go with the context.
func (p *Provider) Close() error {
	if p.closed {
		return nil
	}
	err := p.do(func() error {
		gl.DeleteBuffers(1, &p.vbo)
		gl.DeleteVertexArrays(1, &p.vao)
		p.window.Destroy()
		glfw.Terminate()
		return nil
	})
	p.closed = true
	close(p.calls)
	p.log.Info("OpenGL provider closed")
	return err
}

func glError(op string) error {
	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("%s: GL error 0x%x", op, code)
	}
	return nil
}

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
	if t.id == 0 {
		return nil, fmt.Errorf("%w: texture deleted", wavesim.ErrInvalidTexture)
	}
	return t, nil
}

func (p *Provider) program(prog wavesim.Program) (*Program, error) {
	if p.closed {
		return nil, errClosed
	}
	gp, ok := prog.(*Program)
	if !ok || gp == nil {
		return nil, fmt.Errorf("%w: program %T", wavesim.ErrForeignResource, prog)
	}
	if gp.owner != p {
		return nil, wavesim.ErrForeignResource
	}
	if gp.id == 0 {
		return nil, wavesim.ErrReleased
	}
	return gp, nil
}
