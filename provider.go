package wavesim

// Location identifies an attribute or uniform inside a compiled program.
type Location int32

// NoLocation is returned for names a program does not use. Values bound to
// it are ignored by every provider.
const NoLocation Location = -1

// Texture is a provider-owned 2D RGBA float texture.
type Texture interface {
	Size() (width, height int)
}

// Framebuffer is a render target wrapping exactly one texture.
type Framebuffer interface {
	Texture() Texture
}

// Program is a compiled and linked program.
type Program interface {
	AttribLocation(name string) Location
	UniformLocation(name string) Location
}

// ComputeProvider is the capability set the engine consumes: program
// compilation, framebuffer attachment, the standard quad and the contexts
// passes are issued on.
type ComputeProvider interface {
	Name() string
	// CreateProgram compiles src. Failures wrap ErrCompile.
	CreateProgram(src ProgramSource) (Program, error)
	DeleteProgram(p Program) error
	AttachFramebuffer(tex Texture) (Framebuffer, error)
	StandardVertices() Quad
	ComputeContext() Context
	RenderContext() Context
}

// TextureStore allocates textures and moves texels between host and device.
// Callers use it to seed and inspect state; the step path never does.
type TextureStore interface {
	NewTexture(width, height int) (Texture, error)
	WriteTexture(tex Texture, texels []FieldTexel) error
	// ReadTexture waits for pending passes writing tex before copying.
	ReadTexture(tex Texture, dst []FieldTexel) error
	DeleteTexture(tex Texture) error
}

// Provider is a complete backend.
type Provider interface {
	ComputeProvider
	TextureStore
	Close() error
}

// ProviderOptions are the settings shared by every provider.
type ProviderOptions struct {
	Addressing AddressMode
	Format     TextureFormat
}

// Context issues passes against a provider's device.
type Context interface {
	// Draw issues one pass. It returns once the work is queued.
	Draw(pass *Pass) error
	// Finish blocks until all queued passes complete.
	Finish() error
}

// Topology is the primitive assembly used for a quad.
type Topology int

const (
	TriangleStrip Topology = iota
)

// Interleaved layout of the standard quad: position (x, y, z) followed by
// texture coordinate (s, t).
const (
	QuadStride         = 20
	QuadPositionOffset = 0
	QuadTexCoordOffset = 12
	QuadVertexFloats   = 5
)

// Quad is interleaved vertex data for a full-screen quad.
type Quad struct {
	Vertices []float32
	Count    int
	Topology Topology
}

// StandardQuad returns the clip-space quad covering the whole target, drawn
// as a four-vertex triangle strip.
func StandardQuad() Quad {
	return Quad{
		Vertices: []float32{
			-1, -1, 0, 0, 0,
			1, -1, 0, 1, 0,
			-1, 1, 0, 0, 1,
			1, 1, 0, 1, 1,
		},
		Count:    4,
		Topology: TriangleStrip,
	}
}

// VertexAttrib describes one attribute inside the interleaved quad.
type VertexAttrib struct {
	Location Location
	Size     int
	Stride   int
	Offset   int
}

// UniformKind distinguishes scalar uniform types.
type UniformKind int

const (
	UniformFloat UniformKind = iota
	UniformInt
)

// Uniform is one scalar uniform value.
type Uniform struct {
	Location Location
	Kind     UniformKind
	Float    float32
	Int      int32
}

// Float1 builds a float uniform.
func Float1(loc Location, v float32) Uniform {
	return Uniform{Location: loc, Kind: UniformFloat, Float: v}
}

// Int1 builds an int uniform.
func Int1(loc Location, v int32) Uniform {
	return Uniform{Location: loc, Kind: UniformInt, Int: v}
}

// SamplerBinding binds a texture to a texture unit and points a sampler
// uniform at that unit.
type SamplerBinding struct {
	Location Location
	Unit     int
	Texture  Texture
}

// Pass is one full-screen draw of a program into a framebuffer.
type Pass struct {
	Program  Program
	Target   Framebuffer
	Quad     Quad
	Attribs  []VertexAttrib
	Uniforms []Uniform
	Samplers []SamplerBinding
}

// Sampler returns the texture bound at loc, or nil.
func (p *Pass) Sampler(loc Location) Texture {
	if loc == NoLocation {
		return nil
	}
	for _, s := range p.Samplers {
		if s.Location == loc {
			return s.Texture
		}
	}
	return nil
}
