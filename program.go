package wavesim

import "fmt"

// ParamKind is the type of a program parameter.
type ParamKind int

const (
	ParamFloat ParamKind = iota
	ParamInt
	ParamSampler
)

// Param declares one uniform or sampler of a program.
type Param struct {
	Name string
	Kind ParamKind
}

// Standard attribute names of the full-screen quad.
const (
	AttribPosition     = "position"
	AttribTextureCoord = "textureCoord"
)

// ProgramSource carries one rendition of a program per provider dialect.
// Providers pick the rendition they execute and ignore the rest.
//
// Params is the program signature shared by the OpenCL, WGSL and host
// renditions: location i always names Params[i]. GLSL locations come from
// the linker instead.
type ProgramSource struct {
	Name string

	// VertexShader may be empty to select StandardVertexShader.
	VertexShader   string
	FragmentShader string

	Params []Param

	// OpenCL holds a kernel named Name taking
	// (__global float4* target, int width, int height, params...).
	OpenCL string

	// WGSL holds a compute entry point named Name. Binding 0 is a uniform
	// block {width, height, scalar params...}, binding 1 the target and
	// bindings 2.. the sampler params in declaration order.
	WGSL string

	Host HostKernel
}

// ParamLocation returns the location of the named parameter, or NoLocation.
func (s ProgramSource) ParamLocation(name string) Location {
	for i, p := range s.Params {
		if p.Name == name {
			return Location(i)
		}
	}
	return NoLocation
}

// QuadAttribLocation returns the fixed location of a standard quad
// attribute for providers without a vertex stage.
func QuadAttribLocation(name string) Location {
	switch name {
	case AttribPosition:
		return 0
	case AttribTextureCoord:
		return 1
	}
	return NoLocation
}

// StandardVertexShader passes position and texture coordinate through.
const StandardVertexShader = `#version 410 core
in vec3 position;
in vec2 textureCoord;
out vec2 vTextureCoord;

void main()
{
    gl_Position = vec4(position, 1.0);
    vTextureCoord = textureCoord;
}
`

// HostKernel is the Go rendition of a program, run by software providers
// over bands of target rows.
type HostKernel interface {
	Shade(inv *HostInvocation, y0, y1 int)
}

// HostKernelFunc adapts a function to HostKernel.
type HostKernelFunc func(inv *HostInvocation, y0, y1 int)

// Shade calls f.
func (f HostKernelFunc) Shade(inv *HostInvocation, y0, y1 int) { f(inv, y0, y1) }

// Sampler reads a host texture with the provider's addressing mode.
type Sampler struct {
	Width, Height int
	Texels        []FieldTexel
	Mode          AddressMode
}

// At returns the texel at (x, y), resolving out-of-range coordinates.
func (s *Sampler) At(x, y int) FieldTexel {
	return s.Texels[s.Mode.Resolve(y, s.Height)*s.Width+s.Mode.Resolve(x, s.Width)]
}

// HostInvocation is the state one host kernel dispatch sees: the target
// rows and the bound parameter values.
type HostInvocation struct {
	Width, Height int
	Target        []FieldTexel

	params   []Param
	uniforms []Uniform
	samplers []*Sampler
}

// NewHostInvocation binds the values of pass to params. The sampler callback
// resolves provider textures to host samplers.
func NewHostInvocation(params []Param, pass *Pass, width, height int, target []FieldTexel, sampler func(Texture) (*Sampler, error)) (*HostInvocation, error) {
	inv := &HostInvocation{
		Width:    width,
		Height:   height,
		Target:   target,
		params:   params,
		uniforms: make([]Uniform, len(params)),
		samplers: make([]*Sampler, len(params)),
	}
	for _, u := range pass.Uniforms {
		if u.Location == NoLocation {
			continue
		}
		if int(u.Location) >= len(params) {
			return nil, fmt.Errorf("uniform location %d out of range", u.Location)
		}
		inv.uniforms[u.Location] = u
	}
	for _, sb := range pass.Samplers {
		if sb.Location == NoLocation {
			continue
		}
		if int(sb.Location) >= len(params) || params[sb.Location].Kind != ParamSampler {
			return nil, fmt.Errorf("sampler location %d is not a sampler parameter", sb.Location)
		}
		s, err := sampler(sb.Texture)
		if err != nil {
			return nil, fmt.Errorf("binding %s: %w", params[sb.Location].Name, err)
		}
		inv.samplers[sb.Location] = s
	}
	return inv, nil
}

func (inv *HostInvocation) lookup(name string) int {
	for i, p := range inv.params {
		if p.Name == name {
			return i
		}
	}
	return -1
}

// Float returns the value of a float uniform, or 0 when unbound.
func (inv *HostInvocation) Float(name string) float32 {
	if i := inv.lookup(name); i >= 0 {
		return inv.uniforms[i].Float
	}
	return 0
}

// Int returns the value of an int uniform, or 0 when unbound.
func (inv *HostInvocation) Int(name string) int32 {
	if i := inv.lookup(name); i >= 0 {
		return inv.uniforms[i].Int
	}
	return 0
}

// Sampler returns the sampler bound to name, or nil.
func (inv *HostInvocation) Sampler(name string) *Sampler {
	if i := inv.lookup(name); i >= 0 {
		return inv.samplers[i]
	}
	return nil
}

// Row returns the target texels of row y.
func (inv *HostInvocation) Row(y int) []FieldTexel {
	return inv.Target[y*inv.Width : (y+1)*inv.Width]
}
