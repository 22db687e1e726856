package wavesim

import (
	"image"
	"image/color"
	"math"
)

const colormapName = "colormap"

const colormapFragmentShader = `#version 410 core
uniform sampler2D waveFunction;

in vec2 vTextureCoord;
out vec4 fragColor;

void main()
{
    float psi = texture(waveFunction, vTextureCoord).r;
    fragColor = max(0.0, psi)*vec4(0.0, 0.0, 1.0, 1.0)
              + max(0.0, -psi)*vec4(1.0, 0.0, 0.0, 1.0);
}
`

const colormapOpenCL = `__kernel void colormap(
    __global TEXEL* target,
    const int width,
    const int height,
    __global const TEXEL* waveFunction)
{
    int x = get_global_id(0);
    int y = get_global_id(1);
    if (x >= width || y >= height) {
        return;
    }
    int idx = y * width + x;
    float psi = LOAD(waveFunction, idx).x;
    STORE(target, idx, fmax(0.0f, psi) * (float4)(0.0f, 0.0f, 1.0f, 1.0f)
        + fmax(0.0f, -psi) * (float4)(1.0f, 0.0f, 0.0f, 1.0f));
}
`

const colormapWGSL = `struct Params {
    width: u32,
    height: u32,
};

@group(0) @binding(0) var<uniform> params: Params;
@group(0) @binding(1) var<storage, read_write> dst: array<vec4<f32>>;
@group(0) @binding(2) var<storage, read> waveFunction: array<vec4<f32>>;

@compute @workgroup_size(8, 8)
fn colormap(@builtin(global_invocation_id) gid: vec3<u32>) {
    if (gid.x >= params.width || gid.y >= params.height) {
        return;
    }
    let idx = gid.y * params.width + gid.x;
    let psi = waveFunction[idx].x;
    dst[idx] = max(0.0, psi) * vec4<f32>(0.0, 0.0, 1.0, 1.0)
        + max(0.0, -psi) * vec4<f32>(1.0, 0.0, 0.0, 1.0);
}
`

// ColormapSource returns the program that maps amplitude to color: positive
// values blue, negative values red, with alpha equal to the magnitude.
func ColormapSource() ProgramSource {
	return ProgramSource{
		Name:           colormapName,
		FragmentShader: colormapFragmentShader,
		Params:         []Param{{Name: samplerWave, Kind: ParamSampler}},
		OpenCL:         colormapOpenCL,
		WGSL:           colormapWGSL,
		Host:           HostKernelFunc(shadeColormap),
	}
}

func shadeColormap(inv *HostInvocation, y0, y1 int) {
	src := inv.Sampler(samplerWave)
	if src == nil {
		return
	}
	for y := y0; y < y1; y++ {
		row := inv.Row(y)
		for x := range row {
			row[x] = colormapTexel(src.At(x, y).Amplitude)
		}
	}
}

func colormapTexel(psi float32) FieldTexel {
	pos := float32(math.Max(0, float64(psi)))
	neg := float32(math.Max(0, float64(-psi)))
	return FieldTexel{Amplitude: neg, Speed: 0, Aux: [2]float32{pos, pos + neg}}
}

// Plotter renders field textures through the colormap program. It is the
// display-side companion of Engine and shares its provider.
type Plotter struct {
	provider ComputeProvider
	program  Program
	pass     Pass
	released bool
}

// NewPlotter compiles the colormap program on provider.
func NewPlotter(provider ComputeProvider) (*Plotter, error) {
	prog, err := compileProgram(provider, ColormapSource())
	if err != nil {
		return nil, err
	}
	p := &Plotter{provider: provider, program: prog}
	p.pass = Pass{
		Program: prog,
		Quad:    provider.StandardVertices(),
		Attribs: []VertexAttrib{
			{Location: prog.AttribLocation(AttribPosition), Size: 3, Stride: QuadStride, Offset: QuadPositionOffset},
			{Location: prog.AttribLocation(AttribTextureCoord), Size: 2, Stride: QuadStride, Offset: QuadTexCoordOffset},
		},
		Samplers: []SamplerBinding{{Location: prog.UniformLocation(samplerWave), Unit: 0}},
	}
	return p, nil
}

// Render draws src into dst on the provider's rendering context.
func (p *Plotter) Render(src Texture, dst Framebuffer) error {
	if p.released {
		return ErrReleased
	}
	p.pass.Target = dst
	p.pass.Samplers[0].Texture = src
	return p.provider.RenderContext().Draw(&p.pass)
}

// Done releases the colormap program. It is idempotent.
func (p *Plotter) Done() error {
	if p.released {
		return nil
	}
	p.released = true
	return p.provider.DeleteProgram(p.program)
}

// TexelColor converts a colormapped texel to 8-bit RGBA, clamping channels.
func TexelColor(t FieldTexel) color.RGBA {
	return color.RGBA{
		R: unitToByte(t.Amplitude),
		G: unitToByte(t.Speed),
		B: unitToByte(t.Aux[0]),
		A: unitToByte(t.Aux[1]),
	}
}

// Colorize writes the colormap of f into dst, which must match its size.
// Opaque black is used as the background.
func Colorize(f *Field, dst *image.RGBA) {
	for y := 0; y < f.Height; y++ {
		row := dst.Pix[y*dst.Stride : y*dst.Stride+f.Width*4]
		for x := 0; x < f.Width; x++ {
			c := TexelColor(colormapTexel(f.Amplitude(x, y)))
			base := x * 4
			row[base] = c.R
			row[base+1] = c.G
			row[base+2] = c.B
			row[base+3] = 255
		}
	}
}

func unitToByte(v float32) uint8 {
	switch {
	case !(v > 0):
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}
