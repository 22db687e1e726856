package wavesim

import (
	"errors"
	"fmt"
)

// Names of the update kernel's inputs.
const (
	uniformDt          = "dt"
	uniformXLength     = "xLength"
	uniformYLength     = "yLength"
	uniformXResolution = "xResolution"
	uniformYResolution = "yResolution"
	samplerOldWave     = "oldWaveFunction"
	samplerWave        = "waveFunction"
	samplerPotential   = "potential"
)

// Texture units the update kernel samples from.
const (
	oldWaveUnit = 1
	waveUnit    = 2
)

const waveStepName = "wave_step"

// The potential sampler is declared for compatibility but never read, so
// linkers drop it and its location resolves to NoLocation.
const waveStepFragmentShader = `#version 410 core
uniform float dt;
uniform float xLength;
uniform float yLength;
uniform sampler2D oldWaveFunction;
uniform int xResolution;
uniform int yResolution;
uniform sampler2D waveFunction;
uniform sampler2D potential;

in vec2 vTextureCoord;
out vec4 fragColor;

void main()
{
    float dx = xLength/float(xResolution);
    float dy = yLength/float(yResolution);
    vec2 dss = vec2(1.0/float(xResolution), 0.0);
    vec2 dtt = vec2(0.0, 1.0/float(yResolution));
    vec4 value = texture(waveFunction, vTextureCoord);

    fragColor.r = 2.0*value.r
        - texture(oldWaveFunction, vTextureCoord).r
        + value.g*dt*dt*(texture(waveFunction, vTextureCoord+dss).r
            + texture(waveFunction, vTextureCoord-dss).r
            - 2.0*value.r)/(dx*dx)
        + value.g*dt*dt*(texture(waveFunction, vTextureCoord+dtt).r
            + texture(waveFunction, vTextureCoord-dtt).r
            - 2.0*value.r)/(dy*dy);
    fragColor.g = value.g;
    fragColor.ba = value.ba;
}
`

const waveStepOpenCL = `__kernel void wave_step(
    __global TEXEL* target,
    const int width,
    const int height,
    const float dt,
    const float xLength,
    const float yLength,
    __global const TEXEL* oldWaveFunction,
    const int xResolution,
    const int yResolution,
    __global const TEXEL* waveFunction)
{
    int x = get_global_id(0);
    int y = get_global_id(1);
    if (x >= width || y >= height) {
        return;
    }
    int idx = y * width + x;
    float dx = xLength / (float)xResolution;
    float dy = yLength / (float)yResolution;
    float4 value = LOAD(waveFunction, idx);
    float xp = LOAD(waveFunction, resolve(y, height) * width + resolve(x + 1, width)).x;
    float xm = LOAD(waveFunction, resolve(y, height) * width + resolve(x - 1, width)).x;
    float yp = LOAD(waveFunction, resolve(y + 1, height) * width + resolve(x, width)).x;
    float ym = LOAD(waveFunction, resolve(y - 1, height) * width + resolve(x, width)).x;
    float4 next = value;
    next.x = 2.0f * value.x
        - LOAD(oldWaveFunction, idx).x
        + value.y * dt * dt * (xp + xm - 2.0f * value.x) / (dx * dx)
        + value.y * dt * dt * (yp + ym - 2.0f * value.x) / (dy * dy);
    STORE(target, idx, next);
}
`

const waveStepWGSL = `struct Params {
    width: u32,
    height: u32,
    dt: f32,
    xLength: f32,
    yLength: f32,
    xResolution: i32,
    yResolution: i32,
};

@group(0) @binding(0) var<uniform> params: Params;
@group(0) @binding(1) var<storage, read_write> dst: array<vec4<f32>>;
@group(0) @binding(2) var<storage, read> oldWaveFunction: array<vec4<f32>>;
@group(0) @binding(3) var<storage, read> waveFunction: array<vec4<f32>>;

fn texel_index(x: i32, y: i32) -> u32 {
    let w = i32(params.width);
    let h = i32(params.height);
    return u32(resolve(y, h) * w + resolve(x, w));
}

@compute @workgroup_size(8, 8)
fn wave_step(@builtin(global_invocation_id) gid: vec3<u32>) {
    if (gid.x >= params.width || gid.y >= params.height) {
        return;
    }
    let x = i32(gid.x);
    let y = i32(gid.y);
    let idx = gid.y * params.width + gid.x;
    let dx = params.xLength / f32(params.xResolution);
    let dy = params.yLength / f32(params.yResolution);
    let value = waveFunction[idx];
    let xp = waveFunction[texel_index(x + 1, y)].x;
    let xm = waveFunction[texel_index(x - 1, y)].x;
    let yp = waveFunction[texel_index(x, y + 1)].x;
    let ym = waveFunction[texel_index(x, y - 1)].x;
    let amp = 2.0 * value.x
        - oldWaveFunction[idx].x
        + value.y * params.dt * params.dt * (xp + xm - 2.0 * value.x) / (dx * dx)
        + value.y * params.dt * params.dt * (yp + ym - 2.0 * value.x) / (dy * dy);
    dst[idx] = vec4<f32>(amp, value.y, value.z, value.w);
}
`

// UpdateKernelSource returns the leapfrog update program in every dialect.
//
// For each texel it computes
//
//	new.r = 2*cur.r - old.r + cur.g*dt^2*(lap_x/dx^2 + lap_y/dy^2)
//	new.g = cur.g
//
// where cur and old are the waveFunction and oldWaveFunction samplers and
// neighbor lookups follow the provider's AddressMode.
func UpdateKernelSource() ProgramSource {
	return ProgramSource{
		Name:           waveStepName,
		FragmentShader: waveStepFragmentShader,
		Params: []Param{
			{Name: uniformDt, Kind: ParamFloat},
			{Name: uniformXLength, Kind: ParamFloat},
			{Name: uniformYLength, Kind: ParamFloat},
			{Name: samplerOldWave, Kind: ParamSampler},
			{Name: uniformXResolution, Kind: ParamInt},
			{Name: uniformYResolution, Kind: ParamInt},
			{Name: samplerWave, Kind: ParamSampler},
		},
		OpenCL: waveStepOpenCL,
		WGSL:   waveStepWGSL,
		Host:   HostKernelFunc(shadeWaveStep),
	}
}

// updateKernel is the compiled update program together with its resolved
// attribute and uniform locations and a reusable pass.
type updateKernel struct {
	program Program

	position     Location
	textureCoord Location

	dt          Location
	xLength     Location
	yLength     Location
	xResolution Location
	yResolution Location
	oldWave     Location
	wave        Location
	potential   Location

	pass Pass
}

func compileProgram(p ComputeProvider, src ProgramSource) (Program, error) {
	prog, err := p.CreateProgram(src)
	if err != nil {
		if !errors.Is(err, ErrCompile) {
			err = fmt.Errorf("%w: %w", ErrCompile, err)
		}
		return nil, fmt.Errorf("creating %s program on %s: %w", src.Name, p.Name(), err)
	}
	return prog, nil
}

func newUpdateKernel(p ComputeProvider, g Grid, dt float64) (*updateKernel, error) {
	prog, err := compileProgram(p, UpdateKernelSource())
	if err != nil {
		return nil, err
	}
	k := &updateKernel{
		program:      prog,
		position:     prog.AttribLocation(AttribPosition),
		textureCoord: prog.AttribLocation(AttribTextureCoord),
		dt:           prog.UniformLocation(uniformDt),
		xLength:      prog.UniformLocation(uniformXLength),
		yLength:      prog.UniformLocation(uniformYLength),
		xResolution:  prog.UniformLocation(uniformXResolution),
		yResolution:  prog.UniformLocation(uniformYResolution),
		oldWave:      prog.UniformLocation(samplerOldWave),
		wave:         prog.UniformLocation(samplerWave),
		potential:    prog.UniformLocation(samplerPotential),
	}
	k.pass = Pass{
		Program: prog,
		Quad:    p.StandardVertices(),
		Attribs: []VertexAttrib{
			{Location: k.position, Size: 3, Stride: QuadStride, Offset: QuadPositionOffset},
			{Location: k.textureCoord, Size: 2, Stride: QuadStride, Offset: QuadTexCoordOffset},
		},
		Uniforms: []Uniform{
			Float1(k.dt, float32(dt)),
			Int1(k.xResolution, int32(g.XResolution)),
			Int1(k.yResolution, int32(g.YResolution)),
			Float1(k.xLength, float32(g.XLength)),
			Float1(k.yLength, float32(g.YLength)),
		},
		Samplers: make([]SamplerBinding, 2),
	}
	return k, nil
}

// bind points the reusable pass at this call's target and sources.
func (k *updateKernel) bind(target Framebuffer, old, cur Texture) *Pass {
	k.pass.Target = target
	k.pass.Samplers[0] = SamplerBinding{Location: k.oldWave, Unit: oldWaveUnit, Texture: old}
	k.pass.Samplers[1] = SamplerBinding{Location: k.wave, Unit: waveUnit, Texture: cur}
	return &k.pass
}
