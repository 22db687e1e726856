//go:build gl

package opengl

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"

	"wavesim"
)

// glContext draws passes on the provider's GL context. Draw returns once
// the commands are issued; Finish waits for the GPU.
type glContext struct {
	p *Provider
}

func (c *glContext) Finish() error {
	return c.p.do(func() error {
		gl.Finish()
		return glError("finish")
	})
}

func (c *glContext) Draw(pass *wavesim.Pass) error {
	p := c.p
	if pass == nil {
		return fmt.Errorf("nil pass")
	}
	prog, err := p.program(pass.Program)
	if err != nil {
		return err
	}
	if pass.Target == nil {
		return fmt.Errorf("%w: nil target framebuffer", wavesim.ErrInvalidTexture)
	}
	fb, ok := pass.Target.(*Framebuffer)
	if !ok {
		return fmt.Errorf("%w: framebuffer %T", wavesim.ErrForeignResource, pass.Target)
	}
	target, err := p.texture(fb.tex)
	if err != nil {
		return err
	}
	if target.fbo == 0 {
		return fmt.Errorf("%w: texture has no framebuffer", wavesim.ErrInvalidTexture)
	}
	if pass.Quad.Count != 4 || pass.Quad.Topology != wavesim.TriangleStrip {
		return fmt.Errorf("only the full-screen quad strip is supported, got %d vertices", pass.Quad.Count)
	}

	type boundSampler struct {
		loc  int32
		unit uint32
		id   uint32
	}
	samplers := make([]boundSampler, 0, len(pass.Samplers))
	for _, sb := range pass.Samplers {
		if sb.Location == wavesim.NoLocation {
			continue
		}
		src, err := p.texture(sb.Texture)
		if err != nil {
			return fmt.Errorf("binding sampler %d: %w", sb.Location, err)
		}
		if src == target {
			return fmt.Errorf("%w: pass samples its own render target", wavesim.ErrInvalidTexture)
		}
		samplers = append(samplers, boundSampler{loc: int32(sb.Location), unit: uint32(sb.Unit), id: src.id})
	}

	return p.do(func() error {
		gl.BindFramebuffer(gl.FRAMEBUFFER, target.fbo)
		gl.Viewport(0, 0, int32(target.width), int32(target.height))
		gl.UseProgram(prog.id)
		gl.BindVertexArray(p.vao)
		gl.BindBuffer(gl.ARRAY_BUFFER, p.vbo)
		for _, a := range pass.Attribs {
			if a.Location == wavesim.NoLocation {
				continue
			}
			loc := uint32(a.Location)
			gl.EnableVertexAttribArray(loc)
			gl.VertexAttribPointer(loc, int32(a.Size), gl.FLOAT, false, int32(a.Stride), gl.PtrOffset(a.Offset))
		}
		for _, u := range pass.Uniforms {
			if u.Location == wavesim.NoLocation {
				continue
			}
			if u.Kind == wavesim.UniformInt {
				gl.Uniform1i(int32(u.Location), u.Int)
			} else {
				gl.Uniform1f(int32(u.Location), u.Float)
			}
		}
		for _, s := range samplers {
			gl.ActiveTexture(gl.TEXTURE0 + s.unit)
			gl.BindTexture(gl.TEXTURE_2D, s.id)
			gl.Uniform1i(s.loc, int32(s.unit))
		}
		gl.DrawArrays(gl.TRIANGLE_STRIP, 0, int32(pass.Quad.Count))

		gl.BindVertexArray(0)
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		return glError(prog.name)
	})
}
