//go:build opencl

package opencl

import (
	"fmt"

	"wavesim"
)

// queueContext enqueues passes on the provider's in-order queue. Passes
// complete in submission order; Finish blocks until the queue drains.
type queueContext struct {
	p *Provider
}

func (c *queueContext) Finish() error {
	if c.p.queue == nil {
		return errClosed
	}
	return c.p.queue.Finish()
}

func (c *queueContext) Draw(pass *wavesim.Pass) error {
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
	if pass.Quad.Count != 4 || pass.Quad.Topology != wavesim.TriangleStrip {
		return fmt.Errorf("only the full-screen quad strip is supported, got %d vertices", pass.Quad.Count)
	}

	k := prog.kernel
	if err := k.SetArgBuffer(argTarget, target.buf); err != nil {
		return fmt.Errorf("binding target: %w", err)
	}
	if err := k.SetArgInt32(argWidth, int32(target.width)); err != nil {
		return fmt.Errorf("binding width: %w", err)
	}
	if err := k.SetArgInt32(argHeight, int32(target.height)); err != nil {
		return fmt.Errorf("binding height: %w", err)
	}

	params := prog.src.Params
	bound := make([]bool, len(params))
	for _, u := range pass.Uniforms {
		if u.Location == wavesim.NoLocation {
			continue
		}
		if int(u.Location) >= len(params) {
			return fmt.Errorf("uniform location %d out of range", u.Location)
		}
		arg := argParams + int(u.Location)
		switch u.Kind {
		case wavesim.UniformInt:
			err = k.SetArgInt32(arg, u.Int)
		default:
			err = k.SetArgFloat32(arg, u.Float)
		}
		if err != nil {
			return fmt.Errorf("binding %s: %w", params[u.Location].Name, err)
		}
		bound[u.Location] = true
	}
	for _, sb := range pass.Samplers {
		if sb.Location == wavesim.NoLocation {
			continue
		}
		if int(sb.Location) >= len(params) || params[sb.Location].Kind != wavesim.ParamSampler {
			return fmt.Errorf("sampler location %d is not a sampler parameter", sb.Location)
		}
		src, err := p.texture(sb.Texture)
		if err != nil {
			return fmt.Errorf("binding %s: %w", params[sb.Location].Name, err)
		}
		if src == target {
			return fmt.Errorf("%w: pass samples its own render target", wavesim.ErrInvalidTexture)
		}
		if err := k.SetArgBuffer(argParams+int(sb.Location), src.buf); err != nil {
			return fmt.Errorf("binding %s: %w", params[sb.Location].Name, err)
		}
		bound[sb.Location] = true
	}
	for i, ok := range bound {
		if !ok {
			return fmt.Errorf("kernel argument %s is unbound", params[i].Name)
		}
	}

	global := []int{target.width, target.height}
	if _, err := p.queue.EnqueueNDRangeKernel(k, nil, global, nil, nil); err != nil {
		return fmt.Errorf("enqueueing %s: %w", prog.src.Name, err)
	}
	return nil
}
