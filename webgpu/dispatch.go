//go:build wgpu

package webgpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"

	"wavesim"
)

// queueContext submits one command buffer per pass. Submissions execute in
// order; Finish polls the device until the queue is idle.
type queueContext struct {
	p *Provider
}

func (c *queueContext) Finish() error {
	if c.p.device == nil {
		return errClosed
	}
	c.p.device.Poll(true, nil)
	return nil
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

	params := prog.src.Params
	offsets := uniformOffsets(params)
	block := prog.block
	clear(block)
	putUniform(block, 0, wavesim.Int1(0, int32(target.width)))
	putUniform(block, 4, wavesim.Int1(0, int32(target.height)))
	for _, u := range pass.Uniforms {
		if u.Location == wavesim.NoLocation {
			continue
		}
		if int(u.Location) >= len(params) || offsets[u.Location] < 0 {
			return fmt.Errorf("uniform location %d is not a scalar parameter", u.Location)
		}
		putUniform(block, offsets[u.Location], u)
	}

	entries := []wgpu.BindGroupEntry{
		{Binding: bindingParams, Buffer: prog.params, Size: uint64(len(block))},
		{Binding: bindingTarget, Buffer: target.buf, Size: target.size},
	}
	bindings := samplerBindings(params)
	bound := 0
	for _, sb := range pass.Samplers {
		if sb.Location == wavesim.NoLocation {
			continue
		}
		if int(sb.Location) >= len(params) || bindings[sb.Location] < 0 {
			return fmt.Errorf("sampler location %d is not a sampler parameter", sb.Location)
		}
		src, err := p.texture(sb.Texture)
		if err != nil {
			return fmt.Errorf("binding %s: %w", params[sb.Location].Name, err)
		}
		if src == target {
			return fmt.Errorf("%w: pass samples its own render target", wavesim.ErrInvalidTexture)
		}
		entries = append(entries, wgpu.BindGroupEntry{
			Binding: uint32(bindings[sb.Location]),
			Buffer:  src.buf,
			Size:    src.size,
		})
		bound++
	}
	if want := countSamplers(params); bound != want {
		return fmt.Errorf("%s binds %d of %d samplers", prog.src.Name, bound, want)
	}

	p.queue.WriteBuffer(prog.params, 0, block)
	bindGroup, err := p.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   prog.src.Name + "_bind_group",
		Layout:  prog.layout,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("failed to create bind group: %w", err)
	}
	defer bindGroup.Release()

	encoder, err := p.device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("failed to create command encoder: %w", err)
	}
	cp := encoder.BeginComputePass(nil)
	cp.SetPipeline(prog.pipeline)
	cp.SetBindGroup(0, bindGroup, nil)
	cp.DispatchWorkgroups(workgroups(target.width), workgroups(target.height), 1)
	cp.End()
	cp.Release()

	commands, err := encoder.Finish(nil)
	encoder.Release()
	if err != nil {
		return fmt.Errorf("failed to finish command encoder: %w", err)
	}
	defer commands.Release()
	p.queue.Submit(commands)
	return nil
}
