package cpu

import (
	"fmt"

	"golang.org/x/sync/errgroup"

	"wavesim"
)

// rowBand is a half-open range of target rows shaded by one goroutine.
type rowBand struct{ start, end int }

// minBandRows keeps bands large enough that scheduling does not dominate on
// small grids.
const minBandRows = 8

// assignRowBands splits height rows into at most workers contiguous bands of
// near-equal size.
func assignRowBands(height, workers int) []rowBand {
	if workers < 1 {
		workers = 1
	}
	if limit := (height + minBandRows - 1) / minBandRows; workers > limit {
		workers = limit
	}
	if workers < 1 {
		workers = 1
	}
	bands := make([]rowBand, 0, workers)
	base, extra := height/workers, height%workers
	start := 0
	for i := 0; i < workers; i++ {
		n := base
		if i < extra {
			n++
		}
		if n == 0 {
			continue
		}
		bands = append(bands, rowBand{start: start, end: start + n})
		start += n
	}
	return bands
}

// drawContext executes passes synchronously: Draw returns once every band
// has been shaded, so Finish has nothing to wait for.
type drawContext struct {
	p *Provider
}

func (c *drawContext) Finish() error {
	if c.p.closed {
		return errClosed
	}
	return nil
}

func (c *drawContext) Draw(pass *wavesim.Pass) error {
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
	for _, sb := range pass.Samplers {
		if sb.Location != wavesim.NoLocation && sb.Texture == wavesim.Texture(target) {
			return fmt.Errorf("%w: pass samples its own render target", wavesim.ErrInvalidTexture)
		}
	}

	inv, err := wavesim.NewHostInvocation(prog.src.Params, pass, target.width, target.height, target.texels,
		func(tex wavesim.Texture) (*wavesim.Sampler, error) {
			t, err := p.texture(tex)
			if err != nil {
				return nil, err
			}
			return &wavesim.Sampler{Width: t.width, Height: t.height, Texels: t.texels, Mode: p.opts.Addressing}, nil
		})
	if err != nil {
		return fmt.Errorf("binding %s: %w", prog.src.Name, err)
	}

	half := p.opts.Format == wavesim.Float16
	kernel := prog.src.Host
	var g errgroup.Group
	g.SetLimit(p.workers)
	for _, band := range assignRowBands(target.height, p.workers) {
		band := band
		g.Go(func() error {
			kernel.Shade(inv, band.start, band.end)
			if half {
				quantize(target.texels[band.start*target.width : band.end*target.width])
			}
			return nil
		})
	}
	return g.Wait()
}
