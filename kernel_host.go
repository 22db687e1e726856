package wavesim

// waveCoefficients holds the per-dispatch constants of the host update.
type waveCoefficients struct {
	dt2, dx2, dy2 float32
}

// update applies the leapfrog step to one texel given its old amplitude
// and the four current-state neighbor amplitudes.
func (c waveCoefficients) update(cur FieldTexel, old, xm, xp, ym, yp float32) FieldTexel {
	v := cur.Amplitude
	g := cur.Speed
	next := 2*v - old +
		g*c.dt2*(xp+xm-2*v)/c.dx2 +
		g*c.dt2*(yp+ym-2*v)/c.dy2
	return FieldTexel{Amplitude: next, Speed: g, Aux: cur.Aux}
}

// edge updates a texel through the samplers so that neighbor lookups follow
// the addressing mode.
func (c waveCoefficients) edge(old, cur *Sampler, x, y int) FieldTexel {
	return c.update(
		cur.At(x, y),
		old.At(x, y).Amplitude,
		cur.At(x-1, y).Amplitude,
		cur.At(x+1, y).Amplitude,
		cur.At(x, y-1).Amplitude,
		cur.At(x, y+1).Amplitude,
	)
}

// shadeWaveStep is the host rendition of the update kernel. Interior rows
// index the source slices directly; the outermost ring of cells goes
// through the samplers.
func shadeWaveStep(inv *HostInvocation, y0, y1 int) {
	old := inv.Sampler(samplerOldWave)
	cur := inv.Sampler(samplerWave)
	if old == nil || cur == nil {
		return
	}
	dt := inv.Float(uniformDt)
	dx := inv.Float(uniformXLength) / float32(inv.Int(uniformXResolution))
	dy := inv.Float(uniformYLength) / float32(inv.Int(uniformYResolution))
	c := waveCoefficients{dt2: dt * dt, dx2: dx * dx, dy2: dy * dy}

	width, height := inv.Width, inv.Height
	direct := width >= 3 &&
		cur.Width == width && cur.Height == height &&
		old.Width == width && old.Height == height

	for y := y0; y < y1; y++ {
		row := inv.Row(y)
		if !direct || y == 0 || y == height-1 {
			for x := range row {
				row[x] = c.edge(old, cur, x, y)
			}
			continue
		}
		rowBase := y * width
		center := cur.Texels[rowBase : rowBase+width]
		prev := old.Texels[rowBase : rowBase+width]
		top := cur.Texels[rowBase-width : rowBase]
		bottom := cur.Texels[rowBase+width : rowBase+2*width]

		row[0] = c.edge(old, cur, 0, y)
		row[width-1] = c.edge(old, cur, width-1, y)

		end := width - 2
		x := 1
		for ; x+3 <= end; x += 4 {
			row[x] = c.update(center[x], prev[x].Amplitude, center[x-1].Amplitude, center[x+1].Amplitude, top[x].Amplitude, bottom[x].Amplitude)
			x1 := x + 1
			row[x1] = c.update(center[x1], prev[x1].Amplitude, center[x1-1].Amplitude, center[x1+1].Amplitude, top[x1].Amplitude, bottom[x1].Amplitude)
			x2 := x + 2
			row[x2] = c.update(center[x2], prev[x2].Amplitude, center[x2-1].Amplitude, center[x2+1].Amplitude, top[x2].Amplitude, bottom[x2].Amplitude)
			x3 := x + 3
			row[x3] = c.update(center[x3], prev[x3].Amplitude, center[x3-1].Amplitude, center[x3+1].Amplitude, top[x3].Amplitude, bottom[x3].Amplitude)
		}
		for ; x <= end; x++ {
			row[x] = c.update(center[x], prev[x].Amplitude, center[x-1].Amplitude, center[x+1].Amplitude, top[x].Amplitude, bottom[x].Amplitude)
		}
	}
}
