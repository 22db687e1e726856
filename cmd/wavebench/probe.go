package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"wavesim"
	"wavesim/internal/scenario"
)

// probeTable accumulates probe samples and field statistics, one row per
// sampled step.
type probeTable struct {
	probes []scenario.Probe
	rows   [][]string
}

func newProbeTable(probes []scenario.Probe) *probeTable {
	return &probeTable{probes: probes}
}

func (p *probeTable) header() []string {
	h := []string{"step", "t"}
	for i, pr := range p.probes {
		name := pr.Name
		if name == "" {
			name = fmt.Sprintf("probe%d(%d,%d)", i, pr.X, pr.Y)
		}
		h = append(h, name)
	}
	return append(h, "min", "max", "energy")
}

// sample records the amplitude at every probe of f, the field after step
// timesteps of length dt.
func (p *probeTable) sample(step uint64, dt float64, f *wavesim.Field) {
	row := []string{
		strconv.FormatUint(step, 10),
		strconv.FormatFloat(float64(step)*dt, 'g', 6, 64),
	}
	for _, pr := range p.probes {
		row = append(row, formatAmplitude(float64(f.Amplitude(pr.X, pr.Y))))
	}
	st := f.Stats()
	if st.NaNs > 0 {
		row = append(row, "NaN", "NaN", fmt.Sprintf("%d non-finite", st.NaNs))
	} else {
		row = append(row, formatAmplitude(st.Min), formatAmplitude(st.Max), formatAmplitude(st.Energy))
	}
	p.rows = append(p.rows, row)
}

// render writes the samples as a table.
func (p *probeTable) render(w io.Writer) error {
	table := tablewriter.NewWriter(w)
	if err := table.Append(p.header()); err != nil {
		return err
	}
	for _, row := range p.rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

func formatAmplitude(v float64) string {
	return strconv.FormatFloat(v, 'e', 4, 64)
}

// shouldSample reports whether step is sampled for an interval of every over
// a run of total steps. The first and last steps are always sampled.
func shouldSample(step, total uint64, every int) bool {
	if step == 0 || step == total {
		return true
	}
	return every > 0 && step%uint64(every) == 0
}
