package smodel

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// WriteInfo writes the model name, parameters, frequencies, the rate
// matrix and its' eigenvalues.
func (m *BaseModel) WriteInfo(w io.Writer) error {
	if err := m.DecomposeRateMatrix(); err != nil {
		return err
	}
	bw := bufio.NewWriter(w)
	n := m.nstates

	fmt.Fprintf(bw, "Model: %s\n", m.fullName)
	fmt.Fprintf(bw, "States: %d\n", n)
	if pars := m.self.GetFloatParameters(); len(pars) > 0 {
		fmt.Fprintln(bw, "Parameters:")
		for _, par := range pars {
			fmt.Fprintf(bw, "  %s=%v\n", par.Name(), par.Get())
		}
	}

	if m.reversible {
		fmt.Fprintln(bw, "Exchange rates:")
		k := 0
		for i := 0; i < n-1; i++ {
			fmt.Fprintf(bw, "  %s", m.labels[i])
			for j := i + 1; j < n; j++ {
				fmt.Fprintf(bw, "\t%.5f", m.q.Rates[k])
				k++
			}
			fmt.Fprintln(bw)
		}
	}

	fmt.Fprintf(bw, "State frequencies (%v):\n", m.freqType)
	for i, f := range m.q.Freq {
		fmt.Fprintf(bw, "  pi(%s)=%.5f\n", m.labels[i], f)
	}

	fmt.Fprintln(bw, "Rate matrix Q:")
	fmt.Fprintln(bw, m.q.Q)
	if ev := m.Eigenvalues(); ev != nil {
		s := make([]string, len(ev))
		for i, v := range ev {
			s[i] = fmt.Sprintf("%.5g", v)
		}
		fmt.Fprintf(bw, "Eigenvalues: %s\n", strings.Join(s, " "))
	}
	return bw.Flush()
}

// WriteInfo writes the model information and the site frequencies.
func (m *SiteSpecific) WriteInfo(w io.Writer) error {
	if err := m.BaseModel.WriteInfo(w); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Sites: %d\n", len(m.siteFreq)); err != nil {
		return err
	}
	for s, f := range m.siteFreq {
		if _, err := fmt.Fprintf(w, "  site %d: %.4f\n", s+1, f); err != nil {
			return err
		}
	}
	return nil
}
