package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"bitbucket.org/Davydov/substmodel/smodel"
)

// writeMatrix writes a square matrix with state labels.
func writeMatrix(w io.Writer, title string, labels []string, p []float64) {
	n := len(labels)
	fmt.Fprintf(w, "%s\n\t%s\n", title, strings.Join(labels, "\t"))
	for i := 0; i < n; i++ {
		fmt.Fprint(w, labels[i])
		for j := 0; j < n; j++ {
			fmt.Fprintf(w, "\t%.6f", p[i*n+j])
		}
		fmt.Fprintln(w)
	}
}

// runPMatrix prints the transition probability matrix and possibly
// its' derivatives.
func runPMatrix(ms *modelSettings, w io.Writer) error {
	m, err := ms.createModel(nil)
	if err != nil {
		return err
	}
	if *pmTime < 0 {
		return errors.New("negative time")
	}
	bw := bufio.NewWriter(w)
	labels := smodel.StateLabels(m.NStates())
	n := m.NStates()

	var p, d1, d2 []float64
	switch {
	case *pmDerv && *pmFreq:
		p, d1, d2 = m.ComputeTransDervFreq(*pmTime, 1, nil, nil, nil)
	case *pmDerv:
		p, d1, d2 = m.ComputeTransDerv(*pmTime, nil, nil, nil)
	case *pmFreq:
		p = m.ComputeTransMatrixFreq(*pmTime, nil)
	default:
		p = m.ComputeTransMatrix(*pmTime, nil)
	}
	for k := 0; k*n*n < len(p); k++ {
		block := func(x []float64) []float64 { return x[k*n*n : (k+1)*n*n] }
		suffix := ""
		if len(p) > n*n {
			suffix = fmt.Sprintf(" (model %d)", k+1)
		}
		writeMatrix(bw, fmt.Sprintf("P(%g)%s:", *pmTime, suffix), labels, block(p))
		if d1 != nil {
			writeMatrix(bw, "dP/dt:", labels, block(d1))
			writeMatrix(bw, "d2P/dt2:", labels, block(d2))
		}
	}
	return bw.Flush()
}

// runInfo prints model information.
func runInfo(ms *modelSettings, w io.Writer) error {
	m, err := ms.createModel(nil)
	if err != nil {
		return err
	}
	return m.WriteInfo(w)
}

// transitionLines computes P(t)[row, j] for every state j at evenly
// spaced time points.
func transitionLines(m smodel.Model, row int, from, to float64, points int) ([]plotter.XYs, error) {
	n := m.NStates()
	if row < 0 || row >= n {
		return nil, fmt.Errorf("state %d is out of range [0, %d)", row, n)
	}
	if points < 2 || from < 0 || to <= from {
		return nil, errors.New("incorrect plot range")
	}
	lines := make([]plotter.XYs, n)
	for j := range lines {
		lines[j] = make(plotter.XYs, points)
	}
	step := (to - from) / float64(points-1)
	for k := 0; k < points; k++ {
		t := from + float64(k)*step
		for j := range lines {
			lines[j][k].X = t
			lines[j][k].Y = m.ComputeTrans(t, row, j)
		}
	}
	return lines, nil
}

// runPlot plots transition probabilities from a single state.
func runPlot(ms *modelSettings) error {
	m, err := ms.createModel(nil)
	if err != nil {
		return err
	}
	lines, err := transitionLines(m, *plotRow, *plotFrom, *plotTo, *plotPoints)
	if err != nil {
		return err
	}
	labels := smodel.StateLabels(m.NStates())

	p := plot.New()
	p.Title.Text = fmt.Sprintf("%s, from %s", m.FullName(), labels[*plotRow])
	p.X.Label.Text = "t"
	p.Y.Label.Text = "P(t)"

	vs := make([]interface{}, 0, 2*len(lines))
	for j, l := range lines {
		vs = append(vs, labels[j], l)
	}
	if err := plotutil.AddLines(p, vs...); err != nil {
		return err
	}
	if err := p.Save(6*vg.Inch, 4*vg.Inch, *plotOutF); err != nil {
		return err
	}
	log.Infof("Plot saved to %s", *plotOutF)
	return nil
}
