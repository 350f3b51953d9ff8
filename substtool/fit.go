package main

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"syscall"

	"gonum.org/v1/gonum/floats"

	"bitbucket.org/Davydov/substmodel/bio"
	"bitbucket.org/Davydov/substmodel/checkpoint"
	"bitbucket.org/Davydov/substmodel/optimize"
	"bitbucket.org/Davydov/substmodel/smodel"
)

// minDist is the smallest distance between two sequences.
const minDist = 1e-6

// pairFit is the likelihood of two aligned sequences separated by
// the distance t. Model parameters and t are optimized together.
type pairFit struct {
	model  smodel.Model
	counts []float64
	t      float64
	par    optimize.FloatParameters
	p      []float64
}

// newPairFit creates a pairFit from the state pair counts.
func newPairFit(m smodel.Model, counts [][]float64, maxDist float64) *pairFit {
	n := m.NStates()
	f := &pairFit{
		model:  m,
		counts: make([]float64, 0, n*n),
		t:      0.1,
	}
	for _, row := range counts {
		f.counts = append(f.counts, row...)
	}
	f.par = append(f.par, m.GetFloatParameters()...)
	t := optimize.NewBasicFloatParameter(&f.t, "t")
	t.SetMin(minDist)
	t.SetMax(maxDist)
	if f.t > maxDist {
		f.t = maxDist
	}
	f.par.Append(t)
	return f
}

// GetFloatParameters returns model parameters and the distance.
func (f *pairFit) GetFloatParameters() optimize.FloatParameters {
	return f.par
}

// Likelihood computes the log likelihood of the pair counts.
func (f *pairFit) Likelihood() float64 {
	if err := f.model.DecomposeRateMatrix(); err != nil {
		log.Debug("Error decomposing rate matrix:", err)
		return math.Inf(-1)
	}
	f.p = f.model.ComputeTransMatrixFreq(f.t, f.p)
	l := 0.0
	for k, c := range f.counts {
		if c > 0 {
			l += c * math.Log(f.p[k])
		}
	}
	return l
}

// encode converts a sequence into model states.
func encode(seq string, n int) ([]int, error) {
	switch n {
	case len(bio.Binary):
		return bio.States(seq, bio.Binary), nil
	case len(bio.DNA):
		return bio.States(seq, bio.DNA), nil
	case len(bio.Protein):
		return bio.States(seq, bio.Protein), nil
	case len(bio.SenseCodons):
		return bio.CodonStates(seq)
	}
	return nil, fmt.Errorf("don't know how to encode sequences with %d states", n)
}

// readPair reads an alignment and returns counts of state pairs of
// the first two sequences. With translate nucleotide sequences are
// translated into proteins first.
func readPair(fileName string, n int, translate bool) ([][]float64, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	ali, err := bio.ParseFasta(f)
	if err != nil {
		return nil, err
	}
	if len(ali) < 2 {
		return nil, fmt.Errorf("alignment has %d sequence(s), two are required", len(ali))
	}
	if len(ali) > 2 {
		log.Warningf("Alignment has %d sequences, using the first two", len(ali))
	}
	log.Infof("Sequences: %s, %s", ali[0].Name, ali[1].Name)

	if translate && n != len(bio.Protein) {
		return nil, fmt.Errorf("translated sequences require %d states, model has %d", len(bio.Protein), n)
	}
	states := make([][]int, 2)
	for i := range states {
		seq := ali[i].Sequence
		if translate {
			seq, err = bio.Translate(seq)
			if err != nil {
				return nil, fmt.Errorf("%s: %v", ali[i].Name, err)
			}
		}
		states[i], err = encode(seq, n)
		if err != nil {
			return nil, err
		}
	}
	return bio.PairCounts(states[0], states[1], n)
}

// stateCounts returns the number of occurrences of every state in
// both sequences.
func stateCounts(counts [][]float64) []float64 {
	n := len(counts)
	sc := make([]float64, n)
	for i, row := range counts {
		sc[i] += floats.Sum(row)
		for j, c := range row {
			sc[j] += c
		}
	}
	return sc
}

// runFit estimates model parameters and the distance.
func runFit(ms *modelSettings, opts *optimizerSettings) (*FitSummary, error) {
	n := ms.states()
	counts, err := readPair(*alignmentF, n, *translate)
	if err != nil {
		return nil, err
	}
	sc := stateCounts(counts)
	log.Infof("Read %v comparable positions", floats.Sum(sc)/2)

	m, err := ms.createModel(sc)
	if err != nil {
		return nil, err
	}
	pf := newPairFit(m, counts, opts.maxDist)
	log.Infof("Maximum distance: %v", opts.maxDist)

	if err := opts.initParameters(pf.GetFloatParameters()); err != nil {
		return nil, err
	}

	opt, err := opts.getOptimizer()
	if err != nil {
		return nil, err
	}
	log.Infof("Using %s optimization.", opts.method)

	out := os.Stdout
	if *outF != "" {
		out, err = os.Create(*outF)
		if err != nil {
			return nil, fmt.Errorf("error creating trajectory file: %v", err)
		}
		defer out.Close()
	}

	opt.SetOutput(out)
	opt.SetOptimizable(pf)
	opt.SetReportPeriod(opts.report)
	opt.SetEpsilon(opts.epsilon)
	opt.WatchSignals(os.Interrupt, syscall.SIGTERM)

	if *checkpointF != "" {
		db, err := checkpoint.Open(*checkpointF)
		if err != nil {
			return nil, fmt.Errorf("error opening checkpoint database: %v", err)
		}
		defer db.Close()
		key := m.Name() + ":" + filepath.Base(*alignmentF)
		cio := checkpoint.NewCheckpointIO(db, key, *checkpointSec)
		data, err := cio.Load()
		if err != nil {
			log.Error("Error loading checkpoint:", err)
		} else if data != nil {
			if err := pf.GetFloatParameters().SetFromMap(data.Parameters); err != nil {
				log.Error("Checkpoint doesn't match the model:", err)
			} else {
				log.Info("Starting from the checkpoint")
			}
		}
		opt.SetCheckpointIO(cio)
	}

	opt.Run(opts.iterations)
	opt.PrintResults()
	if !opt.Converged() {
		log.Warning("Optimization did not converge")
	}

	if err := m.DecomposeRateMatrix(); err != nil {
		return nil, err
	}
	log.Noticef("Distance: %v", pf.t)

	return &FitSummary{
		Model:      m.Name(),
		FullName:   m.FullName(),
		Frequency:  m.StateFrequency(nil),
		Rates:      m.RateMatrix(nil),
		Parameters: m.GetFloatParameters().ValuesMap(),
		Distance:   pf.t,
		Optimizer:  opt.Summary(),
	}, nil
}
