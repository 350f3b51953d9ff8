package smodel

import (
	"fmt"
	"io"
	"strconv"

	"bitbucket.org/Davydov/substmodel/optimize"
	"bitbucket.org/Davydov/substmodel/qmatrix"
)

// namedParameter is a parameter of a sub-model renamed for the
// partition.
type namedParameter struct {
	optimize.FloatParameter
	name string
}

func (p *namedParameter) Name() string {
	return p.name
}

// Partition combines models for different parts of the alignment.
// Every pattern is assigned to one of the models. Matrix operations
// without a model id return the matrices of all the models one after
// another, single entry operations without a model id use the first
// model.
type Partition struct {
	*BaseModel
	models   []Model
	ptnModel []int
}

// NewPartition creates a partition model. ptnModel maps patterns to
// model indices. All the models must have the same number of states.
func NewPartition(models []Model, ptnModel []int) (*Partition, error) {
	if len(models) == 0 {
		return nil, fmt.Errorf("%w: no models in partition", ErrInvalidDimension)
	}
	n := models[0].NStates()
	for k, sm := range models {
		if sm.NStates() != n {
			return nil, fmt.Errorf("%w: model %d has %d states, expected %d",
				ErrInvalidDimension, k+1, sm.NStates(), n)
		}
	}
	for ptn, k := range ptnModel {
		if k < 0 || k >= len(models) {
			return nil, fmt.Errorf("%w: pattern %d assigned to model %d", ErrInvalidDimension, ptn, k)
		}
	}

	m := &Partition{
		models:   append([]Model(nil), models...),
		ptnModel: append([]int(nil), ptnModel...),
	}
	m.BaseModel = NewBaseModel(n, m)
	m.name = "PART"
	m.fullName = fmt.Sprintf("Partition of %d models", len(models))
	m.freqType = models[0].FreqType()
	for _, sm := range models {
		m.reversible = m.reversible && sm.IsReversible()
	}
	for k, sm := range models {
		prefix := "p" + strconv.Itoa(k+1) + "_"
		for _, par := range sm.GetFloatParameters() {
			m.parameters.Append(&namedParameter{FloatParameter: par, name: prefix + par.Name()})
		}
	}
	if err := m.DecomposeRateMatrix(); err != nil {
		return nil, err
	}
	return m, nil
}

// Models returns the sub-models.
func (m *Partition) Models() []Model {
	return m.models
}

// DecomposeRateMatrix decomposes all the sub-models.
func (m *Partition) DecomposeRateMatrix() error {
	for k, sm := range m.models {
		if err := sm.DecomposeRateMatrix(); err != nil {
			return fmt.Errorf("model %d: %w", k+1, err)
		}
	}
	return nil
}

// PtnModelID returns the model index of a pattern.
func (m *Partition) PtnModelID(ptn int) int {
	return m.ptnModel[ptn]
}

// NumRateEntries returns the total number of rate entries.
func (m *Partition) NumRateEntries() int {
	r := 0
	for _, sm := range m.models {
		r += sm.NumRateEntries()
	}
	return r
}

// TransMatrixSize returns the size of the matrices of all the models.
func (m *Partition) TransMatrixSize() int {
	r := 0
	for _, sm := range m.models {
		r += sm.TransMatrixSize()
	}
	return r
}

// IsSiteSpecificModel returns true if any of the models is
// site-specific.
func (m *Partition) IsSiteSpecificModel() bool {
	for _, sm := range m.models {
		if sm.IsSiteSpecificModel() {
			return true
		}
	}
	return false
}

// blocks splits p into per-model matrices.
func (m *Partition) blocks(p []float64) ([]float64, [][]float64) {
	if p == nil {
		p = m.NewTransMatrix()
	}
	b := make([][]float64, len(m.models))
	off := 0
	for k, sm := range m.models {
		size := sm.TransMatrixSize()
		b[k] = p[off : off+size]
		off += size
	}
	return p, b
}

// ComputeTransMatrix computes P(t) for every model.
func (m *Partition) ComputeTransMatrix(t float64, p []float64) []float64 {
	p, b := m.blocks(p)
	for k, sm := range m.models {
		sm.ComputeTransMatrix(t, b[k])
	}
	return p
}

// ComputeTransMatrixFreq computes P(t) for every model with rows
// multiplied by the state frequencies.
func (m *Partition) ComputeTransMatrixFreq(t float64, p []float64) []float64 {
	p, b := m.blocks(p)
	for k, sm := range m.models {
		sm.ComputeTransMatrixFreq(t, b[k])
	}
	return p
}

// ComputeTransDerv computes P(t) and its' derivatives for every model.
func (m *Partition) ComputeTransDerv(t float64, p, d1, d2 []float64) ([]float64, []float64, []float64) {
	p, bp := m.blocks(p)
	d1, b1 := m.blocks(d1)
	d2, b2 := m.blocks(d2)
	for k, sm := range m.models {
		sm.ComputeTransDerv(t, bp[k], b1[k], b2[k])
	}
	return p, d1, d2
}

// ComputeTransDervFreq computes P(t·rate) and the derivatives by t for
// every model with rows multiplied by the state frequencies.
func (m *Partition) ComputeTransDervFreq(t, rate float64, p, d1, d2 []float64) ([]float64, []float64, []float64) {
	p, bp := m.blocks(p)
	d1, b1 := m.blocks(d1)
	d2, b2 := m.blocks(d2)
	for k, sm := range m.models {
		sm.ComputeTransDervFreq(t, rate, bp[k], b1[k], b2[k])
	}
	return p, d1, d2
}

// ComputeTrans computes a transition probability of the first model.
func (m *Partition) ComputeTrans(t float64, i, j int) float64 {
	return m.models[0].ComputeTrans(t, i, j)
}

// ComputeTransModel computes a transition probability of a model.
func (m *Partition) ComputeTransModel(t float64, modelID, i, j int) float64 {
	return m.models[modelID].ComputeTrans(t, i, j)
}

// ComputeTransWithDerv computes a transition probability and its'
// derivatives for the first model.
func (m *Partition) ComputeTransWithDerv(t float64, i, j int) (p, d1, d2 float64) {
	return m.models[0].ComputeTransWithDerv(t, i, j)
}

// ComputeTransWithDervModel computes a transition probability and its'
// derivatives for a model.
func (m *Partition) ComputeTransWithDervModel(t float64, modelID, i, j int) (p, d1, d2 float64) {
	return m.models[modelID].ComputeTransWithDerv(t, i, j)
}

// RateMatrix returns the rates of all the models.
func (m *Partition) RateMatrix(rates []float64) []float64 {
	rates = rates[:0]
	for _, sm := range m.models {
		rates = append(rates, sm.RateMatrix(nil)...)
	}
	return rates
}

// QMatrix returns the rate matrices of all the models.
func (m *Partition) QMatrix(q []float64) []float64 {
	q = q[:0]
	for _, sm := range m.models {
		q = append(q, sm.QMatrix(nil)...)
	}
	return q
}

// StateFrequency returns the frequencies of all the models.
func (m *Partition) StateFrequency(freq []float64) []float64 {
	freq = freq[:0]
	for _, sm := range m.models {
		freq = append(freq, sm.StateFrequency(nil)...)
	}
	return freq
}

// FreqType returns the frequency type of the first model.
func (m *Partition) FreqType() qmatrix.FreqType {
	return m.models[0].FreqType()
}

// WriteInfo writes information on every model.
func (m *Partition) WriteInfo(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "Model: %s\n", m.fullName); err != nil {
		return err
	}
	for k, sm := range m.models {
		if _, err := fmt.Fprintf(w, "\nPartition %d:\n", k+1); err != nil {
			return err
		}
		if err := sm.WriteInfo(w); err != nil {
			return err
		}
	}
	return nil
}
