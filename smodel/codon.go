package smodel

import (
	"bitbucket.org/Davydov/substmodel/bio"
	"bitbucket.org/Davydov/substmodel/qmatrix"
)

// Codon is the M0 codon model with the transition/transversion ratio
// kappa and the nonsynonymous/synonymous ratio omega. Codons differing
// in more than one position have zero exchange rate.
type Codon struct {
	*BaseModel
	kappa float64
	omega float64
	// diff and syn describe every pair of sense codons.
	diff  []bio.NucDiff
	syn   []bool
	rates []float64
}

// NewCodon creates a codon model on the standard genetic code.
func NewCodon(freq []float64, ft qmatrix.FreqType) (*Codon, error) {
	n := len(bio.SenseCodons)
	npairs := qmatrix.NumRateEntries(n)
	m := &Codon{
		kappa: 1,
		omega: 1,
		diff:  make([]bio.NucDiff, npairs),
		syn:   make([]bool, npairs),
		rates: make([]float64, npairs),
	}
	m.BaseModel = NewBaseModel(n, m)
	m.name = "M0"
	m.fullName = "M0 (Goldman and Yang 1994)"

	k := 0
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			c1, c2 := bio.SenseCodons[i], bio.SenseCodons[j]
			m.diff[k] = bio.CodonDiff(c1, c2)
			m.syn[k] = bio.IsSynonymous(c1, c2)
			k++
		}
	}

	if err := m.setFrequency(freq, ft); err != nil {
		return nil, err
	}
	m.addRateParameter(&m.kappa, "kappa", 1e-2, 100)
	m.addRateParameter(&m.omega, "omega", 1e-4, 1000)
	m.addFrequencyParameters()
	if err := m.DecomposeRateMatrix(); err != nil {
		return nil, err
	}
	return m, nil
}

// SetParameters sets kappa and omega.
func (m *Codon) SetParameters(kappa, omega float64) {
	m.kappa = kappa
	m.omega = omega
	m.setDirty()
}

// GetParameters returns kappa and omega.
func (m *Codon) GetParameters() (kappa, omega float64) {
	return m.kappa, m.omega
}

func (m *Codon) buildMatrix(freq []float64, q *qmatrix.RateMatrix) (*qmatrix.RateMatrix, error) {
	for k, d := range m.diff {
		var r float64
		switch d {
		case bio.Transition:
			r = m.kappa
		case bio.Transversion:
			r = 1
		default:
			m.rates[k] = 0
			continue
		}
		if !m.syn[k] {
			r *= m.omega
		}
		m.rates[k] = r
	}
	return qmatrix.CreateRateMatrix(m.rates, freq, q)
}
