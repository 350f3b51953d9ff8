package smodel

import (
	"fmt"

	"bitbucket.org/Davydov/substmodel/qmatrix"
)

// NonRev is the unrestricted non-reversible model. Every off-diagonal
// rate is a parameter (the last one is fixed at 1), the state
// frequencies are the stationary distribution of the rate matrix.
type NonRev struct {
	*BaseModel
	// rates are all the off-diagonal rates in row order.
	rates []float64
}

// NewNonRev creates a non-reversible model with n states. All the
// rates start at 1.
func NewNonRev(n int) (*NonRev, error) {
	if n < 2 {
		return nil, fmt.Errorf("%w: %d states", ErrInvalidDimension, n)
	}
	m := &NonRev{
		rates: make([]float64, n*(n-1)),
	}
	m.BaseModel = NewBaseModel(n, m)
	m.name = "NONREV"
	m.fullName = fmt.Sprintf("Unrestricted non-reversible model (%d states)", n)
	m.reversible = false
	m.freqType = qmatrix.FreqEstimate

	k := 0
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			m.rates[k] = 1
			if k < len(m.rates)-1 {
				m.addRateParameter(&m.rates[k], "r_"+m.labels[i]+m.labels[j], minRate, maxRate)
			}
			k++
		}
	}
	if err := m.DecomposeRateMatrix(); err != nil {
		return nil, err
	}
	return m, nil
}

// SetRates sets all the off-diagonal rates in row order.
func (m *NonRev) SetRates(rates []float64) error {
	if len(rates) != len(m.rates) {
		return fmt.Errorf("%w: %d rates for %d states", ErrInvalidDimension, len(rates), m.nstates)
	}
	old := append([]float64(nil), m.rates...)
	copy(m.rates, rates)
	m.setDirty()
	if err := m.DecomposeRateMatrix(); err != nil {
		// the previous matrix is still valid
		copy(m.rates, old)
		m.dirty.Store(false)
		return err
	}
	return nil
}

func (m *NonRev) buildMatrix(freq []float64, q *qmatrix.RateMatrix) (*qmatrix.RateMatrix, error) {
	return qmatrix.CreateNonRevRateMatrix(m.nstates, m.rates, q)
}
