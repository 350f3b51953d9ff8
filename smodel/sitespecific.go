package smodel

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"bitbucket.org/Davydov/substmodel/qmatrix"
)

// SiteSpecific is a model with exchange rates shared between sites
// and a frequency vector for every site (pattern). The model id of a
// pattern is the pattern index. Operations without a model id use
// the mean frequencies.
type SiteSpecific struct {
	*GTR
	siteFreq [][]float64
	siteQ    []*qmatrix.RateMatrix
	siteE    []*qmatrix.EMatrix
	// spare matrices are filled during decomposition and swapped
	// in on success.
	spareSiteQ []*qmatrix.RateMatrix
	spareSiteE  []*qmatrix.EMatrix
	spareClosed bool
	closed      bool
}

// NewSiteSpecific creates a site-specific model. The number of
// states is the length of the frequency vectors, code defines the
// exchange rate classes like in NewGTR.
func NewSiteSpecific(code string, freqs [][]float64) (*SiteSpecific, error) {
	if len(freqs) == 0 {
		return nil, fmt.Errorf("%w: no site frequencies", ErrInvalidDimension)
	}
	n := len(freqs[0])
	m := &SiteSpecific{
		siteFreq:   make([][]float64, len(freqs)),
		siteQ:      make([]*qmatrix.RateMatrix, len(freqs)),
		siteE:      make([]*qmatrix.EMatrix, len(freqs)),
		spareSiteQ: make([]*qmatrix.RateMatrix, len(freqs)),
		spareSiteE: make([]*qmatrix.EMatrix, len(freqs)),
	}
	mean := make([]float64, n)
	for s, f := range freqs {
		if len(f) != n {
			return nil, fmt.Errorf("%w: site %d has %d frequencies, expected %d",
				ErrInvalidDimension, s, len(f), n)
		}
		for _, x := range f {
			if !(x >= 0) {
				return nil, fmt.Errorf("%w: site %d frequency %v", ErrParameterDomain, s, x)
			}
		}
		m.siteFreq[s] = append([]float64(nil), f...)
		qmatrix.NormalizeFrequency(m.siteFreq[s])
		if err := qmatrix.CheckFrequency(m.siteFreq[s]); err != nil {
			return nil, fmt.Errorf("site %d: %w", s, err)
		}
		floats.Add(mean, m.siteFreq[s])
	}
	floats.Scale(1/float64(len(freqs)), mean)

	gtr, err := newGTR(n, code, mean, qmatrix.FreqUserDefined, m)
	if err != nil {
		return nil, err
	}
	m.GTR = gtr
	m.name = "SSF"
	m.fullName = fmt.Sprintf("Site-specific frequency model (%d sites)", len(freqs))
	if err := m.DecomposeRateMatrix(); err != nil {
		return nil, err
	}
	return m, nil
}

// buildMatrix creates the rate matrix for the mean frequencies and
// decomposes the spare matrices of all the sites.
func (m *SiteSpecific) buildMatrix(freq []float64, q *qmatrix.RateMatrix) (*qmatrix.RateMatrix, error) {
	q, err := m.GTR.buildMatrix(freq, q)
	if err != nil {
		return nil, err
	}
	closed := allEqual(q.Rates)
	for s, f := range m.siteFreq {
		sq, err := qmatrix.CreateRateMatrix(q.Rates, f, m.spareSiteQ[s])
		if err != nil {
			return nil, fmt.Errorf("site %d: %w", s, err)
		}
		m.spareSiteQ[s] = sq
		if m.spareSiteE[s] == nil {
			m.spareSiteE[s] = qmatrix.NewEMatrix(sq)
		}
		m.spareSiteE[s].Eps = m.eps
		m.spareSiteE[s].Set(sq)
		if closed {
			continue
		}
		if err := m.spareSiteE[s].Eigen(); err != nil {
			return nil, fmt.Errorf("site %d: %w", s, err)
		}
	}
	m.spareClosed = closed
	return q, nil
}

// commitMatrix makes the site matrices built by buildMatrix current.
func (m *SiteSpecific) commitMatrix() {
	m.siteQ, m.spareSiteQ = m.spareSiteQ, m.siteQ
	m.siteE, m.spareSiteE = m.spareSiteE, m.siteE
	m.closed = m.spareClosed
}

// NSites returns the number of sites.
func (m *SiteSpecific) NSites() int {
	return len(m.siteFreq)
}

// SiteFrequency returns the frequencies of a site.
func (m *SiteSpecific) SiteFrequency(site int, freq []float64) []float64 {
	return append(freq[:0], m.siteFreq[site]...)
}

// IsSiteSpecificModel returns true.
func (m *SiteSpecific) IsSiteSpecificModel() bool {
	return true
}

// PtnModelID returns the pattern index.
func (m *SiteSpecific) PtnModelID(ptn int) int {
	return ptn
}

// TransMatrixSize returns the size of the matrices of all the sites.
func (m *SiteSpecific) TransMatrixSize() int {
	return len(m.siteFreq) * m.nstates * m.nstates
}

func (m *SiteSpecific) siteExp(s int, p []float64, t float64) []float64 {
	if m.closed {
		return qmatrix.F81Exp(p, m.siteFreq[s], t)
	}
	return m.siteE[s].Exp(p, t)
}

func (m *SiteSpecific) siteDerv(s int, p, d1, d2 []float64, t float64) {
	if m.closed {
		qmatrix.F81Derv(p, d1, d2, m.siteFreq[s], t)
	} else {
		m.siteE[s].ExpDerv(p, d1, d2, t)
	}
}

// ComputeTransMatrix computes P(t) for all the sites one after
// another.
func (m *SiteSpecific) ComputeTransMatrix(t float64, p []float64) []float64 {
	m.ensure()
	if p == nil {
		p = m.NewTransMatrix()
	}
	for s := range m.siteFreq {
		m.siteExp(s, square(p, s, m.nstates), t)
	}
	return p
}

// ComputeTransMatrixFreq computes P(t) for all the sites with rows
// multiplied by the site frequencies.
func (m *SiteSpecific) ComputeTransMatrixFreq(t float64, p []float64) []float64 {
	p = m.ComputeTransMatrix(t, p)
	n := m.nstates
	for s, freq := range m.siteFreq {
		ps := square(p, s, n)
		for i, f := range freq {
			floats.Scale(f, ps[i*n:(i+1)*n])
		}
	}
	return p
}

// ComputeTransDerv computes P(t) and its' derivatives for all the
// sites.
func (m *SiteSpecific) ComputeTransDerv(t float64, p, d1, d2 []float64) ([]float64, []float64, []float64) {
	m.ensure()
	if p == nil {
		p = m.NewTransMatrix()
	}
	if d1 == nil {
		d1 = m.NewTransMatrix()
	}
	if d2 == nil {
		d2 = m.NewTransMatrix()
	}
	n := m.nstates
	for s := range m.siteFreq {
		m.siteDerv(s, square(p, s, n), square(d1, s, n), square(d2, s, n), t)
	}
	return p, d1, d2
}

// ComputeTransDervFreq computes P(t·rate) and the derivatives by t
// for all the sites with rows multiplied by the site frequencies.
func (m *SiteSpecific) ComputeTransDervFreq(t, rate float64, p, d1, d2 []float64) ([]float64, []float64, []float64) {
	p, d1, d2 = m.ComputeTransDerv(t*rate, p, d1, d2)
	n := m.nstates
	for s, freq := range m.siteFreq {
		ps, d1s, d2s := square(p, s, n), square(d1, s, n), square(d2, s, n)
		for i, f := range freq {
			floats.Scale(f, ps[i*n:(i+1)*n])
			floats.Scale(f*rate, d1s[i*n:(i+1)*n])
			floats.Scale(f*rate*rate, d2s[i*n:(i+1)*n])
		}
	}
	return p, d1, d2
}

// ComputeTransModel computes a transition probability for a site.
func (m *SiteSpecific) ComputeTransModel(t float64, site, i, j int) float64 {
	m.ensure()
	if m.closed {
		return qmatrix.F81Entry(m.siteFreq[site], t, i, j)
	}
	return m.siteE[site].ExpEntry(t, i, j)
}

// ComputeTransWithDervModel computes a transition probability and its'
// derivatives for a site.
func (m *SiteSpecific) ComputeTransWithDervModel(t float64, site, i, j int) (p, d1, d2 float64) {
	m.ensure()
	if m.closed {
		return qmatrix.F81EntryDerv(m.siteFreq[site], t, i, j)
	}
	return m.siteE[site].ExpEntryDerv(t, i, j)
}
