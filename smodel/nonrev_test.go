package smodel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"bitbucket.org/Davydov/substmodel/qmatrix"
)

func TestNonRev(t *testing.T) {
	m := newTestNonRev(t)
	assert.False(t, m.IsReversible())
	assert.Equal(t, 12, m.NumRateEntries())
	assert.Equal(t, 11, m.NDim())
	assert.Equal(t, qmatrix.FreqEstimate, m.FreqType())

	// πQ=0
	q := m.QMatrix(nil)
	f := m.StateFrequency(nil)
	for j := 0; j < 4; j++ {
		s := 0.0
		for i := 0; i < 4; i++ {
			s += f[i] * q[i*4+j]
		}
		assert.InDelta(t, 0, s, smallDiff)
	}
	// mean rate is 1
	r := 0.0
	for i := 0; i < 4; i++ {
		r -= f[i] * q[i*4+i]
	}
	assert.InDelta(t, 1, r, smallDiff)

	assert.Error(t, m.SetRates([]float64{1, 2}))
	// the previous matrix is kept
	assert.Error(t, m.SetRates([]float64{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}))
	assert.InDeltaSlice(t, f, m.StateFrequency(nil), 1e-15)
	assert.False(t, math.IsNaN(m.ComputeTrans(0.1, 0, 1)))
}
