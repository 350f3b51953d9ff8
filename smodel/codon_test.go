package smodel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bitbucket.org/Davydov/substmodel/bio"
	"bitbucket.org/Davydov/substmodel/qmatrix"
)

func TestCodon(t *testing.T) {
	m, err := NewCodon(nil, qmatrix.FreqEqual)
	require.NoError(t, err)
	n := m.NStates()
	require.Equal(t, 61, n)
	assert.Equal(t, []string{"kappa", "omega"}, m.GetFloatParameters().Names(nil))

	setVariables(t, m, 2, 0.5)
	kappa, omega := m.GetParameters()
	assert.Equal(t, 2.0, kappa)
	assert.Equal(t, 0.5, omega)

	q := m.QMatrix(nil)
	// TTT->TTC is a synonymous transition, TTT->TTA is a
	// nonsynonymous transversion
	assert.Equal(t, "TTT", bio.SenseCodons[0])
	assert.Equal(t, "TTC", bio.SenseCodons[1])
	assert.Equal(t, "TTA", bio.SenseCodons[2])
	assert.InDelta(t, 4, q[0*n+1]/q[0*n+2], 1e-12)
	// TTT->GGG needs three substitutions
	assert.Equal(t, 0.0, q[0*n+60])

	p := m.ComputeTransMatrix(0.5, nil)
	for i := 0; i < n; i++ {
		s := 0.0
		for j := 0; j < n; j++ {
			s += p[i*n+j]
		}
		assert.InDelta(t, 1, s, smallDiff)
	}
	assert.Len(t, m.Eigenvalues(), n)
}

func TestCodonFrequency(t *testing.T) {
	freq := make([]float64, 61)
	for i := range freq {
		freq[i] = float64(i%4 + 1)
	}
	m, err := NewCodon(freq, qmatrix.FreqEmpirical)
	require.NoError(t, err)
	f := m.StateFrequency(nil)
	qmatrix.NormalizeFrequency(freq)
	assert.InDeltaSlice(t, freq, f, 1e-12)

	m.SetParameters(3, 0.2)
	p := m.ComputeTransMatrix(0.3, nil)
	for i := 0; i < 61; i++ {
		for j := i + 1; j < 61; j++ {
			assert.InDelta(t, f[i]*p[i*61+j], f[j]*p[j*61+i], smallDiff)
		}
	}
}
