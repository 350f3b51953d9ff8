package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"bitbucket.org/Davydov/substmodel/optimize"
	"bitbucket.org/Davydov/substmodel/qmatrix"
	"bitbucket.org/Davydov/substmodel/smodel"
)

const testConfig = `
model:
  name: HKY
  freq: user
  parameters:
    r_AG: 3.5
optimizer:
  method: bfgs
  iterations: 500
`

func TestReadConfig(t *testing.T) {
	c, err := readConfig(strings.NewReader(testConfig))
	require.NoError(t, err)
	assert.Equal(t, "HKY", c.Model.Name)
	assert.Equal(t, map[string]float64{"r_AG": 3.5}, c.Model.Parameters)
	assert.Equal(t, "bfgs", c.Optimizer.Method)
	assert.Equal(t, 500, c.Optimizer.Iterations)

	c, err = readConfig(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, "", c.Model.Name)

	_, err = readConfig(strings.NewReader("model:\n  kappa: 2\n"))
	assert.Error(t, err)
}

func TestModelSettingsOverride(t *testing.T) {
	c, err := readConfig(strings.NewReader(testConfig))
	require.NoError(t, err)

	ms, err := newModelSettings(c)
	require.NoError(t, err)
	assert.Equal(t, "HKY", ms.name)
	assert.Equal(t, "user", ms.freqType)

	saved := *model
	*model = "GTR"
	defer func() { *model = saved }()
	ms, err = newModelSettings(c)
	require.NoError(t, err)
	assert.Equal(t, "GTR", ms.name)
	assert.Equal(t, 3.5, ms.params["r_AG"])

	o := newOptimizerSettings(c)
	assert.Equal(t, "bfgs", o.method)
	assert.Equal(t, 500, o.iterations)
	assert.Equal(t, optimize.DefaultEpsilon, o.epsilon)
}

func TestCreateModel(t *testing.T) {
	for _, test := range []struct {
		name    string
		nstates int
		code    string
		states  int
		ndim    int
	}{
		{"JC", 4, "", 4, 0},
		{"hky", 4, "", 4, 1},
		{"GTR", 4, "", 4, 5},
		{"POISSON", 4, "", 20, 0},
		{"JC", 20, "", 20, 0},
		{"GTR", 3, "", 3, 2},
		{"GTR", 4, "010010", 4, 1},
		{"BIN", 4, "", 2, 0},
		{"M0", 4, "", 61, 2},
		{"NONREV", 3, "", 3, 5},
	} {
		ms := &modelSettings{
			name:     test.name,
			nstates:  test.nstates,
			code:     test.code,
			freqType: qmatrix.FreqEqual.String(),
		}
		m, err := ms.createModel(nil)
		require.NoError(t, err, test.name)
		assert.Equal(t, test.states, m.NStates(), test.name)
		assert.Equal(t, test.ndim, m.NDim(), test.name)
	}
}

func TestCreateModelFrequency(t *testing.T) {
	ms := &modelSettings{name: "F81", nstates: 4, freqType: "empirical"}
	_, err := ms.createModel(nil)
	assert.Error(t, err)

	m, err := ms.createModel([]float64{10, 20, 30, 40})
	require.NoError(t, err)
	assert.Equal(t, qmatrix.FreqEmpirical, m.FreqType())
	assert.InDeltaSlice(t, []float64{.1, .2, .3, .4}, m.StateFrequency(nil), 1e-12)

	ms.freqType = "user"
	_, err = ms.createModel(nil)
	assert.Error(t, err)

	ms.freqType = "unknown"
	_, err = ms.createModel(nil)
	assert.Error(t, err)
}

func TestSetParameters(t *testing.T) {
	ms := &modelSettings{
		name:     "HKY",
		nstates:  4,
		freqType: "equal",
		params:   map[string]float64{"r_AG": 4},
	}
	m, err := ms.createModel(nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{4}, m.GetFloatParameters().Values(nil))

	ms.params = map[string]float64{"kappa": 4}
	_, err = ms.createModel(nil)
	assert.Error(t, err)
}

func TestGetOptimizer(t *testing.T) {
	for _, name := range []string{"simplex", "bfgs", "lbfgsb", "mh", "annealing", "none"} {
		o := &optimizerSettings{method: name}
		opt, err := o.getOptimizer()
		require.NoError(t, err)
		assert.NotNil(t, opt)
	}
	o := &optimizerSettings{method: "n_lbfgs"}
	_, err := o.getOptimizer()
	assert.Error(t, err)
}

func TestEncode(t *testing.T) {
	s, err := encode("ACG-T", 4)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, -1, 3}, s)

	s, err = encode("TTTTTC---", 61)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, -1}, s)

	_, err = encode("TAA", 61)
	assert.Error(t, err)
	_, err = encode("ACGT", 5)
	assert.Error(t, err)
}

func TestReadPairTranslate(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "pair.fst")
	ali := ">s1\nATGGCT---TGGTAA\n>s2\nATGGCCAAATGGTAA\n"
	require.NoError(t, os.WriteFile(fileName, []byte(ali), 0644))

	counts, err := readPair(fileName, 20, true)
	require.NoError(t, err)
	require.Len(t, counts, 20)
	assert.Equal(t, 3.0, floats.Sum(stateCounts(counts))/2)
	// M, A and W
	for _, i := range []int{12, 0, 17} {
		assert.Equal(t, 1.0, counts[i][i])
	}

	_, err = readPair(fileName, 4, true)
	assert.Error(t, err)
	counts, err = readPair(fileName, 4, false)
	require.NoError(t, err)
	assert.Equal(t, 3.0, counts[3][3])
	assert.Equal(t, 1.0, counts[3][1])
}

func TestStateCounts(t *testing.T) {
	counts := [][]float64{
		{3, 1},
		{2, 4},
	}
	assert.Equal(t, []float64{3 + 1 + 3 + 2, 2 + 4 + 1 + 4}, stateCounts(counts))
}

func TestPairFit(t *testing.T) {
	m, err := smodel.NewJC(4)
	require.NoError(t, err)
	const dist = 0.3
	p := m.ComputeTransMatrixFreq(dist, nil)
	counts := make([][]float64, 4)
	for i := range counts {
		counts[i] = make([]float64, 4)
		for j := range counts[i] {
			counts[i][j] = 1000 * p[i*4+j]
		}
	}

	pf := newPairFit(m, counts, 10)
	require.Len(t, pf.GetFloatParameters(), 1)
	ds := optimize.NewDS()
	ds.SetOptimizable(pf)
	ds.Run(1000)
	assert.InDelta(t, dist, pf.t, 1e-3)
	assert.InDelta(t, ds.GetMaxL(), pf.Likelihood(), 1e-9)
}

func TestTransitionLines(t *testing.T) {
	m, err := smodel.NewDNA("K80", nil, qmatrix.FreqEqual)
	require.NoError(t, err)
	lines, err := transitionLines(m, 1, 0, 2, 11)
	require.NoError(t, err)
	require.Len(t, lines, 4)
	for k := 0; k < 11; k++ {
		s := 0.0
		for _, l := range lines {
			s += l[k].Y
		}
		assert.InDelta(t, 1, s, 1e-9)
	}
	assert.InDelta(t, 1, lines[1][0].Y, 1e-12)
	assert.InDelta(t, 2, lines[0][10].X, 1e-12)

	_, err = transitionLines(m, 4, 0, 2, 11)
	assert.Error(t, err)
	_, err = transitionLines(m, 0, 2, 1, 11)
	assert.Error(t, err)
}
