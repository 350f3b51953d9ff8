package smodel

import (
	"errors"
	"math"
	"testing"

	"github.com/op/go-logging"

	"bitbucket.org/Davydov/substmodel/qmatrix"
)

const (
	// smallDiff is a threshold for comparing probabilities
	smallDiff = 1e-9
	// dervDiff is a threshold for numerical derivatives
	dervDiff = 1e-5
	// limitDiff is a threshold for P(t) at very large t
	limitDiff = 1e-7
)

func init() {
	logging.SetLevel(logging.ERROR, "smodel")
	logging.SetLevel(logging.ERROR, "qmatrix")
	logging.SetLevel(logging.ERROR, "optimize")
}

var testFreq = []float64{0.1, 0.2, 0.3, 0.4}

type namedModel struct {
	name string
	m    Model
}

func setVariables(tst *testing.T, m Model, vals ...float64) {
	v := append([]float64{0}, vals...)
	if len(v) != m.NDim()+1 {
		tst.Fatal("Expected", m.NDim(), "variables, got", len(vals))
	}
	if err := m.SetVariables(v); err != nil {
		tst.Fatal("Error setting variables:", err)
	}
}

func newHKY(tst *testing.T, kappa float64) *GTR {
	m, err := NewDNA("HKY", testFreq, qmatrix.FreqUserDefined)
	if err != nil {
		tst.Fatal(err)
	}
	setVariables(tst, m, kappa)
	return m
}

func newTestGTR(tst *testing.T) *GTR {
	m, err := NewDNA("GTR", nil, qmatrix.FreqEstimate)
	if err != nil {
		tst.Fatal(err)
	}
	setVariables(tst, m, 1.5, 3, 0.7, 1.2, 4, 0.25, 0.5, 0.75)
	return m
}

func newTestNonRev(tst *testing.T) *NonRev {
	m, err := NewNonRev(4)
	if err != nil {
		tst.Fatal(err)
	}
	err = m.SetRates([]float64{
		0.5, 2, 1,
		1.5, 0.3, 2.2,
		0.8, 1.1, 0.6,
		1.3, 0.4, 1.9,
	})
	if err != nil {
		tst.Fatal(err)
	}
	return m
}

func testModels(tst *testing.T) []namedModel {
	jc, err := NewJC(4)
	if err != nil {
		tst.Fatal(err)
	}
	poisson, err := NewJC(20)
	if err != nil {
		tst.Fatal(err)
	}
	bin, err := NewBinary([]float64{0.3, 0.7}, qmatrix.FreqUserDefined)
	if err != nil {
		tst.Fatal(err)
	}
	return []namedModel{
		{"JC", jc},
		{"POISSON", poisson},
		{"HKY", newHKY(tst, 2.5)},
		{"GTR", newTestGTR(tst)},
		{"Binary", bin},
		{"NonRev", newTestNonRev(tst)},
	}
}

var testTimes = []float64{1e-3, 0.1, 0.5, 1, 10}

func TestRowSums(tst *testing.T) {
	for _, nm := range testModels(tst) {
		n := nm.m.NStates()
		for _, t := range testTimes {
			p := nm.m.ComputeTransMatrix(t, nil)
			for i := 0; i < n; i++ {
				s := 0.0
				for j := 0; j < n; j++ {
					if p[i*n+j] < 0 {
						tst.Error(nm.name, ": negative probability at t=", t)
					}
					s += p[i*n+j]
				}
				if math.Abs(s-1) > smallDiff {
					tst.Error(nm.name, ": row", i, "sums to", s, "at t=", t)
				}
			}
		}
	}
}

func TestZeroTime(tst *testing.T) {
	for _, nm := range testModels(tst) {
		n := nm.m.NStates()
		p := nm.m.ComputeTransMatrix(0, nil)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				exp := 0.0
				if i == j {
					exp = 1
				}
				if p[i*n+j] != exp {
					tst.Error(nm.name, ": P(0)[", i, j, "]=", p[i*n+j])
				}
			}
		}
	}
}

func TestLargeTime(tst *testing.T) {
	for _, nm := range testModels(tst) {
		n := nm.m.NStates()
		freq := nm.m.StateFrequency(nil)
		p := nm.m.ComputeTransMatrix(1e6, nil)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if math.Abs(p[i*n+j]-freq[j]) > limitDiff {
					tst.Error(nm.name, ": P(1e6)[", i, j, "]=", p[i*n+j], ", pi=", freq[j])
				}
			}
		}
	}
}

func TestDetailedBalance(tst *testing.T) {
	for _, nm := range testModels(tst) {
		if !nm.m.IsReversible() {
			continue
		}
		n := nm.m.NStates()
		freq := nm.m.StateFrequency(nil)
		p := nm.m.ComputeTransMatrix(0.3, nil)
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				if math.Abs(freq[i]*p[i*n+j]-freq[j]*p[j*n+i]) > smallDiff {
					tst.Error(nm.name, ": detailed balance violated for", i, j)
				}
			}
		}
	}
}

func TestDerivatives(tst *testing.T) {
	h := 1e-5
	for _, nm := range testModels(tst) {
		for _, t := range []float64{0.05, 0.5, 2} {
			p, d1, d2 := nm.m.ComputeTransDerv(t, nil, nil, nil)
			pl, d1l, _ := nm.m.ComputeTransDerv(t-h, nil, nil, nil)
			pr, d1r, _ := nm.m.ComputeTransDerv(t+h, nil, nil, nil)
			for k := range p {
				nd1 := (pr[k] - pl[k]) / (2 * h)
				nd2 := (d1r[k] - d1l[k]) / (2 * h)
				if math.Abs(nd1-d1[k]) > dervDiff {
					tst.Error(nm.name, ": first derivative", k, "at t=", t, ":", d1[k], "numeric", nd1)
				}
				if math.Abs(nd2-d2[k]) > dervDiff {
					tst.Error(nm.name, ": second derivative", k, "at t=", t, ":", d2[k], "numeric", nd2)
				}
			}
		}
	}
}

func TestEntries(tst *testing.T) {
	for _, nm := range testModels(tst) {
		n := nm.m.NStates()
		for _, t := range testTimes {
			p := nm.m.ComputeTransMatrix(t, nil)
			dp, d1, d2 := nm.m.ComputeTransDerv(t, nil, nil, nil)
			for i := 0; i < n; i++ {
				for j := 0; j < n; j++ {
					k := i*n + j
					if e := nm.m.ComputeTrans(t, i, j); e != p[k] {
						tst.Error(nm.name, ": entry", i, j, "differs:", e, p[k])
					}
					if e := nm.m.ComputeTransModel(t, 0, i, j); e != p[k] {
						tst.Error(nm.name, ": model entry", i, j, "differs:", e, p[k])
					}
					ep, ed1, ed2 := nm.m.ComputeTransWithDerv(t, i, j)
					if math.Abs(ep-dp[k]) > 1e-12 || math.Abs(ed1-d1[k]) > 1e-12 || math.Abs(ed2-d2[k]) > 1e-12 {
						tst.Error(nm.name, ": entry derivatives", i, j, "differ")
					}
				}
			}
		}
	}
}

func TestFreqMatrices(tst *testing.T) {
	t, rate := 0.4, 1.7
	for _, nm := range testModels(tst) {
		n := nm.m.NStates()
		freq := nm.m.StateFrequency(nil)
		p := nm.m.ComputeTransMatrix(t, nil)
		pf := nm.m.ComputeTransMatrixFreq(t, nil)
		dp, d1, d2 := nm.m.ComputeTransDerv(t*rate, nil, nil, nil)
		fp, fd1, fd2 := nm.m.ComputeTransDervFreq(t, rate, nil, nil, nil)
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				k := i*n + j
				if math.Abs(pf[k]-freq[i]*p[k]) > smallDiff {
					tst.Error(nm.name, ": wrong frequency weighted probability", i, j)
				}
				if math.Abs(fp[k]-freq[i]*dp[k]) > smallDiff ||
					math.Abs(fd1[k]-freq[i]*rate*d1[k]) > smallDiff ||
					math.Abs(fd2[k]-freq[i]*rate*rate*d2[k]) > smallDiff {
					tst.Error(nm.name, ": wrong frequency weighted derivatives", i, j)
				}
			}
		}
	}
}

// TestJC checks the four-state Jukes-Cantor model against the closed
// form solution.
func TestJC(tst *testing.T) {
	m, err := NewJC(4)
	if err != nil {
		tst.Fatal(err)
	}
	if m.NDim() != 0 || m.Name() != "JC" {
		tst.Error("Wrong JC model:", m.Name(), m.NDim())
	}

	p := m.ComputeTransMatrix(0.1, nil)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			var exp float64
			if i == j {
				exp = 0.25 + 0.75*math.Exp(-4.0/3*0.1)
				if p[i*4+j] <= p[i*4+(j+1)%4] {
					tst.Error("Diagonal element is not larger than off-diagonal")
				}
			} else {
				exp = 0.25 - 0.25*math.Exp(-4.0/3*0.1)
			}
			if math.Abs(p[i*4+j]-exp) > smallDiff {
				tst.Error("P[", i, j, "]=", p[i*4+j], ", expected", exp)
			}
		}
	}

	prev := math.Inf(1)
	for _, t := range []float64{0.01, 0.1, 0.5, 1, 2, 5} {
		p := m.ComputeTransMatrix(t, nil)
		tv := 0.0
		for j := 0; j < 4; j++ {
			tv += math.Abs(p[j] - 0.25)
		}
		tv /= 2
		if tv >= prev {
			tst.Error("Distance to stationary distribution is not decreasing at t=", t)
		}
		prev = tv
	}

	if _, err := NewJC(1); !errors.Is(err, ErrInvalidDimension) {
		tst.Error("Expected ErrInvalidDimension, got", err)
	}
}

// TestEigenVsPade compares the eigendecomposition with the matrix
// exponential of the same rate matrix.
func TestEigenVsPade(tst *testing.T) {
	hky := newHKY(tst, 3)
	q := hky.QMatrix(nil)
	rates := make([]float64, 0, 12)
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			if i != j {
				rates = append(rates, q[i*4+j])
			}
		}
	}
	nr, err := NewNonRev(4)
	if err != nil {
		tst.Fatal(err)
	}
	if err := nr.SetRates(rates); err != nil {
		tst.Fatal(err)
	}

	freq := nr.StateFrequency(nil)
	for i, f := range testFreq {
		if math.Abs(freq[i]-f) > smallDiff {
			tst.Error("Wrong stationary frequency", i, ":", freq[i])
		}
	}
	for _, t := range testTimes {
		p1 := hky.ComputeTransMatrix(t, nil)
		p2 := nr.ComputeTransMatrix(t, nil)
		for k := range p1 {
			if math.Abs(p1[k]-p2[k]) > smallDiff {
				tst.Error("Matrices differ at t=", t, ":", p1[k], p2[k])
			}
		}
	}
}

func TestClosedForm(tst *testing.T) {
	// HKY with kappa=1 is F81
	hky := newHKY(tst, 1)
	if hky.path != pathClosed {
		tst.Error("Closed form is not used")
	}
	p := hky.ComputeTransMatrix(0.7, nil)
	for k, v := range qmatrix.F81Exp(nil, testFreq, 0.7) {
		if math.Abs(p[k]-v) > smallDiff {
			tst.Error("Wrong F81 probability", k, ":", p[k], v)
		}
	}
	setVariables(tst, hky, 2)
	if hky.path != pathEigen {
		tst.Error("Eigendecomposition is not used")
	}
}

func TestNewDNA(tst *testing.T) {
	data := []struct {
		name string
		ft   qmatrix.FreqType
		ndim int
	}{
		{"JC", qmatrix.FreqEstimate, 0},
		{"F81", qmatrix.FreqUserDefined, 0},
		{"F81", qmatrix.FreqEstimate, 3},
		{"K2P", qmatrix.FreqEstimate, 1},
		{"HKY", qmatrix.FreqEstimate, 4},
		{"TN93", qmatrix.FreqUserDefined, 2},
		{"K81", qmatrix.FreqUserDefined, 2},
		{"TIM", qmatrix.FreqUserDefined, 3},
		{"TVM", qmatrix.FreqUserDefined, 4},
		{"SYM", qmatrix.FreqUserDefined, 5},
		{"gtr", qmatrix.FreqEstimate, 8},
	}
	for _, d := range data {
		m, err := NewDNA(d.name, testFreq, d.ft)
		if err != nil {
			tst.Error(d.name, ":", err)
			continue
		}
		if m.NDim() != d.ndim {
			tst.Error(d.name, ": expected", d.ndim, "parameters, got", m.NDim())
		}
	}
	if _, err := NewDNA("XYZ", nil, qmatrix.FreqEqual); err == nil {
		tst.Error("Expected error for an unknown model")
	}
	if _, err := NewDNA("HKY", nil, qmatrix.FreqEmpirical); !errors.Is(err, ErrInvalidDimension) {
		tst.Error("Expected ErrInvalidDimension for missing frequencies, got", err)
	}
	if _, err := NewGTR(4, "0100", nil, qmatrix.FreqEqual); !errors.Is(err, ErrInvalidDimension) {
		tst.Error("Expected ErrInvalidDimension for a short code, got", err)
	}
}

func BenchmarkGTR(b *testing.B) {
	m, err := NewDNA("GTR", testFreq, qmatrix.FreqUserDefined)
	if err != nil {
		b.Fatal(err)
	}
	v := []float64{0, 1.5, 3, 0.7, 1.2, 4}
	p := m.NewTransMatrix()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		v[1] = 1 + float64(i%10)/10
		if err := m.SetVariables(v); err != nil {
			b.Fatal(err)
		}
		m.ComputeTransMatrix(0.1, p)
	}
}
