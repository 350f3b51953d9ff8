package smodel

import (
	"fmt"
	"strings"

	"bitbucket.org/Davydov/substmodel/qmatrix"
)

// GTR is a general time-reversible model with exchange rates grouped
// into classes. The rate of the class of the last pair is fixed at 1.
type GTR struct {
	*BaseModel
	// class is the rate class for every pair (upper triangle).
	class []int
	// classRates are the rates of the classes.
	classRates []float64
	rates      []float64
}

// dnaModel describes a named nucleotide model.
type dnaModel struct {
	name  string
	full  string
	code  string
	equal bool
}

// DNA models, rate classes are for pairs AC AG AT CG CT GT.
var dnaModels = map[string]dnaModel{
	"JC":    {"JC", "JC (Jukes and Cantor 1969)", "000000", true},
	"F81":   {"F81", "F81 (Felsenstein 1981)", "000000", false},
	"K80":   {"K80", "K80 (Kimura 1980)", "010010", true},
	"K2P":   {"K80", "K80 (Kimura 1980)", "010010", true},
	"HKY":   {"HKY", "HKY (Hasegawa, Kishino and Yano 1985)", "010010", false},
	"HKY85": {"HKY", "HKY (Hasegawa, Kishino and Yano 1985)", "010010", false},
	"TNE":   {"TNe", "TN93 with equal frequencies", "010020", true},
	"TN93":  {"TN93", "TN93 (Tamura and Nei 1993)", "010020", false},
	"TRN":   {"TN93", "TN93 (Tamura and Nei 1993)", "010020", false},
	"K81":   {"K81", "K81 (Kimura 1981)", "012210", true},
	"K3P":   {"K81", "K81 (Kimura 1981)", "012210", true},
	"K81U":  {"K81u", "K81 with unequal frequencies", "012210", false},
	"TIME":  {"TIMe", "TIM with equal frequencies", "012230", true},
	"TIM":   {"TIM", "TIM (transition model)", "012230", false},
	"TVME":  {"TVMe", "TVM with equal frequencies", "412310", true},
	"TVM":   {"TVM", "TVM (transversion model)", "412310", false},
	"SYM":   {"SYM", "SYM (Zharkikh 1994)", "012345", true},
	"GTR":   {"GTR", "GTR (Tavare 1986)", "012345", false},
}

// NewGTR creates a time-reversible model with n states. Every symbol
// of code defines the rate class of a pair (upper triangle in row
// order), empty code means every pair has its' own rate.
func NewGTR(n int, code string, freq []float64, ft qmatrix.FreqType) (*GTR, error) {
	m, err := newGTR(n, code, freq, ft, nil)
	if err != nil {
		return nil, err
	}
	if err := m.DecomposeRateMatrix(); err != nil {
		return nil, err
	}
	return m, nil
}

// newGTR creates a GTR model dispatching derived operations to self.
func newGTR(n int, code string, freq []float64, ft qmatrix.FreqType, self Model) (*GTR, error) {
	if n < 2 {
		return nil, fmt.Errorf("%w: %d states", ErrInvalidDimension, n)
	}
	npairs := qmatrix.NumRateEntries(n)
	if code != "" && len(code) != npairs {
		return nil, fmt.Errorf("%w: rate code %q for %d pairs", ErrInvalidDimension, code, npairs)
	}

	m := &GTR{
		class: make([]int, npairs),
		rates: make([]float64, npairs),
	}
	if self == nil {
		self = m
	}
	m.BaseModel = NewBaseModel(n, self)
	m.name = "GTR"
	m.fullName = fmt.Sprintf("GTR (%d states)", n)

	first := make([]int, 0, npairs)
	if code == "" {
		for k := range m.class {
			m.class[k] = k
			first = append(first, k)
		}
	} else {
		symbols := make(map[byte]int)
		for k := 0; k < npairs; k++ {
			c, ok := symbols[code[k]]
			if !ok {
				c = len(symbols)
				symbols[code[k]] = c
				first = append(first, k)
			}
			m.class[k] = c
		}
	}
	m.classRates = make([]float64, len(first))
	for c := range m.classRates {
		m.classRates[c] = 1
	}

	if err := m.setFrequency(freq, ft); err != nil {
		return nil, err
	}
	fixed := m.class[npairs-1]
	for c, k := range first {
		if c == fixed {
			continue
		}
		i, j := pairStates(n, k)
		m.addRateParameter(&m.classRates[c], "r_"+m.labels[i]+m.labels[j], minRate, maxRate)
	}
	m.addFrequencyParameters()
	return m, nil
}

// NewDNA creates a named nucleotide model (JC, F81, K80, HKY, TN93,
// K81, TIM, TVM, SYM, GTR and their variants). Models with equal
// frequencies ignore freq and ft.
func NewDNA(name string, freq []float64, ft qmatrix.FreqType) (*GTR, error) {
	dm, ok := dnaModels[strings.ToUpper(name)]
	if !ok {
		return nil, fmt.Errorf("unknown DNA model: %s", name)
	}
	if dm.equal {
		ft = qmatrix.FreqEqual
	}
	m, err := NewGTR(4, dm.code, freq, ft)
	if err != nil {
		return nil, err
	}
	m.name = dm.name
	m.fullName = dm.full
	return m, nil
}

// pairStates returns the states of the k-th upper triangle pair.
func pairStates(n, k int) (i, j int) {
	for i = 0; i < n-1; i++ {
		if k < n-1-i {
			return i, i + 1 + k
		}
		k -= n - 1 - i
	}
	panic("pair index out of range")
}

// buildMatrix creates the rate matrix from the class rates.
func (m *GTR) buildMatrix(freq []float64, q *qmatrix.RateMatrix) (*qmatrix.RateMatrix, error) {
	for k, c := range m.class {
		m.rates[k] = m.classRates[c]
	}
	return qmatrix.CreateRateMatrix(m.rates, freq, q)
}

// NumClasses returns the number of rate classes.
func (m *GTR) NumClasses() int {
	return len(m.classRates)
}

// Binary is a two-state time-reversible model.
type Binary struct {
	*GTR
}

// NewBinary creates a two-state model. With two states there is a
// single exchange rate, so the transition probabilities always have
// a closed form.
func NewBinary(freq []float64, ft qmatrix.FreqType) (*Binary, error) {
	m := &Binary{}
	gtr, err := newGTR(2, "", freq, ft, m)
	if err != nil {
		return nil, err
	}
	m.GTR = gtr
	if ft == qmatrix.FreqEqual {
		m.name = "JC2"
		m.fullName = "JC2 (binary with equal frequencies)"
	} else {
		m.name = "GTR2"
		m.fullName = "GTR2 (binary)"
	}
	if err := m.DecomposeRateMatrix(); err != nil {
		return nil, err
	}
	return m, nil
}
