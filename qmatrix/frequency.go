package qmatrix

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// MinFrequency is the smallest allowed state frequency.
const MinFrequency = 1e-4

// freqTolerance is the allowed deviation of the frequency sum from 1.
const freqTolerance = 1e-6

// FreqType is the way state frequencies are obtained.
type FreqType int

const (
	// FreqEqual is equal frequencies.
	FreqEqual FreqType = iota
	// FreqEmpirical is frequencies counted from the data.
	FreqEmpirical
	// FreqUserDefined is frequencies supplied by user.
	FreqUserDefined
	// FreqEstimate is frequencies estimated by maximum likelihood.
	FreqEstimate
)

var freqTypeNames = map[FreqType]string{
	FreqEqual:       "equal",
	FreqEmpirical:   "empirical",
	FreqUserDefined: "user",
	FreqEstimate:    "estimate",
}

func (ft FreqType) String() string {
	if s, ok := freqTypeNames[ft]; ok {
		return s
	}
	return "unknown"
}

// ParseFreqType converts a name into FreqType.
func ParseFreqType(s string) (FreqType, error) {
	for ft, name := range freqTypeNames {
		if strings.EqualFold(s, name) {
			return ft, nil
		}
	}
	return FreqEqual, fmt.Errorf("unknown frequency type: %s", s)
}

// EqualFrequency returns equal frequencies for n states.
func EqualFrequency(n int) []float64 {
	freq := make([]float64, n)
	for i := range freq {
		freq[i] = 1 / float64(n)
	}
	return freq
}

// EmpiricalFrequency computes state frequencies from state counts.
// Too small frequencies are raised to MinFrequency.
func EmpiricalFrequency(counts []float64) ([]float64, error) {
	if len(counts) < 2 {
		return nil, fmt.Errorf("%w: %d states", ErrInvalidDimension, len(counts))
	}
	for i, c := range counts {
		if c < 0 || math.IsNaN(c) {
			return nil, fmt.Errorf("%w: count %d=%v", ErrParameterDomain, i, c)
		}
	}
	if floats.Sum(counts) == 0 {
		return EqualFrequency(len(counts)), nil
	}
	freq := make([]float64, len(counts))
	copy(freq, counts)
	NormalizeFrequency(freq)
	return freq, nil
}

// NormalizeFrequency makes frequencies sum to one and raises values
// below MinFrequency.
func NormalizeFrequency(freq []float64) {
	sum := floats.Sum(freq)
	floats.Scale(1/sum, freq)
	clamped := false
	for i, f := range freq {
		if f < MinFrequency {
			freq[i] = MinFrequency
			clamped = true
		}
	}
	if clamped {
		log.Warningf("some state frequencies are below %g and were increased", MinFrequency)
		floats.Scale(1/floats.Sum(freq), freq)
	}
}

// CheckFrequency returns an error if the frequencies are not a
// distribution with positive entries.
func CheckFrequency(freq []float64) error {
	for i, f := range freq {
		if f <= 0 || f >= 1 || math.IsNaN(f) {
			return fmt.Errorf("%w: frequency %d=%v", ErrParameterDomain, i, f)
		}
	}
	if s := floats.Sum(freq); math.Abs(s-1) > freqTolerance {
		return fmt.Errorf("%w: frequencies sum to %v", ErrParameterDomain, s)
	}
	return nil
}

// ReadFrequency reads n state frequencies from a reader. It should be
// just a list of numbers in a text format. The frequencies are
// normalized.
func ReadFrequency(rd io.Reader, n int) ([]float64, error) {
	freq := make([]float64, 0, n)

	scanner := bufio.NewScanner(rd)
	scanner.Split(bufio.ScanWords)
	for scanner.Scan() {
		if len(freq) >= n {
			return nil, errors.New("too many frequencies in file")
		}
		f, err := strconv.ParseFloat(scanner.Text(), 64)
		if err != nil {
			return nil, err
		}
		if f < 0 {
			return nil, fmt.Errorf("%w: negative frequency %v", ErrParameterDomain, f)
		}
		freq = append(freq, f)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(freq) < n {
		return nil, errors.New("not enough frequencies in file")
	}
	if floats.Sum(freq) == 0 {
		return nil, fmt.Errorf("%w: frequencies sum to zero", ErrParameterDomain)
	}
	NormalizeFrequency(freq)
	return freq, nil
}
