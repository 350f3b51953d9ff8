package matrix

import (
	"math"
	"strings"
	"testing"
)

const smallDiff = 1e-12

func TestNew(tst *testing.T) {
	if _, err := New(0, 3); err == nil {
		tst.Error("Zero dimension should be an error")
	}
	if _, err := NewFromArray(make([]float64, 5), 2, 3); err == nil {
		tst.Error("Size mismatch should be an error")
	}
	data := []float64{1, 2, 3, 4, 5, 6}
	m, err := NewFromArray(data, 2, 3)
	if err != nil {
		tst.Fatal(err)
	}
	m.SetItem(1, 2, 7)
	if data[5] != 7 || m.GetItem(1, 2) != 7 {
		tst.Error("Storage is not shared")
	}
	if n1, n2 := m.GetSize(); n1 != 2 || n2 != 3 {
		tst.Error("Incorrect size:", n1, n2)
	}
	if s := m.RowSums(); s[0] != 6 || s[1] != 16 {
		tst.Error("Incorrect row sums:", s)
	}
	if !strings.HasPrefix(m.String(), "<Matrix\n") {
		tst.Error("Incorrect string:", m)
	}
}

func TestMul(tst *testing.T) {
	a, _ := NewFromArray([]float64{1, 2, 3, 4}, 2, 2)
	id, _ := NewIdentity(2)
	p := a.Empty()
	p.Mul(a, id)
	for i, v := range p.Array() {
		if v != a.Array()[i] {
			tst.Error("A*I != A:", p)
		}
	}
	// in place
	a.Mul(a, a)
	exp := []float64{7, 10, 15, 22}
	for i, v := range a.Array() {
		if v != exp[i] {
			tst.Error("Incorrect product:", a)
		}
	}
}

func TestExponential(tst *testing.T) {
	// e^(tQ) for two-state chain with rates a and b
	a, b, t := 0.3, 0.7, 1.5
	q, _ := NewFromArray([]float64{-a, a, b, -b}, 2, 2)
	q.Scale(t)
	p := q.Empty()
	q.Exponential(p)
	e := math.Exp(-(a + b) * t)
	exp := []float64{
		(b + a*e) / (a + b), (a - a*e) / (a + b),
		(b - b*e) / (a + b), (a + b*e) / (a + b),
	}
	for i, v := range p.Array() {
		if math.Abs(v-exp[i]) > smallDiff {
			tst.Errorf("P[%d]=%v, expected %v", i, v, exp[i])
		}
	}

	c := q.Empty()
	q.Copy(c)
	c.Exponential(c)
	for i, v := range c.Array() {
		if math.Abs(v-p.Array()[i]) > smallDiff {
			tst.Error("In place exponential differs:", c)
		}
	}
}
