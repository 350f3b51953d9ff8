package optimize

import (
	"bytes"
	"math"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"

	"github.com/op/go-logging"

	"bitbucket.org/Davydov/substmodel/checkpoint"
)

func init() {
	logging.SetLevel(logging.ERROR, "optimize")
}

// quadratic has a maximum at (3, 0.5).
type quadratic struct {
	x, y       float64
	parameters FloatParameters
	calls      int
}

func newQuadratic() *quadratic {
	q := &quadratic{x: 1, y: 1}
	px := NewBasicFloatParameter(&q.x, "x")
	px.SetMin(-10)
	px.SetMax(10)
	py := NewBasicFloatParameter(&q.y, "y")
	py.SetMin(0.1)
	py.SetMax(10)
	q.parameters = FloatParameters{px, py}
	return q
}

func (q *quadratic) GetFloatParameters() FloatParameters {
	return q.parameters
}

func (q *quadratic) Likelihood() float64 {
	q.calls++
	return -(q.x-3)*(q.x-3) - 2*(q.y-0.5)*(q.y-0.5) - 1
}

func testOptimizer(tst *testing.T, opt Optimizer) {
	q := newQuadratic()
	var out bytes.Buffer
	opt.SetOptimizable(q)
	opt.SetOutput(&out)
	opt.SetEpsilon(1e-12)
	opt.Run(10000)

	if !opt.Converged() {
		tst.Error("Optimizer has not converged")
	}
	if math.Abs(q.x-3) > 1e-3 || math.Abs(q.y-0.5) > 1e-3 {
		tst.Error("Incorrect maximum: x=", q.x, ", y=", q.y)
	}
	if math.Abs(opt.GetMaxL()+1) > 1e-6 {
		tst.Error("Incorrect maximum likelihood:", opt.GetMaxL())
	}
	if q.Likelihood() != opt.GetMaxL() {
		tst.Error("Parameters were not set to the best point")
	}
	if !strings.HasPrefix(out.String(), "iteration\tlikelihood\tx\ty\n") {
		tst.Error("Incorrect trajectory header:", out.String())
	}
	s := opt.Summary()
	if s.LikelihoodCalls == 0 || !s.Converged || len(s.MaxLParameters) != 2 {
		tst.Error("Incorrect summary:", s)
	}
}

func TestDS(tst *testing.T) {
	testOptimizer(tst, NewDS())
}

func TestBFGS(tst *testing.T) {
	testOptimizer(tst, NewBFGS())
}

func TestDSIterations(tst *testing.T) {
	q := newQuadratic()
	ds := NewDS()
	ds.SetOptimizable(q)
	ds.SetEpsilon(0)
	ds.Run(5)
	if ds.Converged() {
		tst.Error("Optimizer should not converge in 5 iterations")
	}
	if ds.Summary().Iterations != 5 {
		tst.Error("Expected 5 iterations, got", ds.Summary().Iterations)
	}
	// best point is kept
	if q.Likelihood() != ds.GetMaxL() {
		tst.Error("Parameters were not set to the best point")
	}
}

func TestNone(tst *testing.T) {
	q := newQuadratic()
	n := NewNone()
	n.SetOptimizable(q)
	n.Run(100)
	if n.GetMaxL() != -5.5 {
		tst.Error("Expected -5.5, got", n.GetMaxL())
	}
	if q.x != 1 || q.y != 1 {
		tst.Error("Parameters changed")
	}
}

func TestAnnealing(tst *testing.T) {
	q := newQuadratic()
	m := NewMH(true, 1000, 1)
	m.SetOptimizable(q)
	m.Run(20000)
	if math.Abs(q.x-3) > 0.05 || math.Abs(q.y-0.5) > 0.05 {
		tst.Error("Incorrect maximum: x=", q.x, ", y=", q.y)
	}
	if q.Likelihood() != m.GetMaxL() {
		tst.Error("Parameters were not set to the best point")
	}
	if m.Summary().Method != "annealing" {
		tst.Error("Incorrect method name:", m.Summary().Method)
	}
}

func TestMH(tst *testing.T) {
	q := newQuadratic()
	m := NewMH(false, 0, 1)
	m.SetOptimizable(q)
	m.Run(1000)
	s := m.Summary()
	if s.LikelihoodCalls+s.OutOfBounds != 1001 {
		tst.Error("Expected 1001 evaluations, got", s.LikelihoodCalls, "+", s.OutOfBounds)
	}
	if s.LikelihoodCalls != q.calls {
		tst.Error("Likelihood calls mismatch:", s.LikelihoodCalls, q.calls)
	}
	if s.MaxLnL < -5.5 {
		tst.Error("Maximum is below the starting point:", s.MaxLnL)
	}
	if !q.GetFloatParameters().InRange() {
		tst.Error("Parameters are out of range")
	}
}

// peak has a single point with non-negligible likelihood at (1, 1).
type peak struct {
	*quadratic
}

func (p peak) Likelihood() float64 {
	p.calls++
	if p.x == 1 && p.y == 1 {
		return 0
	}
	return -1e10
}

func TestMHRejected(tst *testing.T) {
	q := peak{newQuadratic()}
	m := NewMH(false, 0, 1)
	m.SetOptimizable(q)
	m.Proposal = func(v float64) float64 {
		if q.x != 1 || q.y != 1 {
			tst.Fatal("Rejected values were not restored: x=", q.x, ", y=", q.y)
		}
		return v + 0.5
	}
	m.Run(1000)
	s := m.Summary()
	if s.LikelihoodCalls != 1001 || s.OutOfBounds != 0 {
		tst.Error("Expected 1001 likelihood calls, got", s.LikelihoodCalls, "+", s.OutOfBounds)
	}
	if s.MaxLnL != 0 {
		tst.Error("Incorrect maximum:", s.MaxLnL)
	}
}

func TestUniformProposal(tst *testing.T) {
	p := UniformProposal(rand.New(rand.NewSource(1)), 0.5)
	for i := 0; i < 1000; i++ {
		if x := p(1); x < 0.75 || x > 1.25 {
			tst.Error("Proposal out of the window:", x)
		}
	}
}

func TestCheckpoint(tst *testing.T) {
	db, err := checkpoint.Open(filepath.Join(tst.TempDir(), "checkpoint.db"))
	if err != nil {
		tst.Fatal(err)
	}
	defer db.Close()

	q := newQuadratic()
	ds := NewDS()
	ds.SetOptimizable(q)
	ds.SetCheckpointIO(checkpoint.NewCheckpointIO(db, "quadratic", 0))
	ds.Run(10000)

	data, err := checkpoint.NewCheckpointIO(db, "quadratic", 0).Load()
	if err != nil {
		tst.Fatal(err)
	}
	if data == nil || !data.Final {
		tst.Fatal("Final checkpoint was not saved")
	}
	if data.Likelihood != ds.GetMaxL() || data.Parameters["x"] != q.x {
		tst.Error("Incorrect checkpoint:", data)
	}
}
