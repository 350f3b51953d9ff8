package optimize

import (
	"math"
	"math/rand"
)

// MH is a Metropolis-Hastings sampler. Parameter boundaries act as
// uniform priors. With annealing the acceptance temperature decreases
// after annealingSkip iterations and the sampler becomes a simulated
// annealing optimizer.
type MH struct {
	BaseOptimizer
	// AccPeriod is how often the acceptance rate is logged.
	AccPeriod int
	// SD is the standard deviation of the normal proposal.
	SD float64
	// Proposal overrides the normal proposal if not nil.
	Proposal Proposal

	annealing bool
	// iteration to skip before annealing
	annealingSkip int
	rnd           *rand.Rand
}

// NewMH creates a new MH sampler.
func NewMH(annealing bool, annealingSkip int, seed int64) *MH {
	name := "mh"
	if annealing {
		name = "annealing"
	}
	return &MH{
		BaseOptimizer: NewBaseOptimizer(name),
		AccPeriod:     200,
		SD:            0.1,
		annealing:     annealing,
		annealingSkip: annealingSkip,
		rnd:           rand.New(rand.NewSource(seed)),
	}
}

// temperature returns the acceptance temperature for the current
// iteration.
func (m *MH) temperature(iterations int) float64 {
	if !m.annealing || m.i < m.annealingSkip || iterations <= m.annealingSkip {
		return 1
	}
	return math.Pow(0.9, float64(m.i-m.annealingSkip)/float64(iterations-m.annealingSkip)*100)
}

// Run starts sampling.
func (m *MH) Run(iterations int) {
	m.Start()
	m.PrintHeader()
	x := m.parameters.Values(nil)
	l := m.Evaluate(x)
	if len(x) == 0 {
		m.PrintLine(x, l)
		m.Finish()
		return
	}
	propose := m.Proposal
	if propose == nil {
		propose = NormalProposal(m.rnd, m.SD)
	}
	accepted := 0
	for m.i = 0; m.i < iterations; m.i++ {
		T := m.temperature(iterations)
		if m.i > 0 && m.i%m.AccPeriod == 0 {
			log.Infof("Acceptance rate %.2f%%", 100*float64(accepted)/float64(m.AccPeriod))
			accepted = 0
		}
		if m.annealing && m.i%m.repPeriod == 0 {
			log.Debugf("%d: T=%f", m.i, T)
		}
		m.Report(x, l)

		p := m.rnd.Intn(len(x))
		old := x[p]
		x[p] = propose(old)
		newL := m.Evaluate(x)

		a := math.Exp((newL - l) / T)
		if a > 1 || m.rnd.Float64() < a {
			l = newL
			accepted++
		} else {
			x[p] = old
			m.parameters.SetValues(x)
		}

		if m.Signaled() {
			break
		}
	}
	m.l = l
	m.Finish()
}
