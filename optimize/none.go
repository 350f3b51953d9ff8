package optimize

// None is an optimizer which computes initial value and exits.
type None struct {
	BaseOptimizer
}

// NewNone creates an optimizer which computes initial likelihood only.
func NewNone() *None {
	return &None{
		BaseOptimizer: NewBaseOptimizer("none"),
	}
}

// Run computes the likelihood at the starting point.
func (n *None) Run(iterations int) {
	n.Start()
	n.PrintHeader()
	x := n.parameters.Values(nil)
	n.l = n.Evaluate(x)
	n.converged = true
	n.PrintLine(x, n.l)
	n.Finish()
}
