package optimize

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"os"
	"strconv"
	"strings"
)

const (
	// MIN and MAX limit randomized starting values for unbounded
	// parameters.
	MIN = -10
	MAX = +10
)

// FloatParameter is a single named optimizable parameter.
type FloatParameter interface {
	Name() string
	String() string
	SetMin(float64)
	SetMax(float64)
	GetMin() float64
	GetMax() float64
	SetOnChange(func())
	Get() float64
	Set(float64)
	Clamp(float64) float64
	InRange() bool
	ValueInRange(float64) bool
}

// FloatParameters is a list of parameters.
type FloatParameters []FloatParameter

// Append adds a parameter.
func (p *FloatParameters) Append(par FloatParameter) {
	*p = append(*p, par)
}

// Names returns parameter names.
func (p FloatParameters) Names(is []string) (s []string) {
	if is == nil {
		s = make([]string, len(p))
	} else {
		s = is
	}
	for i, par := range p {
		s[i] = par.Name()
	}
	return
}

// Values returns parameter values. If iv is not nil, it is used as
// a storage.
func (p FloatParameters) Values(iv []float64) (v []float64) {
	if iv == nil {
		v = make([]float64, len(p))
	} else {
		v = iv
	}
	for i, par := range p {
		v[i] = par.Get()
	}
	return
}

// ValuesInRange checks if all the values are within parameter
// boundaries.
func (p FloatParameters) ValuesInRange(vals []float64) bool {
	if len(vals) != len(p) {
		panic("Incorrect number of parameters")
	}
	for i, par := range p {
		if !par.ValueInRange(vals[i]) {
			return false
		}
	}
	return true
}

// SetValues sets all parameter values.
func (p FloatParameters) SetValues(v []float64) error {
	if len(v) != len(p) {
		return errors.New("incorrect number of parameters")
	}
	for i, par := range p {
		par.Set(v[i])
	}
	return nil
}

// ReadLine sets parameter values from a trajectory line (iteration,
// likelihood and the values).
func (p FloatParameters) ReadLine(l string) error {
	v, err := ReadFloats(l)
	if err != nil {
		return err
	}
	if len(v) < 2 {
		return errors.New("trajectory line is too short")
	}
	return p.SetValues(v[2:])
}

// ReadFromJSON sets parameter values from a JSON file containing a
// name to value map.
func (p FloatParameters) ReadFromJSON(fileName string) error {
	b, err := os.ReadFile(fileName)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, &p)
}

// Update copies values from another parameter list.
func (p FloatParameters) Update(pSrc *FloatParameters) {
	for i := range p {
		p[i].Set((*pSrc)[i].Get())
	}
}

// Randomize sets parameters to uniformly distributed values within
// the boundaries.
func (p FloatParameters) Randomize(rnd *rand.Rand) {
	for _, par := range p {
		min := math.Max(MIN, par.GetMin())
		max := math.Min(MAX, par.GetMax())
		d := max - min
		par.Set(min + rnd.Float64()*d)
	}
}

// InRange returns true if all the parameters are within boundaries.
func (p FloatParameters) InRange() bool {
	for _, par := range p {
		if !par.InRange() {
			return false
		}
	}
	return true
}

// NamesString returns tab-separated parameter names.
func (p FloatParameters) NamesString() string {
	return strings.Join(p.Names(nil), "\t")
}

// ValuesString returns tab-separated parameter values.
func (p FloatParameters) ValuesString() string {
	s := make([]string, len(p))
	for i, par := range p {
		s[i] = par.String()
	}
	return strings.Join(s, "\t")
}

// ValuesMap returns parameter values as a map.
func (p FloatParameters) ValuesMap() map[string]float64 {
	m := make(map[string]float64, len(p))
	for _, par := range p {
		m[par.Name()] = par.Get()
	}
	return m
}

// SetFromMap sets parameter values from a map. Every parameter
// should be present in the map.
func (p FloatParameters) SetFromMap(m map[string]float64) error {
	for _, par := range p {
		v, ok := m[par.Name()]
		if !ok {
			return fmt.Errorf("parameter %s not found", par.Name())
		}
		par.Set(v)
	}
	return nil
}

// MarshalJSON encodes parameters as a name to value map.
func (p FloatParameters) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.ValuesMap())
}

// UnmarshalJSON sets parameter values from a name to value map.
func (p *FloatParameters) UnmarshalJSON(b []byte) error {
	var m map[string]float64
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	if len(m) != len(*p) {
		return errors.New("incorrect number of parameters")
	}
	return p.SetFromMap(m)
}

// BasicFloatParameter is a parameter stored in a float64 variable.
type BasicFloatParameter struct {
	*float64
	name     string
	min      float64
	max      float64
	onChange func()
}

// NewBasicFloatParameter creates a new unbounded parameter.
func NewBasicFloatParameter(par *float64, name string) *BasicFloatParameter {
	return &BasicFloatParameter{
		float64: par,
		name:    name,
		min:     math.Inf(-1),
		max:     math.Inf(+1),
	}
}

// SetMin sets the lower boundary.
func (p *BasicFloatParameter) SetMin(min float64) {
	p.min = min
}

// SetMax sets the upper boundary.
func (p *BasicFloatParameter) SetMax(max float64) {
	p.max = max
}

// SetOnChange sets a function called every time the value changes.
func (p *BasicFloatParameter) SetOnChange(f func()) {
	p.onChange = f
}

// Get returns the value.
func (p *BasicFloatParameter) Get() float64 {
	return *p.float64
}

// Set sets the value.
func (p *BasicFloatParameter) Set(v float64) {
	if *p.float64 == v {
		// do nothing if value has not changed
		return
	}
	*p.float64 = v
	if p.onChange != nil {
		p.onChange()
	}
}

// Clamp returns v moved inside the boundaries.
func (p *BasicFloatParameter) Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return math.Max(p.min, math.Min(p.max, *p.float64))
	}
	return math.Max(p.min, math.Min(p.max, v))
}

// GetMin returns the lower boundary.
func (p *BasicFloatParameter) GetMin() float64 {
	return p.min
}

// GetMax returns the upper boundary.
func (p *BasicFloatParameter) GetMax() float64 {
	return p.max
}

// ValueInRange returns true if v is within the boundaries.
func (p *BasicFloatParameter) ValueInRange(v float64) bool {
	if v < p.min || v > p.max || math.IsNaN(v) {
		return false
	}
	return true
}

// InRange returns true if the current value is within the
// boundaries.
func (p *BasicFloatParameter) InRange() bool {
	return p.ValueInRange(*p.float64)
}

// Name returns the parameter name.
func (p *BasicFloatParameter) Name() string {
	return p.name
}

func (p *BasicFloatParameter) String() string {
	return strconv.FormatFloat(*p.float64, 'f', 6, 64)
}
