package main

import (
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"bitbucket.org/Davydov/substmodel/bio"
	"bitbucket.org/Davydov/substmodel/optimize"
	"bitbucket.org/Davydov/substmodel/optimize/lbfgsb"
	"bitbucket.org/Davydov/substmodel/qmatrix"
	"bitbucket.org/Davydov/substmodel/smodel"
)

// config is the settings file. Command line flags override it.
type config struct {
	Model struct {
		Name       string             `yaml:"name"`
		States     int                `yaml:"states"`
		Freq       string             `yaml:"freq"`
		FreqFile   string             `yaml:"freqfile"`
		Code       string             `yaml:"code"`
		Parameters map[string]float64 `yaml:"parameters"`
	} `yaml:"model"`
	Optimizer struct {
		Method     string  `yaml:"method"`
		Iterations int     `yaml:"iterations"`
		Report     int     `yaml:"report"`
		Epsilon    float64 `yaml:"epsilon"`
		MaxDist    float64 `yaml:"maxdist"`
	} `yaml:"optimizer"`
}

// readConfig reads a YAML settings file. Empty file is a valid
// configuration.
func readConfig(rd io.Reader) (*config, error) {
	c := &config{}
	dec := yaml.NewDecoder(rd)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return c, nil
}

// loadConfig reads the settings file if the name is not empty.
func loadConfig(fileName string) (*config, error) {
	if fileName == "" {
		return &config{}, nil
	}
	f, err := os.Open(fileName)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	c, err := readConfig(f)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %v", fileName, err)
	}
	return c, nil
}

// modelSettings stores settings for creating a new model.
type modelSettings struct {
	name     string
	nstates  int
	freqType string
	freqF    string
	code     string
	params   map[string]float64
}

// newModelSettings initializes modelSettings from the configuration
// and global variables (command-line arguments), the latter take
// precedence.
func newModelSettings(c *config) (*modelSettings, error) {
	ms := &modelSettings{
		name:     "JC",
		nstates:  4,
		freqType: qmatrix.FreqEqual.String(),
		freqF:    c.Model.FreqFile,
		code:     c.Model.Code,
		params:   make(map[string]float64),
	}
	if c.Model.Name != "" {
		ms.name = c.Model.Name
	}
	if c.Model.States != 0 {
		ms.nstates = c.Model.States
	}
	if c.Model.Freq != "" {
		ms.freqType = c.Model.Freq
	}
	for k, v := range c.Model.Parameters {
		ms.params[k] = v
	}

	if *model != "" {
		ms.name = *model
	}
	if *nstates != 0 {
		ms.nstates = *nstates
	}
	if *freqType != "" {
		ms.freqType = *freqType
	}
	if *freqF != "" {
		ms.freqF = *freqF
	}
	if *code != "" {
		ms.code = *code
	}
	for k, s := range *params {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("parameter %s: %v", k, err)
		}
		ms.params[k] = v
	}
	return ms, nil
}

// states returns the number of states of the model.
func (ms *modelSettings) states() int {
	switch strings.ToUpper(ms.name) {
	case "BIN", "BINARY":
		return len(bio.Binary)
	case "M0", "CODON":
		return len(bio.SenseCodons)
	case "POISSON":
		return len(bio.Protein)
	case "NONREV":
		return ms.nstates
	case "JC", "GTR":
		if ms.code != "" || ms.nstates != 4 {
			return ms.nstates
		}
	}
	return len(bio.DNA)
}

// frequency returns the frequency type and the frequencies. counts
// are the observed state counts, they are required for the empirical
// frequencies.
func (ms *modelSettings) frequency(counts []float64) (qmatrix.FreqType, []float64, error) {
	ft, err := qmatrix.ParseFreqType(ms.freqType)
	if err != nil {
		return ft, nil, err
	}
	if ms.freqF != "" {
		f, err := os.Open(ms.freqF)
		if err != nil {
			return ft, nil, err
		}
		defer f.Close()
		freq, err := qmatrix.ReadFrequency(f, ms.states())
		if err != nil {
			return ft, nil, err
		}
		if ft != qmatrix.FreqEstimate {
			ft = qmatrix.FreqUserDefined
		}
		return ft, freq, nil
	}

	switch ft {
	case qmatrix.FreqEmpirical:
		if counts == nil {
			return ft, nil, errors.New("empirical frequencies require an alignment")
		}
		freq, err := qmatrix.EmpiricalFrequency(counts)
		return ft, freq, err
	case qmatrix.FreqUserDefined:
		return ft, nil, errors.New("user defined frequencies require a frequency file")
	}
	return ft, nil, nil
}

// createModel creates a new model from modelSettings.
func (ms *modelSettings) createModel(counts []float64) (smodel.Model, error) {
	ft, freq, err := ms.frequency(counts)
	if err != nil {
		return nil, err
	}
	n := ms.states()
	name := strings.ToUpper(ms.name)

	var m smodel.Model
	switch {
	case name == "POISSON" || (name == "JC" && n != len(bio.DNA)):
		log.Infof("Using Poisson model with %d states", n)
		m, err = smodel.NewJC(n)
	case name == "BIN" || name == "BINARY":
		log.Info("Using binary model")
		m, err = smodel.NewBinary(freq, ft)
	case name == "M0" || name == "CODON":
		log.Info("Using M0 codon model")
		m, err = smodel.NewCodon(freq, ft)
	case name == "NONREV":
		log.Infof("Using non-reversible model with %d states", n)
		m, err = smodel.NewNonRev(n)
	case name == "GTR" && (ms.code != "" || n != len(bio.DNA)):
		log.Infof("Using GTR model with %d states, rate code %q", n, ms.code)
		m, err = smodel.NewGTR(n, ms.code, freq, ft)
	default:
		m, err = smodel.NewDNA(ms.name, freq, ft)
		if err == nil {
			log.Infof("Using %s model", m.FullName())
		}
	}
	if err != nil {
		return nil, err
	}
	if err := setParameters(m, ms.params); err != nil {
		return nil, err
	}
	log.Infof("Model has %d parameters.", m.NDim())
	return m, nil
}

// setParameters sets model parameters by name.
func setParameters(m smodel.Model, params map[string]float64) error {
	if len(params) == 0 {
		return nil
	}
	pars := m.GetFloatParameters()
	v := make([]float64, len(pars)+1)
	if err := m.GetVariables(v); err != nil {
		return err
	}
	index := make(map[string]int, len(pars))
	for i, name := range pars.Names(nil) {
		index[name] = i + 1
	}
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		i, ok := index[name]
		if !ok {
			return fmt.Errorf("unknown parameter %s, model parameters: %v", name, pars.Names(nil))
		}
		v[i] = params[name]
	}
	return m.SetVariables(v)
}

// optimizerSettings stores settings for creation of a new optimizer.
type optimizerSettings struct {
	method     string
	iterations int
	report     int
	epsilon    float64
	maxDist    float64

	startF    string
	randomize bool
	seed      int64
}

// newOptimizerSettings creates a new optimizerSettings from the
// configuration and the command line parameters.
func newOptimizerSettings(c *config) *optimizerSettings {
	o := &optimizerSettings{
		method:     "simplex",
		iterations: 10000,
		report:     10,
		epsilon:    optimize.DefaultEpsilon,
		maxDist:    10,
		startF:     *startF,
		randomize:  *randomize,
		seed:       *seed,
	}
	if c.Optimizer.Method != "" {
		o.method = c.Optimizer.Method
	}
	if c.Optimizer.Iterations > 0 {
		o.iterations = c.Optimizer.Iterations
	}
	if c.Optimizer.Report > 0 {
		o.report = c.Optimizer.Report
	}
	if c.Optimizer.Epsilon > 0 {
		o.epsilon = c.Optimizer.Epsilon
	}
	if c.Optimizer.MaxDist > 0 {
		o.maxDist = c.Optimizer.MaxDist
	}

	if *method != "" {
		o.method = *method
	}
	if *iterations > 0 {
		o.iterations = *iterations
	}
	if *report > 0 {
		o.report = *report
	}
	if *epsilon > 0 {
		o.epsilon = *epsilon
	}
	if *maxDist > 0 {
		o.maxDist = *maxDist
	}
	return o
}

// getOptimizer returns an optimizer from settings.
func (o *optimizerSettings) getOptimizer() (optimize.Optimizer, error) {
	switch o.method {
	case "lbfgsb":
		return lbfgsb.NewLBFGSB(), nil
	case "bfgs":
		return optimize.NewBFGS(), nil
	case "simplex":
		return optimize.NewDS(), nil
	case "mh":
		return optimize.NewMH(false, 0, o.seed), nil
	case "annealing":
		// sample for 20% of iterations before cooling down
		return optimize.NewMH(true, o.iterations/5, o.seed), nil
	case "none":
		return optimize.NewNone(), nil
	}
	return nil, fmt.Errorf("unknown optimization method: %s", o.method)
}

// initParameters sets the starting point from a trajectory or a JSON
// file, or randomizes it.
func (o *optimizerSettings) initParameters(par optimize.FloatParameters) error {
	if o.startF != "" {
		l, err := optimize.LastLine(o.startF)
		if err == nil {
			err = par.ReadLine(l)
		}
		if err != nil {
			log.Debug("Reading start file as JSON")
			err2 := par.ReadFromJSON(o.startF)
			// startF is neither trajectory nor correct JSON
			if err2 != nil {
				log.Error("Error reading start position from JSON:", err2)
				return fmt.Errorf("error reading start position from trajectory file: %v", err)
			}
		}
		if !par.InRange() {
			return errors.New("initial parameters are not in the range")
		}
	} else if o.randomize {
		log.Info("Using uniform (in the boundaries) random starting point")
		par.Randomize(rand.New(rand.NewSource(o.seed)))
	}
	return nil
}
