/*
Substtool works with time-reversible and non-reversible substitution
models. It prints transition probability matrices and model
information, plots transition probabilities and estimates model
parameters and the distance between a pair of aligned sequences.

Print P(0.1) of the HKY model:

	substtool --model HKY --par r_AG=4 pmatrix --time 0.1

Estimate GTR parameters and the distance between two sequences:

	substtool --model GTR --freq empirical fit pair.fst

Estimate the distance between two translated coding sequences:

	substtool --model POISSON fit --translate pair.fst

Settings can be stored in a YAML file (--config), command line flags
take precedence. To see all the options run:

	substtool --help
*/
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"gopkg.in/alecthomas/kingpin.v2"

	"github.com/op/go-logging"
)

// These three variables are set during the compilation.
var githash = ""
var gitbranch = ""
var buildstamp = ""
var version = fmt.Sprintf("branch: %s, revision: %s, build time: %s", gitbranch, githash, buildstamp)

// Logger settings.
var log = logging.MustGetLogger("substtool")
var formatter = logging.MustStringFormatter(`%{message}`)

// command-line options
var (
	// application
	app = kingpin.New("substtool", "substitution model toolkit").Version(version)

	// model
	model    = app.Flag("model", "model name (JC, F81, K80, HKY, TN93, K81, TIM, TVM, SYM, GTR, POISSON, BIN, M0, NONREV)").String()
	nstates  = app.Flag("states", "number of states (POISSON, GTR with --code, NONREV)").Int()
	freqType = app.Flag("freq", "state frequencies (equal, empirical, user, estimate)").String()
	freqF    = app.Flag("freqfile", "read state frequencies from a file").ExistingFile()
	code     = app.Flag("code", "exchange rate classes, one symbol per state pair (e.g. 010020)").String()
	params   = app.Flag("par", "set model parameter (name=value)").StringMap()
	configF  = app.Flag("config", "read settings from a YAML file").ExistingFile()
	seed     = app.Flag("seed", "random generator seed, default time based").Default("-1").Int64()
	outLogF  = app.Flag("log", "write log to a file").String()
	logLevel = app.Flag("loglevel", "set loglevel "+
		"('critical', 'error', 'warning', 'notice', 'info', 'debug')").
		Default("notice").
		Enum("critical", "error", "warning", "notice", "info", "debug")

	// pmatrix
	pmatrixCmd = app.Command("pmatrix", "print transition probability matrix")
	pmTime     = pmatrixCmd.Flag("time", "branch length").Default("0.1").Float64()
	pmDerv     = pmatrixCmd.Flag("derv", "print the first and the second derivatives").Bool()
	pmFreq     = pmatrixCmd.Flag("freqmatrix", "multiply rows by the state frequencies").Bool()

	// info
	infoCmd = app.Command("info", "print model parameters, rate matrix and eigenvalues")

	// plot
	plotCmd    = app.Command("plot", "plot transition probabilities as a function of time")
	plotFrom   = plotCmd.Flag("from", "starting time").Default("0").Float64()
	plotTo     = plotCmd.Flag("to", "end time").Default("2").Float64()
	plotRow    = plotCmd.Flag("row", "starting state").Default("0").Int()
	plotPoints = plotCmd.Flag("points", "number of points").Default("100").Int()
	plotOutF   = plotCmd.Flag("out", "output image file (png, svg, pdf or eps)").Default("pmatrix.png").String()

	// fit
	fitCmd     = app.Command("fit", "estimate model parameters and distance between two aligned sequences")
	alignmentF = fitCmd.Arg("alignment", "sequence alignment in FASTA format").Required().ExistingFile()
	method     = fitCmd.Flag("method", "optimization method to use "+
		"(simplex: downhill simplex, "+
		"bfgs: BFGS with numerical gradient, "+
		"lbfgsb: limited-memory Broyden–Fletcher–Goldfarb–Shanno with bounding constraints, "+
		"annealing: simulated annealing, "+
		"mh: Metropolis-Hastings, "+
		"none: just compute likelihood, no optimization)").String()
	iterations    = fitCmd.Flag("iter", "number of iterations").Int()
	report        = fitCmd.Flag("report", "report every N iterations").Int()
	epsilon       = fitCmd.Flag("epsilon", "likelihood convergence threshold").Float64()
	maxDist       = fitCmd.Flag("maxdist", "maximum distance").Float64()
	randomize     = fitCmd.Flag("randomize", "use uniformly distributed random starting point").Bool()
	startF        = fitCmd.Flag("start", "read start position from the trajectory or JSON file").ExistingFile()
	outF          = fitCmd.Flag("out", "write optimization trajectory to a file").String()
	checkpointF   = fitCmd.Flag("checkpoint", "checkpoint database file").String()
	checkpointSec = fitCmd.Flag("checkpoint-sec", "save checkpoint not more often than every N seconds").Default("60").Float64()
	jsonF         = fitCmd.Flag("json", "write json output to a file").String()
	translate     = fitCmd.Flag("translate", "translate nucleotide sequences into proteins (POISSON model)").Bool()
)

// setupLogging sets the formatter, the backend and the log levels.
func setupLogging() (close func()) {
	logging.SetFormatter(formatter)

	close = func() {}
	var backend *logging.LogBackend
	if *outLogF != "" {
		f, err := os.OpenFile(*outLogF, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			log.Fatal("Error creating log file:", err)
		}
		close = func() { f.Close() }
		backend = logging.NewLogBackend(f, "", 0)
	} else {
		backend = logging.NewLogBackend(os.Stderr, "", 0)
	}
	logging.SetBackend(backend)

	level, err := logging.LogLevel(*logLevel)
	if err != nil {
		log.Fatal(err)
	}
	for _, module := range []string{"substtool", "smodel", "qmatrix", "optimize", "checkpoint"} {
		logging.SetLevel(level, module)
	}
	return close
}

// writeJSON writes the summary to a file.
func writeJSON(fileName string, summary interface{}) {
	j, err := json.Marshal(summary)
	if err != nil {
		log.Error(err)
		return
	}
	log.Debug(string(j))
	f, err := os.Create(fileName)
	if err != nil {
		log.Error("Error creating json output file:", err)
		return
	}
	defer f.Close()
	if _, err := f.Write(j); err != nil {
		log.Error("Error writing json output file:", err)
	}
}

func main() {
	cmd := kingpin.MustParse(app.Parse(os.Args[1:]))

	closeLog := setupLogging()
	defer closeLog()

	// print revision
	log.Info(version)

	// print commandline
	log.Info("Command line:", os.Args)

	if *seed == -1 {
		*seed = time.Now().UnixNano()
		log.Debug("Random seed from time")
	}
	log.Infof("Random seed=%v", *seed)

	c, err := loadConfig(*configF)
	if err != nil {
		log.Fatal(err)
	}
	ms, err := newModelSettings(c)
	if err != nil {
		log.Fatal(err)
	}

	switch cmd {
	case pmatrixCmd.FullCommand():
		err = runPMatrix(ms, os.Stdout)
	case infoCmd.FullCommand():
		err = runInfo(ms, os.Stdout)
	case plotCmd.FullCommand():
		err = runPlot(ms)
	case fitCmd.FullCommand():
		startTime := time.Now()
		var summary *FitSummary
		summary, err = runFit(ms, newOptimizerSettings(c))
		if err == nil {
			summary.Version = version
			summary.CommandLine = os.Args
			summary.Seed = *seed
			summary.TotalTime = time.Since(startTime).Seconds()
			log.Noticef("Running time: %v", time.Since(startTime))
			if *jsonF != "" {
				writeJSON(*jsonF, summary)
			}
		}
	}
	if err != nil {
		log.Fatal(err)
	}
}
