package main

import "bitbucket.org/Davydov/substmodel/optimize"

// FitSummary is storing substtool fit summary information.
type FitSummary struct {
	// Version stores substtool version.
	Version string `json:"version"`
	// CommandLine is an array storing binary name and all command-line parameters.
	CommandLine []string `json:"commandLine"`
	// Seed is the seed used for random number generation initialization.
	Seed int64 `json:"seed"`
	// Model is the short model name.
	Model    string `json:"model"`
	FullName string `json:"fullName"`
	// Frequency is the state frequencies.
	Frequency []float64 `json:"frequency"`
	// Rates is the exchange rates (or all the off-diagonal rates
	// for non-reversible models).
	Rates []float64 `json:"rates"`
	// Parameters is the model parameter values.
	Parameters map[string]float64 `json:"parameters"`
	// Distance is the estimated distance between the sequences.
	Distance float64 `json:"distance"`
	// Optimizer is the optimizer summary.
	Optimizer optimize.Summary `json:"optimizer"`
	// TotalTime is the computations time in seconds.
	TotalTime float64 `json:"time"`
}
