// Package detector implements the pattern detector bank.
//
// Every detector is a pure function over a model.PageSnapshot that returns
// zero or more findings. Detectors are registered in a Registry and run in
// registration order, so identical snapshots always produce identical,
// identically ordered findings. No detector sees another detector's output.
//
// Names, categories, confidence values, impact levels and recommendations
// live in a single rule table (rules.go). Detection code decides only
// whether a rule fires and what evidence to quote.
package detector
