// Package model defines the core data structures used throughout patternscan.
//
// This package contains the following main types:
//   - PageSnapshot: The normalized, bounded record extracted from a fetched page
//   - Finding: A single detector observation tagged dark, grey, or white
//   - AnalysisResult: Findings plus the composite score and summary
//   - ScrapeResult: The typed success/failure value returned by scraping
//   - AuditReport: One audit of one URL as it flows through the pipeline
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The extractor, detectors, scorer, reports and the history
// database all use these types, so centralizing them prevents import cycles.
//
// The models are designed to be serializable to JSON for report output and
// database storage.
package model
