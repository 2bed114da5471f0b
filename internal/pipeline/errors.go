package pipeline

import "errors"

// ErrNoSnapshot is returned by AnalyzeStep when no earlier step produced a
// page snapshot for the report.
var ErrNoSnapshot = errors.New("no page snapshot to analyze")
