package model

// OverallScore aggregates findings into counts and a composite score.
type OverallScore struct {
	DarkPatterns  int `json:"dark_patterns"`
	GreyPatterns  int `json:"grey_patterns"`
	WhitePatterns int `json:"white_patterns"`

	// TotalScore is the bounded ethics score in [0,100].
	TotalScore int `json:"total_score"`
}

// Total returns the number of findings of any type.
func (s OverallScore) Total() int {
	return s.DarkPatterns + s.GreyPatterns + s.WhitePatterns
}

// Performance records how long each phase took.
type Performance struct {
	ScrapingTimeMs int64 `json:"scraping_time_ms"`
	AnalysisTimeMs int64 `json:"analysis_time_ms"`
}

// AnalysisResult is the top-level output of one analysis.
type AnalysisResult struct {
	// PatternsDetected lists findings in detector emission order.
	PatternsDetected []Finding `json:"patterns_detected"`

	OverallScore OverallScore `json:"overall_score"`

	// Summary is the generated natural-language report.
	Summary string `json:"summary"`

	Performance Performance `json:"performance"`
}

// ErrorKind classifies a scrape failure so callers can map it to a response
// without inspecting error strings.
type ErrorKind string

const (
	// ErrorKindNone means the scrape succeeded.
	ErrorKindNone ErrorKind = ""

	// ErrorKindTimeout means navigation did not complete within budget.
	ErrorKindTimeout ErrorKind = "timeout"

	// ErrorKindNetwork means a DNS or connection failure.
	ErrorKindNetwork ErrorKind = "network"

	// ErrorKindHTTPStatus means the site answered with a non-2xx status.
	ErrorKindHTTPStatus ErrorKind = "http_status"

	// ErrorKindBrowser means the headless browser could not be started.
	ErrorKindBrowser ErrorKind = "browser"

	// ErrorKindInternal covers everything else.
	ErrorKindInternal ErrorKind = "internal"
)

// ScrapeResult is the typed success/failure value returned by scraping.
// Exactly one of Data or Error is set.
type ScrapeResult struct {
	Success     bool          `json:"success"`
	Data        *PageSnapshot `json:"data,omitempty"`
	Error       string        `json:"error,omitempty"`
	ErrorKind   ErrorKind     `json:"error_kind,omitempty"`
	Performance Performance   `json:"performance"`
}
