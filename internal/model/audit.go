package model

import "time"

// AuditReport is one audit of one URL as it flows through the pipeline.
//
// Design decision: Pipeline steps fill the report progressively (scrape,
// analyze, persist) rather than passing separate values, mirroring how a
// single struct simplifies serialization and database storage.
type AuditReport struct {
	// URL is the audited URL.
	URL string `json:"url"`

	// DateScanned is when the audit started.
	DateScanned time.Time `json:"date_scanned"`

	// Snapshot is the extracted page record. Excluded from JSON due to size;
	// the screenshot alone can be hundreds of kilobytes.
	Snapshot *PageSnapshot `json:"-"`

	// Title is copied from the snapshot for display.
	Title string `json:"title,omitempty"`

	// Analysis holds the findings and score once analysis has run.
	Analysis *AnalysisResult `json:"analysis,omitempty"`

	// ScrapingTimeMs is the scrape duration, kept when scraping fails.
	ScrapingTimeMs int64 `json:"scraping_time_ms"`

	// ErrorKind classifies a failed scrape.
	ErrorKind ErrorKind `json:"error_kind,omitempty"`

	// Error contains any error that occurred during the audit.
	Error error `json:"-"`

	// ErrorMessage is the string representation of Error for serialization.
	ErrorMessage string `json:"error,omitempty"` //nolint:tagliatelle // error is conventional

	// ScreenshotPath is where the captured screenshot was written, if anywhere.
	ScreenshotPath string `json:"screenshot_path,omitempty"`

	// PerformedSteps lists the pipeline steps that ran.
	PerformedSteps []string `json:"performed_steps,omitempty"`
}

// NewAuditReport creates a report for url stamped with the current time.
func NewAuditReport(url string) *AuditReport {
	return &AuditReport{
		URL:            url,
		DateScanned:    time.Now(),
		PerformedSteps: make([]string, 0),
	}
}

// SetError records err on the report. A nil err clears the error.
func (r *AuditReport) SetError(err error) {
	r.Error = err
	if err == nil {
		r.ErrorMessage = ""
		return
	}
	r.ErrorMessage = err.Error()
}

// Failed reports whether the audit ended with an error.
func (r *AuditReport) Failed() bool {
	return r.Error != nil || r.ErrorMessage != ""
}

// AddStep records that a pipeline step ran.
func (r *AuditReport) AddStep(name string) {
	r.PerformedSteps = append(r.PerformedSteps, name)
}

// Score returns the overall score, or a zero value when analysis has not run.
func (r *AuditReport) Score() OverallScore {
	if r.Analysis == nil {
		return OverallScore{}
	}
	return r.Analysis.OverallScore
}

// Findings returns the detected findings, or nil when analysis has not run.
func (r *AuditReport) Findings() []Finding {
	if r.Analysis == nil {
		return nil
	}
	return r.Analysis.PatternsDetected
}
