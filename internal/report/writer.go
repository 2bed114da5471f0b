package report

import (
	"io"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/patternscan/internal/model"
	"github.com/nao1215/patternscan/internal/score"
)

// Writer defines the interface for report output.
// Implementations write audit results in various formats.
//
// Design decision: We use an interface to allow different output formats
// and destinations. This enables writing to files, stdout, or network
// connections with the same API.
type Writer interface {
	// Write outputs the report to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.AuditReport) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Returns the total bytes written across all writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(report *model.AuditReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// pageText strips markup from page-derived text. Finding descriptions quote
// button labels and body text verbatim, and a hostile page could otherwise
// inject HTML into a rendered markdown report.
var pageText = bluemonday.StrictPolicy()

// sanitize removes markup and collapses whitespace.
func sanitize(s string) string {
	return strings.Join(strings.Fields(pageText.Sanitize(s)), " ")
}

var titleCaser = cases.Title(language.English)

// title capitalizes impact and verdict words for display.
func title(s string) string {
	return titleCaser.String(s)
}

// verdictOf returns the verdict for an analyzed report.
func verdictOf(report *model.AuditReport) score.Verdict {
	return score.VerdictFor(report.Score().TotalScore)
}

// statusText describes whether the audit completed.
func statusText(report *model.AuditReport) string {
	switch {
	case report.ErrorKind != model.ErrorKindNone:
		return "ERROR (" + string(report.ErrorKind) + ") - " + report.ErrorMessage
	case report.Failed():
		return "ERROR - " + report.ErrorMessage
	case report.Analysis == nil:
		return "Not analyzed"
	default:
		return "Complete"
	}
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
