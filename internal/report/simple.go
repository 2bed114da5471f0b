package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/patternscan/internal/model"
)

// SimpleWriter outputs human-readable text reports.
// This format is designed for terminal display with findings grouped by
// pattern type, most harmful first.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors so the output survives being piped to files or other tools.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether pattern types with no findings are shown.
	showEmpty bool

	// verbose enables recommendations and selectors in the output.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.AuditReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	if report.Analysis != nil {
		w.writeScore(&sb, report)
		w.writeFindings(&sb, report)
		w.writeSummary(&sb, report)
	}
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeRule writes a section heading framed by dashes.
func writeRule(sb *strings.Builder, heading string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(heading)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// writeHeader writes the report header with audit information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.AuditReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                        PATTERNSCAN REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "URL:        %s\n", report.URL)
	if report.Title != "" {
		fmt.Fprintf(sb, "Title:      %s\n", report.Title)
	}
	fmt.Fprintf(sb, "Scan Date:  %s\n", report.DateScanned.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Status:     %s\n", statusText(report))
	if report.ScreenshotPath != "" {
		fmt.Fprintf(sb, "Screenshot: %s\n", report.ScreenshotPath)
	}
	sb.WriteString("\n")
}

// writeScore writes the score and pattern counts.
func (w *SimpleWriter) writeScore(sb *strings.Builder, report *model.AuditReport) {
	s := report.Score()
	writeRule(sb, "SCORE")

	fmt.Fprintf(sb, "  SCORE:  %d/100 (%s)\n\n", s.TotalScore, title(string(verdictOf(report))))
	fmt.Fprintf(sb, "  DARK:   %d\n", s.DarkPatterns)
	fmt.Fprintf(sb, "  GREY:   %d\n", s.GreyPatterns)
	fmt.Fprintf(sb, "  WHITE:  %d\n", s.WhitePatterns)
	sb.WriteString("\n")
	fmt.Fprintf(sb, "  TOTAL:  %d findings\n", s.Total())
	sb.WriteString("\n")
}

// writeFindings writes all findings grouped by pattern type.
func (w *SimpleWriter) writeFindings(sb *strings.Builder, report *model.AuditReport) {
	findings := report.Findings()
	if len(findings) == 0 && !w.showEmpty {
		return
	}

	writeRule(sb, "FINDINGS")

	sorted := model.SortedBySeverity(findings)
	for _, t := range model.PatternTypes() {
		group := model.FilterByType(sorted, t)
		if len(group) == 0 && !w.showEmpty {
			continue
		}
		w.writeFindingsForType(sb, t, group)
	}
}

// writeFindingsForType writes findings of a single pattern type.
func (w *SimpleWriter) writeFindingsForType(sb *strings.Builder, t model.PatternType, findings []model.Finding) {
	fmt.Fprintf(sb, "[%s] %s\n", typeIndicator(t), t.Label())

	if len(findings) == 0 {
		sb.WriteString("  No findings\n\n")
		return
	}

	for _, f := range findings {
		fmt.Fprintf(sb, "  * %s (%s impact, %d%% confidence)\n", f.Name, f.Impact, f.Confidence)
		if f.Description != "" {
			fmt.Fprintf(sb, "    %s\n", f.Description)
		}
		if w.verbose {
			if f.ElementSelector != "" {
				fmt.Fprintf(sb, "    Element: %s\n", f.ElementSelector)
			}
			if f.Recommendation != "" {
				fmt.Fprintf(sb, "    Recommendation: %s\n", f.Recommendation)
			}
		}
	}
	sb.WriteString("\n")
}

// typeIndicator returns a visual indicator for the pattern type.
func typeIndicator(t model.PatternType) string {
	switch t {
	case model.PatternDark:
		return "!!"
	case model.PatternGrey:
		return "!"
	case model.PatternWhite:
		return "+"
	default:
		return "?"
	}
}

// writeSummary writes the prose summary.
func (w *SimpleWriter) writeSummary(sb *strings.Builder, report *model.AuditReport) {
	if report.Analysis.Summary == "" {
		return
	}
	writeRule(sb, "SUMMARY")
	fmt.Fprintf(sb, "  %s\n\n", report.Analysis.Summary)
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by patternscan\n")
	sb.WriteString("https://github.com/nao1215/patternscan\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
