package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/patternscan/internal/model"
	"github.com/nao1215/patternscan/internal/score"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for sharing audits in issues and pull requests.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation, including tables, mermaid charts and GitHub alerts. Text
// taken from the audited page passes through a strict sanitizer first.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.AuditReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	if report.Analysis != nil {
		w.writeScore(md, report)
		w.writeFindings(md, report)
	}
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report title and audit metadata table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.AuditReport) {
	md.H1("Dark Pattern Audit Report")
	md.PlainText("")

	rows := [][]string{
		{"URL", report.URL},
	}
	if report.Title != "" {
		rows = append(rows, []string{"Title", sanitize(report.Title)})
	}
	rows = append(rows,
		[]string{"Scan Date", report.DateScanned.Format("2006-01-02 15:04:05 MST")},
		[]string{"Status", statusText(report)},
	)
	if report.ScreenshotPath != "" {
		rows = append(rows, []string{"Screenshot", report.ScreenshotPath})
	}

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeScore writes the score table, distribution chart and verdict alert.
func (w *MarkdownWriter) writeScore(md *markdown.Markdown, report *model.AuditReport) {
	s := report.Score()
	md.H2("Score")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Pattern Type", "Count"},
		Rows: [][]string{
			{"⚫ Dark", strconv.Itoa(s.DarkPatterns)},
			{"🔘 Grey", strconv.Itoa(s.GreyPatterns)},
			{"⚪ White", strconv.Itoa(s.WhitePatterns)},
			{"**Score**", "**" + strconv.Itoa(s.TotalScore) + "/100**"},
		},
	})
	md.PlainText("")

	if s.Total() > 0 {
		w.writePieChart(md, s)
	}
	w.writeAlert(md, report)
}

// writePieChart writes a mermaid pie chart of pattern types.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, s model.OverallScore) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Pattern Type Distribution"),
		piechart.WithShowData(true),
	)

	if s.DarkPatterns > 0 {
		chart.LabelAndIntValue("Dark", uint64(s.DarkPatterns))
	}
	if s.GreyPatterns > 0 {
		chart.LabelAndIntValue("Grey", uint64(s.GreyPatterns))
	}
	if s.WhitePatterns > 0 {
		chart.LabelAndIntValue("White", uint64(s.WhitePatterns))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert matching the verdict, followed by the summary.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.AuditReport) {
	verdict := verdictOf(report)
	text := verdict.Sentence()

	switch verdict {
	case score.VerdictPoor:
		md.Cautionf("%s", text)
	case score.VerdictSignificant:
		md.Warningf("%s", text)
	case score.VerdictModerate:
		md.Importantf("%s", text)
	default:
		md.Tip(text)
	}
	md.PlainText("")

	if report.Analysis.Summary != "" {
		md.H2("Summary")
		md.PlainText("")
		md.PlainText(report.Analysis.Summary)
		md.PlainText("")
	}
}

// writeFindings writes all findings grouped by pattern type.
func (w *MarkdownWriter) writeFindings(md *markdown.Markdown, report *model.AuditReport) {
	md.H2("Findings")
	md.PlainText("")

	findings := report.Findings()
	if len(findings) == 0 {
		md.PlainText("No patterns detected.")
		md.PlainText("")
		return
	}

	sorted := model.SortedBySeverity(findings)
	for _, t := range model.PatternTypes() {
		group := model.FilterByType(sorted, t)
		if len(group) == 0 {
			continue
		}
		md.PlainText("### " + t.Label())
		md.PlainText("")
		w.writeFindingsTable(md, group)
	}
}

// writeFindingsTable writes a table of findings with collapsible details.
func (w *MarkdownWriter) writeFindingsTable(md *markdown.Markdown, findings []model.Finding) {
	rows := make([][]string, len(findings))
	for i, f := range findings {
		selector := f.ElementSelector
		if selector == "" {
			selector = "-"
		}
		rows[i] = []string{
			f.Name,
			title(f.Impact.String()),
			strconv.Itoa(f.Confidence) + "%",
			"`" + truncateString(selector, 40) + "`",
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Pattern", "Impact", "Confidence", "Element"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, f := range findings {
		body := sanitize(f.Description)
		if f.Recommendation != "" {
			body += " Recommendation: " + f.Recommendation
		}
		if body != "" {
			md.Details(f.Name, body)
		}
	}
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [patternscan](https://github.com/nao1215/patternscan)*")
}
