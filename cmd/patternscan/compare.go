package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/nao1215/patternscan/internal/config"
	"github.com/nao1215/patternscan/internal/database"
	"github.com/nao1215/patternscan/internal/model"
	"github.com/nao1215/patternscan/internal/score"
)

// Constants for score direction and summary messages.
const (
	directionWorsened  = "worsened"
	directionImproved  = "improved"
	directionUnchanged = "unchanged"
	noFindingsMessage  = "No findings"
)

// compareOptions holds the parsed compare flags.
type compareOptions struct {
	dbDir          string
	listHistory    bool
	listURLs       bool
	withID         int64
	since          string
	jsonOutput     bool
	markdownOutput bool
}

// NewCompareCmd creates the compare command.
// This command compares audit results with historical data stored in the database.
func NewCompareCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "compare [url]",
		Short: "Compare audit results with historical data",
		Long: `Compare displays differences between the latest and an earlier audit of a URL.

This command retrieves audit history from the database and shows:
- The change in score and verdict
- Patterns that appeared since the earlier audit
- Patterns that are no longer detected

The comparison requires at least two audits of the URL in the database.
Use 'patternscan scan' to audit pages and save results.

Examples:
  # Compare the latest two audits of a page
  patternscan compare https://shop.example.com/

  # List the audit history of a page
  patternscan compare --list https://shop.example.com/

  # Compare with a specific audit by ID
  patternscan compare --with-id 5 https://shop.example.com/

  # Compare with the first audit since a date
  patternscan compare --since 2026-01-01 https://shop.example.com/

  # List all audited URLs
  patternscan compare --list-urls`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCompareCmd,
	}

	// History listing flags
	cmd.Flags().BoolP("list", "l", false,
		"List audit history for the specified URL")
	cmd.Flags().BoolP("list-urls", "L", false,
		"List all audited URLs in the database")

	// Comparison target flags
	cmd.Flags().Int64P("with-id", "i", 0,
		"Compare with a specific audit by ID (use --list to see available IDs)")
	cmd.Flags().StringP("since", "s", "",
		"Compare with the first audit on or after this date (format: YYYY-MM-DD)")

	// Output format flags
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison result in Markdown format")

	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")

	return cmd
}

// runCompareCmd executes the compare command.
func runCompareCmd(cmd *cobra.Command, args []string) error {
	opts, err := readCompareOptions(cmd)
	if err != nil {
		return err
	}

	// Validate arguments before opening the database so that usage errors
	// do not depend on database state.
	var target string
	if !opts.listURLs {
		if len(args) == 0 {
			return errors.New("a URL is required (use --list-urls to see audited URLs)")
		}
		target, err = normalizeTarget(args[0])
		if err != nil {
			return err
		}
	}
	if opts.jsonOutput && opts.markdownOutput {
		return config.ErrConflictingReportFormats
	}

	db, err := database.Open(opts.dbDir, database.Options{CreateIfNotExists: false})
	if err != nil {
		return err
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	switch {
	case opts.listURLs:
		return listAuditedURLs(ctx, db, out)
	case opts.listHistory:
		return listAuditHistory(ctx, db, target, out)
	default:
		return runComparison(ctx, db, target, opts, out)
	}
}

// readCompareOptions parses the compare flags.
func readCompareOptions(cmd *cobra.Command) (compareOptions, error) {
	var (
		opts  compareOptions
		err   error
		flags = cmd.Flags()
	)
	if opts.listHistory, err = flags.GetBool("list"); err != nil {
		return opts, err
	}
	if opts.listURLs, err = flags.GetBool("list-urls"); err != nil {
		return opts, err
	}
	if opts.withID, err = flags.GetInt64("with-id"); err != nil {
		return opts, err
	}
	if opts.since, err = flags.GetString("since"); err != nil {
		return opts, err
	}
	if opts.jsonOutput, err = flags.GetBool("json"); err != nil {
		return opts, err
	}
	if opts.markdownOutput, err = flags.GetBool("markdown"); err != nil {
		return opts, err
	}
	if opts.dbDir, err = flags.GetString("db-dir"); err != nil {
		return opts, err
	}
	if opts.dbDir == "" {
		opts.dbDir = config.XDGDataDir()
	}
	return opts, nil
}

// listAuditedURLs lists all URLs that have audits in the database.
func listAuditedURLs(ctx context.Context, db *database.AuditDB, out io.Writer) error {
	urls, err := db.ListAuditedURLs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list URLs: %w", err)
	}

	if len(urls) == 0 {
		fmt.Fprintln(out, "No audited URLs found in the database.")
		fmt.Fprintln(out, "\nUse 'patternscan scan <url>' to audit a page.")
		return nil
	}

	fmt.Fprintf(out, "Audited URLs (%d):\n\n", len(urls))
	for _, u := range urls {
		fmt.Fprintf(out, "  • %s\n", u)
	}
	fmt.Fprintln(out, "\nUse 'patternscan compare --list <url>' to see the audit history of a URL.")
	return nil
}

// listAuditHistory lists all audits of a URL.
func listAuditHistory(ctx context.Context, db *database.AuditDB, target string, out io.Writer) error {
	history, err := db.AuditHistory(ctx, target)
	if err != nil {
		return fmt.Errorf("failed to get audit history: %w", err)
	}

	if len(history) == 0 {
		fmt.Fprintf(out, "No audit history found for %s\n", target)
		fmt.Fprintln(out, "\nUse 'patternscan scan' to audit this page.")
		return nil
	}

	fmt.Fprintf(out, "Audit history for %s (%d audits):\n\n", target, len(history))
	fmt.Fprintf(out, "  %-6s  %-20s  %-6s  %s\n", "ID", "Date", "Score", "Patterns")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 60))
	for _, meta := range history {
		fmt.Fprintf(out, "  %-6d  %-20s  %-6d  %s\n",
			meta.ID,
			meta.Timestamp.Local().Format("2006-01-02 15:04:05"),
			meta.Score.TotalScore,
			formatCounts(meta.Score),
		)
	}

	fmt.Fprintln(out, "\nUse 'patternscan compare <url>' to compare the latest two audits.")
	fmt.Fprintln(out, "Use 'patternscan compare --with-id <id> <url>' to compare with a specific audit.")
	return nil
}

// formatCounts formats the per-type counts compactly.
func formatCounts(s model.OverallScore) string {
	var parts []string
	if s.DarkPatterns > 0 {
		parts = append(parts, fmt.Sprintf("D:%d", s.DarkPatterns))
	}
	if s.GreyPatterns > 0 {
		parts = append(parts, fmt.Sprintf("G:%d", s.GreyPatterns))
	}
	if s.WhitePatterns > 0 {
		parts = append(parts, fmt.Sprintf("W:%d", s.WhitePatterns))
	}
	if len(parts) == 0 {
		return noFindingsMessage
	}
	return strings.Join(parts, " ")
}

// runComparison selects the two audits and prints their comparison.
func runComparison(ctx context.Context, db *database.AuditDB, target string, opts compareOptions, out io.Writer) error {
	history, err := db.AuditHistory(ctx, target)
	if err != nil {
		return fmt.Errorf("failed to get audit history: %w", err)
	}
	if len(history) == 0 {
		return fmt.Errorf("no audit history found for %s", target)
	}

	previousID, err := selectPreviousID(history, opts)
	if err != nil {
		return err
	}

	current, err := db.AuditByID(ctx, history[0].ID)
	if err != nil {
		return fmt.Errorf("failed to load audit %d: %w", history[0].ID, err)
	}
	previous, err := db.AuditByID(ctx, previousID)
	if err != nil {
		return fmt.Errorf("failed to load audit %d: %w", previousID, err)
	}
	if previous == nil {
		return fmt.Errorf("audit with ID %d not found", previousID)
	}
	if previous.URL != target {
		return fmt.Errorf("audit ID %d belongs to %s, not %s", previousID, previous.URL, target)
	}

	comparison := compareReports(previous, current)
	switch {
	case opts.jsonOutput:
		return outputComparisonJSON(comparison, out)
	case opts.markdownOutput:
		return outputComparisonMarkdown(comparison, out)
	default:
		return outputComparisonText(comparison, out)
	}
}

// selectPreviousID picks the earlier audit from history (newest first).
// The default is the audit before the latest one.
func selectPreviousID(history []database.AuditMetadata, opts compareOptions) (int64, error) {
	latest := history[0].ID

	switch {
	case opts.withID > 0:
		if opts.withID == latest {
			return 0, fmt.Errorf("audit %d is the latest audit; choose an earlier one", opts.withID)
		}
		return opts.withID, nil

	case opts.since != "":
		sinceDate, err := time.ParseInLocation("2006-01-02", opts.since, time.Local)
		if err != nil {
			return 0, fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}
		// Walk oldest to newest and stop at the first audit on or after the date.
		for i := len(history) - 1; i >= 0; i-- {
			if !history[i].Timestamp.Before(sinceDate) {
				if history[i].ID == latest {
					return 0, fmt.Errorf("only one audit found since %s; at least 2 audits are required for comparison", opts.since)
				}
				return history[i].ID, nil
			}
		}
		return 0, fmt.Errorf("no audits found since %s", opts.since)

	default:
		if len(history) < 2 {
			return 0, fmt.Errorf("at least 2 audits are required for comparison (found %d)", len(history))
		}
		return history[1].ID, nil
	}
}

// ComparisonResult holds the result of comparing two audits of one URL.
type ComparisonResult struct {
	// URL is the audited URL.
	URL string `json:"url"`

	// PreviousAudit summarizes the earlier audit.
	PreviousAudit AuditSummary `json:"previous_audit"`

	// CurrentAudit summarizes the latest audit.
	CurrentAudit AuditSummary `json:"current_audit"`

	// NewFindings are detected now but not in the earlier audit.
	NewFindings []model.Finding `json:"new_findings,omitempty"`

	// ResolvedFindings were detected earlier but no longer are.
	ResolvedFindings []model.Finding `json:"resolved_findings,omitempty"`

	// UnchangedCount is the number of findings present in both audits.
	UnchangedCount int `json:"unchanged_count"`

	// Change describes how the score moved.
	Change ScoreChange `json:"change"`
}

// AuditSummary contains the figures of one audit shown in a comparison.
type AuditSummary struct {
	DateScanned time.Time          `json:"date_scanned"`
	Score       model.OverallScore `json:"score"`
	Verdict     score.Verdict      `json:"verdict"`
}

// ScoreChange describes the change between two audits.
type ScoreChange struct {
	// Direction is "improved", "worsened", or "unchanged".
	Direction string `json:"direction"`

	ScoreDelta int `json:"score_delta"`
	DarkDelta  int `json:"dark_delta"`
	GreyDelta  int `json:"grey_delta"`
	WhiteDelta int `json:"white_delta"`
}

// summarizeAudit extracts the comparison figures of an audit.
func summarizeAudit(r *model.AuditReport) AuditSummary {
	s := r.Score()
	return AuditSummary{
		DateScanned: r.DateScanned,
		Score:       s,
		Verdict:     score.VerdictFor(s.TotalScore),
	}
}

// compareReports compares two audits and generates a comparison result.
// Findings are matched by Finding.Key, so a pattern that moved to another
// element counts as one resolved and one new finding.
func compareReports(previous, current *model.AuditReport) *ComparisonResult {
	result := &ComparisonResult{
		URL:           current.URL,
		PreviousAudit: summarizeAudit(previous),
		CurrentAudit:  summarizeAudit(current),
	}

	previousFindings := make(map[string]model.Finding)
	for _, f := range previous.Findings() {
		previousFindings[f.Key()] = f
	}
	currentFindings := make(map[string]model.Finding)
	for _, f := range current.Findings() {
		currentFindings[f.Key()] = f
	}

	for key, f := range currentFindings {
		if _, exists := previousFindings[key]; !exists {
			result.NewFindings = append(result.NewFindings, f)
		}
	}
	for key, f := range previousFindings {
		if _, exists := currentFindings[key]; exists {
			result.UnchangedCount++
		} else {
			result.ResolvedFindings = append(result.ResolvedFindings, f)
		}
	}

	// Map iteration order is random; sort for stable output.
	result.NewFindings = model.SortedBySeverity(sortByKey(result.NewFindings))
	result.ResolvedFindings = model.SortedBySeverity(sortByKey(result.ResolvedFindings))

	result.Change = calculateScoreChange(result.PreviousAudit.Score, result.CurrentAudit.Score)
	return result
}

// sortByKey orders findings by key so that ties in SortedBySeverity are
// broken deterministically.
func sortByKey(findings []model.Finding) []model.Finding {
	sort.Slice(findings, func(i, j int) bool {
		return findings[i].Key() < findings[j].Key()
	})
	return findings
}

// calculateScoreChange calculates the change between two scores.
// A higher total score is better.
func calculateScoreChange(previous, current model.OverallScore) ScoreChange {
	change := ScoreChange{
		ScoreDelta: current.TotalScore - previous.TotalScore,
		DarkDelta:  current.DarkPatterns - previous.DarkPatterns,
		GreyDelta:  current.GreyPatterns - previous.GreyPatterns,
		WhiteDelta: current.WhitePatterns - previous.WhitePatterns,
	}

	switch {
	case change.ScoreDelta > 0:
		change.Direction = directionImproved
	case change.ScoreDelta < 0:
		change.Direction = directionWorsened
	default:
		change.Direction = directionUnchanged
	}
	return change
}

// outputComparisonJSON outputs the comparison result in JSON format.
func outputComparisonJSON(result *ComparisonResult, out io.Writer) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// outputComparisonMarkdown outputs the comparison result in Markdown format.
func outputComparisonMarkdown(result *ComparisonResult, out io.Writer) error {
	md := markdown.NewMarkdown(out)
	prev, cur := result.PreviousAudit, result.CurrentAudit

	md.H1("Audit Comparison: " + result.URL)
	md.PlainText("")
	md.H2("Summary")
	md.PlainText("")
	md.PlainTextf("**Status:** %s", formatDirection(result.Change.Direction))
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows: [][]string{
			{"Date", prev.DateScanned.Format("2006-01-02 15:04"), cur.DateScanned.Format("2006-01-02 15:04"), "-"},
			{"Score", strconv.Itoa(prev.Score.TotalScore), strconv.Itoa(cur.Score.TotalScore), formatDelta(result.Change.ScoreDelta)},
			{"Verdict", string(prev.Verdict), string(cur.Verdict), "-"},
			{"Dark", strconv.Itoa(prev.Score.DarkPatterns), strconv.Itoa(cur.Score.DarkPatterns), formatDelta(result.Change.DarkDelta)},
			{"Grey", strconv.Itoa(prev.Score.GreyPatterns), strconv.Itoa(cur.Score.GreyPatterns), formatDelta(result.Change.GreyDelta)},
			{"White", strconv.Itoa(prev.Score.WhitePatterns), strconv.Itoa(cur.Score.WhitePatterns), formatDelta(result.Change.WhiteDelta)},
		},
	})
	md.PlainText("")

	if len(result.NewFindings) > 0 {
		md.H2(fmt.Sprintf("New Findings (%d)", len(result.NewFindings)))
		md.PlainText("")
		md.BulletList(findingLines(result.NewFindings, "")...)
		md.PlainText("")
	}
	if len(result.ResolvedFindings) > 0 {
		md.H2(fmt.Sprintf("Resolved Findings (%d)", len(result.ResolvedFindings)))
		md.PlainText("")
		md.BulletList(findingLines(result.ResolvedFindings, "~~")...)
		md.PlainText("")
	}
	if result.UnchangedCount > 0 {
		md.HorizontalRule()
		md.PlainText("")
		md.PlainTextf("*%d findings unchanged*", result.UnchangedCount)
	}

	return md.Build()
}

// findingLines renders findings as markdown list items wrapped in mark.
func findingLines(findings []model.Finding, mark string) []string {
	lines := make([]string, len(findings))
	for i, f := range findings {
		lines[i] = fmt.Sprintf("%s**[%s]** %s%s", mark, f.PatternType, f.Name, mark)
		if f.ElementSelector != "" {
			lines[i] += " (`" + f.ElementSelector + "`)"
		}
	}
	return lines
}

// outputComparisonText outputs the comparison result in human-readable text format.
func outputComparisonText(result *ComparisonResult, out io.Writer) error {
	prev, cur := result.PreviousAudit, result.CurrentAudit

	fmt.Fprintf(out, "Audit Comparison: %s\n", result.URL)
	fmt.Fprintln(out, strings.Repeat("=", 60))
	fmt.Fprintf(out, "\nStatus: %s\n", formatDirection(result.Change.Direction))
	fmt.Fprintf(out, "\nPrevious audit: %s\n", prev.DateScanned.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(out, "Current audit:  %s\n", cur.DateScanned.Format("2006-01-02 15:04:05"))

	fmt.Fprintln(out, "\nSummary:")
	fmt.Fprintf(out, "  %-10s  %-12s  %-12s  %-10s\n", "", "Previous", "Current", "Change")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 50))
	fmt.Fprintf(out, "  %-10s  %-12d  %-12d  %-10s\n", "Score",
		prev.Score.TotalScore, cur.Score.TotalScore, formatDelta(result.Change.ScoreDelta))
	fmt.Fprintf(out, "  %-10s  %-12s  %-12s  %-10s\n", "Verdict",
		prev.Verdict, cur.Verdict, "")
	fmt.Fprintf(out, "  %-10s  %-12d  %-12d  %-10s\n", "Dark",
		prev.Score.DarkPatterns, cur.Score.DarkPatterns, formatDelta(result.Change.DarkDelta))
	fmt.Fprintf(out, "  %-10s  %-12d  %-12d  %-10s\n", "Grey",
		prev.Score.GreyPatterns, cur.Score.GreyPatterns, formatDelta(result.Change.GreyDelta))
	fmt.Fprintf(out, "  %-10s  %-12d  %-12d  %-10s\n", "White",
		prev.Score.WhitePatterns, cur.Score.WhitePatterns, formatDelta(result.Change.WhiteDelta))

	if len(result.NewFindings) > 0 {
		fmt.Fprintf(out, "\nNew Findings (%d):\n", len(result.NewFindings))
		for _, f := range result.NewFindings {
			fmt.Fprintf(out, "  [+] [%s] %s\n", f.PatternType, f.Name)
			if f.ElementSelector != "" {
				fmt.Fprintf(out, "      Element: %s\n", f.ElementSelector)
			}
		}
	}
	if len(result.ResolvedFindings) > 0 {
		fmt.Fprintf(out, "\nResolved Findings (%d):\n", len(result.ResolvedFindings))
		for _, f := range result.ResolvedFindings {
			fmt.Fprintf(out, "  [-] [%s] %s\n", f.PatternType, f.Name)
		}
	}
	if result.UnchangedCount > 0 {
		fmt.Fprintf(out, "\nUnchanged: %d findings\n", result.UnchangedCount)
	}

	return nil
}

// formatDirection formats the score change direction for display.
func formatDirection(direction string) string {
	switch direction {
	case directionImproved:
		return "IMPROVED (score increased)"
	case directionWorsened:
		return "WORSENED (score decreased)"
	default:
		return "UNCHANGED"
	}
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}
