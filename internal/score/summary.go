package score

import (
	"fmt"
	"strings"

	"github.com/nao1215/patternscan/internal/model"
)

// Verdict is the qualitative tier selected by the total score.
type Verdict string

const (
	VerdictGood        Verdict = "good"
	VerdictModerate    Verdict = "moderate"
	VerdictSignificant Verdict = "significant"
	VerdictPoor        Verdict = "poor"
)

// VerdictFor returns the verdict tier for a total score.
func VerdictFor(total int) Verdict {
	switch {
	case total >= GoodThreshold:
		return VerdictGood
	case total >= ModerateThreshold:
		return VerdictModerate
	case total >= SignificantThreshold:
		return VerdictSignificant
	default:
		return VerdictPoor
	}
}

// Sentence returns the closing sentence of the summary for the verdict.
func (v Verdict) Sentence() string {
	switch v {
	case VerdictGood:
		return "Overall assessment: good. The site largely respects its users, with few manipulative patterns."
	case VerdictModerate:
		return "Overall assessment: moderate. Some patterns put pressure on users and are worth reviewing."
	case VerdictSignificant:
		return "Overall assessment: significant concerns. Several manipulative patterns undermine user autonomy."
	default:
		return "Overall assessment: poor. The site relies heavily on manipulative patterns and needs a redesign."
	}
}

// Summarize renders the summary: a header with the counts and score, one
// bulleted block per non-empty pattern type, and the closing verdict.
// The output depends only on its arguments.
func Summarize(s model.OverallScore, findings []model.Finding) string {
	var b strings.Builder

	fmt.Fprintf(&b,
		"Analysis complete: found %d dark pattern(s), %d grey pattern(s), and %d white pattern(s). Overall ethics score: %d/100.\n",
		s.DarkPatterns, s.GreyPatterns, s.WhitePatterns, s.TotalScore,
	)

	for _, t := range model.PatternTypes() {
		names := uniqueNames(model.FilterByType(findings, t))
		if len(names) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s:\n", t.Label())
		for _, n := range names {
			b.WriteString("- ")
			b.WriteString(n)
			b.WriteByte('\n')
		}
	}

	b.WriteByte('\n')
	b.WriteString(VerdictFor(s.TotalScore).Sentence())
	return b.String()
}

// uniqueNames lists finding names in first-seen order. Repeated names are
// collapsed into "Name (n)".
func uniqueNames(findings []model.Finding) []string {
	counts := make(map[string]int)
	order := make([]string, 0)
	for _, f := range findings {
		if counts[f.Name] == 0 {
			order = append(order, f.Name)
		}
		counts[f.Name]++
	}
	names := make([]string, 0, len(order))
	for _, n := range order {
		if c := counts[n]; c > 1 {
			names = append(names, fmt.Sprintf("%s (%d)", n, c))
			continue
		}
		names = append(names, n)
	}
	return names
}
