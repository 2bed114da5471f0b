package model

import "sort"

// Finding is one detector's observation about a page.
//
// Design decision: Findings are plain values. Detectors build them from the
// rule table and never modify them after emission, so the same slice can be
// shared by the scorer, the summarizer, the reports and the history database.
type Finding struct {
	// RuleID is the stable identifier of the rule that produced the finding.
	// Names may be reworded over time; rule IDs are used to compare history.
	RuleID string `json:"rule_id"`

	// Name is the human-readable pattern name, e.g. "Confirmshaming".
	Name string `json:"name"`

	// Category is a free-text grouping, e.g. "Privacy Zuckering".
	Category string `json:"category"`

	// PatternType is dark, grey or white.
	PatternType PatternType `json:"pattern_type"`

	// Confidence is the hand-tuned prior of the rule, in [0,100].
	Confidence int `json:"confidence"`

	// Description explains what was observed on this page.
	Description string `json:"description"`

	// ElementSelector points to the element that triggered the rule.
	ElementSelector string `json:"element_selector"`

	// Recommendation suggests how to fix or keep the pattern.
	Recommendation string `json:"recommendation"`

	// Impact is low, medium, high or positive.
	Impact Impact `json:"impact"`
}

// Key returns an identifier used to match the same finding across audits.
func (f Finding) Key() string {
	return f.RuleID + "|" + f.ElementSelector
}

// CountByType returns the number of findings of each pattern type.
func CountByType(findings []Finding) map[PatternType]int {
	counts := map[PatternType]int{
		PatternDark:  0,
		PatternGrey:  0,
		PatternWhite: 0,
	}
	for _, f := range findings {
		counts[f.PatternType]++
	}
	return counts
}

// FilterByType returns the findings of type t in their original order.
func FilterByType(findings []Finding, t PatternType) []Finding {
	result := make([]Finding, 0)
	for _, f := range findings {
		if f.PatternType == t {
			result = append(result, f)
		}
	}
	return result
}

// SortedBySeverity returns a copy of findings ordered dark, grey, white and
// then by impact and confidence. The input slice is not modified.
//
// Design decision: AnalysisResult keeps detector emission order so output is
// reproducible. Reports that want the worst findings first use this copy.
func SortedBySeverity(findings []Finding) []Finding {
	sorted := make([]Finding, len(findings))
	copy(sorted, findings)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.PatternType != b.PatternType {
			return typeRank(a.PatternType) < typeRank(b.PatternType)
		}
		if a.Impact != b.Impact {
			return a.Impact.MoreSevere(b.Impact)
		}
		return a.Confidence > b.Confidence
	})
	return sorted
}

func typeRank(t PatternType) int {
	switch t {
	case PatternDark:
		return 0
	case PatternGrey:
		return 1
	case PatternWhite:
		return 2
	default:
		return 3
	}
}
