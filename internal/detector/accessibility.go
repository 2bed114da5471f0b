package detector

import (
	"fmt"

	"github.com/nao1215/patternscan/internal/model"
)

// detectAccessibility checks image alternatives, heading structure and
// skip links.
func detectAccessibility(s *model.PageSnapshot) []model.Finding {
	a := s.AccessibilityElements
	h := a.HeadingStructure

	var findings []model.Finding
	if a.MissingAltTexts > 0 {
		r := rule(RuleMissingAltText)
		if a.MissingAltTexts > missingAltHighImpact {
			r.Impact = model.ImpactHigh
		}
		findings = append(findings, r.finding(
			fmt.Sprintf("%d image(s) have no alt attribute and are invisible to screen reader users.", a.MissingAltTexts),
			"img:not([alt])",
		))
	}

	// A page without any heading carries no structure to judge.
	if h.H1 == 0 && h.Total() > 0 {
		findings = append(findings, rule(RuleMissingH1).finding(
			fmt.Sprintf("The page has %d heading(s) but no h1.", h.Total()),
			"h1",
		))
	}
	if h.H1 > 1 {
		findings = append(findings, rule(RuleMultipleH1).finding(
			fmt.Sprintf("The page has %d h1 headings.", h.H1),
			"h1",
		))
	}

	if a.MissingAltTexts == 0 && a.AltTexts > 0 {
		findings = append(findings, rule(RuleAltTextComplete).finding(
			fmt.Sprintf("All %d informative image(s) have alt text.", a.AltTexts),
			"img[alt]",
		))
	}
	if a.SkipLinks > 0 {
		findings = append(findings, rule(RuleSkipLinks).finding(
			"The page offers a link to skip repeated navigation.",
			`a[href^="#"]`,
		))
	}
	return findings
}
