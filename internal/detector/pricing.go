package detector

import (
	"fmt"
	"regexp"

	"github.com/nao1215/patternscan/internal/model"
)

var (
	anchorPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b(?:was|originally|regularly|reg\.)\s*:?\s*[$€£¥]\s?\d[\d,]*(?:\.\d{1,2})?`),
		regexp.MustCompile(`(?i)[$€£¥]\s?\d[\d,]*(?:\.\d{1,2})?\s*(?:→|->|now|only)\s*[$€£¥]\s?\d[\d,]*(?:\.\d{1,2})?`),
	}

	anchorFragmentPattern = regexp.MustCompile(`(?i)\b(?:was|save)\b`)

	hiddenFeePhrases = []string{
		"additional fees", "additional charges", "taxes not included",
		"tax not included", "plus tax", "plus taxes", "excluding tax",
		"excluding vat", "excl. vat", "service fee", "processing fee",
		"handling fee", "booking fee", "convenience fee",
		"shipping calculated at checkout", "fees may apply",
	}

	scarcityPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\bonly\s+\d*\s*(?:\w+\s+){0,3}left\b`),
		regexp.MustCompile(`(?i)\balmost\s+sold\s+out\b`),
		regexp.MustCompile(`(?i)\bselling\s+fast\b`),
		regexp.MustCompile(`(?i)\b(?:limited|low)\s+stock\b`),
		regexp.MustCompile(`(?i)\bin\s+high\s+demand\b`),
		regexp.MustCompile(`(?i)\b\d+\s+(?:items?|rooms?|seats?|tickets?|spots?)\s+left\b`),
		regexp.MustCompile(`(?i)\blast\s+(?:one|few|item|chance)\b`),
	}
)

// detectPriceAnchoring flags inflated reference prices shown next to the
// actual price.
func detectPriceAnchoring(s *model.PageSnapshot) []model.Finding {
	evidence, ok := firstMatch(s.BodyText, anchorPatterns)
	if !ok {
		for _, p := range s.PricingElements {
			if anchorFragmentPattern.MatchString(p) {
				evidence, ok = p, true
				break
			}
		}
	}
	if !ok {
		return nil
	}
	r := rule(RulePriceAnchoring)
	return []model.Finding{r.finding(
		fmt.Sprintf("A reference price is used to make the current price look like a bargain: %q.", quote(evidence)),
		"body",
	)}
}

// detectHiddenFees flags pages that mention costs added on top of the
// advertised price.
func detectHiddenFees(s *model.PageSnapshot) []model.Finding {
	phrase, ok := firstContained(lowerBody(s), hiddenFeePhrases)
	if !ok {
		return nil
	}
	r := rule(RuleHiddenFees)
	return []model.Finding{r.finding(
		fmt.Sprintf("The page mentions costs not included in the displayed price (%q).", phrase),
		"body",
	)}
}

// detectFakeScarcity flags stock and demand claims used to rush decisions.
func detectFakeScarcity(s *model.PageSnapshot) []model.Finding {
	evidence, ok := firstMatch(s.BodyText, scarcityPatterns)
	if !ok {
		return nil
	}
	r := rule(RuleFakeScarcity)
	return []model.Finding{r.finding(
		fmt.Sprintf("Scarcity claim found: %q.", quote(evidence)),
		"body",
	)}
}
