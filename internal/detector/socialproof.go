package detector

import (
	"fmt"
	"regexp"

	"github.com/nao1215/patternscan/internal/model"
)

var (
	vagueProofPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b\d[\d,.]*\s?k?\+?\s+(?:happy\s+|satisfied\s+)?(?:customers|users|clients|members|subscribers)\b`),
		regexp.MustCompile(`(?i)\b(?:millions|thousands|hundreds)\s+of\s+(?:happy\s+|satisfied\s+)?(?:customers|users|people|clients)\b`),
		regexp.MustCompile(`(?i)#1\s+(?:choice|rated|best|selling|brand)`),
		regexp.MustCompile(`(?i)\btrusted\s+by\s+(?:over\s+|more\s+than\s+)?[\d,.]+\s?k?\+?`),
		regexp.MustCompile(`(?i)\b(?:best|top)[-\s]rated\b`),
	}

	fakeActivityPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\b\d+\s+(?:people|others|users|customers)\s+(?:are\s+)?(?:viewing|looking|watching|bought|purchased|booked)\b`),
		regexp.MustCompile(`(?i)\bsomeone\s+(?:in|from)\s+\w+\s+(?:just\s+)?(?:bought|purchased|booked|ordered)\b`),
		regexp.MustCompile(`(?i)\b\d+\s+(?:purchases|bookings|orders|sales)\s+in\s+the\s+(?:last|past)\s+\d*\s*(?:hours?|minutes?|days?)\b`),
		regexp.MustCompile(`(?i)\b(?:just|recently)\s+(?:bought|purchased|booked)\s+by\b`),
	}
)

// detectSocialProof flags popularity claims that cannot be verified and
// activity notifications that are typically fabricated.
func detectSocialProof(s *model.PageSnapshot) []model.Finding {
	var findings []model.Finding
	if m, ok := firstMatch(s.BodyText, vagueProofPatterns); ok {
		findings = append(findings, rule(RuleUnverifiableSocialProof).finding(
			fmt.Sprintf("Vague popularity claim without a verifiable source: %q.", quote(m)),
			"body",
		))
	}
	if m, ok := firstMatch(s.BodyText, fakeActivityPatterns); ok {
		findings = append(findings, rule(RuleFakeActivity).finding(
			fmt.Sprintf("Activity notification that users cannot verify: %q.", quote(m)),
			"body",
		))
	}
	return findings
}
