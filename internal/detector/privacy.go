package detector

import (
	"github.com/nao1215/patternscan/internal/model"
)

var (
	privacyLinkTerms = []string{"privacy", "data protection", "datenschutz"}

	gdprTerms = []string{
		"gdpr", "data protection", "personal data", "data controller",
		"right to access", "right to erasure", "lawful basis", "ccpa",
	}

	privacyRespectingPhrases = []string{
		"we do not sell your", "we don't sell your", "we never sell",
		"we will never sell", "we never share your", "no tracking",
		"privacy-first", "privacy first", "we respect your privacy",
		"you control your data", "you can opt out at any time",
		"end-to-end encrypted", "delete your data at any time",
	}

	transparentPricingPhrases = []string{
		"no hidden fees", "no hidden costs", "no hidden charges",
		"all taxes included", "taxes included", "tax included",
		"all-inclusive price", "price includes", "no extra charges",
		"what you see is what you pay",
	}
)

// detectPrivacyPolicy flags pages that collect data through forms without
// linking a privacy policy.
func detectPrivacyPolicy(s *model.PageSnapshot) []model.Finding {
	// Without a form the page collects nothing that a policy would cover.
	if len(s.Forms) == 0 {
		return nil
	}
	if containsAny(linkTexts(s), privacyLinkTerms) {
		return nil
	}

	findings := []model.Finding{
		rule(RuleMissingPrivacyPolicy).finding(
			"The page collects data through a form but links to no privacy policy.",
			"a",
		),
	}
	if !containsAny(lowerBody(s), gdprTerms) {
		findings = append(findings, rule(RuleMissingGDPRInfo).finding(
			"The page gives no information about how personal data is processed.",
			"body",
		))
	}
	return findings
}

// detectPositivePatterns recognizes explicit privacy and pricing commitments.
func detectPositivePatterns(s *model.PageSnapshot) []model.Finding {
	body := lowerBody(s)

	var findings []model.Finding
	if phrase, ok := firstContained(body, privacyRespectingPhrases); ok {
		findings = append(findings, rule(RulePrivacyRespecting).finding(
			"The page makes an explicit privacy commitment: \""+phrase+"\".",
			"body",
		))
	}
	if phrase, ok := firstContained(body, transparentPricingPhrases); ok {
		findings = append(findings, rule(RuleTransparentPricing).finding(
			"The page states its pricing transparently: \""+phrase+"\".",
			"body",
		))
	}
	return findings
}
