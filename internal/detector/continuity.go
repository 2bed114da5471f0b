package detector

import (
	"regexp"
	"strings"

	"github.com/nao1215/patternscan/internal/model"
)

var (
	trialPattern = regexp.MustCompile(`(?i)\btrial\b`)

	paymentTerms = []string{
		"credit card", "debit card", "card details", "payment", "billing",
		"billed", "charged", "will be charged",
	}

	cancellationPhrases = []string{
		"cancel anytime", "cancel any time", "cancel at any time",
		"no commitment", "no obligation", "cancel online",
	}

	subscriptionContext = []string{
		"subscribe", "subscription", "newsletter", "mailing list", "membership",
	}
	unsubscribeTerms = []string{
		"unsubscribe", "opt-out", "opt out", "manage subscription",
		"cancel subscription", "email preferences",
	}

	accountContext = []string{
		"my account", "create account", "create an account", "sign up",
		"sign in", "log in", "login", "register",
	}
	deletionTerms = []string{
		"delete", "deactivate", "close account", "close your account",
		"remove account",
	}
)

// detectForcedContinuity flags trials that require payment details and may
// convert silently.
func detectForcedContinuity(s *model.PageSnapshot) []model.Finding {
	body := lowerBody(s)
	if !trialPattern.MatchString(body) || !containsAny(body, paymentTerms) {
		return nil
	}

	findings := []model.Finding{
		rule(RuleForcedContinuity).finding(
			"A trial is offered together with payment or billing terms, so it may convert to a paid plan automatically.",
			"body",
		),
	}
	if !containsAny(body, cancellationPhrases) {
		findings = append(findings, rule(RuleUnclearCancellation).finding(
			"The trial offer does not state that it can be cancelled at any time.",
			"body",
		))
	}
	return findings
}

// detectExitPaths flags subscription and account pages that offer no
// visible way back out.
func detectExitPaths(s *model.PageSnapshot) []model.Finding {
	body := lowerBody(s)
	links := linkTexts(s)

	var findings []model.Finding
	// Extracted subscription elements include plain "cancel" buttons, so
	// only the body text decides the subscription context.
	if containsAny(body, subscriptionContext) && !containsAny(links, unsubscribeTerms) {
		findings = append(findings, rule(RuleMissingUnsubscribe).finding(
			"The page invites users to subscribe but links to no unsubscribe or opt-out option.",
			"a",
		))
	}
	if containsAny(body, accountContext) && !containsAny(links, deletionTerms) {
		findings = append(findings, rule(RuleMissingAccountDeletion).finding(
			"The page refers to user accounts but links to no way to delete or deactivate one.",
			"a",
		))
	}
	return findings
}

// linkTexts returns the visible link texts lower-cased and joined. Hrefs are
// left out: a link the user cannot read as "privacy" or "unsubscribe" does
// not count as one.
func linkTexts(s *model.PageSnapshot) string {
	parts := make([]string, 0, len(s.Links))
	for _, l := range s.Links {
		parts = append(parts, l.Text)
	}
	return strings.ToLower(strings.Join(parts, "\n"))
}
