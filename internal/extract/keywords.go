package extract

import (
	"regexp"
	"strings"

	"github.com/nao1215/patternscan/internal/model"
)

// pricePattern matches currency amounts and promotional price language.
var pricePattern = regexp.MustCompile(
	`(?i)(?:[$€£¥]\s?\d[\d,]*(?:\.\d{1,2})?|\d[\d,]*(?:\.\d{1,2})?\s?(?:usd|eur|gbp|jpy)\b|\d{1,2}\s?%\s?off\b|\bsale ends\b|\blimited time\b)`,
)

// Keyword lists for the text fragment passes. Keywords are lower case.
var (
	socialProofKeywords = []string{
		"customers", "users", "people", "reviews", "rated", "trusted by",
		"bought", "viewing", "sold", "members",
	}

	privacyKeywords = []string{
		"privacy", "personal data", "data protection", "gdpr", "cookie",
		"tracking", "third part",
	}

	subscriptionKeywords = []string{
		"unsubscribe", "subscription", "subscribe", "membership",
		"auto-renew", "renews", "recurring", "trial", "billing", "cancel",
	}
)

// extractPricing records deduplicated text fragments mentioning prices.
func extractPricing(d *document, s *model.PageSnapshot) {
	seen := make(map[string]bool)
	for _, e := range d.index.entries {
		if len(s.PricingElements) >= model.MaxPricingElements {
			return
		}
		if !pricePattern.MatchString(e.text) {
			continue
		}
		key := strings.ToLower(e.text)
		if seen[key] {
			continue
		}
		seen[key] = true
		s.PricingElements = append(s.PricingElements, e.text)
	}
}

func extractSocialProof(d *document, s *model.PageSnapshot) {
	s.SocialProofElements = d.index.matchKeywords(socialProofKeywords, model.MaxSocialProofElements)
}

func extractPrivacy(d *document, s *model.PageSnapshot) {
	s.PrivacyElements = d.index.matchKeywords(privacyKeywords, model.MaxPrivacyElements)
}

func extractSubscription(d *document, s *model.PageSnapshot) {
	s.SubscriptionElements = d.index.matchKeywords(subscriptionKeywords, model.MaxSubscriptionElements)
}
