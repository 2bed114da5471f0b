package detector

import (
	"fmt"
	"sort"

	"github.com/nao1215/patternscan/internal/model"
)

// Rule IDs. They are stored with every finding and used to compare audits
// over time, so they must never change once released.
const (
	RuleCookieForcedAccept      = "cookie_forced_accept"
	RuleCookieWall              = "cookie_wall"
	RulePrecheckedMarketing     = "prechecked_marketing"
	RuleUnclearRequiredFields   = "unclear_required_fields"
	RuleExcessiveDataCollection = "excessive_data_collection"
	RuleConfirmshaming          = "confirmshaming"
	RuleUrgencyButton           = "urgency_button"
	RulePriceAnchoring          = "price_anchoring"
	RuleHiddenFees              = "hidden_fees"
	RuleFakeScarcity            = "fake_scarcity"
	RuleForcedContinuity        = "forced_continuity"
	RuleUnclearCancellation     = "unclear_cancellation"
	RuleMissingUnsubscribe      = "missing_unsubscribe"
	RuleMissingAccountDeletion  = "missing_account_deletion"
	RuleUnverifiableSocialProof = "unverifiable_social_proof"
	RuleFakeActivity            = "fake_activity"
	RuleMissingAltText          = "missing_alt_text"
	RuleMissingH1               = "missing_h1"
	RuleMultipleH1              = "multiple_h1"
	RuleAltTextComplete         = "alt_text_complete"
	RuleSkipLinks               = "skip_links"
	RuleMissingPrivacyPolicy    = "missing_privacy_policy"
	RuleMissingGDPRInfo         = "missing_gdpr_info"
	RulePrivacyRespecting       = "privacy_respecting"
	RuleTransparentPricing      = "transparent_pricing"
	RuleNaggingModal            = "nagging_modal"
)

// Category names used in findings.
const (
	CategoryPrivacyZuckering      = "Privacy Zuckering"
	CategoryForcedAction          = "Forced Action"
	CategorySneaking              = "Sneaking"
	CategoryInterfaceInterference = "Interface Interference"
	CategoryConfirmshaming        = "Confirmshaming"
	CategoryUrgency               = "Urgency"
	CategoryMisdirection          = "Misdirection"
	CategoryScarcity              = "Scarcity"
	CategoryForcedContinuity      = "Forced Continuity"
	CategoryRoachMotel            = "Roach Motel"
	CategorySocialProof           = "Social Proof"
	CategoryAccessibility         = "Accessibility"
	CategoryTransparency          = "Transparency"
	CategoryNagging               = "Nagging"
)

// Tuning constants that are not a single rule's confidence.
const (
	// requiredFieldsBaseConfidence and requiredFieldsStep scale the
	// unclear-required-fields confidence with the number of unmarked fields.
	requiredFieldsBaseConfidence = 40
	requiredFieldsStep           = 10
	requiredFieldsMaxConfidence  = 90

	// sensitiveFieldThreshold is the number of sensitive fields a single
	// form may ask for before it is considered excessive.
	sensitiveFieldThreshold = 3

	// missingAltHighImpact is the number of images without alt text above
	// which the finding is high impact.
	missingAltHighImpact = 5
)

// Rule is the fixed metadata of one detection rule.
//
// Design decision: Confidence and impact are a hand-tuned severity prior per
// rule, not a computed probability. Keeping them in one table makes the
// weights reviewable without reading detection logic.
type Rule struct {
	ID             string
	Name           string
	Category       string
	Type           model.PatternType
	Confidence     int
	Impact         model.Impact
	Recommendation string
}

// rules is the rule table.
var rules = map[string]Rule{
	RuleCookieForcedAccept: {
		Name:           "Forced Cookie Acceptance",
		Category:       CategoryPrivacyZuckering,
		Type:           model.PatternDark,
		Confidence:     95,
		Impact:         model.ImpactHigh,
		Recommendation: "Offer a reject option that is as prominent and as easy to use as the accept option.",
	},
	RuleCookieWall: {
		Name:           "Cookie Wall",
		Category:       CategoryForcedAction,
		Type:           model.PatternDark,
		Confidence:     80,
		Impact:         model.ImpactHigh,
		Recommendation: "Do not make access to content conditional on accepting tracking. Provide an explicit reject choice.",
	},
	RulePrecheckedMarketing: {
		Name:           "Pre-checked Marketing Consent",
		Category:       CategorySneaking,
		Type:           model.PatternDark,
		Confidence:     100,
		Impact:         model.ImpactHigh,
		Recommendation: "Leave marketing consent checkboxes unchecked so that users opt in actively.",
	},
	RuleUnclearRequiredFields: {
		Name:           "Unclear Required Fields",
		Category:       CategoryInterfaceInterference,
		Type:           model.PatternGrey,
		Confidence:     requiredFieldsBaseConfidence,
		Impact:         model.ImpactMedium,
		Recommendation: "Mark every required field visibly, for example with an asterisk and a legend.",
	},
	RuleExcessiveDataCollection: {
		Name:           "Excessive Data Collection",
		Category:       CategoryPrivacyZuckering,
		Type:           model.PatternGrey,
		Confidence:     70,
		Impact:         model.ImpactMedium,
		Recommendation: "Collect only the personal data needed for the task and explain why each field is requested.",
	},
	RuleConfirmshaming: {
		Name:           "Confirmshaming",
		Category:       CategoryConfirmshaming,
		Type:           model.PatternDark,
		Confidence:     85,
		Impact:         model.ImpactHigh,
		Recommendation: "Use neutral wording for decline options, such as \"No thanks\".",
	},
	RuleUrgencyButton: {
		Name:           "Urgency Pressure",
		Category:       CategoryUrgency,
		Type:           model.PatternGrey,
		Confidence:     65,
		Impact:         model.ImpactMedium,
		Recommendation: "Avoid time pressure in calls to action unless a real deadline exists, and state it.",
	},
	RulePriceAnchoring: {
		Name:           "Price Anchoring",
		Category:       CategoryMisdirection,
		Type:           model.PatternGrey,
		Confidence:     60,
		Impact:         model.ImpactLow,
		Recommendation: "Show reference prices only when they are genuine recent prices.",
	},
	RuleHiddenFees: {
		Name:           "Hidden Costs",
		Category:       CategorySneaking,
		Type:           model.PatternDark,
		Confidence:     85,
		Impact:         model.ImpactHigh,
		Recommendation: "Show the full price including taxes and fees up front.",
	},
	RuleFakeScarcity: {
		Name:           "Artificial Scarcity Claims",
		Category:       CategoryScarcity,
		Type:           model.PatternGrey,
		Confidence:     70,
		Impact:         model.ImpactMedium,
		Recommendation: "Only show stock levels that reflect real inventory.",
	},
	RuleForcedContinuity: {
		Name:           "Forced Continuity Trial",
		Category:       CategoryForcedContinuity,
		Type:           model.PatternDark,
		Confidence:     80,
		Impact:         model.ImpactHigh,
		Recommendation: "Remind users before a trial converts to a paid plan and do not require payment details to start a free trial.",
	},
	RuleUnclearCancellation: {
		Name:           "Unclear Cancellation Terms",
		Category:       CategoryForcedContinuity,
		Type:           model.PatternGrey,
		Confidence:     65,
		Impact:         model.ImpactMedium,
		Recommendation: "State clearly how and when the subscription can be cancelled.",
	},
	RuleMissingUnsubscribe: {
		Name:           "Missing Unsubscribe Option",
		Category:       CategoryRoachMotel,
		Type:           model.PatternDark,
		Confidence:     75,
		Impact:         model.ImpactHigh,
		Recommendation: "Provide a visible unsubscribe or opt-out link wherever users can subscribe.",
	},
	RuleMissingAccountDeletion: {
		Name:           "No Account Deletion Path",
		Category:       CategoryRoachMotel,
		Type:           model.PatternGrey,
		Confidence:     60,
		Impact:         model.ImpactMedium,
		Recommendation: "Let users find how to delete or deactivate their account.",
	},
	RuleUnverifiableSocialProof: {
		Name:           "Unverifiable Social Proof",
		Category:       CategorySocialProof,
		Type:           model.PatternGrey,
		Confidence:     55,
		Impact:         model.ImpactLow,
		Recommendation: "Back popularity claims with verifiable sources or specific reviews.",
	},
	RuleFakeActivity: {
		Name:           "Fake Activity Notifications",
		Category:       CategorySocialProof,
		Type:           model.PatternGrey,
		Confidence:     65,
		Impact:         model.ImpactMedium,
		Recommendation: "Only show activity notifications generated from real, current activity.",
	},
	RuleMissingAltText: {
		Name:           "Missing Image Alt Text",
		Category:       CategoryAccessibility,
		Type:           model.PatternGrey,
		Confidence:     90,
		Impact:         model.ImpactMedium,
		Recommendation: "Add descriptive alt text to informative images and alt=\"\" to decorative ones.",
	},
	RuleMissingH1: {
		Name:           "Missing Main Heading",
		Category:       CategoryAccessibility,
		Type:           model.PatternGrey,
		Confidence:     70,
		Impact:         model.ImpactLow,
		Recommendation: "Give every page a single h1 describing its main content.",
	},
	RuleMultipleH1: {
		Name:           "Multiple Main Headings",
		Category:       CategoryAccessibility,
		Type:           model.PatternGrey,
		Confidence:     60,
		Impact:         model.ImpactLow,
		Recommendation: "Use one h1 per page and structure sections with h2 to h6.",
	},
	RuleAltTextComplete: {
		Name:           "Excellent Image Accessibility",
		Category:       CategoryAccessibility,
		Type:           model.PatternWhite,
		Confidence:     90,
		Impact:         model.ImpactPositive,
		Recommendation: "Keep describing every informative image.",
	},
	RuleSkipLinks: {
		Name:           "Skip Navigation Links",
		Category:       CategoryAccessibility,
		Type:           model.PatternWhite,
		Confidence:     80,
		Impact:         model.ImpactPositive,
		Recommendation: "Keep skip links as the first focusable elements on the page.",
	},
	RuleMissingPrivacyPolicy: {
		Name:           "Missing Privacy Policy",
		Category:       CategoryPrivacyZuckering,
		Type:           model.PatternDark,
		Confidence:     85,
		Impact:         model.ImpactHigh,
		Recommendation: "Link a privacy policy from every page that collects personal data.",
	},
	RuleMissingGDPRInfo: {
		Name:           "No Data Protection Information",
		Category:       CategoryPrivacyZuckering,
		Type:           model.PatternGrey,
		Confidence:     60,
		Impact:         model.ImpactMedium,
		Recommendation: "Explain how personal data is processed and which rights users have.",
	},
	RulePrivacyRespecting: {
		Name:           "Privacy-Respecting Language",
		Category:       CategoryTransparency,
		Type:           model.PatternWhite,
		Confidence:     75,
		Impact:         model.ImpactPositive,
		Recommendation: "Keep privacy commitments visible and make sure practice matches them.",
	},
	RuleTransparentPricing: {
		Name:           "Transparent Pricing",
		Category:       CategoryTransparency,
		Type:           model.PatternWhite,
		Confidence:     75,
		Impact:         model.ImpactPositive,
		Recommendation: "Keep showing all-inclusive prices.",
	},
	RuleNaggingModal: {
		Name:           "Interruptive Overlay",
		Category:       CategoryNagging,
		Type:           model.PatternGrey,
		Confidence:     50,
		Impact:         model.ImpactLow,
		Recommendation: "Avoid overlays that interrupt the first visit; let users reach content before prompting.",
	},
}

// LookupRule returns the rule registered under id.
func LookupRule(id string) (Rule, bool) {
	r, ok := rules[id]
	if !ok {
		return Rule{}, false
	}
	r.ID = id
	return r, true
}

// Rules returns every rule sorted by ID.
func Rules() []Rule {
	result := make([]Rule, 0, len(rules))
	for id := range rules {
		r, _ := LookupRule(id)
		result = append(result, r)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID < result[j].ID
	})
	return result
}

// rule returns the rule for id and panics on an unknown id. Unknown ids are
// programming errors caught by the rule table test.
func rule(id string) Rule {
	r, ok := LookupRule(id)
	if !ok {
		panic(fmt.Sprintf("detector: unknown rule %q", id))
	}
	return r
}

// finding builds a Finding from the rule's fixed metadata.
func (r Rule) finding(description, selector string) model.Finding {
	return model.Finding{
		RuleID:          r.ID,
		Name:            r.Name,
		Category:        r.Category,
		PatternType:     r.Type,
		Confidence:      r.Confidence,
		Description:     description,
		ElementSelector: selector,
		Recommendation:  r.Recommendation,
		Impact:          r.Impact,
	}
}
