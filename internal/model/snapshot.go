package model

import "unicode/utf8"

// Bounds applied by the extractor. Every sequence in a PageSnapshot is capped
// so that adversarial pages with thousands of matching elements still produce
// a small record.
const (
	// MaxHTMLSize is the maximum size of the stored HTML in bytes.
	MaxHTMLSize = 200 * 1024 // 200 KB

	// MaxBodyTextSize is the maximum size of the visible body text in bytes.
	// Detectors run regular expressions over this text, so it is kept small.
	MaxBodyTextSize = 50 * 1024 // 50 KB

	// MaxFragmentSize limits every individual text fragment (button text,
	// notice text, keyword matches).
	MaxFragmentSize = 300

	// MaxForms is the maximum number of forms recorded.
	MaxForms = 20

	// MaxInputsPerForm is the maximum number of inputs recorded per form.
	MaxInputsPerForm = 50

	// MaxButtons is the maximum number of buttons recorded.
	MaxButtons = 100

	// MaxLinks is the maximum number of links recorded.
	MaxLinks = 200

	// MaxCookieNotices is the maximum number of cookie notices recorded.
	MaxCookieNotices = 10

	// MaxPricingElements is the maximum number of pricing fragments recorded.
	MaxPricingElements = 20

	// MaxSocialProofElements is the maximum number of social proof matches.
	MaxSocialProofElements = 15

	// MaxPrivacyElements is the maximum number of privacy keyword matches.
	MaxPrivacyElements = 10

	// MaxSubscriptionElements is the maximum number of subscription keyword matches.
	MaxSubscriptionElements = 10
)

// PageSnapshot is the normalized structural record of one fetched page.
// It is built once by the extractor and never modified afterwards; every
// detector reads from the same snapshot.
//
// Design decision: All collections default to empty slices rather than nil so
// that detectors can treat absence as "no evidence" without nil checks, and
// JSON output always carries arrays.
type PageSnapshot struct {
	// URL is the audited URL.
	URL string `json:"url"`

	// Title is the document title.
	Title string `json:"title"`

	// HTML is the rendered HTML, truncated to MaxHTMLSize.
	HTML string `json:"html"`

	// BodyText is the visible text of <body>, whitespace-collapsed and
	// truncated to MaxBodyTextSize.
	BodyText string `json:"bodyText"`

	// Screenshot is a base64-encoded JPEG of the first viewport.
	Screenshot string `json:"screenshot,omitempty"`

	// LoadTimeMs is the time from navigation start to DOMContentLoaded.
	LoadTimeMs int64 `json:"loadTimeMs"`

	Forms                 []Form                `json:"forms"`
	Buttons               []Button              `json:"buttons"`
	Links                 []Link                `json:"links"`
	Modals                []Modal               `json:"modals"`
	CookieNotices         []CookieNotice        `json:"cookieNotices"`
	PricingElements       []string              `json:"pricingElements"`
	SocialProofElements   []KeywordElement      `json:"socialProofElements"`
	PrivacyElements       []KeywordElement      `json:"privacyElements"`
	SubscriptionElements  []KeywordElement      `json:"subscriptionElements"`
	AccessibilityElements AccessibilityElements `json:"accessibilityElements"`
	Meta                  Meta                  `json:"meta"`
}

// NewPageSnapshot returns a snapshot for url with every collection initialized.
func NewPageSnapshot(url string) *PageSnapshot {
	return &PageSnapshot{
		URL:                  url,
		Forms:                make([]Form, 0),
		Buttons:              make([]Button, 0),
		Links:                make([]Link, 0),
		Modals:               make([]Modal, 0),
		CookieNotices:        make([]CookieNotice, 0),
		PricingElements:      make([]string, 0),
		SocialProofElements:  make([]KeywordElement, 0),
		PrivacyElements:      make([]KeywordElement, 0),
		SubscriptionElements: make([]KeywordElement, 0),
	}
}

// Form represents an HTML form element.
type Form struct {
	// Action is the form's action attribute as written in the page.
	Action string `json:"action"`

	// Method is the lower-cased HTTP method. Defaults to "get".
	Method string `json:"method"`

	// SubmitText is the label of the form's submit control, if any.
	SubmitText string `json:"submitText"`

	// Inputs contains the form's input, select and textarea fields.
	Inputs []FormInput `json:"inputs"`
}

// FormInput represents a field in a form.
type FormInput struct {
	// Type is the input type (text, checkbox, email, select, textarea, ...).
	Type string `json:"type"`

	// Name is the field's name attribute, falling back to its id.
	Name string `json:"name"`

	// Placeholder is the placeholder attribute.
	Placeholder string `json:"placeholder"`

	// Required is true when the required attribute is present.
	Required bool `json:"required"`

	// Checked is true when the checked attribute is present.
	Checked bool `json:"checked"`
}

// Button represents a clickable control.
type Button struct {
	Text    string `json:"text"`
	Type    string `json:"type"`
	Class   string `json:"class"`
	OnClick string `json:"onclick"`
}

// Link represents an anchor element.
type Link struct {
	Href string `json:"href"`
	Text string `json:"text"`

	// External is true when the link points to a different host.
	External bool `json:"external"`
}

// Modal summarizes the elements matched by one modal selector.
type Modal struct {
	Selector    string `json:"selector"`
	Count       int    `json:"count"`
	HiddenCount int    `json:"hiddenCount"`
}

// Visible returns the number of matched elements that are not hidden.
func (m Modal) Visible() int {
	if m.HiddenCount >= m.Count {
		return 0
	}
	return m.Count - m.HiddenCount
}

// CookieNotice represents a cookie or consent banner candidate.
type CookieNotice struct {
	Selector       string `json:"selector"`
	Text           string `json:"text"`
	HasInlineStyle bool   `json:"hasInlineStyle"`
}

// KeywordElement is an element whose own text contains a watched keyword.
type KeywordElement struct {
	Keyword string `json:"keyword"`
	Text    string `json:"text"`
	Tag     string `json:"tag"`
}

// AccessibilityElements holds accessibility counters.
type AccessibilityElements struct {
	// AltTexts counts images with a non-empty alt attribute.
	AltTexts int `json:"altTexts"`

	// MissingAltTexts counts images without an alt attribute.
	// Images with alt="" are decorative and counted in neither field.
	MissingAltTexts int `json:"missingAltTexts"`

	// AriaLabels counts elements carrying aria-label.
	AriaLabels int `json:"ariaLabels"`

	HeadingStructure HeadingStructure `json:"headingStructure"`

	// FocusableElements counts keyboard-reachable elements.
	FocusableElements int `json:"focusableElements"`

	// SkipLinks counts in-page "skip to content" links.
	SkipLinks int `json:"skipLinks"`
}

// HeadingStructure counts headings per level.
type HeadingStructure struct {
	H1 int `json:"h1"`
	H2 int `json:"h2"`
	H3 int `json:"h3"`
	H4 int `json:"h4"`
	H5 int `json:"h5"`
	H6 int `json:"h6"`
}

// Total returns the number of headings of any level.
func (h HeadingStructure) Total() int {
	return h.H1 + h.H2 + h.H3 + h.H4 + h.H5 + h.H6
}

// Meta holds the document's descriptive meta tags.
type Meta struct {
	Description string `json:"description"`
	Keywords    string `json:"keywords"`
	Viewport    string `json:"viewport"`
	Charset     string `json:"charset"`
}

// IsEmpty reports whether the snapshot carries no signals at all.
func (s *PageSnapshot) IsEmpty() bool {
	return s.BodyText == "" &&
		len(s.Forms) == 0 &&
		len(s.Buttons) == 0 &&
		len(s.Links) == 0 &&
		len(s.CookieNotices) == 0
}

// TruncateUTF8 cuts s to at most maxBytes bytes without splitting a rune.
func TruncateUTF8(s string, maxBytes int) string {
	if maxBytes <= 0 {
		return ""
	}
	if len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// RawPage holds the artifacts captured by the browser before extraction.
type RawPage struct {
	// URL is the requested URL.
	URL string

	// FinalURL is the URL after redirects. Empty when unknown.
	FinalURL string

	Title      string
	HTML       string
	Screenshot string

	// StatusCode is the HTTP status of the main document.
	StatusCode int

	LoadTimeMs int64
}
