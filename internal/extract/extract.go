package extract

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/patternscan/internal/model"
)

// Extractor builds PageSnapshots from raw page artifacts.
// An Extractor is stateless and safe for concurrent use.
type Extractor struct {
	logger *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger used to report recovered pass failures.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = logger
	}
}

// New creates an Extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract is a convenience wrapper around New().Extract.
func Extract(raw model.RawPage) *model.PageSnapshot {
	return New().Extract(raw)
}

// document is the parsed page shared by all passes.
type document struct {
	doc   *goquery.Document
	base  *url.URL
	index *textIndex
}

// pass is one independent extraction step.
type pass struct {
	name string
	run  func(d *document, s *model.PageSnapshot)
}

// passes lists the extraction passes. Every pass writes a distinct snapshot
// field, so their order does not affect the output.
var passes = []pass{
	{name: "forms", run: extractForms},
	{name: "buttons", run: extractButtons},
	{name: "links", run: extractLinks},
	{name: "modals", run: extractModals},
	{name: "cookie_notices", run: extractCookieNotices},
	{name: "pricing", run: extractPricing},
	{name: "social_proof", run: extractSocialProof},
	{name: "privacy", run: extractPrivacy},
	{name: "subscription", run: extractSubscription},
	{name: "accessibility", run: extractAccessibility},
	{name: "meta", run: extractMeta},
}

// Extract parses raw.HTML and returns the snapshot. It never returns nil.
func (e *Extractor) Extract(raw model.RawPage) *model.PageSnapshot {
	snapshot := model.NewPageSnapshot(raw.URL)
	snapshot.Title = strings.TrimSpace(raw.Title)
	snapshot.Screenshot = raw.Screenshot
	snapshot.LoadTimeMs = raw.LoadTimeMs
	snapshot.HTML = model.TruncateUTF8(raw.HTML, model.MaxHTMLSize)

	if strings.TrimSpace(raw.HTML) == "" {
		return snapshot
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw.HTML))
	if err != nil {
		e.logger.Debug("html parse failed, returning empty snapshot",
			"url", raw.URL,
			"error", err,
		)
		return snapshot
	}

	baseURL := raw.FinalURL
	if baseURL == "" {
		baseURL = raw.URL
	}
	base, err := url.Parse(baseURL)
	if err != nil {
		base = &url.URL{}
	}

	d := &document{
		doc:   doc,
		base:  base,
		index: buildIndex(doc),
	}

	if snapshot.Title == "" {
		snapshot.Title = fragment(doc.Find("title").First().Text())
	}
	snapshot.BodyText = d.index.bodyText

	for _, p := range passes {
		e.runPass(p, d, snapshot)
	}

	return snapshot
}

// runPass runs p and contains any panic so that one broken pass cannot
// abort the extraction.
func (e *Extractor) runPass(p pass, d *document, s *model.PageSnapshot) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("extraction pass failed",
				"pass", p.name,
				"url", s.URL,
				"panic", fmt.Sprint(r),
			)
		}
	}()
	p.run(d, s)
}

// collapse trims s and collapses internal whitespace runs to one space.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// fragment collapses s and truncates it to the fragment size limit.
func fragment(s string) string {
	return model.TruncateUTF8(collapse(s), model.MaxFragmentSize)
}

// hasAttr reports whether the selection's first element carries attr.
func hasAttr(s *goquery.Selection, attr string) bool {
	_, ok := s.Attr(attr)
	return ok
}
