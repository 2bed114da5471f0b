package detector

import (
	"fmt"
	"log/slog"

	"github.com/nao1215/patternscan/internal/model"
)

// Detector is one independent check of the bank.
type Detector struct {
	// ID names the detector in logs and in Registry.Only.
	ID string

	// Run inspects the snapshot and returns its findings. Run must not
	// modify the snapshot.
	Run func(s *model.PageSnapshot) []model.Finding
}

// Registry runs detectors in registration order.
//
// Design decision: We iterate a registry instead of hard-coding a call list
// so that detectors can be added, disabled or tested in isolation. A
// detector that panics is recovered and skipped; the remaining detectors
// still run, mirroring how the analyzer bank continues past failing checks.
type Registry struct {
	detectors []Detector
	logger    *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for recovered detector failures.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithoutDefaults creates an empty registry. Use Register to add detectors.
func WithoutDefaults() Option {
	return func(r *Registry) {
		r.detectors = r.detectors[:0]
	}
}

// NewRegistry creates a Registry with all built-in detectors registered.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		detectors: Builtin(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Builtin returns the built-in detectors in their fixed order.
func Builtin() []Detector {
	return []Detector{
		{ID: "cookie_consent", Run: detectCookieConsent},
		{ID: "prechecked_consent", Run: detectPrecheckedConsent},
		{ID: "required_fields", Run: detectRequiredFields},
		{ID: "data_collection", Run: detectDataCollection},
		{ID: "confirmshaming", Run: detectConfirmshaming},
		{ID: "urgency_buttons", Run: detectUrgencyButtons},
		{ID: "price_anchoring", Run: detectPriceAnchoring},
		{ID: "hidden_fees", Run: detectHiddenFees},
		{ID: "fake_scarcity", Run: detectFakeScarcity},
		{ID: "forced_continuity", Run: detectForcedContinuity},
		{ID: "exit_paths", Run: detectExitPaths},
		{ID: "social_proof", Run: detectSocialProof},
		{ID: "accessibility", Run: detectAccessibility},
		{ID: "privacy_policy", Run: detectPrivacyPolicy},
		{ID: "positive_patterns", Run: detectPositivePatterns},
		{ID: "nagging_modals", Run: detectNaggingModals},
	}
}

// Register appends a detector. It is not safe to call concurrently with Detect.
func (r *Registry) Register(d Detector) {
	r.detectors = append(r.detectors, d)
}

// IDs returns the registered detector IDs in run order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.detectors))
	for _, d := range r.detectors {
		ids = append(ids, d.ID)
	}
	return ids
}

// Only returns a registry containing just the detectors with the given IDs,
// keeping their original order.
func (r *Registry) Only(ids ...string) *Registry {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	filtered := &Registry{
		detectors: make([]Detector, 0, len(ids)),
		logger:    r.logger,
	}
	for _, d := range r.detectors {
		if want[d.ID] {
			filtered.detectors = append(filtered.detectors, d)
		}
	}
	return filtered
}

// Without returns a registry without the detectors with the given IDs.
func (r *Registry) Without(ids ...string) *Registry {
	skip := make(map[string]bool, len(ids))
	for _, id := range ids {
		skip[id] = true
	}
	filtered := &Registry{
		detectors: make([]Detector, 0, len(r.detectors)),
		logger:    r.logger,
	}
	for _, d := range r.detectors {
		if !skip[d.ID] {
			filtered.detectors = append(filtered.detectors, d)
		}
	}
	return filtered
}

// Detect runs every detector against s and concatenates the findings in
// registration order. It always returns a non-nil slice.
func (r *Registry) Detect(s *model.PageSnapshot) []model.Finding {
	findings := make([]model.Finding, 0)
	if s == nil {
		return findings
	}
	for _, d := range r.detectors {
		findings = append(findings, r.run(d, s)...)
	}
	return findings
}

// run executes one detector, containing panics.
func (r *Registry) run(d Detector, s *model.PageSnapshot) (findings []model.Finding) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Warn("detector failed",
				"detector", d.ID,
				"url", s.URL,
				"panic", fmt.Sprint(rec),
			)
			findings = nil
		}
	}()
	return d.Run(s)
}
