package pipeline

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/patternscan/internal/audit"
	"github.com/nao1215/patternscan/internal/model"
)

// Scraper loads a URL into a page snapshot. *audit.Service implements it.
type Scraper interface {
	Scrape(ctx context.Context, url string) model.ScrapeResult
}

// Analyzer scores a page snapshot. *audit.Service implements it.
type Analyzer interface {
	Analyze(snapshot *model.PageSnapshot) model.AnalysisResult
}

// Store persists finished audits. *database.AuditDB implements it.
type Store interface {
	SaveAudit(ctx context.Context, report *model.AuditReport) error
}

// ScrapeStep loads the report's URL in the headless browser and attaches
// the extracted snapshot.
//
// Design decision: A failed scrape is returned as an *audit.ScrapeError so
// that the pipeline stops and callers can still read the typed ErrorKind
// from the report.
type ScrapeStep struct {
	scraper Scraper
	logger  *slog.Logger
}

// ScrapeStepOption configures a ScrapeStep.
type ScrapeStepOption func(*ScrapeStep)

// WithScrapeLogger sets a custom logger for the scrape step.
func WithScrapeLogger(logger *slog.Logger) ScrapeStepOption {
	return func(s *ScrapeStep) {
		s.logger = logger
	}
}

// NewScrapeStep creates a new scraping step.
func NewScrapeStep(scraper Scraper, opts ...ScrapeStepOption) *ScrapeStep {
	s := &ScrapeStep{
		scraper: scraper,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *ScrapeStep) Name() string {
	return "scrape"
}

// Do executes the scrape step.
func (s *ScrapeStep) Do(ctx context.Context, report *model.AuditReport) error {
	res := s.scraper.Scrape(ctx, report.URL)
	report.ScrapingTimeMs = res.Performance.ScrapingTimeMs

	if !res.Success {
		report.ErrorKind = res.ErrorKind
		return audit.ErrorFromResult(res)
	}

	report.Snapshot = res.Data
	if res.Data != nil {
		report.Title = res.Data.Title
	}
	s.logger.Debug("page scraped",
		"url", report.URL,
		"duration_ms", report.ScrapingTimeMs,
	)
	return nil
}

// AnalyzeStep runs the detector bank and scorer over the scraped snapshot.
type AnalyzeStep struct {
	analyzer Analyzer
	logger   *slog.Logger
}

// AnalyzeStepOption configures an AnalyzeStep.
type AnalyzeStepOption func(*AnalyzeStep)

// WithAnalyzeLogger sets a custom logger for the analyze step.
func WithAnalyzeLogger(logger *slog.Logger) AnalyzeStepOption {
	return func(s *AnalyzeStep) {
		s.logger = logger
	}
}

// NewAnalyzeStep creates a new analysis step.
func NewAnalyzeStep(analyzer Analyzer, opts ...AnalyzeStepOption) *AnalyzeStep {
	s := &AnalyzeStep{
		analyzer: analyzer,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *AnalyzeStep) Name() string {
	return "analyze"
}

// Do executes the analyze step.
func (s *AnalyzeStep) Do(_ context.Context, report *model.AuditReport) error {
	if report.Snapshot == nil {
		return ErrNoSnapshot
	}

	result := s.analyzer.Analyze(report.Snapshot)
	result.Performance.ScrapingTimeMs = report.ScrapingTimeMs
	report.Analysis = &result

	s.logger.Debug("page analyzed",
		"url", report.URL,
		"findings", len(result.PatternsDetected),
		"score", result.OverallScore.TotalScore,
	)
	return nil
}

// ScreenshotStep writes the captured JPEG to a directory so a reviewer can
// look at the page the findings refer to.
type ScreenshotStep struct {
	dir    string
	logger *slog.Logger
}

// ScreenshotStepOption configures a ScreenshotStep.
type ScreenshotStepOption func(*ScreenshotStep)

// WithScreenshotLogger sets a custom logger for the screenshot step.
func WithScreenshotLogger(logger *slog.Logger) ScreenshotStepOption {
	return func(s *ScreenshotStep) {
		s.logger = logger
	}
}

// NewScreenshotStep creates a step that writes screenshots into dir.
// The directory is created on first use.
func NewScreenshotStep(dir string, opts ...ScreenshotStepOption) *ScreenshotStep {
	s := &ScreenshotStep{
		dir:    dir,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *ScreenshotStep) Name() string {
	return "screenshot"
}

// Do executes the screenshot step. A page without a screenshot is skipped.
func (s *ScreenshotStep) Do(_ context.Context, report *model.AuditReport) error {
	if report.Snapshot == nil || report.Snapshot.Screenshot == "" {
		s.logger.Debug("no screenshot captured", "url", report.URL)
		return nil
	}

	data, err := base64.StdEncoding.DecodeString(report.Snapshot.Screenshot)
	if err != nil {
		return fmt.Errorf("failed to decode screenshot: %w", err)
	}

	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return fmt.Errorf("failed to create screenshot directory: %w", err)
	}

	path := filepath.Join(s.dir, ScreenshotFileName(report))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write screenshot: %w", err)
	}
	report.ScreenshotPath = path

	s.logger.Debug("screenshot written", "url", report.URL, "path", path)
	return nil
}

// maxSlugLength bounds the URL-derived part of screenshot file names.
const maxSlugLength = 100

// ScreenshotFileName derives a file name from the report's URL and scan time,
// e.g. "shop.example_cart-20260102-150405.jpg".
func ScreenshotFileName(report *model.AuditReport) string {
	slug := report.URL
	if u, err := url.Parse(report.URL); err == nil && u.Host != "" {
		slug = u.Host + u.Path
	}

	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			return r
		default:
			return '_'
		}
	}, slug)
	slug = strings.Trim(slug, "_.")
	if len(slug) > maxSlugLength {
		slug = slug[:maxSlugLength]
	}
	if slug == "" {
		slug = "page"
	}

	return slug + "-" + report.DateScanned.Format("20060102-150405") + ".jpg"
}

// PersistStep saves analyzed reports to the history store.
type PersistStep struct {
	store  Store
	logger *slog.Logger
}

// PersistStepOption configures a PersistStep.
type PersistStepOption func(*PersistStep)

// WithPersistLogger sets a custom logger for the persist step.
func WithPersistLogger(logger *slog.Logger) PersistStepOption {
	return func(s *PersistStep) {
		s.logger = logger
	}
}

// NewPersistStep creates a step that saves reports to store.
func NewPersistStep(store Store, opts ...PersistStepOption) *PersistStep {
	s := &PersistStep{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name returns the step name.
func (s *PersistStep) Name() string {
	return "persist"
}

// Do executes the persist step. Reports without an analysis are not saved
// because there is nothing to compare against later.
func (s *PersistStep) Do(ctx context.Context, report *model.AuditReport) error {
	if report.Analysis == nil {
		s.logger.Debug("skipping persistence of unanalyzed report", "url", report.URL)
		return nil
	}
	if err := s.store.SaveAudit(ctx, report); err != nil {
		return fmt.Errorf("failed to save audit: %w", err)
	}
	return nil
}

// DefaultPipelineConfig holds configuration for the default pipeline.
type DefaultPipelineConfig struct {
	// ScreenshotDir enables the screenshot step when non-empty.
	ScreenshotDir string

	// Store enables the persist step when non-nil.
	Store Store

	// Logger is passed to every step.
	Logger *slog.Logger
}

// DefaultPipelineOption configures a DefaultPipelineConfig.
type DefaultPipelineOption func(*DefaultPipelineConfig)

// WithPipelineScreenshotDir writes each audit's screenshot into dir.
func WithPipelineScreenshotDir(dir string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.ScreenshotDir = dir
	}
}

// WithPipelineStore saves each analyzed audit to store.
func WithPipelineStore(store Store) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Store = store
	}
}

// WithPipelineStepLogger sets the logger used by the steps.
func WithPipelineStepLogger(logger *slog.Logger) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Logger = logger
	}
}

// DefaultPipeline creates the standard audit pipeline:
// scrape, analyze, then optionally screenshot export and persistence.
//
// The first variadic parameter accepts pipeline options (WithLogger, etc).
// The second accepts step configuration (WithPipelineStore, etc).
func DefaultPipeline(svc *audit.Service, pipelineOpts []Option, configOpts ...DefaultPipelineOption) *Pipeline {
	p := New(pipelineOpts...)

	cfg := &DefaultPipelineConfig{Logger: slog.Default()}
	for _, opt := range configOpts {
		opt(cfg)
	}

	p.AddSteps(
		NewScrapeStep(svc, WithScrapeLogger(cfg.Logger)),
		NewAnalyzeStep(svc, WithAnalyzeLogger(cfg.Logger)),
	)
	if cfg.ScreenshotDir != "" {
		p.AddStep(NewScreenshotStep(cfg.ScreenshotDir, WithScreenshotLogger(cfg.Logger)))
	}
	if cfg.Store != nil {
		p.AddStep(NewPersistStep(cfg.Store, WithPersistLogger(cfg.Logger)))
	}

	return p
}
