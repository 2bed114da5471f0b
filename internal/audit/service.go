package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/patternscan/internal/browser"
	"github.com/nao1215/patternscan/internal/detector"
	"github.com/nao1215/patternscan/internal/extract"
	"github.com/nao1215/patternscan/internal/metrics"
	"github.com/nao1215/patternscan/internal/model"
	"github.com/nao1215/patternscan/internal/score"
)

// PageFetcher loads a URL and returns the rendered page artifacts.
// *browser.Fetcher and *SiteFetcher implement it.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*model.RawPage, error)
}

// Service performs scrapes and analyses.
// It is safe for concurrent use as long as the fetcher is.
type Service struct {
	fetcher   PageFetcher
	extractor *extract.Extractor
	registry  *detector.Registry
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithRegistry replaces the built-in detector registry.
func WithRegistry(r *detector.Registry) Option {
	return func(s *Service) {
		s.registry = r
	}
}

// WithMetrics records scrape and analysis observations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService creates a Service that loads pages with fetcher.
// A nil fetcher is allowed for analysis-only use; Scrape then fails.
func NewService(fetcher PageFetcher, opts ...Option) *Service {
	s := &Service{
		fetcher: fetcher,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.extractor == nil {
		s.extractor = extract.New(extract.WithLogger(s.logger))
	}
	if s.registry == nil {
		s.registry = detector.NewRegistry(detector.WithLogger(s.logger))
	}
	return s
}

// Scrape loads target and extracts a PageSnapshot from it.
// Failures are returned as a typed ScrapeResult rather than an error so
// that the caller can map the ErrorKind to a response.
func (s *Service) Scrape(ctx context.Context, target string) model.ScrapeResult {
	start := time.Now()

	raw, err := s.fetch(ctx, target)
	if err != nil {
		elapsed := time.Since(start)
		kind := browser.Kind(err)
		s.metrics.ObserveScrape(elapsed, kind)
		s.logger.Warn("scrape failed",
			"url", target,
			"kind", kind,
			"error", err,
		)
		return model.ScrapeResult{
			Success:     false,
			Error:       err.Error(),
			ErrorKind:   kind,
			Performance: model.Performance{ScrapingTimeMs: elapsed.Milliseconds()},
		}
	}

	snapshot := s.extractor.Extract(*raw)
	elapsed := time.Since(start)
	s.metrics.ObserveScrape(elapsed, model.ErrorKindNone)
	s.logger.Debug("scrape complete",
		"url", target,
		"duration_ms", elapsed.Milliseconds(),
		"forms", len(snapshot.Forms),
		"buttons", len(snapshot.Buttons),
		"links", len(snapshot.Links),
	)

	return model.ScrapeResult{
		Success:     true,
		Data:        snapshot,
		Performance: model.Performance{ScrapingTimeMs: elapsed.Milliseconds()},
	}
}

func (s *Service) fetch(ctx context.Context, target string) (*model.RawPage, error) {
	if s.fetcher == nil {
		return nil, ErrNoFetcher
	}
	if target == "" {
		return nil, browser.ErrEmptyURL
	}
	return s.fetcher.Fetch(ctx, target)
}

// Analyze runs every detector over snapshot and scores the findings.
// The result is deterministic for a given snapshot apart from
// Performance.AnalysisTimeMs. A nil snapshot yields no findings.
func (s *Service) Analyze(snapshot *model.PageSnapshot) model.AnalysisResult {
	start := time.Now()

	findings := s.registry.Detect(snapshot)
	overall := score.Score(findings)
	result := model.AnalysisResult{
		PatternsDetected: findings,
		OverallScore:     overall,
		Summary:          score.Summarize(overall, findings),
	}

	elapsed := time.Since(start)
	result.Performance.AnalysisTimeMs = elapsed.Milliseconds()
	s.metrics.ObserveAnalysis(elapsed, result)
	return result
}

// Audit scrapes target and analyzes the snapshot. The returned error is a
// *ScrapeError when the scrape fails; the analysis carries both timings.
func (s *Service) Audit(ctx context.Context, target string) (*model.PageSnapshot, model.AnalysisResult, error) {
	scraped := s.Scrape(ctx, target)
	if !scraped.Success {
		return nil, model.AnalysisResult{}, ErrorFromResult(scraped)
	}
	result := s.Analyze(scraped.Data)
	result.Performance.ScrapingTimeMs = scraped.Performance.ScrapingTimeMs
	return scraped.Data, result, nil
}
