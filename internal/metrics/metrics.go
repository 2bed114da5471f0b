package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nao1215/patternscan/internal/model"
)

// Outcome labels for the audits counter besides the scrape error kinds.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Metrics bundles Prometheus collectors for patternscan.
type Metrics struct {
	Registry         *prometheus.Registry
	AuditsTotal      *prometheus.CounterVec
	ScrapeDuration   prometheus.Histogram
	AnalysisDuration prometheus.Histogram
	FindingsTotal    *prometheus.CounterVec
	Score            prometheus.Histogram
	RateLimitedTotal prometheus.Counter
	CacheHitsTotal   prometheus.Counter
}

// New constructs and registers all metrics on a dedicated registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	audits := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "patternscan_audits_total",
			Help: "Total page scrapes by outcome (success or error kind).",
		},
		[]string{"outcome"},
	)
	scrapeDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "patternscan_scrape_duration_seconds",
			Help:    "Time spent loading and extracting a page.",
			Buckets: []float64{0.5, 1, 2, 3, 5, 8, 12, 16, 30},
		},
	)
	analysisDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "patternscan_analysis_duration_seconds",
			Help:    "Time spent running detectors and scoring a snapshot.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 10),
		},
	)
	findings := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "patternscan_findings_total",
			Help: "Total findings emitted by pattern type.",
		},
		[]string{"pattern_type"},
	)
	score := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "patternscan_score",
			Help:    "Distribution of overall ethics scores.",
			Buckets: prometheus.LinearBuckets(10, 10, 10),
		},
	)
	rateLimited := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "patternscan_rate_limited_total",
			Help: "Total API requests rejected by the per-client rate limiter.",
		},
	)
	cacheHits := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "patternscan_cache_hits_total",
			Help: "Total API requests answered from the result cache.",
		},
	)

	registry.MustRegister(audits, scrapeDuration, analysisDuration, findings, score, rateLimited, cacheHits)

	return &Metrics{
		Registry:         registry,
		AuditsTotal:      audits,
		ScrapeDuration:   scrapeDuration,
		AnalysisDuration: analysisDuration,
		FindingsTotal:    findings,
		Score:            score,
		RateLimitedTotal: rateLimited,
		CacheHitsTotal:   cacheHits,
	}
}

// ObserveScrape records one scrape. An empty kind counts as success.
func (m *Metrics) ObserveScrape(d time.Duration, kind model.ErrorKind) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if kind != model.ErrorKindNone {
		outcome = string(kind)
	}
	m.AuditsTotal.WithLabelValues(outcome).Inc()
	m.ScrapeDuration.Observe(d.Seconds())
}

// ObserveAnalysis records the duration, findings and score of one analysis.
func (m *Metrics) ObserveAnalysis(d time.Duration, result model.AnalysisResult) {
	if m == nil {
		return
	}
	m.AnalysisDuration.Observe(d.Seconds())
	m.Score.Observe(float64(result.OverallScore.TotalScore))
	for _, f := range result.PatternsDetected {
		m.FindingsTotal.WithLabelValues(string(f.PatternType)).Inc()
	}
}

// IncRateLimited increments the rate-limited counter.
func (m *Metrics) IncRateLimited() {
	if m == nil {
		return
	}
	m.RateLimitedTotal.Inc()
}

// IncCacheHit increments the cache hit counter.
func (m *Metrics) IncCacheHit() {
	if m == nil {
		return
	}
	m.CacheHitsTotal.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
// A nil Metrics serves 404 so the route can stay mounted.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
