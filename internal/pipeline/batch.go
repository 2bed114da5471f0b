package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/patternscan/internal/model"
)

// DefaultConcurrency is the number of concurrent audits when
// WithConcurrency is not given.
const DefaultConcurrency = 4

// BatchProcessor handles concurrent auditing of multiple URLs.
// It uses errgroup to manage goroutines and respect concurrency limits.
//
// Design decision: We use a separate BatchProcessor rather than adding batch
// functionality to Pipeline because:
// 1. It keeps the Pipeline focused on single-audit execution
// 2. It allows different batch strategies without touching step code
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each audit.
	// We use a factory to ensure each audit gets a fresh pipeline instance.
	pipelineFactory func() *Pipeline

	// concurrency is the maximum number of concurrent audits. Every audit
	// holds one browser tab, so this bounds open pages too.
	concurrency int

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent audits.
// Non-positive values keep the default.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
//
// The pipelineFactory function is called for each audit to create a fresh
// pipeline instance. This ensures that pipeline state doesn't leak between
// audits.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     DefaultConcurrency,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch audits multiple URLs concurrently.
// It respects the configured concurrency limit and context cancellation.
//
// Design decision: We use errgroup.SetLimit rather than a worker pool
// because it's simpler and errgroup handles the concurrency correctly.
//
// The returned slice has one report per URL in input order, even for audits
// that failed or never started because the context was cancelled. The error
// is non-nil only when the batch was cancelled.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, urls []string) ([]*model.AuditReport, error) {
	results := make([]*model.AuditReport, len(urls))
	err := bp.ProcessBatchWithCallback(ctx, urls, func(report *model.AuditReport, index int) {
		// Each goroutine writes a distinct index, so no lock is needed.
		results[index] = report
	})

	for i, report := range results {
		if report == nil {
			report = model.NewAuditReport(urls[i])
			if err != nil {
				report.SetError(err)
			}
			results[i] = report
		}
	}

	return results, err
}

// ProcessBatchWithCallback audits multiple URLs and calls a callback
// for each completed audit. This is useful for streaming results.
//
// The callback receives the report and the index of the URL in the
// original slice. The callback is called from the goroutine that completed
// the audit, so it should be thread-safe if it accesses shared state.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	urls []string,
	callback func(report *model.AuditReport, index int),
) error {
	bp.logger.Info("starting batch audit",
		"total_urls", len(urls),
		"concurrency", bp.concurrency,
	)
	startTime := time.Now()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, target := range urls {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			bp.logger.Info("auditing url",
				"url", target,
				"index", i+1,
				"total", len(urls),
			)

			report := model.NewAuditReport(target)
			if err := bp.pipelineFactory().Execute(ctx, report); err != nil {
				// The error is recorded in the report; one failed site must
				// not cancel the others.
				bp.logger.Warn("audit failed",
					"url", target,
					"error", err,
				)
			}

			callback(report, i)
			return nil
		})
	}

	err := g.Wait()
	bp.logger.Info("batch audit complete",
		"total_urls", len(urls),
		"elapsed", time.Since(startTime),
	)
	return err
}
