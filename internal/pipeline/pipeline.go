package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nao1215/patternscan/internal/model"
)

// Step is one stage of an audit. It reads what earlier stages left in the
// report and adds its own part.
//
// Design decision: Steps are an interface rather than plain functions so
// that each one can hold its collaborators (the audit service, a store, an
// output directory) and report a stable Name for logs and for
// AuditReport.PerformedSteps.
type Step interface {
	// Do runs the stage. A returned error marks the audit as failed;
	// problems that should not fail the audit are logged by the step and
	// reported as nil.
	Do(ctx context.Context, report *model.AuditReport) error

	// Name identifies the step in logs and in the report.
	Name() string
}

// Pipeline runs its steps in order over a single AuditReport.
// A Pipeline is not safe for concurrent use; BatchProcessor builds one per
// URL.
type Pipeline struct {
	steps []Step

	logger *slog.Logger

	// continueOnError keeps running later steps after a failure.
	continueOnError bool
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithContinueOnError keeps executing the remaining steps after one fails.
// The failure is still recorded on the report.
//
// Design decision: The default is to stop, because a failed scrape leaves
// nothing for analysis to look at. Continuing only makes sense for trailing
// steps that want to observe the failure.
func WithContinueOnError(continueOnError bool) Option {
	return func(p *Pipeline) {
		p.continueOnError = continueOnError
	}
}

// New returns an empty pipeline. Add steps with AddStep or AddSteps.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{steps: make([]Step, 0)}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends step; steps run in insertion order.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends several steps at once.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Execute runs every step against report.
//
// Cancellation is checked between steps only. Inside a step the browser's
// navigation timeout bounds the work, and the step closes its page itself.
// A cancelled context is recorded on the report, with ErrorKindTimeout when
// the deadline expired.
//
// The returned error is the first step failure, or nil when
// continueOnError is set; in both cases the report carries the failure.
func (p *Pipeline) Execute(ctx context.Context, report *model.AuditReport) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("audit cancelled before step",
				"step", step.Name(),
				"url", report.URL,
				"reason", err,
			)
			report.SetError(err)
			if errors.Is(err, context.DeadlineExceeded) {
				report.ErrorKind = model.ErrorKindTimeout
			}
			return err
		}

		start := time.Now()
		err := step.Do(ctx, report)
		elapsed := time.Since(start)

		if err != nil {
			p.logger.Error("step failed",
				"step", step.Name(),
				"url", report.URL,
				"elapsed", elapsed,
				"error", err,
			)
			report.SetError(err)
			if !p.continueOnError {
				return err
			}
		} else {
			p.logger.Debug("step done",
				"step", step.Name(),
				"url", report.URL,
				"elapsed", elapsed,
			)
		}

		report.AddStep(step.Name())
	}
	return nil
}

// StepCount returns the number of steps.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the step names in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}
