package config

import "errors"

// Configuration validation errors.
// These errors are returned by Config.Validate() and Config.ValidateServe()
// and provide specific information about what is wrong with the configuration.
//
// Design decision: We use package-level sentinel errors rather than
// creating new error instances in Validate(). This allows callers to use
// errors.Is() for programmatic error handling while still providing
// human-readable messages.
var (
	// ErrNoTarget is returned when no target URL or list file is specified.
	ErrNoTarget = errors.New("no target specified: provide a URL or use --list")

	// ErrInvalidTimeout is returned when the navigation timeout is not positive.
	// A timeout of zero would abort every navigation immediately.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidSettleDelay is returned when the settle delay is negative.
	// Use 0 to capture the page as soon as DOMContentLoaded fires.
	ErrInvalidSettleDelay = errors.New("invalid settle delay: must be non-negative")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified. Only one output format can be used at a time.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidRateLimit is returned when the per-client request rate or
	// burst of the API server is not positive.
	ErrInvalidRateLimit = errors.New("invalid rate limit: rate and burst must be positive")

	// ErrInvalidCacheTTL is returned when the result cache TTL is negative.
	// Use 0 to disable the cache.
	ErrInvalidCacheTTL = errors.New("invalid cache TTL: must be non-negative")

	// ErrEmptyListenAddress is returned when the API server has no address to bind.
	ErrEmptyListenAddress = errors.New("empty listen address")
)
