// Package log provides secure logging functionality with automatic sanitization
// of sensitive information, built on top of the standard slog package.
//
// Site configurations carry session cookies and custom headers so that
// patternscan can audit pages behind a login. Those values, and tokens
// embedded in audited URLs, must never reach a log file that may be shared.
//
// # Security Features
//
// The SecureHandler automatically sanitizes sensitive information in log output:
//   - Attributes whose key names a credential (cookie, authorization, token)
//   - Values that look like credentials (JWTs, bearer tokens, API keys)
//   - Credential query parameters and passwords embedded in URLs
//
// Even in verbose mode, sensitive values are masked.
//
// # Usage
//
//	logger := log.NewLogger(os.Stderr, log.Options{Verbose: true})
//
//	logger.Info("fetching page",
//	    "cookie", "session=abc123",                  // "***REDACTED***"
//	    "url", "https://shop.example.com/?token=x1", // token value masked
//	)
//
//	slog.SetDefault(logger)
package log
