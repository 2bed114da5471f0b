package browser

import (
	"context"
	"errors"
	"fmt"

	"github.com/nao1215/patternscan/internal/model"
)

// Sentinel errors for browser operations.
var (
	// ErrNavigationTimeout indicates the page did not reach DOMContentLoaded
	// within the navigation timeout.
	ErrNavigationTimeout = errors.New("navigation timeout")

	// ErrSessionClosed indicates Acquire was called after Shutdown.
	ErrSessionClosed = errors.New("browser session is closed")

	// ErrLaunch indicates the browser process could not be started.
	ErrLaunch = errors.New("failed to launch browser")

	// ErrEmptyURL indicates Fetch was called without a URL.
	ErrEmptyURL = errors.New("url is required")

	// ErrDestinationRefused indicates the destination guard refused a
	// document the page navigated to.
	ErrDestinationRefused = errors.New("destination refused")
)

// NetworkError is a DNS or connection failure reported by the browser.
// Message is the browser's own text (for example
// "net::ERR_NAME_NOT_RESOLVED") so callers can present a specific message.
type NetworkError struct {
	URL     string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *NetworkError) Error() string {
	return e.Message
}

// Unwrap returns the underlying error.
func (e *NetworkError) Unwrap() error {
	return e.Err
}

// StatusError is a non-2xx HTTP response for the main document.
type StatusError struct {
	URL        string
	StatusCode int
	StatusText string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.StatusText == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.StatusText)
}

// Kind classifies err for ScrapeResult and HTTP error mapping.
func Kind(err error) model.ErrorKind {
	var netErr *NetworkError
	var statusErr *StatusError
	switch {
	case err == nil:
		return model.ErrorKindNone
	case errors.Is(err, ErrNavigationTimeout), errors.Is(err, context.DeadlineExceeded):
		return model.ErrorKindTimeout
	case errors.As(err, &statusErr):
		return model.ErrorKindHTTPStatus
	case errors.As(err, &netErr):
		return model.ErrorKindNetwork
	case errors.Is(err, ErrLaunch), errors.Is(err, ErrSessionClosed):
		return model.ErrorKindBrowser
	default:
		return model.ErrorKindInternal
	}
}
