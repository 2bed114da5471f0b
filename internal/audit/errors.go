package audit

import (
	"errors"

	"github.com/nao1215/patternscan/internal/model"
)

// ErrNoFetcher is returned by Scrape when the Service was built for
// analysis only.
var ErrNoFetcher = errors.New("no page fetcher configured")

// ScrapeError carries a failed ScrapeResult through error-returning code
// such as pipeline steps.
type ScrapeError struct {
	Kind    model.ErrorKind
	Message string
}

// Error implements the error interface.
func (e *ScrapeError) Error() string {
	return e.Message
}

// ErrorFromResult converts a failed ScrapeResult to a *ScrapeError.
// It returns nil for a successful result.
func ErrorFromResult(r model.ScrapeResult) error {
	if r.Success {
		return nil
	}
	kind := r.ErrorKind
	if kind == model.ErrorKindNone {
		kind = model.ErrorKindInternal
	}
	return &ScrapeError{Kind: kind, Message: r.Error}
}

// KindOf extracts the ErrorKind from err. Errors that are not a
// *ScrapeError are internal.
func KindOf(err error) model.ErrorKind {
	if err == nil {
		return model.ErrorKindNone
	}
	var se *ScrapeError
	if errors.As(err, &se) {
		return se.Kind
	}
	return model.ErrorKindInternal
}
