package server

import (
	"errors"

	"github.com/nao1215/patternscan/internal/netguard"
)

var (
	// ErrURLRequired is returned when the request carries no URL.
	ErrURLRequired = errors.New("url is required")

	// ErrURLTooLong is returned when the URL exceeds the length cap.
	ErrURLTooLong = errors.New("url is too long")

	// ErrMalformedURL is returned when the URL cannot be parsed.
	ErrMalformedURL = errors.New("url is malformed")

	// ErrUnsupportedScheme is returned for schemes other than http and https.
	ErrUnsupportedScheme = errors.New("only http and https URLs are supported")

	// ErrMissingHost is returned when the URL has no host.
	ErrMissingHost = errors.New("url has no host")

	// ErrPrivateAddress is returned when the host is or resolves to a
	// loopback, private, link-local or otherwise internal address.
	ErrPrivateAddress = netguard.ErrPrivateAddress
)

// ResolveError reports that the host name could not be resolved.
// It is mapped to 502 like any other DNS failure, not to 400.
type ResolveError = netguard.ResolveError
