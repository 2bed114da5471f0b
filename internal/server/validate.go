package server

import (
	"context"
	"net/url"
	"strings"

	"github.com/nao1215/patternscan/internal/netguard"
)

// Resolver looks up the addresses of a host. *net.Resolver satisfies it.
type Resolver = netguard.Resolver

// URLValidator checks that a submitted URL is safe to hand to the browser.
//
// Design decision: The host is resolved here, before navigation, so that a
// public name pointing at an internal address is refused without the
// browser ever connecting to it. Redirects and subresources are checked
// again at connect time by the fetcher's destination guard.
type URLValidator struct {
	resolver  Resolver
	maxLength int
}

// NewURLValidator creates a validator. A nil resolver skips name
// resolution and only rejects literal internal addresses.
func NewURLValidator(resolver Resolver, maxLength int) *URLValidator {
	return &URLValidator{resolver: resolver, maxLength: maxLength}
}

// Validate parses raw and returns its normalized form.
// Errors are the sentinels in this package or a *ResolveError.
func (v *URLValidator) Validate(ctx context.Context, raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ErrURLRequired
	}
	if v.maxLength > 0 && len(raw) > v.maxLength {
		return "", ErrURLTooLong
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", ErrMalformedURL
	}
	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", ErrUnsupportedScheme
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", ErrMissingHost
	}
	if err := netguard.CheckHost(ctx, v.resolver, host); err != nil {
		return "", err
	}

	return normalizeURL(u), nil
}

// normalizeURL lowercases scheme and host, drops default ports and the
// fragment, and gives an empty path a trailing slash. The result keys the
// result cache and request coalescing.
func normalizeURL(u *url.URL) string {
	n := *u
	n.Scheme = strings.ToLower(n.Scheme)
	n.Fragment = ""
	n.RawFragment = ""

	host := strings.ToLower(n.Hostname())
	port := n.Port()
	if (n.Scheme == "http" && port == "80") || (n.Scheme == "https" && port == "443") {
		port = ""
	}
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		host += ":" + port
	}
	n.Host = host

	if n.Path == "" {
		n.Path = "/"
	}
	return n.String()
}
