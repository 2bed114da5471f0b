// Package netguard keeps outbound connections away from loopback, private
// and other internal addresses.
package netguard

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"syscall"
	"time"
)

// ErrPrivateAddress is returned when a host is or resolves to a loopback,
// private, link-local or otherwise internal address.
var ErrPrivateAddress = errors.New("url points to a private or local address")

// Resolver looks up the addresses of a host. *net.Resolver satisfies it.
type Resolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// ResolveError reports that a host name could not be resolved.
type ResolveError struct {
	Host string
	Err  error
}

// Error implements the error interface.
func (e *ResolveError) Error() string {
	return fmt.Sprintf("could not resolve host %s: %v", e.Host, e.Err)
}

// Unwrap returns the underlying resolver error.
func (e *ResolveError) Unwrap() error {
	return e.Err
}

// CheckHost rejects local names and internal literal addresses. When
// resolver is not nil, names are resolved and every address must be public.
func CheckHost(ctx context.Context, resolver Resolver, host string) error {
	host = strings.ToLower(strings.Trim(host, "[]"))
	if IsLocalName(host) {
		return ErrPrivateAddress
	}
	if ip := net.ParseIP(host); ip != nil {
		if IsInternalIP(ip) {
			return ErrPrivateAddress
		}
		return nil
	}
	if resolver == nil {
		return nil
	}

	addrs, err := resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return &ResolveError{Host: host, Err: err}
	}
	if len(addrs) == 0 {
		return &ResolveError{Host: host, Err: errors.New("no addresses")}
	}
	for _, addr := range addrs {
		if IsInternalIP(addr.IP) {
			return ErrPrivateAddress
		}
	}
	return nil
}

// IsLocalName reports host names that always refer to the local machine
// or network.
func IsLocalName(host string) bool {
	host = strings.TrimSuffix(strings.ToLower(host), ".")
	return host == "localhost" ||
		strings.HasSuffix(host, ".localhost") ||
		strings.HasSuffix(host, ".local") ||
		strings.HasSuffix(host, ".internal")
}

// IsInternalIP reports addresses that must never be fetched.
func IsInternalIP(ip net.IP) bool {
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() ||
		ip.IsMulticast() ||
		ip.IsUnspecified() ||
		sharedAddressSpace.Contains(ip)
}

// sharedAddressSpace is the carrier-grade NAT range (RFC 6598).
var sharedAddressSpace = &net.IPNet{
	IP:   net.IPv4(100, 64, 0, 0),
	Mask: net.CIDRMask(10, 32),
}

// Blocker reports whether a connection to addr is refused.
type Blocker func(addr netip.AddrPort) bool

// InternalAddress is the default Blocker. It refuses every address
// IsInternalIP reports.
func InternalAddress(addr netip.AddrPort) bool {
	return IsInternalIP(net.IP(addr.Addr().Unmap().AsSlice()))
}

// dialControl runs after name resolution, on the address actually being
// connected to, so a name that changes its answer after CheckHost is still
// refused.
func dialControl(blocked Blocker) func(string, string, syscall.RawConn) error {
	return func(_, address string, _ syscall.RawConn) error {
		addr, err := netip.ParseAddrPort(address)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrPrivateAddress, address)
		}
		if blocked(addr) {
			return fmt.Errorf("%w: %s", ErrPrivateAddress, addr.Addr())
		}
		return nil
	}
}

// NewClient returns an HTTP client that refuses destinations blocked
// reports at connect time. A nil blocked means InternalAddress. The client
// ignores proxy settings and returns redirects to the caller instead of
// following them, so every hop is dialed, and checked, separately.
func NewClient(timeout time.Duration, blocked Blocker) *http.Client {
	if blocked == nil {
		blocked = InternalAddress
	}
	dialer := &net.Dialer{
		Timeout: timeout,
		Control: dialControl(blocked),
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:               nil,
			DialContext:         dialer.DialContext,
			ForceAttemptHTTP2:   true,
			TLSHandshakeTimeout: timeout,
			MaxIdleConnsPerHost: 4,
		},
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}
