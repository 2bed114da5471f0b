package netguard

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"net/url"
	"testing"
	"time"
)

type staticResolver map[string][]string

func (r staticResolver) LookupIPAddr(_ context.Context, host string) ([]net.IPAddr, error) {
	ips, ok := r[host]
	if !ok {
		return nil, errors.New("no such host")
	}
	addrs := make([]net.IPAddr, 0, len(ips))
	for _, ip := range ips {
		addrs = append(addrs, net.IPAddr{IP: net.ParseIP(ip)})
	}
	return addrs, nil
}

func TestIsInternalIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ip       string
		expected bool
	}{
		{"127.0.0.1", true},
		{"10.1.2.3", true},
		{"172.16.0.1", true},
		{"192.168.1.1", true},
		{"169.254.169.254", true},
		{"100.64.1.1", true},
		{"0.0.0.0", true},
		{"224.0.0.1", true},
		{"::1", true},
		{"fe80::1", true},
		{"fd00::1", true},
		{"::ffff:127.0.0.1", true},
		{"93.184.216.34", false},
		{"100.128.0.1", false},
		{"2606:2800:220:1:248:1893:25c8:1946", false},
	}
	for _, tt := range tests {
		t.Run(tt.ip, func(t *testing.T) {
			t.Parallel()
			if got := IsInternalIP(net.ParseIP(tt.ip)); got != tt.expected {
				t.Errorf("IsInternalIP(%s) = %v, expected %v", tt.ip, got, tt.expected)
			}
		})
	}
}

func TestIsLocalName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		host     string
		expected bool
	}{
		{"localhost", true},
		{"LOCALHOST.", true},
		{"app.localhost", true},
		{"printer.local", true},
		{"metadata.google.internal", true},
		{"shop.example.com", false},
		{"localhost.example.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			t.Parallel()
			if got := IsLocalName(tt.host); got != tt.expected {
				t.Errorf("IsLocalName(%q) = %v, expected %v", tt.host, got, tt.expected)
			}
		})
	}
}

func TestCheckHost(t *testing.T) {
	t.Parallel()

	resolver := staticResolver{
		"shop.example.com":   {"93.184.216.34"},
		"intranet.example":   {"10.0.0.8"},
		"mixed.example":      {"93.184.216.34", "127.0.0.1"},
		"rebinding.example":  {"169.254.169.254"},
		"empty.example":      {},
		"v6-public.example":  {"2606:2800:220:1:248:1893:25c8:1946"},
		"v6-private.example": {"fd12::1"},
	}

	tests := []struct {
		name       string
		resolver   Resolver
		host       string
		wantErr    error
		wantLookup bool
	}{
		{name: "public name", resolver: resolver, host: "shop.example.com"},
		{name: "public ipv6 name", resolver: resolver, host: "v6-public.example"},
		{name: "private name", resolver: resolver, host: "intranet.example", wantErr: ErrPrivateAddress},
		{name: "any private address", resolver: resolver, host: "mixed.example", wantErr: ErrPrivateAddress},
		{name: "metadata address", resolver: resolver, host: "rebinding.example", wantErr: ErrPrivateAddress},
		{name: "private ipv6 name", resolver: resolver, host: "v6-private.example", wantErr: ErrPrivateAddress},
		{name: "bracketed loopback literal", resolver: resolver, host: "[::1]", wantErr: ErrPrivateAddress},
		{name: "local name", resolver: resolver, host: "localhost", wantErr: ErrPrivateAddress},
		{name: "unknown name", resolver: resolver, host: "unknown.example", wantLookup: true},
		{name: "no addresses", resolver: resolver, host: "empty.example", wantLookup: true},
		{name: "names pass without resolver", resolver: nil, host: "intranet.example"},
		{name: "literals checked without resolver", resolver: nil, host: "192.168.0.1", wantErr: ErrPrivateAddress},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := CheckHost(t.Context(), tt.resolver, tt.host)
			if tt.wantLookup {
				var resolveErr *ResolveError
				if !errors.As(err, &resolveErr) {
					t.Fatalf("expected *ResolveError, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CheckHost(%q) = %v, expected %v", tt.host, err, tt.wantErr)
			}
		})
	}
}

func TestInternalAddress(t *testing.T) {
	t.Parallel()

	tests := []struct {
		addr     string
		expected bool
	}{
		{"127.0.0.1:80", true},
		{"[::1]:443", true},
		{"[::ffff:10.0.0.1]:80", true},
		{"169.254.169.254:80", true},
		{"93.184.216.34:443", false},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			t.Parallel()
			if got := InternalAddress(netip.MustParseAddrPort(tt.addr)); got != tt.expected {
				t.Errorf("InternalAddress(%s) = %v, expected %v", tt.addr, got, tt.expected)
			}
		})
	}
}

// portBlocker refuses connections to the given server only, so tests can
// stand in loopback servers for public and internal hosts.
func portBlocker(t *testing.T, srv *httptest.Server) Blocker {
	t.Helper()

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatal(err)
	}
	internal := netip.MustParseAddrPort(u.Host)
	return func(addr netip.AddrPort) bool {
		return addr.Port() == internal.Port()
	}
}

func TestNewClient(t *testing.T) {
	t.Parallel()

	internal := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("secret"))
	}))
	t.Cleanup(internal.Close)

	public := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/redirect" {
			http.Redirect(w, r, internal.URL+"/", http.StatusFound)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	t.Cleanup(public.Close)

	client := NewClient(5*time.Second, portBlocker(t, internal))

	t.Run("public destination is fetched", func(t *testing.T) {
		t.Parallel()
		resp, err := client.Get(public.URL + "/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("got status %d, expected 200", resp.StatusCode)
		}
	})

	t.Run("internal destination is refused", func(t *testing.T) {
		t.Parallel()
		resp, err := client.Get(internal.URL + "/")
		if err == nil {
			_ = resp.Body.Close()
			t.Fatal("expected the connection to be refused")
		}
		if !errors.Is(err, ErrPrivateAddress) {
			t.Errorf("expected ErrPrivateAddress, got %v", err)
		}
	})

	t.Run("redirect to internal destination is refused at the next hop", func(t *testing.T) {
		t.Parallel()
		resp, err := client.Get(public.URL + "/redirect")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusFound {
			t.Fatalf("got status %d, expected the redirect to be returned", resp.StatusCode)
		}

		next, err := resp.Location()
		if err != nil {
			t.Fatal(err)
		}
		resp, err = client.Get(next.String())
		if err == nil {
			_ = resp.Body.Close()
			t.Fatal("expected the redirect target to be refused")
		}
		if !errors.Is(err, ErrPrivateAddress) {
			t.Errorf("expected ErrPrivateAddress, got %v", err)
		}
	})

	t.Run("default blocker refuses loopback", func(t *testing.T) {
		t.Parallel()
		resp, err := NewClient(5*time.Second, nil).Get(public.URL + "/")
		if err == nil {
			_ = resp.Body.Close()
			t.Fatal("expected loopback to be refused")
		}
		if !errors.Is(err, ErrPrivateAddress) {
			t.Errorf("expected ErrPrivateAddress, got %v", err)
		}
	})
}
