package browser

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"net/url"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/proto"

	"github.com/nao1215/patternscan/internal/netguard"
)

func allowAll(netip.AddrPort) bool { return false }

func TestIsMainDocument(t *testing.T) {
	t.Parallel()

	const main = proto.PageFrameID("main")
	resp := &proto.NetworkResponse{Status: 200}

	tests := []struct {
		name      string
		event     *proto.NetworkResponseReceived
		mainFrame proto.PageFrameID
		expected  bool
	}{
		{
			name:      "main frame document",
			event:     &proto.NetworkResponseReceived{Type: proto.NetworkResourceTypeDocument, FrameID: main, Response: resp},
			mainFrame: main,
			expected:  true,
		},
		{
			name:      "iframe document",
			event:     &proto.NetworkResponseReceived{Type: proto.NetworkResourceTypeDocument, FrameID: "ad-frame", Response: resp},
			mainFrame: main,
			expected:  false,
		},
		{
			name:      "main frame script",
			event:     &proto.NetworkResponseReceived{Type: proto.NetworkResourceTypeScript, FrameID: main, Response: resp},
			mainFrame: main,
			expected:  false,
		},
		{
			name:      "missing response",
			event:     &proto.NetworkResponseReceived{Type: proto.NetworkResourceTypeDocument, FrameID: main},
			mainFrame: main,
			expected:  false,
		},
		{
			name:      "unknown main frame",
			event:     &proto.NetworkResponseReceived{Type: proto.NetworkResourceTypeDocument, FrameID: "any", Response: resp},
			mainFrame: "",
			expected:  true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := isMainDocument(tt.event, tt.mainFrame); got != tt.expected {
				t.Errorf("isMainDocument() = %v, expected %v", got, tt.expected)
			}
		})
	}
}

func TestInterceptorGuarded(t *testing.T) {
	t.Parallel()

	guarded := &interceptor{client: netguard.NewClient(time.Second, nil)}
	unguarded := &interceptor{blockResources: true}

	tests := []struct {
		name     string
		icp      *interceptor
		raw      string
		expected bool
	}{
		{name: "http", icp: guarded, raw: "http://shop.example.com/", expected: true},
		{name: "https redirect target", icp: guarded, raw: "HTTPS://169.254.169.254/latest/meta-data", expected: true},
		{name: "data url", icp: guarded, raw: "data:text/html,hi", expected: false},
		{name: "blob url", icp: guarded, raw: "blob:https://shop.example.com/1234", expected: false},
		{name: "no guard client", icp: unguarded, raw: "http://127.0.0.1/", expected: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			u, err := url.Parse(tt.raw)
			if err != nil {
				t.Fatal(err)
			}
			if got := tt.icp.guarded(u); got != tt.expected {
				t.Errorf("guarded(%s) = %v, expected %v", tt.raw, got, tt.expected)
			}
		})
	}

	if guarded.guarded(nil) {
		t.Error("expected a nil URL not to be guarded")
	}
}

func TestFailureReason(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected proto.NetworkErrorReason
	}{
		{
			name:     "refused destination",
			err:      &url.Error{Op: "Get", URL: "http://127.0.0.1/", Err: fmt.Errorf("dial: %w", netguard.ErrPrivateAddress)},
			expected: proto.NetworkErrorReasonBlockedByClient,
		},
		{
			name:     "connection failure",
			err:      errors.New("connection reset by peer"),
			expected: proto.NetworkErrorReasonConnectionFailed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := failureReason(tt.err); got != tt.expected {
				t.Errorf("failureReason() = %s, expected %s", got, tt.expected)
			}
		})
	}
}

func TestInterceptorKeepsFirstRefusal(t *testing.T) {
	t.Parallel()

	icp := &interceptor{}
	if got := icp.refusedDocument(); got != "" {
		t.Fatalf("expected no refusal, got %q", got)
	}
	icp.refuse("http://127.0.0.1/")
	icp.refuse("http://10.0.0.1/")
	if got := icp.refusedDocument(); got != "http://127.0.0.1/" {
		t.Errorf("got %q, expected the first refused URL", got)
	}
}

func TestClientWithCookies(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.Header.Get("Cookie")))
	}))
	t.Cleanup(srv.Close)

	base := netguard.NewClient(5*time.Second, allowAll)

	tests := []struct {
		name     string
		cookie   string
		expected string
	}{
		{name: "seeds the jar for the target", cookie: "session=abc", expected: "session=abc"},
		{name: "several cookies", cookie: "a=1; b=2", expected: "a=1; b=2"},
		{name: "invalid cookie is skipped", cookie: "no-equals-sign", expected: ""},
		{name: "no cookie", cookie: "", expected: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c, err := clientWithCookies(base, srv.URL+"/", tt.cookie)
			if err != nil {
				t.Fatal(err)
			}
			resp, err := c.Get(srv.URL + "/")
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			body, err := io.ReadAll(resp.Body)
			if err != nil {
				t.Fatal(err)
			}
			if got := string(body); got != tt.expected {
				t.Errorf("got cookie header %q, expected %q", got, tt.expected)
			}
			if base.Jar != nil {
				t.Error("expected the base client to stay without a jar")
			}
		})
	}
}
