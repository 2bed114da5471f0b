package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/patternscan/internal/audit"
	"github.com/nao1215/patternscan/internal/metrics"
	"github.com/nao1215/patternscan/internal/model"
)

// fakeResolver resolves names from a fixed table.
type fakeResolver struct {
	addrs map[string][]string
}

func (r fakeResolver) LookupIPAddr(_ context.Context, host string) ([]net.IPAddr, error) {
	ips, ok := r.addrs[host]
	if !ok {
		return nil, &net.DNSError{Err: "no such host", Name: host, IsNotFound: true}
	}
	out := make([]net.IPAddr, 0, len(ips))
	for _, ip := range ips {
		out = append(out, net.IPAddr{IP: net.ParseIP(ip)})
	}
	return out, nil
}

func testResolver() fakeResolver {
	return fakeResolver{addrs: map[string][]string{
		"shop.example.com":  {"93.184.216.34"},
		"intranet.example":  {"10.1.2.3"},
		"mixed.example.com": {"93.184.216.34", "192.168.0.10"},
	}}
}

// fakeAuditor returns a canned result or error and counts calls.
type fakeAuditor struct {
	mu     sync.Mutex
	calls  int
	err    error
	result model.AnalysisResult
}

func (a *fakeAuditor) Audit(_ context.Context, target string) (*model.PageSnapshot, model.AnalysisResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls++
	if a.err != nil {
		return nil, model.AnalysisResult{}, a.err
	}
	snapshot := &model.PageSnapshot{
		URL:     target,
		Title:   "Shop",
		Buttons: []model.Button{{Text: "Buy"}, {Text: "Accept all"}},
	}
	return snapshot, a.result, nil
}

func (a *fakeAuditor) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(auditor Auditor, opts ...Option) *Server {
	base := []Option{
		WithLogger(quietLogger()),
		WithResolver(testResolver()),
		WithRateLimit(0, 0),
	}
	return New(auditor, append(base, opts...)...)
}

func postAnalyze(t *testing.T, h http.Handler, body string) (*httptest.ResponseRecorder, AnalyzeResponse) {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "203.0.113.7:51234"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp AnalyzeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response body %q: %v", rec.Body.String(), err)
	}
	return rec, resp
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&fakeAuditor{}, WithVersion("1.0.0"))
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if resp.Status != "ok" || resp.Version != "1.0.0" {
		t.Errorf("unexpected health response %+v", resp)
	}
}

func TestAnalyze_Success(t *testing.T) {
	t.Parallel()

	auditor := &fakeAuditor{result: model.AnalysisResult{
		OverallScore: model.OverallScore{TotalScore: 100},
		Summary:      "No patterns found.",
	}}
	srv := newTestServer(auditor)

	rec, resp := postAnalyze(t, srv, `{"url":"HTTPS://Shop.Example.com:443#top"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !resp.Success {
		t.Fatal("expected success")
	}
	if resp.Data == nil || resp.Data.OverallScore.TotalScore != 100 {
		t.Errorf("expected analysis data with score 100, got %+v", resp.Data)
	}
	if resp.Snapshot == nil {
		t.Fatal("expected snapshot summary")
	}
	if resp.Snapshot.URL != "https://shop.example.com/" {
		t.Errorf("expected normalized URL, got %q", resp.Snapshot.URL)
	}
	if resp.Snapshot.Buttons != 2 {
		t.Errorf("expected 2 buttons, got %d", resp.Snapshot.Buttons)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("unexpected content type %q", ct)
	}
}

func TestAnalyze_RejectsBadRequests(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"url":`},
		{"missing url", `{}`},
		{"ftp scheme", `{"url":"ftp://shop.example.com/file"}`},
		{"javascript scheme", `{"url":"javascript:alert(1)"}`},
		{"no host", `{"url":"https:///path"}`},
		{"localhost", `{"url":"http://localhost:3000/"}`},
		{"loopback literal", `{"url":"http://127.0.0.1/"}`},
		{"ipv6 loopback", `{"url":"http://[::1]/"}`},
		{"private literal", `{"url":"http://10.0.0.5/"}`},
		{"metadata endpoint", `{"url":"http://169.254.169.254/latest/meta-data"}`},
		{"resolves to private", `{"url":"https://intranet.example/"}`},
		{"any resolved address private", `{"url":"https://mixed.example.com/"}`},
		{"too long", `{"url":"https://shop.example.com/` + strings.Repeat("a", 3000) + `"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			auditor := &fakeAuditor{}
			srv := newTestServer(auditor)

			rec, resp := postAnalyze(t, srv, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
			if resp.Success || resp.Error == "" {
				t.Errorf("expected failure with message, got %+v", resp)
			}
			if auditor.callCount() != 0 {
				t.Error("expected no audit for a rejected request")
			}
		})
	}
}

func TestAnalyze_UnresolvableHost(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&fakeAuditor{})
	rec, resp := postAnalyze(t, srv, `{"url":"https://no-such-host.example/"}`)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}
	if resp.ErrorKind != model.ErrorKindNetwork {
		t.Errorf("expected network error kind, got %q", resp.ErrorKind)
	}
	if !strings.Contains(resp.Error, "resolve") {
		t.Errorf("expected a DNS specific message, got %q", resp.Error)
	}
}

func TestAnalyze_ErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   model.ErrorKind
		wantMsg    string
	}{
		{
			name:       "timeout",
			err:        &audit.ScrapeError{Kind: model.ErrorKindTimeout, Message: "navigation timed out"},
			wantStatus: http.StatusGatewayTimeout,
			wantKind:   model.ErrorKindTimeout,
			wantMsg:    "too long",
		},
		{
			name:       "network",
			err:        &audit.ScrapeError{Kind: model.ErrorKindNetwork, Message: "net::ERR_CONNECTION_REFUSED"},
			wantStatus: http.StatusBadGateway,
			wantKind:   model.ErrorKindNetwork,
			wantMsg:    "DNS or connection",
		},
		{
			name:       "http status",
			err:        &audit.ScrapeError{Kind: model.ErrorKindHTTPStatus, Message: "HTTP 404: Not Found"},
			wantStatus: http.StatusBadGateway,
			wantKind:   model.ErrorKindHTTPStatus,
			wantMsg:    "404",
		},
		{
			name:       "browser failure is generic",
			err:        &audit.ScrapeError{Kind: model.ErrorKindBrowser, Message: "chromium crashed at 0xdeadbeef"},
			wantStatus: http.StatusInternalServerError,
			wantKind:   model.ErrorKindInternal,
			wantMsg:    "analysis failed",
		},
		{
			name:       "unexpected error is generic",
			err:        errors.New("secret internal detail"),
			wantStatus: http.StatusInternalServerError,
			wantKind:   model.ErrorKindInternal,
			wantMsg:    "analysis failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			srv := newTestServer(&fakeAuditor{err: tt.err})
			rec, resp := postAnalyze(t, srv, `{"url":"https://shop.example.com/"}`)

			if rec.Code != tt.wantStatus {
				t.Errorf("expected %d, got %d", tt.wantStatus, rec.Code)
			}
			if resp.ErrorKind != tt.wantKind {
				t.Errorf("expected kind %q, got %q", tt.wantKind, resp.ErrorKind)
			}
			if !strings.Contains(resp.Error, tt.wantMsg) {
				t.Errorf("expected message containing %q, got %q", tt.wantMsg, resp.Error)
			}
			if tt.wantMsg == "analysis failed" && resp.Error != "analysis failed" {
				t.Errorf("expected no internal detail, got %q", resp.Error)
			}
		})
	}
}

func TestAnalyze_RateLimit(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	srv := newTestServer(&fakeAuditor{}, WithRateLimit(1, 2), WithMetrics(m))

	for i := range 2 {
		rec, _ := postAnalyze(t, srv, `{"url":"https://shop.example.com/"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, rec.Code)
		}
	}

	rec, resp := postAnalyze(t, srv, `{"url":"https://shop.example.com/"}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
	if resp.RetryAfterMs <= 0 {
		t.Errorf("expected positive retry_after_ms, got %d", resp.RetryAfterMs)
	}

	metricsRec := httptest.NewRecorder()
	srv.ServeHTTP(metricsRec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(metricsRec.Body.String(), "patternscan_rate_limited_total 1") {
		t.Errorf("expected rate limited counter in metrics output")
	}
}

func TestAnalyze_Cache(t *testing.T) {
	t.Parallel()

	auditor := &fakeAuditor{result: model.AnalysisResult{OverallScore: model.OverallScore{TotalScore: 90}}}
	srv := newTestServer(auditor, WithCache(8, time.Minute))

	_, first := postAnalyze(t, srv, `{"url":"https://shop.example.com"}`)
	_, second := postAnalyze(t, srv, `{"url":"https://SHOP.example.com/#reviews"}`)

	if auditor.callCount() != 1 {
		t.Errorf("expected one audit, got %d", auditor.callCount())
	}
	if first.Cached {
		t.Error("expected first response to be fresh")
	}
	if !second.Cached {
		t.Error("expected second response to come from the cache")
	}
	if second.Data == nil || second.Data.OverallScore.TotalScore != 90 {
		t.Errorf("expected cached analysis, got %+v", second.Data)
	}
}

func TestAnalyze_FailuresAreNotCached(t *testing.T) {
	t.Parallel()

	auditor := &fakeAuditor{err: &audit.ScrapeError{Kind: model.ErrorKindTimeout, Message: "timeout"}}
	srv := newTestServer(auditor, WithCache(8, time.Minute))

	postAnalyze(t, srv, `{"url":"https://shop.example.com/"}`)
	postAnalyze(t, srv, `{"url":"https://shop.example.com/"}`)

	if auditor.callCount() != 2 {
		t.Errorf("expected failed audits to be retried, got %d calls", auditor.callCount())
	}
}

func TestMetrics_DisabledIsNotFound(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&fakeAuditor{})
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 without metrics, got %d", rec.Code)
	}
}

func TestListenAndServe_StopsOnCancel(t *testing.T) {
	t.Parallel()

	srv := newTestServer(&fakeAuditor{})
	ctx, cancel := context.WithCancel(t.Context())

	done := make(chan error, 1)
	go func() {
		done <- srv.ListenAndServe(ctx, "127.0.0.1:0")
	}()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("expected clean shutdown, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
