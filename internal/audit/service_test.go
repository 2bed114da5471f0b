package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nao1215/patternscan/internal/browser"
	"github.com/nao1215/patternscan/internal/detector"
	"github.com/nao1215/patternscan/internal/metrics"
	"github.com/nao1215/patternscan/internal/model"
)

const cookieBannerPage = `<!DOCTYPE html>
<html><head><title>Shop</title></head>
<body>
  <div id="cookie-banner">We use cookies to improve your experience.
    <button>Accept all</button>
  </div>
  <p>Welcome to the shop.</p>
</body></html>`

// fakeFetcher returns a fixed page or error.
type fakeFetcher struct {
	page  *model.RawPage
	err   error
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, url string) (*model.RawPage, error) {
	f.calls = append(f.calls, url)
	if f.err != nil {
		return nil, f.err
	}
	p := *f.page
	p.URL = url
	return &p, nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestServiceScrape(t *testing.T) {
	t.Parallel()

	t.Run("success returns a snapshot", func(t *testing.T) {
		t.Parallel()

		f := &fakeFetcher{page: &model.RawPage{Title: "Shop", HTML: cookieBannerPage, LoadTimeMs: 120}}
		svc := NewService(f, WithLogger(quietLogger()))

		res := svc.Scrape(context.Background(), "https://shop.example/")
		if !res.Success {
			t.Fatalf("expected success, got error %q", res.Error)
		}
		if res.Data == nil {
			t.Fatal("expected snapshot data")
		}
		if res.Data.Title != "Shop" {
			t.Errorf("expected title Shop, got %q", res.Data.Title)
		}
		if len(res.Data.CookieNotices) != 1 {
			t.Errorf("expected 1 cookie notice, got %d", len(res.Data.CookieNotices))
		}
		if res.ErrorKind != model.ErrorKindNone {
			t.Errorf("expected no error kind, got %q", res.ErrorKind)
		}
	})

	tests := []struct {
		name     string
		err      error
		wantKind model.ErrorKind
	}{
		{
			name:     "timeout",
			err:      browser.ErrNavigationTimeout,
			wantKind: model.ErrorKindTimeout,
		},
		{
			name:     "network",
			err:      &browser.NetworkError{URL: "https://x.invalid", Message: "net::ERR_NAME_NOT_RESOLVED"},
			wantKind: model.ErrorKindNetwork,
		},
		{
			name:     "http status",
			err:      &browser.StatusError{URL: "https://shop.example", StatusCode: 404, StatusText: "Not Found"},
			wantKind: model.ErrorKindHTTPStatus,
		},
		{
			name:     "browser launch",
			err:      browser.ErrLaunch,
			wantKind: model.ErrorKindBrowser,
		},
		{
			name:     "anything else",
			err:      errors.New("boom"),
			wantKind: model.ErrorKindInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			svc := NewService(&fakeFetcher{err: tt.err}, WithLogger(quietLogger()))
			res := svc.Scrape(context.Background(), "https://shop.example/")
			if res.Success {
				t.Fatal("expected failure")
			}
			if res.Data != nil {
				t.Error("expected no data on failure")
			}
			if res.ErrorKind != tt.wantKind {
				t.Errorf("expected kind %q, got %q", tt.wantKind, res.ErrorKind)
			}
			if res.Error != tt.err.Error() {
				t.Errorf("expected message %q, got %q", tt.err.Error(), res.Error)
			}
		})
	}

	t.Run("nil fetcher fails as internal", func(t *testing.T) {
		t.Parallel()

		res := NewService(nil, WithLogger(quietLogger())).Scrape(context.Background(), "https://shop.example/")
		if res.Success || res.ErrorKind != model.ErrorKindInternal {
			t.Errorf("expected internal failure, got %+v", res)
		}
	})
}

func TestServiceAnalyze(t *testing.T) {
	t.Parallel()

	t.Run("empty snapshot scores 100 with a good verdict", func(t *testing.T) {
		t.Parallel()

		svc := NewService(nil, WithLogger(quietLogger()))
		res := svc.Analyze(model.NewPageSnapshot("https://blank.example"))
		if len(res.PatternsDetected) != 0 {
			t.Errorf("expected no findings, got %d", len(res.PatternsDetected))
		}
		if res.OverallScore.TotalScore != 100 {
			t.Errorf("expected score 100, got %d", res.OverallScore.TotalScore)
		}
		if res.PatternsDetected == nil {
			t.Error("expected a non-nil findings slice")
		}
	})

	t.Run("nil snapshot is tolerated", func(t *testing.T) {
		t.Parallel()

		res := NewService(nil, WithLogger(quietLogger())).Analyze(nil)
		if res.OverallScore.TotalScore != 100 {
			t.Errorf("expected score 100, got %d", res.OverallScore.TotalScore)
		}
	})

	t.Run("analysis is deterministic apart from timing", func(t *testing.T) {
		t.Parallel()

		f := &fakeFetcher{page: &model.RawPage{HTML: cookieBannerPage}}
		svc := NewService(f, WithLogger(quietLogger()))
		scraped := svc.Scrape(context.Background(), "https://shop.example/")

		a := svc.Analyze(scraped.Data)
		b := svc.Analyze(scraped.Data)
		a.Performance = model.Performance{}
		b.Performance = model.Performance{}
		if !reflect.DeepEqual(a, b) {
			t.Error("expected identical analyses for the same snapshot")
		}
	})

	t.Run("custom registry restricts detectors", func(t *testing.T) {
		t.Parallel()

		f := &fakeFetcher{page: &model.RawPage{HTML: cookieBannerPage}}
		reg := detector.NewRegistry(detector.WithLogger(quietLogger())).Without("cookie_consent")
		svc := NewService(f, WithLogger(quietLogger()), WithRegistry(reg))

		_, res, err := svc.Audit(context.Background(), "https://shop.example/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, finding := range res.PatternsDetected {
			if finding.RuleID == detector.RuleCookieForcedAccept {
				t.Error("cookie detector should have been removed")
			}
		}
	})
}

func TestServiceAudit(t *testing.T) {
	t.Parallel()

	t.Run("cookie banner without reject yields one dark finding", func(t *testing.T) {
		t.Parallel()

		m := metrics.New()
		f := &fakeFetcher{page: &model.RawPage{HTML: cookieBannerPage}}
		svc := NewService(f, WithLogger(quietLogger()), WithMetrics(m))

		snapshot, res, err := svc.Audit(context.Background(), "https://shop.example/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if snapshot == nil {
			t.Fatal("expected snapshot")
		}
		if len(res.PatternsDetected) != 1 || res.PatternsDetected[0].RuleID != detector.RuleCookieForcedAccept {
			t.Fatalf("expected only forced cookie acceptance, got %+v", res.PatternsDetected)
		}
		if res.OverallScore.TotalScore != 85 {
			t.Errorf("expected score 85, got %d", res.OverallScore.TotalScore)
		}
		if res.Summary == "" {
			t.Error("expected a summary")
		}
		if got := testutil.ToFloat64(m.AuditsTotal.WithLabelValues(metrics.OutcomeSuccess)); got != 1 {
			t.Errorf("expected 1 successful audit in metrics, got %v", got)
		}
		if got := testutil.ToFloat64(m.FindingsTotal.WithLabelValues("dark")); got != 1 {
			t.Errorf("expected 1 dark finding in metrics, got %v", got)
		}
	})

	t.Run("scrape failure returns a ScrapeError", func(t *testing.T) {
		t.Parallel()

		f := &fakeFetcher{err: &browser.StatusError{StatusCode: 503, StatusText: "Service Unavailable"}}
		svc := NewService(f, WithLogger(quietLogger()))

		_, _, err := svc.Audit(context.Background(), "https://shop.example/")
		var se *ScrapeError
		if !errors.As(err, &se) {
			t.Fatalf("expected *ScrapeError, got %T", err)
		}
		if se.Kind != model.ErrorKindHTTPStatus {
			t.Errorf("expected http_status, got %q", se.Kind)
		}
		if KindOf(err) != model.ErrorKindHTTPStatus {
			t.Errorf("KindOf mismatch: %q", KindOf(err))
		}
	})
}

func TestErrorFromResult(t *testing.T) {
	t.Parallel()

	if err := ErrorFromResult(model.ScrapeResult{Success: true}); err != nil {
		t.Errorf("expected nil for success, got %v", err)
	}

	err := ErrorFromResult(model.ScrapeResult{Error: "odd"})
	if KindOf(err) != model.ErrorKindInternal {
		t.Errorf("expected missing kind to become internal, got %q", KindOf(err))
	}
	if KindOf(errors.New("plain")) != model.ErrorKindInternal {
		t.Error("expected plain errors to be internal")
	}
	if KindOf(nil) != model.ErrorKindNone {
		t.Error("expected nil to have no kind")
	}
}
