package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/patternscan/internal/model"
)

// TestBatchProcessorNew tests the BatchProcessor constructor.
func TestBatchProcessorNew(t *testing.T) {
	t.Parallel()

	t.Run("creates processor with defaults", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func() *Pipeline { return New() })
		if bp.concurrency != DefaultConcurrency {
			t.Errorf("expected concurrency %d, got %d", DefaultConcurrency, bp.concurrency)
		}
		if bp.logger == nil {
			t.Error("expected default logger")
		}
	})

	t.Run("applies WithConcurrency option", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func() *Pipeline { return New() }, WithConcurrency(2))
		if bp.concurrency != 2 {
			t.Errorf("expected concurrency 2, got %d", bp.concurrency)
		}
	})

	t.Run("ignores non-positive concurrency", func(t *testing.T) {
		t.Parallel()

		bp := NewBatchProcessor(func() *Pipeline { return New() }, WithConcurrency(0), WithConcurrency(-3))
		if bp.concurrency != DefaultConcurrency {
			t.Errorf("expected default concurrency, got %d", bp.concurrency)
		}
	})
}

// TestBatchProcessorProcessBatch tests batch processing.
func TestBatchProcessorProcessBatch(t *testing.T) {
	t.Parallel()

	t.Run("audits every url in input order", func(t *testing.T) {
		t.Parallel()

		factory := func() *Pipeline {
			p := New(WithLogger(quietLogger()))
			p.AddStep(&mockStep{name: "title", doFunc: func(_ context.Context, r *model.AuditReport) error {
				r.Title = "title of " + r.URL
				return nil
			}})
			return p
		}

		urls := []string{"https://a.example", "https://b.example", "https://c.example"}
		bp := NewBatchProcessor(factory, WithBatchLogger(quietLogger()), WithConcurrency(3))

		reports, err := bp.ProcessBatch(context.Background(), urls)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(reports) != len(urls) {
			t.Fatalf("expected %d reports, got %d", len(urls), len(reports))
		}
		for i, r := range reports {
			if r.URL != urls[i] {
				t.Errorf("report %d: expected url %q, got %q", i, urls[i], r.URL)
			}
			if r.Title != "title of "+urls[i] {
				t.Errorf("report %d: unexpected title %q", i, r.Title)
			}
		}
	})

	t.Run("respects concurrency limit", func(t *testing.T) {
		t.Parallel()

		var current, peak int32
		factory := func() *Pipeline {
			p := New(WithLogger(quietLogger()))
			p.AddStep(&mockStep{name: "slow", doFunc: func(context.Context, *model.AuditReport) error {
				n := atomic.AddInt32(&current, 1)
				for {
					old := atomic.LoadInt32(&peak)
					if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				atomic.AddInt32(&current, -1)
				return nil
			}})
			return p
		}

		urls := make([]string, 8)
		for i := range urls {
			urls[i] = "https://site.example/" + strings.Repeat("x", i)
		}

		bp := NewBatchProcessor(factory, WithBatchLogger(quietLogger()), WithConcurrency(2))
		if _, err := bp.ProcessBatch(context.Background(), urls); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := atomic.LoadInt32(&peak); got > 2 {
			t.Errorf("expected at most 2 concurrent audits, saw %d", got)
		}
	})

	t.Run("continues after an individual failure", func(t *testing.T) {
		t.Parallel()

		factory := func() *Pipeline {
			p := New(WithLogger(quietLogger()))
			p.AddStep(&mockStep{name: "maybe_fail", doFunc: func(_ context.Context, r *model.AuditReport) error {
				if strings.Contains(r.URL, "bad") {
					return errors.New("unreachable")
				}
				return nil
			}})
			return p
		}

		urls := []string{"https://good.example", "https://bad.example", "https://fine.example"}
		bp := NewBatchProcessor(factory, WithBatchLogger(quietLogger()))

		reports, err := bp.ProcessBatch(context.Background(), urls)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if reports[0].Failed() || reports[2].Failed() {
			t.Error("expected good urls to succeed")
		}
		if !reports[1].Failed() {
			t.Error("expected bad url to be marked failed")
		}
	})

	t.Run("cancelled batch still returns one report per url", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		bp := NewBatchProcessor(func() *Pipeline { return New(WithLogger(quietLogger())) }, WithBatchLogger(quietLogger()))
		urls := []string{"https://a.example", "https://b.example"}

		reports, err := bp.ProcessBatch(ctx, urls)
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if len(reports) != 2 {
			t.Fatalf("expected 2 reports, got %d", len(reports))
		}
		for i, r := range reports {
			if r == nil {
				t.Fatalf("report %d is nil", i)
			}
			if r.URL != urls[i] {
				t.Errorf("report %d: expected url %q, got %q", i, urls[i], r.URL)
			}
		}
	})
}

// TestBatchProcessorProcessBatchWithCallback tests streaming results.
func TestBatchProcessorProcessBatchWithCallback(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	seen := make(map[int]string)

	bp := NewBatchProcessor(func() *Pipeline { return New(WithLogger(quietLogger())) }, WithBatchLogger(quietLogger()))
	urls := []string{"https://a.example", "https://b.example", "https://c.example"}

	err := bp.ProcessBatchWithCallback(context.Background(), urls, func(r *model.AuditReport, i int) {
		mu.Lock()
		defer mu.Unlock()
		seen[i] = r.URL
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(seen) != len(urls) {
		t.Fatalf("expected %d callbacks, got %d", len(urls), len(seen))
	}
	for i, u := range urls {
		if seen[i] != u {
			t.Errorf("index %d: expected %q, got %q", i, u, seen[i])
		}
	}
}
