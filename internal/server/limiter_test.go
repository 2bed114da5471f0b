package server

import (
	"testing"
	"time"
)

func TestClientLimiter(t *testing.T) {
	t.Parallel()

	t.Run("burst then wait", func(t *testing.T) {
		t.Parallel()

		l := newClientLimiter(60, 2)
		now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

		for i := range 2 {
			if ok, _ := l.allow("198.51.100.1", now); !ok {
				t.Fatalf("request %d within burst was refused", i)
			}
		}
		ok, wait := l.allow("198.51.100.1", now)
		if ok {
			t.Fatal("expected request beyond burst to be refused")
		}
		if wait <= 0 || wait > time.Second {
			t.Errorf("expected wait in (0, 1s], got %v", wait)
		}
		if ok, _ := l.allow("198.51.100.1", now.Add(time.Second)); !ok {
			t.Error("expected a token after one interval")
		}
	})

	t.Run("clients are independent", func(t *testing.T) {
		t.Parallel()

		l := newClientLimiter(1, 1)
		now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

		if ok, _ := l.allow("a", now); !ok {
			t.Fatal("first client refused")
		}
		if ok, _ := l.allow("a", now); ok {
			t.Fatal("first client allowed twice")
		}
		if ok, _ := l.allow("b", now); !ok {
			t.Error("second client refused because of the first")
		}
	})

	t.Run("refusal does not consume tokens", func(t *testing.T) {
		t.Parallel()

		l := newClientLimiter(60, 1)
		now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

		l.allow("a", now)
		for range 5 {
			l.allow("a", now)
		}
		if ok, _ := l.allow("a", now.Add(time.Second)); !ok {
			t.Error("expected refused requests not to push the next token back")
		}
	})

	t.Run("disabled", func(t *testing.T) {
		t.Parallel()

		l := newClientLimiter(0, 0)
		if l != nil {
			t.Fatal("expected nil limiter when disabled")
		}
		for range 100 {
			if ok, _ := l.allow("a", time.Now()); !ok {
				t.Fatal("disabled limiter refused a request")
			}
		}
	})
}
