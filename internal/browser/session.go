package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// Session owns a single headless browser process.
//
// Design decision: The browser handle lives in an explicitly owned object
// passed to fetchers rather than a package-level singleton, so tests and
// the HTTP server can each own their browser and shut it down cleanly.
// Start-up is the only serialized operation; pages are opened concurrently
// on the shared process.
type Session struct {
	mu      sync.Mutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	closed  bool

	// binPath is the browser executable. Empty lets rod locate or
	// download a Chromium.
	binPath string

	// remoteURL is the DevTools WebSocket URL of an already running
	// browser. When set, no process is launched.
	remoteURL string

	logger *slog.Logger
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithBrowserPath sets the browser executable path.
func WithBrowserPath(path string) SessionOption {
	return func(s *Session) {
		s.binPath = path
	}
}

// WithRemoteURL connects to an existing browser instead of launching one.
func WithRemoteURL(url string) SessionOption {
	return func(s *Session) {
		s.remoteURL = url
	}
}

// WithSessionLogger sets the session logger.
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// NewSession creates a Session. No process is started until Acquire.
func NewSession(opts ...SessionOption) *Session {
	s := &Session{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Acquire returns the running browser, launching it if necessary.
// A failed launch leaves the session empty so the next call retries.
func (s *Session) Acquire(ctx context.Context) (*rod.Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}
	if s.browser != nil {
		return s.browser, nil
	}

	b, l, err := s.launch()
	if err != nil {
		return nil, err
	}
	s.browser = b
	s.lnch = l
	return b, nil
}

// Invalidate discards b if it is the current browser, for example after
// the process crashed. The next Acquire launches a new browser.
func (s *Session) Invalidate(b *rod.Browser) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b == nil || s.browser != b {
		return
	}
	s.logger.Warn("discarding browser instance")
	s.cleanupLocked()
}

// Running reports whether a browser is currently held.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.browser != nil
}

// Shutdown closes the browser. Subsequent Acquire calls fail with
// ErrSessionClosed. Shutdown is idempotent.
func (s *Session) Shutdown() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return s.cleanupLocked()
}

// launch starts or connects to a browser. The caller holds s.mu.
func (s *Session) launch() (*rod.Browser, *launcher.Launcher, error) {
	var (
		wsURL string
		l     *launcher.Launcher
	)

	if s.remoteURL != "" {
		wsURL = s.remoteURL
		s.logger.Info("connecting to remote browser", "url", wsURL)
	} else {
		l = launcher.New().
			Headless(true).
			NoSandbox(true).
			Set("disable-gpu").
			Set("single-process").
			Set("disable-dev-shm-usage").
			Set("disable-blink-features", "AutomationControlled")
		if s.binPath != "" {
			l = l.Bin(s.binPath)
		}

		u, err := l.Launch()
		if err != nil {
			l.Cleanup()
			return nil, nil, fmt.Errorf("%w: %w", ErrLaunch, err)
		}
		wsURL = u
		s.logger.Debug("launched local browser", "url", wsURL)
	}

	b := rod.New().ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		if l != nil {
			l.Kill()
			l.Cleanup()
		}
		return nil, nil, fmt.Errorf("%w: connect: %w", ErrLaunch, err)
	}
	return b, l, nil
}

// cleanupLocked closes the browser and removes launcher artifacts.
func (s *Session) cleanupLocked() error {
	var err error
	if s.browser != nil {
		err = s.browser.Close()
		s.browser = nil
	}
	if s.lnch != nil {
		s.lnch.Kill()
		s.lnch.Cleanup()
		s.lnch = nil
	}
	return err
}
