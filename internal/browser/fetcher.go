package browser

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/patternscan/internal/model"
)

// Default fetch settings.
const (
	// DefaultUserAgent is a current desktop Chrome user agent. Sites vary
	// their markup by user agent, so a headless identifier would skew results.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

	DefaultViewportWidth  = 1366
	DefaultViewportHeight = 768

	// DefaultNavigationTimeout bounds navigation up to DOMContentLoaded.
	DefaultNavigationTimeout = 15 * time.Second

	// DefaultSettleDelay lets first-pass dynamic content such as cookie
	// banners render before capture.
	DefaultSettleDelay = time.Second

	// DefaultScreenshotQuality is the JPEG quality of screenshots.
	DefaultScreenshotQuality = 70

	// captureTimeout bounds the concurrent capture phase.
	captureTimeout = 10 * time.Second

	// statusGrace is how long to wait for the document response event after
	// DOMContentLoaded has fired.
	statusGrace = 500 * time.Millisecond
)

// Acquirer provides the shared browser. *Session implements it.
type Acquirer interface {
	Acquire(ctx context.Context) (*rod.Browser, error)
}

// FetchOptions controls one fetch.
type FetchOptions struct {
	UserAgent         string
	ViewportWidth     int
	ViewportHeight    int
	NavigationTimeout time.Duration
	SettleDelay       time.Duration

	// BlockResources aborts images, stylesheets, fonts and media.
	BlockResources bool

	// Stealth patches the page against common headless detection.
	Stealth bool

	// Screenshot enables screenshot capture.
	Screenshot        bool
	ScreenshotQuality int

	// Headers are sent with every request of the page.
	Headers map[string]string

	// Cookie is a Cookie header value ("a=1; b=2") set before navigation.
	Cookie string
}

// DefaultFetchOptions returns the default fetch settings.
func DefaultFetchOptions() FetchOptions {
	return FetchOptions{
		UserAgent:         DefaultUserAgent,
		ViewportWidth:     DefaultViewportWidth,
		ViewportHeight:    DefaultViewportHeight,
		NavigationTimeout: DefaultNavigationTimeout,
		SettleDelay:       DefaultSettleDelay,
		BlockResources:    true,
		Stealth:           true,
		Screenshot:        true,
		ScreenshotQuality: DefaultScreenshotQuality,
	}
}

// withDefaults fills zero values from DefaultFetchOptions.
func (o FetchOptions) withDefaults() FetchOptions {
	d := DefaultFetchOptions()
	if o.UserAgent == "" {
		o.UserAgent = d.UserAgent
	}
	if o.ViewportWidth <= 0 {
		o.ViewportWidth = d.ViewportWidth
	}
	if o.ViewportHeight <= 0 {
		o.ViewportHeight = d.ViewportHeight
	}
	if o.NavigationTimeout <= 0 {
		o.NavigationTimeout = d.NavigationTimeout
	}
	if o.SettleDelay < 0 {
		o.SettleDelay = 0
	}
	if o.ScreenshotQuality <= 0 || o.ScreenshotQuality > 100 {
		o.ScreenshotQuality = d.ScreenshotQuality
	}
	return o
}

// Fetcher renders pages in the shared browser.
type Fetcher struct {
	session Acquirer
	options FetchOptions
	logger  *slog.Logger

	// guard loads every http(s) request of a page when set.
	guard *http.Client
}

// FetcherOption configures a Fetcher.
type FetcherOption func(*Fetcher)

// WithFetchOptions sets the default options used by Fetch.
func WithFetchOptions(opts FetchOptions) FetcherOption {
	return func(f *Fetcher) {
		f.options = opts.withDefaults()
	}
}

// WithFetcherLogger sets the fetcher logger.
func WithFetcherLogger(logger *slog.Logger) FetcherOption {
	return func(f *Fetcher) {
		f.logger = logger
	}
}

// WithDestinationGuard routes every http(s) request of a page, redirects
// and subresources included, through client instead of the browser's own
// network stack. Use a client from netguard.NewClient so that internal
// destinations are refused at connect time.
func WithDestinationGuard(client *http.Client) FetcherOption {
	return func(f *Fetcher) {
		f.guard = client
	}
}

// NewFetcher creates a Fetcher using session.
func NewFetcher(session Acquirer, opts ...FetcherOption) *Fetcher {
	f := &Fetcher{
		session: session,
		options: DefaultFetchOptions(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Options returns the default fetch options.
func (f *Fetcher) Options() FetchOptions {
	return f.options
}

// Fetch renders target with the default options.
func (f *Fetcher) Fetch(ctx context.Context, target string) (*model.RawPage, error) {
	return f.FetchWith(ctx, target, f.options)
}

// FetchWith renders target with opts.
func (f *Fetcher) FetchWith(ctx context.Context, target string, opts FetchOptions) (*model.RawPage, error) {
	if target == "" {
		return nil, ErrEmptyURL
	}
	opts = opts.withDefaults()

	b, err := f.session.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	page, err := f.openPage(b, opts)
	if err != nil {
		if s, ok := f.session.(*Session); ok {
			s.Invalidate(b)
		}
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	defer func() {
		if cerr := page.Close(); cerr != nil {
			f.logger.Debug("failed to close page", "url", target, "error", cerr)
		}
	}()

	icp := &interceptor{blockResources: opts.BlockResources}
	if f.guard != nil {
		if icp.client, err = clientWithCookies(f.guard, target, opts.Cookie); err != nil {
			return nil, fmt.Errorf("failed to prepare destination guard: %w", err)
		}
	}
	if icp.blockResources || icp.client != nil {
		router, err := icp.intercept(page)
		switch {
		case err != nil && icp.client != nil:
			return nil, fmt.Errorf("destination guard unavailable: %w", err)
		case err != nil:
			f.logger.Warn("resource blocking unavailable", "url", target, "error", err)
		default:
			defer func() {
				_ = router.Stop()
			}()
		}
	}

	if err := f.prepare(page, target, opts); err != nil {
		f.logger.Debug("failed to apply request settings", "url", target, "error", err)
	}

	start := time.Now()
	status, err := f.navigate(ctx, page, target, opts.NavigationTimeout)
	if err != nil {
		if refused := icp.refusedDocument(); refused != "" {
			return nil, &NetworkError{
				URL:     target,
				Message: "destination refused: " + refused + " is a private or local address",
				Err:     ErrDestinationRefused,
			}
		}
		return nil, err
	}
	loadTime := time.Since(start)

	if status.failed() {
		return nil, &StatusError{URL: target, StatusCode: status.code, StatusText: status.text}
	}

	if opts.SettleDelay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(opts.SettleDelay):
		}
	}

	raw, err := f.capture(ctx, page, opts)
	if err != nil {
		return nil, err
	}
	raw.URL = target
	raw.StatusCode = status.code
	raw.LoadTimeMs = loadTime.Milliseconds()
	return raw, nil
}

// openPage creates a blank page, stealth-patched when enabled.
func (f *Fetcher) openPage(b *rod.Browser, opts FetchOptions) (*rod.Page, error) {
	if opts.Stealth {
		return stealth.Page(b)
	}
	return b.Page(proto.TargetCreateTarget{URL: ""})
}

// prepare applies viewport, user agent, headers and cookies.
func (f *Fetcher) prepare(page *rod.Page, target string, opts FetchOptions) error {
	var errs []error

	errs = append(errs, page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  opts.ViewportWidth,
		Height: opts.ViewportHeight,
	}))
	errs = append(errs, page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
		UserAgent: opts.UserAgent,
	}))

	if len(opts.Headers) > 0 {
		headers := make(proto.NetworkHeaders, len(opts.Headers))
		for k, v := range opts.Headers {
			headers[k] = gson.New(v)
		}
		errs = append(errs, proto.NetworkSetExtraHTTPHeaders{Headers: headers}.Call(page))
	}

	if opts.Cookie != "" {
		cookies, err := http.ParseCookie(opts.Cookie)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid cookie: %w", err))
		} else {
			params := make([]*proto.NetworkCookieParam, 0, len(cookies))
			for _, c := range cookies {
				params = append(params, &proto.NetworkCookieParam{
					Name:  c.Name,
					Value: c.Value,
					URL:   target,
				})
			}
			errs = append(errs, page.SetCookies(params))
		}
	}

	return errors.Join(errs...)
}

// documentStatus is the HTTP status of the main document.
type documentStatus struct {
	code int
	text string
}

// failed reports whether the status is a known non-2xx code.
func (s documentStatus) failed() bool {
	return s.code != 0 && (s.code < 200 || s.code > 299)
}

// isMainFrame reports whether frame is the page's main frame. An unknown
// main frame matches every frame.
func isMainFrame(frame, main proto.PageFrameID) bool {
	return main == "" || frame == main
}

// isMainDocument reports whether e is the response to a document of the
// main frame. Iframe documents are loaded with the same resource type.
func isMainDocument(e *proto.NetworkResponseReceived, mainFrame proto.PageFrameID) bool {
	return e.Type == proto.NetworkResourceTypeDocument &&
		e.Response != nil &&
		isMainFrame(e.FrameID, mainFrame)
}

// navigate loads target and waits for DOMContentLoaded. It returns the
// status of the first main-frame document response, or a zero status if
// none was seen.
func (f *Fetcher) navigate(ctx context.Context, page *rod.Page, target string, timeout time.Duration) (documentStatus, error) {
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	statusCh := make(chan documentStatus, 1)
	waitResponse := page.Context(navCtx).EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if !isMainDocument(e, page.FrameID) {
			return false
		}
		statusCh <- documentStatus{code: e.Response.Status, text: e.Response.StatusText}
		return true
	})
	go waitResponse()

	waitDOM := page.Context(navCtx).WaitNavigation(proto.PageLifecycleEventNameDOMContentLoaded)

	if err := page.Context(navCtx).Navigate(target); err != nil {
		// Chrome reports empty error responses as navigation errors
		// (net::ERR_HTTP_RESPONSE_CODE_FAILURE). Prefer the HTTP status.
		select {
		case s := <-statusCh:
			if s.failed() {
				return s, nil
			}
		default:
		}
		return documentStatus{}, f.classifyNavigation(navCtx, target, err)
	}
	waitDOM()
	if err := navCtx.Err(); err != nil {
		return documentStatus{}, f.classifyNavigation(navCtx, target, err)
	}

	select {
	case s := <-statusCh:
		return s, nil
	case <-time.After(statusGrace):
		f.logger.Debug("no document response observed", "url", target)
		return documentStatus{}, nil
	}
}

// classifyNavigation maps a navigation failure to the typed errors.
func (f *Fetcher) classifyNavigation(navCtx context.Context, target string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(navCtx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrNavigationTimeout, target)
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	var navErr *rod.NavigationError
	if errors.As(err, &navErr) {
		return &NetworkError{URL: target, Message: navErr.Reason, Err: err}
	}
	return &NetworkError{URL: target, Message: err.Error(), Err: err}
}

// capture reads title, HTML and screenshot concurrently. They are read-only
// against the loaded DOM, so sharing the page is safe.
func (f *Fetcher) capture(ctx context.Context, page *rod.Page, opts FetchOptions) (*model.RawPage, error) {
	captureCtx, cancel := context.WithTimeout(ctx, captureTimeout)
	defer cancel()

	raw := &model.RawPage{}
	g, gctx := errgroup.WithContext(captureCtx)

	g.Go(func() error {
		info, err := page.Context(gctx).Info()
		if err != nil {
			return fmt.Errorf("failed to read page info: %w", err)
		}
		raw.Title = info.Title
		raw.FinalURL = info.URL
		return nil
	})

	g.Go(func() error {
		html, err := page.Context(gctx).HTML()
		if err != nil {
			return fmt.Errorf("failed to read page html: %w", err)
		}
		raw.HTML = html
		return nil
	})

	if opts.Screenshot {
		g.Go(func() error {
			img, err := page.Context(gctx).Screenshot(false, &proto.PageCaptureScreenshot{
				Format:  proto.PageCaptureScreenshotFormatJpeg,
				Quality: gson.Int(opts.ScreenshotQuality),
				Clip: &proto.PageViewport{
					X:      0,
					Y:      0,
					Width:  float64(opts.ViewportWidth),
					Height: float64(opts.ViewportHeight),
					Scale:  1,
				},
			})
			if err != nil {
				// A missing screenshot does not invalidate the audit.
				f.logger.Debug("screenshot failed", "error", err)
				return nil
			}
			raw.Screenshot = base64.StdEncoding.EncodeToString(img)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: capture", ErrNavigationTimeout)
		}
		return nil, err
	}
	return raw, nil
}
