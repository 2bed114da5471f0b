package browser

import (
	"errors"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/nao1215/patternscan/internal/netguard"
)

// blockedResources are aborted during fetching. Signals tied to these
// resources (for example CSS-hidden banners) are unobservable, which is
// accepted in exchange for much faster page loads.
var blockedResources = map[proto.NetworkResourceType]bool{
	proto.NetworkResourceTypeImage:      true,
	proto.NetworkResourceTypeStylesheet: true,
	proto.NetworkResourceTypeFont:       true,
	proto.NetworkResourceTypeMedia:      true,
}

// shouldBlock reports whether requests of type t are aborted.
func shouldBlock(t proto.NetworkResourceType) bool {
	return blockedResources[t]
}

// interceptor decides the fate of every request a page makes.
type interceptor struct {
	// blockResources aborts the types in blockedResources.
	blockResources bool

	// client loads guarded requests in place of the browser. Nil lets the
	// browser load them itself.
	client *http.Client

	mu      sync.Mutex
	refused string
}

// guarded reports whether u is loaded through the guard client. Schemes
// without a network destination (data, blob, about) are left to the browser.
func (i *interceptor) guarded(u *url.URL) bool {
	if i.client == nil || u == nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

// refuse records the first refused document URL. Iframe documents share
// the type, so callers only trust it when the main navigation failed.
func (i *interceptor) refuse(u string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.refused == "" {
		i.refused = u
	}
}

// refusedDocument returns the first document URL the guard refused.
func (i *interceptor) refusedDocument() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.refused
}

// failureReason maps a guard client error to the reason reported to the
// page. Refused destinations look like a blocked request, anything else
// like a failed connection.
func failureReason(err error) proto.NetworkErrorReason {
	if errors.Is(err, netguard.ErrPrivateAddress) {
		return proto.NetworkErrorReasonBlockedByClient
	}
	return proto.NetworkErrorReasonConnectionFailed
}

func (i *interceptor) handle(ctx *rod.Hijack) {
	typ := ctx.Request.Type()
	if i.blockResources && shouldBlock(typ) {
		ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
		return
	}

	u := ctx.Request.URL()
	if !i.guarded(u) {
		ctx.ContinueRequest(&proto.FetchContinueRequest{})
		return
	}
	if err := ctx.LoadResponse(i.client, true); err != nil {
		reason := failureReason(err)
		if reason == proto.NetworkErrorReasonBlockedByClient && typ == proto.NetworkResourceTypeDocument {
			i.refuse(u.String())
		}
		ctx.Response.Fail(reason)
	}
}

// intercept installs request interception on page. The returned router
// must be stopped when the page is done.
func (i *interceptor) intercept(page *rod.Page) (*rod.HijackRouter, error) {
	router := page.HijackRequests()
	if err := router.Add("*", "", i.handle); err != nil {
		return nil, err
	}
	go router.Run()
	return router, nil
}

// clientWithCookies returns a copy of base with its own cookie jar, seeded
// with cookie for target. Requests loaded by the guard bypass the browser's
// cookie store, so the jar keeps the page's session state instead. An
// invalid cookie is skipped; prepare reports it.
func clientWithCookies(base *http.Client, target, cookie string) (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	if u, err := url.Parse(target); err == nil && cookie != "" {
		if cookies, err := http.ParseCookie(cookie); err == nil {
			jar.SetCookies(u, cookies)
		}
	}
	c := *base
	c.Jar = jar
	return &c, nil
}
