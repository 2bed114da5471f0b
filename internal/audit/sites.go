package audit

import (
	"context"
	"net/url"

	"github.com/nao1215/patternscan/internal/browser"
	"github.com/nao1215/patternscan/internal/config"
	"github.com/nao1215/patternscan/internal/model"
)

// FetchOptions derives the global fetch options from cfg.
func FetchOptions(cfg *config.Config) browser.FetchOptions {
	opts := browser.DefaultFetchOptions()
	if cfg == nil {
		return opts
	}
	opts.NavigationTimeout = cfg.NavigationTimeout
	opts.SettleDelay = cfg.SettleDelay
	opts.Stealth = !cfg.DisableStealth
	opts.BlockResources = !cfg.DisableResourceBlocking
	if cfg.UserAgent != "" {
		opts.UserAgent = cfg.UserAgent
	}
	return opts
}

// ApplySite overlays a site configuration onto fetch options.
// Zero-valued site fields leave the base untouched.
func ApplySite(base browser.FetchOptions, site config.SiteConfig) browser.FetchOptions {
	opts := base
	if site.UserAgent != "" {
		opts.UserAgent = site.UserAgent
	}
	if site.SettleDelay > 0 {
		opts.SettleDelay = site.SettleDelay
	}
	if site.Timeout > 0 {
		opts.NavigationTimeout = site.Timeout
	}
	if site.Cookie != "" {
		opts.Cookie = site.Cookie
	}
	if len(site.Headers) > 0 {
		opts.Headers = site.Headers
	}
	return opts
}

// SiteFetcher resolves per-site overrides from the configuration file
// before each fetch.
type SiteFetcher struct {
	fetcher *browser.Fetcher
	sites   *config.File
}

// NewSiteFetcher wraps fetcher. A nil sites file applies no overrides.
func NewSiteFetcher(fetcher *browser.Fetcher, sites *config.File) *SiteFetcher {
	return &SiteFetcher{fetcher: fetcher, sites: sites}
}

// Fetch implements PageFetcher.
func (sf *SiteFetcher) Fetch(ctx context.Context, target string) (*model.RawPage, error) {
	return sf.fetcher.FetchWith(ctx, target, sf.OptionsFor(target))
}

// OptionsFor returns the fetch options used for target.
func (sf *SiteFetcher) OptionsFor(target string) browser.FetchOptions {
	return ApplySite(sf.fetcher.Options(), SiteFor(sf.sites, target))
}

// SiteFor looks up the site configuration for target's host. An entry keyed
// by host:port wins over one keyed by the bare host name.
func SiteFor(sites *config.File, target string) config.SiteConfig {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return sites.GetSiteConfig("")
	}
	if sites != nil {
		if _, ok := sites.Sites[u.Host]; ok {
			return sites.GetSiteConfig(u.Host)
		}
	}
	return sites.GetSiteConfig(u.Hostname())
}
