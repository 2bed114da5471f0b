package config

import (
	"maps"
	"time"
)

// SiteConfig holds site-specific configuration for a single host.
// This allows customizing how the browser loads a particular website,
// for example to audit a page that sits behind a login.
type SiteConfig struct {
	// Cookie is an HTTP cookie to send when loading this site.
	// Format: "name=value" or "name1=value1; name2=value2"
	Cookie string `yaml:"cookie,omitempty"`

	// Headers are extra HTTP headers to include in requests to this site.
	Headers map[string]string `yaml:"headers,omitempty"`

	// UserAgent overrides the desktop user agent for this site.
	UserAgent string `yaml:"userAgent,omitempty"`

	// SettleDelay overrides the wait after DOMContentLoaded.
	// If zero, the global setting is used.
	SettleDelay time.Duration `yaml:"settleDelay,omitempty"`

	// Timeout overrides the navigation timeout for this site.
	// If zero, the global setting is used.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// File represents the structure of the .patternscan configuration file.
type File struct {
	// Sites maps host names to their site-specific configurations.
	// Keys are the host without the scheme (e.g., "shop.example.com").
	Sites map[string]SiteConfig `yaml:"sites,omitempty"`

	// Defaults contains default site configuration applied to all sites
	// unless overridden in the site-specific configuration.
	Defaults SiteConfig `yaml:"defaults,omitempty"`
}

// GetSiteConfig returns the configuration for a specific host.
// It merges the site-specific configuration with defaults.
// A nil File yields an empty SiteConfig.
func (cf *File) GetSiteConfig(host string) SiteConfig {
	if cf == nil {
		return SiteConfig{}
	}

	// Start with defaults. Headers are cloned so merging never writes
	// into the shared defaults map.
	result := cf.Defaults
	result.Headers = maps.Clone(cf.Defaults.Headers)

	site, ok := cf.Sites[host]
	if !ok {
		return result
	}
	return Merge(result, site)
}

// Merge overlays the non-zero fields of override onto base.
// Headers are merged key by key with override winning.
func Merge(base, override SiteConfig) SiteConfig {
	result := base
	if override.Cookie != "" {
		result.Cookie = override.Cookie
	}
	if override.UserAgent != "" {
		result.UserAgent = override.UserAgent
	}
	if override.SettleDelay != 0 {
		result.SettleDelay = override.SettleDelay
	}
	if override.Timeout != 0 {
		result.Timeout = override.Timeout
	}
	if len(override.Headers) > 0 {
		headers := make(map[string]string, len(base.Headers)+len(override.Headers))
		maps.Copy(headers, base.Headers)
		maps.Copy(headers, override.Headers)
		result.Headers = headers
	}
	return result
}
