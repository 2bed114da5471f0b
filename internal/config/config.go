package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
// These values are tuned for auditing ordinary public websites with a
// single shared headless browser.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "patternscan"

	// EnvBrowserPath names the environment variable holding the browser
	// executable. An explicit --browser flag takes precedence.
	EnvBrowserPath = "PATTERNSCAN_BROWSER"

	// DefaultNavigationTimeout bounds a single page load. 15 seconds is long
	// enough for heavy commercial landing pages once images, fonts and
	// stylesheets are blocked.
	DefaultNavigationTimeout = 15 * time.Second

	// DefaultSettleDelay is the wait after DOMContentLoaded so that scripts
	// can inject cookie banners and overlays before the HTML is captured.
	DefaultSettleDelay = 1 * time.Second

	// DefaultBatchSize is the number of concurrent audits when processing
	// multiple targets. Each audit holds one browser tab, so this stays low.
	DefaultBatchSize = 4

	// DefaultListenAddress is where `patternscan serve` binds.
	DefaultListenAddress = "127.0.0.1:8080"

	// DefaultRatePerMinute is the sustained number of analyze requests a
	// single client may issue per minute.
	DefaultRatePerMinute = 10

	// DefaultRateBurst is the number of requests a client may issue back to
	// back before the per-minute rate applies.
	DefaultRateBurst = 3

	// DefaultMaxURLLength rejects absurdly long target URLs at the API.
	DefaultMaxURLLength = 2048

	// DefaultCacheSize is the number of analysis results kept by the API
	// server when the result cache is enabled.
	DefaultCacheSize = 128
)

// Config holds all configuration options for patternscan.
// This struct is designed to be populated from CLI flags and passed through
// the application via dependency injection rather than global state.
//
// Design decision: We use a single flat struct instead of nested structs
// (e.g., BrowserConfig, ServerConfig) for simplicity. The scan and serve
// commands share most browser options, and nesting would add indirection
// without significant benefit.
type Config struct {
	// BrowserPath is the Chromium executable. Empty lets rod's launcher
	// locate a local browser or download one.
	BrowserPath string

	// RemoteBrowserURL connects to an already running browser's DevTools
	// endpoint instead of launching one.
	RemoteBrowserURL string

	// NavigationTimeout bounds each page load.
	NavigationTimeout time.Duration

	// SettleDelay is the wait after DOMContentLoaded before capture.
	SettleDelay time.Duration

	// UserAgent overrides the desktop user agent. Empty uses the fetcher default.
	UserAgent string

	// DisableStealth turns off the automation fingerprint patches.
	DisableStealth bool

	// DisableResourceBlocking lets images, stylesheets, fonts and media load.
	// Audits get slower but screenshots look like the real page.
	DisableResourceBlocking bool

	// Verbose enables detailed log output using slog.LevelDebug.
	// When false, only warnings and errors are logged.
	Verbose bool

	// LogJSON switches the log handler to JSON, which suits serve mode.
	LogJSON bool

	// BatchSize is the number of concurrent audits when processing multiple targets.
	BatchSize int

	// ConfigFilePath is the path to the configuration file.
	// If empty, FindConfigFile searches the default locations.
	ConfigFilePath string

	// SiteConfigs holds site-specific configurations loaded from the config file.
	SiteConfigs *File

	// JSONReport enables JSON report output instead of human-readable format.
	// Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport enables Markdown report output instead of human-readable format.
	// Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile is the output file path for the report.
	// When set, the report is written to this file instead of stdout.
	ReportFile string

	// ScreenshotDir receives one JPEG per audited URL when set.
	ScreenshotDir string

	// Targets is the list of URLs to audit.
	Targets []string

	// DBDir is the directory path for storing the SQLite history database.
	// Defaults to XDG data directory (~/.local/share/patternscan on Linux).
	DBDir string

	// SaveToDB indicates whether to save audit results to the database.
	SaveToDB bool

	// ListenAddress is the host:port the API server binds.
	ListenAddress string

	// RatePerMinute and RateBurst configure the per-client token bucket.
	RatePerMinute int
	RateBurst     int

	// MaxURLLength caps the length of URLs accepted by the API.
	MaxURLLength int

	// CacheTTL enables the API result cache when positive.
	CacheTTL time.Duration

	// CacheSize bounds the number of cached results.
	CacheSize int
}

// NewConfig creates a new Config with default values.
// All fields are set to safe, sensible defaults that work for most use cases.
//
// Design decision: We use a constructor function instead of relying on
// zero values because many defaults are non-zero (e.g., timeouts, rate limits).
// This also serves as documentation of what the defaults are.
func NewConfig() *Config {
	return &Config{
		NavigationTimeout: DefaultNavigationTimeout,
		SettleDelay:       DefaultSettleDelay,
		BatchSize:         DefaultBatchSize,
		ListenAddress:     DefaultListenAddress,
		RatePerMinute:     DefaultRatePerMinute,
		RateBurst:         DefaultRateBurst,
		MaxURLLength:      DefaultMaxURLLength,
		CacheSize:         DefaultCacheSize,
		SaveToDB:          true,
	}
}

// ApplyEnv fills settings that may come from the environment.
// Values already set from flags are left untouched.
func (c *Config) ApplyEnv() {
	if c.BrowserPath == "" {
		c.BrowserPath = os.Getenv(EnvBrowserPath)
	}
}

// SiteConfig returns the merged site configuration for host.
func (c *Config) SiteConfig(host string) SiteConfig {
	return c.SiteConfigs.GetSiteConfig(host)
}

// XDGDataDir returns the XDG data directory for patternscan.
// On Linux: ~/.local/share/patternscan
// On macOS: ~/Library/Application Support/patternscan
// On Windows: %LOCALAPPDATA%\patternscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for patternscan.
// On Linux: ~/.config/patternscan
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the XDG cache directory for patternscan.
// On Linux: ~/.cache/patternscan
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// Validate checks if the configuration is valid for the scan command.
// It returns a specific error describing what is invalid.
//
// We chose to return the first error found rather than collecting all errors
// because fixing one error often makes others irrelevant.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}
	if err := c.validateBrowser(); err != nil {
		return err
	}
	if c.BatchSize <= 0 {
		return ErrInvalidBatchSize
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	return nil
}

// ValidateServe checks the options used by the serve command.
func (c *Config) ValidateServe() error {
	if err := c.validateBrowser(); err != nil {
		return err
	}
	if c.ListenAddress == "" {
		return ErrEmptyListenAddress
	}
	if c.RatePerMinute <= 0 || c.RateBurst <= 0 {
		return ErrInvalidRateLimit
	}
	if c.CacheTTL < 0 {
		return ErrInvalidCacheTTL
	}
	return nil
}

func (c *Config) validateBrowser() error {
	if c.NavigationTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.SettleDelay < 0 {
		return ErrInvalidSettleDelay
	}
	return nil
}
