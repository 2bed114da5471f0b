package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/patternscan/internal/audit"
	"github.com/nao1215/patternscan/internal/browser"
	"github.com/nao1215/patternscan/internal/config"
	"github.com/nao1215/patternscan/internal/metrics"
)

// errInvalidTarget is returned for targets that are not http(s) URLs.
var errInvalidTarget = errors.New("target must be an http or https URL")

// addBrowserFlags registers the flags shared by scan and serve.
func addBrowserFlags(cmd *cobra.Command) {
	cmd.Flags().String("browser", "",
		"Chromium executable path (default: $"+config.EnvBrowserPath+", then auto-detect)")
	cmd.Flags().String("remote-browser", "",
		"DevTools WebSocket URL of a running browser to use instead of launching one")
	cmd.Flags().DurationP("timeout", "t", config.DefaultNavigationTimeout,
		"Navigation timeout for each page")
	cmd.Flags().Duration("settle", config.DefaultSettleDelay,
		"Wait after the page's DOM is ready before capturing it")
	cmd.Flags().String("user-agent", "",
		"Override the browser user agent")
	cmd.Flags().Bool("no-stealth", false,
		"Disable automation fingerprint patches")
	cmd.Flags().Bool("no-block", false,
		"Load images, fonts and media (slower, better screenshots)")
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .patternscan in current, config or home directory)")
}

// readBrowserFlags copies the shared browser flags into cfg and loads the
// site configuration file.
func readBrowserFlags(cmd *cobra.Command, cfg *config.Config) error {
	var err error
	flags := cmd.Flags()

	if cfg.BrowserPath, err = flags.GetString("browser"); err != nil {
		return err
	}
	if cfg.RemoteBrowserURL, err = flags.GetString("remote-browser"); err != nil {
		return err
	}
	if cfg.NavigationTimeout, err = flags.GetDuration("timeout"); err != nil {
		return err
	}
	if cfg.SettleDelay, err = flags.GetDuration("settle"); err != nil {
		return err
	}
	if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
		return err
	}
	if cfg.DisableStealth, err = flags.GetBool("no-stealth"); err != nil {
		return err
	}
	if cfg.DisableResourceBlocking, err = flags.GetBool("no-block"); err != nil {
		return err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return err
	}
	cfg.ApplyEnv()

	return loadSiteConfigs(cfg)
}

// loadSiteConfigs loads the configuration file into cfg.SiteConfigs.
// An explicitly named file must exist; otherwise a missing file means an
// empty configuration.
func loadSiteConfigs(cfg *config.Config) error {
	path := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case path != "":
		sites, err := config.LoadConfigFile(path)
		if err != nil {
			return fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		cfg.SiteConfigs = sites
	case cfg.ConfigFilePath != "":
		return fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	default:
		cfg.SiteConfigs = &config.File{Sites: make(map[string]config.SiteConfig)}
	}
	return nil
}

// newAuditService wires a browser session, a site-aware fetcher and the
// audit service. The caller must shut the session down.
func newAuditService(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics, opts ...browser.FetcherOption) (*audit.Service, *browser.Session) {
	session := browser.NewSession(
		browser.WithBrowserPath(cfg.BrowserPath),
		browser.WithRemoteURL(cfg.RemoteBrowserURL),
		browser.WithSessionLogger(logger),
	)
	fetcher := browser.NewFetcher(session, append([]browser.FetcherOption{
		browser.WithFetchOptions(audit.FetchOptions(cfg)),
		browser.WithFetcherLogger(logger),
	}, opts...)...)
	svc := audit.NewService(
		audit.NewSiteFetcher(fetcher, cfg.SiteConfigs),
		audit.WithLogger(logger),
		audit.WithMetrics(m),
	)
	return svc, session
}

// normalizeTarget turns a command line argument into the URL that is
// audited and stored. A missing scheme defaults to https.
func normalizeTarget(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", errInvalidTarget
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %w", errInvalidTarget, err)
	}
	u.Scheme = strings.ToLower(u.Scheme)
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %s", errInvalidTarget, raw)
	}
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	if u.Path == "" {
		u.Path = "/"
	}
	return u.String(), nil
}
