package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/patternscan/internal/browser"
	"github.com/nao1215/patternscan/internal/config"
	"github.com/nao1215/patternscan/internal/metrics"
	"github.com/nao1215/patternscan/internal/netguard"
	"github.com/nao1215/patternscan/internal/server"
)

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the audit HTTP API",
		Long: `Serve starts an HTTP server that audits URLs on request.

Routes:
  POST /api/analyze   {"url": "https://..."} -> analysis result
  GET  /healthz       liveness check
  GET  /metrics       Prometheus metrics

URLs must be http or https and must not point at private, loopback or
link-local addresses. Each client address gets a token bucket of --rate
requests per minute with a burst of --burst.

Examples:
  # Listen on the default address
  patternscan serve

  # Listen on all interfaces behind a reverse proxy, caching results
  patternscan serve --listen :8080 --trust-proxy --cache-ttl 5m --log-json`,
		Args: cobra.NoArgs,
		RunE: runServeCmd,
	}

	addBrowserFlags(cmd)

	cmd.Flags().String("listen", config.DefaultListenAddress,
		"Address to listen on")
	cmd.Flags().Int("rate", config.DefaultRatePerMinute,
		"Analyze requests allowed per client per minute")
	cmd.Flags().Int("burst", config.DefaultRateBurst,
		"Analyze requests a client may make at once")
	cmd.Flags().Int("max-url-length", config.DefaultMaxURLLength,
		"Longest URL accepted")
	cmd.Flags().Duration("cache-ttl", 0,
		"Reuse results for the same URL for this long (0 disables the cache)")
	cmd.Flags().Int("cache-size", config.DefaultCacheSize,
		"Maximum number of cached results")
	cmd.Flags().Bool("trust-proxy", false,
		"Take the client address from X-Forwarded-For (only behind a trusted proxy)")

	return cmd
}

// serveOptions holds serve flags that have no place in config.Config.
type serveOptions struct {
	trustProxy bool
}

// runServeCmd executes the serve command.
func runServeCmd(cmd *cobra.Command, _ []string) error {
	cfg, opts, err := buildServeConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.ValidateServe(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	// Submitted URLs are validated up front; redirects and subresources are
	// refused at connect time.
	svc, session := newAuditService(cfg, logger, m,
		browser.WithDestinationGuard(netguard.NewClient(cfg.NavigationTimeout, nil)),
	)
	defer func() {
		if err := session.Shutdown(); err != nil {
			logger.Warn("failed to shut down browser", "error", err)
		}
	}()

	srv := server.New(svc,
		server.WithLogger(logger),
		server.WithMetrics(m),
		server.WithRateLimit(cfg.RatePerMinute, cfg.RateBurst),
		server.WithMaxURLLength(cfg.MaxURLLength),
		server.WithCache(cfg.CacheSize, cfg.CacheTTL),
		server.WithTrustProxy(opts.trustProxy),
		server.WithVersion(getVersion()),
	)

	fmt.Fprintf(cmd.ErrOrStderr(), "Listening on http://%s\n", cfg.ListenAddress)
	return srv.ListenAndServe(ctx, cfg.ListenAddress)
}

// buildServeConfig creates a Config from the serve command's flags.
func buildServeConfig(cmd *cobra.Command) (*config.Config, serveOptions, error) {
	var opts serveOptions
	cfg := config.NewConfig()
	cfg.Verbose = getBoolFlag(cmd, "verbose")
	cfg.LogJSON = getBoolFlag(cmd, "log-json")
	cfg.SaveToDB = false

	if err := readBrowserFlags(cmd, cfg); err != nil {
		return nil, opts, err
	}

	var err error
	flags := cmd.Flags()
	if cfg.ListenAddress, err = flags.GetString("listen"); err != nil {
		return nil, opts, err
	}
	if cfg.RatePerMinute, err = flags.GetInt("rate"); err != nil {
		return nil, opts, err
	}
	if cfg.RateBurst, err = flags.GetInt("burst"); err != nil {
		return nil, opts, err
	}
	if cfg.MaxURLLength, err = flags.GetInt("max-url-length"); err != nil {
		return nil, opts, err
	}
	if cfg.CacheTTL, err = flags.GetDuration("cache-ttl"); err != nil {
		return nil, opts, err
	}
	if cfg.CacheSize, err = flags.GetInt("cache-size"); err != nil {
		return nil, opts, err
	}
	if opts.trustProxy, err = flags.GetBool("trust-proxy"); err != nil {
		return nil, opts, err
	}

	return cfg, opts, nil
}
