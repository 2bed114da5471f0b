package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/patternscan/internal/audit"
	"github.com/nao1215/patternscan/internal/config"
	"github.com/nao1215/patternscan/internal/database"
	"github.com/nao1215/patternscan/internal/model"
	"github.com/nao1215/patternscan/internal/pipeline"
	"github.com/nao1215/patternscan/internal/report"
)

// NewScanCmd creates the scan command.
func NewScanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [url]...",
		Short: "Audit web pages for dark patterns",
		Long: `Scan loads each URL in a headless browser and audits it for dark patterns.

The audit looks for:
- Cookie banners without a reject option or with pre-checked consent
- Fake urgency and scarcity messages
- Hidden costs, pre-selected add-ons and subscription traps
- Confirmshaming and misleading button labels
- Missing privacy information on forms that collect data

Results are printed as a report and saved to the local history database so
that later audits can be compared with 'patternscan compare'.

Examples:
  # Audit a single page
  patternscan scan https://shop.example.com/checkout

  # Audit several pages, four at a time
  patternscan scan --batch 4 https://a.example https://b.example

  # Read URLs from a file (one per line, # starts a comment)
  patternscan scan --list urls.txt

  # Write a markdown report and keep the screenshots
  patternscan scan -m -o report.md --screenshot shots/ https://shop.example.com

Configuration file (.patternscan) example:
  sites:
    shop.example.com:
      cookie: "session_id=abc123"
      headers:
        Authorization: "Bearer token"
      settleDelay: 3s`,
		Args: cobra.ArbitraryArgs,
		RunE: runScanCmd,
	}

	addBrowserFlags(cmd)

	cmd.Flags().IntP("batch", "b", config.DefaultBatchSize,
		"Number of concurrent audits")
	cmd.Flags().StringP("list", "l", "",
		"Read target URLs from a file, one per line")

	// Report flags
	cmd.Flags().BoolP("json", "j", false,
		"Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")
	cmd.Flags().StringP("screenshot", "s", "",
		"Write each page's screenshot into this directory")

	// History flags
	cmd.Flags().Bool("no-save", false,
		"Do not save results to the history database")
	cmd.Flags().String("db-dir", "",
		"History database directory (default: XDG data directory)")

	return cmd
}

// runScanCmd executes the scan command.
func runScanCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildScanConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := setupLogger(cmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, session := newAuditService(cfg, logger, nil)
	defer func() {
		if err := session.Shutdown(); err != nil {
			logger.Warn("failed to shut down browser", "error", err)
		}
	}()

	return runScan(ctx, cfg, svc, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// buildScanConfig creates a Config from cobra command flags.
func buildScanConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.Verbose = getBoolFlag(cmd, "verbose")
	cfg.LogJSON = getBoolFlag(cmd, "log-json")

	if err := readBrowserFlags(cmd, cfg); err != nil {
		return nil, err
	}

	var err error
	flags := cmd.Flags()
	if cfg.BatchSize, err = flags.GetInt("batch"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.ScreenshotDir, err = flags.GetString("screenshot"); err != nil {
		return nil, err
	}

	noSave, err := flags.GetBool("no-save")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noSave
	if cfg.DBDir, err = flags.GetString("db-dir"); err != nil {
		return nil, err
	}
	if cfg.DBDir == "" {
		cfg.DBDir = config.XDGDataDir()
	}

	listFile, err := flags.GetString("list")
	if err != nil {
		return nil, err
	}
	targets := append([]string{}, args...)
	if listFile != "" {
		listed, err := readTargetList(listFile)
		if err != nil {
			return nil, err
		}
		targets = append(targets, listed...)
	}

	for i, target := range targets {
		normalized, err := normalizeTarget(target)
		if err != nil {
			return nil, err
		}
		targets[i] = normalized
	}
	cfg.Targets = targets

	return cfg, nil
}

// readTargetList reads URLs from a file, one per line.
// Blank lines and lines starting with # are skipped.
func readTargetList(path string) ([]string, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open target list: %w", err)
	}
	defer f.Close()

	var targets []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		targets = append(targets, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read target list: %w", err)
	}
	return targets, nil
}

// runScan audits every target in cfg with svc and writes the reports.
// It returns an error when any audit failed so the exit status reflects it.
func runScan(ctx context.Context, cfg *config.Config, svc *audit.Service, logger *slog.Logger, stdout, stderr io.Writer) error {
	logger.Info("starting scan",
		"targets", len(cfg.Targets),
		"batchSize", cfg.BatchSize,
		"saveToDB", cfg.SaveToDB,
	)

	configOpts := []pipeline.DefaultPipelineOption{
		pipeline.WithPipelineStepLogger(logger),
		pipeline.WithPipelineScreenshotDir(cfg.ScreenshotDir),
	}
	if cfg.SaveToDB {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Info("database opened", "path", db.Path())
		configOpts = append(configOpts, pipeline.WithPipelineStore(db))
	}

	output, closeOutput, err := openReportOutput(cfg.ReportFile, stdout)
	if err != nil {
		return err
	}
	defer closeOutput()
	writer := newReportWriter(cfg, output)

	bp := pipeline.NewBatchProcessor(
		func() *pipeline.Pipeline {
			return pipeline.DefaultPipeline(svc, []pipeline.Option{pipeline.WithLogger(logger)}, configOpts...)
		},
		pipeline.WithConcurrency(cfg.BatchSize),
		pipeline.WithBatchLogger(logger),
	)

	startTime := time.Now()
	var (
		mu       sync.Mutex
		failed   int
		finished int
	)
	err = bp.ProcessBatchWithCallback(ctx, cfg.Targets, func(r *model.AuditReport, _ int) {
		mu.Lock()
		defer mu.Unlock()

		finished++
		if r.Failed() {
			failed++
			fmt.Fprintf(stderr, "[%d/%d] %s: %s\n", finished, len(cfg.Targets), r.URL, r.ErrorMessage)
		} else {
			fmt.Fprintf(stderr, "[%d/%d] %s: score %d\n", finished, len(cfg.Targets), r.URL, r.Score().TotalScore)
		}

		if _, err := writer.Write(r); err != nil {
			logger.Error("report failed", "url", r.URL, "error", err)
		}
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(stderr, "Scan completed in %s\n", time.Since(startTime).Round(time.Millisecond))
	if failed > 0 {
		return fmt.Errorf("%d of %d audits failed", failed, len(cfg.Targets))
	}
	return nil
}

// openReportOutput returns the report destination. A non-empty path is
// created with owner-only permissions because reports can quote pages that
// sit behind a login.
func openReportOutput(path string, stdout io.Writer) (io.Writer, func(), error) {
	if path == "" {
		return stdout, func() {}, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// newReportWriter selects the report format from cfg.
func newReportWriter(cfg *config.Config, w io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewFullJSONWriter(w, getVersion(), report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(w)
	default:
		return report.NewSimpleWriter(w, report.WithVerbose(cfg.Verbose))
	}
}
