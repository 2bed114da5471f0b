package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/patternscan/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *AuditDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

// analyzedReport builds a report with the given findings scanned at ts.
func analyzedReport(url string, ts time.Time, findings ...model.Finding) *model.AuditReport {
	report := model.NewAuditReport(url)
	report.DateScanned = ts
	report.Title = "Title of " + url

	counts := model.CountByType(findings)
	report.Analysis = &model.AnalysisResult{
		PatternsDetected: findings,
		OverallScore: model.OverallScore{
			DarkPatterns:  counts[model.PatternDark],
			GreyPatterns:  counts[model.PatternGrey],
			WhitePatterns: counts[model.PatternWhite],
			TotalScore:    100 - 15*counts[model.PatternDark],
		},
		Summary: "summary",
	}
	return report
}

// TestOpen tests database opening and creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); err != nil {
			t.Errorf("database file was not created: %v", err)
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("unexpected path %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		_, err := Open(filepath.Join(t.TempDir(), "missing"), Options{CreateIfNotExists: false})
		if err == nil {
			t.Error("expected error for missing database")
		}
	})

	t.Run("CreateIfNotExists=false opens existing database", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		_ = db.Close()

		db, err = Open(dir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		_ = db.Close()
	})
}

func TestSaveAndLoadAudit(t *testing.T) {
	t.Parallel()

	t.Run("round trips the analysis", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()

		report := analyzedReport("https://shop.example", time.Now(),
			model.Finding{RuleID: "confirmshaming", Name: "Confirmshaming", PatternType: model.PatternDark, ElementSelector: "button"},
		)
		id, err := db.InsertAudit(ctx, report)
		if err != nil {
			t.Fatalf("failed to insert: %v", err)
		}

		got, err := db.AuditByID(ctx, id)
		if err != nil {
			t.Fatalf("failed to load: %v", err)
		}
		if got == nil || got.Analysis == nil {
			t.Fatal("expected stored analysis")
		}
		if len(got.Analysis.PatternsDetected) != 1 || got.Analysis.PatternsDetected[0].RuleID != "confirmshaming" {
			t.Errorf("unexpected findings: %+v", got.Analysis.PatternsDetected)
		}
		if got.Title != report.Title {
			t.Errorf("expected title %q, got %q", report.Title, got.Title)
		}
		if got.Snapshot != nil {
			t.Error("snapshot must not be stored")
		}
	})

	t.Run("nil report is rejected", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		if err := db.SaveAudit(context.Background(), nil); !errors.Is(err, ErrNilReport) {
			t.Errorf("expected ErrNilReport, got %v", err)
		}
	})

	t.Run("unknown id returns nil", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		got, err := db.AuditByID(context.Background(), 42)
		if err != nil || got != nil {
			t.Errorf("expected nil, nil; got %v, %v", got, err)
		}
	})
}

func TestLatestAudit(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// Insert out of order to make sure ordering uses the scan time.
	for _, offset := range []time.Duration{2 * time.Hour, 0, time.Hour} {
		r := analyzedReport("https://shop.example", base.Add(offset))
		r.Title = base.Add(offset).Format(time.Kitchen)
		if err := db.SaveAudit(ctx, r); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
	}

	latest, err := db.LatestAudit(ctx, "https://shop.example")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if latest == nil {
		t.Fatal("expected latest audit")
	}
	if want := base.Add(2 * time.Hour).Format(time.Kitchen); latest.Title != want {
		t.Errorf("expected latest title %q, got %q", want, latest.Title)
	}

	missing, err := db.LatestAudit(ctx, "https://never.example")
	if err != nil || missing != nil {
		t.Errorf("expected nil, nil for unknown url; got %v, %v", missing, err)
	}
}

func TestAuditHistory(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	dark := model.Finding{RuleID: "hidden_fees", PatternType: model.PatternDark}
	grey := model.Finding{RuleID: "urgency_button", PatternType: model.PatternGrey}

	if err := db.SaveAudit(ctx, analyzedReport("https://shop.example", base, dark, grey)); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveAudit(ctx, analyzedReport("https://shop.example", base.Add(time.Minute), grey)); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveAudit(ctx, analyzedReport("https://other.example", base)); err != nil {
		t.Fatal(err)
	}

	history, err := db.AuditHistory(ctx, "https://shop.example")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(history))
	}
	if !history[0].Timestamp.Equal(base.Add(time.Minute)) {
		t.Errorf("expected newest first, got %v", history[0].Timestamp)
	}
	if history[1].Score.DarkPatterns != 1 || history[1].Score.GreyPatterns != 1 {
		t.Errorf("unexpected counts for oldest entry: %+v", history[1].Score)
	}
	if history[1].Score.TotalScore != 85 {
		t.Errorf("expected stored score 85, got %d", history[1].Score.TotalScore)
	}

	empty, err := db.AuditHistory(ctx, "https://never.example")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Errorf("expected empty non-nil history, got %v", empty)
	}
}

func TestListAuditedURLs(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	for _, u := range []string{"https://b.example", "https://a.example", "https://b.example"} {
		if err := db.SaveAudit(ctx, analyzedReport(u, time.Now())); err != nil {
			t.Fatal(err)
		}
	}

	urls, err := db.ListAuditedURLs(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(urls) != 2 || urls[0] != "https://a.example" || urls[1] != "https://b.example" {
		t.Errorf("unexpected urls: %v", urls)
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	want := time.Date(2026, 3, 1, 12, 30, 45, 0, time.UTC)
	tests := []string{
		formatTimestamp(want),
		"2026-03-01T12:30:45Z",
		"2026-03-01 12:30:45",
	}
	for _, in := range tests {
		if got := parseTimestamp(in); !got.Equal(want) {
			t.Errorf("parseTimestamp(%q) = %v, want %v", in, got, want)
		}
	}
	if got := parseTimestamp("not a time"); !got.IsZero() {
		t.Errorf("expected zero time, got %v", got)
	}
}
