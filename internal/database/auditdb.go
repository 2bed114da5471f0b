package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/patternscan/internal/model"
)

// FileName is the database file created inside the database directory.
const FileName = "patternscan.db"

// timestampLayout is fixed width so that text ordering matches time ordering.
const timestampLayout = "2006-01-02T15:04:05.000000000Z"

// ErrNilReport is returned when SaveAudit is called without a report.
var ErrNilReport = errors.New("nil audit report")

// AuditDB provides SQLite-based storage for audit reports.
//
// Design decision: The full report is stored as JSON next to a handful of
// denormalized columns (score and per-type counts). History listings read
// only the columns, and comparisons decode the JSON.
type AuditDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures AuditDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging for better concurrent performance.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates an AuditDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*AuditDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	dsn := dbPath + "?mode=rwc"
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	} else {
		if _, err := os.Stat(dbPath); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("database not found at %s (run a scan first)", dbPath)
			}
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
		// mode=rw refuses to create a new file.
		dsn = dbPath + "?mode=rw"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer; concurrent audits serialize here.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	adb := &AuditDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := adb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return adb, nil
}

// Path returns the database file path.
func (adb *AuditDB) Path() string {
	return adb.dbPath
}

// Close closes the database connection.
func (adb *AuditDB) Close() error {
	return adb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (adb *AuditDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS audits (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		url TEXT NOT NULL,
		scanned_at TEXT NOT NULL,
		title TEXT,
		total_score INTEGER NOT NULL DEFAULT 0,
		dark_count INTEGER NOT NULL DEFAULT 0,
		grey_count INTEGER NOT NULL DEFAULT 0,
		white_count INTEGER NOT NULL DEFAULT 0,
		error_kind TEXT,
		report_json TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_audits_url ON audits(url);
	CREATE INDEX IF NOT EXISTS idx_audits_scanned_at ON audits(scanned_at);
	`

	_, err := adb.db.ExecContext(context.Background(), schema)
	return err
}

// SaveAudit stores report. It implements pipeline.Store.
func (adb *AuditDB) SaveAudit(ctx context.Context, report *model.AuditReport) error {
	_, err := adb.InsertAudit(ctx, report)
	return err
}

// InsertAudit stores report and returns its row ID.
func (adb *AuditDB) InsertAudit(ctx context.Context, report *model.AuditReport) (int64, error) {
	if report == nil {
		return 0, ErrNilReport
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}

	scannedAt := report.DateScanned
	if scannedAt.IsZero() {
		scannedAt = time.Now()
	}
	score := report.Score()

	query := `
	INSERT INTO audits (url, scanned_at, title, total_score, dark_count, grey_count, white_count, error_kind, report_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := adb.db.ExecContext(ctx, query,
		report.URL,
		formatTimestamp(scannedAt),
		report.Title,
		score.TotalScore,
		score.DarkPatterns,
		score.GreyPatterns,
		score.WhitePatterns,
		string(report.ErrorKind),
		string(reportJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save audit: %w", err)
	}

	return result.LastInsertId()
}

// LatestAudit retrieves the most recent audit for url.
// It returns nil without error when the URL has never been audited.
func (adb *AuditDB) LatestAudit(ctx context.Context, url string) (*model.AuditReport, error) {
	query := `
	SELECT report_json FROM audits
	WHERE url = ?
	ORDER BY scanned_at DESC, id DESC
	LIMIT 1
	`
	return adb.queryReport(ctx, query, url)
}

// AuditByID retrieves an audit by its database ID.
// It returns nil without error when no such audit exists.
func (adb *AuditDB) AuditByID(ctx context.Context, id int64) (*model.AuditReport, error) {
	query := `
	SELECT report_json FROM audits
	WHERE id = ?
	`
	return adb.queryReport(ctx, query, id)
}

func (adb *AuditDB) queryReport(ctx context.Context, query string, args ...any) (*model.AuditReport, error) {
	var reportJSON string
	err := adb.db.QueryRowContext(ctx, query, args...).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get audit: %w", err)
	}

	var report model.AuditReport
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}
	return &report, nil
}

// ListAuditedURLs returns every URL with at least one stored audit.
func (adb *AuditDB) ListAuditedURLs(ctx context.Context) ([]string, error) {
	query := `
	SELECT DISTINCT url FROM audits
	ORDER BY url
	`

	rows, err := adb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list urls: %w", err)
	}
	defer rows.Close()

	urls := make([]string, 0)
	for rows.Next() {
		var url string
		if err := rows.Scan(&url); err != nil {
			return nil, fmt.Errorf("failed to scan url: %w", err)
		}
		urls = append(urls, url)
	}

	return urls, rows.Err()
}

// AuditMetadata contains summary information about a stored audit.
// This is used for displaying history without decoding the full report.
type AuditMetadata struct {
	ID        int64           `json:"id"`
	URL       string          `json:"url"`
	Timestamp time.Time       `json:"timestamp"`
	Title     string          `json:"title,omitempty"`
	ErrorKind model.ErrorKind `json:"error_kind,omitempty"`

	// Score holds the stored counts and total score.
	Score model.OverallScore `json:"score"`
}

// AuditHistory retrieves audit metadata for url, newest first.
func (adb *AuditDB) AuditHistory(ctx context.Context, url string) ([]AuditMetadata, error) {
	query := `
	SELECT id, url, scanned_at, title, total_score, dark_count, grey_count, white_count, error_kind
	FROM audits
	WHERE url = ?
	ORDER BY scanned_at DESC, id DESC
	`

	rows, err := adb.db.QueryContext(ctx, query, url)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit history: %w", err)
	}
	defer rows.Close()

	results := make([]AuditMetadata, 0)
	for rows.Next() {
		var (
			meta      AuditMetadata
			timestamp string
			title     sql.NullString
			errorKind sql.NullString
		)
		if err := rows.Scan(&meta.ID, &meta.URL, &timestamp, &title,
			&meta.Score.TotalScore, &meta.Score.DarkPatterns, &meta.Score.GreyPatterns, &meta.Score.WhitePatterns,
			&errorKind); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}
		meta.Timestamp = parseTimestamp(timestamp)
		meta.Title = title.String
		meta.ErrorKind = model.ErrorKind(errorKind.String)
		results = append(results, meta)
	}

	return results, rows.Err()
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}

// timestampFormats contains the timestamp formats that may be stored.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	timestampLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05", // SQLite CURRENT_TIMESTAMP format
}

// parseTimestamp attempts to parse a timestamp string using multiple formats.
// If parsing fails with all formats, returns zero time.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
