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

	"github.com/nao1215/ldcrawl/internal/crawler"
	"github.com/nao1215/ldcrawl/internal/fact"
)

// FileName is the database file created inside the database directory.
const FileName = "ldcrawl.db"

// ResourceDB provides SQLite-based storage for crawl sessions and the
// resources they delivered.
//
// Design decision: We keep every crawl in one database file rather than a
// file per crawl because:
//  1. History listing is a single query
//  2. Backups and cleanup touch one file
//  3. SQLite handles the expected row counts easily
type ResourceDB struct {
	// db is the underlying SQL database connection.
	db *sql.DB

	// dbPath is the path to the SQLite database file.
	dbPath string
}

// Options configures ResourceDB behavior.
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

// Open opens or creates a ResourceDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, an error is returned.
func Open(dbDir string, opts Options) (*ResourceDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file; mode=rwc allows it.
	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &ResourceDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := rdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return rdb, nil
}

// Path returns the database file path.
func (rdb *ResourceDB) Path() string {
	return rdb.dbPath
}

// Close closes the database connection.
func (rdb *ResourceDB) Close() error {
	return rdb.db.Close()
}

// createTables creates the database schema if it doesn't exist.
func (rdb *ResourceDB) createTables() error {
	schema := `
	-- One row per crawler session
	CREATE TABLE IF NOT EXISTS crawls (
		id TEXT PRIMARY KEY,
		seeds TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_crawls_started ON crawls(started_at);

	-- Resources delivered during a crawl
	CREATE TABLE IF NOT EXISTS resources (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		crawl_id TEXT NOT NULL REFERENCES crawls(id),
		request_id TEXT NOT NULL,
		uri TEXT NOT NULL,
		status TEXT NOT NULL,
		status_code INTEGER NOT NULL DEFAULT 0,
		content_type TEXT NOT NULL DEFAULT '',
		fact_count INTEGER NOT NULL DEFAULT 0,
		representation TEXT NOT NULL,
		error TEXT NOT NULL DEFAULT '',
		fetched_at TEXT NOT NULL,
		duration_ms INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_resources_crawl ON resources(crawl_id);
	CREATE INDEX IF NOT EXISTS idx_resources_uri ON resources(uri);
	CREATE INDEX IF NOT EXISTS idx_resources_status ON resources(status);
	`

	_, err := rdb.db.ExecContext(context.Background(), schema)
	return err
}

// CrawlRecord is a stored crawl session.
type CrawlRecord struct {
	ID         string
	Seeds      []string
	StartedAt  time.Time
	FinishedAt time.Time

	// Resources is the number of resources stored for the crawl.
	Resources int
}

// BeginCrawl records the start of a crawl session.
func (rdb *ResourceDB) BeginCrawl(ctx context.Context, id string, seeds []string, startedAt time.Time) error {
	seedsJSON, err := json.Marshal(seeds)
	if err != nil {
		return fmt.Errorf("failed to serialize seeds: %w", err)
	}

	_, err = rdb.db.ExecContext(ctx,
		`INSERT INTO crawls (id, seeds, started_at) VALUES (?, ?, ?)`,
		id, string(seedsJSON), formatTimestamp(startedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert crawl: %w", err)
	}
	return nil
}

// FinishCrawl records the end of a crawl session.
func (rdb *ResourceDB) FinishCrawl(ctx context.Context, id string, finishedAt time.Time) error {
	result, err := rdb.db.ExecContext(ctx,
		`UPDATE crawls SET finished_at = ? WHERE id = ?`,
		formatTimestamp(finishedAt), id,
	)
	if err != nil {
		return fmt.Errorf("failed to finish crawl: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to finish crawl: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("failed to finish crawl: %w: %s", ErrCrawlNotFound, id)
	}
	return nil
}

// Lookup errors.
var (
	// ErrCrawlNotFound is returned when a crawl id does not exist.
	ErrCrawlNotFound = errors.New("crawl not found")

	// ErrDatabaseNotFound is returned by Open when CreateIfNotExists is
	// false and there is no database file.
	ErrDatabaseNotFound = errors.New("database not found")
)

// GetCrawl retrieves a crawl by id. It returns nil, nil when absent.
func (rdb *ResourceDB) GetCrawl(ctx context.Context, id string) (*CrawlRecord, error) {
	query := `
	SELECT c.id, c.seeds, c.started_at, COALESCE(c.finished_at, ''), COUNT(r.id)
	FROM crawls c
	LEFT JOIN resources r ON r.crawl_id = c.id
	WHERE c.id = ?
	GROUP BY c.id
	`

	record, err := scanCrawl(rdb.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get crawl: %w", err)
	}
	return record, nil
}

// ListCrawls returns every crawl, most recent first.
func (rdb *ResourceDB) ListCrawls(ctx context.Context) ([]CrawlRecord, error) {
	query := `
	SELECT c.id, c.seeds, c.started_at, COALESCE(c.finished_at, ''), COUNT(r.id)
	FROM crawls c
	LEFT JOIN resources r ON r.crawl_id = c.id
	GROUP BY c.id
	ORDER BY c.started_at DESC
	`

	rows, err := rdb.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list crawls: %w", err)
	}
	defer rows.Close()

	results := make([]CrawlRecord, 0)
	for rows.Next() {
		record, err := scanCrawl(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan crawl: %w", err)
		}
		results = append(results, *record)
	}
	return results, rows.Err()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanCrawl(row rowScanner) (*CrawlRecord, error) {
	var record CrawlRecord
	var seedsJSON, startedAt, finishedAt string

	if err := row.Scan(&record.ID, &seedsJSON, &startedAt, &finishedAt, &record.Resources); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(seedsJSON), &record.Seeds); err != nil {
		return nil, fmt.Errorf("failed to parse seeds: %w", err)
	}
	record.StartedAt = parseTimestamp(startedAt)
	record.FinishedAt = parseTimestamp(finishedAt)
	return &record, nil
}

// ResourceRecord is a stored resource.
type ResourceRecord struct {
	ID             int64
	CrawlID        string
	RequestID      string
	URI            string
	Status         crawler.Status
	StatusCode     int
	ContentType    string
	Representation fact.Collection
	Error          string
	FetchedAt      time.Time
	Duration       time.Duration
}

// InsertResource stores a delivered resource under crawlID.
func (rdb *ResourceDB) InsertResource(ctx context.Context, crawlID string, res crawler.Resource) error {
	repJSON, err := fact.MarshalCollection(res.Representation)
	if err != nil {
		return fmt.Errorf("failed to serialize representation: %w", err)
	}

	errText := ""
	if res.Err != nil {
		errText = res.Err.Error()
	}

	query := `
	INSERT INTO resources (crawl_id, request_id, uri, status, status_code, content_type,
		fact_count, representation, error, fetched_at, duration_ms)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = rdb.db.ExecContext(ctx, query,
		crawlID,
		res.RequestID,
		res.URI,
		res.Status.String(),
		res.StatusCode,
		res.ContentType,
		len(res.Representation),
		string(repJSON),
		errText,
		formatTimestamp(res.FetchedAt),
		res.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert resource: %w", err)
	}
	return nil
}

// GetResources returns the resources of a crawl in delivery order.
func (rdb *ResourceDB) GetResources(ctx context.Context, crawlID string) ([]ResourceRecord, error) {
	query := `
	SELECT id, crawl_id, request_id, uri, status, status_code, content_type,
		representation, error, fetched_at, duration_ms
	FROM resources
	WHERE crawl_id = ?
	ORDER BY id
	`

	rows, err := rdb.db.QueryContext(ctx, query, crawlID)
	if err != nil {
		return nil, fmt.Errorf("failed to get resources: %w", err)
	}
	defer rows.Close()

	results := make([]ResourceRecord, 0)
	for rows.Next() {
		var rec ResourceRecord
		var status, repJSON, fetchedAt string
		var durationMS int64

		err := rows.Scan(
			&rec.ID,
			&rec.CrawlID,
			&rec.RequestID,
			&rec.URI,
			&status,
			&rec.StatusCode,
			&rec.ContentType,
			&repJSON,
			&rec.Error,
			&fetchedAt,
			&durationMS,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan resource: %w", err)
		}

		st, ok := crawler.ParseStatus(status)
		if !ok {
			return nil, fmt.Errorf("unknown resource status %q", status)
		}
		rec.Status = st

		rec.Representation, err = fact.UnmarshalCollection([]byte(repJSON))
		if err != nil {
			return nil, fmt.Errorf("failed to parse representation: %w", err)
		}
		rec.FetchedAt = parseTimestamp(fetchedAt)
		rec.Duration = time.Duration(durationMS) * time.Millisecond

		results = append(results, rec)
	}
	return results, rows.Err()
}

// CountByStatus returns the number of resources per status name for a
// crawl. Statuses without resources are omitted.
func (rdb *ResourceDB) CountByStatus(ctx context.Context, crawlID string) (map[string]int, error) {
	rows, err := rdb.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM resources WHERE crawl_id = ? GROUP BY status`,
		crawlID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count resources: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// formatTimestamp renders t in UTC with nanosecond precision.
func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// timestampFormats contains the timestamp formats that SQLite may return.
// The order matters: more specific formats should come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
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
