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

	"github.com/nao1215/webscraper/internal/crawler"
	"github.com/nao1215/webscraper/internal/extractor"
)

// FileName is the name of the database file inside the database directory.
const FileName = "webscraper.db"

// CrawlDB stores crawl runs and the RAG chunks they produced.
//
// Design decision: runs keep their full result as a JSON document next to
// the indexed columns. The result shape depends on the extractor kind, and
// the history command only needs the columns to list runs.
type CrawlDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures CrawlDB behavior.
type Options struct {
	// CreateIfNotExists creates the database file if it doesn't exist.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates a CrawlDB in dbDir.
// If CreateIfNotExists is false and the database doesn't exist, ErrNotFound
// is returned.
func Open(dbDir string, opts Options) (*CrawlDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	// mode=rw refuses to create a missing file.
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

	cdb := &CrawlDB{
		db:     db,
		dbPath: dbPath,
	}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := cdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return cdb, nil
}

// Path returns the path of the database file.
func (cdb *CrawlDB) Path() string {
	return cdb.dbPath
}

// Close closes the database connection.
func (cdb *CrawlDB) Close() error {
	return cdb.db.Close()
}

func (cdb *CrawlDB) createTables() error {
	schema := `
	-- One row per crawl
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		start_url TEXT NOT NULL,
		extractor TEXT NOT NULL,
		started_at TEXT NOT NULL,
		completed_at TEXT NOT NULL,
		visited_count INTEGER DEFAULT 0,
		queued_count INTEGER DEFAULT 0,
		collected_count INTEGER DEFAULT 0,
		data_count INTEGER DEFAULT 0,
		result_json TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_start_url ON runs(start_url);
	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);

	-- Chunks produced by RAG runs, in extraction order
	CREATE TABLE IF NOT EXISTS chunks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id INTEGER NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
		seq INTEGER NOT NULL,
		chunk_id TEXT NOT NULL,
		url TEXT NOT NULL,
		source TEXT,
		title TEXT,
		page_title TEXT,
		h1 TEXT,
		h2 TEXT,
		h3 TEXT,
		text TEXT NOT NULL,
		char_count INTEGER DEFAULT 0,
		depth INTEGER DEFAULT 0,
		UNIQUE(run_id, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_chunks_run ON chunks(run_id);
	CREATE INDEX IF NOT EXISTS idx_chunks_url ON chunks(url);
	`

	_, err := cdb.db.ExecContext(context.Background(), schema)
	return err
}

// Run is a stored crawl.
type Run struct {
	ID          int64         `json:"id"`
	StartURL    string        `json:"start_url"`
	Extractor   string        `json:"extractor"`
	StartedAt   time.Time     `json:"started_at"`
	CompletedAt time.Time     `json:"completed_at"`
	Stats       crawler.Stats `json:"stats"`

	// Result is the crawl result as JSON. ListRuns leaves it empty.
	Result json.RawMessage `json:"result,omitempty"`
}

// NewRun builds a Run from a crawl result, encoding result as JSON.
func NewRun(startURL, kind string, startedAt, completedAt time.Time, stats crawler.Stats, result any) (*Run, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize result: %w", err)
	}
	return &Run{
		StartURL:    startURL,
		Extractor:   kind,
		StartedAt:   startedAt,
		CompletedAt: completedAt,
		Stats:       stats,
		Result:      data,
	}, nil
}

// SaveRun inserts run and returns its ID. run.ID is set on success.
func (cdb *CrawlDB) SaveRun(ctx context.Context, run *Run) (int64, error) {
	if run.StartURL == "" {
		return 0, ErrEmptyStartURL
	}
	result := run.Result
	if len(result) == 0 {
		result = json.RawMessage("null")
	}

	query := `
	INSERT INTO runs (start_url, extractor, started_at, completed_at,
		visited_count, queued_count, collected_count, data_count, result_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := cdb.db.ExecContext(ctx, query,
		run.StartURL,
		run.Extractor,
		formatTimestamp(run.StartedAt),
		formatTimestamp(run.CompletedAt),
		run.Stats.VisitedCount,
		run.Stats.QueuedCount,
		run.Stats.CollectedCount,
		run.Stats.DataCount,
		string(result),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save run: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get run id: %w", err)
	}
	run.ID = id
	return id, nil
}

// SaveChunks stores chunks for a run in a single transaction, keeping
// their order. Chunks already stored for the run are replaced.
func (cdb *CrawlDB) SaveChunks(ctx context.Context, runID int64, chunks []extractor.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var exists int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs WHERE id = ?", runID).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check run: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE run_id = ?", runID); err != nil {
		return fmt.Errorf("failed to replace chunks: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
	INSERT INTO chunks (run_id, seq, chunk_id, url, source, title, page_title,
		h1, h2, h3, text, char_count, depth)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare chunk insert: %w", err)
	}
	defer stmt.Close()

	for i, c := range chunks {
		if _, err := stmt.ExecContext(ctx,
			runID, i, c.ChunkID, c.URL, c.Source, c.Title, c.PageTitle,
			c.H1, c.H2, c.H3, c.Text, c.CharCount, c.Depth,
		); err != nil {
			return fmt.Errorf("failed to save chunk %s: %w", c.ChunkID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit chunks: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs first, without their result JSON.
// A limit of zero or less returns every run.
func (cdb *CrawlDB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `
	SELECT id, start_url, extractor, started_at, completed_at,
		visited_count, queued_count, collected_count, data_count
	FROM runs
	ORDER BY id DESC
	`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := cdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var (
			run                    Run
			startedAt, completedAt string
		)
		if err := rows.Scan(
			&run.ID, &run.StartURL, &run.Extractor, &startedAt, &completedAt,
			&run.Stats.VisitedCount, &run.Stats.QueuedCount,
			&run.Stats.CollectedCount, &run.Stats.DataCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		run.StartedAt = parseTimestamp(startedAt)
		run.CompletedAt = parseTimestamp(completedAt)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetRun returns the run with the given ID, including its result JSON.
func (cdb *CrawlDB) GetRun(ctx context.Context, id int64) (*Run, error) {
	query := `
	SELECT id, start_url, extractor, started_at, completed_at,
		visited_count, queued_count, collected_count, data_count, result_json
	FROM runs
	WHERE id = ?
	`

	var (
		run                    Run
		startedAt, completedAt string
		result                 string
	)
	err := cdb.db.QueryRowContext(ctx, query, id).Scan(
		&run.ID, &run.StartURL, &run.Extractor, &startedAt, &completedAt,
		&run.Stats.VisitedCount, &run.Stats.QueuedCount,
		&run.Stats.CollectedCount, &run.Stats.DataCount, &result,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	run.StartedAt = parseTimestamp(startedAt)
	run.CompletedAt = parseTimestamp(completedAt)
	run.Result = json.RawMessage(result)
	return &run, nil
}

// GetChunks returns the chunks of a run in the order they were saved.
// A run without chunks yields an empty slice.
func (cdb *CrawlDB) GetChunks(ctx context.Context, runID int64) ([]extractor.Chunk, error) {
	query := `
	SELECT chunk_id, url, source, title, page_title, h1, h2, h3, text, char_count, depth
	FROM chunks
	WHERE run_id = ?
	ORDER BY seq
	`

	rows, err := cdb.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chunks: %w", err)
	}
	defer rows.Close()

	chunks := []extractor.Chunk{}
	for rows.Next() {
		var (
			c                                    extractor.Chunk
			source, title, pageTitle, h1, h2, h3 sql.NullString
		)
		if err := rows.Scan(
			&c.ChunkID, &c.URL, &source, &title, &pageTitle,
			&h1, &h2, &h3, &c.Text, &c.CharCount, &c.Depth,
		); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		c.Source = source.String
		c.Title = title.String
		c.PageTitle = pageTitle.String
		c.H1 = h1.String
		c.H2 = h2.String
		c.H3 = h3.String
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// DeleteRun removes a run and its chunks.
func (cdb *CrawlDB) DeleteRun(ctx context.Context, id int64) error {
	tx, err := cdb.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// foreign_keys is off by default in SQLite, so chunks are removed explicitly.
	if _, err := tx.ExecContext(ctx, "DELETE FROM chunks WHERE run_id = ?", id); err != nil {
		return fmt.Errorf("failed to delete chunks: %w", err)
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %d", ErrRunNotFound, id)
	}
	return tx.Commit()
}

// timestampFormats contains the timestamp formats that may be stored.
// More specific formats come first.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999",
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTimestamp returns the zero time when s matches no known format.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
