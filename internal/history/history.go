// Package history persists per-run upload summaries so past batches can
// be reviewed after the browser session is gone.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Run is one recorded batch.
type Run struct {
	ID         string
	Kind       string // "upload" or "migrate"
	StartedAt  time.Time
	FinishedAt time.Time
	Total      int
	Succeeded  int
	Failed     int
	Results    []Result
}

// Result is one document's outcome within a run.
type Result struct {
	Slug    string
	Outcome string
	Reason  string
}

// Store manages the run-history database.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open creates or opens the history store at dbPath, creating parent
// directories as needed.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db, dbPath: dbPath}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		kind TEXT NOT NULL,
		started_at DATETIME NOT NULL,
		finished_at DATETIME NOT NULL,
		total INTEGER NOT NULL,
		succeeded INTEGER NOT NULL,
		failed INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS run_results (
		run_id TEXT NOT NULL REFERENCES runs(id),
		position INTEGER NOT NULL,
		slug TEXT NOT NULL,
		outcome TEXT NOT NULL,
		reason TEXT,
		PRIMARY KEY (run_id, position)
	);
	CREATE INDEX IF NOT EXISTS idx_run_results_run ON run_results(run_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordRun stores one run and its per-document results, returning the
// generated run ID.
func (s *Store) RecordRun(ctx context.Context, run Run) (string, error) {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO runs (id, kind, started_at, finished_at, total, succeeded, failed)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Kind, run.StartedAt.UTC(), run.FinishedAt.UTC(),
		run.Total, run.Succeeded, run.Failed)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	for i, res := range run.Results {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO run_results (run_id, position, slug, outcome, reason)
			 VALUES (?, ?, ?, ?, ?)`,
			run.ID, i, res.Slug, res.Outcome, res.Reason)
		if err != nil {
			return "", fmt.Errorf("failed to insert result: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit: %w", err)
	}
	return run.ID, nil
}

// RecentRuns returns the most recent runs, newest first, with their
// results loaded.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, started_at, finished_at, total, succeeded, failed
		 FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Kind, &r.StartedAt, &r.FinishedAt,
			&r.Total, &r.Succeeded, &r.Failed); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range runs {
		results, err := s.runResults(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Results = results
	}
	return runs, nil
}

func (s *Store) runResults(ctx context.Context, runID string) ([]Result, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT slug, outcome, reason FROM run_results
		 WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query results: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var res Result
		var reason sql.NullString
		if err := rows.Scan(&res.Slug, &res.Outcome, &reason); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		res.Reason = reason.String
		results = append(results, res)
	}
	return results, rows.Err()
}
