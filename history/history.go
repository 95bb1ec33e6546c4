package history

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	topic TEXT NOT NULL DEFAULT '',
	completeness_score REAL NOT NULL DEFAULT 0,
	video_path TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT '',
	started_at TIMESTAMP NOT NULL,
	completed_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at DESC);
`

// Run is one recorded pipeline run
type Run struct {
	ID                string
	Topic             string
	CompletenessScore float64
	VideoPath         string
	Error             string
	StartedAt         time.Time
	CompletedAt       time.Time
}

// Store keeps the run history in a local SQLite database
type Store struct {
	db *sql.DB
}

// Open creates (if needed) and opens the history database at path
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, errors.Wrap(err, "create history dir")
		}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrap(err, "open history db")
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "init history schema")
	}
	return &Store{db: db}, nil
}

// Record inserts or replaces one run
func (s *Store) Record(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO runs
		 (id, topic, completeness_score, video_path, error, started_at, completed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Topic, run.CompletenessScore, run.VideoPath, run.Error,
		run.StartedAt.UTC(), run.CompletedAt.UTC(),
	)
	return errors.Wrap(err, "record run")
}

// Recent returns the latest n runs, newest first
func (s *Store) Recent(ctx context.Context, n int) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, topic, completeness_score, video_path, error, started_at, completed_at
		 FROM runs ORDER BY started_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, errors.Wrap(err, "query runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var r Run
		if err := rows.Scan(&r.ID, &r.Topic, &r.CompletenessScore, &r.VideoPath,
			&r.Error, &r.StartedAt, &r.CompletedAt); err != nil {
			return nil, errors.Wrap(err, "scan run")
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}
