// File: internal/infra/history/store.go
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"chopshop/internal/domain/model"
	"chopshop/internal/domain/ports/repository"
)

var _ repository.HistoryStore = (*Store)(nil)

// Store archives terminal jobs in a local SQLite database so history
// survives between CLI runs and stays available offline.
type Store struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
    id           TEXT PRIMARY KEY,
    type         TEXT NOT NULL,
    status       TEXT NOT NULL,
    input_url    TEXT NOT NULL DEFAULT '',
    output_url   TEXT NOT NULL DEFAULT '',
    error        TEXT NOT NULL DEFAULT '',
    created_at   TEXT NOT NULL,
    completed_at TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_jobs_created_at ON jobs (created_at DESC);
`

// Open initializes or connects to the history database.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure history dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{db: db, path: path}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// AppendTerminal records a terminal job exactly once per backend job ID.
// Re-appending the same ID is a no-op, which is what keeps history
// append-once even when a backend fetch overlaps a live poll loop.
func (s *Store) AppendTerminal(ctx context.Context, job *model.Job) error {
	if job.IsZero() {
		return fmt.Errorf("refusing to archive job without an id")
	}
	if !job.Status.Terminal() {
		return fmt.Errorf("refusing to archive non-terminal job %s (%s)", job.ID, job.Status)
	}

	completed := ""
	if !job.CompletedAt.IsZero() {
		completed = job.CompletedAt.UTC().Format(time.RFC3339Nano)
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT OR IGNORE INTO jobs (id, type, status, input_url, output_url, error, created_at, completed_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		string(job.Type),
		string(job.Status),
		job.InputURL,
		job.OutputURL,
		job.Error,
		job.CreatedAt.UTC().Format(time.RFC3339Nano),
		completed,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// List returns archived jobs, most recent first. limit <= 0 means all.
func (s *Store) List(ctx context.Context, limit int) ([]*model.Job, error) {
	q := `SELECT id, type, status, input_url, output_url, error, created_at, completed_at
          FROM jobs ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		q += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*model.Job
	for rows.Next() {
		var (
			job                  model.Job
			typ, status          string
			createdAt, completed string
		)
		if err := rows.Scan(&job.ID, &typ, &status, &job.InputURL, &job.OutputURL, &job.Error, &createdAt, &completed); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		job.Type = model.TransformationType(typ)
		job.Status = model.JobStatus(status)
		if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			job.CreatedAt = t
		}
		if completed != "" {
			if t, err := time.Parse(time.RFC3339Nano, completed); err == nil {
				job.CompletedAt = t
			}
		}
		jobs = append(jobs, &job)
	}
	return jobs, rows.Err()
}

// Count reports how many jobs are archived, for the dashboard's stats panel.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count jobs: %w", err)
	}
	return n, nil
}
