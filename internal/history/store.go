// Package history keeps a SQLite ledger of pipeline runs.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/harrison/covgen/internal/models"
)

// RunRecord is one row of the run ledger.
type RunRecord struct {
	ID          string
	Target      string
	Status      models.RunStatus
	FailedStage string
	ExitCode    int
	Error       string
	OutputDir   string
	RecordPath  string
	ReportDir   string
	StartedAt   time.Time
	Duration    time.Duration
}

// NewRunRecord converts a pipeline result into a ledger row.
func NewRunRecord(result models.RunResult) *RunRecord {
	return &RunRecord{
		ID:          result.ID,
		Target:      result.Target,
		Status:      result.Status,
		FailedStage: result.FailedStage,
		ExitCode:    result.ExitCode,
		Error:       result.Error,
		OutputDir:   result.Layout.OutputDir,
		RecordPath:  result.RecordPath,
		ReportDir:   result.ReportDir,
		StartedAt:   result.StartedAt,
		Duration:    result.Duration,
	}
}

// Succeeded reports whether the recorded run completed every stage.
func (r *RunRecord) Succeeded() bool {
	return r.Status == models.RunSucceeded
}

// Store manages the run ledger database.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if needed) the ledger at dbPath and applies
// pending migrations. ":memory:" opens a private in-memory ledger.
func NewStore(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise get its own empty database.
		db.SetMaxOpenConns(1)
	}

	// busy_timeout must come first so the rest wait on locks held by a
	// concurrent covgen process.
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	store := &Store{db: db}
	if err := store.ApplyMigrations(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return store, nil
}

// execWithRetry executes a statement with exponential backoff on lock errors.
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RecordRun inserts a run. Recording the same ID twice is an error.
func (s *Store) RecordRun(ctx context.Context, run *RunRecord) error {
	if run.ID == "" {
		return fmt.Errorf("record run: missing id")
	}

	query := `INSERT INTO runs
		(id, target, status, failed_stage, exit_code, error_message, output_dir, record_path, report_dir, started_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		run.ID,
		run.Target,
		string(run.Status),
		run.FailedStage,
		run.ExitCode,
		run.Error,
		run.OutputDir,
		run.RecordPath,
		run.ReportDir,
		run.StartedAt.UTC(),
		run.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

// RecentRuns returns up to limit runs, newest first. An empty target lists
// runs of every target; limit <= 0 means no limit.
func (s *Store) RecentRuns(ctx context.Context, target string, limit int) ([]*RunRecord, error) {
	query := `SELECT id, target, status, COALESCE(failed_stage, ''), exit_code, COALESCE(error_message, ''),
		COALESCE(output_dir, ''), COALESCE(record_path, ''), COALESCE(report_dir, ''), started_at, duration_ms
		FROM runs`
	var args []interface{}
	if target != "" {
		query += ` WHERE target = ?`
		args = append(args, target)
	}
	query += ` ORDER BY started_at DESC, rowid DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*RunRecord
	for rows.Next() {
		var (
			run        RunRecord
			status     string
			durationMs int64
		)
		if err := rows.Scan(&run.ID, &run.Target, &status, &run.FailedStage, &run.ExitCode, &run.Error,
			&run.OutputDir, &run.RecordPath, &run.ReportDir, &run.StartedAt, &durationMs); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.Status = models.RunStatus(status)
		run.Duration = time.Duration(durationMs) * time.Millisecond
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Cleanup removes runs older than keepDays and returns how many were deleted.
// keepDays <= 0 keeps everything.
func (s *Store) Cleanup(ctx context.Context, keepDays int) (int64, error) {
	if keepDays <= 0 {
		return 0, nil
	}

	cutoff := time.Now().AddDate(0, 0, -keepDays).UTC()
	result, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("cleanup old runs: %w", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return deleted, nil
}
