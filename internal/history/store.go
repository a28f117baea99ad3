package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"murmur/internal/batch"
	"murmur/internal/services"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes incompatibly.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was written by another schema version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// FileName is the database file name inside the data directory.
const FileName = "history.db"

// Store persists run history in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Run is one recorded batch.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Total      int
	Succeeded  int
	Failed     int
	Cancelled  int
	Files      []File
}

// File is one recorded input of a run.
type File struct {
	Position        int
	Path            string
	Status          string
	OutputPath      string
	ErrorKind       string
	ErrorMessage    string
	Language        string
	OnDevice        bool
	DurationSeconds float64
	Segments        int
	AvgConfidence   float64
}

// Open creates or opens the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Record stores a finished batch report.
func (s *Store) Record(ctx context.Context, report batch.Report) error {
	if strings.TrimSpace(report.RunID) == "" {
		return errors.New("record run: run id required")
	}
	return retryOnBusy(ctx, func() error {
		return s.record(ctx, report)
	})
}

func (s *Store) record(ctx context.Context, report batch.Report) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, started_at, finished_at, total, succeeded, failed, cancelled)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		report.RunID,
		formatTime(report.StartedAt),
		formatTime(report.FinishedAt),
		report.Total(),
		report.Succeeded,
		report.Failed,
		report.Cancelled,
	); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, item := range report.Items {
		f := fileFromItem(i, item)
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_files (
                run_id, position, path, status, output_path, error_kind, error_message,
                language, on_device, duration_seconds, segments, avg_confidence
            ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			report.RunID,
			f.Position,
			f.Path,
			f.Status,
			nullableString(f.OutputPath),
			nullableString(f.ErrorKind),
			nullableString(f.ErrorMessage),
			nullableString(f.Language),
			boolToInt(f.OnDevice),
			f.DurationSeconds,
			f.Segments,
			f.AvgConfidence,
		); err != nil {
			return fmt.Errorf("insert run file %s: %w", f.Path, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

func fileFromItem(position int, item batch.Item) File {
	f := File{
		Position:   position,
		Path:       item.Path,
		Status:     string(item.Status),
		OutputPath: item.Output,
	}
	if item.Err != nil {
		f.ErrorKind = services.Kind(item.Err)
		f.ErrorMessage = item.Err.Error()
	}
	if item.Status == batch.StatusDone {
		f.Language = item.Result.Language
		f.OnDevice = item.Result.IsOnDevice
		f.DurationSeconds = item.Result.Duration
		f.Segments = item.Result.SegmentCount()
		f.AvgConfidence = item.Result.AverageConfidence()
	}
	return f
}

// Recent returns up to limit runs, newest first, with their files.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, finished_at, total, succeeded, failed, cancelled
         FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	var runs []Run
	for rows.Next() {
		var (
			run               Run
			started, finished string
		)
		if err := rows.Scan(&run.ID, &started, &finished, &run.Total, &run.Succeeded, &run.Failed, &run.Cancelled); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt = parseTime(started)
		run.FinishedAt = parseTime(finished)
		runs = append(runs, run)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("close runs: %w", err)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}

	for i := range runs {
		files, err := s.files(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Files = files
	}
	return runs, nil
}

func (s *Store) files(ctx context.Context, runID string) ([]File, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT position, path, status, output_path, error_kind, error_message,
                language, on_device, duration_seconds, segments, avg_confidence
         FROM run_files WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query run files: %w", err)
	}
	defer rows.Close()

	var files []File
	for rows.Next() {
		var (
			f                               File
			output, kind, message, language sql.NullString
			onDevice                        int
		)
		if err := rows.Scan(&f.Position, &f.Path, &f.Status, &output, &kind, &message,
			&language, &onDevice, &f.DurationSeconds, &f.Segments, &f.AvgConfidence); err != nil {
			return nil, fmt.Errorf("scan run file: %w", err)
		}
		f.OutputPath = output.String
		f.ErrorKind = kind.String
		f.ErrorMessage = message.String
		f.Language = language.String
		f.OnDevice = onDevice != 0
		files = append(files, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run files: %w", err)
	}
	return files, nil
}

// Prune deletes runs that started before cutoff and returns how many were removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	var removed int64
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()
		// The foreign key pragma is per connection, so files are removed explicitly.
		if _, err := tx.ExecContext(ctx,
			`DELETE FROM run_files WHERE run_id IN (SELECT id FROM runs WHERE started_at < ?)`,
			formatTime(cutoff)); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, formatTime(cutoff))
		if err != nil {
			return err
		}
		if removed, err = res.RowsAffected(); err != nil {
			return err
		}
		return tx.Commit()
	})
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return removed, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}
