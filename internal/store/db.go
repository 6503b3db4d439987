package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"apm-exporter/internal/model"
)

// ErrNotFound is returned when a batch does not exist
var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS batches (
	id TEXT PRIMARY KEY,
	spec TEXT NOT NULL,
	status TEXT NOT NULL,
	success_count INTEGER NOT NULL DEFAULT 0,
	failure_count INTEGER NOT NULL DEFAULT 0,
	files TEXT NOT NULL DEFAULT '[]',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS batch_errors (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	batch_id TEXT NOT NULL,
	app_id TEXT NOT NULL,
	app_name TEXT NOT NULL,
	kind TEXT NOT NULL,
	class TEXT NOT NULL,
	error_message TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS batch_logs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	batch_id TEXT NOT NULL,
	level TEXT NOT NULL,
	message TEXT NOT NULL,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_batch_errors_batch ON batch_errors(batch_id);
CREATE INDEX IF NOT EXISTS idx_batch_logs_batch ON batch_logs(batch_id);

CREATE TABLE IF NOT EXISTS settings (
	key TEXT PRIMARY KEY,
	value TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);
`

const (
	settingAppIDs     = "app_ids"
	settingAppMapping = "app_mapping"
)

// Store keeps batch history, task errors, batch logs and last-used settings in sqlite
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path. ":memory:" is accepted for tests.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// a single connection serializes writers and keeps ":memory:" databases shared
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveBatch stores a new pending batch
func (s *Store) SaveBatch(ctx context.Context, id string, spec model.BatchSpec) error {
	specJSON, err := json.Marshal(spec)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO batches (id, spec, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, string(specJSON), "pending", now, now)
	return err
}

// UpdateBatchStatus sets the status of a batch
func (s *Store) UpdateBatchStatus(ctx context.Context, id, status string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE batches SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return expectRow(res)
}

// CompleteBatch records the final counts and files of a batch
func (s *Store) CompleteBatch(ctx context.Context, id string, result *model.BatchResult) error {
	files := result.Files
	if files == nil {
		files = []string{}
	}
	filesJSON, err := json.Marshal(files)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE batches SET status = ?, success_count = ?, failure_count = ?, files = ?, updated_at = ? WHERE id = ?`,
		string(model.BatchCompleted), result.SuccessCount, result.FailureCount, string(filesJSON), time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return expectRow(res)
}

func expectRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveBatchError records the terminal failure of one task
func (s *Store) SaveBatchError(ctx context.Context, batchID string, taskErr model.TaskError) error {
	ts := taskErr.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO batch_errors (batch_id, app_id, app_name, kind, class, error_message, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		batchID, taskErr.AppID, taskErr.AppName, string(taskErr.Kind), taskErr.Class, taskErr.Message, ts.UTC())
	return err
}

// SaveBatchLog appends one log line to a batch
func (s *Store) SaveBatchLog(ctx context.Context, batchID string, entry model.LogEntry) error {
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO batch_logs (batch_id, level, message, created_at) VALUES (?, ?, ?, ?)`,
		batchID, string(entry.Level), entry.Message, ts.UTC())
	return err
}

// ListBatches returns the most recent batches first; limit <= 0 returns all
func (s *Store) ListBatches(ctx context.Context, limit int) ([]model.BatchRecord, error) {
	query := `SELECT id, spec, status, success_count, failure_count, files, created_at, updated_at
		FROM batches ORDER BY created_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	batches := []model.BatchRecord{}
	for rows.Next() {
		rec, err := scanBatch(rows)
		if err != nil {
			return nil, err
		}
		batches = append(batches, *rec)
	}
	return batches, rows.Err()
}

// GetBatch fetches one batch
func (s *Store) GetBatch(ctx context.Context, id string) (*model.BatchRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, spec, status, success_count, failure_count, files, created_at, updated_at FROM batches WHERE id = ?`, id)
	rec, err := scanBatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return rec, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanBatch(sc scanner) (*model.BatchRecord, error) {
	var (
		rec       model.BatchRecord
		specJSON  string
		filesJSON string
	)
	if err := sc.Scan(&rec.ID, &specJSON, &rec.Status, &rec.SuccessCount, &rec.FailureCount, &filesJSON, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(specJSON), &rec.Spec); err != nil {
		return nil, fmt.Errorf("corrupt spec for batch %s: %w", rec.ID, err)
	}
	if err := json.Unmarshal([]byte(filesJSON), &rec.Files); err != nil {
		return nil, fmt.Errorf("corrupt files for batch %s: %w", rec.ID, err)
	}
	return &rec, nil
}

// GetBatchErrors returns the task errors of a batch in insertion order
func (s *Store) GetBatchErrors(ctx context.Context, batchID string) ([]model.TaskError, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT app_id, app_name, kind, class, error_message, created_at FROM batch_errors WHERE batch_id = ? ORDER BY id`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	errs := []model.TaskError{}
	for rows.Next() {
		var (
			e    model.TaskError
			kind string
		)
		if err := rows.Scan(&e.AppID, &e.AppName, &kind, &e.Class, &e.Message, &e.Timestamp); err != nil {
			return nil, err
		}
		e.Kind = model.DatasetKind(kind)
		errs = append(errs, e)
	}
	return errs, rows.Err()
}

// GetBatchLogs returns the log lines of a batch in order
func (s *Store) GetBatchLogs(ctx context.Context, batchID string) ([]model.LogEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT level, message, created_at FROM batch_logs WHERE batch_id = ? ORDER BY id`, batchID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := []model.LogEntry{}
	for rows.Next() {
		var (
			entry model.LogEntry
			level string
		)
		if err := rows.Scan(&level, &entry.Message, &entry.Timestamp); err != nil {
			return nil, err
		}
		entry.Level = model.LogLevel(level)
		logs = append(logs, entry)
	}
	return logs, rows.Err()
}

// SaveSettings upserts the last-used application list and mapping
func (s *Store) SaveSettings(ctx context.Context, settings model.Settings) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for key, value := range map[string]string{
		settingAppIDs:     settings.AppIDs,
		settingAppMapping: settings.AppMapping,
	} {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
			key, value, now); err != nil {
			return fmt.Errorf("failed to save setting %s: %w", key, err)
		}
	}
	return tx.Commit()
}

// LoadSettings returns the saved settings; ok is false when nothing was saved yet
func (s *Store) LoadSettings(ctx context.Context) (settings model.Settings, ok bool, err error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings WHERE key IN (?, ?)`, settingAppIDs, settingAppMapping)
	if err != nil {
		return settings, false, err
	}
	defer rows.Close()

	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return settings, false, err
		}
		ok = true
		switch key {
		case settingAppIDs:
			settings.AppIDs = value
		case settingAppMapping:
			settings.AppMapping = value
		}
	}
	return settings, ok, rows.Err()
}
