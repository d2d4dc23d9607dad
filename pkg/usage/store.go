// Package usage records completed chat turns to SQLite for accounting and
// debugging, with scheduled pruning of old records.
package usage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"
)

// TurnRecord is one completed chat turn.
type TurnRecord struct {
	ID               string
	RequestID        string
	SessionID        string
	Model            string
	Mode             string // "stream" or "complete"
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Duration         time.Duration
	Outcome          string // "success" or "error"
	Error            string
	CreatedAt        time.Time
}

// StoreConfig contains configuration for the usage store.
type StoreConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 10
	MaxOpenConns int

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// Store persists turn records to SQLite.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewStore opens the usage database, enables WAL mode, and applies the
// schema.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 10
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open usage database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)

	s := &Store{
		db:     db,
		logger: slog.Default().With("component", "usage.store"),
	}

	if err := s.initialize(cfg.BusyTimeout); err != nil {
		db.Close()
		return nil, err
	}

	s.logger.Info("usage store initialized", "path", cfg.Path)
	return s, nil
}

func (s *Store) initialize(busyTimeout time.Duration) error {
	if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeout.Milliseconds())); err != nil {
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return fmt.Errorf("failed to create usage schema: %w", err)
	}
	if _, err := s.db.Exec(insertSchemaVersion, SchemaVersion); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}

	var version int
	if err := s.db.QueryRow(getSchemaVersion).Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version != SchemaVersion {
		return fmt.Errorf("usage schema version mismatch: expected %d, got %d", SchemaVersion, version)
	}
	return nil
}

// Record persists one turn record.
func (s *Store) Record(ctx context.Context, record *TurnRecord) error {
	var errorVal any
	if record.Error != "" {
		errorVal = record.Error
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO turns (
			id, request_id, session_id, model, mode,
			prompt_tokens, completion_tokens, total_tokens,
			duration_ms, outcome, error, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		record.ID, record.RequestID, record.SessionID, record.Model, record.Mode,
		record.PromptTokens, record.CompletionTokens, record.TotalTokens,
		record.Duration.Milliseconds(), record.Outcome, errorVal, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record turn: %w", err)
	}
	return nil
}

// Recent returns the most recent turn records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]*TurnRecord, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, request_id, session_id, model, mode,
		       prompt_tokens, completion_tokens, total_tokens,
		       duration_ms, outcome, error, created_at
		FROM turns
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query turns: %w", err)
	}
	defer rows.Close()

	records := []*TurnRecord{}
	for rows.Next() {
		var record TurnRecord
		var durationMs int64
		var errorVal sql.NullString
		err := rows.Scan(
			&record.ID, &record.RequestID, &record.SessionID, &record.Model, &record.Mode,
			&record.PromptTokens, &record.CompletionTokens, &record.TotalTokens,
			&durationMs, &record.Outcome, &errorVal, &record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan turn record: %w", err)
		}
		record.Duration = time.Duration(durationMs) * time.Millisecond
		if errorVal.Valid {
			record.Error = errorVal.String
		}
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate turn records: %w", err)
	}
	return records, nil
}

// Count returns the total number of stored turn records.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM turns").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count turns: %w", err)
	}
	return count, nil
}

// Prune deletes records created before the cutoff and returns how many were
// removed.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM turns WHERE created_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune turns: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned turns: %w", err)
	}
	return deleted, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close usage database: %w", err)
	}
	s.logger.Info("usage store closed")
	return nil
}
