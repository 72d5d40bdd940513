// Package snapshot provides durable persistence for the relational collections.
// The SQLite driver uses modernc.org/sqlite, a pure Go implementation that
// doesn't require CGO, keeping the binary a single cross-platform artifact.
package snapshot

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// SQLiteConfig holds SQLite connection settings for the snapshot store.
type SQLiteConfig struct {
	// Path is the path to the database file. Use ":memory:" for an
	// in-memory database.
	Path string

	// JournalMode sets the SQLite journal mode (WAL recommended).
	JournalMode string

	// BusyTimeout sets the busy timeout in milliseconds.
	BusyTimeout int

	// SynchronousMode sets the synchronous mode (NORMAL, FULL, OFF).
	SynchronousMode string
}

// DefaultSQLiteConfig returns a default SQLite configuration.
func DefaultSQLiteConfig(path string) SQLiteConfig {
	return SQLiteConfig{
		Path:            path,
		JournalMode:     "WAL",
		BusyTimeout:     5000,
		SynchronousMode: "NORMAL",
	}
}

// SQLiteStore persists the snapshot in an embedded SQLite database.
// Each collection is one row in a key/value table; Save replaces all
// rows in a single transaction, so loads never observe a mix of old
// and new collections.
type SQLiteStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

const snapshotSchema = `
CREATE TABLE IF NOT EXISTS snapshot (
	name       TEXT PRIMARY KEY,
	data       BLOB NOT NULL,
	updated_at TEXT NOT NULL
);`

// NewSQLiteStore opens (and if necessary creates) the snapshot database.
func NewSQLiteStore(ctx context.Context, cfg SQLiteConfig, logger zerolog.Logger) (*SQLiteStore, error) {
	if cfg.Path != ":memory:" {
		if dir := filepath.Dir(cfg.Path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	connStr := fmt.Sprintf(
		"%s?_journal_mode=%s&_busy_timeout=%d&_synchronous=%s",
		cfg.Path, cfg.JournalMode, cfg.BusyTimeout, cfg.SynchronousMode,
	)

	db, err := sql.Open("sqlite", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// SQLite works best with a single writer.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	if _, err := db.ExecContext(ctx, snapshotSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create snapshot schema: %w", err)
	}

	l := logger.With().Str("component", "snapshot").Str("driver", "sqlite").Logger()
	l.Info().Str("path", cfg.Path).Str("journal_mode", cfg.JournalMode).
		Msg("opened snapshot database")

	return &SQLiteStore{db: db, logger: l}, nil
}

// Load reads the persisted snapshot. Missing rows yield empty
// collections; corrupt row payloads degrade to empty with a warning.
func (s *SQLiteStore) Load(ctx context.Context) (*Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, data FROM snapshot`)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot: %w", err)
	}
	defer rows.Close()

	snap := Empty()
	for rows.Next() {
		var name string
		var data []byte
		if err := rows.Scan(&name, &data); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}
		switch name {
		case "users":
			decodeCollection(s.logger, name, json.RawMessage(data), &snap.Users)
		case "videos":
			decodeCollection(s.logger, name, json.RawMessage(data), &snap.Videos)
		case "comments":
			decodeCollection(s.logger, name, json.RawMessage(data), &snap.Comments)
		default:
			s.logger.Warn().Str("collection", name).Msg("ignoring unknown snapshot row")
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read snapshot rows: %w", err)
	}
	return snap, nil
}

// Save atomically replaces all persisted collections in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, snap *Snapshot) error {
	collections := []struct {
		name  string
		value any
	}{
		{"users", snap.Users},
		{"videos", snap.Videos},
		{"comments", snap.Comments},
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC().Format(time.RFC3339Nano)
	for _, c := range collections {
		data, err := json.Marshal(c.value)
		if err != nil {
			return fmt.Errorf("failed to encode %s: %w", c.name, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT INTO snapshot (name, data, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(name) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
			c.name, data, now,
		)
		if err != nil {
			return fmt.Errorf("failed to write %s: %w", c.name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit snapshot: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
