// Package snapshot provides durable persistence for the relational collections.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/localtube/localtube/internal/domain"
)

// FileStore persists the snapshot as a single JSON document.
// Saves write to a temp file in the target directory and rename it over
// the destination, so a crash mid-write leaves the previous snapshot
// intact and a later load never observes a partial document.
type FileStore struct {
	path   string
	logger zerolog.Logger
}

// NewFileStore creates a file-backed snapshot store at the given path.
// The containing directory is created lazily on first save.
func NewFileStore(path string, logger zerolog.Logger) *FileStore {
	return &FileStore{
		path:   path,
		logger: logger.With().Str("component", "snapshot").Str("driver", "file").Logger(),
	}
}

// fileDoc is the on-disk document shape. Collections decode
// independently so one corrupt collection does not take down the rest.
type fileDoc struct {
	Users    json.RawMessage `json:"users"`
	Videos   json.RawMessage `json:"videos"`
	Comments json.RawMessage `json:"comments"`
}

// Load reads the persisted snapshot. A missing file yields an empty
// snapshot. Corrupt data degrades to empty collections with a warning;
// it is never fatal to the caller.
func (s *FileStore) Load(ctx context.Context) (*Snapshot, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Empty(), nil
		}
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}

	var doc fileDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).
			Msg("snapshot document is corrupt, treating store as empty")
		return Empty(), nil
	}

	snap := Empty()
	decodeCollection(s.logger, "users", doc.Users, &snap.Users)
	decodeCollection(s.logger, "videos", doc.Videos, &snap.Videos)
	decodeCollection(s.logger, "comments", doc.Comments, &snap.Comments)
	return snap, nil
}

// Save atomically replaces the snapshot file.
func (s *FileStore) Save(ctx context.Context, snap *Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp snapshot: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// Close implements Store. The file store holds no open resources.
func (s *FileStore) Close() error {
	return nil
}

// decodeCollection decodes one collection, degrading to empty on any
// parse failure. The generic signature keeps the data-loss policy in
// one place for all three collections.
func decodeCollection[T domain.User | domain.Video | domain.Comment](logger zerolog.Logger, name string, raw json.RawMessage, out *[]*T) {
	if len(raw) == 0 {
		return
	}
	var items []*T
	if err := json.Unmarshal(raw, &items); err != nil {
		logger.Warn().Err(err).Str("collection", name).
			Msg("collection is corrupt, treating it as empty")
		return
	}
	if items != nil {
		*out = items
	}
}
