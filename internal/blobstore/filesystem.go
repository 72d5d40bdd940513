// Package blobstore provides the binary object store for media payloads.
package blobstore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"

	"github.com/localtube/localtube/internal/domain"
)

// FilesystemStore stores each payload as one file under a root
// directory, named by its key. Writes go to a temp file first and are
// renamed into place, so a crash mid-write never leaves a partially
// written object observable.
type FilesystemStore struct {
	root   string
	logger zerolog.Logger

	initOnce sync.Once
	initErr  error
}

// NewFilesystemStore creates a filesystem-backed object store rooted at
// the given directory. The directory is created lazily on first use.
func NewFilesystemStore(root string, logger zerolog.Logger) *FilesystemStore {
	return &FilesystemStore{
		root:   root,
		logger: logger.With().Str("component", "blobstore").Str("driver", "filesystem").Logger(),
	}
}

// init creates the root directory once. Safe to call repeatedly.
func (s *FilesystemStore) init() error {
	s.initOnce.Do(func() {
		s.initErr = os.MkdirAll(s.root, 0o755)
	})
	return s.initErr
}

// objectPath returns the on-disk path for a key. Keys are opaque ids
// generated by the store layer, never caller-supplied paths.
func (s *FilesystemStore) objectPath(key string) string {
	return filepath.Join(s.root, filepath.Base(key))
}

// Put stores or overwrites the payload for key.
func (s *FilesystemStore) Put(ctx context.Context, key string, r io.Reader) error {
	if err := s.init(); err != nil {
		return fmt.Errorf("failed to initialize blob store: %w", err)
	}

	tmp, err := os.CreateTemp(s.root, ".blob-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp blob: %w", err)
	}
	tmpPath := tmp.Name()

	written, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp blob: %w", err)
	}

	dest := s.objectPath(key)
	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to store blob: %w", err)
	}

	s.logger.Debug().Str("key", key).Int64("size", written).Msg("blob stored")
	return nil
}

// Get retrieves a stored payload. The caller must close the reader.
func (s *FilesystemStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(s.objectPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrObjectNotFound
		}
		return nil, fmt.Errorf("failed to open blob: %w", err)
	}
	return f, nil
}

// Exists reports whether a payload is stored under key.
func (s *FilesystemStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(s.objectPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat blob: %w", err)
	}
	return true, nil
}

// Delete removes the payload for key. Absent keys are a no-op.
func (s *FilesystemStore) Delete(ctx context.Context, key string) error {
	if err := os.Remove(s.objectPath(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete blob: %w", err)
	}
	return nil
}

// Size returns the stored payload size in bytes.
func (s *FilesystemStore) Size(ctx context.Context, key string) (int64, error) {
	info, err := os.Stat(s.objectPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return 0, domain.ErrObjectNotFound
		}
		return 0, fmt.Errorf("failed to stat blob: %w", err)
	}
	return info.Size(), nil
}
