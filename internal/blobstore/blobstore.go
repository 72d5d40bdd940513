// Package blobstore provides the binary object store for uploaded media
// payloads. It is keyed by video id and intentionally separate from the
// textual snapshot path: multi-megabyte media bytes never travel through
// the serialized snapshot. The store is a dumb persistence surface with
// no business rules; which keys exist is known only through the Video
// records that reference them.
package blobstore

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/localtube/localtube/internal/config"
)

// Store is the interface for binary object persistence.
//
// Operations for different keys never conflict. A Get concurrent with
// an in-flight Put for the same key is not guaranteed to observe the
// written bytes; callers sequence upload completion before playback.
type Store interface {
	// Put stores or overwrites the payload for key. The underlying
	// store is initialized lazily and idempotently on first use.
	Put(ctx context.Context, key string, r io.Reader) error

	// Get retrieves a previously stored payload. Returns
	// domain.ErrObjectNotFound if nothing was ever stored under key;
	// absence is a result, not a fault. The caller must close the
	// returned reader.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists reports whether a payload is stored under key.
	Exists(ctx context.Context, key string) (bool, error)

	// Size returns the payload size in bytes, or
	// domain.ErrObjectNotFound if the key was never stored.
	Size(ctx context.Context, key string) (int64, error)

	// Delete removes the payload for key. Deleting an absent key is a
	// no-op, so cleanup paths can call it unconditionally.
	Delete(ctx context.Context, key string) error
}

// New creates an object store based on configuration.
func New(cfg config.BlobsConfig, logger zerolog.Logger) (Store, error) {
	switch cfg.Driver {
	case "filesystem":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("filesystem blob store requires data_dir to be set")
		}
		return NewFilesystemStore(cfg.DataDir, logger), nil
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown blob store driver: %s", cfg.Driver)
	}
}
