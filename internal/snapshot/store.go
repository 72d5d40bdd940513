// Package snapshot provides durable persistence for the relational
// collections (users, videos, comments). The three collections are
// persisted together as one atomically replaced unit: a write-through
// save after every mutation, never a partial write visible to a later
// load. Large media payloads deliberately do not travel through this
// path; they live in the blobstore package.
package snapshot

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/localtube/localtube/internal/config"
	"github.com/localtube/localtube/internal/domain"
)

// Snapshot is the serialized unit of the three relational collections.
// Slice order is significant: videos are most-recent-first by insertion
// and comments are in append order.
type Snapshot struct {
	Users    []*domain.User    `json:"users"`
	Videos   []*domain.Video   `json:"videos"`
	Comments []*domain.Comment `json:"comments"`
}

// Empty returns a snapshot with empty (non-nil) collections.
func Empty() *Snapshot {
	return &Snapshot{
		Users:    []*domain.User{},
		Videos:   []*domain.Video{},
		Comments: []*domain.Comment{},
	}
}

// IsEmpty reports whether the snapshot holds no records at all.
func (s *Snapshot) IsEmpty() bool {
	return len(s.Users) == 0 && len(s.Videos) == 0 && len(s.Comments) == 0
}

// Store is the persistence surface for snapshots.
//
// Load never fails on corrupt persisted data: a collection that cannot
// be decoded degrades to empty (a data-loss condition, logged, never a
// crash). Save atomically replaces all persisted collections.
type Store interface {
	// Load returns the persisted snapshot, or an empty snapshot if
	// nothing has been persisted yet.
	Load(ctx context.Context) (*Snapshot, error)

	// Save atomically replaces the persisted snapshot.
	Save(ctx context.Context, snap *Snapshot) error

	// Close releases any resources held by the store.
	Close() error
}

// New creates a snapshot store based on configuration.
func New(ctx context.Context, cfg config.SnapshotConfig, logger zerolog.Logger) (Store, error) {
	switch cfg.Driver {
	case "file":
		return NewFileStore(cfg.Path, logger), nil
	case "sqlite":
		return NewSQLiteStore(ctx, SQLiteConfig{
			Path:            cfg.Path,
			JournalMode:     cfg.JournalMode,
			BusyTimeout:     cfg.BusyTimeout,
			SynchronousMode: cfg.SynchronousMode,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown snapshot driver: %s", cfg.Driver)
	}
}
