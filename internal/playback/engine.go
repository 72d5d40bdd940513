// Package playback implements the media playback engine.
package playback

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"github.com/localtube/localtube/internal/blobstore"
	"github.com/localtube/localtube/internal/domain"
)

// Engine creates and supervises playback sessions. At most one session
// is active at a time; starting a session for a new video tears down
// the previous one, releasing its transient handle. Safe for concurrent
// use, like the sessions it creates.
type Engine struct {
	blobs  blobstore.Store
	views  ViewCounter
	cfg    Config
	logger zerolog.Logger

	mu sync.Mutex
	// generation counts sessions ever started. Each session carries
	// the generation it was born with; a late asynchronous resolve
	// result for a superseded generation is discarded, never applied.
	generation uint64
	active     *Session
}

// NewEngine creates a playback engine.
func NewEngine(blobs blobstore.Store, views ViewCounter, cfg Config, logger zerolog.Logger) *Engine {
	if cfg.ControlsHideDelay <= 0 {
		cfg.ControlsHideDelay = DefaultConfig().ControlsHideDelay
	}
	return &Engine{
		blobs:  blobs,
		views:  views,
		cfg:    cfg,
		logger: logger.With().Str("component", "playback").Logger(),
	}
}

// Start begins a playback session for the given video on the given
// surface. Any previously active session is closed first. The view
// counter is recorded exactly once, here, at session start - never per
// time-update tick.
func (e *Engine) Start(ctx context.Context, video *domain.Video, surface Surface, opts Options) *Session {
	e.mu.Lock()
	prev := e.active
	e.generation++
	s := newSession(e, video, surface, opts, e.generation)
	e.active = s
	e.mu.Unlock()

	if prev != nil {
		prev.Close()
	}

	if err := e.views.AddView(ctx, video.ID); err != nil {
		// A failed view increment must not block playback.
		s.logger.Warn().Err(err).Msg("failed to record view")
	}

	s.resolve(ctx)
	return s
}

// Active returns the currently active session, or nil.
func (e *Engine) Active() *Session {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.active
}

// Close tears down the active session, if any.
func (e *Engine) Close() {
	e.mu.Lock()
	active := e.active
	e.active = nil
	e.mu.Unlock()

	if active != nil {
		active.Close()
	}
}
