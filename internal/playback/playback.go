// Package playback implements the media playback engine. It resolves a
// video record to playable bytes (a remote locator or a locally stored
// binary object), drives a deterministic playback state machine, and
// exposes transport controls with inactivity-based controls fading.
//
// The engine never mutates persisted records except for the single
// view-count increment at session start, which goes through the domain
// store like every other mutation.
package playback

import (
	"context"
	"time"
)

// State is the playback session's primary state.
//
// Transitions: Resolving -> Ready -> {Playing <-> Paused} -> Ended.
// The controls-visibility and fullscreen sub-states are orthogonal.
type State int

const (
	// StateResolving means the session is classifying the video's
	// source and, for local sources, fetching the binary object. A
	// session whose object is absent stays here indefinitely; the
	// caller observes it as a loading indicator.
	StateResolving State = iota

	// StateReady means the playable handle is assigned and the
	// platform has reported media metadata (duration).
	StateReady

	// StatePlaying means playback is in progress.
	StatePlaying

	// StatePaused means playback is halted but resumable.
	StatePaused

	// StateEnded means the platform reported playback completion.
	StateEnded
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateResolving:
		return "resolving"
	case StateReady:
		return "ready"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateEnded:
		return "ended"
	default:
		return "unknown"
	}
}

// Surface is the platform media layer the engine drives. The UI layer
// implements it over whatever actually renders frames; the engine only
// issues commands and mirrors the platform's reports.
type Surface interface {
	// Load assigns the playable handle (a remote locator or a staged
	// local path) to the underlying media element.
	Load(location string)

	// Play starts or resumes playback. The platform may reject the
	// attempt (e.g. an autoplay policy); a rejection is an expected
	// outcome, not an engine error.
	Play(ctx context.Context) error

	// Pause halts playback.
	Pause()

	// Seek moves the playhead. The engine does not clamp the target;
	// range handling is the platform's responsibility.
	Seek(pos time.Duration)

	// SetVolume sets the output volume in [0,1].
	SetVolume(v float64)

	// SetFullscreen requests the platform fullscreen transition for
	// the player's container.
	SetFullscreen(on bool) error
}

// Options configure one playback session.
type Options struct {
	// Autoplay attempts to start playback as soon as the session
	// reaches Ready. A platform rejection falls back to Paused.
	Autoplay bool

	// OnEnded, if set, is invoked when the platform reports playback
	// completion (e.g. to advance to the next video).
	OnEnded func()
}

// Config holds playback engine settings.
type Config struct {
	// ControlsHideDelay is the inactivity window before controls fade
	// while playing.
	ControlsHideDelay time.Duration

	// ResolveTimeout bounds the object-store fetch for local sources.
	// Zero disables the bound.
	ResolveTimeout time.Duration

	// StagingDir is where transient handles for local media are
	// materialized. Empty means the OS temp directory.
	StagingDir string
}

// DefaultConfig returns the default playback configuration.
func DefaultConfig() Config {
	return Config{
		ControlsHideDelay: 3 * time.Second,
	}
}

// ViewCounter records one view per playback-session start. It is
// satisfied by the domain store.
type ViewCounter interface {
	AddView(ctx context.Context, videoID string) error
}
