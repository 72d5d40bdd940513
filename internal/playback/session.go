// Package playback implements the media playback engine.
package playback

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/localtube/localtube/internal/domain"
)

// Session is one active media session: a video, its resolved handle,
// and the playback state machine. Methods are safe for concurrent use;
// the inactivity timer fires on its own goroutine.
type Session struct {
	engine  *Engine
	video   *domain.Video
	surface Surface
	opts    Options
	logger  zerolog.Logger

	// cancel aborts an in-flight object-store fetch on teardown. The
	// fetch is cancellable only this way; there is no other caller.
	cancel context.CancelFunc

	mu         sync.Mutex
	generation uint64
	closed     bool

	state           State
	handle          *Handle
	duration        time.Duration
	controlsVisible bool
	fullscreen      bool
	muted           bool
	volume          float64
	hideTimer       *time.Timer
}

func newSession(e *Engine, video *domain.Video, surface Surface, opts Options, generation uint64) *Session {
	return &Session{
		engine:     e,
		video:      video,
		surface:    surface,
		opts:       opts,
		generation: generation,
		logger: e.logger.With().
			Str("video_id", video.ID).
			Uint64("generation", generation).
			Logger(),
		state:           StateResolving,
		controlsVisible: true,
		volume:          1,
	}
}

// Video returns the video this session plays.
func (s *Session) Video() *domain.Video {
	return s.video
}

// =============================================================================
// Source resolution
// =============================================================================

// resolve classifies the video source. Remote locators become the
// playable handle directly, with no object-store call. Local sources
// fetch the binary object asynchronously; an absent object or a failed
// fetch leaves the session in Resolving (logged, not surfaced).
func (s *Session) resolve(ctx context.Context) {
	src := s.video.Source
	if !src.IsLocal() {
		s.deliver(s.generation, remoteHandle(src.Locator))
		return
	}

	fetchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if s.engine.cfg.ResolveTimeout > 0 {
		fetchCtx, cancel = context.WithTimeout(context.WithoutCancel(ctx), s.engine.cfg.ResolveTimeout)
	}
	s.cancel = cancel

	gen := s.generation
	go func() {
		defer cancel()

		obj, err := s.engine.blobs.Get(fetchCtx, src.Locator)
		if err != nil {
			s.logger.Warn().Err(err).Str("object_key", src.Locator).
				Msg("local media fetch failed, staying in resolving")
			return
		}
		defer obj.Close()

		handle, err := stageHandle(s.engine.cfg.StagingDir, obj)
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to stage local media")
			return
		}
		s.deliver(gen, handle)
	}()
}

// deliver applies a resolved handle, unless the session was superseded
// or closed while the fetch was in flight - a late result for an older
// generation is released and discarded, never applied.
func (s *Session) deliver(gen uint64, handle *Handle) {
	s.mu.Lock()
	if s.closed || gen != s.generation {
		s.mu.Unlock()
		handle.Release()
		return
	}
	s.handle = handle
	s.mu.Unlock()

	s.surface.Load(handle.Location())
}

// =============================================================================
// Platform reports
// =============================================================================

// ReportMetadata is called by the platform once media metadata is
// loaded. The session transitions to Ready; with autoplay set it
// immediately attempts Playing, falling back to Paused if the platform
// rejects the attempt.
func (s *Session) ReportMetadata(duration time.Duration) {
	s.mu.Lock()
	if s.closed || s.handle == nil || s.state != StateResolving {
		s.mu.Unlock()
		return
	}
	s.duration = duration
	s.state = StateReady
	autoplay := s.opts.Autoplay
	s.mu.Unlock()

	s.logger.Debug().Dur("duration", duration).Msg("media ready")

	if autoplay {
		if err := s.surface.Play(context.Background()); err != nil {
			// Autoplay rejection is policy, not failure.
			s.logger.Debug().Err(err).Msg("autoplay rejected, staying paused")
			s.setState(StatePaused)
			return
		}
		s.setState(StatePlaying)
		s.armHideTimer()
	}
}

// ReportPlay mirrors an underlying play event, whatever triggered it.
func (s *Session) ReportPlay() {
	s.setState(StatePlaying)
	s.armHideTimer()
}

// ReportPause mirrors an underlying pause event. Controls are always
// visible while paused.
func (s *Session) ReportPause() {
	s.stopHideTimer()
	s.mu.Lock()
	if !s.closed && (s.state == StatePlaying || s.state == StateReady) {
		s.state = StatePaused
	}
	s.controlsVisible = true
	s.mu.Unlock()
}

// ReportEnded mirrors playback completion. Playing stops, controls
// come back, and the caller-supplied continuation (if any) runs.
func (s *Session) ReportEnded() {
	s.stopHideTimer()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.state = StateEnded
	s.controlsVisible = true
	onEnded := s.opts.OnEnded
	s.mu.Unlock()

	s.logger.Debug().Msg("playback ended")
	if onEnded != nil {
		onEnded()
	}
}

// ReportFullscreen mirrors the platform's fullscreen-change signal.
// State follows the signal, not the button press, so an externally
// triggered fullscreen exit is reflected correctly.
func (s *Session) ReportFullscreen(on bool) {
	s.mu.Lock()
	s.fullscreen = on
	s.mu.Unlock()
}

// =============================================================================
// Transport controls
// =============================================================================

// TogglePlay flips between Playing and Paused. Invoked by the control
// button and by clicks on the playback surface alike.
func (s *Session) TogglePlay(ctx context.Context) {
	s.mu.Lock()
	if s.closed || s.state == StateResolving {
		s.mu.Unlock()
		return
	}
	playing := s.state == StatePlaying
	s.mu.Unlock()

	if playing {
		s.surface.Pause()
		s.ReportPause()
		return
	}
	if err := s.surface.Play(ctx); err != nil {
		s.logger.Debug().Err(err).Msg("play attempt rejected")
		return
	}
	s.ReportPlay()
}

// Seek moves the playhead. Targets are passed through unclamped;
// concurrent seeks are last-write-wins.
func (s *Session) Seek(pos time.Duration) {
	s.mu.Lock()
	if s.closed || s.state == StateResolving {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.surface.Seek(pos)
}

// SetVolume sets the volume in [0,1]. Zero implies muted.
func (s *Session) SetVolume(v float64) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.volume = v
	s.muted = v == 0
	s.mu.Unlock()
	s.surface.SetVolume(v)
}

// ToggleMute flips the mute state. Unmuting restores volume to 1, not
// to the last non-zero value; this mirrors the original design and is
// kept deliberately.
func (s *Session) ToggleMute() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.muted {
		s.muted = false
		s.volume = 1
	} else {
		s.muted = true
		s.volume = 0
	}
	v := s.volume
	s.mu.Unlock()
	s.surface.SetVolume(v)
}

// ToggleFullscreen requests the platform transition. The mirrored state
// only changes when the platform reports it via ReportFullscreen.
func (s *Session) ToggleFullscreen() {
	s.mu.Lock()
	target := !s.fullscreen
	s.mu.Unlock()

	if err := s.surface.SetFullscreen(target); err != nil {
		s.logger.Debug().Err(err).Bool("fullscreen", target).Msg("fullscreen request rejected")
	}
}

// =============================================================================
// Controls visibility
// =============================================================================

// PointerMoved reports pointer activity over the player. While playing
// it shows the controls and re-arms the inactivity timer.
func (s *Session) PointerMoved() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.controlsVisible = true
	playing := s.state == StatePlaying
	s.mu.Unlock()

	if playing {
		s.armHideTimer()
	}
}

// PointerLeft reports the pointer leaving the player area. While
// playing the controls hide immediately.
func (s *Session) PointerLeft() {
	s.stopHideTimer()
	s.mu.Lock()
	if !s.closed && s.state == StatePlaying {
		s.controlsVisible = false
	}
	s.mu.Unlock()
}

// armHideTimer (re)starts the inactivity countdown.
func (s *Session) armHideTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.hideTimer != nil {
		s.hideTimer.Stop()
	}
	s.hideTimer = time.AfterFunc(s.engine.cfg.ControlsHideDelay, s.hideControls)
}

// hideControls fires on timer expiry. Controls only hide while playing.
func (s *Session) hideControls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state != StatePlaying {
		return
	}
	s.controlsVisible = false
}

// setState applies a transition unless the session is closed.
func (s *Session) setState(st State) {
	s.mu.Lock()
	if !s.closed {
		s.state = st
	}
	s.mu.Unlock()
}

func (s *Session) stopHideTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hideTimer != nil {
		s.hideTimer.Stop()
		s.hideTimer = nil
	}
}

// =============================================================================
// Observation and teardown
// =============================================================================

// State returns the session's primary state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Duration returns the media duration reported by the platform.
func (s *Session) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.duration
}

// ControlsVisible reports whether the transport controls are shown.
func (s *Session) ControlsVisible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controlsVisible
}

// Fullscreen reports the mirrored platform fullscreen state.
func (s *Session) Fullscreen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fullscreen
}

// Muted reports whether output is muted.
func (s *Session) Muted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.muted
}

// Volume returns the current volume in [0,1].
func (s *Session) Volume() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.volume
}

// Close tears the session down: the inactivity timer is cancelled so no
// dangling callback fires, an in-flight fetch is aborted, and the
// transient handle (if any) is released. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.hideTimer != nil {
		s.hideTimer.Stop()
		s.hideTimer = nil
	}
	handle := s.handle
	s.handle = nil
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	if handle != nil {
		if err := handle.Release(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to release media handle")
		}
	}
	s.logger.Debug().Msg("session closed")
}
