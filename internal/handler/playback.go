package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/localtube/localtube/internal/playback"
)

// The playback endpoints drive the engine from the UI process. The UI
// owns the actual media element, so the engine's surface commands are
// queued here and drained by the UI on each state poll, while platform
// events (metadata, play, pause, ended, fullscreen) flow back in as
// POSTs. One session is active at a time, mirroring the engine.

// surfaceCommand is one queued instruction for the UI's media element.
type surfaceCommand struct {
	Op         string   `json:"op"`
	Location   string   `json:"location,omitempty"`
	PositionMs int64    `json:"positionMs,omitempty"`
	Volume     *float64 `json:"volume,omitempty"`
	Fullscreen *bool    `json:"fullscreen,omitempty"`
}

// remoteSurface queues engine commands for the UI to drain. It never
// blocks the engine on the UI being connected.
type remoteSurface struct {
	mu       sync.Mutex
	commands []surfaceCommand
}

func (s *remoteSurface) push(c surfaceCommand) {
	s.mu.Lock()
	s.commands = append(s.commands, c)
	s.mu.Unlock()
}

// drain returns and clears the queued commands.
func (s *remoteSurface) drain() []surfaceCommand {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.commands
	s.commands = nil
	if out == nil {
		out = []surfaceCommand{}
	}
	return out
}

func (s *remoteSurface) Load(location string) {
	s.push(surfaceCommand{Op: "load", Location: location})
}

// Play queues the command and reports success; if the UI's autoplay
// policy refuses it, the UI posts a pause event and the session settles
// in Paused through the normal report path.
func (s *remoteSurface) Play(ctx context.Context) error {
	s.push(surfaceCommand{Op: "play"})
	return nil
}

func (s *remoteSurface) Pause() {
	s.push(surfaceCommand{Op: "pause"})
}

func (s *remoteSurface) Seek(pos time.Duration) {
	s.push(surfaceCommand{Op: "seek", PositionMs: pos.Milliseconds()})
}

func (s *remoteSurface) SetVolume(v float64) {
	s.push(surfaceCommand{Op: "set-volume", Volume: &v})
}

func (s *remoteSurface) SetFullscreen(on bool) error {
	s.push(surfaceCommand{Op: "set-fullscreen", Fullscreen: &on})
	return nil
}

// =============================================================================
// Handlers
// =============================================================================

// playbackState is the polled session view: the state machine outputs
// plus the surface commands queued since the last poll.
type playbackState struct {
	VideoID         string           `json:"videoId"`
	State           string           `json:"state"`
	DurationMs      int64            `json:"durationMs"`
	ControlsVisible bool             `json:"controlsVisible"`
	Fullscreen      bool             `json:"fullscreen"`
	Muted           bool             `json:"muted"`
	Volume          float64          `json:"volume"`
	Commands        []surfaceCommand `json:"commands"`
}

func statePayload(s *playback.Session, commands []surfaceCommand) playbackState {
	return playbackState{
		VideoID:         s.Video().ID,
		State:           s.State().String(),
		DurationMs:      s.Duration().Milliseconds(),
		ControlsVisible: s.ControlsVisible(),
		Fullscreen:      s.Fullscreen(),
		Muted:           s.Muted(),
		Volume:          s.Volume(),
		Commands:        commands,
	}
}

// activePlayback returns the active session and its surface, or false
// when nothing is playing.
func (a *API) activePlayback() (*playback.Session, *remoteSurface, bool) {
	session := a.playback.Active()
	a.surfaceMu.Lock()
	surface := a.surface
	a.surfaceMu.Unlock()
	if session == nil || surface == nil {
		return nil, nil, false
	}
	return session, surface, true
}

type playbackStartRequest struct {
	VideoID  string `json:"videoId"`
	Autoplay bool   `json:"autoplay"`
}

func (a *API) handlePlaybackStart(w http.ResponseWriter, r *http.Request) {
	var req playbackStartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	video, err := a.store.Video(req.VideoID)
	if err != nil {
		a.writeStoreError(w, err)
		return
	}

	surface := &remoteSurface{}
	a.surfaceMu.Lock()
	a.surface = surface
	a.surfaceMu.Unlock()

	session := a.playback.Start(r.Context(), video, surface, playback.Options{
		Autoplay: req.Autoplay,
	})
	writeJSON(w, http.StatusCreated, statePayload(session, surface.drain()))
}

func (a *API) handlePlaybackState(w http.ResponseWriter, r *http.Request) {
	session, surface, ok := a.activePlayback()
	if !ok {
		writeError(w, http.StatusNotFound, "no active playback session")
		return
	}
	writeJSON(w, http.StatusOK, statePayload(session, surface.drain()))
}

func (a *API) handlePlaybackStop(w http.ResponseWriter, r *http.Request) {
	a.playback.Close()
	w.WriteHeader(http.StatusNoContent)
}

type playbackEventRequest struct {
	Type       string `json:"type"`
	DurationMs int64  `json:"durationMs"`
	Fullscreen bool   `json:"fullscreen"`
}

// handlePlaybackEvent mirrors a UI media-element event into the session.
func (a *API) handlePlaybackEvent(w http.ResponseWriter, r *http.Request) {
	var req playbackEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, _, ok := a.activePlayback()
	if !ok {
		writeError(w, http.StatusNotFound, "no active playback session")
		return
	}

	switch req.Type {
	case "metadata":
		session.ReportMetadata(time.Duration(req.DurationMs) * time.Millisecond)
	case "play":
		session.ReportPlay()
	case "pause":
		session.ReportPause()
	case "ended":
		session.ReportEnded()
	case "fullscreen":
		session.ReportFullscreen(req.Fullscreen)
	default:
		writeError(w, http.StatusBadRequest, "unknown event type")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type playbackControlRequest struct {
	Action     string   `json:"action"`
	PositionMs int64    `json:"positionMs"`
	Volume     *float64 `json:"volume"`
}

// handlePlaybackControl applies a transport-control action.
func (a *API) handlePlaybackControl(w http.ResponseWriter, r *http.Request) {
	var req playbackControlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, surface, ok := a.activePlayback()
	if !ok {
		writeError(w, http.StatusNotFound, "no active playback session")
		return
	}

	switch req.Action {
	case "toggle-play":
		session.TogglePlay(r.Context())
	case "seek":
		session.Seek(time.Duration(req.PositionMs) * time.Millisecond)
	case "set-volume":
		if req.Volume == nil {
			writeError(w, http.StatusBadRequest, "volume is required")
			return
		}
		session.SetVolume(*req.Volume)
	case "toggle-mute":
		session.ToggleMute()
	case "toggle-fullscreen":
		session.ToggleFullscreen()
	default:
		writeError(w, http.StatusBadRequest, "unknown control action")
		return
	}
	writeJSON(w, http.StatusOK, statePayload(session, surface.drain()))
}

type playbackPointerRequest struct {
	Action string `json:"action"`
}

// handlePlaybackPointer feeds pointer activity into the controls-fade
// logic.
func (a *API) handlePlaybackPointer(w http.ResponseWriter, r *http.Request) {
	var req playbackPointerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, _, ok := a.activePlayback()
	if !ok {
		writeError(w, http.StatusNotFound, "no active playback session")
		return
	}

	switch req.Action {
	case "moved":
		session.PointerMoved()
	case "left":
		session.PointerLeft()
	default:
		writeError(w, http.StatusBadRequest, "unknown pointer action")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// playbackRoutes registers the playback endpoints.
func (a *API) playbackRoutes(r chi.Router) {
	r.Post("/start", a.handlePlaybackStart)
	r.Get("/", a.handlePlaybackState)
	r.Delete("/", a.handlePlaybackStop)
	r.Post("/events", a.handlePlaybackEvent)
	r.Post("/controls", a.handlePlaybackControl)
	r.Post("/pointer", a.handlePlaybackPointer)
}
