// Package handler provides the local HTTP boundary for the localtube
// core. The UI layer consumes the domain store's read operations here,
// calls its mutation operations in response to user actions, and
// fetches media bytes for playback. There is no change-notification
// mechanism: each mutation's caller re-reads the state it needs.
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/localtube/localtube/internal/blobstore"
	"github.com/localtube/localtube/internal/domain"
	"github.com/localtube/localtube/internal/playback"
	"github.com/localtube/localtube/internal/store"
)

// API exposes the domain store, object store, and playback engine over
// HTTP.
type API struct {
	store         *store.Store
	blobs         blobstore.Store
	playback      *playback.Engine
	metrics       *Metrics
	maxUploadSize int64
	metricsPath   string
	logger        zerolog.Logger

	// surface is the command queue for the active playback session,
	// swapped on each session start.
	surfaceMu sync.Mutex
	surface   *remoteSurface
}

// APIConfig contains configuration for the API handler.
type APIConfig struct {
	Store         *store.Store
	Blobs         blobstore.Store
	Playback      *playback.Engine
	Metrics       *Metrics
	MaxUploadSize int64
	MetricsPath   string
	Logger        zerolog.Logger
}

// NewAPI creates the boundary handler.
func NewAPI(cfg APIConfig) *API {
	return &API{
		store:         cfg.Store,
		blobs:         cfg.Blobs,
		playback:      cfg.Playback,
		metrics:       cfg.Metrics,
		maxUploadSize: cfg.MaxUploadSize,
		metricsPath:   cfg.MetricsPath,
		logger:        cfg.Logger.With().Str("component", "api").Logger(),
	}
}

// Handler returns the routed HTTP handler.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if a.metrics != nil {
		r.Use(a.metrics.Middleware)
	}

	r.Get("/healthz", a.handleHealth)
	if a.metrics != nil {
		path := a.metricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, a.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/register", a.handleRegister)
		r.Post("/login", a.handleLogin)
		r.Get("/users/{id}", a.handleGetUser)

		r.Get("/videos", a.handleListVideos)
		r.Post("/videos", a.handleUpload)
		r.Get("/videos/{id}", a.handleGetVideo)
		r.Post("/videos/{id}/view", a.handleAddView)
		r.Post("/videos/{id}/reaction", a.handleReaction)
		r.Get("/videos/{id}/comments", a.handleListComments)
		r.Post("/videos/{id}/comments", a.handleAddComment)

		r.Post("/subscriptions/toggle", a.handleToggleSubscribe)

		r.Get("/media/{id}", a.handleGetMedia)

		if a.playback != nil {
			r.Route("/playback", a.playbackRoutes)
		}
	})

	return r
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// =============================================================================
// Accounts
// =============================================================================

type registerRequest struct {
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
	Password    string `json:"password"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := a.store.Register(r.Context(), req.Username, req.DisplayName, req.Password)
	if err != nil {
		a.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, userPayload(user))
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := a.store.Login(req.Username, req.Password)
	if err != nil {
		a.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userPayload(user))
}

func (a *API) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := a.store.User(chi.URLParam(r, "id"))
	if err != nil {
		a.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userPayload(user))
}

// =============================================================================
// Videos
// =============================================================================

func (a *API) handleListVideos(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.store.Videos())
}

func (a *API) handleGetVideo(w http.ResponseWriter, r *http.Request) {
	video, err := a.store.Video(chi.URLParam(r, "id"))
	if err != nil {
		a.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, video)
}

// handleUpload accepts a multipart form with metadata fields and either
// a media file (stored in the object store, local source) or a remote
// URL. The blob write completes before the record is published, so a
// caller can play the new video as soon as the upload response lands.
func (a *API) handleUpload(w http.ResponseWriter, r *http.Request) {
	if a.maxUploadSize > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, a.maxUploadSize)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	uploaderID := r.FormValue("uploaderId")
	title := r.FormValue("title")
	if uploaderID == "" || strings.TrimSpace(title) == "" {
		writeError(w, http.StatusBadRequest, "uploaderId and title are required")
		return
	}

	var tags []string
	if raw := r.FormValue("tags"); raw != "" {
		tags = strings.Split(raw, ",")
	}

	id := store.NewID()
	var source domain.MediaSource
	stored := false

	file, _, err := r.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()
		if err := a.blobs.Put(r.Context(), id, file); err != nil {
			a.logger.Error().Err(err).Str("video_id", id).Msg("failed to store upload")
			writeError(w, http.StatusBadGateway, "failed to store media")
			return
		}
		source = domain.LocalSource(id)
		stored = true
		a.countUpload(r)
	case r.FormValue("url") != "":
		source = domain.RemoteSource(r.FormValue("url"))
	default:
		writeError(w, http.StatusBadRequest, "either a file or a url is required")
		return
	}

	video := domain.NewVideo(id, uploaderID, title,
		r.FormValue("description"), source, r.FormValue("thumbnail"), tags)
	if err := a.store.AddVideo(r.Context(), video); err != nil {
		// No record will ever reference the object; remove it so a
		// rejected upload cannot orphan a payload.
		if stored {
			if derr := a.blobs.Delete(r.Context(), id); derr != nil {
				a.logger.Warn().Err(derr).Str("video_id", id).Msg("failed to remove orphaned upload")
			}
		}
		a.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, video)
}

func (a *API) countUpload(r *http.Request) {
	if a.metrics == nil {
		return
	}
	a.metrics.uploadsTotal.Inc()
	if r.ContentLength > 0 {
		a.metrics.uploadBytes.Add(float64(r.ContentLength))
	}
}

func (a *API) handleAddView(w http.ResponseWriter, r *http.Request) {
	if err := a.store.AddView(r.Context(), chi.URLParam(r, "id")); err != nil {
		a.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type reactionRequest struct {
	UserID string `json:"userId"`
	Like   bool   `json:"like"`
}

func (a *API) handleReaction(w http.ResponseWriter, r *http.Request) {
	var req reactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	state, err := a.store.ToggleLike(r.Context(), chi.URLParam(r, "id"), req.UserID, req.Like)
	if err != nil {
		a.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reaction": reactionName(state)})
}

func reactionName(r domain.Reaction) string {
	switch r {
	case domain.ReactionLike:
		return "like"
	case domain.ReactionDislike:
		return "dislike"
	default:
		return "none"
	}
}

// =============================================================================
// Comments
// =============================================================================

func (a *API) handleListComments(w http.ResponseWriter, r *http.Request) {
	comments := a.store.Comments(chi.URLParam(r, "id"))
	if comments == nil {
		comments = []*domain.Comment{}
	}
	writeJSON(w, http.StatusOK, comments)
}

type commentRequest struct {
	UserID string `json:"userId"`
	Text   string `json:"text"`
}

func (a *API) handleAddComment(w http.ResponseWriter, r *http.Request) {
	var req commentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	comment := domain.NewComment(store.NewID(), chi.URLParam(r, "id"), req.UserID, req.Text)
	if err := a.store.AddComment(r.Context(), comment); err != nil {
		a.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

// =============================================================================
// Subscriptions
// =============================================================================

type subscribeRequest struct {
	SubscriberID string `json:"subscriberId"`
	ChannelID    string `json:"channelId"`
}

func (a *API) handleToggleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req subscribeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	subscribed, err := a.store.ToggleSubscribe(r.Context(), req.SubscriberID, req.ChannelID)
	if err != nil {
		a.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"subscribed": subscribed})
}

// =============================================================================
// Media
// =============================================================================

// handleGetMedia streams the stored payload for a locally sourced
// video. Remote-source videos have no object here; that's a 404.
func (a *API) handleGetMedia(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	obj, err := a.blobs.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrObjectNotFound) {
			writeError(w, http.StatusNotFound, "media not found")
			return
		}
		a.logger.Error().Err(err).Str("video_id", id).Msg("failed to read media")
		writeError(w, http.StatusBadGateway, "failed to read media")
		return
	}
	defer obj.Close()

	w.Header().Set("Content-Type", "application/octet-stream")
	if size, err := a.blobs.Size(r.Context(), id); err == nil {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	}
	if _, err := io.Copy(w, obj); err != nil {
		a.logger.Debug().Err(err).Str("video_id", id).Msg("media stream interrupted")
	}
}

// =============================================================================
// Helpers
// =============================================================================

// userView is the API shape of a user record. The account secret never
// leaves the store through this boundary.
type userView struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"displayName"`
	Avatar       string    `json:"avatar"`
	Subscribers  []string  `json:"subscribers"`
	SubscribedTo []string  `json:"subscribedTo"`
	JoinedAt     time.Time `json:"joinedAt"`
}

func userPayload(u *domain.User) userView {
	return userView{
		ID:           u.ID,
		Username:     u.Username,
		DisplayName:  u.DisplayName,
		Avatar:       u.Avatar,
		Subscribers:  u.Subscribers,
		SubscribedTo: u.SubscribedTo,
		JoinedAt:     u.JoinedAt,
	}
}

// writeStoreError maps domain errors onto HTTP statuses. Lookups
// against unknown ids are 404s, never 500s.
func (a *API) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUsernameTaken):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrVideoNotFound),
		errors.Is(err, domain.ErrObjectNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrEmptyComment),
		errors.Is(err, domain.ErrSelfSubscription):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		a.logger.Error().Err(err).Msg("store operation failed")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
