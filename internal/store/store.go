// Package store implements the single source of truth for all
// relational entities: users, videos, comments, and the social graph.
// It is the only component permitted to mutate them.
//
// The model is single-writer by construction: every mutation is a
// complete read-modify-write-persist cycle under one mutex, so no
// interleaving is observable mid-operation. Every mutation persists via
// the snapshot store before returning; there is no batching and no
// operation queue.
//
// Records never cross the Store boundary by reference. Reads return
// deep copies made under the mutex and inserts clone their argument, so
// callers can hold or marshal returned records while other goroutines
// mutate the live ones.
package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/localtube/localtube/internal/domain"
	"github.com/localtube/localtube/internal/snapshot"
)

// Store holds the in-memory collections and their persistence surface.
// Construct exactly one per process and thread it through as a
// dependency; it is never accessed as ambient global state.
type Store struct {
	mu        sync.Mutex
	snapshots snapshot.Store
	logger    zerolog.Logger

	// videos is most-recent-first: AddVideo inserts at the head and
	// the order is an invariant of insertion, not a sort.
	users    []*domain.User
	videos   []*domain.Video
	comments []*domain.Comment

	usersByID  map[string]*domain.User
	videosByID map[string]*domain.Video
	// usersByName indexes users by lowercased username for the
	// case-insensitive uniqueness rule.
	usersByName map[string]*domain.User
}

// New creates a Store backed by the given snapshot store. It loads the
// persisted snapshot; if nothing has been persisted yet it seeds the
// one-time cold-start fixture and persists it immediately.
func New(ctx context.Context, snapshots snapshot.Store, logger zerolog.Logger) (*Store, error) {
	s := &Store{
		snapshots: snapshots,
		logger:    logger.With().Str("component", "store").Logger(),
	}

	snap, err := snapshots.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	if snap.IsEmpty() {
		snap = seedSnapshot()
		s.logger.Info().
			Int("users", len(snap.Users)).
			Int("videos", len(snap.Videos)).
			Msg("empty store, seeding bootstrap catalog")
		if err := snapshots.Save(ctx, snap); err != nil {
			return nil, fmt.Errorf("failed to persist seed data: %w", err)
		}
	}

	s.adopt(snap)
	s.logger.Info().
		Int("users", len(s.users)).
		Int("videos", len(s.videos)).
		Int("comments", len(s.comments)).
		Msg("store loaded")
	return s, nil
}

// adopt replaces the in-memory collections and rebuilds the indexes.
func (s *Store) adopt(snap *snapshot.Snapshot) {
	s.users = snap.Users
	s.videos = snap.Videos
	s.comments = snap.Comments

	s.usersByID = make(map[string]*domain.User, len(s.users))
	s.usersByName = make(map[string]*domain.User, len(s.users))
	for _, u := range s.users {
		s.usersByID[u.ID] = u
		s.usersByName[strings.ToLower(u.Username)] = u
	}
	s.videosByID = make(map[string]*domain.Video, len(s.videos))
	for _, v := range s.videos {
		s.videosByID[v.ID] = v
	}
}

// persistLocked writes the current collections through to the snapshot
// store. Callers must hold s.mu.
func (s *Store) persistLocked(ctx context.Context) error {
	snap := &snapshot.Snapshot{
		Users:    s.users,
		Videos:   s.videos,
		Comments: s.comments,
	}
	if err := s.snapshots.Save(ctx, snap); err != nil {
		return fmt.Errorf("failed to persist snapshot: %w", err)
	}
	return nil
}

// NewID allocates an opaque, time-ordered unique identifier.
func NewID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// =============================================================================
// Accounts
// =============================================================================

// Register creates a new account. Username collision detection is
// case-insensitive; a collision rejects with domain.ErrUsernameTaken
// and mutates nothing.
func (s *Store) Register(ctx context.Context, username, displayName, password string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.usersByName[strings.ToLower(username)]; taken {
		return nil, fmt.Errorf("%w: %q", domain.ErrUsernameTaken, username)
	}

	user := domain.NewUser(NewID(), username, displayName, password)
	s.users = append(s.users, user)
	s.usersByID[user.ID] = user
	s.usersByName[strings.ToLower(user.Username)] = user

	if err := s.persistLocked(ctx); err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("user registered")
	return user.Clone(), nil
}

// Login matches the username case-insensitively and the secret exactly.
// It mutates nothing; there is no lockout or rate limiting.
func (s *Store) Login(username, password string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.usersByName[strings.ToLower(username)]
	if !ok || user.Password != password {
		return nil, domain.ErrInvalidCredentials
	}
	return user.Clone(), nil
}

// User returns the user with the given id, or domain.ErrUserNotFound.
func (s *Store) User(id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.usersByID[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return user.Clone(), nil
}

// =============================================================================
// Videos
// =============================================================================

// AddVideo inserts the video at the head of the catalog (most-recent-
// first is an invariant of insertion order) and persists. The store
// keeps its own copy; the caller retains ownership of the argument.
func (s *Store) AddVideo(ctx context.Context, video *domain.Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.usersByID[video.UploaderID]; !ok {
		return fmt.Errorf("%w: uploader %q", domain.ErrUserNotFound, video.UploaderID)
	}

	owned := video.Clone()
	s.videos = append([]*domain.Video{owned}, s.videos...)
	s.videosByID[owned.ID] = owned

	if err := s.persistLocked(ctx); err != nil {
		return err
	}

	s.logger.Info().
		Str("video_id", video.ID).
		Str("uploader_id", video.UploaderID).
		Str("source", string(video.Source.Kind)).
		Msg("video added")
	return nil
}

// Video returns the video with the given id, or domain.ErrVideoNotFound.
func (s *Store) Video(id string) (*domain.Video, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	video, ok := s.videosByID[id]
	if !ok {
		return nil, domain.ErrVideoNotFound
	}
	return video.Clone(), nil
}

// Videos returns the catalog, most recent first.
func (s *Store) Videos() []*domain.Video {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*domain.Video, len(s.videos))
	for i, v := range s.videos {
		out[i] = v.Clone()
	}
	return out
}

// AddView increments the view counter by exactly one if the video
// exists and persists; unknown ids are a no-op, never an error.
// Callers invoke this once per playback-session start.
func (s *Store) AddView(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	video, ok := s.videosByID[id]
	if !ok {
		return nil
	}
	video.Views++
	return s.persistLocked(ctx)
}

// ToggleLike applies one step of the per-(video,user) reaction machine:
// toggling the active reaction clears it, toggling the other switches
// to it. A user is in at most one of {likes, dislikes} at any time.
// Unknown video ids are a no-op. Returns the resulting reaction state.
func (s *Store) ToggleLike(ctx context.Context, videoID, userID string, isLike bool) (domain.Reaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	video, ok := s.videosByID[videoID]
	if !ok {
		return domain.ReactionNone, nil
	}

	target := domain.ReactionDislike
	if isLike {
		target = domain.ReactionLike
	}
	state := video.ToggleReaction(userID, target)

	if err := s.persistLocked(ctx); err != nil {
		return domain.ReactionNone, err
	}
	return state, nil
}

// =============================================================================
// Comments
// =============================================================================

// AddComment validates the referents and the non-empty text rule,
// appends the comment (no sort on write), and persists.
func (s *Store) AddComment(ctx context.Context, comment *domain.Comment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if strings.TrimSpace(comment.Text) == "" {
		return domain.ErrEmptyComment
	}
	if _, ok := s.videosByID[comment.VideoID]; !ok {
		return fmt.Errorf("%w: %q", domain.ErrVideoNotFound, comment.VideoID)
	}
	if _, ok := s.usersByID[comment.UserID]; !ok {
		return fmt.Errorf("%w: %q", domain.ErrUserNotFound, comment.UserID)
	}

	s.comments = append(s.comments, comment.Clone())
	return s.persistLocked(ctx)
}

// Comments returns all comments for a video, newest first. The sort is
// stable, so comments sharing a timestamp keep their insertion order.
func (s *Store) Comments(videoID string) []*domain.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*domain.Comment
	for _, c := range s.comments {
		if c.VideoID == videoID {
			out = append(out, c.Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// =============================================================================
// Subscriptions
// =============================================================================

// ToggleSubscribe flips the subscription between subscriber and channel
// as a single transaction across both user records. Unknown ids are a
// no-op; subscribing to one's own channel is rejected. Returns whether
// the subscriber follows the channel after the toggle.
func (s *Store) ToggleSubscribe(ctx context.Context, subscriberID, channelID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if subscriberID == channelID {
		return false, domain.ErrSelfSubscription
	}

	subscriber, okSub := s.usersByID[subscriberID]
	channel, okChan := s.usersByID[channelID]
	if !okSub || !okChan {
		return false, nil
	}

	subscribed := domain.ToggleSubscription(subscriber, channel)

	if err := s.persistLocked(ctx); err != nil {
		return false, err
	}

	s.logger.Debug().
		Str("subscriber_id", subscriberID).
		Str("channel_id", channelID).
		Bool("subscribed", subscribed).
		Msg("subscription toggled")
	return subscribed, nil
}
