package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/localtube/localtube/internal/domain"
	"github.com/localtube/localtube/internal/snapshot"
)

// newTestStore creates a Store over a fresh file-backed snapshot store
// and returns both, so tests can reopen the same persisted state.
func newTestStore(t *testing.T) (*Store, snapshot.Store) {
	t.Helper()
	snaps := snapshot.NewFileStore(filepath.Join(t.TempDir(), "snapshot.json"), zerolog.Nop())
	s, err := New(context.Background(), snaps, zerolog.Nop())
	require.NoError(t, err)
	return s, snaps
}

func mustRegister(t *testing.T, s *Store, username string) *domain.User {
	t.Helper()
	u, err := s.Register(context.Background(), username, username, "pw")
	require.NoError(t, err)
	return u
}

func mustAddVideo(t *testing.T, s *Store, uploaderID, title string) *domain.Video {
	t.Helper()
	v := domain.NewVideo(NewID(), uploaderID, title, "", domain.RemoteSource("https://example.com/"+title+".mp4"), "", nil)
	require.NoError(t, s.AddVideo(context.Background(), v))
	return v
}

// =============================================================================
// Bootstrap
// =============================================================================

func TestNewSeedsEmptyStore(t *testing.T) {
	s, snaps := newTestStore(t)

	admin, err := s.User(SeedUserID)
	require.NoError(t, err)
	require.Equal(t, "localtube", admin.Username)

	require.Len(t, s.Videos(), 3, "starter catalog")

	// The seed is persisted immediately, not just held in memory.
	snap, err := snaps.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, snap.Users, 1)
	require.Len(t, snap.Videos, 3)
}

func TestSeedRunsOnlyOnce(t *testing.T) {
	s, snaps := newTestStore(t)
	mustRegister(t, s, "alice")

	reopened, err := New(context.Background(), snaps, zerolog.Nop())
	require.NoError(t, err)

	_, err = reopened.User(SeedUserID)
	require.NoError(t, err)
	_, err = reopened.Login("alice", "pw")
	require.NoError(t, err, "registered user survives reopen, seed does not rerun")
}

// =============================================================================
// Accounts
// =============================================================================

func TestRegister(t *testing.T) {
	s, _ := newTestStore(t)

	user, err := s.Register(context.Background(), "bob", "Bob B", "pw123")
	require.NoError(t, err)
	require.NotEmpty(t, user.ID)
	require.Equal(t, domain.DefaultAvatar("bob"), user.Avatar)
	require.Empty(t, user.Subscribers)
	require.Empty(t, user.SubscribedTo)
	require.WithinDuration(t, time.Now().UTC(), user.JoinedAt, time.Minute)
}

func TestRegisterCollisionIsCaseInsensitive(t *testing.T) {
	s, _ := newTestStore(t)
	mustRegister(t, s, "alice")

	before := len(s.Videos())
	_, err := s.Register(context.Background(), "Alice", "Someone Else", "other")
	require.ErrorIs(t, err, domain.ErrUsernameTaken)

	// Rejection mutates nothing.
	_, err = s.Login("Alice", "other")
	require.ErrorIs(t, err, domain.ErrInvalidCredentials)
	require.Len(t, s.Videos(), before)
}

func TestLogin(t *testing.T) {
	s, _ := newTestStore(t)
	registered, err := s.Register(context.Background(), "bob", "Bob B", "pw123")
	require.NoError(t, err)

	tests := []struct {
		name     string
		username string
		password string
		wantErr  error
	}{
		{"exact match", "bob", "pw123", nil},
		{"username is case-insensitive", "BOB", "pw123", nil},
		{"wrong password", "bob", "pw124", domain.ErrInvalidCredentials},
		{"password is case-sensitive", "bob", "PW123", domain.ErrInvalidCredentials},
		{"unknown user", "carol", "pw123", domain.ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := s.Login(tt.username, tt.password)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, registered.ID, user.ID)
		})
	}
}

func TestUserNotFound(t *testing.T) {
	s, _ := newTestStore(t)
	_, err := s.User("no-such-id")
	require.ErrorIs(t, err, domain.ErrUserNotFound)
}

// =============================================================================
// Videos
// =============================================================================

func TestAddVideoInsertsAtHead(t *testing.T) {
	s, _ := newTestStore(t)
	u := mustRegister(t, s, "alice")

	first := mustAddVideo(t, s, u.ID, "first")
	second := mustAddVideo(t, s, u.ID, "second")

	videos := s.Videos()
	require.Equal(t, second.ID, videos[0].ID, "most recent first")
	require.Equal(t, first.ID, videos[1].ID)
}

func TestAddVideoUnknownUploader(t *testing.T) {
	s, _ := newTestStore(t)
	v := domain.NewVideo(NewID(), "ghost", "t", "", domain.RemoteSource("u"), "", nil)
	require.ErrorIs(t, s.AddVideo(context.Background(), v), domain.ErrUserNotFound)
}

func TestAddViewIncrementsByExactlyOne(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	u := mustRegister(t, s, "alice")
	v := mustAddVideo(t, s, u.ID, "clip")

	const n = 5
	for i := 0; i < n; i++ {
		require.NoError(t, s.AddView(ctx, v.ID))
	}

	got, err := s.Video(v.ID)
	require.NoError(t, err)
	require.Equal(t, int64(n), got.Views)
}

func TestAddViewUnknownVideoIsNoOp(t *testing.T) {
	s, _ := newTestStore(t)
	require.NoError(t, s.AddView(context.Background(), "no-such-video"))
}

func TestToggleLike(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	u := mustRegister(t, s, "alice")
	v := mustAddVideo(t, s, u.ID, "clip")

	// Like: in likes, not in dislikes.
	state, err := s.ToggleLike(ctx, v.ID, u.ID, true)
	require.NoError(t, err)
	require.Equal(t, domain.ReactionLike, state)
	got, _ := s.Video(v.ID)
	require.Contains(t, got.Likes, u.ID)
	require.NotContains(t, got.Dislikes, u.ID)
	require.Len(t, got.Likes, 1)

	// Switch to dislike: sets swap in one step.
	state, err = s.ToggleLike(ctx, v.ID, u.ID, false)
	require.NoError(t, err)
	require.Equal(t, domain.ReactionDislike, state)
	got, _ = s.Video(v.ID)
	require.Contains(t, got.Dislikes, u.ID)
	require.NotContains(t, got.Likes, u.ID)

	// Toggle the active reaction: clears it.
	state, err = s.ToggleLike(ctx, v.ID, u.ID, false)
	require.NoError(t, err)
	require.Equal(t, domain.ReactionNone, state)
	got, _ = s.Video(v.ID)
	require.Empty(t, got.Likes)
	require.Empty(t, got.Dislikes)
}

func TestToggleLikeTwiceLeavesNoReaction(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	u := mustRegister(t, s, "alice")
	v := mustAddVideo(t, s, u.ID, "clip")

	_, err := s.ToggleLike(ctx, v.ID, u.ID, true)
	require.NoError(t, err)
	got, _ := s.Video(v.ID)
	require.Len(t, got.Likes, 1)

	_, err = s.ToggleLike(ctx, v.ID, u.ID, true)
	require.NoError(t, err)
	got, _ = s.Video(v.ID)
	require.Empty(t, got.Likes)
}

func TestToggleLikeUnknownVideoIsNoOp(t *testing.T) {
	s, _ := newTestStore(t)
	state, err := s.ToggleLike(context.Background(), "no-such-video", "u", true)
	require.NoError(t, err)
	require.Equal(t, domain.ReactionNone, state)
}

// =============================================================================
// Comments
// =============================================================================

func TestAddComment(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	u := mustRegister(t, s, "alice")
	v := mustAddVideo(t, s, u.ID, "clip")

	tests := []struct {
		name    string
		videoID string
		userID  string
		text    string
		wantErr error
	}{
		{"valid", v.ID, u.ID, "great video", nil},
		{"empty text", v.ID, u.ID, "   ", domain.ErrEmptyComment},
		{"unknown video", "nope", u.ID, "hi", domain.ErrVideoNotFound},
		{"unknown user", v.ID, "nope", "hi", domain.ErrUserNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := domain.NewComment(NewID(), tt.videoID, tt.userID, tt.text)
			err := s.AddComment(ctx, c)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestCommentsNewestFirst(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	u := mustRegister(t, s, "alice")
	v := mustAddVideo(t, s, u.ID, "clip")
	other := mustAddVideo(t, s, u.ID, "other")

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	add := func(id, text string, at time.Time) {
		c := &domain.Comment{ID: id, VideoID: v.ID, UserID: u.ID, Text: text, CreatedAt: at}
		require.NoError(t, s.AddComment(ctx, c))
	}
	add("c1", "oldest", base)
	add("c2", "tie-a", base.Add(time.Hour))
	add("c3", "tie-b", base.Add(time.Hour))
	add("c4", "newest", base.Add(2*time.Hour))

	// Comments on another video never bleed in.
	elsewhere := domain.NewComment(NewID(), other.ID, u.ID, "elsewhere")
	require.NoError(t, s.AddComment(ctx, elsewhere))

	got := s.Comments(v.ID)
	require.Len(t, got, 4)
	require.Equal(t, "newest", got[0].Text)
	require.Equal(t, "tie-a", got[1].Text, "ties keep insertion order")
	require.Equal(t, "tie-b", got[2].Text)
	require.Equal(t, "oldest", got[3].Text)
}

// =============================================================================
// Subscriptions
// =============================================================================

func TestToggleSubscribeRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	a := mustRegister(t, s, "alice")
	b := mustRegister(t, s, "bob")

	assertInvariant := func() {
		t.Helper()
		gotA, _ := s.User(a.ID)
		gotB, _ := s.User(b.ID)
		require.Equal(t, gotA.IsSubscribedTo(b.ID), gotB.HasSubscriber(a.ID),
			"bidirectional consistency must hold at every point")
	}

	subscribed, err := s.ToggleSubscribe(ctx, a.ID, b.ID)
	require.NoError(t, err)
	require.True(t, subscribed)
	assertInvariant()

	subscribed, err = s.ToggleSubscribe(ctx, a.ID, b.ID)
	require.NoError(t, err)
	require.False(t, subscribed)
	assertInvariant()

	// Back to the original state.
	gotA, _ := s.User(a.ID)
	gotB, _ := s.User(b.ID)
	require.Empty(t, gotA.SubscribedTo)
	require.Empty(t, gotB.Subscribers)
}

func TestToggleSubscribeAbsentIDsAreNoOp(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	a := mustRegister(t, s, "alice")

	subscribed, err := s.ToggleSubscribe(ctx, a.ID, "ghost")
	require.NoError(t, err)
	require.False(t, subscribed)

	subscribed, err = s.ToggleSubscribe(ctx, "ghost", a.ID)
	require.NoError(t, err)
	require.False(t, subscribed)
}

func TestToggleSubscribeSelfRejected(t *testing.T) {
	s, _ := newTestStore(t)
	a := mustRegister(t, s, "alice")

	_, err := s.ToggleSubscribe(context.Background(), a.ID, a.ID)
	require.ErrorIs(t, err, domain.ErrSelfSubscription)
}

// =============================================================================
// Copy semantics
// =============================================================================

func TestReadsReturnDetachedCopies(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	u := mustRegister(t, s, "alice")
	v := mustAddVideo(t, s, u.ID, "clip")

	got, err := s.Video(v.ID)
	require.NoError(t, err)
	got.Views = 999
	got.Likes = append(got.Likes, "intruder")

	fresh, err := s.Video(v.ID)
	require.NoError(t, err)
	require.Zero(t, fresh.Views, "mutating a returned record must not touch the live one")
	require.Empty(t, fresh.Likes)

	gotUser, err := s.User(u.ID)
	require.NoError(t, err)
	gotUser.Subscribers = append(gotUser.Subscribers, "intruder")
	freshUser, err := s.User(u.ID)
	require.NoError(t, err)
	require.Empty(t, freshUser.Subscribers)

	list := s.Videos()
	list[0].Title = "defaced"
	fresh, err = s.Video(list[0].ID)
	require.NoError(t, err)
	require.NotEqual(t, "defaced", fresh.Title)

	c := domain.NewComment(NewID(), v.ID, u.ID, "hello")
	require.NoError(t, s.AddComment(ctx, c))
	comments := s.Comments(v.ID)
	comments[0].Text = "defaced"
	require.Equal(t, "hello", s.Comments(v.ID)[0].Text)
}

func TestInsertsCloneTheirArgument(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	u := mustRegister(t, s, "alice")

	v := domain.NewVideo(NewID(), u.ID, "clip", "", domain.RemoteSource("https://example.com/c.mp4"), "", nil)
	require.NoError(t, s.AddVideo(ctx, v))
	v.Title = "mutated after insert"
	v.Likes = append(v.Likes, "intruder")

	stored, err := s.Video(v.ID)
	require.NoError(t, err)
	require.Equal(t, "clip", stored.Title)
	require.Empty(t, stored.Likes)

	c := domain.NewComment(NewID(), v.ID, u.ID, "hello")
	require.NoError(t, s.AddComment(ctx, c))
	c.Text = "mutated after insert"
	require.Equal(t, "hello", s.Comments(v.ID)[0].Text)
}

func TestConcurrentReadersAndWriters(t *testing.T) {
	ctx := context.Background()
	s, _ := newTestStore(t)
	u := mustRegister(t, s, "alice")
	v := mustAddVideo(t, s, u.ID, "clip")

	// Readers marshal full records while writers mutate the same video;
	// detached copies mean neither side can observe the other mid-write.
	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			require.NoError(t, s.AddView(ctx, v.ID))
		}()
		go func() {
			defer wg.Done()
			_, err := json.Marshal(s.Videos())
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := s.Video(v.ID)
	require.NoError(t, err)
	require.Equal(t, int64(n), got.Views)
}

// =============================================================================
// Persistence
// =============================================================================

func TestMutationsAreWrittenThrough(t *testing.T) {
	ctx := context.Background()
	s, snaps := newTestStore(t)
	u := mustRegister(t, s, "alice")
	v := mustAddVideo(t, s, u.ID, "clip")
	require.NoError(t, s.AddView(ctx, v.ID))
	_, err := s.ToggleLike(ctx, v.ID, u.ID, true)
	require.NoError(t, err)

	// A second store over the same snapshot store sees every mutation.
	reopened, err := New(ctx, snaps, zerolog.Nop())
	require.NoError(t, err)

	got, err := reopened.Video(v.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), got.Views)
	require.Contains(t, got.Likes, u.ID)

	user, err := reopened.Login("ALICE", "pw")
	require.NoError(t, err)
	require.Equal(t, u.ID, user.ID)
}
