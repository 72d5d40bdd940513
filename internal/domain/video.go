// Package domain contains the core business entities for localtube.
package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// LocalSourcePrefix marks a media locator that points into the binary
// object store instead of an external address. The text after the prefix
// is the object-store key. This prefix is the wire contract between
// persisted Video records and the playback/object-store layers and must
// not change without a migration.
const LocalSourcePrefix = "local://"

// SourceKind discriminates where a video's bytes live.
type SourceKind string

const (
	// SourceRemote is an external locator (typically an http(s) URL).
	SourceRemote SourceKind = "remote"

	// SourceLocal is a reference into the binary object store.
	SourceLocal SourceKind = "local"
)

// MediaSource is the tagged form of a video's media locator.
// Resolution logic switches on Kind rather than sniffing strings;
// the string-prefix encoding survives only at the JSON boundary.
type MediaSource struct {
	// Kind tells whether Locator is an external address or an
	// object-store key.
	Kind SourceKind

	// Locator is the remote address for SourceRemote, or the
	// object-store key for SourceLocal.
	Locator string
}

// RemoteSource creates a MediaSource for an external locator.
func RemoteSource(locator string) MediaSource {
	return MediaSource{Kind: SourceRemote, Locator: locator}
}

// LocalSource creates a MediaSource referencing the object store.
func LocalSource(objectKey string) MediaSource {
	return MediaSource{Kind: SourceLocal, Locator: objectKey}
}

// ParseMediaSource decodes the persisted string form of a media locator.
func ParseMediaSource(raw string) MediaSource {
	if key, ok := strings.CutPrefix(raw, LocalSourcePrefix); ok {
		return LocalSource(key)
	}
	return RemoteSource(raw)
}

// IsLocal reports whether the source points into the object store.
func (s MediaSource) IsLocal() bool {
	return s.Kind == SourceLocal
}

// String returns the persisted wire form of the source.
func (s MediaSource) String() string {
	if s.Kind == SourceLocal {
		return LocalSourcePrefix + s.Locator
	}
	return s.Locator
}

// MarshalJSON encodes the source in its wire form so snapshots written
// by earlier versions of the system remain readable.
func (s MediaSource) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes the wire form back into the tagged variant.
func (s *MediaSource) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ParseMediaSource(raw)
	return nil
}

// Video represents one catalog entry. Videos are created at upload time
// and never deleted; only views, reactions, and tags change afterwards,
// each through a dedicated Store operation.
type Video struct {
	// ID is the opaque, globally unique, time-ordered identifier.
	ID string `json:"id"`

	// UploaderID references the User who uploaded the video.
	UploaderID string `json:"uploaderId"`

	Title       string `json:"title"`
	Description string `json:"description"`

	// Source locates the video bytes: an external address or a
	// local-media reference into the object store.
	Source MediaSource `json:"url"`

	// Thumbnail is an image locator for the preview frame.
	Thumbnail string `json:"thumbnail"`

	// Views counts playback sessions. Monotonically non-decreasing.
	Views int64 `json:"views"`

	// Likes and Dislikes hold reacting user ids. A user id is never a
	// member of both sets at once.
	Likes    []string `json:"likes"`
	Dislikes []string `json:"dislikes"`

	CreatedAt time.Time `json:"createdAt"`

	// Tags is a set of lowercase labels.
	Tags []string `json:"tags"`
}

// NewVideo creates a Video with zeroed counters and empty reaction sets.
// Tags are lowercased on the way in.
func NewVideo(id, uploaderID, title, description string, source MediaSource, thumbnail string, tags []string) *Video {
	normalized := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" && !containsID(normalized, t) {
			normalized = append(normalized, t)
		}
	}
	return &Video{
		ID:          id,
		UploaderID:  uploaderID,
		Title:       title,
		Description: description,
		Source:      source,
		Thumbnail:   thumbnail,
		Views:       0,
		Likes:       []string{},
		Dislikes:    []string{},
		CreatedAt:   time.Now().UTC(),
		Tags:        normalized,
	}
}

// Clone returns a deep copy sharing no memory with the receiver.
func (v *Video) Clone() *Video {
	cp := *v
	cp.Likes = append([]string{}, v.Likes...)
	cp.Dislikes = append([]string{}, v.Dislikes...)
	cp.Tags = append([]string{}, v.Tags...)
	return &cp
}

// Reaction is a user's like/dislike state on a video. A user holds
// exactly one reaction state per video at any time.
type Reaction int

const (
	// ReactionNone means the user has not reacted.
	ReactionNone Reaction = iota

	// ReactionLike means the user's id is in the likes set.
	ReactionLike

	// ReactionDislike means the user's id is in the dislikes set.
	ReactionDislike
)

// ReactionOf returns the user's current reaction state on the video.
func (v *Video) ReactionOf(userID string) Reaction {
	if containsID(v.Likes, userID) {
		return ReactionLike
	}
	if containsID(v.Dislikes, userID) {
		return ReactionDislike
	}
	return ReactionNone
}

// ToggleReaction applies the single reaction transition: toggling the
// active reaction clears it, toggling the other one switches to it.
// Both directions share this function so the mutual-exclusion invariant
// cannot diverge between like and dislike paths. Returns the new state.
func (v *Video) ToggleReaction(userID string, target Reaction) Reaction {
	current := v.ReactionOf(userID)

	v.Likes = removeID(v.Likes, userID)
	v.Dislikes = removeID(v.Dislikes, userID)

	if current == target {
		return ReactionNone
	}
	switch target {
	case ReactionLike:
		v.Likes = addID(v.Likes, userID)
	case ReactionDislike:
		v.Dislikes = addID(v.Dislikes, userID)
	}
	return target
}
