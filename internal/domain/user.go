// Package domain contains the core business entities for localtube.
// These are pure Go structs with no external dependencies, representing
// the fundamental concepts of the local-first video-sharing core.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// User represents a registered account in the local catalog.
// Users upload videos, react to them, comment, and subscribe to channels.
type User struct {
	// ID is the opaque, stable, time-ordered identifier for the user.
	ID string `json:"id"`

	// Username is the unique login name. Uniqueness is case-insensitive:
	// "Alice" and "alice" are the same identity.
	Username string `json:"username"`

	// DisplayName is the name shown next to uploads and comments.
	DisplayName string `json:"displayName"`

	// Avatar is a locator for the profile image. Defaults to a
	// deterministically derived placeholder when the user registers.
	Avatar string `json:"avatar"`

	// Password is the account secret, stored and compared verbatim.
	// Hardening credentials is an explicit non-goal of this system.
	Password string `json:"password"`

	// Subscribers holds the ids of users subscribed to this channel.
	// Never contains the user's own id.
	Subscribers []string `json:"subscribers"`

	// SubscribedTo holds the ids of channels this user follows.
	// Invariant: B is in A.SubscribedTo iff A is in B.Subscribers.
	SubscribedTo []string `json:"subscribedTo"`

	// JoinedAt is the account creation timestamp.
	JoinedAt time.Time `json:"joinedAt"`
}

// NewUser creates a User with empty social sets and a generated avatar.
func NewUser(id, username, displayName, password string) *User {
	return &User{
		ID:           id,
		Username:     username,
		DisplayName:  displayName,
		Avatar:       DefaultAvatar(username),
		Password:     password,
		Subscribers:  []string{},
		SubscribedTo: []string{},
		JoinedAt:     time.Now().UTC(),
	}
}

// DefaultAvatar derives a deterministic placeholder avatar locator
// from a username. The same username always yields the same locator.
func DefaultAvatar(username string) string {
	return fmt.Sprintf("avatar://initials/%s", strings.ToLower(username))
}

// Clone returns a deep copy sharing no memory with the receiver.
func (u *User) Clone() *User {
	cp := *u
	cp.Subscribers = append([]string{}, u.Subscribers...)
	cp.SubscribedTo = append([]string{}, u.SubscribedTo...)
	return &cp
}

// HasSubscriber reports whether userID is subscribed to this channel.
func (u *User) HasSubscriber(userID string) bool {
	return containsID(u.Subscribers, userID)
}

// IsSubscribedTo reports whether this user follows the given channel.
func (u *User) IsSubscribedTo(channelID string) bool {
	return containsID(u.SubscribedTo, channelID)
}

func containsID(set []string, id string) bool {
	for _, v := range set {
		if v == id {
			return true
		}
	}
	return false
}

func addID(set []string, id string) []string {
	if containsID(set, id) {
		return set
	}
	return append(set, id)
}

func removeID(set []string, id string) []string {
	for i, v := range set {
		if v == id {
			return append(set[:i], set[i+1:]...)
		}
	}
	return set
}
