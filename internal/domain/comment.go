// Package domain contains the core business entities for localtube.
package domain

import "time"

// Comment is a single remark on a video. Comments are immutable after
// creation and are queried per video, newest first.
type Comment struct {
	// ID is the opaque, time-ordered identifier for the comment.
	ID string `json:"id"`

	// VideoID references the Video being commented on.
	VideoID string `json:"videoId"`

	// UserID references the commenting User.
	UserID string `json:"userId"`

	// Text is the comment body. Non-empty at creation.
	Text string `json:"text"`

	// CreatedAt is the creation timestamp.
	CreatedAt time.Time `json:"createdAt"`
}

// Clone returns a copy sharing no memory with the receiver.
func (c *Comment) Clone() *Comment {
	cp := *c
	return &cp
}

// NewComment creates a Comment stamped with the current time.
func NewComment(id, videoID, userID, text string) *Comment {
	return &Comment{
		ID:        id,
		VideoID:   videoID,
		UserID:    userID,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}
}
