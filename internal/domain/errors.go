// Package domain contains the core business entities for localtube.
package domain

import "errors"

// Domain errors - these represent business rule violations.
// They are distinct from infrastructure errors (I/O, serialization).

var (
	// ===========================================
	// User Errors
	// ===========================================

	// ErrUserNotFound indicates the requested user does not exist.
	ErrUserNotFound = errors.New("user not found")

	// ErrUsernameTaken indicates another account already holds the
	// username (comparison is case-insensitive).
	ErrUsernameTaken = errors.New("username already taken")

	// ErrInvalidCredentials indicates a login attempt failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrSelfSubscription indicates a user attempted to subscribe to
	// their own channel.
	ErrSelfSubscription = errors.New("cannot subscribe to own channel")

	// ===========================================
	// Video Errors
	// ===========================================

	// ErrVideoNotFound indicates the requested video does not exist.
	ErrVideoNotFound = errors.New("video not found")

	// ===========================================
	// Comment Errors
	// ===========================================

	// ErrEmptyComment indicates a comment was submitted with no text.
	ErrEmptyComment = errors.New("comment text is empty")

	// ===========================================
	// Object Store Errors
	// ===========================================

	// ErrObjectNotFound indicates no binary payload is stored under
	// the requested key. Absent objects are a result, not a fault.
	ErrObjectNotFound = errors.New("object not found")
)
