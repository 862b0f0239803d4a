// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as
// handlers to distinguish between different failure scenarios. For
// example, ErrForbidden indicates that the current user is not
// authorized to perform an operation on a resource owned by someone
// else, while the not-found sentinels report that a row genuinely does
// not exist.
package repository

import "errors"

// ErrForbidden is returned when the caller attempts an operation on a
// resource they do not own, such as editing another user's message.
// Handlers should translate this into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")

// ErrConflict is returned when an operation cannot proceed due to
// conflicting state. Handlers should translate this into an HTTP 409
// response.
var ErrConflict = errors.New("conflict")

// ErrLoginExists and ErrEmailExists narrow ErrConflict for registration,
// letting the handler report which credential collided.
var (
	ErrLoginExists = errors.New("login already exists")
	ErrEmailExists = errors.New("email already exists")
)

// Not-found sentinels, one per entity. A missing or expired session is
// reported the same way as an absent one.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrSessionNotFound    = errors.New("session not found")
	ErrMessageNotFound    = errors.New("message not found")
	ErrAttachmentNotFound = errors.New("attachment not found")
)
