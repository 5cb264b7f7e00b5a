package conversation

import "errors"

var (
	// ErrEmptyMessage is returned for a turn without message text.
	ErrEmptyMessage = errors.New("conversation: message is required")
	// ErrSessionNotFound is returned when no session exists for an id.
	ErrSessionNotFound = errors.New("conversation: session not found")
	// ErrVersionConflict is returned when a session changed since it was loaded.
	ErrVersionConflict = errors.New("conversation: session version conflict")
)
