package session

import "errors"

var (
	// ErrCorruptStore means the persisted document exists but cannot be parsed
	// or violates a structural invariant. Recoverable by starting empty.
	ErrCorruptStore = errors.New("corrupt conversation store")

	// ErrStorageWrite means persisting the document failed.
	ErrStorageWrite = errors.New("conversation store write failed")

	// ErrSessionNotFound means no session has the requested id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrEmptyContent is returned when appending a message with no text.
	ErrEmptyContent = errors.New("message content is empty")
)
