package session

import (
	"errors"
	"fmt"
)

// MaxIDLength is the maximum length of a session id.
const MaxIDLength = 128

// Sentinel errors for session operations. These are part of the Manager's
// public API and should be checked with errors.Is().
//
// Example:
//
//	sess, err := mgr.Load(ctx, id)
//	if errors.Is(err, session.ErrNotFound) {
//	    // handle missing session
//	}
var (
	// ErrNotFound indicates the requested session does not exist.
	ErrNotFound = errors.New("session not found")

	// ErrAlreadyExists indicates a create collided with an existing session id.
	ErrAlreadyExists = errors.New("session already exists")

	// ErrInvalidID indicates the session id violates a validation rule.
	// Validation failures wrap this sentinel with the exact rule broken.
	ErrInvalidID = errors.New("invalid session id")
)

// ValidateID checks a session id against the allowed format:
// non-empty, at most MaxIDLength characters, charset [A-Za-z0-9_-].
// The returned error wraps ErrInvalidID and names the rule broken.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: must be a non-empty string", ErrInvalidID)
	}
	if len(id) > MaxIDLength {
		return fmt.Errorf("%w: exceeds %d characters", ErrInvalidID, MaxIDLength)
	}
	for _, c := range id {
		if !isIDChar(c) {
			return fmt.Errorf("%w: must contain only letters, digits, underscore, or hyphen", ErrInvalidID)
		}
	}
	return nil
}

func isIDChar(c rune) bool {
	switch {
	case c >= 'a' && c <= 'z':
		return true
	case c >= 'A' && c <= 'Z':
		return true
	case c >= '0' && c <= '9':
		return true
	case c == '_' || c == '-':
		return true
	}
	return false
}
