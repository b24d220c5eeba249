package session

import "context"

// Store is the persistence contract for session records.
//
// All implementations must be safe for concurrent use, atomic at the
// single-key level, and must never share memory with callers: Get and
// ListAll return independent copies, and Set captures the record's value at
// call time.
type Store interface {
	// Get returns the session for id, or (nil, nil) if it does not exist.
	Get(ctx context.Context, id string) (*Session, error)

	// Set stores the session under id, replacing any existing record.
	Set(ctx context.Context, id string, sess *Session) error

	// Delete removes the session. Returns true if a record existed.
	Delete(ctx context.Context, id string) (bool, error)

	// ListAll returns every stored session, in unspecified order.
	ListAll(ctx context.Context) ([]*Session, error)
}
