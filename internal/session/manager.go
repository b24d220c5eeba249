package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Manager owns session identity, validation, and CRUD against a Store.
//
// Manager is stateless apart from its dependencies and is safe for
// concurrent use. Every session it returns or accepts crosses a value-copy
// boundary.
type Manager struct {
	store  Store
	logger *slog.Logger
}

// NewManager creates a Manager over the given store.
func NewManager(store Store, logger *slog.Logger) (*Manager, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{store: store, logger: logger}, nil
}

// Create creates a new empty session. With id == "", a fresh UUID is
// generated. Returns ErrAlreadyExists if the id is already taken and
// ErrInvalidID if the id is malformed.
func (m *Manager) Create(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	existing, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("create session %s: %w", id, err)
	}
	if existing != nil {
		return nil, fmt.Errorf("session '%s': %w", id, ErrAlreadyExists)
	}

	sess := NewEmpty(id)
	if err := m.store.Set(ctx, id, sess); err != nil {
		return nil, fmt.Errorf("create session %s: %w", id, err)
	}

	m.logger.Debug("created session", "session_id", id)
	return sess.Clone(), nil
}

// Load returns the session for id, or (nil, nil) if it does not exist.
func (m *Manager) Load(ctx context.Context, id string) (*Session, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	sess, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	if sess == nil {
		return nil, nil
	}
	return sess.Clone(), nil
}

// LoadOrCreate returns the existing session for id, creating an empty one if
// it does not exist. With id == "", a fresh session is always created under
// a generated id.
func (m *Manager) LoadOrCreate(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return m.Create(ctx, "")
	}
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	existing, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	if existing != nil {
		return existing.Clone(), nil
	}

	sess := NewEmpty(id)
	if err := m.store.Set(ctx, id, sess); err != nil {
		return nil, fmt.Errorf("create session %s: %w", id, err)
	}
	return sess.Clone(), nil
}

// Save persists the session, refreshing its UpdatedAt. The stored record is
// a copy; the caller's session is not retained.
func (m *Manager) Save(ctx context.Context, sess *Session) (*Session, error) {
	if sess == nil {
		return nil, fmt.Errorf("%w: session is nil", ErrInvalidID)
	}
	if err := ValidateID(sess.ID); err != nil {
		return nil, err
	}

	next := sess.Clone()
	next.UpdatedAt = time.Now().UTC()
	if err := m.store.Set(ctx, next.ID, next); err != nil {
		return nil, fmt.Errorf("save session %s: %w", next.ID, err)
	}
	return next.Clone(), nil
}

// Reset reinitializes the session to the empty state, preserving its
// CreatedAt and id. Returns ErrNotFound if the session does not exist.
func (m *Manager) Reset(ctx context.Context, id string) (*Session, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	existing, err := m.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reset session %s: %w", id, err)
	}
	if existing == nil {
		return nil, fmt.Errorf("session '%s': %w", id, ErrNotFound)
	}

	reset := NewEmpty(id)
	reset.CreatedAt = existing.CreatedAt
	reset.UpdatedAt = time.Now().UTC()
	if err := m.store.Set(ctx, id, reset); err != nil {
		return nil, fmt.Errorf("reset session %s: %w", id, err)
	}

	m.logger.Debug("reset session", "session_id", id)
	return reset.Clone(), nil
}

// Delete removes the session, freeing its id for reuse.
// Returns ErrNotFound if the session does not exist.
func (m *Manager) Delete(ctx context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}

	deleted, err := m.store.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	if !deleted {
		return fmt.Errorf("session '%s': %w", id, ErrNotFound)
	}

	m.logger.Debug("deleted session", "session_id", id)
	return nil
}

// ListAll returns every stored session. Intended for diagnostics and tests.
func (m *Manager) ListAll(ctx context.Context) ([]*Session, error) {
	sessions, err := m.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	out := make([]*Session, len(sessions))
	for i, s := range sessions {
		out[i] = s.Clone()
	}
	return out, nil
}
