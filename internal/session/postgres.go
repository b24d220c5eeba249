package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// postgresSchema holds all session records in one root table, keyed by
// session id. The record itself is an opaque JSONB document; the store does
// not decompose it into columns.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS chat_sessions (
	session_id TEXT PRIMARY KEY,
	record     JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// PostgresStore is a Store backed by a PostgreSQL table.
//
// Single-key reads and writes are atomic: Set is an upsert, Delete reports
// whether a row was removed. PostgresStore is safe for concurrent use; all
// state lives in the database.
type PostgresStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewPostgresStore creates a PostgresStore and ensures the root table exists.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("ensure chat_sessions table: %w", err)
	}

	return &PostgresStore{pool: pool, logger: logger}, nil
}

// Get implements Store.
func (p *PostgresStore) Get(ctx context.Context, id string) (*Session, error) {
	var raw []byte
	err := p.pool.QueryRow(ctx,
		`SELECT record FROM chat_sessions WHERE session_id = $1`, id,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}

	var sess Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &sess, nil
}

// Set implements Store.
func (p *PostgresStore) Set(ctx context.Context, id string, sess *Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", id, err)
	}

	_, err = p.pool.Exec(ctx,
		`INSERT INTO chat_sessions (session_id, record, updated_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (session_id) DO UPDATE SET record = $2, updated_at = now()`,
		id, raw,
	)
	if err != nil {
		return fmt.Errorf("set session %s: %w", id, err)
	}

	p.logger.Debug("stored session", "session_id", id)
	return nil
}

// Delete implements Store.
func (p *PostgresStore) Delete(ctx context.Context, id string) (bool, error) {
	tag, err := p.pool.Exec(ctx,
		`DELETE FROM chat_sessions WHERE session_id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("delete session %s: %w", id, err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListAll implements Store.
func (p *PostgresStore) ListAll(ctx context.Context) ([]*Session, error) {
	rows, err := p.pool.Query(ctx, `SELECT record FROM chat_sessions`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan session record: %w", err)
		}
		var sess Session
		if err := json.Unmarshal(raw, &sess); err != nil {
			p.logger.Warn("skipping malformed session record", "error", err)
			continue
		}
		sessions = append(sessions, &sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// Ping reports whether the backing database is reachable.
// Used by the readiness probe.
func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}
