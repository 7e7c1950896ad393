// Package pgstore keeps sessions in the PostgreSQL sessions table.
package pgstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/blogcms/pkg/session"
)

// DB is the subset of pgxpool.Pool the store needs.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements session.Store on PostgreSQL.
type Store struct {
	db DB
}

var _ session.Store = (*Store)(nil)

// New creates a Store.
func New(db DB) *Store {
	return &Store{db: db}
}

const insertSession = `
INSERT INTO sessions (id, token, user_id, data, ip, user_agent, persistent, created_at, last_active_at, expires_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

func (s *Store) Create(ctx context.Context, sess *session.Session) error {
	data, err := json.Marshal(sess.Values)
	if err != nil {
		return fmt.Errorf("pgstore: encode values: %w", err)
	}
	_, err = s.db.Exec(ctx, insertSession,
		sess.ID, sess.Token, sess.UserID, data, sess.IP, sess.UserAgent, sess.Persistent,
		sess.CreatedAt, sess.LastActiveAt, sess.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("pgstore: create session: %w", err)
	}
	return nil
}

const selectSession = `
SELECT id, token, user_id, data, ip, user_agent, persistent, created_at, last_active_at, expires_at
FROM sessions WHERE token = $1`

func (s *Store) Get(ctx context.Context, token string) (*session.Session, error) {
	var (
		sess session.Session
		data []byte
	)
	err := s.db.QueryRow(ctx, selectSession, token).Scan(
		&sess.ID, &sess.Token, &sess.UserID, &data, &sess.IP, &sess.UserAgent, &sess.Persistent,
		&sess.CreatedAt, &sess.LastActiveAt, &sess.ExpiresAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("pgstore: get session: %w", err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &sess.Values); err != nil {
			return nil, fmt.Errorf("pgstore: decode values: %w", err)
		}
	}
	if sess.Values == nil {
		sess.Values = make(map[string]any)
	}
	if sess.IsExpired() {
		return nil, session.ErrExpired
	}
	return &sess, nil
}

const updateSession = `
UPDATE sessions
SET token = $2, user_id = $3, data = $4, persistent = $5, last_active_at = $6, expires_at = $7
WHERE id = $1`

func (s *Store) Update(ctx context.Context, sess *session.Session) error {
	data, err := json.Marshal(sess.Values)
	if err != nil {
		return fmt.Errorf("pgstore: encode values: %w", err)
	}
	tag, err := s.db.Exec(ctx, updateSession,
		sess.ID, sess.Token, sess.UserID, data, sess.Persistent, sess.LastActiveAt, sess.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("pgstore: update session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return session.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("pgstore: delete session: %w", err)
	}
	return nil
}

func (s *Store) DeleteByUserID(ctx context.Context, userID string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("pgstore: delete user sessions: %w", err)
	}
	return nil
}

func (s *Store) Touch(ctx context.Context, id string, lastActiveAt time.Time) error {
	if _, err := s.db.Exec(ctx, `UPDATE sessions SET last_active_at = $2 WHERE id = $1`, id, lastActiveAt); err != nil {
		return fmt.Errorf("pgstore: touch session: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions past their expiry and returns how many were removed.
func (s *Store) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("pgstore: delete expired sessions: %w", err)
	}
	return tag.RowsAffected(), nil
}
