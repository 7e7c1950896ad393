package session

import (
	"context"
	"time"
)

// Store persists sessions.
type Store interface {
	// Create persists a new session.
	Create(ctx context.Context, s *Session) error

	// Get returns the session for a cookie token.
	// Returns ErrNotFound if absent and ErrExpired if past ExpiresAt.
	Get(ctx context.Context, token string) (*Session, error)

	// Update saves an existing session, including a rotated token.
	Update(ctx context.Context, s *Session) error

	// Delete removes a session by ID. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error

	// DeleteByUserID removes every session of a user.
	DeleteByUserID(ctx context.Context, userID string) error

	// Touch bumps LastActiveAt without rewriting the session.
	Touch(ctx context.Context, id string, lastActiveAt time.Time) error
}
