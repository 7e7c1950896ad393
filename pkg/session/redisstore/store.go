// Package redisstore keeps sessions in Redis. Each session lives under its
// token key with a TTL matching ExpiresAt, and two index keys map the session
// id to its current token and a user to their session ids.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/blogcms/pkg/session"
)

const defaultPrefix = "session:"

// Store implements session.Store on Redis.
type Store struct {
	client redis.UniversalClient
	prefix string
}

var _ session.Store = (*Store)(nil)

// Option configures the Store.
type Option func(*Store)

// WithPrefix sets the key prefix. Defaults to "session:".
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// New creates a Store.
func New(client redis.UniversalClient, opts ...Option) *Store {
	s := &Store{client: client, prefix: defaultPrefix}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) tokenKey(token string) string { return s.prefix + "token:" + token }
func (s *Store) idKey(id string) string       { return s.prefix + "id:" + id }
func (s *Store) userKey(userID string) string { return s.prefix + "user:" + userID }

func (s *Store) Create(ctx context.Context, sess *session.Session) error {
	return s.write(ctx, sess, "")
}

func (s *Store) Get(ctx context.Context, token string) (*session.Session, error) {
	data, err := s.client.Get(ctx, s.tokenKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redisstore: get session: %w", err)
	}

	var sess session.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("redisstore: decode session: %w", err)
	}
	if sess.Values == nil {
		sess.Values = make(map[string]any)
	}
	if sess.IsExpired() {
		return nil, session.ErrExpired
	}
	return &sess, nil
}

func (s *Store) Update(ctx context.Context, sess *session.Session) error {
	oldToken, err := s.client.Get(ctx, s.idKey(sess.ID)).Result()
	if errors.Is(err, redis.Nil) {
		return session.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("redisstore: lookup session: %w", err)
	}
	return s.write(ctx, sess, oldToken)
}

// write stores sess and its index keys atomically. A non-empty staleToken
// different from the current token is removed in the same transaction.
func (s *Store) write(ctx context.Context, sess *session.Session, staleToken string) error {
	data, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("redisstore: encode session: %w", err)
	}

	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return session.ErrExpired
	}

	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		if staleToken != "" && staleToken != sess.Token {
			p.Del(ctx, s.tokenKey(staleToken))
		}
		p.Set(ctx, s.tokenKey(sess.Token), data, ttl)
		p.Set(ctx, s.idKey(sess.ID), sess.Token, ttl)
		if uid := sess.UserIDValue(); uid != "" {
			p.SAdd(ctx, s.userKey(uid), sess.ID)
			p.ExpireGT(ctx, s.userKey(uid), ttl)
			p.ExpireNX(ctx, s.userKey(uid), ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redisstore: save session: %w", err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	token, err := s.client.Get(ctx, s.idKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("redisstore: lookup session: %w", err)
	}
	if err := s.client.Del(ctx, s.tokenKey(token), s.idKey(id)).Err(); err != nil {
		return fmt.Errorf("redisstore: delete session: %w", err)
	}
	return nil
}

func (s *Store) DeleteByUserID(ctx context.Context, userID string) error {
	ids, err := s.client.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("redisstore: list user sessions: %w", err)
	}
	for _, id := range ids {
		if err := s.Delete(ctx, id); err != nil {
			return err
		}
	}
	if err := s.client.Del(ctx, s.userKey(userID)).Err(); err != nil {
		return fmt.Errorf("redisstore: delete user index: %w", err)
	}
	return nil
}

// Touch reloads the session and rewrites it with the new activity time.
func (s *Store) Touch(ctx context.Context, id string, lastActiveAt time.Time) error {
	token, err := s.client.Get(ctx, s.idKey(id)).Result()
	if errors.Is(err, redis.Nil) {
		return session.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("redisstore: lookup session: %w", err)
	}
	sess, err := s.Get(ctx, token)
	if err != nil {
		return err
	}
	sess.LastActiveAt = lastActiveAt
	return s.write(ctx, sess, "")
}
