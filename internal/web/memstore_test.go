package web

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrymomot/blogcms/pkg/session"
)

// memStore is an in-memory session.Store keyed by token.
type memStore struct {
	mu       sync.Mutex
	sessions map[string]*session.Session
	touched  int
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[string]*session.Session)}
}

func (s *memStore) Create(_ context.Context, sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	s.sessions[sess.Token] = &cp
	return nil
}

func (s *memStore) Get(_ context.Context, token string) (*session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[token]
	if !ok {
		return nil, session.ErrNotFound
	}
	if sess.IsExpired() {
		return nil, session.ErrExpired
	}
	cp := *sess
	return &cp, nil
}

func (s *memStore) Update(_ context.Context, sess *session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for tok, existing := range s.sessions {
		if existing.ID == sess.ID {
			delete(s.sessions, tok)
		}
	}
	cp := *sess
	s.sessions[sess.Token] = &cp
	return nil
}

func (s *memStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for tok, existing := range s.sessions {
		if existing.ID == id {
			delete(s.sessions, tok)
		}
	}
	return nil
}

func (s *memStore) DeleteByUserID(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for tok, existing := range s.sessions {
		if existing.UserIDValue() == userID {
			delete(s.sessions, tok)
		}
	}
	return nil
}

func (s *memStore) Touch(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched++
	for _, existing := range s.sessions {
		if existing.ID == id {
			existing.LastActiveAt = at
		}
	}
	return nil
}

func (s *memStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
