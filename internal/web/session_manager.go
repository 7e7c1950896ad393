package web

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/blogcms/pkg/logger"
	"github.com/dmitrymomot/blogcms/pkg/session"
)

const (
	defaultSessionCookieName  = "__sid"
	defaultSessionMaxAge      = 30 * 24 * time.Hour
	defaultSessionIdleTimeout = 20 * time.Minute
	// touchInterval limits LastActiveAt writes to one per interval per session.
	touchInterval = time.Minute
)

// SessionManager owns the session cookie and the session lifecycle.
//
// Persistent sessions get a cookie with Max-Age and live until ExpiresAt.
// Other sessions get a browser-session cookie and also end after idleTimeout
// without a request.
type SessionManager struct {
	store       session.Store
	logger      *slog.Logger
	now         func() time.Time
	cookieName  string
	domain      string
	maxAge      time.Duration
	idleTimeout time.Duration
	secure      bool
}

type SessionOption func(*SessionManager)

func NewSessionManager(store session.Store, opts ...SessionOption) *SessionManager {
	sm := &SessionManager{
		store:       store,
		logger:      logger.NewNope(),
		now:         time.Now,
		cookieName:  defaultSessionCookieName,
		maxAge:      defaultSessionMaxAge,
		idleTimeout: defaultSessionIdleTimeout,
	}
	for _, opt := range opts {
		opt(sm)
	}
	return sm
}

func WithSessionCookieName(name string) SessionOption {
	return func(sm *SessionManager) {
		if name != "" {
			sm.cookieName = name
		}
	}
}

// WithSessionMaxAge sets the lifetime of persistent sessions.
func WithSessionMaxAge(d time.Duration) SessionOption {
	return func(sm *SessionManager) {
		if d > 0 {
			sm.maxAge = d
		}
	}
}

// WithSessionIdleTimeout sets the sliding timeout of non-persistent sessions.
// Zero disables it.
func WithSessionIdleTimeout(d time.Duration) SessionOption {
	return func(sm *SessionManager) {
		sm.idleTimeout = d
	}
}

func WithSessionDomain(domain string) SessionOption {
	return func(sm *SessionManager) {
		sm.domain = domain
	}
}

func WithSessionSecure(secure bool) SessionOption {
	return func(sm *SessionManager) {
		sm.secure = secure
	}
}

func withSessionClock(now func() time.Time) SessionOption {
	return func(sm *SessionManager) {
		sm.now = now
	}
}

func (sm *SessionManager) setLogger(l *slog.Logger) {
	if l != nil {
		sm.logger = l
	}
}

func (sm *SessionManager) Store() session.Store {
	return sm.store
}

// LoadSession returns the session named by the request cookie.
// It returns nil, nil when there is no cookie, session.ErrNotFound or
// session.ErrExpired from the store, and session.ErrExpired for idle sessions,
// which are deleted.
func (sm *SessionManager) LoadSession(ctx context.Context, r *http.Request) (*session.Session, error) {
	c, err := r.Cookie(sm.cookieName)
	if err != nil || c.Value == "" {
		return nil, nil
	}

	sess, err := sm.store.Get(ctx, c.Value)
	if err != nil {
		return nil, err
	}

	now := sm.now()
	if sess.IsIdle(sm.idleTimeout, now) {
		if err := sm.store.Delete(ctx, sess.ID); err != nil {
			sm.logger.WarnContext(ctx, "failed to delete idle session", slog.String("error", err.Error()))
		}
		return nil, session.ErrExpired
	}

	if now.Sub(sess.LastActiveAt) >= touchInterval {
		sess.LastActiveAt = now
		if err := sm.store.Touch(ctx, sess.ID, now); err != nil {
			sm.logger.WarnContext(ctx, "failed to touch session", slog.String("error", err.Error()))
		}
	}
	return sess, nil
}

// CreateSession stores a new anonymous, non-persistent session.
func (sm *SessionManager) CreateSession(ctx context.Context, r *http.Request) (*session.Session, error) {
	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	sess := session.New(uuid.NewString(), token, sm.now().Add(sm.maxAge))
	sess.IP = clientIP(r)
	sess.UserAgent = r.UserAgent()

	if err := sm.store.Create(ctx, sess); err != nil {
		return nil, err
	}
	sess.ClearNew()
	sess.ClearDirty()
	return sess, nil
}

// SetPersistent switches a session between remember-me and browser-session
// modes and restarts its lifetime.
func (sm *SessionManager) SetPersistent(sess *session.Session, persistent bool) {
	now := sm.now()
	sess.Persistent = persistent
	sess.LastActiveAt = now
	sess.ExpiresAt = now.Add(sm.maxAge)
	sess.MarkDirty()
}

// RotateToken gives sess a new token. The old one stops working.
func (sm *SessionManager) RotateToken(ctx context.Context, sess *session.Session) error {
	oldToken := sess.Token
	newToken, err := generateToken()
	if err != nil {
		return err
	}

	sess.Token = newToken
	if err := sm.store.Update(ctx, sess); err != nil {
		sess.Token = oldToken
		return err
	}
	sess.ClearDirty()
	return nil
}

// SaveSession writes the session cookie.
func (sm *SessionManager) SaveSession(w http.ResponseWriter, sess *session.Session) {
	maxAge := 0
	if sess.Persistent {
		maxAge = int(time.Until(sess.ExpiresAt).Seconds())
	}
	http.SetCookie(w, sm.cookie(sess.Token, maxAge))
}

// DeleteSession expires the session cookie.
func (sm *SessionManager) DeleteSession(w http.ResponseWriter) {
	http.SetCookie(w, sm.cookie("", -1))
}

func (sm *SessionManager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     sm.cookieName,
		Value:    value,
		Path:     "/",
		Domain:   sm.domain,
		MaxAge:   maxAge,
		Secure:   sm.secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func generateToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate session token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// clientIP expects chi's RealIP middleware to have rewritten RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
