package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/blogcms/pkg/cache"
)

// UserFinder looks a user up by id, returning nil when absent.
type UserFinder interface {
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
}

// CachedLookup resolves the signed-in user on each request without a query.
// Cached users carry no password hash or lockout state, so they must not be
// passed to SignIn or CheckPassword.
type CachedLookup struct {
	users UserFinder
	cache cache.Cache[User]
	ttl   time.Duration
}

func NewCachedLookup(users UserFinder, c cache.Cache[User], ttl time.Duration) *CachedLookup {
	return &CachedLookup{users: users, cache: c, ttl: ttl}
}

func (l *CachedLookup) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := cache.GetOrSet(ctx, l.cache, id.String(), l.ttl, func(ctx context.Context) (User, error) {
		u, err := l.users.FindByID(ctx, id)
		if err != nil {
			return User{}, err
		}
		if u == nil {
			return User{}, ErrUserNotFound
		}
		out := *u
		out.PasswordHash = ""
		out.LockoutEnd = nil
		out.AccessFailedCount = 0
		return out, nil
	})
	if errors.Is(err, ErrUserNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}
