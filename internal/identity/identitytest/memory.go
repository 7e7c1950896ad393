// Package identitytest provides an in-memory identity.Repository for tests.
package identitytest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/blogcms/internal/identity"
)

// MemoryRepository keeps users and reset tokens in maps.
type MemoryRepository struct {
	mu     sync.Mutex
	users  map[uuid.UUID]*identity.User
	tokens []identity.ResetToken
}

// NewMemoryRepository creates an empty MemoryRepository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: make(map[uuid.UUID]*identity.User)}
}

var _ identity.Repository = (*MemoryRepository)(nil)

func (m *MemoryRepository) Create(_ context.Context, u *identity.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return identity.ErrDuplicateEmail
		}
		if strings.EqualFold(existing.UserName, u.UserName) {
			return identity.ErrDuplicateUserName
		}
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *MemoryRepository) find(match func(*identity.User) bool) (*identity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, identity.ErrUserNotFound
}

func (m *MemoryRepository) FindByEmail(_ context.Context, email string) (*identity.User, error) {
	return m.find(func(u *identity.User) bool { return strings.EqualFold(u.Email, email) })
}

func (m *MemoryRepository) FindByUserName(_ context.Context, userName string) (*identity.User, error) {
	return m.find(func(u *identity.User) bool { return strings.EqualFold(u.UserName, userName) })
}

func (m *MemoryRepository) FindByID(_ context.Context, id uuid.UUID) (*identity.User, error) {
	return m.find(func(u *identity.User) bool { return u.ID == id })
}

func (m *MemoryRepository) List(context.Context) ([]identity.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	users := make([]identity.User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].UserName < users[j].UserName })
	return users, nil
}

func (m *MemoryRepository) CountByRole(_ context.Context, role identity.Role) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, u := range m.users {
		if u.Role == role {
			n++
		}
	}
	return n, nil
}

func (m *MemoryRepository) UpdateRole(_ context.Context, id uuid.UUID, role identity.Role) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return identity.ErrUserNotFound
	}
	u.Role = role
	return nil
}

func (m *MemoryRepository) RecordFailedAccess(_ context.Context, id uuid.UUID, maxAttempts int, lockoutEnd time.Time) (*time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	u.AccessFailedCount++
	if u.AccessFailedCount >= maxAttempts {
		u.AccessFailedCount = 0
		u.LockoutEnd = &lockoutEnd
	}
	if u.LockoutEnd == nil {
		return nil, nil
	}
	end := *u.LockoutEnd
	return &end, nil
}

func (m *MemoryRepository) ResetAccessFailed(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		u.AccessFailedCount, u.LockoutEnd = 0, nil
	}
	return nil
}

func (m *MemoryRepository) CreateResetToken(_ context.Context, t identity.ResetToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tokens = append(m.tokens, t)
	return nil
}

func (m *MemoryRepository) RedeemResetToken(_ context.Context, p identity.RedeemParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := -1
	for i, t := range m.tokens {
		if t.UserID == p.UserID && t.TokenHash == p.TokenHash {
			idx = i
		}
	}
	switch {
	case idx < 0 || m.tokens[idx].ConsumedAt != nil:
		return identity.ErrResetTokenInvalid
	case !m.tokens[idx].ExpiresAt.After(p.Now):
		return identity.ErrResetTokenExpired
	}

	u := m.users[p.UserID]
	u.PasswordHash, u.AccessFailedCount, u.LockoutEnd = p.PasswordHash, 0, nil
	for i := range m.tokens {
		if m.tokens[i].UserID == p.UserID && m.tokens[i].ConsumedAt == nil {
			now := p.Now
			m.tokens[i].ConsumedAt = &now
		}
	}
	return nil
}
