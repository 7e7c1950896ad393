package identity

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is the single primary role of a user.
type Role string

const (
	RoleAdmin  Role = "Admin"
	RoleAuthor Role = "Author"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleAuthor
}

func (r Role) String() string { return string(r) }

// User is a registered account.
type User struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// LockoutEnd is set while sign-in is blocked after repeated failures.
	LockoutEnd *time.Time `json:"-"`

	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	UserName     string `json:"user_name"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"role"`

	AccessFailedCount int `json:"-"`

	ID uuid.UUID `json:"id"`
}

// FullName returns "first last" with surrounding spaces trimmed.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Roles returns the user's role as a one-element slice.
func (u *User) Roles() []Role {
	if u.Role == "" {
		return nil
	}
	return []Role{u.Role}
}

// IsLockedOut reports whether sign-in is blocked at now.
func (u *User) IsLockedOut(now time.Time) bool {
	return u.LockoutEnd != nil && u.LockoutEnd.After(now)
}

// NewUser holds the fields needed to create a user.
type NewUser struct {
	FirstName string
	LastName  string
	UserName  string
	Email     string
	Role      Role
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
