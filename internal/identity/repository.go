package identity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ResetToken is a stored password reset token. Only its SHA-256 hash is kept.
type ResetToken struct {
	CreatedAt  time.Time
	ExpiresAt  time.Time
	ConsumedAt *time.Time
	TokenHash  string
	UserID     uuid.UUID
}

// RedeemParams describes an atomic password reset.
type RedeemParams struct {
	Now          time.Time
	TokenHash    string
	PasswordHash string
	UserID       uuid.UUID
}

// Repository persists users and reset tokens.
//
// Find methods return ErrUserNotFound on absence. Create returns
// ErrDuplicateEmail or ErrDuplicateUserName on conflicts.
type Repository interface {
	Create(ctx context.Context, u *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByUserName(ctx context.Context, userName string) (*User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	List(ctx context.Context) ([]User, error)
	CountByRole(ctx context.Context, role Role) (int, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role Role) error

	// RecordFailedAccess increments the failure counter. When it reaches
	// maxAttempts the counter is reset and lockout_end is set to lockoutEnd.
	// It returns the resulting lockout end, if any.
	RecordFailedAccess(ctx context.Context, id uuid.UUID, maxAttempts int, lockoutEnd time.Time) (*time.Time, error)
	ResetAccessFailed(ctx context.Context, id uuid.UUID) error

	CreateResetToken(ctx context.Context, t ResetToken) error

	// RedeemResetToken verifies the token, stores the new password hash and
	// consumes every outstanding token of the user in one transaction.
	// It returns ErrResetTokenInvalid or ErrResetTokenExpired.
	RedeemResetToken(ctx context.Context, p RedeemParams) error
}
