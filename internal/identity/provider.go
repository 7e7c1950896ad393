package identity

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrymomot/blogcms/pkg/logger"
	"github.com/dmitrymomot/blogcms/pkg/sanitizer"
)

// SignInResult is the outcome of a password sign-in attempt.
type SignInResult int

const (
	SignInFailed SignInResult = iota
	SignInSucceeded
	SignInLockedOut
)

func (r SignInResult) String() string {
	switch r {
	case SignInSucceeded:
		return "succeeded"
	case SignInLockedOut:
		return "locked_out"
	default:
		return "failed"
	}
}

// Provider is the identity service used by the account and reset workflows.
type Provider struct {
	repo Repository
	cfg  Config
	log  *slog.Logger
	now  func() time.Time
}

// ProviderOption configures a Provider.
type ProviderOption func(*Provider)

// WithLogger sets the provider logger.
func WithLogger(l *slog.Logger) ProviderOption {
	return func(p *Provider) {
		if l != nil {
			p.log = l
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) ProviderOption {
	return func(p *Provider) {
		p.now = now
	}
}

// NewProvider creates a Provider.
func NewProvider(repo Repository, cfg Config, opts ...ProviderOption) *Provider {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	p := &Provider{
		repo: repo,
		cfg:  cfg,
		log:  logger.NewNope(),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) FindByEmail(ctx context.Context, email string) (*User, error) {
	return orNil(p.repo.FindByEmail(ctx, normalizeEmail(email)))
}

func (p *Provider) FindByUsername(ctx context.Context, userName string) (*User, error) {
	return orNil(p.repo.FindByUserName(ctx, userName))
}

func (p *Provider) FindByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return orNil(p.repo.FindByID(ctx, id))
}

func orNil(u *User, err error) (*User, error) {
	if errors.Is(err, ErrUserNotFound) {
		return nil, nil
	}
	return u, err
}

// Users lists every user.
func (p *Provider) Users(ctx context.Context) ([]User, error) {
	return p.repo.List(ctx)
}

// Roles returns the roles of u.
func (p *Provider) Roles(u *User) []Role {
	return u.Roles()
}

// CheckPassword reports whether password matches the stored hash.
func (p *Provider) CheckPassword(u *User, password string) bool {
	if u == nil || u.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// CreateUser stores a new user with the given password. Names are reduced to
// plain text. Conflicts and password policy violations return *OperationError.
func (p *Provider) CreateUser(ctx context.Context, in NewUser, password string) (*User, error) {
	if in.Role == "" {
		in.Role = RoleAuthor
	}
	if !in.Role.Valid() {
		return nil, invalidRole(in.Role)
	}
	if failures := p.passwordFailures(password); len(failures) > 0 {
		return nil, newOperationError(failures...)
	}

	hash, err := p.hash(password)
	if err != nil {
		return nil, err
	}

	now := p.now().UTC()
	u := &User{
		ID:           uuid.New(),
		FirstName:    sanitizer.StripHTML(in.FirstName),
		LastName:     sanitizer.StripHTML(in.LastName),
		UserName:     sanitizer.StripHTML(in.UserName),
		Email:        normalizeEmail(in.Email),
		PasswordHash: hash,
		Role:         in.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	switch err := p.repo.Create(ctx, u); {
	case err == nil:
		p.log.InfoContext(ctx, "user created", "user_id", u.ID, "role", u.Role)
		return u, nil
	case errors.Is(err, ErrDuplicateEmail):
		return nil, newOperationError(Failure{
			Code:        CodeDuplicateEmail,
			Description: fmt.Sprintf("Email '%s' is already taken.", u.Email),
		})
	case errors.Is(err, ErrDuplicateUserName):
		return nil, newOperationError(Failure{
			Code:        CodeDuplicateUserName,
			Description: fmt.Sprintf("Username '%s' is already taken.", u.UserName),
		})
	default:
		return nil, err
	}
}

// AddToRole replaces the user's role.
func (p *Provider) AddToRole(ctx context.Context, u *User, role Role) error {
	if !role.Valid() {
		return invalidRole(role)
	}
	if err := p.repo.UpdateRole(ctx, u.ID, role); err != nil {
		return err
	}
	u.Role = role
	return nil
}

func invalidRole(role Role) *OperationError {
	return newOperationError(Failure{
		Code:        CodeInvalidRole,
		Description: fmt.Sprintf("Role %s does not exist.", role),
	})
}

// SignIn checks the password and tracks failures. With lockoutOnFailure set,
// MaxFailedAttempts consecutive failures lock the account for LockoutDuration.
func (p *Provider) SignIn(ctx context.Context, u *User, password string, lockoutOnFailure bool) (SignInResult, error) {
	now := p.now()
	if u.IsLockedOut(now) {
		return SignInLockedOut, nil
	}

	if p.CheckPassword(u, password) {
		if u.AccessFailedCount > 0 || u.LockoutEnd != nil {
			if err := p.repo.ResetAccessFailed(ctx, u.ID); err != nil {
				return SignInFailed, err
			}
			u.AccessFailedCount, u.LockoutEnd = 0, nil
		}
		return SignInSucceeded, nil
	}

	if !lockoutOnFailure || p.cfg.MaxFailedAttempts <= 0 {
		return SignInFailed, nil
	}

	end, err := p.repo.RecordFailedAccess(ctx, u.ID, p.cfg.MaxFailedAttempts, now.Add(p.cfg.LockoutDuration))
	if err != nil {
		return SignInFailed, err
	}
	u.LockoutEnd = end
	if u.IsLockedOut(now) {
		p.log.WarnContext(ctx, "user locked out", "user_id", u.ID, "until", *end)
		return SignInLockedOut, nil
	}
	return SignInFailed, nil
}

// GenerateResetToken issues a single-use reset token valid for ResetTokenTTL.
// Only the token hash is stored.
func (p *Provider) GenerateResetToken(ctx context.Context, u *User) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("identity: generate reset token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(b)

	now := p.now().UTC()
	err := p.repo.CreateResetToken(ctx, ResetToken{
		TokenHash: hashToken(token),
		UserID:    u.ID,
		CreatedAt: now,
		ExpiresAt: now.Add(p.cfg.ResetTokenTTL),
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

// ResetPassword redeems token and sets newPassword. A successful reset
// consumes every outstanding token of the user and clears any lockout.
func (p *Provider) ResetPassword(ctx context.Context, u *User, token, newPassword string) error {
	if token == "" {
		return newOperationError(invalidTokenFailure)
	}
	if failures := p.passwordFailures(newPassword); len(failures) > 0 {
		return newOperationError(failures...)
	}

	hash, err := p.hash(newPassword)
	if err != nil {
		return err
	}

	err = p.repo.RedeemResetToken(ctx, RedeemParams{
		UserID:       u.ID,
		TokenHash:    hashToken(token),
		PasswordHash: hash,
		Now:          p.now().UTC(),
	})
	switch {
	case err == nil:
		u.PasswordHash, u.AccessFailedCount, u.LockoutEnd = hash, 0, nil
		return nil
	case errors.Is(err, ErrResetTokenInvalid):
		return newOperationError(invalidTokenFailure)
	case errors.Is(err, ErrResetTokenExpired):
		return newOperationError(Failure{Code: CodeExpiredToken, Description: "The reset token has expired."})
	default:
		return err
	}
}

var invalidTokenFailure = Failure{Code: CodeInvalidToken, Description: "Invalid token."}

// SeedAdmin creates the configured administrator unless an admin already
// exists. It reports whether a user was created.
func (p *Provider) SeedAdmin(ctx context.Context, seed AdminSeed) (bool, error) {
	if seed.Email == "" {
		return false, nil
	}
	n, err := p.repo.CountByRole(ctx, RoleAdmin)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	if _, err := p.CreateUser(ctx, NewUser{
		FirstName: seed.FirstName,
		LastName:  seed.LastName,
		UserName:  seed.UserName,
		Email:     seed.Email,
		Role:      RoleAdmin,
	}, seed.Password); err != nil {
		return false, fmt.Errorf("identity: seed admin: %w", err)
	}
	return true, nil
}

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

func (p *Provider) passwordFailures(password string) []Failure {
	switch {
	case utf8.RuneCountInString(password) < p.cfg.PasswordMinLength:
		return []Failure{{
			Code:        CodePasswordTooShort,
			Description: fmt.Sprintf("Passwords must be at least %d characters.", p.cfg.PasswordMinLength),
		}}
	case len(password) > MaxPasswordBytes:
		return []Failure{{
			Code:        CodePasswordTooLong,
			Description: fmt.Sprintf("Passwords must be at most %d bytes.", MaxPasswordBytes),
		}}
	}
	return nil
}

func (p *Provider) hash(password string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), p.cfg.BcryptCost)
	if err != nil {
		return "", errors.Join(ErrFailedToHashSecret, err)
	}
	return string(h), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
