// Package accounts implements login and registration on top of the identity
// provider. Session handling stays in the web layer.
package accounts

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrymomot/blogcms/internal/identity"
	"github.com/dmitrymomot/blogcms/pkg/logger"
	"github.com/dmitrymomot/blogcms/pkg/validator"
)

// ErrInvalidCredentials is wrapped by every login rejection.
var ErrInvalidCredentials = errors.New("accounts: invalid credentials")

// User-facing messages.
const (
	MsgUnknownUser       = "Username does not exist"
	MsgPasswordMismatch  = "Password does not match"
	MsgLoggedIn          = "Logged In Successfully!"
	MsgLoggedOut         = "You logged out successfully!"
	MsgRegistered        = "User Created Successfully!"
	MsgDuplicateEmail    = "This Email Already Exist!"
	MsgDuplicateUserName = "This UserName Already Exist!"
)

// CredentialsError carries the message shown for a rejected login.
type CredentialsError struct {
	Message string
}

func (e *CredentialsError) Error() string { return e.Message }

func (e *CredentialsError) Unwrap() error { return ErrInvalidCredentials }

// Identity is the part of identity.Provider the service uses.
type Identity interface {
	FindByUsername(ctx context.Context, userName string) (*identity.User, error)
	FindByEmail(ctx context.Context, email string) (*identity.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error)
	SignIn(ctx context.Context, u *identity.User, password string, lockoutOnFailure bool) (identity.SignInResult, error)
	CreateUser(ctx context.Context, in identity.NewUser, password string) (*identity.User, error)
	Users(ctx context.Context) ([]identity.User, error)
}

// Config controls registration rules.
type Config struct {
	PasswordMinLength int `env:"ACCOUNTS_PASSWORD_MIN_LENGTH" envDefault:"7"`
	NameMaxLength     int `env:"ACCOUNTS_NAME_MAX_LENGTH" envDefault:"100"`
}

// Service orchestrates login and registration.
type Service struct {
	identity Identity
	cfg      Config
	log      *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// New creates a Service.
func New(id Identity, cfg Config, opts ...Option) *Service {
	if cfg.PasswordMinLength <= 0 {
		cfg.PasswordMinLength = 7
	}
	if cfg.NameMaxLength <= 0 {
		cfg.NameMaxLength = 100
	}
	s := &Service{identity: id, cfg: cfg, log: logger.NewNope()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login verifies the credentials with lockout tracking and returns the user.
// Rejections wrap ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, userName, password string) (*identity.User, error) {
	userName = strings.TrimSpace(userName)
	if err := validator.Apply(
		validator.RequiredString("username", userName),
		validator.RequiredString("password", password),
	); err != nil {
		return nil, err
	}

	u, err := s.identity.FindByUsername(ctx, userName)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, &CredentialsError{Message: MsgUnknownUser}
	}

	res, err := s.identity.SignIn(ctx, u, password, true)
	if err != nil {
		return nil, err
	}
	switch res {
	case identity.SignInSucceeded:
		s.log.InfoContext(ctx, "user logged in", "user_id", u.ID)
		return u, nil
	case identity.SignInLockedOut:
		s.log.WarnContext(ctx, "login rejected, account locked out", "user_id", u.ID)
	}
	return nil, &CredentialsError{Message: MsgPasswordMismatch}
}

// RegisterInput is the registration form.
type RegisterInput struct {
	FirstName       string
	LastName        string
	UserName        string
	Email           string
	Password        string
	ConfirmPassword string
}

// Register creates an Author account. Duplicate email or user name returns
// *identity.OperationError.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*identity.User, error) {
	in.Email = strings.TrimSpace(in.Email)
	in.UserName = strings.TrimSpace(in.UserName)
	if err := validator.Apply(
		validator.RequiredString("first_name", in.FirstName),
		validator.MaxLenString("first_name", in.FirstName, s.cfg.NameMaxLength),
		validator.RequiredString("last_name", in.LastName),
		validator.MaxLenString("last_name", in.LastName, s.cfg.NameMaxLength),
		validator.RequiredString("username", in.UserName),
		validator.MaxLenString("username", in.UserName, s.cfg.NameMaxLength),
		validator.RequiredString("email", in.Email),
		validator.ValidEmail("email", in.Email),
		validator.RequiredString("password", in.Password),
		validator.MinLenString("password", in.Password, s.cfg.PasswordMinLength),
		validator.MatchesField("confirm_password", in.ConfirmPassword, "password", in.Password),
	); err != nil {
		return nil, err
	}

	existing, err := s.identity.FindByEmail(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, duplicate(identity.CodeDuplicateEmail, MsgDuplicateEmail)
	}
	existing, err = s.identity.FindByUsername(ctx, in.UserName)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, duplicate(identity.CodeDuplicateUserName, MsgDuplicateUserName)
	}

	u, err := s.identity.CreateUser(ctx, identity.NewUser{
		FirstName: strings.TrimSpace(in.FirstName),
		LastName:  strings.TrimSpace(in.LastName),
		UserName:  in.UserName,
		Email:     in.Email,
		Role:      identity.RoleAuthor,
	}, in.Password)
	if err != nil {
		// A concurrent registration can still hit the unique index.
		if opErr, ok := identity.AsOperationError(err); ok {
			return nil, normalizeDuplicates(opErr)
		}
		return nil, err
	}
	s.log.InfoContext(ctx, "user registered", "user_id", u.ID)
	return u, nil
}

// User returns the user with id, or nil.
func (s *Service) User(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	return s.identity.FindByID(ctx, id)
}

// Users lists every user with their role.
func (s *Service) Users(ctx context.Context) ([]identity.User, error) {
	return s.identity.Users(ctx)
}

func duplicate(code, msg string) *identity.OperationError {
	return &identity.OperationError{Failures: []identity.Failure{{Code: code, Description: msg}}}
}

func normalizeDuplicates(opErr *identity.OperationError) *identity.OperationError {
	out := &identity.OperationError{Failures: make([]identity.Failure, 0, len(opErr.Failures))}
	for _, f := range opErr.Failures {
		switch f.Code {
		case identity.CodeDuplicateEmail:
			f.Description = MsgDuplicateEmail
		case identity.CodeDuplicateUserName:
			f.Description = MsgDuplicateUserName
		}
		out.Failures = append(out.Failures, f)
	}
	return out
}
