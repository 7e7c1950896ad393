// Package passwordreset issues password reset links by email and redeems them.
package passwordreset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrymomot/blogcms/internal/identity"
	"github.com/dmitrymomot/blogcms/internal/templates/emails"
	"github.com/dmitrymomot/blogcms/pkg/logger"
	"github.com/dmitrymomot/blogcms/pkg/mailer"
	"github.com/dmitrymomot/blogcms/pkg/validator"
)

// ErrDispatchFailed is returned when the reset email could not be sent.
var ErrDispatchFailed = errors.New("passwordreset: failed to send reset email")

// Subject of the reset email.
const Subject = "Reset password link"

// Outcome tells the caller which page to show next.
type Outcome int

const (
	// OutcomeConfirmation means "check your inbox".
	OutcomeConfirmation Outcome = iota + 1
	// OutcomeConfirmationError means no account matched the email.
	OutcomeConfirmationError
	// OutcomeRedeemed means the reset flow is finished.
	OutcomeRedeemed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeConfirmation:
		return "confirmation"
	case OutcomeConfirmationError:
		return "confirmation_error"
	case OutcomeRedeemed:
		return "redeemed"
	default:
		return "unknown"
	}
}

// Config controls the reset workflow.
type Config struct {
	// UnifyConfirmation reports OutcomeConfirmation for unknown emails too,
	// so the response does not reveal whether an account exists.
	UnifyConfirmation bool `env:"RESET_UNIFY_CONFIRMATION" envDefault:"false"`
	PasswordMinLength int  `env:"RESET_PASSWORD_MIN_LENGTH" envDefault:"7"`
}

// Identity is the part of identity.Provider the workflow uses.
type Identity interface {
	FindByEmail(ctx context.Context, email string) (*identity.User, error)
	GenerateResetToken(ctx context.Context, u *identity.User) (string, error)
	ResetPassword(ctx context.Context, u *identity.User, token, newPassword string) error
}

// Mailer sends templated email.
type Mailer interface {
	Send(ctx context.Context, params mailer.SendParams) error
}

// SessionRevoker ends every session of a user.
type SessionRevoker interface {
	DeleteByUserID(ctx context.Context, userID string) error
}

// Workflow runs the forgot-password and reset-password steps.
type Workflow struct {
	identity Identity
	mailer   Mailer
	sessions SessionRevoker
	cfg      Config
	tokenTTL time.Duration
	log      *slog.Logger
}

// Option configures a Workflow.
type Option func(*Workflow)

// WithLogger sets the workflow logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Workflow) {
		if l != nil {
			w.log = l
		}
	}
}

// WithTokenTTL sets the lifetime shown in the email.
func WithTokenTTL(d time.Duration) Option {
	return func(w *Workflow) {
		w.tokenTTL = d
	}
}

// New creates a Workflow. sessions may be nil, in which case sessions are
// not revoked after a reset.
func New(id Identity, m Mailer, sessions SessionRevoker, cfg Config, opts ...Option) *Workflow {
	if cfg.PasswordMinLength <= 0 {
		cfg.PasswordMinLength = 7
	}
	w := &Workflow{
		identity: id,
		mailer:   m,
		sessions: sessions,
		cfg:      cfg,
		tokenTTL: 2 * time.Hour,
		log:      logger.NewNope(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// RequestReset emails a reset link to the account registered for email.
// callbackBase is the absolute site URL the link is built on.
func (w *Workflow) RequestReset(ctx context.Context, email, callbackBase string) (Outcome, error) {
	email = strings.TrimSpace(email)
	if err := validator.Apply(
		validator.RequiredString("email", email),
		validator.ValidEmail("email", email),
	); err != nil {
		return 0, err
	}

	u, err := w.identity.FindByEmail(ctx, email)
	if err != nil {
		return 0, err
	}
	if u == nil {
		w.log.InfoContext(ctx, "password reset requested for unknown email")
		if w.cfg.UnifyConfirmation {
			return OutcomeConfirmation, nil
		}
		return OutcomeConfirmationError, nil
	}

	token, err := w.identity.GenerateResetToken(ctx, u)
	if err != nil {
		return 0, err
	}

	err = w.mailer.Send(ctx, mailer.SendParams{
		To:       u.Email,
		Template: emails.ResetPassword,
		Subject:  Subject,
		Data: map[string]any{
			"Name":      u.FullName(),
			"URL":       CallbackURL(callbackBase, token, u.Email),
			"ExpiresIn": humanDuration(w.tokenTTL),
		},
		Tags: map[string]string{"category": "password_reset"},
	})
	if err != nil {
		w.log.ErrorContext(ctx, "send password reset email", "user_id", u.ID, "error", err)
		return 0, fmt.Errorf("%w: %w", ErrDispatchFailed, err)
	}

	w.log.InfoContext(ctx, "password reset email sent", "user_id", u.ID)
	return OutcomeConfirmation, nil
}

// RedeemInput is the reset-password form.
type RedeemInput struct {
	Token           string
	Email           string
	Password        string
	ConfirmPassword string
}

// RedeemReset sets a new password using a reset token. An unknown email is
// reported as OutcomeRedeemed without doing anything. Token and password
// policy failures return *identity.OperationError.
func (w *Workflow) RedeemReset(ctx context.Context, in RedeemInput) (Outcome, error) {
	in.Email = strings.TrimSpace(in.Email)
	if err := validator.Apply(
		validator.RequiredString("token", in.Token),
		validator.RequiredString("email", in.Email),
		validator.ValidEmail("email", in.Email),
		validator.RequiredString("password", in.Password),
		validator.MinLenString("password", in.Password, w.cfg.PasswordMinLength),
		validator.MatchesField("confirm_password", in.ConfirmPassword, "password", in.Password),
	); err != nil {
		return 0, err
	}

	u, err := w.identity.FindByEmail(ctx, in.Email)
	if err != nil {
		return 0, err
	}
	if u == nil {
		return OutcomeRedeemed, nil
	}

	if err := w.identity.ResetPassword(ctx, u, in.Token, in.Password); err != nil {
		return 0, err
	}

	if w.sessions != nil {
		if err := w.sessions.DeleteByUserID(ctx, u.ID.String()); err != nil {
			// The password is already changed; report the leftover sessions.
			w.log.ErrorContext(ctx, "revoke sessions after password reset", "user_id", u.ID, "error", err)
		}
	}

	w.log.InfoContext(ctx, "password reset", "user_id", u.ID)
	return OutcomeRedeemed, nil
}

// CallbackURL builds the reset link: {base}/reset-password?token=...&email=...
func CallbackURL(base, token, email string) string {
	return strings.TrimRight(base, "/") + "/reset-password?token=" + url.QueryEscape(token) +
		"&email=" + url.QueryEscape(email)
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		if h := int(d / time.Hour); h != 1 {
			return fmt.Sprintf("%d hours", h)
		}
		return "1 hour"
	case d >= time.Minute && d%time.Minute == 0:
		if m := int(d / time.Minute); m != 1 {
			return fmt.Sprintf("%d minutes", m)
		}
		return "1 minute"
	default:
		return d.String()
	}
}
