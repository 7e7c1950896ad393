package identity

import (
	"errors"
	"strings"
)

var (
	ErrUserNotFound       = errors.New("identity: user not found")
	ErrResetTokenInvalid  = errors.New("identity: invalid reset token")
	ErrResetTokenExpired  = errors.New("identity: reset token expired")
	ErrDuplicateEmail     = errors.New("identity: duplicate email")
	ErrDuplicateUserName  = errors.New("identity: duplicate user name")
	ErrFailedToHashSecret = errors.New("identity: failed to hash password")
)

// Failure codes.
const (
	CodeDuplicateEmail    = "DuplicateEmail"
	CodeDuplicateUserName = "DuplicateUserName"
	CodeInvalidToken      = "InvalidToken"
	CodeExpiredToken      = "ExpiredToken"
	CodePasswordTooShort  = "PasswordTooShort"
	CodePasswordTooLong   = "PasswordTooLong"
	CodeInvalidRole       = "InvalidRole"
)

// Failure is a single user-facing reason an operation did not succeed.
type Failure struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// OperationError is returned when an identity operation is rejected.
type OperationError struct {
	Failures []Failure `json:"failures"`
}

func (e *OperationError) Error() string {
	msgs := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		msgs = append(msgs, f.Description)
	}
	return "identity: " + strings.Join(msgs, "; ")
}

// Messages returns the failure descriptions in order.
func (e *OperationError) Messages() []string {
	msgs := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		msgs = append(msgs, f.Description)
	}
	return msgs
}

func newOperationError(failures ...Failure) *OperationError {
	return &OperationError{Failures: failures}
}

// AsOperationError extracts an *OperationError from err.
func AsOperationError(err error) (*OperationError, bool) {
	var opErr *OperationError
	if errors.As(err, &opErr) {
		return opErr, true
	}
	return nil, false
}
