package passwordreset_test

import (
	"context"
	"errors"
	"testing"
	"testing/fstest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/blogcms/internal/identity"
	"github.com/dmitrymomot/blogcms/internal/passwordreset"
	"github.com/dmitrymomot/blogcms/internal/templates/emails"
	"github.com/dmitrymomot/blogcms/pkg/mailer"
	"github.com/dmitrymomot/blogcms/pkg/validator"
)

type mockIdentity struct {
	mock.Mock
}

func (m *mockIdentity) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	args := m.Called(ctx, email)
	u, _ := args.Get(0).(*identity.User)
	return u, args.Error(1)
}

func (m *mockIdentity) GenerateResetToken(ctx context.Context, u *identity.User) (string, error) {
	args := m.Called(ctx, u)
	return args.String(0), args.Error(1)
}

func (m *mockIdentity) ResetPassword(ctx context.Context, u *identity.User, token, newPassword string) error {
	return m.Called(ctx, u, token, newPassword).Error(0)
}

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Send(ctx context.Context, email *mailer.Email) error {
	return m.Called(ctx, email).Error(0)
}

type mockRevoker struct {
	mock.Mock
}

func (m *mockRevoker) DeleteByUserID(ctx context.Context, userID string) error {
	return m.Called(ctx, userID).Error(0)
}

func newMailer(sender mailer.Sender) *mailer.Mailer {
	return mailer.New(sender, mailer.NewRenderer(emails.FS, ""), mailer.Config{
		FallbackSubject: "Notification",
		DefaultLayout:   "base.html",
	})
}

var jane = &identity.User{
	ID:        uuid.MustParse("0b9b6a4e-3c1e-4a8e-9f3a-2d6c9d1f7e10"),
	FirstName: "Jane",
	LastName:  "Doe",
	Email:     "jane@example.com",
	Role:      identity.RoleAuthor,
}

func TestRequestReset(t *testing.T) {
	t.Parallel()

	t.Run("known email sends link", func(t *testing.T) {
		t.Parallel()
		id := new(mockIdentity)
		sender := new(mockSender)
		id.On("FindByEmail", mock.Anything, "jane@example.com").Return(jane, nil)
		id.On("GenerateResetToken", mock.Anything, jane).Return("tok+en/1", nil)

		var sent *mailer.Email
		sender.On("Send", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			sent = args.Get(1).(*mailer.Email)
		}).Return(nil)

		w := passwordreset.New(id, newMailer(sender), nil, passwordreset.Config{})
		out, err := w.RequestReset(context.Background(), " jane@example.com ", "https://blog.test/")
		require.NoError(t, err)
		assert.Equal(t, passwordreset.OutcomeConfirmation, out)

		require.NotNil(t, sent)
		assert.Equal(t, []string{"jane@example.com"}, sent.To)
		assert.Equal(t, "Reset password link", sent.Subject)
		assert.Contains(t, sent.HTML, `href="https://blog.test/reset-password?token=tok%2Ben%2F1&amp;email=jane%40example.com"`)
		assert.Contains(t, sent.Text, "Hello Jane Doe")
		assert.Contains(t, sent.Text, "2 hours")
		id.AssertExpectations(t)
		sender.AssertExpectations(t)
	})

	t.Run("unknown email", func(t *testing.T) {
		t.Parallel()
		id := new(mockIdentity)
		sender := new(mockSender)
		id.On("FindByEmail", mock.Anything, "ghost@example.com").Return(nil, nil)

		w := passwordreset.New(id, newMailer(sender), nil, passwordreset.Config{})
		out, err := w.RequestReset(context.Background(), "ghost@example.com", "https://blog.test")
		require.NoError(t, err)
		assert.Equal(t, passwordreset.OutcomeConfirmationError, out)
		sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("unknown email with unified confirmation", func(t *testing.T) {
		t.Parallel()
		id := new(mockIdentity)
		sender := new(mockSender)
		id.On("FindByEmail", mock.Anything, "ghost@example.com").Return(nil, nil)

		w := passwordreset.New(id, newMailer(sender), nil, passwordreset.Config{UnifyConfirmation: true})
		out, err := w.RequestReset(context.Background(), "ghost@example.com", "https://blog.test")
		require.NoError(t, err)
		assert.Equal(t, passwordreset.OutcomeConfirmation, out)
		sender.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("malformed email", func(t *testing.T) {
		t.Parallel()
		id := new(mockIdentity)

		w := passwordreset.New(id, newMailer(new(mockSender)), nil, passwordreset.Config{})
		_, err := w.RequestReset(context.Background(), "not-an-email", "https://blog.test")
		ve := validator.ExtractValidationErrors(err)
		require.NotNil(t, ve)
		assert.True(t, ve.Has("email"))
		id.AssertNotCalled(t, "FindByEmail", mock.Anything, mock.Anything)
	})

	t.Run("dispatch failure", func(t *testing.T) {
		t.Parallel()
		id := new(mockIdentity)
		sender := new(mockSender)
		id.On("FindByEmail", mock.Anything, "jane@example.com").Return(jane, nil)
		id.On("GenerateResetToken", mock.Anything, jane).Return("token", nil)
		sender.On("Send", mock.Anything, mock.Anything).Return(errors.New("smtp down"))

		w := passwordreset.New(id, newMailer(sender), nil, passwordreset.Config{})
		_, err := w.RequestReset(context.Background(), "jane@example.com", "https://blog.test")
		assert.ErrorIs(t, err, passwordreset.ErrDispatchFailed)
		assert.ErrorIs(t, err, mailer.ErrSendFailed)
	})

	t.Run("missing template is a dispatch failure", func(t *testing.T) {
		t.Parallel()
		id := new(mockIdentity)
		id.On("FindByEmail", mock.Anything, "jane@example.com").Return(jane, nil)
		id.On("GenerateResetToken", mock.Anything, jane).Return("token", nil)

		m := mailer.New(new(mockSender), mailer.NewRenderer(fstest.MapFS{}, ""), mailer.Config{DefaultLayout: "base.html"})
		w := passwordreset.New(id, m, nil, passwordreset.Config{})
		_, err := w.RequestReset(context.Background(), "jane@example.com", "https://blog.test")
		assert.ErrorIs(t, err, passwordreset.ErrDispatchFailed)
		assert.ErrorIs(t, err, mailer.ErrTemplateNotFound)
	})
}

func TestRedeemReset(t *testing.T) {
	t.Parallel()

	valid := passwordreset.RedeemInput{
		Token:           "token",
		Email:           "jane@example.com",
		Password:        "newsecret",
		ConfirmPassword: "newsecret",
	}

	t.Run("success revokes sessions", func(t *testing.T) {
		t.Parallel()
		id := new(mockIdentity)
		revoker := new(mockRevoker)
		id.On("FindByEmail", mock.Anything, "jane@example.com").Return(jane, nil)
		id.On("ResetPassword", mock.Anything, jane, "token", "newsecret").Return(nil)
		revoker.On("DeleteByUserID", mock.Anything, jane.ID.String()).Return(nil)

		w := passwordreset.New(id, nil, revoker, passwordreset.Config{})
		out, err := w.RedeemReset(context.Background(), valid)
		require.NoError(t, err)
		assert.Equal(t, passwordreset.OutcomeRedeemed, out)
		id.AssertExpectations(t)
		revoker.AssertExpectations(t)
	})

	t.Run("unknown user returns early", func(t *testing.T) {
		t.Parallel()
		id := new(mockIdentity)
		revoker := new(mockRevoker)
		id.On("FindByEmail", mock.Anything, "jane@example.com").Return(nil, nil)

		w := passwordreset.New(id, nil, revoker, passwordreset.Config{})
		out, err := w.RedeemReset(context.Background(), valid)
		require.NoError(t, err)
		assert.Equal(t, passwordreset.OutcomeRedeemed, out)
		id.AssertNotCalled(t, "ResetPassword", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		revoker.AssertNotCalled(t, "DeleteByUserID", mock.Anything, mock.Anything)
	})

	t.Run("identity failure is returned and sessions kept", func(t *testing.T) {
		t.Parallel()
		id := new(mockIdentity)
		revoker := new(mockRevoker)
		opErr := &identity.OperationError{Failures: []identity.Failure{{Code: identity.CodeInvalidToken, Description: "Invalid token."}}}
		id.On("FindByEmail", mock.Anything, "jane@example.com").Return(jane, nil)
		id.On("ResetPassword", mock.Anything, jane, "token", "newsecret").Return(opErr)

		w := passwordreset.New(id, nil, revoker, passwordreset.Config{})
		_, err := w.RedeemReset(context.Background(), valid)
		got, ok := identity.AsOperationError(err)
		require.True(t, ok)
		assert.Equal(t, []string{"Invalid token."}, got.Messages())
		revoker.AssertNotCalled(t, "DeleteByUserID", mock.Anything, mock.Anything)
	})

	t.Run("revocation failure does not fail the reset", func(t *testing.T) {
		t.Parallel()
		id := new(mockIdentity)
		revoker := new(mockRevoker)
		id.On("FindByEmail", mock.Anything, "jane@example.com").Return(jane, nil)
		id.On("ResetPassword", mock.Anything, jane, "token", "newsecret").Return(nil)
		revoker.On("DeleteByUserID", mock.Anything, jane.ID.String()).Return(errors.New("redis down"))

		w := passwordreset.New(id, nil, revoker, passwordreset.Config{})
		out, err := w.RedeemReset(context.Background(), valid)
		require.NoError(t, err)
		assert.Equal(t, passwordreset.OutcomeRedeemed, out)
	})

	t.Run("validation", func(t *testing.T) {
		t.Parallel()
		w := passwordreset.New(new(mockIdentity), nil, nil, passwordreset.Config{})

		_, err := w.RedeemReset(context.Background(), passwordreset.RedeemInput{
			Email:           "bad",
			Password:        "short",
			ConfirmPassword: "other",
		})
		ve := validator.ExtractValidationErrors(err)
		require.NotNil(t, ve)
		assert.True(t, ve.Has("token"))
		assert.True(t, ve.Has("email"))
		assert.True(t, ve.Has("password"))
		assert.True(t, ve.Has("confirm_password"))
	})
}

func TestCallbackURL(t *testing.T) {
	t.Parallel()
	assert.Equal(t,
		"https://blog.test/reset-password?token=a%2Bb&email=x%40y.io",
		passwordreset.CallbackURL("https://blog.test/", "a+b", "x@y.io"))
}
