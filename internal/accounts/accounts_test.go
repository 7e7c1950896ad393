package accounts_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/blogcms/internal/accounts"
	"github.com/dmitrymomot/blogcms/internal/identity"
	"github.com/dmitrymomot/blogcms/pkg/validator"
)

type mockIdentity struct {
	mock.Mock
}

func (m *mockIdentity) user(args mock.Arguments) (*identity.User, error) {
	u, _ := args.Get(0).(*identity.User)
	return u, args.Error(1)
}

func (m *mockIdentity) FindByUsername(ctx context.Context, userName string) (*identity.User, error) {
	return m.user(m.Called(ctx, userName))
}

func (m *mockIdentity) FindByEmail(ctx context.Context, email string) (*identity.User, error) {
	return m.user(m.Called(ctx, email))
}

func (m *mockIdentity) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	return m.user(m.Called(ctx, id))
}

func (m *mockIdentity) SignIn(ctx context.Context, u *identity.User, password string, lockout bool) (identity.SignInResult, error) {
	args := m.Called(ctx, u, password, lockout)
	return args.Get(0).(identity.SignInResult), args.Error(1)
}

func (m *mockIdentity) CreateUser(ctx context.Context, in identity.NewUser, password string) (*identity.User, error) {
	return m.user(m.Called(ctx, in, password))
}

func (m *mockIdentity) Users(ctx context.Context) ([]identity.User, error) {
	args := m.Called(ctx)
	users, _ := args.Get(0).([]identity.User)
	return users, args.Error(1)
}

var jane = &identity.User{ID: uuid.New(), UserName: "jane", Email: "jane@example.com", Role: identity.RoleAuthor}

func TestLogin(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		found   *identity.User
		result  identity.SignInResult
		wantMsg string
	}{
		{name: "unknown user", wantMsg: accounts.MsgUnknownUser},
		{name: "wrong password", found: jane, result: identity.SignInFailed, wantMsg: accounts.MsgPasswordMismatch},
		{name: "locked out", found: jane, result: identity.SignInLockedOut, wantMsg: accounts.MsgPasswordMismatch},
		{name: "success", found: jane, result: identity.SignInSucceeded},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			id := new(mockIdentity)
			id.On("FindByUsername", mock.Anything, "jane").Return(tc.found, nil)
			if tc.found != nil {
				id.On("SignIn", mock.Anything, tc.found, "secret123", true).Return(tc.result, nil)
			}

			u, err := accounts.New(id, accounts.Config{}).Login(context.Background(), " jane ", "secret123")
			if tc.wantMsg == "" {
				require.NoError(t, err)
				assert.Equal(t, jane.ID, u.ID)
				return
			}
			require.ErrorIs(t, err, accounts.ErrInvalidCredentials)
			assert.EqualError(t, err, tc.wantMsg)
			assert.Nil(t, u)
			id.AssertExpectations(t)
		})
	}
}

func TestLogin_Errors(t *testing.T) {
	t.Parallel()

	t.Run("missing fields", func(t *testing.T) {
		t.Parallel()
		_, err := accounts.New(new(mockIdentity), accounts.Config{}).Login(context.Background(), "", "")
		ve := validator.ExtractValidationErrors(err)
		require.NotNil(t, ve)
		assert.True(t, ve.Has("username"))
		assert.True(t, ve.Has("password"))
	})

	t.Run("lookup failure", func(t *testing.T) {
		t.Parallel()
		boom := errors.New("db down")
		id := new(mockIdentity)
		id.On("FindByUsername", mock.Anything, "jane").Return(nil, boom)

		_, err := accounts.New(id, accounts.Config{}).Login(context.Background(), "jane", "x")
		assert.ErrorIs(t, err, boom)
		assert.NotErrorIs(t, err, accounts.ErrInvalidCredentials)
	})
}

func TestRegister(t *testing.T) {
	t.Parallel()

	valid := accounts.RegisterInput{
		FirstName:       "Jane",
		LastName:        "Doe",
		UserName:        "jane",
		Email:           "jane@example.com",
		Password:        "secret123",
		ConfirmPassword: "secret123",
	}

	t.Run("creates author", func(t *testing.T) {
		t.Parallel()
		id := new(mockIdentity)
		id.On("FindByEmail", mock.Anything, "jane@example.com").Return(nil, nil)
		id.On("FindByUsername", mock.Anything, "jane").Return(nil, nil)
		id.On("CreateUser", mock.Anything, identity.NewUser{
			FirstName: "Jane", LastName: "Doe", UserName: "jane", Email: "jane@example.com", Role: identity.RoleAuthor,
		}, "secret123").Return(jane, nil)

		u, err := accounts.New(id, accounts.Config{}).Register(context.Background(), valid)
		require.NoError(t, err)
		assert.Equal(t, jane, u)
		id.AssertExpectations(t)
	})

	t.Run("duplicate email", func(t *testing.T) {
		t.Parallel()
		id := new(mockIdentity)
		id.On("FindByEmail", mock.Anything, "jane@example.com").Return(jane, nil)

		_, err := accounts.New(id, accounts.Config{}).Register(context.Background(), valid)
		opErr, ok := identity.AsOperationError(err)
		require.True(t, ok)
		assert.Equal(t, []string{accounts.MsgDuplicateEmail}, opErr.Messages())
		id.AssertNotCalled(t, "CreateUser", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("duplicate user name", func(t *testing.T) {
		t.Parallel()
		id := new(mockIdentity)
		id.On("FindByEmail", mock.Anything, "jane@example.com").Return(nil, nil)
		id.On("FindByUsername", mock.Anything, "jane").Return(jane, nil)

		_, err := accounts.New(id, accounts.Config{}).Register(context.Background(), valid)
		opErr, ok := identity.AsOperationError(err)
		require.True(t, ok)
		assert.Equal(t, []string{accounts.MsgDuplicateUserName}, opErr.Messages())
	})

	t.Run("race on unique index", func(t *testing.T) {
		t.Parallel()
		id := new(mockIdentity)
		id.On("FindByEmail", mock.Anything, "jane@example.com").Return(nil, nil)
		id.On("FindByUsername", mock.Anything, "jane").Return(nil, nil)
		id.On("CreateUser", mock.Anything, mock.Anything, "secret123").Return(nil, &identity.OperationError{
			Failures: []identity.Failure{{Code: identity.CodeDuplicateEmail, Description: "Email 'jane@example.com' is already taken."}},
		})

		_, err := accounts.New(id, accounts.Config{}).Register(context.Background(), valid)
		opErr, ok := identity.AsOperationError(err)
		require.True(t, ok)
		assert.Equal(t, []string{accounts.MsgDuplicateEmail}, opErr.Messages())
	})

	t.Run("validation", func(t *testing.T) {
		t.Parallel()
		in := valid
		in.Email = "nope"
		in.Password = "short"
		in.ConfirmPassword = "different"
		in.FirstName = ""

		_, err := accounts.New(new(mockIdentity), accounts.Config{}).Register(context.Background(), in)
		ve := validator.ExtractValidationErrors(err)
		require.NotNil(t, ve)
		for _, field := range []string{"first_name", "email", "password", "confirm_password"} {
			assert.True(t, ve.Has(field), field)
		}
		assert.False(t, ve.Has("last_name"))
	})
}

func TestUsers(t *testing.T) {
	t.Parallel()
	id := new(mockIdentity)
	id.On("Users", mock.Anything).Return([]identity.User{*jane}, nil)

	users, err := accounts.New(id, accounts.Config{}).Users(context.Background())
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, identity.RoleAuthor, users[0].Role)
}
