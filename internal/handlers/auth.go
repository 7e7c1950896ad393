package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/dmitrymomot/blogcms/internal/identity"
	"github.com/dmitrymomot/blogcms/internal/posts"
	"github.com/dmitrymomot/blogcms/internal/web"
	"github.com/dmitrymomot/blogcms/pkg/logger"
)

// Permissions.
const (
	PermManagePosts web.Permission = "posts.manage"
	PermReadUsers   web.Permission = "users.read"
)

// RolePermissions maps each role to what it may do.
var RolePermissions = web.RolePermissions{
	identity.RoleAdmin.String():  {PermManagePosts, PermReadUsers},
	identity.RoleAuthor.String(): {PermManagePosts},
}

type userKey struct{}

// UserLookup finds a user by id, returning nil when absent.
type UserLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error)
}

// LoadUser resolves the session's user and stores it on the request.
// A session pointing at a deleted user is destroyed.
func LoadUser(users UserLookup) web.Middleware {
	return func(next web.HandlerFunc) web.HandlerFunc {
		return func(c web.Context) error {
			raw := c.UserID()
			if raw == "" {
				return next(c)
			}

			id, err := uuid.Parse(raw)
			if err != nil {
				c.LogWarn("invalid user id in session", "user_id", raw)
				return endSession(c, next)
			}
			u, err := users.FindByID(c, id)
			if err != nil {
				return err
			}
			if u == nil {
				return endSession(c, next)
			}

			c.Set(userKey{}, u)
			return next(c)
		}
	}
}

func endSession(c web.Context, next web.HandlerFunc) error {
	if err := c.DestroySession(); err != nil {
		return err
	}
	return next(c)
}

// CurrentUser returns the authenticated user, or nil.
func CurrentUser(c web.Context) *identity.User {
	return web.ContextValue[*identity.User](c, userKey{})
}

func actor(c web.Context) posts.Actor {
	return posts.ActorFromUser(CurrentUser(c))
}

// RoleExtractor feeds Context.Can with the current user's role.
func RoleExtractor(c web.Context) string {
	if u := CurrentUser(c); u != nil {
		return u.Role.String()
	}
	return ""
}

// RequireAuth redirects anonymous requests to the login page.
func RequireAuth() web.Middleware {
	return func(next web.HandlerFunc) web.HandlerFunc {
		return func(c web.Context) error {
			if CurrentUser(c) == nil {
				target := "/login?returnUrl=" + url.QueryEscape(c.Request().URL.RequestURI())
				return c.Redirect(http.StatusSeeOther, target)
			}
			return next(c)
		}
	}
}

// RequirePermission rejects users whose role lacks p.
func RequirePermission(p web.Permission) web.Middleware {
	return func(next web.HandlerFunc) web.HandlerFunc {
		return func(c web.Context) error {
			if !c.Can(p) {
				return web.ErrForbidden("You are not Authorized!", web.WithErrorCode("forbidden"))
			}
			return next(c)
		}
	}
}

// UserIDExtractor adds user_id to log records of authenticated requests.
func UserIDExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		u, ok := ctx.Value(userKey{}).(*identity.User)
		if !ok || u == nil {
			return slog.Attr{}, false
		}
		return slog.String("user_id", u.ID.String()), true
	}
}
