package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"slices"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/blogcms/pkg/cookie"
	"github.com/dmitrymomot/blogcms/pkg/session"
)

// Permission is a named capability granted to roles.
type Permission string

// RolePermissions maps a role name to its permissions.
type RolePermissions = map[string][]Permission

// RoleExtractorFunc returns the current user's role, or "" for none.
type RoleExtractorFunc = func(Context) string

// maxMultipartMemory bounds the in-memory part of multipart forms.
const maxMultipartMemory = 8 << 20

// Context gives handlers access to the request, the response and the session.
// It implements context.Context by delegating to the request context.
type Context interface {
	context.Context

	Request() *http.Request
	Response() http.ResponseWriter

	// Param returns a chi URL parameter.
	Param(name string) string
	Query(name string) string
	// Form returns a form value, parsing multipart bodies when needed.
	Form(name string) string
	// FormFile returns the uploaded file header, or nil when the field is absent or empty.
	FormFile(name string) *multipart.FileHeader
	Header(name string) string
	SetHeader(name, value string)

	// UserID returns the authenticated user id, loading the session lazily.
	UserID() string
	IsAuthenticated() bool
	// Can reports whether the current role grants permission.
	Can(permission Permission) bool

	JSON(code int, v any) error
	NoContent(code int) error
	Redirect(code int, url string) error
	// Error builds an HTTPError to return from the handler. It writes nothing.
	Error(code int, message string, opts ...HTTPErrorOption) *HTTPError
	Written() bool

	Logger() *slog.Logger
	LogInfo(msg string, attrs ...any)
	LogWarn(msg string, attrs ...any)
	LogError(msg string, attrs ...any)

	// Set stores a value in the request context.
	Set(key, value any)
	// SetContext replaces the request context, e.g. to add a deadline.
	SetContext(ctx context.Context)
	Get(key any) any

	// Flash reads and clears a one-shot value stored by SetFlash.
	Flash(key string, dest any) error
	SetFlash(key string, value any) error

	// Session returns the current session, or nil when there is none.
	Session() (*session.Session, error)
	// AuthenticateSession binds userID to the session and rotates its token.
	// persistent selects a long-lived cookie instead of a browser-session one.
	AuthenticateSession(userID string, persistent bool) error
	// DestroySession deletes the session and clears the cookie.
	DestroySession() error

	ResponseWriter() *ResponseWriter
}

type ctxKey struct{}

type requestContext struct {
	request        *http.Request
	response       *ResponseWriter
	logger         *slog.Logger
	cookieManager  *cookie.Manager
	sessionManager *SessionManager

	rolePermissions RolePermissions
	roleExtractor   RoleExtractorFunc
	cachedRole      *string

	session               *session.Session
	sessionLoaded         bool
	sessionHookRegistered bool
}

// contextFor returns the Context already attached to r by an outer
// middleware, or creates one.
func (a *App) contextFor(w http.ResponseWriter, r *http.Request) *requestContext {
	if c, ok := r.Context().Value(ctxKey{}).(*requestContext); ok {
		c.request = r
		return c
	}

	rw, ok := w.(*ResponseWriter)
	if !ok {
		rw = NewResponseWriter(w)
	}
	c := &requestContext{
		response:        rw,
		logger:          a.logger,
		cookieManager:   a.cookieManager,
		sessionManager:  a.sessionManager,
		rolePermissions: a.rolePermissions,
		roleExtractor:   a.roleExtractor,
	}
	c.request = r.WithContext(context.WithValue(r.Context(), ctxKey{}, c))
	return c
}

func (c *requestContext) Request() *http.Request {
	return c.request
}

func (c *requestContext) Response() http.ResponseWriter {
	return c.response
}

func (c *requestContext) ResponseWriter() *ResponseWriter {
	return c.response
}

func (c *requestContext) Deadline() (time.Time, bool) {
	return c.request.Context().Deadline()
}

func (c *requestContext) Done() <-chan struct{} {
	return c.request.Context().Done()
}

func (c *requestContext) Err() error {
	return c.request.Context().Err()
}

func (c *requestContext) Value(key any) any {
	return c.request.Context().Value(key)
}

func (c *requestContext) Param(name string) string {
	return chi.URLParam(c.request, name)
}

func (c *requestContext) Query(name string) string {
	return c.request.URL.Query().Get(name)
}

func (c *requestContext) Header(name string) string {
	return c.request.Header.Get(name)
}

func (c *requestContext) SetHeader(name, value string) {
	c.response.Header().Set(name, value)
}

func (c *requestContext) Form(name string) string {
	c.parseForm()
	return c.request.FormValue(name)
}

func (c *requestContext) FormFile(name string) *multipart.FileHeader {
	c.parseForm()
	if c.request.MultipartForm == nil {
		return nil
	}
	files := c.request.MultipartForm.File[name]
	if len(files) == 0 || files[0].Size == 0 {
		return nil
	}
	return files[0]
}

func (c *requestContext) parseForm() {
	if c.request.Form != nil {
		return
	}
	if err := c.request.ParseMultipartForm(maxMultipartMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		c.LogWarn("parse form", "error", err)
	}
}

func (c *requestContext) UserID() string {
	sess, err := c.Session()
	if err != nil {
		return ""
	}
	return sess.UserIDValue()
}

func (c *requestContext) IsAuthenticated() bool {
	return c.UserID() != ""
}

func (c *requestContext) Can(permission Permission) bool {
	if c.rolePermissions == nil || c.roleExtractor == nil {
		return false
	}
	// The sentinel stops recursion if the extractor itself calls Can.
	if c.cachedRole == nil {
		empty := ""
		c.cachedRole = &empty
		role := c.roleExtractor(c)
		c.cachedRole = &role
	}
	return slices.Contains(c.rolePermissions[*c.cachedRole], permission)
}

func (c *requestContext) JSON(code int, v any) error {
	c.response.Header().Set("Content-Type", "application/json; charset=utf-8")
	c.response.WriteHeader(code)
	return json.NewEncoder(c.response).Encode(v)
}

func (c *requestContext) NoContent(code int) error {
	c.response.WriteHeader(code)
	return nil
}

func (c *requestContext) Redirect(code int, url string) error {
	http.Redirect(c.response, c.request, url, code)
	return nil
}

func (c *requestContext) Error(code int, message string, opts ...HTTPErrorOption) *HTTPError {
	return NewHTTPError(code, message, opts...)
}

func (c *requestContext) Written() bool { return c.response.Written() }

func (c *requestContext) Logger() *slog.Logger { return c.logger }

func (c *requestContext) LogInfo(msg string, attrs ...any) {
	c.logger.InfoContext(c.request.Context(), msg, attrs...)
}

func (c *requestContext) LogWarn(msg string, attrs ...any) {
	c.logger.WarnContext(c.request.Context(), msg, attrs...)
}

func (c *requestContext) LogError(msg string, attrs ...any) {
	c.logger.ErrorContext(c.request.Context(), msg, attrs...)
}

func (c *requestContext) Set(key, value any) {
	c.SetContext(context.WithValue(c.request.Context(), key, value))
}

func (c *requestContext) SetContext(ctx context.Context) {
	c.request = c.request.WithContext(ctx)
}

func (c *requestContext) Get(key any) any {
	return c.request.Context().Value(key)
}

func (c *requestContext) Flash(key string, dest any) error {
	return c.cookieManager.Flash(c.response, c.request, key, dest)
}

func (c *requestContext) SetFlash(key string, value any) error {
	return c.cookieManager.SetFlash(c.response, key, value)
}

// registerSessionHook persists a dirty session right before the response is
// written. Failures are logged; the response goes out regardless.
func (c *requestContext) registerSessionHook() {
	if c.sessionHookRegistered {
		return
	}
	c.sessionHookRegistered = true
	c.response.OnBeforeWrite(func() {
		if c.session == nil || !c.session.IsDirty() {
			return
		}
		if err := c.sessionManager.Store().Update(c.request.Context(), c.session); err != nil {
			c.LogError("failed to save session", "error", err)
			return
		}
		c.session.ClearDirty()
	})
}

func (c *requestContext) Session() (*session.Session, error) {
	if c.sessionManager == nil {
		return nil, session.ErrNotConfigured
	}
	c.registerSessionHook()

	if c.sessionLoaded {
		return c.session, nil
	}

	sess, err := c.sessionManager.LoadSession(c.request.Context(), c.request)
	if err != nil {
		// A stale cookie is not an error for the request; drop it.
		if errors.Is(err, session.ErrNotFound) || errors.Is(err, session.ErrExpired) {
			c.sessionManager.DeleteSession(c.response)
			c.sessionLoaded = true
			return nil, nil
		}
		return nil, err
	}

	c.session = sess
	c.sessionLoaded = true
	return sess, nil
}

func (c *requestContext) AuthenticateSession(userID string, persistent bool) error {
	if c.sessionManager == nil {
		return session.ErrNotConfigured
	}

	sess, err := c.Session()
	if err != nil {
		c.LogWarn("failed to load session", "error", err)
	}
	if sess == nil {
		if sess, err = c.sessionManager.CreateSession(c.request.Context(), c.request); err != nil {
			return err
		}
		c.session = sess
		c.sessionLoaded = true
	}

	sess.UserID = &userID
	c.sessionManager.SetPersistent(sess, persistent)

	// A fresh token prevents session fixation.
	if err := c.sessionManager.RotateToken(c.request.Context(), sess); err != nil {
		return err
	}
	c.sessionManager.SaveSession(c.response, sess)
	return nil
}

func (c *requestContext) DestroySession() error {
	if c.sessionManager == nil {
		return session.ErrNotConfigured
	}

	sess, err := c.Session()
	if err != nil {
		return err
	}
	if sess != nil {
		if err := c.sessionManager.Store().Delete(c.request.Context(), sess.ID); err != nil {
			return err
		}
	}

	c.sessionManager.DeleteSession(c.response)
	c.session = nil
	c.sessionLoaded = true
	return nil
}
