package handlers

import (
	"net/http"
	"strings"

	"github.com/dmitrymomot/blogcms/internal/accounts"
	"github.com/dmitrymomot/blogcms/internal/notify"
	"github.com/dmitrymomot/blogcms/internal/web"
)

// AccountHandler serves login, logout, registration and the user listing.
type AccountHandler struct {
	svc *accounts.Service
}

func NewAccountHandler(svc *accounts.Service) *AccountHandler {
	return &AccountHandler{svc: svc}
}

func (h *AccountHandler) Routes(r web.Router) {
	r.GET("/login", h.loginForm)
	r.POST("/login", h.login)
	r.POST("/logout", h.logout)
	r.POST("/register", h.register)
	r.GET("/admin/users", h.users, RequireAuth(), RequirePermission(PermReadUsers))
}

func (h *AccountHandler) loginForm(c web.Context) error {
	if CurrentUser(c) != nil {
		return c.Redirect(http.StatusSeeOther, "/")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"form":         map[string]any{"username": "", "remember_me": false, "return_url": c.Query("returnUrl")},
		"notification": notify.Pending(c),
	})
}

func (h *AccountHandler) login(c web.Context) error {
	u, err := h.svc.Login(c, c.Form("username"), c.Form("password"))
	if err != nil {
		return err
	}

	if err := c.AuthenticateSession(u.ID.String(), formBool(c.Form("remember_me"))); err != nil {
		return err
	}

	notify.For(c).Success(accounts.MsgLoggedIn)
	return c.Redirect(http.StatusSeeOther, localRedirect(c.Form("return_url")))
}

// logout is safe to repeat: without a session it only redirects.
func (h *AccountHandler) logout(c web.Context) error {
	if err := c.DestroySession(); err != nil {
		return err
	}
	notify.For(c).Success(accounts.MsgLoggedOut)
	return c.Redirect(http.StatusSeeOther, "/")
}

func (h *AccountHandler) register(c web.Context) error {
	_, err := h.svc.Register(c, accounts.RegisterInput{
		FirstName:       c.Form("first_name"),
		LastName:        c.Form("last_name"),
		UserName:        c.Form("username"),
		Email:           c.Form("email"),
		Password:        c.Form("password"),
		ConfirmPassword: c.Form("confirm_password"),
	})
	if err != nil {
		return err
	}
	notify.For(c).Success(accounts.MsgRegistered)
	return c.Redirect(http.StatusSeeOther, "/login")
}

func (h *AccountHandler) users(c web.Context) error {
	users, err := h.svc.Users(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"users": users})
}

func formBool(v string) bool {
	switch strings.ToLower(v) {
	case "1", "on", "true", "yes":
		return true
	}
	return false
}

// localRedirect accepts only same-site paths and falls back to "/".
func localRedirect(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") ||
		strings.HasPrefix(target, "//") || strings.HasPrefix(target, `/\`) {
		return "/"
	}
	return target
}
