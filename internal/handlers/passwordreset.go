package handlers

import (
	"net/http"
	"strings"

	"github.com/dmitrymomot/blogcms/internal/passwordreset"
	"github.com/dmitrymomot/blogcms/internal/web"
)

// PasswordResetHandler serves the forgot-password and reset-password pages.
type PasswordResetHandler struct {
	wf      *passwordreset.Workflow
	baseURL string
}

// NewPasswordResetHandler creates the handler. An empty baseURL builds reset
// links from the request host.
func NewPasswordResetHandler(wf *passwordreset.Workflow, baseURL string) *PasswordResetHandler {
	return &PasswordResetHandler{wf: wf, baseURL: strings.TrimRight(baseURL, "/")}
}

func (h *PasswordResetHandler) Routes(r web.Router) {
	r.POST("/forgot-password", h.forgot)
	r.GET("/forgot-password/confirmation", message("Please check your email to reset your password."))
	r.GET("/forgot-password/confirmation-error", message("We could not find an account with that email."))
	r.GET("/reset-password", h.resetForm)
	r.POST("/reset-password", h.reset)
	r.GET("/reset-password/confirmation", message("Your password has been reset."))
}

func (h *PasswordResetHandler) forgot(c web.Context) error {
	out, err := h.wf.RequestReset(c, c.Form("email"), h.callbackBase(c.Request()))
	if err != nil {
		return err
	}
	if out == passwordreset.OutcomeConfirmationError {
		return c.Redirect(http.StatusSeeOther, "/forgot-password/confirmation-error")
	}
	return c.Redirect(http.StatusSeeOther, "/forgot-password/confirmation")
}

func (h *PasswordResetHandler) resetForm(c web.Context) error {
	token := c.Query("token")
	if token == "" {
		return web.ErrBadRequest("A code must be supplied for password reset.", web.WithErrorCode("missing_token"))
	}
	return c.JSON(http.StatusOK, map[string]any{
		"form": map[string]string{"token": token, "email": c.Query("email")},
	})
}

func (h *PasswordResetHandler) reset(c web.Context) error {
	if _, err := h.wf.RedeemReset(c, passwordreset.RedeemInput{
		Token:           c.Form("token"),
		Email:           c.Form("email"),
		Password:        c.Form("password"),
		ConfirmPassword: c.Form("confirm_password"),
	}); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/reset-password/confirmation")
}

func (h *PasswordResetHandler) callbackBase(r *http.Request) string {
	if h.baseURL != "" {
		return h.baseURL
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if p := r.Header.Get("X-Forwarded-Proto"); p == "http" || p == "https" {
		scheme = p
	}
	return scheme + "://" + r.Host
}

func message(text string) web.HandlerFunc {
	return func(c web.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"message": text})
	}
}
