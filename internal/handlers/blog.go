package handlers

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/blogcms/internal/notify"
	"github.com/dmitrymomot/blogcms/internal/posts"
	"github.com/dmitrymomot/blogcms/internal/web"
)

// BlogHandler serves the public pages.
type BlogHandler struct {
	svc *posts.Service
}

func NewBlogHandler(svc *posts.Service) *BlogHandler {
	return &BlogHandler{svc: svc}
}

func (h *BlogHandler) Routes(r web.Router) {
	r.GET("/", h.home)
	r.GET("/blog/{slug}", h.post)
}

func (h *BlogHandler) home(c web.Context) error {
	body := map[string]any{
		"authenticated": false,
		"notification":  notify.Pending(c),
	}
	if u := CurrentUser(c); u != nil {
		body["authenticated"] = true
		body["user"] = u
	}
	return c.JSON(http.StatusOK, body)
}

func (h *BlogHandler) post(c web.Context) error {
	p, err := h.svc.Published(c, c.Param("slug"))
	if errors.Is(err, posts.ErrNotFound) {
		return web.ErrNotFound(posts.MsgNotFound, web.WithErrorCode("post_not_found"))
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{"post": p})
}
