package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dmitrymomot/blogcms/internal/notify"
	"github.com/dmitrymomot/blogcms/internal/posts"
	"github.com/dmitrymomot/blogcms/internal/web"
)

// PostHandler serves post management under /admin/posts.
type PostHandler struct {
	svc *posts.Service
}

func NewPostHandler(svc *posts.Service) *PostHandler {
	return &PostHandler{svc: svc}
}

func (h *PostHandler) Routes(r web.Router) {
	r.Route(PostsPath, func(r web.Router) {
		r.Use(RequireAuth(), RequirePermission(PermManagePosts))
		r.GET("/", h.list)
		r.POST("/", h.create)
		r.GET("/{id}/edit", h.editForm)
		r.POST("/{id}/edit", h.edit)
		r.POST("/{id}/delete", h.delete)
	})
}

func (h *PostHandler) list(c web.Context) error {
	items, err := h.svc.List(c, actor(c))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"posts":        items,
		"notification": notify.Pending(c),
	})
}

func (h *PostHandler) create(c web.Context) error {
	thumb, closeFn, err := thumbnail(c)
	if err != nil {
		return err
	}
	defer closeFn()

	if _, err := h.svc.Create(c, actor(c), posts.CreateInput{
		Title:       c.Form("title"),
		Description: c.Form("description"),
		Thumbnail:   thumb,
	}); err != nil {
		return err
	}

	notify.For(c).Success(posts.MsgCreated)
	return c.Redirect(http.StatusSeeOther, PostsPath)
}

func (h *PostHandler) editForm(c web.Context) error {
	id, ok := web.ParamInt64(c, "id")
	if !ok {
		return posts.ErrNotFound
	}
	p, err := h.svc.Get(c, actor(c), id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]any{
		"post":         p,
		"action":       PostsPath + "/" + strconv.FormatInt(p.ID, 10) + "/edit",
		"notification": notify.Pending(c),
	})
}

func (h *PostHandler) edit(c web.Context) error {
	id, ok := web.ParamInt64(c, "id")
	if !ok {
		return posts.ErrNotFound
	}

	thumb, closeFn, err := thumbnail(c)
	if err != nil {
		return err
	}
	defer closeFn()

	if _, err := h.svc.Edit(c, actor(c), id, posts.EditInput{
		Title:       c.Form("title"),
		Description: c.Form("description"),
		Thumbnail:   thumb,
	}); err != nil {
		return err
	}

	notify.For(c).Success(posts.MsgUpdated)
	return c.Redirect(http.StatusSeeOther, PostsPath)
}

func (h *PostHandler) delete(c web.Context) error {
	id, ok := web.ParamInt64(c, "id")
	if !ok {
		return posts.ErrNotFound
	}

	switch err := h.svc.Delete(c, actor(c), id); {
	case errors.Is(err, posts.ErrForbidden):
		// Deleting someone else's post redirects without a message.
		return c.Redirect(http.StatusSeeOther, PostsPath)
	case err != nil:
		return err
	}

	notify.For(c).Success(posts.MsgDeleted)
	return c.Redirect(http.StatusSeeOther, PostsPath)
}

// thumbnail opens the optional "thumbnail" upload. The returned func closes it.
func thumbnail(c web.Context) (*posts.Upload, func(), error) {
	fh := c.FormFile("thumbnail")
	if fh == nil {
		return nil, func() {}, nil
	}
	f, err := fh.Open()
	if err != nil {
		return nil, func() {}, err
	}
	return &posts.Upload{Content: f, Filename: fh.Filename, Size: fh.Size}, func() { _ = f.Close() }, nil
}
