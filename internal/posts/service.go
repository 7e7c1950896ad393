package posts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrymomot/blogcms/pkg/logger"
	"github.com/dmitrymomot/blogcms/pkg/sanitizer"
	"github.com/dmitrymomot/blogcms/pkg/storage"
	"github.com/dmitrymomot/blogcms/pkg/validator"
)

// Service applies the post access rules on top of a Repository.
type Service struct {
	repo       Repository
	thumbnails storage.Storage
	cfg        Config
	log        *slog.Logger
	newName    func() string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// NewService creates a Service. Thumbnails are written to thumbnails.
func NewService(repo Repository, thumbnails storage.Storage, cfg Config, opts ...ServiceOption) *Service {
	s := &Service{
		repo:       repo,
		thumbnails: thumbnails,
		cfg:        cfg,
		log:        logger.NewNope(),
		newName:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns every post to admins and only owned posts to others.
func (s *Service) List(ctx context.Context, actor Actor) ([]ListItem, error) {
	var owner *uuid.UUID
	if !actor.IsAdmin() {
		owner = &actor.ID
	}
	items, err := s.repo.List(ctx, owner)
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].ThumbnailURL = s.thumbnailURL(ctx, items[i].ThumbnailURL)
	}
	return items, nil
}

// Create stores a new post owned by actor.
func (s *Service) Create(ctx context.Context, actor Actor, in CreateInput) (*Post, error) {
	if err := s.validate(in.Title, in.Description); err != nil {
		return nil, err
	}

	p := &Post{
		Title:       strings.TrimSpace(in.Title),
		Description: sanitizer.SanitizeHTML(in.Description),
		Slug:        slugify(in.Title, s.newName),
		OwnerID:     actor.ID,
	}
	if in.Thumbnail != nil {
		name, err := s.storeThumbnail(ctx, in.Thumbnail)
		if err != nil {
			return nil, err
		}
		p.ThumbnailURL = &name
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "post created", "post_id", p.ID, "slug", p.Slug)
	return p, nil
}

// Get loads a post for the edit form.
func (s *Service) Get(ctx context.Context, actor Actor, id int64) (*Post, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanModify(actor, p) {
		return nil, ErrForbidden
	}
	return p, nil
}

// Edit overwrites title and description, and the thumbnail when a new one is
// uploaded. The slug never changes. Ownership is checked only when
// Config.EnforceEditOwnership is set.
func (s *Service) Edit(ctx context.Context, actor Actor, id int64, in EditInput) (*Post, error) {
	if err := s.validate(in.Title, in.Description); err != nil {
		return nil, err
	}

	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cfg.EnforceEditOwnership && !CanModify(actor, p) {
		return nil, ErrForbidden
	}

	p.Title = strings.TrimSpace(in.Title)
	p.Description = sanitizer.SanitizeHTML(in.Description)
	if in.Thumbnail != nil {
		// The previous file is left in storage.
		name, err := s.storeThumbnail(ctx, in.Thumbnail)
		if err != nil {
			return nil, err
		}
		p.ThumbnailURL = &name
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "post updated", "post_id", p.ID)
	return p, nil
}

// Delete removes a post the actor may modify.
func (s *Service) Delete(ctx context.Context, actor Actor, id int64) error {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if !CanModify(actor, p) {
		return ErrForbidden
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.InfoContext(ctx, "post deleted", "post_id", id)
	return nil
}

// Published returns the public view of a post by slug.
func (s *Service) Published(ctx context.Context, slug string) (*PublishedPost, error) {
	p, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	p.ThumbnailURL = s.thumbnailURL(ctx, p.ThumbnailURL)
	return p, nil
}

func (s *Service) validate(title, description string) error {
	rules := []validator.Rule{
		validator.RequiredString("title", title),
		validator.RequiredString("description", description),
	}
	if s.cfg.MaxTitleLength > 0 {
		rules = append(rules, validator.MaxLenString("title", title, s.cfg.MaxTitleLength))
	}
	return validator.Apply(rules...)
}

// storeThumbnail saves the upload as "<uuid>_<base name>" and returns the
// stored key.
func (s *Service) storeThumbnail(ctx context.Context, u *Upload) (string, error) {
	base := path.Base(strings.ReplaceAll(u.Filename, `\`, "/"))
	if base == "." || base == "/" {
		base = "thumbnail"
	}

	rules := []storage.ValidationRule{storage.NotEmpty(), storage.ImageOnly()}
	if s.cfg.MaxThumbnailSize > 0 {
		rules = append(rules, storage.MaxSize(s.cfg.MaxThumbnailSize))
	}

	info, err := s.thumbnails.Put(ctx, u.Content, u.Size,
		storage.WithKey(s.newName()+"_"+base),
		storage.WithValidation(rules...),
	)
	if err != nil {
		var fvErr *storage.FileValidationError
		if errors.As(err, &fvErr) {
			return "", validator.Apply(validator.Custom("thumbnail", false, fvErr.Message))
		}
		return "", fmt.Errorf("posts: store thumbnail: %w", err)
	}
	return info.Key, nil
}

func (s *Service) thumbnailURL(ctx context.Context, key *string) *string {
	if key == nil || *key == "" {
		return nil
	}
	u, err := s.thumbnails.URL(ctx, *key)
	if err != nil {
		s.log.WarnContext(ctx, "resolve thumbnail url", "key", *key, "error", err)
		return key
	}
	return &u
}
