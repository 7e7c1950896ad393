package posts

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists posts.
//
// Get, Update, Delete and FindBySlug return ErrNotFound on absence.
type Repository interface {
	// List returns posts newest first, id descending on ties. A nil owner
	// returns every post.
	List(ctx context.Context, owner *uuid.UUID) ([]ListItem, error)
	Create(ctx context.Context, p *Post) error
	Get(ctx context.Context, id int64) (*Post, error)
	Update(ctx context.Context, p *Post) error
	Delete(ctx context.Context, id int64) error
	FindBySlug(ctx context.Context, slug string) (*PublishedPost, error)
}
