package posts

import (
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/blogcms/internal/identity"
)

// UnknownAuthor is shown when a post's owner no longer exists.
const UnknownAuthor = "Unknown Author"

// Post is a stored blog post.
type Post struct {
	CreatedAt time.Time `json:"created_at"`

	// ThumbnailURL is the generated file name in thumbnail storage.
	ThumbnailURL *string `json:"thumbnail_url,omitempty"`

	Title       string    `json:"title"`
	Description string    `json:"description"`
	Slug        string    `json:"slug"`
	OwnerID     uuid.UUID `json:"owner_id"`
	ID          int64     `json:"id"`
}

// ListItem is a row of the management listing.
type ListItem struct {
	CreatedAt    time.Time `json:"created_at"`
	ThumbnailURL *string   `json:"thumbnail_url,omitempty"`
	Title        string    `json:"title"`
	AuthorName   string    `json:"author_name"`
	ID           int64     `json:"id"`
}

// PublishedPost is the public read model of a post.
type PublishedPost struct {
	CreatedAt    time.Time `json:"created_at"`
	ThumbnailURL *string   `json:"thumbnail_url,omitempty"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Slug         string    `json:"slug"`
	AuthorName   string    `json:"author_name"`
}

// Actor is the authenticated user acting on posts.
type Actor struct {
	Role identity.Role
	ID   uuid.UUID
}

// ActorFromUser builds an Actor from a user.
func ActorFromUser(u *identity.User) Actor {
	return Actor{ID: u.ID, Role: u.Role}
}

// IsAdmin reports whether the actor has the Admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == identity.RoleAdmin
}

// CanModify reports whether actor may view the edit form, edit or delete p.
func CanModify(actor Actor, p *Post) bool {
	return actor.IsAdmin() || actor.ID == p.OwnerID
}

// Upload is an uploaded thumbnail image.
type Upload struct {
	Content  io.Reader
	Filename string
	Size     int64
}

// CreateInput holds the fields of a new post.
type CreateInput struct {
	Thumbnail   *Upload
	Title       string
	Description string
}

// EditInput holds the editable fields of a post.
// A nil Thumbnail keeps the current one.
type EditInput struct {
	Thumbnail   *Upload
	Title       string
	Description string
}

func authorName(first, last *string) string {
	if first == nil && last == nil {
		return UnknownAuthor
	}
	var f, l string
	if first != nil {
		f = *first
	}
	if last != nil {
		l = *last
	}
	return f + " " + l
}
