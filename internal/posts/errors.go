package posts

import "errors"

var (
	ErrNotFound  = errors.New("posts: post not found")
	ErrForbidden = errors.New("posts: not authorized")
	ErrSlugTaken = errors.New("posts: slug already exists")
)

// User-facing notification messages.
const (
	MsgCreated      = "Post Created Successfully!"
	MsgUpdated      = "Post Updated Successfully!"
	MsgDeleted      = "Post Deleted Successfully!"
	MsgNotFound     = "Post not found!"
	MsgUnauthorized = "You are not Authorized!"
)
