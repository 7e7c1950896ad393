// Package notify delivers one-shot user notifications through flash cookies.
package notify

import (
	"github.com/dmitrymomot/blogcms/internal/web"
)

// FlashKey is the flash cookie key notifications are stored under.
const FlashKey = "notification"

// Kind classifies a notification.
type Kind string

const (
	KindSuccess Kind = "success"
	KindError   Kind = "error"
)

// Notification is a message shown once on the next response.
type Notification struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// Sink receives user-facing notifications.
type Sink interface {
	Success(msg string)
	Error(msg string)
}

// FlashSink stores notifications in the request's flash cookie.
// The last notification of a request wins.
type FlashSink struct {
	c web.Context
}

var _ Sink = FlashSink{}

// For returns a Sink bound to the current request.
func For(c web.Context) FlashSink {
	return FlashSink{c: c}
}

func (s FlashSink) Success(msg string) { s.set(KindSuccess, msg) }

func (s FlashSink) Error(msg string) { s.set(KindError, msg) }

func (s FlashSink) set(kind Kind, msg string) {
	if err := s.c.SetFlash(FlashKey, Notification{Kind: kind, Message: msg}); err != nil {
		s.c.LogWarn("store notification", "error", err)
	}
}

// Pending reads and clears the notification left by a previous request.
func Pending(c web.Context) *Notification {
	var n Notification
	if err := c.Flash(FlashKey, &n); err != nil || n.Message == "" {
		return nil
	}
	return &n
}
