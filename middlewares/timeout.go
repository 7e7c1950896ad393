package middlewares

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrymomot/blogcms/internal/web"
)

const DefaultTimeout = 30 * time.Second

// Timeout bounds the request context. A handler that honours the context
// and fails with context.DeadlineExceeded is reported as a *TimeoutError.
func Timeout(d time.Duration) web.Middleware {
	if d <= 0 {
		d = DefaultTimeout
	}
	return func(next web.HandlerFunc) web.HandlerFunc {
		return func(c web.Context) error {
			ctx, cancel := context.WithTimeout(c.Request().Context(), d)
			defer cancel()

			c.SetContext(ctx)
			err := next(c)
			if errors.Is(err, context.DeadlineExceeded) || (err == nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && !c.Written()) {
				c.LogWarn("request timeout", "timeout", d.String())
				return &TimeoutError{Duration: d}
			}
			return err
		}
	}
}
