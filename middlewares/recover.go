package middlewares

import (
	"runtime"

	"github.com/dmitrymomot/blogcms/internal/web"
)

const defaultStackSize = 4 << 10

// Recover turns a panic into a *PanicError and logs it with the stack.
func Recover() web.Middleware {
	return func(next web.HandlerFunc) web.HandlerFunc {
		return func(c web.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				stack := make([]byte, defaultStackSize)
				stack = stack[:runtime.Stack(stack, false)]
				c.LogError("panic recovered", "panic", r, "stack", string(stack))
				err = &PanicError{Value: r, Stack: stack}
			}()
			return next(c)
		}
	}
}
