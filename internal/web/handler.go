package web

// Handler declares routes on a router.
type Handler interface {
	Routes(r Router)
}

// HandlerFunc handles a request. A non-nil error is passed to the ErrorHandler.
type HandlerFunc func(c Context) error

// Middleware wraps a HandlerFunc.
//
//	func RequireAuth(next web.HandlerFunc) web.HandlerFunc {
//		return func(c web.Context) error {
//			if !c.IsAuthenticated() {
//				return c.Redirect(http.StatusSeeOther, "/login")
//			}
//			return next(c)
//		}
//	}
type Middleware func(next HandlerFunc) HandlerFunc

// ErrorHandler renders an error returned from a handler.
type ErrorHandler func(Context, error) error
