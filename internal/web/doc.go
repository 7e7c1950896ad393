// Package web is the HTTP layer of blogcms: a chi router wrapped in an App
// with error-returning handlers, a request Context, server-side sessions and
// a graceful runtime.
//
// Handlers return errors instead of writing failure responses themselves.
// The App passes any returned error to the configured ErrorHandler unless the
// handler already wrote a response.
//
//	app := web.New(
//		web.WithLogger(log),
//		web.WithSession(store, web.WithSessionIdleTimeout(20*time.Minute)),
//		web.WithHandlers(handlers.NewPosts(svc)),
//	)
//	err := app.Run(":8080", web.ShutdownHook(db.Shutdown(pool)))
package web
