// Package middlewares holds the cross-cutting web.Middleware used by blogcms:
// request ids, panic recovery and request timeouts.
//
// Recover and Timeout do not write responses. They return *PanicError and
// *TimeoutError so the App's error handler renders every failure the same way.
package middlewares
