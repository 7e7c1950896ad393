// Package logger builds JSON slog loggers that pull request-scoped attributes
// (request id, user id) out of the context on every call, and optionally
// forward warnings and errors to Sentry.
//
//	log := logger.New(cfg.Logger, middlewares.RequestIDExtractor(), handlers.UserIDExtractor())
//	log.InfoContext(ctx, "post created", slog.Int64("post_id", p.ID))
//
// With an empty SENTRY_DSN only stdout is used, so the same wiring works in
// development.
package logger
