// Command blogcms runs the blog server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/blogcms/internal/accounts"
	"github.com/dmitrymomot/blogcms/internal/config"
	"github.com/dmitrymomot/blogcms/internal/handlers"
	"github.com/dmitrymomot/blogcms/internal/identity"
	"github.com/dmitrymomot/blogcms/internal/migrations"
	"github.com/dmitrymomot/blogcms/internal/passwordreset"
	"github.com/dmitrymomot/blogcms/internal/posts"
	"github.com/dmitrymomot/blogcms/internal/templates/emails"
	"github.com/dmitrymomot/blogcms/internal/web"
	"github.com/dmitrymomot/blogcms/middlewares"
	"github.com/dmitrymomot/blogcms/pkg/cache"
	"github.com/dmitrymomot/blogcms/pkg/cookie"
	"github.com/dmitrymomot/blogcms/pkg/db"
	"github.com/dmitrymomot/blogcms/pkg/logger"
	"github.com/dmitrymomot/blogcms/pkg/mailer"
	"github.com/dmitrymomot/blogcms/pkg/mailer/resend"
	"github.com/dmitrymomot/blogcms/pkg/redis"
	"github.com/dmitrymomot/blogcms/pkg/session"
	"github.com/dmitrymomot/blogcms/pkg/session/pgstore"
	"github.com/dmitrymomot/blogcms/pkg/session/redisstore"
	"github.com/dmitrymomot/blogcms/pkg/storage"
)

func main() {
	if err := run(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := logger.New(cfg.Logger, middlewares.RequestIDExtractor(), handlers.UserIDExtractor())
	slog.SetDefault(log)

	pool, err := db.Connect(ctx, cfg.DB)
	if err != nil {
		return err
	}
	if err := db.Migrate(ctx, pool, migrations.FS, cfg.DB.MigrationsTable, log); err != nil {
		pool.Close()
		return err
	}

	var rdb goredis.UniversalClient
	if cfg.Redis.Enabled() {
		if rdb, err = redis.Open(ctx, cfg.Redis); err != nil {
			pool.Close()
			return err
		}
	}

	var sessions session.Store = pgstore.New(pool)
	if cfg.Session.Driver == config.SessionDriverRedis {
		sessions = redisstore.New(rdb, redisstore.WithPrefix(cfg.Session.KeyPrefix))
	}

	thumbnails, err := storage.New(cfg.Storage)
	if err != nil {
		return err
	}

	var sender mailer.Sender = mailer.NewLogSender(log)
	if cfg.Resend.Enabled() {
		sender = resend.New(cfg.Resend)
	}
	m := mailer.New(sender, mailer.NewRenderer(emails.FS, ""), cfg.Mailer)

	provider := identity.NewProvider(identity.NewPostgresRepository(pool), cfg.Identity, identity.WithLogger(log))
	if seeded, err := provider.SeedAdmin(ctx, cfg.Admin); err != nil {
		return err
	} else if seeded {
		log.Info("admin account created", "email", cfg.Admin.Email)
	}

	// The user cache lives in Redis only; without it every request queries Postgres.
	var users handlers.UserLookup = provider
	if rdb != nil && cfg.Identity.UserCacheTTL > 0 {
		users = identity.NewCachedLookup(provider,
			cache.NewRedis[identity.User](rdb, cache.WithPrefix("users")),
			cfg.Identity.UserCacheTTL)
	}

	postSvc := posts.NewService(posts.NewPostgresRepository(pool), thumbnails, cfg.Posts, posts.WithLogger(log))
	accountSvc := accounts.New(provider, cfg.Accounts, accounts.WithLogger(log))
	resetWf := passwordreset.New(provider, m, sessions, cfg.PasswordReset,
		passwordreset.WithLogger(log),
		passwordreset.WithTokenTTL(cfg.Identity.ResetTokenTTL),
	)

	opts := []web.Option{
		web.WithLogger(log),
		web.WithCookieOptions(cookie.FromConfig(cfg.Cookie)...),
		web.WithSession(sessions,
			web.WithSessionCookieName(cfg.Session.CookieName),
			web.WithSessionMaxAge(cfg.Session.MaxAge),
			web.WithSessionIdleTimeout(cfg.Session.IdleTimeout),
			web.WithSessionDomain(cfg.Cookie.Domain),
			web.WithSessionSecure(cfg.Cookie.Secure),
		),
		web.WithRoles(handlers.RolePermissions, handlers.RoleExtractor),
		web.WithMiddleware(
			middlewares.Recover(),
			middlewares.RequestID(),
			middlewares.Timeout(cfg.HTTP.RequestTimeout),
			handlers.LoadUser(users),
		),
		web.WithErrorHandler(handlers.ErrorHandler()),
		web.WithHealthChecks(readinessChecks(pool, rdb)...),
		web.WithHandlers(
			handlers.NewBlogHandler(postSvc),
			handlers.NewPostHandler(postSvc),
			handlers.NewAccountHandler(accountSvc),
			handlers.NewPasswordResetHandler(resetWf, cfg.HTTP.BaseURL),
		),
	}
	if local, ok := thumbnails.(*storage.LocalStorage); ok {
		opts = append(opts, web.WithMount(cfg.Storage.LocalBaseURL,
			http.StripPrefix(cfg.Storage.LocalBaseURL, local.Handler())))
	}

	runOpts := []web.RunOption{
		web.ShutdownTimeout(cfg.HTTP.ShutdownTimeout),
		web.ShutdownHook(db.Shutdown(pool)),
	}
	if rdb != nil {
		runOpts = append(runOpts, web.ShutdownHook(redis.Shutdown(rdb)))
	}
	runOpts = append(runOpts, web.ShutdownHook(logger.SentryFlush(2*time.Second)))

	return web.New(opts...).Run(cfg.HTTP.Addr, runOpts...)
}

func readinessChecks(pool *pgxpool.Pool, rdb goredis.UniversalClient) []web.HealthOption {
	checks := []web.HealthOption{web.WithReadinessCheck("postgres", db.Healthcheck(pool))}
	if rdb != nil {
		checks = append(checks, web.WithReadinessCheck("redis", redis.Healthcheck(rdb)))
	}
	return checks
}
