// Package config loads the process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/dmitrymomot/blogcms/internal/accounts"
	"github.com/dmitrymomot/blogcms/internal/identity"
	"github.com/dmitrymomot/blogcms/internal/passwordreset"
	"github.com/dmitrymomot/blogcms/internal/posts"
	"github.com/dmitrymomot/blogcms/pkg/cookie"
	"github.com/dmitrymomot/blogcms/pkg/db"
	"github.com/dmitrymomot/blogcms/pkg/logger"
	"github.com/dmitrymomot/blogcms/pkg/mailer"
	"github.com/dmitrymomot/blogcms/pkg/mailer/resend"
	"github.com/dmitrymomot/blogcms/pkg/redis"
	"github.com/dmitrymomot/blogcms/pkg/storage"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

// SessionDriver selects the session store.
type SessionDriver string

const (
	SessionDriverPostgres SessionDriver = "postgres"
	SessionDriverRedis    SessionDriver = "redis"
)

// HTTP configures the server.
type HTTP struct {
	Addr            string        `env:"HTTP_ADDR" envDefault:":8080"`
	BaseURL         string        `env:"APP_BASE_URL"`
	RequestTimeout  time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// Session configures server-side sessions.
type Session struct {
	Driver      SessionDriver `env:"SESSION_DRIVER" envDefault:"postgres"`
	CookieName  string        `env:"SESSION_COOKIE_NAME" envDefault:"__sid"`
	MaxAge      time.Duration `env:"SESSION_MAX_AGE" envDefault:"720h"`
	IdleTimeout time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"20m"`
	KeyPrefix   string        `env:"SESSION_REDIS_PREFIX" envDefault:"session:"`
}

// Config is the complete process configuration.
type Config struct {
	HTTP          HTTP
	Session       Session
	Cookie        cookie.Config
	DB            db.Config
	Redis         redis.Config
	Logger        logger.Config
	Mailer        mailer.Config
	Resend        resend.Config
	Storage       storage.Config
	Identity      identity.Config
	Accounts      accounts.Config
	Posts         posts.Config
	PasswordReset passwordreset.Config
	Admin         identity.AdminSeed
}

// Load reads an optional .env file and parses the environment.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load env file: %w", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Session.Driver {
	case SessionDriverPostgres:
	case SessionDriverRedis:
		if !c.Redis.Enabled() {
			return fmt.Errorf("%w: SESSION_DRIVER=redis requires REDIS_URL", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown SESSION_DRIVER %q", ErrInvalidConfig, c.Session.Driver)
	}
	if len(c.Cookie.Secret) < 32 {
		return fmt.Errorf("%w: COOKIE_SECRET must be at least 32 bytes", ErrInvalidConfig)
	}
	if c.Admin.Email != "" && c.Admin.Password == "" {
		return fmt.Errorf("%w: ADMIN_PASSWORD is required with ADMIN_EMAIL", ErrInvalidConfig)
	}
	return nil
}
