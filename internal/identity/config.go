package identity

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Config controls credential and lockout policy.
type Config struct {
	MaxFailedAttempts int           `env:"IDENTITY_MAX_FAILED_ATTEMPTS" envDefault:"5"`
	LockoutDuration   time.Duration `env:"IDENTITY_LOCKOUT_DURATION" envDefault:"5m"`
	ResetTokenTTL     time.Duration `env:"IDENTITY_RESET_TOKEN_TTL" envDefault:"2h"`
	PasswordMinLength int           `env:"IDENTITY_PASSWORD_MIN_LENGTH" envDefault:"7"`
	BcryptCost        int           `env:"IDENTITY_BCRYPT_COST" envDefault:"10"`

	// UserCacheTTL bounds how long a signed-in user is served from the Redis
	// cache. Zero, or no REDIS_URL, disables the cache.
	UserCacheTTL time.Duration `env:"IDENTITY_USER_CACHE_TTL" envDefault:"1m"`
}

// DefaultConfig returns the values used when no environment is loaded.
func DefaultConfig() Config {
	return Config{
		MaxFailedAttempts: 5,
		LockoutDuration:   5 * time.Minute,
		ResetTokenTTL:     2 * time.Hour,
		PasswordMinLength: 7,
		BcryptCost:        bcrypt.DefaultCost,
		UserCacheTTL:      time.Minute,
	}
}

// AdminSeed describes the administrator created at startup when none exists.
// An empty Email disables seeding.
type AdminSeed struct {
	Email     string `env:"ADMIN_EMAIL"`
	UserName  string `env:"ADMIN_USERNAME" envDefault:"admin"`
	Password  string `env:"ADMIN_PASSWORD"`
	FirstName string `env:"ADMIN_FIRST_NAME" envDefault:"Site"`
	LastName  string `env:"ADMIN_LAST_NAME" envDefault:"Admin"`
}
