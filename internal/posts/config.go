package posts

// Config controls post workflow policy.
type Config struct {
	// EnforceEditOwnership applies CanModify on the edit write path.
	// When false, any authenticated user may submit an edit.
	EnforceEditOwnership bool `env:"POSTS_ENFORCE_EDIT_OWNERSHIP" envDefault:"true"`

	MaxThumbnailSize int64 `env:"POSTS_MAX_THUMBNAIL_SIZE" envDefault:"5242880"`
	MaxTitleLength   int   `env:"POSTS_MAX_TITLE_LENGTH" envDefault:"200"`
}

// DefaultConfig returns the values used when no environment is loaded.
func DefaultConfig() Config {
	return Config{
		EnforceEditOwnership: true,
		MaxThumbnailSize:     5 << 20,
		MaxTitleLength:       200,
	}
}
