package storage

import (
	"context"
	"io"
	"net/url"
	"regexp"
	"strings"
)

// Storage is a flat key/value file store.
type Storage interface {
	// Put writes r under a key built from the options. size is the content length.
	Put(ctx context.Context, r io.Reader, size int64, opts ...Option) (*FileInfo, error)

	// Get opens a stored file. The caller closes the reader.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete removes a file. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// URL returns a URL the browser can load the file from.
	URL(ctx context.Context, key string) (string, error)
}

// FileInfo describes a stored file.
type FileInfo struct {
	Key         string
	ContentType string
	Size        int64
}

// Driver selects a backend.
type Driver string

const (
	DriverLocal Driver = "local"
	DriverS3    Driver = "s3"
)

// Config holds storage settings for both backends.
type Config struct {
	Driver Driver `env:"STORAGE_DRIVER" envDefault:"local"`

	// Local backend.
	LocalRoot    string `env:"STORAGE_LOCAL_ROOT" envDefault:"./data/thumbnails"`
	LocalBaseURL string `env:"STORAGE_LOCAL_BASE_URL" envDefault:"/thumbnails"`

	// S3 backend.
	Bucket    string `env:"STORAGE_S3_BUCKET"`
	AccessKey string `env:"STORAGE_S3_ACCESS_KEY"`
	SecretKey string `env:"STORAGE_S3_SECRET_KEY"`
	Endpoint  string `env:"STORAGE_S3_ENDPOINT"`
	Region    string `env:"STORAGE_S3_REGION" envDefault:"us-east-1"`
	PublicURL string `env:"STORAGE_S3_PUBLIC_URL"`
	PathStyle bool   `env:"STORAGE_S3_PATH_STYLE" envDefault:"false"`
}

// New builds the backend selected by cfg.Driver.
func New(cfg Config) (Storage, error) {
	switch cfg.Driver {
	case DriverS3:
		s, err := NewS3(cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverLocal, "":
		l, err := NewLocal(cfg.LocalRoot, cfg.LocalBaseURL)
		if err != nil {
			return nil, err
		}
		return l, nil
	default:
		return nil, ErrInvalidConfig
	}
}

var unsafeSegment = regexp.MustCompile(`[^a-zA-Z0-9\-_.]`)

// sanitizePathSegment makes s safe to use as one key segment: separators and
// traversal sequences are removed and anything outside [A-Za-z0-9-_.] becomes "_".
func sanitizePathSegment(s string) string {
	s = strings.Trim(s, " /\\")
	s = strings.ReplaceAll(s, "..", "")
	s = strings.NewReplacer("/", "_", "\\", "_").Replace(s)
	return url.PathEscape(unsafeSegment.ReplaceAllString(s, "_"))
}

// escapeKey path-escapes each segment of key for use in a URL.
func escapeKey(key string) string {
	segs := strings.Split(key, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}

// buildKey joins prefix and name, generating a name when none is given.
func buildKey(o *putOptions, contentType string, newName func() string) string {
	name := o.key
	if name == "" {
		ext := ExtFromMIME(contentType)
		if ext == "" {
			ext = ".bin"
		}
		name = newName() + ext
	}
	name = sanitizePathSegment(name)
	if o.prefix == "" {
		return name
	}
	return sanitizePathSegment(o.prefix) + "/" + name
}
