package storage

// Option configures a Put.
type Option func(*putOptions)

type putOptions struct {
	key             string
	prefix          string
	contentType     string
	validationRules []ValidationRule
}

func newPutOptions(opts []Option) *putOptions {
	o := &putOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithKey sets the file name. The name is sanitized into a single key segment.
func WithKey(key string) Option {
	return func(o *putOptions) {
		o.key = key
	}
}

// WithPrefix places the file under a directory-like prefix.
func WithPrefix(prefix string) Option {
	return func(o *putOptions) {
		o.prefix = prefix
	}
}

// WithContentType skips sniffing and uses ct.
func WithContentType(ct string) Option {
	return func(o *putOptions) {
		o.contentType = ct
	}
}

// WithValidation rejects the upload with a *FileValidationError when any rule fails.
func WithValidation(rules ...ValidationRule) Option {
	return func(o *putOptions) {
		o.validationRules = append(o.validationRules, rules...)
	}
}
