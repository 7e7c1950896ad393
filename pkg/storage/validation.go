package storage

import "fmt"

// FileValidationError is returned when an upload breaks a validation rule.
type FileValidationError struct {
	Field   string
	Code    string
	Message string
}

func (e *FileValidationError) Error() string {
	return e.Message
}

const (
	ErrCodeFileTooLarge = "file_too_large"
	ErrCodeInvalidMIME  = "invalid_mime"
	ErrCodeEmptyFile    = "empty_file"
)

// ValidationRule checks an upload by its size and sniffed content type.
type ValidationRule func(size int64, mimeType string) error

// ValidateReader runs rules in order and returns the first failure.
func ValidateReader(size int64, mimeType string, rules ...ValidationRule) error {
	for _, rule := range rules {
		if err := rule(size, mimeType); err != nil {
			return err
		}
	}
	return nil
}

// MaxSize rejects uploads larger than limit bytes.
func MaxSize(limit int64) ValidationRule {
	return func(size int64, _ string) error {
		if size > limit {
			return &FileValidationError{
				Field:   "file",
				Code:    ErrCodeFileTooLarge,
				Message: fmt.Sprintf("file size %d exceeds limit of %d bytes", size, limit),
			}
		}
		return nil
	}
}

func NotEmpty() ValidationRule {
	return func(size int64, _ string) error {
		if size <= 0 {
			return &FileValidationError{Field: "file", Code: ErrCodeEmptyFile, Message: "file is empty"}
		}
		return nil
	}
}

// AllowedTypes accepts only content types matching patterns such as "image/*".
func AllowedTypes(patterns ...string) ValidationRule {
	return func(_ int64, mimeType string) error {
		if !matchesMIME(mimeType, patterns) {
			return &FileValidationError{
				Field:   "file",
				Code:    ErrCodeInvalidMIME,
				Message: fmt.Sprintf("file type %q is not allowed", mimeType),
			}
		}
		return nil
	}
}

func ImageOnly() ValidationRule {
	return AllowedTypes("image/*")
}
