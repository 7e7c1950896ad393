package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
)

// PutFile stores a multipart upload. Returns ErrEmptyFile for a nil or
// zero-length file and *FileValidationError when a WithValidation rule fails.
func PutFile(ctx context.Context, s Storage, fh *multipart.FileHeader, opts ...Option) (*FileInfo, error) {
	if fh == nil || fh.Size == 0 {
		return nil, ErrEmptyFile
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("storage: open upload: %w", err)
	}
	defer f.Close()

	return s.Put(ctx, f, fh.Size, opts...)
}

// prepareBody resolves the content type and a rewindable body for r, then
// runs the validation rules from o.
func prepareBody(r io.Reader, size int64, o *putOptions) (string, io.ReadSeeker, error) {
	var (
		contentType = o.contentType
		body        io.ReadSeeker
	)
	if contentType == "" {
		contentType, body = detectMIMEWithReader(r)
	} else if rs, ok := r.(io.ReadSeeker); ok {
		body = rs
	} else {
		data, err := io.ReadAll(r)
		if err != nil {
			return "", nil, fmt.Errorf("storage: read input: %w", err)
		}
		body = bytes.NewReader(data)
	}

	if err := ValidateReader(size, contentType, o.validationRules...); err != nil {
		return "", nil, err
	}
	return contentType, body, nil
}
