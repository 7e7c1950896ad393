package storage_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/blogcms/pkg/storage"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01")

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("local by default", func(t *testing.T) {
		t.Parallel()

		s, err := storage.New(storage.Config{LocalRoot: t.TempDir(), LocalBaseURL: "/thumbnails"})
		require.NoError(t, err)
		require.IsType(t, &storage.LocalStorage{}, s)
	})

	t.Run("s3 requires credentials", func(t *testing.T) {
		t.Parallel()

		s, err := storage.New(storage.Config{Driver: storage.DriverS3, Bucket: "b"})
		require.ErrorIs(t, err, storage.ErrInvalidConfig)
		require.Nil(t, s)
	})

	t.Run("s3 builds", func(t *testing.T) {
		t.Parallel()

		s, err := storage.New(storage.Config{
			Driver:    storage.DriverS3,
			Bucket:    "media",
			AccessKey: "key",
			SecretKey: "secret",
			Endpoint:  "http://localhost:9000",
			PathStyle: true,
		})
		require.NoError(t, err)

		u, err := s.URL(context.Background(), "a.png")
		require.NoError(t, err)
		require.Equal(t, "http://localhost:9000/media/a.png", u)

		u, err = s.URL(context.Background(), "posts/a b#.png")
		require.NoError(t, err)
		require.Equal(t, "http://localhost:9000/media/posts/a%20b%23.png", u)
	})

	t.Run("unknown driver", func(t *testing.T) {
		t.Parallel()

		_, err := storage.New(storage.Config{Driver: "ftp"})
		require.ErrorIs(t, err, storage.ErrInvalidConfig)
	})
}

func TestLocalStorage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("put get delete", func(t *testing.T) {
		t.Parallel()

		s, err := storage.NewLocal(t.TempDir(), "/thumbnails/")
		require.NoError(t, err)

		info, err := s.Put(ctx, bytes.NewReader(pngHeader), int64(len(pngHeader)), storage.WithKey("abc_cat photo.png"))
		require.NoError(t, err)
		assert.Equal(t, "abc_cat_photo.png", info.Key)
		assert.Equal(t, "image/png", info.ContentType)
		assert.Equal(t, int64(len(pngHeader)), info.Size)

		u, err := s.URL(ctx, info.Key)
		require.NoError(t, err)
		assert.Equal(t, "/thumbnails/abc_cat_photo.png", u)

		u, err = s.URL(ctx, "dir/cover #1?.png")
		require.NoError(t, err)
		assert.Equal(t, "/thumbnails/dir/cover%20%231%3F.png", u)

		rc, err := s.Get(ctx, info.Key)
		require.NoError(t, err)
		data, err := io.ReadAll(rc)
		require.NoError(t, rc.Close())
		require.NoError(t, err)
		assert.Equal(t, pngHeader, data)

		require.NoError(t, s.Delete(ctx, info.Key))
		require.NoError(t, s.Delete(ctx, info.Key))

		_, err = s.Get(ctx, info.Key)
		require.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("generated key", func(t *testing.T) {
		t.Parallel()

		s, err := storage.NewLocal(t.TempDir(), "")
		require.NoError(t, err)

		info, err := s.Put(ctx, bytes.NewReader(pngHeader), int64(len(pngHeader)), storage.WithPrefix("thumbs"))
		require.NoError(t, err)
		assert.Regexp(t, `^thumbs/[0-9a-f-]{36}\.png$`, info.Key)
	})

	t.Run("traversal stays inside root", func(t *testing.T) {
		t.Parallel()

		s, err := storage.NewLocal(t.TempDir(), "")
		require.NoError(t, err)

		info, err := s.Put(ctx, bytes.NewReader(pngHeader), int64(len(pngHeader)), storage.WithKey("../../etc/passwd"))
		require.NoError(t, err)
		assert.NotContains(t, info.Key, "..")
		assert.NotContains(t, info.Key, "/")
	})

	t.Run("validation", func(t *testing.T) {
		t.Parallel()

		s, err := storage.NewLocal(t.TempDir(), "")
		require.NoError(t, err)

		_, err = s.Put(ctx, bytes.NewReader([]byte("plain text")), 10, storage.WithValidation(storage.ImageOnly()))
		var verr *storage.FileValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, storage.ErrCodeInvalidMIME, verr.Code)

		_, err = s.Put(ctx, bytes.NewReader(pngHeader), int64(len(pngHeader)), storage.WithValidation(storage.MaxSize(4)))
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, storage.ErrCodeFileTooLarge, verr.Code)
	})

	t.Run("handler serves files without listings", func(t *testing.T) {
		t.Parallel()

		s, err := storage.NewLocal(t.TempDir(), "")
		require.NoError(t, err)
		_, err = s.Put(ctx, bytes.NewReader(pngHeader), int64(len(pngHeader)), storage.WithPrefix("dir"), storage.WithKey("x.png"))
		require.NoError(t, err)

		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dir/x.png", nil))
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/dir/", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestValidateReader(t *testing.T) {
	t.Parallel()

	require.NoError(t, storage.ValidateReader(10, "image/jpeg", storage.NotEmpty(), storage.ImageOnly(), storage.MaxSize(10)))
	require.Error(t, storage.ValidateReader(0, "image/jpeg", storage.NotEmpty()))
	require.NoError(t, storage.ValidateReader(1, "image/png; charset=binary", storage.AllowedTypes("IMAGE/*")))
	require.Error(t, storage.ValidateReader(1, "imagex/png", storage.AllowedTypes("image/*")))
}

func TestExtFromMIME(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ".jpg", storage.ExtFromMIME("image/jpeg"))
	assert.Equal(t, ".png", storage.ExtFromMIME("Image/PNG; q=1"))
	assert.Empty(t, storage.ExtFromMIME("application/x-unknown"))
}
