package web_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/blogcms/internal/web"
)

func TestHTTPError(t *testing.T) {
	t.Parallel()

	cause := errors.New("db down")
	err := web.ErrServiceUnavailable("try later",
		web.WithError(cause),
		web.WithTitle("Unavailable"),
		web.WithErrorCode("mail_down"),
		web.WithRequestID("req-1"),
	)

	assert.Equal(t, http.StatusServiceUnavailable, err.Code)
	assert.Equal(t, "try later", err.Error())
	assert.Equal(t, "Service Unavailable", err.StatusText())
	assert.Equal(t, "Unavailable", err.Title)
	assert.Equal(t, "mail_down", err.ErrorCode)
	assert.Equal(t, "req-1", err.RequestID)
	require.ErrorIs(t, err, cause)

	wrapped := fmt.Errorf("handler: %w", err)
	require.Same(t, err, web.AsHTTPError(wrapped))
	assert.Nil(t, web.AsHTTPError(cause))
	assert.Nil(t, web.AsHTTPError(nil))
}
