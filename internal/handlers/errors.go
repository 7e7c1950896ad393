package handlers

import (
	"errors"
	"net/http"

	"github.com/dmitrymomot/blogcms/internal/accounts"
	"github.com/dmitrymomot/blogcms/internal/identity"
	"github.com/dmitrymomot/blogcms/internal/notify"
	"github.com/dmitrymomot/blogcms/internal/passwordreset"
	"github.com/dmitrymomot/blogcms/internal/posts"
	"github.com/dmitrymomot/blogcms/internal/web"
	"github.com/dmitrymomot/blogcms/middlewares"
	"github.com/dmitrymomot/blogcms/pkg/validator"
)

// PostsPath is the post management listing.
const PostsPath = "/admin/posts"

// MsgDispatchFailed is shown when the reset email could not be sent.
const MsgDispatchFailed = "We could not send the reset email. Please try again later."

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorHandler turns handler errors into responses.
func ErrorHandler() web.ErrorHandler {
	return func(c web.Context, err error) error {
		if herr := web.AsHTTPError(err); herr != nil {
			return renderHTTPError(c, herr)
		}

		if ve := validator.ExtractValidationErrors(err); ve != nil {
			return c.JSON(http.StatusUnprocessableEntity, map[string]any{"errors": ve.Fields()})
		}

		if opErr, ok := identity.AsOperationError(err); ok {
			if msgs := opErr.Messages(); len(msgs) > 0 {
				notify.For(c).Error(msgs[0])
			}
			return c.JSON(http.StatusUnprocessableEntity, map[string]any{"failures": opErr.Failures})
		}

		var credErr *accounts.CredentialsError
		switch {
		case errors.As(err, &credErr):
			notify.For(c).Error(credErr.Message)
			return renderHTTPError(c, web.ErrUnauthorized(credErr.Message, web.WithErrorCode("invalid_credentials")))

		case errors.Is(err, passwordreset.ErrDispatchFailed):
			notify.For(c).Error(MsgDispatchFailed)
			return renderHTTPError(c, web.ErrServiceUnavailable(MsgDispatchFailed,
				web.WithErrorCode("mail_dispatch_failed"), web.WithError(err)))

		case errors.Is(err, posts.ErrNotFound):
			notify.For(c).Error(posts.MsgNotFound)
			return c.Redirect(http.StatusSeeOther, PostsPath)

		case errors.Is(err, posts.ErrForbidden):
			notify.For(c).Error(posts.MsgUnauthorized)
			return c.Redirect(http.StatusSeeOther, PostsPath)
		}

		var timeoutErr *middlewares.TimeoutError
		if errors.As(err, &timeoutErr) {
			return renderHTTPError(c, web.ErrServiceUnavailable("The request took too long.",
				web.WithErrorCode("timeout"), web.WithError(err)))
		}

		return renderHTTPError(c, web.ErrInternal(http.StatusText(http.StatusInternalServerError),
			web.WithErrorCode("internal_error"), web.WithError(err)))
	}
}

func renderHTTPError(c web.Context, herr *web.HTTPError) error {
	requestID := herr.RequestID
	if requestID == "" {
		requestID = middlewares.GetRequestID(c)
	}

	if herr.Code >= http.StatusInternalServerError {
		c.LogError("request failed", "status", herr.Code, "error", herr.Err)
	}

	code := herr.ErrorCode
	if code == "" {
		code = http.StatusText(herr.Code)
	}
	return c.JSON(herr.Code, errorBody{Error: errorDetail{
		Code:      code,
		Message:   herr.Message,
		RequestID: requestID,
	}})
}
