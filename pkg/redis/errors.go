package redis

import "errors"

var (
	ErrEmptyConnectionURL = errors.New("redis: REDIS_URL is empty")
	// ErrInvalidURL covers both a wrong scheme and an unparsable URL.
	ErrInvalidURL        = errors.New("redis: invalid connection URL")
	ErrConnectionFailed  = errors.New("redis: could not connect")
	ErrHealthcheckFailed = errors.New("redis: ping failed")
)
