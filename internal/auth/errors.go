package auth

import "errors"

var (
	ErrTokenMissing = errors.New("missing bearer token")
	ErrTokenInvalid = errors.New("invalid token")
	ErrRateLimited  = errors.New("too many requests")
)
