package models

import "errors"

// Sentinel errors for the auth flow outcome taxonomy
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrRateLimited    = errors.New("too many failed attempts")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrInternalServer = errors.New("internal server error")
)
