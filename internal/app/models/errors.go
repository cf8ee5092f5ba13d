package models

import "errors"

// Domain specific errors shared across the planner pipeline. Rate-limit and
// auth rejections never flow as error values; the middleware answers those
// requests directly.
var (
	ErrNotFound         = errors.New("requested item not found")
	ErrValidation       = errors.New("validation failed")
	ErrStoreUnavailable = errors.New("location store unavailable")
	ErrTimeout          = errors.New("generation deadline exceeded")
)
