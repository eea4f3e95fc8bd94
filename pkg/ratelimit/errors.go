package ratelimit

import "errors"

var (
	ErrInvalidRule      = errors.New("rate limit rule needs positive size and rate")
	ErrInvalidTokens    = errors.New("token count must be positive")
	ErrStoreRequired    = errors.New("store is required")
	ErrStoreUnavailable = errors.New("rate limit store unavailable")
	ErrLoadingRules     = errors.New("failed to load rate limit rules")
	ErrUnknownStore     = errors.New("unknown rate limit store")
)
