package service

import "errors"

// Typed errors mapped to HTTP status codes in the delivery layer.
var (
	ErrInvalidRunID = errors.New("invalid run_id")
	ErrRunNotFound  = errors.New("review run not found")

	ErrStoreUnavailable = errors.New("assignment store unavailable")
	ErrQueueUnavailable = errors.New("review queue unavailable")
)
