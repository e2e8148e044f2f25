package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted     = errors.New("service not started")
	ErrUnknownStorage = errors.New("unknown storage backend")
)
