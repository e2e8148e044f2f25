package hub

import "errors"

// Sentinel kinds for hub errors.
var (
	ErrStopped = errors.New("hub stopped")
)
