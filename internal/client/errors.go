package client

import "errors"

// Sentinel kinds for client errors.
var (
	ErrBadURL = errors.New("invalid hub url")
	ErrServer = errors.New("hub request failed")
)
