package repository

import "errors"

// Sentinel kinds for store errors.
var (
	// ErrStorage wraps every failure of the persistence layer.
	ErrStorage = errors.New("storage fault")
	ErrClosed  = errors.New("store closed")
)
