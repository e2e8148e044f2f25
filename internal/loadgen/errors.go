package loadgen

import "errors"

var (
	// ErrUnhealthy is returned when the hub does not answer its health check.
	ErrUnhealthy = errors.New("hub health check failed")
	// ErrNothingAccepted is returned when every submission was refused.
	ErrNothingAccepted = errors.New("no scores accepted")
	// ErrMismatch is returned when the served leaderboard disagrees with the
	// locally computed one.
	ErrMismatch = errors.New("leaderboard mismatch")
)
