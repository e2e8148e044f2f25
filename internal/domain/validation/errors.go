package validation

import "errors"

// ErrRejected is wrapped by every RejectedError.
var ErrRejected = errors.New("score rejected")

// RejectedError carries the human-readable rejection reason.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string { return "score rejected: " + e.Reason }

// Unwrap lets errors.Is match ErrRejected.
func (e *RejectedError) Unwrap() error { return ErrRejected }

func reject(reason string) error { return &RejectedError{Reason: reason} }

// Reason extracts the rejection reason from err, if any.
func Reason(err error) (string, bool) {
	var re *RejectedError
	if errors.As(err, &re) {
		return re.Reason, true
	}
	return "", false
}
