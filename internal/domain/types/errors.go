package types

import "errors"

// ErrMalformed marks frames that cannot be decoded or encoded.
var ErrMalformed = errors.New("malformed message")
