package rt

import "errors"

// Sentinel errors for the Rt engine.
var (
	ErrNoData        = errors.New("fewer than two days of data")
	ErrMisaligned    = errors.New("series length does not match axis")
	ErrInvalidParams = errors.New("invalid rt parameters")
)
