package queue

import "errors"

// Sentinel kinds for reload queue errors.
var (
	ErrClosed  = errors.New("reload queue closed")
	ErrPending = errors.New("reload already pending")
)
