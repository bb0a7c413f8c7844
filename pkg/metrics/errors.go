package metrics

import (
	"errors"
)

// Sentinel kinds for metrics errors.
var (
	ErrGatherFailed  = errors.New("metrics gather failed")
	ErrNotRegistered = errors.New("metric not registered")
)
