package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNoSource   = errors.New("no line list source configured")
	ErrNotStarted = errors.New("service not started")
	ErrNotReady   = errors.New("no snapshot loaded yet")
	ErrIngest     = errors.New("ingest line list")
)
