package repository

import "errors"

// Sentinel kinds for snapshot store errors.
var (
	ErrNoSnapshot    = errors.New("no snapshot published")
	ErrStoreClosed   = errors.New("snapshot store closed")
	ErrUnknownRegion = errors.New("unknown region")
)
