package source

import "errors"

// Sentinel kinds for ingestion errors. Every Fetch failure wraps one of them.
var (
	ErrFetch             = errors.New("fetch line list")
	ErrStatus            = errors.New("unexpected upstream status")
	ErrDecode            = errors.New("decode line list")
	ErrUnsupportedFormat = errors.New("unsupported line list format")
)
