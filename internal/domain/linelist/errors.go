package linelist

import "errors"

// ErrMalformedDate is returned by ParseDate for a value that is neither a
// known placeholder nor a supported date layout.
var ErrMalformedDate = errors.New("malformed date")
