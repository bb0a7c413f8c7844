package export

import "errors"

// Sentinel kinds for export errors.
var (
	ErrCreate   = errors.New("create export file")
	ErrNoSeries = errors.New("evaluation has no Rt series")
)
