package recovery

import "errors"

// ErrNoDurations means no record in either the selection or the whole data
// set has both a symptom onset and a recovery date.
var ErrNoDurations = errors.New("no recovery durations")
