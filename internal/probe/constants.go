package probe

import "time"

// Evaluation statuses reported by the service.
const (
	StatusOK     = "ok"
	StatusNoData = "no_data"
)

// Worker configuration constants.
const (
	WorkerChannelMultiplier = 2
)

// Runner configuration constants.
const (
	PollInterval         = 500 * time.Millisecond
	DefaultReadyWait     = 2 * time.Minute
	PercentageMultiplier = 100
)
