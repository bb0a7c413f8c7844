package probe

import "time"

// Config holds configuration for a probe run.
type Config struct {
	BaseURL        string        // Base URL of the service
	Workers        int           // Number of concurrent evaluations
	Timeout        time.Duration // HTTP request timeout
	ReadyWait      time.Duration // How long to wait for the first snapshot
	Reload         bool          // Request a reload before sweeping
	Municipalities bool          // Also evaluate every municipality
	OutputDir      string        // Directory of the report file
	LogFile        string        // Log file for probe output
	Verbose        bool          // Log every evaluation
}

// Target is one selection to evaluate.
type Target struct {
	Region       string
	Municipality string
}

func (t Target) String() string {
	if t.Municipality == "" {
		return t.Region
	}
	return t.Region + "/" + t.Municipality
}

// Result is the outcome of evaluating one target.
type Result struct {
	Target   Target
	Eval     Evaluation
	Latency  time.Duration
	Err      error
	Problems []string
}

// Stats holds probe statistics.
type Stats struct {
	Targets   int
	OK        int
	NoData    int
	Failed    int
	Problems  int
	Report    string
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

// Series mirrors an aligned Rt series; undefined points decode as nil.
type Series struct {
	Dates  []string   `json:"dates"`
	Values []*float64 `json:"values"`
}

// DailyRow mirrors one row of the daily table.
type DailyRow struct {
	Date     string `json:"date"`
	NewCases int    `json:"new_cases"`
}

// RtSeries mirrors the Rt result of an evaluation.
type RtSeries struct {
	Axis      []string `json:"axis"`
	Raw       Series   `json:"rt_raw"`
	Smoothed  Series   `json:"rt_smoothed"`
	Undefined int      `json:"undefined_points"`
}

// Summary mirrors the case counts of an evaluation.
type Summary struct {
	Positives int `json:"positives"`
	Imported  int `json:"imported"`
}

// Evaluation mirrors the parts of GET /rt the probe checks.
type Evaluation struct {
	Status  string     `json:"status"`
	Reason  string     `json:"reason"`
	Summary Summary    `json:"summary"`
	Daily   []DailyRow `json:"daily"`
	Rt      *RtSeries  `json:"rt"`
}

// LastSmoothed returns the most recent defined smoothed Rt value.
func (e Evaluation) LastSmoothed() (float64, bool) {
	if e.Rt == nil {
		return 0, false
	}
	v := e.Rt.Smoothed.Values
	for i := len(v) - 1; i >= 0; i-- {
		if v[i] != nil {
			return *v[i], true
		}
	}
	return 0, false
}

type catalogResponse struct {
	Items []string `json:"items"`
}

type statusResponse struct {
	Ready        bool      `json:"ready"`
	SnapshotID   string    `json:"snapshot_id"`
	LastReloadAt time.Time `json:"last_reload_at"`
	LastError    string    `json:"last_error"`
}

type reloadResponse struct {
	Status    string `json:"status"`
	RequestID string `json:"request_id"`
}
