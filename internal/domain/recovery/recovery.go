// Package recovery summarizes symptom-onset-to-recovery durations.
package recovery

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/okian/rtmonitor/internal/domain/linelist"
)

// Percentiles used for the Rt bounds.
const (
	HighQuantile = 0.975
	LowQuantile  = 0.025
)

// Stats describes a recovery-duration distribution in days.
type Stats struct {
	Mean     float64 `json:"mean"`
	Median   float64 `json:"median"`
	High     float64 `json:"p97_5"`
	Low      float64 `json:"p2_5"`
	Samples  int     `json:"samples"`
	Fallback bool    `json:"fallback"`
}

// Durations collects the known recovery durations of records.
func Durations(records []*linelist.Record) []float64 {
	out := make([]float64, 0, len(records)/4)
	for _, r := range records {
		if r.RecoveryDays.Valid {
			out = append(out, float64(r.RecoveryDays.N))
		}
	}
	return out
}

// Compute returns the statistics of durations. It reports false for an
// empty input instead of producing NaN.
func Compute(durations []float64) (Stats, bool) {
	if len(durations) == 0 {
		return Stats{}, false
	}
	sorted := append([]float64(nil), durations...)
	sort.Float64s(sorted)
	return Stats{
		Mean:    stat.Mean(sorted, nil),
		Median:  Percentile(sorted, 0.5),
		High:    Percentile(sorted, HighQuantile),
		Low:     Percentile(sorted, LowQuantile),
		Samples: len(sorted),
	}, true
}

// Estimate computes statistics over filtered and falls back to global when
// filtered has no known durations. ErrNoDurations is returned only when
// neither has any.
func Estimate(filtered, global []*linelist.Record) (Stats, error) {
	if s, ok := Compute(Durations(filtered)); ok {
		return s, nil
	}
	s, ok := Compute(Durations(global))
	if !ok {
		return Stats{}, ErrNoDurations
	}
	s.Fallback = true
	return s, nil
}

// Percentile interpolates linearly between the closest ranks at
// (n-1)*q of an ascending slice. It returns NaN for an empty slice.
func Percentile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	if q <= 0 {
		return sorted[0]
	}
	if q >= 1 {
		return sorted[n-1]
	}
	h := float64(n-1) * q
	lo := math.Floor(h)
	i := int(lo)
	if i+1 >= n {
		return sorted[n-1]
	}
	return sorted[i] + (h-lo)*(sorted[i+1]-sorted[i])
}
