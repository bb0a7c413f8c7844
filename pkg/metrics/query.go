package metrics

import (
	"fmt"
)

// Sum returns the sum of all series of the named metric in the custom
// registry. Counters and gauges contribute their value, histograms their
// sample count.
func Sum(name string) (float64, error) {
	families, err := customRegistry.Gather()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrGatherFailed, err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		var total float64
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				total += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				total += m.GetGauge().GetValue()
			case m.GetHistogram() != nil:
				total += float64(m.GetHistogram().GetSampleCount())
			}
		}
		return total, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrNotRegistered, name)
}
