// Package rt estimates the effective reproduction number from daily case,
// recovery and death counts.
//
// Active cases are the running total of new cases minus recoveries and
// deaths. With D the mean recovery time in days,
//
//	Rt[t] = D * (ln active[t] - ln active[t-1]) + 1
//
// and the bounds use the 97.5th and 2.5th recovery-time percentiles in
// place of D.
package rt

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/okian/rtmonitor/internal/domain/daily"
	"github.com/okian/rtmonitor/internal/domain/linelist"
	"github.com/okian/rtmonitor/internal/domain/recovery"
)

// Engine estimates Rt with fixed parameters. It is safe for concurrent use.
type Engine struct {
	params Params
}

// New returns an engine with DefaultParams adjusted by opts.
func New(opts ...Option) (*Engine, error) {
	p := DefaultParams()
	for _, opt := range opts {
		opt(&p)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Engine{params: p}, nil
}

// Params returns a copy of the engine parameters.
func (e *Engine) Params() Params {
	p := e.params
	p.Kernel = append([]float64(nil), p.Kernel...)
	return p
}

// Result holds every series of one estimation. Active, LogActive and
// Reference span Axis; the Rt series are Aligned to Axis[1:].
type Result struct {
	Axis         []linelist.Date `json:"axis"`
	Active       Values          `json:"active_cases"`
	LogActive    Values          `json:"log_active_cases"`
	Raw          Aligned         `json:"rt_raw"`
	Smoothed     Aligned         `json:"rt_smoothed"`
	RawLow       Aligned         `json:"rt_raw_low"`
	SmoothedLow  Aligned         `json:"rt_smoothed_low"`
	RawHigh      Aligned         `json:"rt_raw_high"`
	SmoothedHigh Aligned         `json:"rt_smoothed_high"`
	Reference    Values          `json:"reference"`
	// NonPositive counts days whose active count was zero or negative.
	NonPositive int `json:"nonpositive_days"`
	// Undefined counts NaN points in the raw Rt series.
	Undefined int `json:"undefined_points"`
	// SmoothingApplied is false when the series was too short to smooth.
	SmoothingApplied bool `json:"smoothing_applied"`
}

// ActiveCases returns cumsum(cases) - cumsum(recoveries) - cumsum(deaths).
func ActiveCases(table daily.Table) []float64 {
	cases, recoveries, deaths := table.Columns()
	active := floats.CumSum(make([]float64, len(cases)), cases)
	if len(active) == 0 {
		return active
	}
	floats.Sub(active, floats.CumSum(make([]float64, len(recoveries)), recoveries))
	floats.Sub(active, floats.CumSum(make([]float64, len(deaths)), deaths))
	return active
}

// Estimate computes the Rt series for table using the recovery-time
// statistics in stats. Tables with fewer than two days yield ErrNoData.
func (e *Engine) Estimate(table daily.Table, stats recovery.Stats) (Result, error) {
	if len(table) < 2 {
		return Result{}, ErrNoData
	}
	axis := table.Dates()
	active := ActiveCases(table)

	logActive := make([]float64, len(active))
	nonPositive := 0
	for i, a := range active {
		if a <= 0 {
			nonPositive++
			if e.params.Policy == PolicyFloor {
				a = e.params.Floor
			} else {
				logActive[i] = math.NaN()
				continue
			}
		}
		logActive[i] = math.Log(a)
	}

	growth := make([]float64, len(logActive)-1)
	for i := range growth {
		growth[i] = logActive[i+1] - logActive[i]
	}

	res := Result{
		Axis:             axis,
		Active:           Values(active),
		LogActive:        Values(logActive),
		NonPositive:      nonPositive,
		SmoothingApplied: len(growth) > e.params.MinSmoothLength,
	}

	var err error
	build := func(d float64) (Aligned, Aligned) {
		raw := scale(growth, d)
		sm := smooth(e.params.Kernel, raw, e.params.MinSmoothLength)
		var r, s Aligned
		if r, err = NewAligned(axis, raw); err != nil {
			return r, s
		}
		s, err = NewAligned(axis, sm)
		return r, s
	}
	if res.Raw, res.Smoothed = build(stats.Mean); err != nil {
		return Result{}, err
	}
	if res.RawHigh, res.SmoothedHigh = build(stats.High); err != nil {
		return Result{}, err
	}
	if res.RawLow, res.SmoothedLow = build(stats.Low); err != nil {
		return Result{}, err
	}

	ref := make([]float64, len(axis))
	for i := range ref {
		ref[i] = 1
	}
	res.Reference = Values(ref)
	res.Undefined = res.Raw.Len() - res.Raw.Values().Defined()
	return res, nil
}

// scale returns d*g+1 element-wise.
func scale(g []float64, d float64) []float64 {
	out := make([]float64, len(g))
	for i, v := range g {
		out[i] = d*v + 1
	}
	return out
}
