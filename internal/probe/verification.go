package probe

import "fmt"

// Verify checks an evaluation for internal consistency and returns every
// problem found.
func Verify(e Evaluation) []string {
	var problems []string
	add := func(format string, args ...any) { problems = append(problems, fmt.Sprintf(format, args...)) }

	switch e.Status {
	case StatusOK:
	case StatusNoData:
		if e.Reason == "" {
			add("no_data without a reason")
		}
		if e.Rt != nil {
			add("no_data with an Rt series")
		}
	default:
		add("unknown status %q", e.Status)
	}

	cases := 0
	for i, row := range e.Daily {
		cases += row.NewCases
		if i > 0 && row.Date <= e.Daily[i-1].Date {
			add("daily dates not increasing at %s", row.Date)
		}
	}
	if local := e.Summary.Positives - e.Summary.Imported; cases > local {
		add("%d daily cases exceed %d local positives", cases, local)
	}

	if e.Status != StatusOK {
		return problems
	}
	if e.Rt == nil {
		return append(problems, "ok without an Rt series")
	}
	axis := e.Rt.Axis
	if len(axis) < 2 {
		add("axis has %d days", len(axis))
		return problems
	}
	if len(axis) != len(e.Daily) {
		add("axis has %d days, daily table %d", len(axis), len(e.Daily))
	}
	for _, named := range []struct {
		name string
		s    Series
	}{{"rt_raw", e.Rt.Raw}, {"rt_smoothed", e.Rt.Smoothed}} {
		name, s := named.name, named.s
		if len(s.Values) != len(axis)-1 || len(s.Dates) != len(s.Values) {
			add("%s has %d values and %d dates for %d axis days", name, len(s.Values), len(s.Dates), len(axis))
			continue
		}
		if s.Dates[0] != axis[1] {
			add("%s starts on %s, not %s", name, s.Dates[0], axis[1])
		}
	}
	undefined := 0
	for _, v := range e.Rt.Raw.Values {
		if v == nil {
			undefined++
		}
	}
	if undefined != e.Rt.Undefined {
		add("rt_raw has %d null points, %d reported", undefined, e.Rt.Undefined)
	}
	return problems
}
