// Package daily turns case records into per-day counts of new cases,
// recoveries and deaths.
package daily

import (
	"sort"

	"github.com/okian/rtmonitor/internal/domain/linelist"
)

// Row is one calendar day. Counts are zero when the day has no events of
// that kind.
type Row struct {
	Date          linelist.Date `json:"date"`
	NewCases      int           `json:"new_cases"`
	NewRecoveries int           `json:"new_recoveries"`
	NewDeaths     int           `json:"new_deaths"`
}

// Table is a sequence of rows with strictly increasing dates.
type Table []Row

// Build counts cases by symptom onset, recoveries by recovery date and
// deaths by death date, then outer-joins the three series on date.
// Records whose relevant date is unknown are skipped.
func Build(cases, recoveries, deaths []*linelist.Record) Table {
	byDate := make(map[linelist.Date]*Row)
	row := func(d linelist.Date) *Row {
		r, ok := byDate[d]
		if !ok {
			r = &Row{Date: d}
			byDate[d] = r
		}
		return r
	}

	for _, c := range cases {
		if c.Onset.Known() {
			row(c.Onset).NewCases++
		}
	}
	for _, c := range recoveries {
		if c.Recovery.Known() {
			row(c.Recovery).NewRecoveries++
		}
	}
	for _, c := range deaths {
		if c.Death.Known() {
			row(c.Death).NewDeaths++
		}
	}

	t := make(Table, 0, len(byDate))
	for _, r := range byDate {
		t = append(t, *r)
	}
	sort.Slice(t, func(i, j int) bool { return t[i].Date.Before(t[j].Date) })
	return t
}

// Dates returns the date axis of the table.
func (t Table) Dates() []linelist.Date {
	out := make([]linelist.Date, len(t))
	for i, r := range t {
		out[i] = r.Date
	}
	return out
}

// Columns returns the three count columns as float64 slices.
func (t Table) Columns() (cases, recoveries, deaths []float64) {
	cases = make([]float64, len(t))
	recoveries = make([]float64, len(t))
	deaths = make([]float64, len(t))
	for i, r := range t {
		cases[i] = float64(r.NewCases)
		recoveries[i] = float64(r.NewRecoveries)
		deaths[i] = float64(r.NewDeaths)
	}
	return cases, recoveries, deaths
}

// Totals sums each column.
func (t Table) Totals() Row {
	var tot Row
	for _, r := range t {
		tot.NewCases += r.NewCases
		tot.NewRecoveries += r.NewRecoveries
		tot.NewDeaths += r.NewDeaths
	}
	return tot
}
