// Package annotate places intervention milestones on an Rt series.
package annotate

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/okian/rtmonitor/internal/domain/linelist"
	"github.com/okian/rtmonitor/internal/domain/rt"
)

// Annotation marks a milestone at the nearest date of a series.
type Annotation struct {
	Milestone linelist.Date
	// Date is the series date closest to Milestone.
	Date linelist.Date
	// Index is the position of Date in the series.
	Index int
	// Value is the series value at Date; NaN when undefined.
	Value float64
	// Label is the English ordinal of the milestone ("1st", "2nd", ...).
	Label string
	// Text is the localized display text.
	Text string
}

type annotationJSON struct {
	Milestone linelist.Date `json:"milestone"`
	Date      linelist.Date `json:"date"`
	Index     int           `json:"index"`
	Value     *float64      `json:"value"`
	Label     string        `json:"label"`
	Text      string        `json:"text"`
}

// MarshalJSON writes an undefined value as null.
func (a Annotation) MarshalJSON() ([]byte, error) {
	out := annotationJSON{Milestone: a.Milestone, Date: a.Date, Index: a.Index, Label: a.Label, Text: a.Text}
	if !math.IsNaN(a.Value) && !math.IsInf(a.Value, 0) {
		v := a.Value
		out.Value = &v
	}
	return json.Marshal(out)
}

// Locate annotates each milestone, in order, at the series date with the
// smallest absolute day distance; on a tie the earlier date wins. An empty
// series yields no annotations. labeler may be nil for English text.
func Locate(series rt.Aligned, milestones []linelist.Date, labeler *Labeler) []Annotation {
	dates := series.Dates()
	if len(dates) == 0 {
		return []Annotation{}
	}
	out := make([]Annotation, 0, len(milestones))
	for i, m := range milestones {
		idx := Nearest(dates, m)
		out = append(out, Annotation{
			Milestone: m,
			Date:      dates[idx],
			Index:     idx,
			Value:     series.At(idx),
			Label:     Ordinal(i + 1),
			Text:      labeler.Text(i + 1),
		})
	}
	return out
}

// Nearest returns the index of the date in the ascending slice dates that
// is closest to target, preferring the lower index on ties. dates must not
// be empty.
func Nearest(dates []linelist.Date, target linelist.Date) int {
	idx := sort.Search(len(dates), func(i int) bool {
		return !dates[i].Before(target)
	})
	best, bestDiff := -1, math.MaxInt
	for _, i := range []int{idx - 1, idx} {
		if i < 0 || i >= len(dates) {
			continue
		}
		diff := dates[i].Sub(target)
		if diff < 0 {
			diff = -diff
		}
		if diff < bestDiff {
			best, bestDiff = i, diff
		}
	}
	return best
}
