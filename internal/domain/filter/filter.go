// Package filter selects case records by geography and splits a selection
// into the classes the estimator works on.
package filter

import (
	"strings"

	"github.com/okian/rtmonitor/internal/domain/linelist"
)

// Selector restricts records by region and municipality. An empty field
// is not set.
type Selector struct {
	Region       string `json:"region,omitempty"`
	Municipality string `json:"municipality,omitempty"`
}

// NewSelector normalizes both values with the record title caser so
// "ANTIOQUIA" and "antioquia" select the same records.
func NewSelector(region, municipality string) Selector {
	var s Selector
	t := linelist.NewTitler()
	if strings.TrimSpace(region) != "" {
		s.Region = t.Label(region)
	}
	if strings.TrimSpace(municipality) != "" {
		s.Municipality = t.Label(municipality)
	}
	return s
}

// IsZero reports whether no field is set.
func (s Selector) IsZero() bool { return s.Region == "" && s.Municipality == "" }

// Match reports whether r satisfies every set field.
func (s Selector) Match(r *linelist.Record) bool {
	if s.Region != "" && r.Region != s.Region {
		return false
	}
	if s.Municipality != "" && r.Municipality != s.Municipality {
		return false
	}
	return true
}

// Select returns the records matching sel. A zero selector returns records
// unchanged.
func Select(records []*linelist.Record, sel Selector) []*linelist.Record {
	if sel.IsZero() {
		return records
	}
	out := make([]*linelist.Record, 0, len(records)/4)
	for _, r := range records {
		if sel.Match(r) {
			out = append(out, r)
		}
	}
	return out
}
