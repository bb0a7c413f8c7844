package rt

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/okian/rtmonitor/internal/domain/linelist"
)

// Values is a float series whose JSON form writes NaN and Inf as null.
type Values []float64

// MarshalJSON implements json.Marshaler.
func (v Values) MarshalJSON() ([]byte, error) {
	if v == nil {
		return []byte("[]"), nil
	}
	buf := make([]byte, 0, 8*len(v)+2)
	buf = append(buf, '[')
	for i, x := range v {
		if i > 0 {
			buf = append(buf, ',')
		}
		if math.IsNaN(x) || math.IsInf(x, 0) {
			buf = append(buf, "null"...)
			continue
		}
		buf = strconv.AppendFloat(buf, x, 'g', -1, 64)
	}
	return append(buf, ']'), nil
}

// UnmarshalJSON reads null back as NaN.
func (v *Values) UnmarshalJSON(b []byte) error {
	var raw []*float64
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(Values, len(raw))
	for i, p := range raw {
		if p == nil {
			out[i] = math.NaN()
			continue
		}
		out[i] = *p
	}
	*v = out
	return nil
}

// Defined counts the finite values.
func (v Values) Defined() int {
	n := 0
	for _, x := range v {
		if !math.IsNaN(x) && !math.IsInf(x, 0) {
			n++
		}
	}
	return n
}

// Aligned is a series indexed by the daily axis minus its first day, the
// alignment of every Rt series. It can only be built through NewAligned.
type Aligned struct {
	dates  []linelist.Date
	values Values
}

// NewAligned pairs values with axis[1:]. It fails unless
// len(values) == len(axis)-1.
func NewAligned(axis []linelist.Date, values []float64) (Aligned, error) {
	if len(axis) == 0 || len(values) != len(axis)-1 {
		return Aligned{}, fmt.Errorf("%w: %d values for %d axis days", ErrMisaligned, len(values), len(axis))
	}
	return Aligned{dates: axis[1:], values: Values(values)}, nil
}

// Len is the number of points.
func (a Aligned) Len() int { return len(a.values) }

// Dates returns the dates the values belong to.
func (a Aligned) Dates() []linelist.Date { return a.dates }

// Values returns the series values.
func (a Aligned) Values() Values { return a.values }

// At returns the value at i.
func (a Aligned) At(i int) float64 { return a.values[i] }

type alignedJSON struct {
	Dates  []linelist.Date `json:"dates"`
	Values Values          `json:"values"`
}

// MarshalJSON writes {"dates": [...], "values": [...]}.
func (a Aligned) MarshalJSON() ([]byte, error) {
	dates := a.dates
	if dates == nil {
		dates = []linelist.Date{}
	}
	return json.Marshal(alignedJSON{Dates: dates, Values: a.values})
}
