package linelist

import (
	"encoding/json"
	"strings"
	"time"
)

// Date is a calendar day without a time zone. The zero value is an unknown
// date; known dates are counted in days from 1970-01-01.
type Date struct {
	days  int32
	known bool
}

// Unknown is the missing date.
var Unknown Date

var epoch = time.Date(1970, time.January, 1, 0, 0, 0, 0, time.UTC)

const secondsPerDay = 24 * 60 * 60

// NewDate returns the known date y-m-d.
func NewDate(y int, m time.Month, d int) Date {
	return DateOf(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	secs := time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix()
	return Date{days: int32(secs / secondsPerDay), known: true}
}

// Known reports whether the date is present.
func (d Date) Known() bool { return d.known }

// Time returns midnight UTC of the date, or the zero time when unknown.
func (d Date) Time() time.Time {
	if !d.known {
		return time.Time{}
	}
	return epoch.AddDate(0, 0, int(d.days))
}

// Sub returns d-o in days. Both dates must be known.
func (d Date) Sub(o Date) int { return int(d.days - o.days) }

// AddDays returns the date n days later.
func (d Date) AddDays(n int) Date {
	if !d.known {
		return d
	}
	return Date{days: d.days + int32(n), known: true}
}

// Before orders known dates; unknown dates sort last.
func (d Date) Before(o Date) bool {
	switch {
	case !d.known:
		return false
	case !o.known:
		return true
	default:
		return d.days < o.days
	}
}

// Equal reports whether both dates are unknown or both are the same day.
func (d Date) Equal(o Date) bool { return d == o }

// String formats as YYYY-MM-DD, or "" when unknown.
func (d Date) String() string {
	if !d.known {
		return ""
	}
	return d.Time().Format(time.DateOnly)
}

// MarshalJSON encodes a known date as "YYYY-MM-DD" and an unknown one as null.
func (d Date) MarshalJSON() ([]byte, error) {
	if !d.known {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts null or anything ParseDate accepts.
func (d *Date) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*d = Unknown
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Layouts tried in order by ParseDate. Day-first forms follow the
// Colombian line-list convention.
var dateLayouts = []string{
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	time.DateOnly,
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2/1/2006",
	"2-1-2006",
}

// sentinels are placeholders meaning "no date" in the source data.
var sentinels = map[string]struct{}{
	"":             {},
	"asintomático": {},
	"asintomatico": {},
	"asymptomatic": {},
	"n/a":          {},
	"na":           {},
	"nat":          {},
	"nan":          {},
	"null":         {},
	"none":         {},
	"sin dato":     {},
}

// ParseDate converts a raw date value. Placeholders (blank, dashes,
// "Asintomático", "N/A", ...) yield Unknown with a nil error; any other value
// that matches no layout yields Unknown and ErrMalformedDate.
func ParseDate(raw string) (Date, error) {
	s := strings.TrimSpace(raw)
	if isPlaceholder(s) {
		return Unknown, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return DateOf(t), nil
		}
	}
	return Unknown, ErrMalformedDate
}

func isPlaceholder(s string) bool {
	if _, ok := sentinels[strings.ToLower(s)]; ok {
		return true
	}
	// "-", "--", "-   -"
	return strings.Trim(s, "- ") == "" && s != ""
}
