// Package linelist turns raw line-list case rows into typed, immutable
// case records.
package linelist

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Raw is one source row as strings; an empty string means absent.
type Raw struct {
	ID               string
	Notification     string
	MunicipalityCode string
	Municipality     string
	Region           string
	Care             string
	Age              string
	Sex              string
	Transmission     string
	HealthState      string
	OriginCountry    string
	Onset            string
	Death            string
	Diagnosis        string
	Recovery         string
	Report           string
}

// columns maps source column names to Raw fields: the Socrata API names of
// the national line list, the accented names of its CSV export, then plain
// English names.
var columns = map[string]func(*Raw) *string{
	"id_de_caso":            func(r *Raw) *string { return &r.ID },
	"id":                    func(r *Raw) *string { return &r.ID },
	"fecha_de_notificaci_n": func(r *Raw) *string { return &r.Notification },
	"fecha_de_notificación": func(r *Raw) *string { return &r.Notification },
	"notification":          func(r *Raw) *string { return &r.Notification },
	"codigo_divipola":       func(r *Raw) *string { return &r.MunicipalityCode },
	"municipality_code":     func(r *Raw) *string { return &r.MunicipalityCode },
	"ciudad_de_ubicaci_n":   func(r *Raw) *string { return &r.Municipality },
	"ciudad_de_ubicación":   func(r *Raw) *string { return &r.Municipality },
	"municipio":             func(r *Raw) *string { return &r.Municipality },
	"municipality":          func(r *Raw) *string { return &r.Municipality },
	"departamento":          func(r *Raw) *string { return &r.Region },
	"region":                func(r *Raw) *string { return &r.Region },
	"atenci_n":              func(r *Raw) *string { return &r.Care },
	"atencion":              func(r *Raw) *string { return &r.Care },
	"atención":              func(r *Raw) *string { return &r.Care },
	"care_status":           func(r *Raw) *string { return &r.Care },
	"edad":                  func(r *Raw) *string { return &r.Age },
	"age":                   func(r *Raw) *string { return &r.Age },
	"sexo":                  func(r *Raw) *string { return &r.Sex },
	"sex":                   func(r *Raw) *string { return &r.Sex },
	"tipo":                  func(r *Raw) *string { return &r.Transmission },
	"transmission_type":     func(r *Raw) *string { return &r.Transmission },
	"estado":                func(r *Raw) *string { return &r.HealthState },
	"health_state":          func(r *Raw) *string { return &r.HealthState },
	"pa_s_de_procedencia":   func(r *Raw) *string { return &r.OriginCountry },
	"origin_country":        func(r *Raw) *string { return &r.OriginCountry },
	"fis":                   func(r *Raw) *string { return &r.Onset },
	"symptom_onset":         func(r *Raw) *string { return &r.Onset },
	"fecha_de_muerte":       func(r *Raw) *string { return &r.Death },
	"death":                 func(r *Raw) *string { return &r.Death },
	"fecha_diagnostico":     func(r *Raw) *string { return &r.Diagnosis },
	"diagnosis":             func(r *Raw) *string { return &r.Diagnosis },
	"fecha_recuperado":      func(r *Raw) *string { return &r.Recovery },
	"recovery":              func(r *Raw) *string { return &r.Recovery },
	"fecha_reporte_web":     func(r *Raw) *string { return &r.Report },
	"report":                func(r *Raw) *string { return &r.Report },
}

// columnKey folds a header to the form used in columns: lower case with
// spaces as underscores, so "ID de caso" matches "id_de_caso".
func columnKey(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

// KnownColumn reports whether name maps to a Raw field.
func KnownColumn(name string) bool {
	_, ok := columns[columnKey(name)]
	return ok
}

// Set assigns value to the field behind column name. Unknown columns are
// ignored and reported as false.
func (r *Raw) Set(name, value string) bool {
	f, ok := columns[columnKey(name)]
	if !ok {
		return false
	}
	*f(r) = value
	return true
}

// RawFromMap builds a Raw from a column->value map.
func RawFromMap(m map[string]string) Raw {
	var r Raw
	for k, v := range m {
		r.Set(k, v)
	}
	return r
}

// Days is a day count that may be absent.
type Days struct {
	N     int
	Valid bool
}

// Record is a normalized case. Records are never mutated after Normalize.
type Record struct {
	ID                string       `json:"id"`
	Region            string       `json:"region"`
	Municipality      string       `json:"municipality"`
	MunicipalityCode  string       `json:"municipality_code"`
	Care              CareStatus   `json:"care_status"`
	CareLabel         string       `json:"care_label"`
	Transmission      Transmission `json:"transmission_type"`
	TransmissionLabel string       `json:"transmission_label"`
	Sex               string       `json:"sex"`
	HealthState       string       `json:"health_state"`
	OriginCountry     string       `json:"origin_country"`
	Age               int          `json:"age"`
	Onset             Date         `json:"symptom_onset"`
	Diagnosis         Date         `json:"diagnosis"`
	Recovery          Date         `json:"recovery"`
	Death             Date         `json:"death"`
	Notification      Date         `json:"notification"`
	Report            Date         `json:"report"`
	RecoveryDays      Days         `json:"-"`
}

// Imported reports whether the case was acquired abroad.
func (r *Record) Imported() bool { return r.Transmission == TransmissionImported }

// Date field names used in Report.Malformed.
const (
	FieldOnset        = "symptom_onset"
	FieldDiagnosis    = "diagnosis"
	FieldRecovery     = "recovery"
	FieldDeath        = "death"
	FieldNotification = "notification"
	FieldReport       = "report"
)

// Report counts data-quality findings of one Normalize call.
type Report struct {
	Records              int            `json:"records"`
	MissingIDs           int            `json:"missing_ids"`
	Malformed            map[string]int `json:"malformed_dates"`
	RecoveredWithoutDate int            `json:"recovered_without_date"`
}

// MalformedTotal sums malformed values over all date fields.
func (r Report) MalformedTotal() int {
	n := 0
	for _, v := range r.Malformed {
		n += v
	}
	return n
}

// Normalize converts raw rows into records. It never fails: unparseable
// dates become Unknown and are counted in the report.
func Normalize(raws []Raw) ([]*Record, Report) {
	rep := Report{Records: len(raws), Malformed: map[string]int{}}
	t := NewTitler()
	out := make([]*Record, 0, len(raws))

	date := func(field, raw string) Date {
		d, err := ParseDate(raw)
		if err != nil {
			rep.Malformed[field]++
		}
		return d
	}

	for i := range raws {
		raw := &raws[i]
		rec := &Record{
			ID:                strings.TrimSpace(raw.ID),
			Region:            t.Label(raw.Region),
			Municipality:      t.Label(raw.Municipality),
			MunicipalityCode:  strings.TrimSpace(raw.MunicipalityCode),
			CareLabel:         t.Label(raw.Care),
			TransmissionLabel: t.Label(raw.Transmission),
			Sex:               t.Label(raw.Sex),
			HealthState:       t.Label(raw.HealthState),
			OriginCountry:     t.Label(raw.OriginCountry),
			Age:               parseAge(raw.Age),
			Onset:             date(FieldOnset, raw.Onset),
			Diagnosis:         date(FieldDiagnosis, raw.Diagnosis),
			Recovery:          date(FieldRecovery, raw.Recovery),
			Death:             date(FieldDeath, raw.Death),
			Notification:      date(FieldNotification, raw.Notification),
			Report:            date(FieldReport, raw.Report),
		}
		if rec.ID == "" {
			rec.ID = uuid.NewString()
			rep.MissingIDs++
		}
		rec.Care = ParseCareStatus(rec.CareLabel)
		rec.Transmission = ParseTransmission(rec.TransmissionLabel)
		if rec.Onset.Known() && rec.Recovery.Known() {
			rec.RecoveryDays = Days{N: rec.Recovery.Sub(rec.Onset), Valid: true}
		}
		if rec.Care == CareRecovered && !rec.Recovery.Known() {
			rep.RecoveredWithoutDate++
		}
		out = append(out, rec)
	}
	return out, rep
}

func parseAge(s string) int {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil && n >= 0 {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 {
		return int(f)
	}
	return -1
}
