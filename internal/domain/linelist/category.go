package linelist

import (
	"encoding/json"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Missing is the label given to absent categorical values.
const Missing = "-"

// Titler title-cases categorical labels the same way for records and
// queries. A Titler is not safe for concurrent use.
type Titler struct {
	c cases.Caser
}

// NewTitler returns a Spanish title caser.
func NewTitler() *Titler {
	return &Titler{c: cases.Title(language.Spanish)}
}

// Label trims and title-cases s; blank input becomes Missing. A letter
// following a period starts a new word, so abbreviations such as "D.C."
// keep their capitals.
func (t *Titler) Label(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if s == "" {
		return Missing
	}
	s = t.c.String(s)
	if !strings.Contains(s, ".") {
		return s
	}
	out := []rune(s)
	for i := 1; i < len(out); i++ {
		if out[i-1] == '.' {
			out[i] = unicode.ToUpper(out[i])
		}
	}
	return string(out)
}

// Title is a convenience for one-off labels; it allocates a caser per call.
func Title(s string) string {
	return NewTitler().Label(s)
}

// CareStatus is where a case is being attended or how it ended.
type CareStatus int

const (
	CareUnknown CareStatus = iota
	CareHome
	CareHospital
	CareICU
	CareRecovered
	CareDeceased
)

var careNames = map[CareStatus]string{
	CareUnknown:   "unknown",
	CareHome:      "home",
	CareHospital:  "hospital",
	CareICU:       "icu",
	CareRecovered: "recovered",
	CareDeceased:  "deceased",
}

// careLabels maps title-cased source labels to statuses.
var careLabels = map[string]CareStatus{
	"Casa":         CareHome,
	"Home":         CareHome,
	"Hospital":     CareHospital,
	"Hospital Uci": CareICU,
	"Uci":          CareICU,
	"Icu":          CareICU,
	"Hospital Icu": CareICU,
	"Recuperado":   CareRecovered,
	"Recovered":    CareRecovered,
	"Fallecido":    CareDeceased,
	"Deceased":     CareDeceased,
	"Dead":         CareDeceased,
}

// ParseCareStatus maps a title-cased label to a status; unmatched labels are CareUnknown.
func ParseCareStatus(label string) CareStatus {
	return careLabels[label]
}

// Active reports whether the case is still under care.
func (c CareStatus) Active() bool {
	return c == CareHome || c == CareHospital || c == CareICU
}

func (c CareStatus) String() string {
	if s, ok := careNames[c]; ok {
		return s
	}
	return careNames[CareUnknown]
}

// MarshalJSON encodes the status name.
func (c CareStatus) MarshalJSON() ([]byte, error) { return json.Marshal(c.String()) }

// Transmission is how a case was acquired.
type Transmission int

const (
	TransmissionUnknown Transmission = iota
	TransmissionImported
	TransmissionRelated
	TransmissionUnderStudy
)

var transmissionNames = map[Transmission]string{
	TransmissionUnknown:    "unknown",
	TransmissionImported:   "imported",
	TransmissionRelated:    "related",
	TransmissionUnderStudy: "under_study",
}

var transmissionLabels = map[string]Transmission{
	"Importado":   TransmissionImported,
	"Imported":    TransmissionImported,
	"Relacionado": TransmissionRelated,
	"Related":     TransmissionRelated,
	"Local":       TransmissionRelated,
	"En Estudio":  TransmissionUnderStudy,
	"Under Study": TransmissionUnderStudy,
}

// ParseTransmission maps a title-cased label to a transmission type.
func ParseTransmission(label string) Transmission {
	return transmissionLabels[label]
}

func (t Transmission) String() string {
	if s, ok := transmissionNames[t]; ok {
		return s
	}
	return transmissionNames[TransmissionUnknown]
}

// MarshalJSON encodes the transmission name.
func (t Transmission) MarshalJSON() ([]byte, error) { return json.Marshal(t.String()) }
