package filter

import (
	"github.com/okian/rtmonitor/internal/domain/linelist"
)

// Partition holds the classes of one selection. Slices share record
// pointers with the selection and may be empty, never nil.
type Partition struct {
	All            []*linelist.Record
	Imported       []*linelist.Record
	Local          []*linelist.Record
	Deceased       []*linelist.Record
	LocalDeceased  []*linelist.Record
	Recovered      []*linelist.Record
	LocalRecovered []*linelist.Record
	Active         []*linelist.Record
	Home           []*linelist.Record
	Hospital       []*linelist.Record
	ICU            []*linelist.Record
}

// Split partitions records in one pass. Cases with an unknown transmission
// type count as local.
func Split(records []*linelist.Record) Partition {
	p := Partition{
		All:            records,
		Imported:       []*linelist.Record{},
		Local:          []*linelist.Record{},
		Deceased:       []*linelist.Record{},
		LocalDeceased:  []*linelist.Record{},
		Recovered:      []*linelist.Record{},
		LocalRecovered: []*linelist.Record{},
		Active:         []*linelist.Record{},
		Home:           []*linelist.Record{},
		Hospital:       []*linelist.Record{},
		ICU:            []*linelist.Record{},
	}
	if p.All == nil {
		p.All = []*linelist.Record{}
	}
	for _, r := range records {
		local := !r.Imported()
		if local {
			p.Local = append(p.Local, r)
		} else {
			p.Imported = append(p.Imported, r)
		}
		switch r.Care {
		case linelist.CareDeceased:
			p.Deceased = append(p.Deceased, r)
			if local {
				p.LocalDeceased = append(p.LocalDeceased, r)
			}
		case linelist.CareRecovered:
			p.Recovered = append(p.Recovered, r)
			if local {
				p.LocalRecovered = append(p.LocalRecovered, r)
			}
		case linelist.CareHome:
			p.Active = append(p.Active, r)
			p.Home = append(p.Home, r)
		case linelist.CareHospital:
			p.Active = append(p.Active, r)
			p.Hospital = append(p.Hospital, r)
		case linelist.CareICU:
			p.Active = append(p.Active, r)
			p.ICU = append(p.ICU, r)
		}
	}
	return p
}

// Summary is the count table shown next to the Rt chart.
type Summary struct {
	Positives            int `json:"positives"`
	Imported             int `json:"imported"`
	Recovered            int `json:"recovered"`
	Deceased             int `json:"deceased"`
	Active               int `json:"active"`
	Home                 int `json:"home"`
	Hospital             int `json:"hospital"`
	ICU                  int `json:"icu"`
	RecoveredWithoutDate int `json:"recovered_without_date"`
}

// Summary counts the partition classes.
func (p Partition) Summary() Summary {
	s := Summary{
		Positives: len(p.All),
		Imported:  len(p.Imported),
		Recovered: len(p.Recovered),
		Deceased:  len(p.Deceased),
		Active:    len(p.Active),
		Home:      len(p.Home),
		Hospital:  len(p.Hospital),
		ICU:       len(p.ICU),
	}
	for _, r := range p.Recovered {
		if !r.Recovery.Known() {
			s.RecoveredWithoutDate++
		}
	}
	return s
}
