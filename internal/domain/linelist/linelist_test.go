package linelist_test

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/okian/rtmonitor/internal/domain/linelist"
	. "github.com/smartystreets/goconvey/convey"
)

func TestParseDate(t *testing.T) {
	Convey("Given raw date values", t, func() {
		jan15 := linelist.NewDate(2020, time.January, 15)

		Convey("When the value is a supported layout", func() {
			for _, raw := range []string{
				"2020-01-15T00:00:00.000",
				"2020-01-15T00:00:00",
				"2020-01-15T10:30:00Z",
				"2020-01-15 00:00:00",
				"2020-01-15",
				"15/01/2020 0:00:00",
				"15/1/2020",
				" 15/01/2020 ",
			} {
				d, err := linelist.ParseDate(raw)
				So(err, ShouldBeNil)
				So(d.Equal(jan15), ShouldBeTrue)
			}
		})

		Convey("When the value is a placeholder", func() {
			for _, raw := range []string{"", "   ", "-", "-   -", "--", "Asintomático", "asintomatico", "N/A", "NaT", "null"} {
				d, err := linelist.ParseDate(raw)

				So(err, ShouldBeNil)
				So(d.Known(), ShouldBeFalse)
			}
		})

		Convey("When the value is garbage", func() {
			for _, raw := range []string{"yesterday", "2020-13-45", "15.01.2020", "0"} {
				d, err := linelist.ParseDate(raw)

				So(errors.Is(err, linelist.ErrMalformedDate), ShouldBeTrue)
				So(d.Known(), ShouldBeFalse)
			}
		})
	})
}

func TestDate(t *testing.T) {
	Convey("Given calendar dates", t, func() {
		a := linelist.NewDate(2020, time.March, 1)
		b := linelist.NewDate(2020, time.February, 28)

		Convey("Then arithmetic crosses month and leap-day boundaries", func() {
			So(a.Sub(b), ShouldEqual, 2)
			So(b.AddDays(2).Equal(a), ShouldBeTrue)
			So(a.String(), ShouldEqual, "2020-03-01")
			So(a.Time().Equal(time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC)), ShouldBeTrue)
		})

		Convey("Then unknown dates sort after known ones", func() {
			So(b.Before(a), ShouldBeTrue)
			So(a.Before(linelist.Unknown), ShouldBeTrue)
			So(linelist.Unknown.Before(a), ShouldBeFalse)
			So(linelist.Unknown.String(), ShouldEqual, "")
		})

		Convey("Then JSON uses YYYY-MM-DD and null", func() {
			out, err := json.Marshal([]linelist.Date{a, linelist.Unknown})
			So(err, ShouldBeNil)
			So(string(out), ShouldEqual, `["2020-03-01",null]`)

			var back []linelist.Date
			So(json.Unmarshal(out, &back), ShouldBeNil)
			So(back[0].Equal(a), ShouldBeTrue)
			So(back[1].Known(), ShouldBeFalse)
		})
	})
}

func TestCategories(t *testing.T) {
	Convey("Given categorical labels", t, func() {
		Convey("Then title casing is idempotent and fills missing values", func() {
			So(linelist.Title("RECUPERADO"), ShouldEqual, "Recuperado")
			So(linelist.Title("hospital UCI"), ShouldEqual, "Hospital Uci")
			So(linelist.Title("  bogotá   d.c. "), ShouldEqual, linelist.Title(linelist.Title("Bogotá D.C.")))
			So(linelist.Title("BOGOTÁ D.C."), ShouldEqual, "Bogotá D.C.")
			So(linelist.Title("bogotá d.c."), ShouldEqual, "Bogotá D.C.")
			So(linelist.Title("Bogotá D.C."), ShouldEqual, "Bogotá D.C.")
			So(linelist.Title("cartagena de indias d.t. y c."), ShouldEqual, "Cartagena De Indias D.T. Y C.")
			So(linelist.Title(""), ShouldEqual, linelist.Missing)
			So(linelist.Title(linelist.Missing), ShouldEqual, linelist.Missing)
		})

		Convey("Then care labels map through the table", func() {
			So(linelist.ParseCareStatus("Casa"), ShouldEqual, linelist.CareHome)
			So(linelist.ParseCareStatus("Hospital Uci"), ShouldEqual, linelist.CareICU)
			So(linelist.ParseCareStatus("Fallecido"), ShouldEqual, linelist.CareDeceased)
			So(linelist.ParseCareStatus("N/A"), ShouldEqual, linelist.CareUnknown)
			So(linelist.CareICU.Active(), ShouldBeTrue)
			So(linelist.CareRecovered.Active(), ShouldBeFalse)
			So(linelist.CareICU.String(), ShouldEqual, "icu")
		})

		Convey("Then transmission labels map through the table", func() {
			So(linelist.ParseTransmission("Importado"), ShouldEqual, linelist.TransmissionImported)
			So(linelist.ParseTransmission("En Estudio"), ShouldEqual, linelist.TransmissionUnderStudy)
			So(linelist.ParseTransmission("-"), ShouldEqual, linelist.TransmissionUnknown)
			So(linelist.TransmissionUnderStudy.String(), ShouldEqual, "under_study")
		})
	})
}

func TestNormalize(t *testing.T) {
	Convey("Given raw rows keyed by Socrata column names", t, func() {
		raws := []linelist.Raw{
			linelist.RawFromMap(map[string]string{
				"id_de_caso":          "1",
				"departamento":        "ANTIOQUIA",
				"ciudad_de_ubicaci_n": "medellín",
				"atenci_n":            "recuperado",
				"tipo":                "Importado",
				"edad":                "34",
				"fis":                 "2020-03-01T00:00:00.000",
				"fecha_recuperado":    "2020-03-15T00:00:00.000",
				"unused_column":       "x",
			}),
			linelist.RawFromMap(map[string]string{
				"id_de_caso":       "2",
				"departamento":     "Antioquia",
				"atenci_n":         "Recuperado",
				"fis":              "Asintomático",
				"fecha_recuperado": "-   -",
			}),
			linelist.RawFromMap(map[string]string{
				"atenci_n":        "hospital uci",
				"fis":             "not a date",
				"fecha_de_muerte": "31/02/2020",
			}),
		}

		records, report := linelist.Normalize(raws)

		Convey("Then categorical fields are title-cased or the missing label", func() {
			So(records, ShouldHaveLength, 3)
			So(records[0].Region, ShouldEqual, "Antioquia")
			So(records[0].Municipality, ShouldEqual, "Medellín")
			So(records[1].Municipality, ShouldEqual, linelist.Missing)
			So(records[2].Region, ShouldEqual, linelist.Missing)
			So(records[0].Care, ShouldEqual, linelist.CareRecovered)
			So(records[2].Care, ShouldEqual, linelist.CareICU)
			So(records[0].Imported(), ShouldBeTrue)
			So(records[1].Imported(), ShouldBeFalse)
			So(records[0].Age, ShouldEqual, 34)
			So(records[1].Age, ShouldEqual, -1)
		})

		Convey("Then recovery duration exists only when both dates are known", func() {
			So(records[0].RecoveryDays, ShouldResemble, linelist.Days{N: 14, Valid: true})
			So(records[1].RecoveryDays.Valid, ShouldBeFalse)
			So(records[2].RecoveryDays.Valid, ShouldBeFalse)
		})

		Convey("Then the report counts data-quality findings", func() {
			want := linelist.Report{
				Records:              3,
				MissingIDs:           1,
				Malformed:            map[string]int{linelist.FieldOnset: 1, linelist.FieldDeath: 1},
				RecoveredWithoutDate: 1,
			}
			So(cmp.Diff(want, report), ShouldBeEmpty)
			So(report.MalformedTotal(), ShouldEqual, 2)
			So(records[2].ID, ShouldNotBeEmpty)
		})

		Convey("Then normalizing the same rows again is deterministic", func() {
			again, _ := linelist.Normalize(raws[:2])
			So(cmp.Diff(records[:2], again), ShouldBeEmpty)
		})
	})

	Convey("Given no rows", t, func() {
		records, report := linelist.Normalize(nil)

		Convey("Then the result is empty but well-formed", func() {
			So(records, ShouldBeEmpty)
			So(report.Records, ShouldEqual, 0)
			So(report.Malformed, ShouldNotBeNil)
		})
	})

	Convey("Given column names", t, func() {
		Convey("Then known columns match case-insensitively", func() {
			So(linelist.KnownColumn("FIS"), ShouldBeTrue)
			So(linelist.KnownColumn("fecha_reporte_web"), ShouldBeTrue)
			So(linelist.KnownColumn("color"), ShouldBeFalse)
		})
	})
}
