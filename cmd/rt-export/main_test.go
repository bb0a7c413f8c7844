package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/rtmonitor/internal/adapters/source"
	"github.com/okian/rtmonitor/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

const casesCSV = "ID de caso,Departamento,Municipio,Atención,Tipo,fis,Fecha recuperado\n" +
	"1,Antioquia,Medellín,Recuperado,Relacionado,1/3/2020,6/3/2020\n" +
	"2,Antioquia,Medellín,Recuperado,Relacionado,1/3/2020,7/3/2020\n" +
	"3,Antioquia,Medellín,Recuperado,Relacionado,2/3/2020,6/3/2020\n" +
	"4,Antioquia,Medellín,Recuperado,Relacionado,3/3/2020,8/3/2020\n" +
	"5,Antioquia,Medellín,Recuperado,Relacionado,3/3/2020,10/3/2020\n"

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

func TestParseFlags(t *testing.T) {
	convey.Convey("Given command lines", t, func() {
		convey.Convey("Then a source is required", func() {
			_, err := parseFlags([]string{"-region", "Antioquia"})
			convey.So(errors.Is(err, errUsage), convey.ShouldBeTrue)
		})

		convey.Convey("Then an unknown format is rejected", func() {
			_, err := parseFlags([]string{"-source", "cases.csv", "-format", "xlsx"})
			convey.So(errors.Is(err, errUsage), convey.ShouldBeTrue)
		})

		convey.Convey("Then -help is reported as such", func() {
			_, err := parseFlags([]string{"-help"})
			convey.So(errors.Is(err, flag.ErrHelp), convey.ShouldBeTrue)
		})

		convey.Convey("Then values are parsed with defaults", func() {
			o, err := parseFlags([]string{"-source", "cases.csv", "-region", "Antioquia"})
			convey.So(err, convey.ShouldBeNil)
			convey.So(o.region, convey.ShouldEqual, "Antioquia")
			convey.So(o.format, convey.ShouldEqual, "tsv")
			convey.So(o.precision, convey.ShouldEqual, 6)
			convey.So(o.out, convey.ShouldEqual, ".")
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given a line list file", t, func() {
		dir := t.TempDir()
		path := filepath.Join(dir, "cases.csv")
		convey.So(os.WriteFile(path, []byte(casesCSV), 0o600), convey.ShouldBeNil)
		out := filepath.Join(dir, "out")

		convey.Convey("When a region is exported", func() {
			o := options{source: path, region: "antioquia", out: out, format: "tsv", precision: 6, lang: "en", milestones: "2020-03-05"}
			paths, err := run(context.Background(), o, logger.Nop())

			convey.Convey("Then every table is written", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(paths, convey.ShouldHaveLength, 4)
				for _, p := range paths {
					_, err := os.Stat(p)
					convey.So(err, convey.ShouldBeNil)
				}
			})
		})

		convey.Convey("When an unknown region is exported as CSV", func() {
			o := options{source: path, region: "Amazonas", out: out, format: "csv", precision: 2}
			paths, err := run(context.Background(), o, logger.Nop())

			convey.Convey("Then only the summary and daily tables exist", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(paths, convey.ShouldHaveLength, 2)
				convey.So(paths[0], convey.ShouldEndWith, ".csv")
			})
		})

		convey.Convey("When a milestone is malformed", func() {
			o := options{source: path, out: out, format: "tsv", milestones: "March 5"}
			_, err := run(context.Background(), o, logger.Nop())

			convey.Convey("Then the export fails", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})

	convey.Convey("Given a line list served over HTTP", t, func() {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/csv")
			_, _ = w.Write([]byte(casesCSV))
		}))
		defer srv.Close()

		convey.Convey("Then the URL is fetched", func() {
			o := options{source: srv.URL + "/cases.csv", region: "Antioquia", out: t.TempDir(), format: "tsv", precision: 6}
			paths, err := run(context.Background(), o, logger.Nop())
			convey.So(err, convey.ShouldBeNil)
			convey.So(paths, convey.ShouldHaveLength, 4)
		})
	})

	convey.Convey("Given a missing file", t, func() {
		o := options{source: filepath.Join(t.TempDir(), "absent.csv"), out: t.TempDir(), format: "tsv"}

		convey.Convey("Then the fetch error is returned", func() {
			_, err := run(context.Background(), o, logger.Nop())
			convey.So(errors.Is(err, source.ErrFetch), convey.ShouldBeTrue)
		})
	})
}
