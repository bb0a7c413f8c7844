package config_test

import (
	"errors"
	"testing"
	"time"

	"github.com/okian/rtmonitor/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with defaults", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.Source, convey.ShouldEqual, config.SourceHTTP)
			convey.So(cfg.SourceURL, convey.ShouldEqual, config.DefaultSourceURL)
			convey.So(cfg.Milestones, convey.ShouldResemble, []string{"2020-03-25", "2020-04-11", "2020-04-27"})
			convey.So(cfg.SmoothingKernel, convey.ShouldHaveLength, 3)
			convey.So(cfg.SmoothingMinLength, convey.ShouldEqual, 9)
			convey.So(cfg.NonPositivePolicy, convey.ShouldEqual, config.PolicyNaN)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then milestones parse in order", func() {
			dates, err := cfg.MilestoneDates()
			convey.So(err, convey.ShouldBeNil)
			convey.So(dates, convey.ShouldHaveLength, 3)
			convey.So(dates[0].Equal(time.Date(2020, 3, 25, 0, 0, 0, 0, time.UTC)), convey.ShouldBeTrue)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a default config", t, func() {
		cfg := config.New()

		cases := []struct {
			name   string
			mutate func(*config.Config)
		}{
			{"empty addr", func(c *config.Config) { c.Addr = "" }},
			{"unknown source", func(c *config.Config) { c.Source = "ftp" }},
			{"file source without path", func(c *config.Config) { c.Source = config.SourceFile }},
			{"mongo source without uri", func(c *config.Config) { c.Source = config.SourceMongo }},
			{"zero fetch timeout", func(c *config.Config) { c.FetchTimeout = 0 }},
			{"empty kernel", func(c *config.Config) { c.SmoothingKernel = nil }},
			{"unknown policy", func(c *config.Config) { c.NonPositivePolicy = "zero" }},
			{"floor without floor value", func(c *config.Config) { c.NonPositivePolicy = config.PolicyFloor; c.ActiveFloor = 0 }},
			{"unsupported language", func(c *config.Config) { c.Language = "fr" }},
			{"bad milestone", func(c *config.Config) { c.Milestones = []string{"25/03/2020"} }},
		}

		for _, tc := range cases {
			convey.Convey("When "+tc.name, func() {
				tc.mutate(cfg)

				convey.Convey("Then validation fails with ErrInvalidConfig", func() {
					err := cfg.Validate()
					convey.So(err, convey.ShouldNotBeNil)
					convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				})
			})
		}

		convey.Convey("When the file source has a path", func() {
			cfg.Source = config.SourceFile
			cfg.SourcePath = "cases.csv"

			convey.Convey("Then it validates", func() {
				convey.So(cfg.Validate(), convey.ShouldBeNil)
			})
		})
	})
}
