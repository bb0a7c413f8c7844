// Package config defines service configuration and its loading.
//
// Conventions:
// - New builds a Config holding every default.
// - Load layers a YAML file and environment variables on top of New.
// - Validation failures wrap ErrInvalidConfig.
package config

import (
	"time"
)

// Source kinds accepted by the "source" key.
const (
	SourceHTTP  = "http"
	SourceFile  = "file"
	SourceMongo = "mongo"
)

// Non-positive active count policies.
const (
	PolicyNaN   = "nan"
	PolicyFloor = "floor"
)

// DefaultSourceURL is the public Colombian line list on datos.gov.co.
const DefaultSourceURL = "https://www.datos.gov.co/resource/gt2j-8ykr.json"

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Source selects where raw case records come from: http, file or mongo.
	Source string `koanf:"source"`

	// SourceURL is the JSON endpoint used by the http source.
	SourceURL string `koanf:"source_url"`

	// SourceLimit is sent as the Socrata $limit parameter; 0 omits it.
	SourceLimit int `koanf:"source_limit"`

	// SourcePath is a .json, .json.gz, .csv or .csv.gz file for the file source.
	SourcePath string `koanf:"source_path"`

	MongoURI        string `koanf:"mongo_uri"`
	MongoDatabase   string `koanf:"mongo_database"`
	MongoCollection string `koanf:"mongo_collection"`

	// FetchTimeout bounds a single ingestion.
	FetchTimeout time.Duration `koanf:"fetch_timeout"`

	// RefreshInterval re-ingests the source periodically; 0 disables it.
	RefreshInterval time.Duration `koanf:"refresh_interval"`

	// Milestones are the intervention dates (YYYY-MM-DD) to annotate.
	Milestones []string `koanf:"milestones"`

	// SmoothingKernel holds the FIR numerator coefficients.
	SmoothingKernel []float64 `koanf:"smoothing_kernel"`

	// SmoothingMinLength is the series length that must be exceeded before smoothing.
	SmoothingMinLength int `koanf:"smoothing_min_length"`

	// NonPositivePolicy is nan or floor.
	NonPositivePolicy string `koanf:"nonpositive_policy"`

	// ActiveFloor replaces non-positive active counts under the floor policy.
	ActiveFloor float64 `koanf:"active_floor"`

	// Language selects annotation text: en or es.
	Language string `koanf:"language"`
}

// New creates a Config holding the defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		LogFormat:          "text",
		Addr:               ":9080",
		Source:             SourceHTTP,
		SourceURL:          DefaultSourceURL,
		SourceLimit:        1_000_000,
		MongoDatabase:      "rtmonitor",
		MongoCollection:    "cases",
		FetchTimeout:       2 * time.Minute,
		RefreshInterval:    0,
		Milestones:         []string{"2020-03-25", "2020-04-11", "2020-04-27"},
		SmoothingKernel:    []float64{1.0 / 3, 1.0 / 3, 1.0 / 3},
		SmoothingMinLength: 9,
		NonPositivePolicy:  PolicyNaN,
		ActiveFloor:        0.5,
		Language:           "es",
	}
}

// MilestoneDates parses Milestones in order.
func (c *Config) MilestoneDates() ([]time.Time, error) {
	out := make([]time.Time, 0, len(c.Milestones))
	for _, m := range c.Milestones {
		t, err := time.Parse(time.DateOnly, m)
		if err != nil {
			return nil, invalid("milestones", "%q is not YYYY-MM-DD", m)
		}
		out = append(out, t)
	}
	return out, nil
}
