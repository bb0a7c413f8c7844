package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Environment variable names.
const (
	EnvPrefix = "RT_"
	EnvFile   = "RT_CONFIG"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New)
//  2. file (YAML) if RT_CONFIG is set
//  3. env (prefix RT_)
func Load() (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(EnvFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	// RT_SOURCE_URL -> source_url; keys stay flat to match the koanf tags.
	envProvider := env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, strings.ToLower(EnvPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}
	// RT_CONFIG itself is not a config key.
	k.Delete("config")

	cfg := *base
	// Lists replace the defaults instead of merging element-wise.
	if k.Exists("milestones") {
		cfg.Milestones = nil
	}
	if k.Exists("smoothing_kernel") {
		cfg.SmoothingKernel = nil
	}
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks field ranges and cross-field requirements.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return invalid("addr", "must not be empty")
	}
	switch c.Source {
	case SourceHTTP:
		if c.SourceURL == "" {
			return invalid("source_url", "required for source %q", c.Source)
		}
	case SourceFile:
		if c.SourcePath == "" {
			return invalid("source_path", "required for source %q", c.Source)
		}
	case SourceMongo:
		if c.MongoURI == "" || c.MongoDatabase == "" || c.MongoCollection == "" {
			return invalid("mongo_uri", "mongo_uri, mongo_database and mongo_collection are required for source %q", c.Source)
		}
	default:
		return invalid("source", "unknown source %q", c.Source)
	}
	if c.SourceLimit < 0 {
		return invalid("source_limit", "must be >= 0")
	}
	if c.FetchTimeout <= 0 {
		return invalid("fetch_timeout", "must be positive")
	}
	if c.RefreshInterval < 0 {
		return invalid("refresh_interval", "must be >= 0")
	}
	if len(c.SmoothingKernel) == 0 {
		return invalid("smoothing_kernel", "must not be empty")
	}
	if c.SmoothingMinLength < 0 {
		return invalid("smoothing_min_length", "must be >= 0")
	}
	switch c.NonPositivePolicy {
	case PolicyNaN:
	case PolicyFloor:
		if c.ActiveFloor <= 0 {
			return invalid("active_floor", "must be positive under the floor policy")
		}
	default:
		return invalid("nonpositive_policy", "unknown policy %q", c.NonPositivePolicy)
	}
	switch c.Language {
	case "en", "es":
	default:
		return invalid("language", "unsupported language %q", c.Language)
	}
	if _, err := c.MilestoneDates(); err != nil {
		return err
	}
	return nil
}

func invalid(key, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidConfig, key, fmt.Sprintf(format, args...))
}
