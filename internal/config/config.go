// Package config loads the engine's tunable defaults from YAML: the
// fallback result limit, whether the attribute indexer pre-filters
// candidates, the hop-range ceiling, and the log level. Grounded on the
// teacher's own cmd/server and cmd/cli flag handling, generalized to a
// loadable file the way the rest of the retrieved pack (e.g. the
// Fnuworsu-rdgDB front end) keeps engine knobs out of code.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config holds the engine defaults a deployment may override.
type Config struct {
	// DefaultLimit caps result rows when a query gives no LIMIT of its
	// own. Nil means unbounded.
	DefaultLimit *int `yaml:"default_limit"`
	// UseIndexer enables the attribute-indexer pre-filter pass before
	// enumeration. Defaults to true.
	UseIndexer bool `yaml:"use_indexer"`
	// MaxHopCap ceilings every variable-length edge's max hop count.
	// Clamped to [1,100]; 100 is the hard ceiling motif.Build itself
	// enforces, so this can only ever narrow it further.
	MaxHopCap int `yaml:"max_hop_cap"`
	// LogLevel is a logrus level name ("debug", "info", "warn", ...).
	LogLevel string `yaml:"log_level"`
}

// Default returns the engine's built-in defaults, used whenever no
// configuration file is given.
func Default() Config {
	return Config{
		UseIndexer: true,
		MaxHopCap:  100,
		LogLevel:   "info",
	}
}

// Load reads and validates a YAML configuration file, starting from
// Default() so an omitted field keeps its default rather than zeroing.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "reading config %q", path)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parsing config %q", path)
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	if c.MaxHopCap <= 0 || c.MaxHopCap > 100 {
		c.MaxHopCap = 100
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.DefaultLimit != nil && *c.DefaultLimit < 0 {
		c.DefaultLimit = nil
	}
}
