package source

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/hdtickets/ticketsearch/internal/model"
	"github.com/hdtickets/ticketsearch/internal/ratelimit"
)

// Config is the parsed sources file. It declares which providers are
// active, their credentials and rate thresholds, and the keyword
// aliases applied before any provider is queried.
type Config struct {
	Sources []AdapterConfig   `yaml:"sources"`
	Aliases map[string]string `yaml:"aliases"`
}

// AdapterConfig configures one provider entry.
type AdapterConfig struct {
	Name       string               `yaml:"name"`
	Enabled    *bool                `yaml:"enabled"` // nil = enabled
	APIKey     string               `yaml:"api_key"`
	Token      string               `yaml:"token"`
	RateLimits ratelimit.Thresholds `yaml:"rate_limits"`
	FieldMap   map[string]string    `yaml:"field_map"`
	Defaults   map[string]string    `yaml:"defaults"`
}

// IsEnabled reports whether the entry should be registered. Entries
// omit "enabled" far more often than they set it, so absent means on.
func (a AdapterConfig) IsEnabled() bool {
	return a.Enabled == nil || *a.Enabled
}

// LoadConfig reads and parses a sources YAML file. Environment
// references like ${TICKETMASTER_API_KEY} are expanded before parsing
// so credentials stay out of the file itself.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "source: read config %s", path)
	}

	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(raw))), &cfg); err != nil {
		return nil, eris.Wrapf(err, "source: parse config %s", path)
	}

	seen := make(map[string]bool, len(cfg.Sources))
	for _, sc := range cfg.Sources {
		if sc.Name == "" {
			return nil, eris.New("source: config entry missing name")
		}
		if seen[sc.Name] {
			return nil, eris.Errorf("source: duplicate config entry %q", sc.Name)
		}
		seen[sc.Name] = true
	}
	return &cfg, nil
}

// RateLimits returns the per-source thresholds keyed by source name,
// in the shape the rate limiter wants.
func (c *Config) RateLimits() map[string]ratelimit.Thresholds {
	out := make(map[string]ratelimit.Thresholds, len(c.Sources))
	for _, sc := range c.Sources {
		out[sc.Name] = sc.RateLimits
	}
	return out
}

// CanonicalKeyword resolves a keyword through the alias table,
// case-insensitively. Unknown keywords pass through unchanged.
func (c *Config) CanonicalKeyword(kw string) string {
	for alias, canonical := range c.Aliases {
		if strings.EqualFold(alias, kw) {
			return canonical
		}
	}
	return kw
}

// Canonicalize returns criteria with the keyword alias applied. The
// input map is never mutated.
func (c *Config) Canonicalize(crit model.Criteria) model.Criteria {
	kw := crit.Keyword()
	if kw == "" {
		return crit
	}
	canonical := c.CanonicalKeyword(kw)
	if canonical == kw {
		return crit
	}
	out := crit.Clone()
	out[model.CriteriaKeyword] = canonical
	return out
}
