// Package config provides configuration loading for the extraction engine
// and the loaders that turn rule, taxonomy and dictionary files into
// components.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/semrel/pkg/semrel/generalize"
	"github.com/cognicore/semrel/pkg/semrel/interpret"
	"github.com/cognicore/semrel/pkg/semrel/internalerr"
	"github.com/cognicore/semrel/pkg/semrel/ontology"
	"github.com/cognicore/semrel/pkg/semrel/rules"
	"github.com/cognicore/semrel/pkg/semrel/unify"
)

// Oracle backends.
const (
	OracleTaxonomy = "taxonomy"
	OracleProlog   = "prolog"
)

// Config is the complete engine configuration.
type Config struct {
	Engine     EngineConfig     `yaml:"engine" mapstructure:"engine"`
	Generalize GeneralizeConfig `yaml:"generalize" mapstructure:"generalize"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Paths      PathsConfig      `yaml:"paths" mapstructure:"paths"`
}

// EngineConfig configures unification and rule interpretation.
type EngineConfig struct {
	// TypePredicates name the literals whose first argument is a class.
	TypePredicates []string `yaml:"type_predicates" mapstructure:"type_predicates"`
	// CoverageIgnore lists predicates left out of the rule pre-filter.
	CoverageIgnore []string `yaml:"coverage_ignore" mapstructure:"coverage_ignore"`
	// MaxSteps bounds one unification search.
	MaxSteps int `yaml:"max_steps" mapstructure:"max_steps"`
	// MaxPasses bounds the rewrite loop for one sentence.
	MaxPasses int `yaml:"max_passes" mapstructure:"max_passes"`
	// AllowDegenerate lets rules fire on an empty antecedent or fact base.
	AllowDegenerate bool `yaml:"allow_degenerate" mapstructure:"allow_degenerate"`
	// CacheSize is the per-engine subsumption cache size (0 disables it).
	CacheSize int `yaml:"cache_size" mapstructure:"cache_size"`
	// Oracle selects the ontology backend: taxonomy or prolog.
	Oracle string `yaml:"oracle" mapstructure:"oracle"`
}

// GeneralizeConfig configures anti-unification.
type GeneralizeConfig struct {
	IgnorePredicates []string `yaml:"ignore_predicates" mapstructure:"ignore_predicates"`
	ExcludeAncestors []string `yaml:"exclude_ancestors" mapstructure:"exclude_ancestors"`
	MaxSteps         int      `yaml:"max_steps" mapstructure:"max_steps"`
}

// StoreConfig configures persistence. An empty path keeps everything in
// memory.
type StoreConfig struct {
	Path     string        `yaml:"path" mapstructure:"path"`
	CacheTTL time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
}

// PathsConfig points at the input files.
type PathsConfig struct {
	Rules      string `yaml:"rules" mapstructure:"rules"`
	Taxonomy   string `yaml:"taxonomy" mapstructure:"taxonomy"`
	Dictionary string `yaml:"dictionary" mapstructure:"dictionary"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Engine: EngineConfig{
			TypePredicates: append([]string(nil), unify.DefaultTypePredicates...),
			CoverageIgnore: append([]string(nil), rules.DefaultCoverageIgnore...),
			MaxSteps:       unify.DefaultMaxSteps,
			MaxPasses:      interpret.DefaultMaxPasses,
			CacheSize:      ontology.DefaultCacheSize,
			Oracle:         OracleTaxonomy,
		},
		Generalize: GeneralizeConfig{
			IgnorePredicates: append([]string(nil), generalize.DefaultIgnorePredicates...),
			ExcludeAncestors: append([]string(nil), generalize.DefaultExcludeAncestors...),
			MaxSteps:         generalize.DefaultMaxSteps,
		},
		Store: StoreConfig{
			CacheTTL: 5 * time.Minute,
		},
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch {
	case len(c.Engine.TypePredicates) == 0:
		return invalid("engine.type_predicates must not be empty")
	case c.Engine.MaxSteps <= 0:
		return invalid("engine.max_steps must be positive")
	case c.Engine.MaxPasses <= 0:
		return invalid("engine.max_passes must be positive")
	case c.Engine.CacheSize < 0:
		return invalid("engine.cache_size must not be negative")
	case c.Engine.Oracle != OracleTaxonomy && c.Engine.Oracle != OracleProlog:
		return invalid(fmt.Sprintf("engine.oracle must be %q or %q, got %q", OracleTaxonomy, OracleProlog, c.Engine.Oracle))
	case c.Generalize.MaxSteps <= 0:
		return invalid("generalize.max_steps must be positive")
	case c.Store.CacheTTL < 0:
		return invalid("store.cache_ttl must not be negative")
	}
	return nil
}

func invalid(msg string) error {
	return fmt.Errorf("%s: %w", msg, internalerr.ErrInvalidConfig)
}

// LoadFromFile loads configuration from a YAML file on top of the defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}
	return cfg, nil
}

// SaveToFile writes the configuration as YAML.
func (c *Config) SaveToFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}
