// Package config reads the project settings file.
package config

import (
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/DeusData/groq-intel/internal/schema"
)

// FileName is the settings file looked up in the project root.
const FileName = ".groq-intel.yaml"

// DefaultSchemaPath is used when no schema path is configured.
const DefaultSchemaPath = "schema.json"

// Config holds user-overridable settings. Unset values fall back to defaults.
type Config struct {
	Schema SchemaConfig `yaml:"schema"`

	// Extensions maps extension ids to their enabled state.
	Extensions map[string]bool `yaml:"extensions"`

	dir string
}

// SchemaConfig holds schema loading settings.
type SchemaConfig struct {
	// Path to the schema JSON, relative to the project root.
	Path string `yaml:"path"`

	// CacheDir overrides where validation verdicts are stored.
	CacheDir string `yaml:"cache_dir"`

	Validation ValidationConfig `yaml:"validation"`
}

// ValidationConfig mirrors schema.ValidationConfig with optional values.
type ValidationConfig struct {
	Enabled          *bool `yaml:"enabled"`
	MaxDepth         *int  `yaml:"max_depth"`
	MaxTypes         *int  `yaml:"max_types"`
	MaxFieldsPerType *int  `yaml:"max_fields_per_type"`
	Cache            *bool `yaml:"cache"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{}
}

// Load reads .groq-intel.yaml from dir.
// Returns default config if the file is missing or invalid.
func Load(dir string) *Config {
	cfg := DefaultConfig()
	cfg.dir = dir

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		return cfg
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		cfg = DefaultConfig()
		cfg.dir = dir
	}
	return cfg
}

// EffectiveSchemaPath returns the schema path resolved against the project
// root.
func (c *Config) EffectiveSchemaPath() string {
	p := c.Schema.Path
	if p == "" {
		p = DefaultSchemaPath
	}
	if filepath.IsAbs(p) || c.dir == "" {
		return p
	}
	return filepath.Join(c.dir, p)
}

// EffectiveValidation returns the validation settings with defaults applied.
func (c *Config) EffectiveValidation() schema.ValidationConfig {
	v := c.Schema.Validation
	return schema.ConfigPatch{
		Enabled:          v.Enabled,
		MaxDepth:         v.MaxDepth,
		MaxTypes:         v.MaxTypes,
		MaxFieldsPerType: v.MaxFieldsPerType,
		CacheValidation:  v.Cache,
	}.Apply(schema.DefaultValidationConfig())
}

// EnabledExtensions returns the ids switched on, sorted. When the file does
// not mention extensions, defaults are returned. The result is never nil.
func (c *Config) EnabledExtensions(defaults []string) []string {
	if c.Extensions == nil {
		return append([]string{}, defaults...)
	}
	out := []string{}
	for id, on := range c.Extensions {
		if on {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}
