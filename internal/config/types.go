// Package config loads sqltyper's configuration from defaults, a project
// file, the environment and command-line flags.
package config

import (
	"fmt"
	"slices"

	"github.com/leapstack-labs/sqltyper/pkg/catalog"
)

// Output modes.
const (
	OutputAuto = "auto"
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

// Config holds the settings shared by every command.
type Config struct {
	// Schema lists DDL files or directories folded into the schema in order.
	Schema []string `koanf:"schema"`
	// Migrations is a goose migration directory applied after Schema.
	Migrations string `koanf:"migrations"`
	// Queries lists the files or directories holding functions and queries.
	Queries []string `koanf:"queries"`
	// DatabaseURL, when set, is introspected before Schema and Migrations.
	DatabaseURL string `koanf:"database_url"`
	Catalog     string `koanf:"catalog"`
	MaxDepth    int    `koanf:"max_depth"`
	Workers     int    `koanf:"workers"`
	Output      string `koanf:"output"`
	// Cache is the signature cache path. Empty disables caching.
	Cache   string `koanf:"cache"`
	Verbose bool   `koanf:"verbose"`

	// ProjectRoot is the directory relative paths are resolved against.
	ProjectRoot string `koanf:"-"`
	// File is the config file that was loaded, if any.
	File string `koanf:"-"`
}

// Validate checks the values that cannot be repaired by defaults.
func (c *Config) Validate() error {
	if !slices.Contains([]string{OutputAuto, OutputText, OutputJSON, OutputYAML}, c.Output) {
		return fmt.Errorf("invalid output %q: must be one of auto, text, json, yaml", c.Output)
	}
	if c.MaxDepth <= 0 {
		return fmt.Errorf("max_depth must be positive, got %d", c.MaxDepth)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}
	if _, err := catalog.Lookup(c.Catalog); err != nil {
		return err
	}
	return nil
}
