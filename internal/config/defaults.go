package config

import (
	"runtime"

	"github.com/leapstack-labs/sqltyper/pkg/elab"
)

// Default configuration values.
const (
	DefaultCatalog = "postgres"
	DefaultOutput  = OutputAuto
)

// Config file names, in lookup order.
var configFileNames = []string{"sqltyper.yaml", "sqltyper.yml"}

func defaults() map[string]any {
	return map[string]any{
		"catalog":   DefaultCatalog,
		"max_depth": elab.DefaultMaxDepth,
		"workers":   runtime.GOMAXPROCS(0),
		"output":    DefaultOutput,
		"verbose":   false,
	}
}
