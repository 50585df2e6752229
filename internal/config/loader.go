package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes the environment variables read by Load.
const EnvPrefix = "SQLTYPER_"

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

// flags that are not configuration keys
var skipFlags = map[string]bool{"config": true, "watch": true}

// configExistsIn returns the config file in dir, or "".
func configExistsIn(dir string) string {
	for _, name := range configFileNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// FindConfigUpward searches upward from startDir for a config file.
// Returns empty string if not found within maxUpwardSearchLevels.
func FindConfigUpward(startDir string) string {
	dir := startDir
	for range maxUpwardSearchLevels {
		if f := configExistsIn(dir); f != "" {
			return f
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// Load loads configuration starting the config file search at the
// working directory.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return LoadFrom(cwd, cfgFile, flags)
}

// LoadFrom loads configuration from defaults, the config file (explicit or
// found upward from dir), SQLTYPER_* environment variables and the flags
// that were explicitly set, in increasing precedence. Paths from the config
// file are relative to the file's directory; paths from flags and the
// environment are relative to dir.
func LoadFrom(dir, cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	if cfgFile == "" {
		cfgFile = FindConfigUpward(dir)
	} else if !filepath.IsAbs(cfgFile) {
		cfgFile = filepath.Join(dir, cfgFile)
	}
	root := dir
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
		root = filepath.Dir(cfgFile)
	}
	fromFile := pathsOf(k)

	// 3. Environment: SQLTYPER_DATABASE_URL -> database_url
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags that were explicitly set
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, any) {
			if !f.Changed || skipFlags[f.Name] {
				return "", nil
			}
			return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			// SQLTYPER_SCHEMA=a.sql,b.sql
			DecodeHook:       mapstructure.StringToSliceHookFunc(","),
			Result:           &cfg,
			WeaklyTypedInput: true,
		},
	}); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.ProjectRoot = root
	cfg.File = cfgFile
	cfg.Output = strings.ToLower(cfg.Output)

	resolveAll(&cfg, fromFile, root, dir)
	cfg.DatabaseURL = os.ExpandEnv(cfg.DatabaseURL)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// pathSet records the path values that came from the config file.
type pathSet struct {
	schema     []string
	migrations string
	queries    []string
	cache      string
}

func pathsOf(k *koanf.Koanf) pathSet {
	return pathSet{
		schema:     k.Strings("schema"),
		migrations: k.String("migrations"),
		queries:    k.Strings("queries"),
		cache:      k.String("cache"),
	}
}

func resolveAll(cfg *Config, fromFile pathSet, root, dir string) {
	base := func(same bool) string {
		if same {
			return root
		}
		return dir
	}
	schemaBase := base(slices.Equal(cfg.Schema, fromFile.schema))
	for i, p := range cfg.Schema {
		cfg.Schema[i] = resolvePathRelativeTo(p, schemaBase)
	}
	queriesBase := base(slices.Equal(cfg.Queries, fromFile.queries))
	for i, p := range cfg.Queries {
		cfg.Queries[i] = resolvePathRelativeTo(p, queriesBase)
	}
	cfg.Migrations = resolvePathRelativeTo(cfg.Migrations, base(cfg.Migrations == fromFile.migrations))
	if cfg.Cache != ":memory:" {
		cfg.Cache = resolvePathRelativeTo(cfg.Cache, base(cfg.Cache == fromFile.cache))
	}
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
// Returns the path unchanged if it's empty or already absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
