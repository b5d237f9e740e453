package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const (
	AppName           = "suffixguard"
	DefaultConfigPath = "/etc/suffixguard/config.yaml"
	PublicSuffixURL   = "https://publicsuffix.org/list/public_suffix_list.dat"
)

type Config struct {
	App      AppConfig      `yaml:"app"`
	Lists    ListsConfig    `yaml:"lists"`
	Lookup   LookupConfig   `yaml:"lookup"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Network  NetworkConfig  `yaml:"network"`
}

type AppConfig struct {
	UpdateInterval int    `yaml:"update_interval_hours"`
	LogLevel       string `yaml:"log_level"`
	DBPath         string `yaml:"db_path"`
}

type ListsConfig struct {
	Sources        []SourceConfig `yaml:"sources"`
	IncludePrivate bool           `yaml:"include_private"`
}

type LookupConfig struct {
	AdditionalParts int `yaml:"additional_parts"`
	CacheSize       int `yaml:"cache_size"`
}

type AnalysisConfig struct {
	IgnoreHosts    []string `yaml:"ignore_hosts"` // glob patterns
	TimeoutSeconds int      `yaml:"timeout_seconds"`
	MaxConcurrency int      `yaml:"max_concurrency"`
}

type NetworkConfig struct {
	QueueNum  int `yaml:"queue_num"`
	QueueSize int `yaml:"queue_size"`
}

// SourceConfig describes where a ruleset is fetched from. URL may be http(s),
// file:// or a plain filesystem path.
type SourceConfig struct {
	Name         string `yaml:"name"`
	URL          string `yaml:"url"`
	Format       string `yaml:"format"`
	TargetColumn string `yaml:"target_column"`
}

// Default returns the configuration used when no file is found.
func Default() *Config {
	return &Config{
		App: AppConfig{
			UpdateInterval: 24,
			LogLevel:       "info",
			DBPath:         DefaultDBPath(),
		},
		Lists: ListsConfig{
			Sources: []SourceConfig{
				{Name: "publicsuffix", URL: PublicSuffixURL, Format: "dat"},
			},
			IncludePrivate: true,
		},
		Lookup: LookupConfig{
			AdditionalParts: 1,
			CacheSize:       4096,
		},
		Analysis: AnalysisConfig{
			TimeoutSeconds: 10,
			MaxConcurrency: 4,
		},
		Network: NetworkConfig{
			QueueNum:  0,
			QueueSize: 0xFF,
		},
	}
}

// DefaultDBPath places the ruleset database under the XDG data directory.
func DefaultDBPath() string {
	return filepath.Join(xdg.DataHome, AppName, "rules.db")
}

// UserConfigPath is where `init` writes and where Load looks after the
// working directory.
func UserConfigPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// Load reads the config at path, or searches the usual locations when path
// is empty. Built-in defaults are used if nothing is found.
func Load(path string) (*Config, error) {
	if path != "" {
		return parseConfigFile(path)
	}

	searchPaths := []string{
		"configs/config.yaml",
		"./config.yaml",
		UserConfigPath(),
		DefaultConfigPath,
	}

	for _, p := range searchPaths {
		if _, err := os.Stat(p); err == nil {
			log.Debug().Str("path", p).Msg("loading config")
			return parseConfigFile(p)
		}
	}

	log.Debug().Msg("no config file found, using defaults")
	return Default(), nil
}

func parseConfigFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening config %s: %w", path, err)
	}
	defer f.Close()

	// Decode over the defaults so omitted keys keep sensible values.
	cfg := Default()
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if len(c.Lists.Sources) == 0 {
		return fmt.Errorf("lists.sources cannot be empty")
	}

	seen := make(map[string]bool)
	for i, src := range c.Lists.Sources {
		if src.Name == "" {
			return fmt.Errorf("lists.sources[%d]: name is required", i)
		}
		if src.URL == "" {
			return fmt.Errorf("lists.sources[%d] (%s): url is required", i, src.Name)
		}
		if seen[src.Name] {
			return fmt.Errorf("lists.sources[%d]: duplicate name %q", i, src.Name)
		}
		seen[src.Name] = true

		switch src.Format {
		case "", "dat", "text", "json":
		case "csv":
			if src.TargetColumn == "" {
				return fmt.Errorf("lists.sources[%d] (%s): csv format needs target_column", i, src.Name)
			}
		default:
			return fmt.Errorf("lists.sources[%d] (%s): unknown format %q", i, src.Name, src.Format)
		}
	}

	if c.Lookup.AdditionalParts < 0 {
		return fmt.Errorf("lookup.additional_parts must be >= 0, got %d", c.Lookup.AdditionalParts)
	}
	if c.Lookup.CacheSize < 0 {
		return fmt.Errorf("lookup.cache_size must be >= 0, got %d", c.Lookup.CacheSize)
	}
	if c.Analysis.MaxConcurrency < 1 {
		return fmt.Errorf("analysis.max_concurrency must be >= 1, got %d", c.Analysis.MaxConcurrency)
	}
	if c.App.DBPath == "" {
		return fmt.Errorf("app.db_path cannot be empty")
	}

	return nil
}

const defaultConfig = `# suffixguard configuration

app:
  log_level: info
  update_interval_hours: 24
  # db_path: ~/.local/share/suffixguard/rules.db

lists:
  # Rules from later sources override earlier ones on duplicate keys.
  sources:
    - name: publicsuffix
      url: https://publicsuffix.org/list/public_suffix_list.dat
      format: dat
  # Set to false to keep only the ICANN section of the list.
  include_private: true

lookup:
  additional_parts: 1
  cache_size: 4096

analysis:
  ignore_hosts:
    - "localhost"
    - "*.local"
  timeout_seconds: 10
  max_concurrency: 4

network:
  queue_num: 0
  queue_size: 255
`

// WriteDefault writes the default config to path, refusing to overwrite.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists at %s", path)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	if err := os.WriteFile(path, []byte(defaultConfig), 0644); err != nil {
		return fmt.Errorf("failed to create file %s: %w", path, err)
	}
	return nil
}
