// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"unicode/utf8"

	"gopkg.in/yaml.v3"

	"github.com/ersonp/roster-core/internal/domain/entities"
	"github.com/ersonp/roster-core/internal/infrastructure/logger"
)

const (
	// DefaultConfigDir is the directory name for roster configuration.
	DefaultConfigDir = ".roster"
	// DefaultConfigFile is the default config file name.
	DefaultConfigFile = "config.yaml"
)

// Group identifier assignment orders.
const (
	IDOrderFirstSeen = "first_seen"
	IDOrderSorted    = "sorted"
)

// Config holds static configuration (read-only after init).
type Config struct {
	Source  SourceConfig  `yaml:"source"`
	Groups  GroupsConfig  `yaml:"groups"`
	Output  OutputConfig  `yaml:"output"`
	SQLite  SQLiteConfig  `yaml:"sqlite,omitempty"`
	Logging LoggingConfig `yaml:"logging"`
}

// SourceConfig describes how source files are read.
type SourceConfig struct {
	PersonsSheet   string `yaml:"persons_sheet"`
	AddressesSheet string `yaml:"addresses_sheet"`
	// CSVDelimiter is a single character; empty means detect from the header line.
	CSVDelimiter string `yaml:"csv_delimiter,omitempty"`
	// Encoding is auto, utf-8, windows-1250 or iso-8859-2.
	Encoding string `yaml:"encoding"`
	// Columns overrides the source column aliases of a field, keyed by field name.
	Columns map[string][]string `yaml:"columns,omitempty"`
}

// GroupsConfig controls group extraction.
type GroupsConfig struct {
	Delimiters string                  `yaml:"delimiters"`
	MinYear    int                     `yaml:"min_year"`
	MaxYear    int                     `yaml:"max_year"`
	IDOrder    string                  `yaml:"id_order"`
	Categories []entities.CategoryRule `yaml:"categories"`
}

// OutputConfig controls the output writers.
type OutputConfig struct {
	Dir     string   `yaml:"dir"`
	Formats []string `yaml:"formats"`
}

// SQLiteConfig holds configuration for the SQLite loader.
type SQLiteConfig struct {
	// Path is the file path to the SQLite database. Empty disables loading.
	Path string `yaml:"path,omitempty"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	JSON  bool   `yaml:"json"`
	Level string `yaml:"level"`
	File  string `yaml:"file,omitempty"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Source: SourceConfig{
			PersonsSheet:   "persons",
			AddressesSheet: "addresses",
			Encoding:       "auto",
		},
		Groups: GroupsConfig{
			Delimiters: ",;|",
			MinYear:    1900,
			MaxYear:    2100,
			IDOrder:    IDOrderFirstSeen,
			Categories: slices.Clone(entities.DefaultCategoryRules),
		},
		Output: OutputConfig{
			Dir:     "output",
			Formats: []string{"json", "csv"},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from the .roster directory in the given path.
func Load(basePath string) (*Config, error) {
	configFile := ConfigFilePath(basePath)

	data, err := os.ReadFile(configFile)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("config file not found: %s (run 'roster init' first)", configFile)
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Start with defaults
	cfg := Default()

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", configFile, err)
	}

	return cfg, nil
}

// LoadOrDefault loads the config when one exists and falls back to defaults otherwise.
func LoadOrDefault(basePath string) (*Config, error) {
	if !Exists(basePath) {
		cfg := Default()
		cfg.applyEnvOverrides()
		return cfg, cfg.Validate()
	}
	return Load(basePath)
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if path := os.Getenv("ROSTER_SQLITE_PATH"); path != "" {
		c.SQLite.Path = path
	}
	if dir := os.Getenv("ROSTER_OUTPUT_DIR"); dir != "" {
		c.Output.Dir = dir
	}
	if level := os.Getenv("ROSTER_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// Validate checks the config for values the import pipeline cannot use.
func (c *Config) Validate() error {
	if utf8.RuneCountInString(c.Source.CSVDelimiter) > 1 {
		return fmt.Errorf("source.csv_delimiter must be a single character, got %q", c.Source.CSVDelimiter)
	}
	switch c.Source.Encoding {
	case "", "auto", "utf-8", "utf8", "windows-1250", "cp1250", "iso-8859-2", "latin2":
	default:
		return fmt.Errorf("source.encoding: unsupported encoding %q", c.Source.Encoding)
	}

	if c.Groups.Delimiters == "" {
		return fmt.Errorf("groups.delimiters must not be empty")
	}
	if c.Groups.MinYear > c.Groups.MaxYear {
		return fmt.Errorf("groups.min_year (%d) is after groups.max_year (%d)", c.Groups.MinYear, c.Groups.MaxYear)
	}
	if c.Groups.IDOrder != IDOrderFirstSeen && c.Groups.IDOrder != IDOrderSorted {
		return fmt.Errorf("groups.id_order must be %q or %q, got %q", IDOrderFirstSeen, IDOrderSorted, c.Groups.IDOrder)
	}
	for i, rule := range c.Groups.Categories {
		if rule.Category == "" {
			return fmt.Errorf("groups.categories[%d]: category is required", i)
		}
		if len(rule.Prefixes) == 0 {
			return fmt.Errorf("groups.categories[%d]: at least one prefix is required", i)
		}
	}

	for _, f := range c.Output.Formats {
		if f != "json" && f != "csv" {
			return fmt.Errorf("output.formats: unsupported format %q", f)
		}
	}

	if _, err := logger.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	return nil
}

// Delimiter returns the configured CSV delimiter, or zero for auto-detection.
func (c *Config) Delimiter() rune {
	r, _ := utf8.DecodeRuneInString(c.Source.CSVDelimiter)
	if r == utf8.RuneError {
		return 0
	}
	return r
}

// ConfigDir returns the path to the .roster config directory.
func ConfigDir(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir)
}

// ConfigFilePath returns the path to the config file.
func ConfigFilePath(basePath string) string {
	return filepath.Join(basePath, DefaultConfigDir, DefaultConfigFile)
}

// Exists checks if a roster config exists in the given path.
func Exists(basePath string) bool {
	_, err := os.Stat(ConfigFilePath(basePath))
	return err == nil
}
