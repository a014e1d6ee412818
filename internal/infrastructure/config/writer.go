package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultConfigYAML is the default configuration content.
const DefaultConfigYAML = `# Roster import configuration

source:
  persons_sheet: persons
  addresses_sheet: addresses
  # csv_delimiter: ";"   (detected from the header line when unset)
  encoding: auto
  # columns:
  #   email: [email, e_mail]

groups:
  delimiters: ",;|"
  min_year: 1900
  max_year: 2100
  # first_seen keeps source order; sorted assigns ids by name
  id_order: first_seen
  categories:
    - category: STUDIUM
      prefixes: [STUDIUM]
      description: Long-running study programmes
    - category: SEMINÁŘ
      prefixes: [SEMINÁŘ]
      description: One-off seminars and workshops
    - category: LEKTOŘI
      prefixes: [LEKTOŘI, LEKTOR]
      description: Teaching staff
    - category: KURZ
      prefixes: [KURZ]
      description: Courses
    - category: ČLENOVÉ
      prefixes: [ČLENOVÉ, ČLEN]
      description: Association membership
    - category: ADMIN
      prefixes: [ADMIN]
      description: Administrative groups

output:
  dir: output
  formats: [json, csv]

# sqlite:
#   path: .roster/roster.db   (or set ROSTER_SQLITE_PATH)

logging:
  json: false
  level: info
  # file: .roster/import.log
`

// WriteDefault creates the .roster directory and writes a default config file.
func WriteDefault(basePath string) error {
	configDir := ConfigDir(basePath)
	configFile := ConfigFilePath(basePath)

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if _, err := os.Stat(configFile); err == nil {
		return fmt.Errorf("config file already exists: %s", configFile)
	}

	if err := os.WriteFile(configFile, []byte(DefaultConfigYAML), 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// Write writes the given config to the config file.
func Write(basePath string, cfg *Config) error {
	if err := os.MkdirAll(ConfigDir(basePath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(ConfigFilePath(basePath), data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
