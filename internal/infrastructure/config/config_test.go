package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/ersonp/roster-core/internal/domain/entities"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "persons", cfg.Source.PersonsSheet)
	assert.Equal(t, "addresses", cfg.Source.AddressesSheet)
	assert.Equal(t, ",;|", cfg.Groups.Delimiters)
	assert.Equal(t, IDOrderFirstSeen, cfg.Groups.IDOrder)
	assert.Equal(t, entities.DefaultCategoryRules, cfg.Groups.Categories)
	assert.Equal(t, []string{"json", "csv"}, cfg.Output.Formats)
	assert.Empty(t, cfg.SQLite.Path)
	require.NoError(t, cfg.Validate())
}

func TestDefaultConfigYAML_MatchesDefault(t *testing.T) {
	var cfg Config
	require.NoError(t, yaml.Unmarshal([]byte(DefaultConfigYAML), &cfg))
	assert.Equal(t, Default(), &cfg)
}

func TestWriteDefaultAndLoad(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, WriteDefault(dir))
	assert.True(t, Exists(dir))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	err = WriteDefault(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestLoad_NotFound(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "roster init")
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(ConfigDir(dir), 0755))
	content := "groups:\n  id_order: sorted\nsource:\n  columns:\n    email: [e_mail]\n"
	require.NoError(t, os.WriteFile(ConfigFilePath(dir), []byte(content), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, IDOrderSorted, cfg.Groups.IDOrder)
	assert.Equal(t, 1900, cfg.Groups.MinYear)
	assert.Equal(t, []string{"e_mail"}, cfg.Source.Columns["email"])
	assert.Len(t, cfg.Groups.Categories, len(entities.DefaultCategoryRules))
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(ConfigDir(dir), 0755))
	require.NoError(t, os.WriteFile(ConfigFilePath(dir), []byte("groups:\n  id_order: random\n"), 0644))

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "id_order")
}

func TestLoadOrDefault_EnvOverrides(t *testing.T) {
	t.Setenv("ROSTER_SQLITE_PATH", "/tmp/roster.db")
	t.Setenv("ROSTER_OUTPUT_DIR", "out")
	t.Setenv("ROSTER_LOG_LEVEL", "debug")

	cfg, err := LoadOrDefault(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "/tmp/roster.db", cfg.SQLite.Path)
	assert.Equal(t, "out", cfg.Output.Dir)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestWrite_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := Default()
	cfg.SQLite.Path = filepath.Join(dir, "roster.db")
	cfg.Source.CSVDelimiter = ";"

	require.NoError(t, Write(dir, cfg))

	loaded, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
	assert.Equal(t, ';', loaded.Delimiter())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{
			name:   "multi-character delimiter",
			mutate: func(c *Config) { c.Source.CSVDelimiter = ";;" },
			errMsg: "csv_delimiter",
		},
		{
			name:   "unknown encoding",
			mutate: func(c *Config) { c.Source.Encoding = "ebcdic" },
			errMsg: "encoding",
		},
		{
			name:   "no group delimiters",
			mutate: func(c *Config) { c.Groups.Delimiters = "" },
			errMsg: "delimiters",
		},
		{
			name:   "inverted year range",
			mutate: func(c *Config) { c.Groups.MinYear = 2100; c.Groups.MaxYear = 1900 },
			errMsg: "min_year",
		},
		{
			name: "category without prefixes",
			mutate: func(c *Config) {
				c.Groups.Categories = []entities.CategoryRule{{Category: "X"}}
			},
			errMsg: "prefix",
		},
		{
			name:   "unknown output format",
			mutate: func(c *Config) { c.Output.Formats = []string{"xml"} },
			errMsg: "xml",
		},
		{
			name:   "unknown log level",
			mutate: func(c *Config) { c.Logging.Level = "loud" },
			errMsg: "logging.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestDelimiter_Auto(t *testing.T) {
	assert.Equal(t, rune(0), Default().Delimiter())
}
