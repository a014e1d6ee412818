package main

import (
	"fmt"
	"os"

	"github.com/ersonp/roster-core/internal/application/handlers"
	"github.com/ersonp/roster-core/internal/domain/ports"
	"github.com/ersonp/roster-core/internal/domain/services"
	"github.com/ersonp/roster-core/internal/infrastructure/config"
	"github.com/ersonp/roster-core/internal/infrastructure/logger"
	"github.com/ersonp/roster-core/internal/infrastructure/parsers"
	"github.com/ersonp/roster-core/internal/infrastructure/relationaldb/sqlite"
)

// Deps holds high-level dependencies for commands.
type Deps struct {
	Config        *config.Config
	ImportHandler *handlers.ImportHandler
}

// loadConfig reads the project config, or the defaults when roster init was
// never run, and applies the global logging flags.
func loadConfig() (*config.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting current directory: %w", err)
	}

	cfg, err := config.LoadOrDefault(cwd)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if globalLogJSON {
		cfg.Logging.JSON = true
	}
	if globalLogLevel != "" {
		cfg.Logging.Level = globalLogLevel
	}

	if err := logger.Initialize(logger.Options{
		JSON:  cfg.Logging.JSON,
		Level: cfg.Logging.Level,
		File:  cfg.Logging.File,
	}); err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	return cfg, nil
}

// withDeps loads config and builds dependencies, then calls the provided function.
// dbPath overrides the configured SQLite path; an empty path after the override
// means nothing is loaded into a database. It handles cleanup automatically.
func withDeps(dbPath string, fn func(*Deps) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if dbPath != "" {
		cfg.SQLite.Path = dbPath
	}

	if cfg.SQLite.Path == "" {
		return fn(&Deps{Config: cfg, ImportHandler: newImportHandler(cfg, nil)})
	}

	repo, err := sqlite.NewRepository(cfg.SQLite)
	if err != nil {
		return fmt.Errorf("creating sqlite repository: %w", err)
	}
	defer repo.Close()

	return fn(&Deps{Config: cfg, ImportHandler: newImportHandler(cfg, repo)})
}

// withPreviewHandler provides an ImportHandler that never opens a database.
func withPreviewHandler(fn func(*handlers.ImportHandler) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return fn(newImportHandler(cfg, nil))
}

func newImportHandler(cfg *config.Config, loader ports.Loader) *handlers.ImportHandler {
	service := services.NewImportService(importOptions(cfg))
	return handlers.NewImportHandler(service, loader, parserOptions(cfg))
}

// importOptions maps the config onto the pipeline options.
func importOptions(cfg *config.Config) services.ImportOptions {
	opts := services.ImportOptions{
		Normalizer: services.NormalizerOptions{
			Delimiters: cfg.Groups.Delimiters,
			MinYear:    cfg.Groups.MinYear,
			MaxYear:    cfg.Groups.MaxYear,
		},
		Columns: cfg.Source.Columns,
		IDOrder: services.IDOrder(cfg.Groups.IDOrder),
	}
	if len(cfg.Groups.Categories) > 0 {
		opts.Categories = cfg.Groups.Categories
	}
	return opts
}

func parserOptions(cfg *config.Config) parsers.Options {
	return parsers.Options{
		PersonsSheet:   cfg.Source.PersonsSheet,
		AddressesSheet: cfg.Source.AddressesSheet,
		Delimiter:      cfg.Delimiter(),
		Encoding:       cfg.Source.Encoding,
	}
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
