// Package handlers contains application use case handlers.
package handlers

import (
	"context"
	"fmt"

	"github.com/ersonp/roster-core/internal/domain/entities"
	"github.com/ersonp/roster-core/internal/domain/ports"
	"github.com/ersonp/roster-core/internal/infrastructure/config"
)

// InitHandler handles project initialization.
type InitHandler struct {
	loader ports.Loader
}

// NewInitHandler creates a new init handler. loader may be nil.
func NewInitHandler(loader ports.Loader) *InitHandler {
	return &InitHandler{
		loader: loader,
	}
}

// InitResult contains the result of initialization.
type InitResult struct {
	ConfigPath   string
	DatabasePath string
	Categories   int
}

// Handle writes the default configuration and prepares the database.
func (h *InitHandler) Handle(ctx context.Context, basePath string) (*InitResult, error) {
	if config.Exists(basePath) {
		return nil, fmt.Errorf("roster already initialized in %s", basePath)
	}

	if err := config.WriteDefault(basePath); err != nil {
		return nil, fmt.Errorf("writing default config: %w", err)
	}

	cfg, err := config.Load(basePath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	rules := cfg.Groups.Categories
	if len(rules) == 0 {
		rules = entities.DefaultCategoryRules
	}

	if h.loader != nil {
		if err := h.loader.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("creating schema: %w", err)
		}
		if err := h.loader.SeedCategories(ctx, rules); err != nil {
			return nil, fmt.Errorf("seeding categories: %w", err)
		}
	}

	return &InitResult{
		ConfigPath:   config.ConfigFilePath(basePath),
		DatabasePath: cfg.SQLite.Path,
		Categories:   len(rules),
	}, nil
}
