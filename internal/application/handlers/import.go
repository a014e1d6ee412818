package handlers

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/ersonp/roster-core/internal/domain/entities"
	"github.com/ersonp/roster-core/internal/domain/ports"
	"github.com/ersonp/roster-core/internal/domain/services"
	"github.com/ersonp/roster-core/internal/infrastructure/logger"
	"github.com/ersonp/roster-core/internal/infrastructure/output"
	"github.com/ersonp/roster-core/internal/infrastructure/parsers"
)

// ActionDryRun is the audit action recorded for a run that was not loaded.
const ActionDryRun = entities.AuditActionDryRun

// ImportHandler handles importing a roster source.
type ImportHandler struct {
	service    *services.ImportService
	loader     ports.Loader
	parserOpts parsers.Options
	logger     *zap.SugaredLogger
}

// NewImportHandler creates a new import handler. loader may be nil, in which
// case datasets are only written to files.
func NewImportHandler(service *services.ImportService, loader ports.Loader, parserOpts parsers.Options) *ImportHandler {
	return &ImportHandler{
		service:    service,
		loader:     loader,
		parserOpts: parserOpts,
		logger:     logger.ComponentLogger("handler.import"),
	}
}

// ImportOptions controls import behavior.
type ImportOptions struct {
	Format        string    // "json", "csv", "xlsx", or "auto"
	AddressesFile string    // Optional second source for the addresses sheet
	OutputDir     string    // Empty means no files are written
	Formats       []string  // Output formats, defaults to all
	DryRun        bool      // Transform and report without writing or loading
	RunAt         time.Time // Defaults to the current time
}

// ImportResult contains the result of an import operation.
type ImportResult struct {
	*services.ImportResult
	Written []string
	Loaded  bool
}

// Handle reads the source, transforms it and hands the dataset to the output
// writer and the loader.
func (h *ImportHandler) Handle(ctx context.Context, filePath string, opts ImportOptions) (*ImportResult, error) {
	transformed, err := h.Preview(ctx, filePath, opts)
	if err != nil {
		return nil, err
	}
	result := &ImportResult{ImportResult: transformed}
	ds := transformed.Dataset

	if opts.DryRun {
		if h.loader != nil {
			details := map[string]any{
				"entities":    len(ds.Entities),
				"groups":      len(ds.Groups),
				"memberships": len(ds.Memberships),
				"skipped":     len(transformed.Skipped),
				"source":      filePath,
			}
			if err := h.recordDryRun(ctx, ds.RunID, details); err != nil {
				h.logger.Warnw("recording dry run failed", logger.FieldRunID, ds.RunID, logger.FieldError, err)
			}
		}
		return result, nil
	}

	if opts.OutputDir != "" {
		writer, err := output.NewWriter(opts.OutputDir, opts.Formats)
		if err != nil {
			return nil, err
		}
		result.Written, err = writer.Write(ds, transformed.Stats)
		if err != nil {
			h.logger.Errorw("writing output failed", logger.FieldRunID, ds.RunID, logger.FieldError, err)
			return nil, fmt.Errorf("writing output: %w", err)
		}
		h.logger.Infow("output written", logger.FieldRunID, ds.RunID, logger.FieldCount, len(result.Written))
	}

	if h.loader != nil {
		if err := h.load(ctx, transformed); err != nil {
			h.logger.Errorw("loading dataset failed", logger.FieldRunID, ds.RunID, logger.FieldError, err)
			return nil, fmt.Errorf("loading dataset: %w", err)
		}
		result.Loaded = true
	}

	return result, nil
}

// Preview reads the source and runs the transformation without writing anything.
func (h *ImportHandler) Preview(ctx context.Context, filePath string, opts ImportOptions) (*services.ImportResult, error) {
	sheets, err := h.readSheets(filePath, opts.Format)
	if err != nil {
		h.logger.Errorw("reading source failed", logger.FieldFile, filePath, logger.FieldError, err)
		return nil, err
	}

	if opts.AddressesFile != "" {
		extra, err := h.readSheets(opts.AddressesFile, opts.Format)
		if err != nil {
			h.logger.Errorw("reading source failed", logger.FieldFile, opts.AddressesFile, logger.FieldError, err)
			return nil, err
		}
		// A standalone addresses file is read as a single sheet.
		if len(extra.Addresses) > 0 {
			sheets.Addresses = append(sheets.Addresses, extra.Addresses...)
		} else {
			sheets.Addresses = append(sheets.Addresses, extra.Persons...)
		}
	}

	runAt := opts.RunAt
	if runAt.IsZero() {
		runAt = time.Now().UTC()
	}

	return h.service.Run(ctx, sheets, runAt)
}

func (h *ImportHandler) readSheets(filePath, format string) (*parsers.Sheets, error) {
	var parser parsers.Parser
	if format == "" || format == "auto" {
		parser = parsers.ForFile(filePath, h.parserOpts)
	} else {
		parser = parsers.ForFormat(format, h.parserOpts)
	}

	if parser == nil {
		return nil, services.NewSourceReadError(filePath, fmt.Errorf("unsupported format for file: %s", filePath))
	}

	file, err := os.Open(filePath)
	if err != nil {
		return nil, services.NewSourceReadError(filePath, fmt.Errorf("opening file: %w", err))
	}
	defer file.Close()

	sheets, err := parser.Parse(file)
	if err != nil {
		return nil, services.NewSourceReadError(filePath, fmt.Errorf("parsing file: %w", err))
	}
	return sheets, nil
}

// recordDryRun writes the dry-run audit entry. The database may be new, so the
// schema is created first.
func (h *ImportHandler) recordDryRun(ctx context.Context, runID string, details map[string]any) error {
	if err := h.loader.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return h.loader.LogAction(ctx, ActionDryRun, runID, details)
}

func (h *ImportHandler) load(ctx context.Context, result *services.ImportResult) error {
	if err := h.loader.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	if err := h.loader.SeedCategories(ctx, h.service.Classifier().Rules()); err != nil {
		return fmt.Errorf("seeding categories: %w", err)
	}
	return h.loader.Replace(ctx, result.Dataset)
}
