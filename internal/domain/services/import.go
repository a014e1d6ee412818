package services

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ersonp/roster-core/internal/domain/entities"
	"github.com/ersonp/roster-core/internal/infrastructure/logger"
	"github.com/ersonp/roster-core/internal/infrastructure/parsers"
)

// ImportOptions controls the transformation pipeline.
type ImportOptions struct {
	Normalizer NormalizerOptions
	// Columns overrides source column aliases per entity field.
	Columns    map[string][]string
	Categories []entities.CategoryRule
	IDOrder    IDOrder
}

// ImportResult contains the result of an import run.
type ImportResult struct {
	Dataset *entities.Dataset
	// Skipped holds one error per source row that did not become an entity.
	Skipped   []*RowValidationError
	BlankRows int
	Stats     *Statistics
}

// ImportService runs the roster pipeline: build entities, extract the group
// catalog, link memberships.
type ImportService struct {
	opts   ImportOptions
	logger *zap.SugaredLogger
}

// NewImportService creates a new import service.
func NewImportService(opts ImportOptions) *ImportService {
	return &ImportService{
		opts:   opts,
		logger: logger.ComponentLogger("import"),
	}
}

// Classifier returns the classifier configured for this service.
func (s *ImportService) Classifier() *Classifier {
	return NewClassifier(s.opts.Categories)
}

// Run transforms the sheets into a dataset. Row-level problems are collected in
// the result; an error is returned only for fatal conditions.
func (s *ImportService) Run(ctx context.Context, sheets *parsers.Sheets, runAt time.Time) (*ImportResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if sheets == nil {
		return nil, errors.AssertionFailedf("import run without source sheets")
	}

	started := time.Now()
	runID := uuid.NewString()
	log := s.logger.With(logger.FieldRunID, runID)

	normalizer := NewNormalizer(s.opts.Normalizer)
	builder := NewEntityBuilder(normalizer, DefaultColumnAliases().With(s.opts.Columns))
	extractor := NewGroupExtractor(normalizer, s.Classifier(), s.opts.IDOrder)
	linker := NewMembershipLinker(normalizer)

	built := builder.BuildAll(sheets)
	for _, rowErr := range built.Errors {
		log.Warnw("row skipped",
			logger.FieldSheet, rowErr.Sheet,
			logger.FieldRow, rowErr.Row,
			logger.FieldEntityID, rowErr.ID,
			logger.FieldField, rowErr.Field,
			logger.FieldError, rowErr.Message,
		)
	}
	if built.DiscardedAddresses > 0 {
		log.Warnw("conflicting address rows discarded", logger.FieldCount, built.DiscardedAddresses)
	}
	if built.OrphanAddresses > 0 {
		log.Warnw("address rows without matching person", logger.FieldCount, built.OrphanAddresses)
	}

	// The catalog and the links are derived from the same entity slice.
	catalog := extractor.Extract(built.Entities)

	memberships, err := linker.Link(built.Entities, catalog, runAt)
	if err != nil {
		log.Errorw("linking memberships failed", logger.FieldError, err)
		return nil, errors.Wrap(err, "linking memberships")
	}

	dataset := &entities.Dataset{
		RunID:       runID,
		RunAt:       runAt,
		Entities:    built.Entities,
		Groups:      catalog.Groups,
		Memberships: memberships,
	}

	stats := ComputeStatistics(dataset)
	stats.RowsSkipped = len(built.Errors)
	stats.BlankRows = built.BlankRows
	stats.NoiseTokensStripped = catalog.NoiseTokens
	stats.DiscardedAddresses = built.DiscardedAddresses

	for email, ids := range stats.DuplicateEmails {
		log.Infow("e-mail shared by several entities", "email", email, logger.FieldCount, len(ids))
	}
	log.Infow("import transformed",
		"entities", len(dataset.Entities),
		"groups", len(dataset.Groups),
		"memberships", len(dataset.Memberships),
		"skipped", len(built.Errors),
		logger.FieldDurationMS, time.Since(started).Milliseconds(),
	)

	return &ImportResult{
		Dataset:   dataset,
		Skipped:   built.Errors,
		BlankRows: built.BlankRows,
		Stats:     stats,
	}, nil
}
