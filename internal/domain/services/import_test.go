package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/roster-core/internal/domain/entities"
	"github.com/ersonp/roster-core/internal/infrastructure/parsers"
)

func TestImportService_Run_EndToEnd(t *testing.T) {
	service := NewImportService(ImportOptions{})
	sheets := &parsers.Sheets{Persons: []parsers.RawRow{
		row(2, map[string]any{"id": "A", "name": "Anna", "groups": "KURZ A, KURZ B"}),
		row(3, map[string]any{"id": "B", "name": "Boris", "groups": "KURZ B"}),
		row(4, map[string]any{"id": "C", "name": "Cyril"}),
	}}

	result, err := service.Run(context.Background(), sheets, testRunAt)
	require.NoError(t, err)

	ds := result.Dataset
	assert.Len(t, ds.Entities, 3)
	assert.Equal(t, []entities.Group{
		{ID: 1, Name: "KURZ A", Category: entities.CategoryCourse},
		{ID: 2, Name: "KURZ B", Category: entities.CategoryCourse},
	}, ds.Groups)
	require.Len(t, ds.Memberships, 3)
	assert.Equal(t, []entities.Membership{
		{EntityID: "A", GroupID: 1, AssignedAt: testRunAt},
		{EntityID: "A", GroupID: 2, AssignedAt: testRunAt},
		{EntityID: "B", GroupID: 2, AssignedAt: testRunAt},
	}, ds.Memberships)

	assert.NotEmpty(t, ds.RunID)
	assert.Equal(t, testRunAt, ds.RunAt)
	assert.Empty(t, result.Skipped)
	assert.Equal(t, 3, result.Stats.TotalMemberships)
	assert.Equal(t, 1, result.Stats.EntitiesWithoutGroups)
}

func TestImportService_Run_RowSkip(t *testing.T) {
	service := NewImportService(ImportOptions{})
	sheets := &parsers.Sheets{Persons: []parsers.RawRow{
		row(2, map[string]any{"id": "A", "name": "Anna", "groups": "KURZ A"}),
		row(3, map[string]any{"phone": "123", "groups": "KURZ Z"}),
		row(4, map[string]any{"email": "eva@example.com", "groups": "KURZ A"}),
		row(5, map[string]any{}),
	}}

	result, err := service.Run(context.Background(), sheets, testRunAt)
	require.NoError(t, err)

	require.Len(t, result.Dataset.Entities, 2)
	assert.Equal(t, "A", result.Dataset.Entities[0].ID)
	assert.Equal(t, "auto-1", result.Dataset.Entities[1].ID)
	require.Len(t, result.Skipped, 1)
	assert.Equal(t, 3, result.Skipped[0].Row)
	assert.Equal(t, 1, result.BlankRows)

	// The skipped row's groups never reach the catalog.
	require.Len(t, result.Dataset.Groups, 1)
	assert.Equal(t, "KURZ A", result.Dataset.Groups[0].Name)
	assert.Equal(t, 1, result.Stats.RowsSkipped)
}

func TestImportService_Run_Idempotent(t *testing.T) {
	sheets := &parsers.Sheets{
		Persons: []parsers.RawRow{
			row(2, map[string]any{"name": "Anna", "groups": "SEMINÁŘ / 2019; KURZ A"}),
			row(3, map[string]any{"id": "17", "name": "Boris", "groups": "KURZ A | ADMIN"}),
			row(4, map[string]any{"email": "c@example.com", "groups": "XYZ, KURZ A (2020)"}),
		},
		Addresses: []parsers.RawRow{
			row(2, map[string]any{"user_id": "17", "address_city": "Brno"}),
		},
	}

	service := NewImportService(ImportOptions{})
	first, err := service.Run(context.Background(), sheets, testRunAt)
	require.NoError(t, err)
	second, err := service.Run(context.Background(), sheets, testRunAt)
	require.NoError(t, err)

	assert.Equal(t, first.Dataset.Entities, second.Dataset.Entities)
	assert.Equal(t, first.Dataset.Groups, second.Dataset.Groups)
	assert.Equal(t, first.Dataset.Memberships, second.Dataset.Memberships)
	assert.NotEqual(t, first.Dataset.RunID, second.Dataset.RunID)
	assert.Equal(t, 2, first.Stats.NoiseTokensStripped)
}

func TestImportService_Run_Options(t *testing.T) {
	service := NewImportService(ImportOptions{
		Normalizer: NormalizerOptions{Delimiters: "/"},
		Columns:    map[string][]string{FieldGroups: {"courses"}},
		Categories: []entities.CategoryRule{{Category: "LANG", Prefixes: []string{"ANGLIČTINA"}}},
		IDOrder:    IDOrderSorted,
	})
	sheets := &parsers.Sheets{Persons: []parsers.RawRow{
		row(2, map[string]any{"id": "A", "name": "Anna", "courses": "Němčina / Angličtina"}),
	}}

	result, err := service.Run(context.Background(), sheets, time.Time{})
	require.NoError(t, err)

	assert.Equal(t, []entities.Group{
		{ID: 1, Name: "Angličtina", Category: "LANG"},
		{ID: 2, Name: "Němčina", Category: entities.CategoryUncategorized},
	}, result.Dataset.Groups)
}

func TestImportService_Run_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewImportService(ImportOptions{}).Run(ctx, &parsers.Sheets{}, testRunAt)
	require.ErrorIs(t, err, context.Canceled)
}

func TestImportService_Run_NilSheets(t *testing.T) {
	_, err := NewImportService(ImportOptions{}).Run(context.Background(), nil, testRunAt)
	require.Error(t, err)
	assert.True(t, IsFatal(err))
}
