package handlers

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/roster-core/internal/domain/entities"
	"github.com/ersonp/roster-core/internal/domain/mocks"
	"github.com/ersonp/roster-core/internal/infrastructure/config"
)

func TestNewInitHandler(t *testing.T) {
	loader := mocks.NewLoader()

	handler := NewInitHandler(loader)

	require.NotNil(t, handler)
	assert.Equal(t, loader, handler.loader)
}

func TestInitHandler_Handle_Success(t *testing.T) {
	tmpDir := t.TempDir()

	loader := mocks.NewLoader()

	handler := NewInitHandler(loader)

	result, err := handler.Handle(t.Context(), tmpDir)

	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Contains(t, result.ConfigPath, "config.yaml")
	assert.Equal(t, len(entities.DefaultCategoryRules), result.Categories)
	assert.Equal(t, 1, loader.EnsureSchemaCallCount)
	assert.Equal(t, entities.DefaultCategoryRules, loader.Categories)

	// Verify config was created
	assert.True(t, config.Exists(tmpDir))
}

func TestInitHandler_Handle_WithoutLoader(t *testing.T) {
	tmpDir := t.TempDir()

	result, err := NewInitHandler(nil).Handle(t.Context(), tmpDir)

	require.NoError(t, err)
	assert.Empty(t, result.DatabasePath)
	assert.True(t, config.Exists(tmpDir))
}

func TestInitHandler_Handle_AlreadyInitialized(t *testing.T) {
	tmpDir := t.TempDir()

	// Initialize first
	err := config.WriteDefault(tmpDir)
	require.NoError(t, err)

	handler := NewInitHandler(mocks.NewLoader())

	_, err = handler.Handle(t.Context(), tmpDir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "already initialized")
}

func TestInitHandler_Handle_SchemaError(t *testing.T) {
	tmpDir := t.TempDir()

	loader := mocks.NewLoader()
	loader.Err = errors.New("connection failed")

	handler := NewInitHandler(loader)

	_, err := handler.Handle(t.Context(), tmpDir)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "creating schema")
	assert.Contains(t, err.Error(), "connection failed")
}
