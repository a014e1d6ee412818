package services

import (
	"fmt"
	"io"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowValidationError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *RowValidationError
		expected string
	}{
		{
			name:     "row and id",
			err:      &RowValidationError{Sheet: "persons", Row: 4, ID: "p7", Field: "id", Message: "duplicate identifier"},
			expected: "persons row 4 (id p7): id: duplicate identifier",
		},
		{
			name:     "row only",
			err:      &RowValidationError{Sheet: "persons", Row: 4, Field: "name", Message: "missing"},
			expected: "persons row 4: name: missing",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
		})
	}
}

func TestSourceReadError(t *testing.T) {
	err := NewSourceReadError("roster.xlsx", io.ErrUnexpectedEOF)
	wrapped := fmt.Errorf("import: %w", err)

	var readErr *SourceReadError
	require.True(t, errors.As(wrapped, &readErr))
	assert.Equal(t, "roster.xlsx", readErr.Source)
	assert.True(t, errors.Is(wrapped, io.ErrUnexpectedEOF))
	assert.NotEmpty(t, errors.FlattenHints(wrapped))
	assert.True(t, IsFatal(wrapped))
}

func TestIsFatal(t *testing.T) {
	assert.False(t, IsFatal(nil))
	assert.False(t, IsFatal(&RowValidationError{Field: "id"}))
	assert.True(t, IsFatal(errors.New("boom")))
}
