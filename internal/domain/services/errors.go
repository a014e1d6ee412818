package services

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// RowValidationError reports a source row that cannot become an entity. The row
// is skipped and the run continues.
type RowValidationError struct {
	Sheet   string // Sheet the row came from
	Row     int    // Row number in the source (1-indexed, 0 if unknown)
	ID      string // Source identifier, when the row carried one
	Field   string // Which field is missing or invalid
	Message string // Human-readable error message
}

func (e *RowValidationError) Error() string {
	loc := e.Sheet
	if e.Row > 0 {
		loc = fmt.Sprintf("%s row %d", e.Sheet, e.Row)
	}
	if e.ID != "" {
		loc = fmt.Sprintf("%s (id %s)", loc, e.ID)
	}
	return fmt.Sprintf("%s: %s: %s", loc, e.Field, e.Message)
}

// InternalConsistencyError reports a group name that the linker could not resolve
// against the catalog. It means extractor and linker saw different input and is
// always fatal.
type InternalConsistencyError struct {
	EntityID string
	Name     string
}

func (e *InternalConsistencyError) Error() string {
	return fmt.Sprintf("group %q of entity %s is missing from the catalog", e.Name, e.EntityID)
}

func newInternalConsistencyError(entityID, name string) error {
	return errors.WithAssertionFailure(&InternalConsistencyError{EntityID: entityID, Name: name})
}

// SourceReadError reports an unreadable or corrupt source. It aborts the run
// before any transformation starts.
type SourceReadError struct {
	Source string
	Err    error
}

func (e *SourceReadError) Error() string {
	return fmt.Sprintf("reading source %s: %v", e.Source, e.Err)
}

func (e *SourceReadError) Unwrap() error {
	return e.Err
}

// NewSourceReadError wraps a reader failure with a hint for the operator.
func NewSourceReadError(source string, err error) error {
	return errors.WithHint(
		&SourceReadError{Source: source, Err: err},
		"check that the file exists and that its format matches --format",
	)
}

// IsFatal reports whether err must abort the run.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var rowErr *RowValidationError
	return !errors.As(err, &rowErr)
}
