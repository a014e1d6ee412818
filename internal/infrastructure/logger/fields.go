package logger

// Standard field names for structured logging.
const (
	FieldRunID      = "run_id"
	FieldSheet      = "sheet"
	FieldRow        = "row"
	FieldField      = "field"
	FieldEntityID   = "entity_id"
	FieldGroup      = "group"
	FieldCount      = "count"
	FieldFile       = "file"
	FieldFormat     = "format"
	FieldDurationMS = "duration_ms"
	FieldError      = "error"
)
