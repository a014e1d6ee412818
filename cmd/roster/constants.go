package main

// Default values for CLI commands.
const (
	DefaultFormat        = "auto"
	DefaultSkippedShown  = 20
	DefaultLargestGroups = 5
)

// Valid source formats.
var validFormats = []string{"auto", "json", "csv", "xlsx"}
