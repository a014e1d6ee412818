// Package parsers provides source readers that turn roster files into raw rows.
package parsers

import (
	"io"
	"path/filepath"
	"strings"
)

// Default sheet names of a roster workbook.
const (
	SheetPersons   = "persons"
	SheetAddresses = "addresses"
)

// RawRow is one source record before validation: a mapping from normalized column
// name to raw value. Values are string, json.Number, float64, int64, bool or nil.
// A missing key and a nil value both mean "absent".
type RawRow struct {
	Line   int            // Line or row number in the source (set by parser)
	Fields map[string]any // Column name -> raw value
}

// Get returns the first non-nil value among the given column names.
func (r RawRow) Get(columns ...string) any {
	for _, col := range columns {
		if v, ok := r.Fields[col]; ok && v != nil {
			return v
		}
	}
	return nil
}

// IsBlank reports whether every value in the row is nil or whitespace.
func (r RawRow) IsBlank() bool {
	for _, v := range r.Fields {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		return false
	}
	return true
}

// Sheets holds the two record streams of a roster source.
type Sheets struct {
	Persons   []RawRow
	Addresses []RawRow
}

// Parser defines the interface for reading roster sheets from various formats.
type Parser interface {
	Parse(r io.Reader) (*Sheets, error)
}

// Options tune how parsers locate sheets and decode text.
type Options struct {
	PersonsSheet   string
	AddressesSheet string
	// Delimiter is the CSV field separator; zero means detect from the header line.
	Delimiter rune
	// Encoding is "auto", "utf-8", "windows-1250" or "iso-8859-2".
	Encoding string
}

func (o Options) withDefaults() Options {
	if o.PersonsSheet == "" {
		o.PersonsSheet = SheetPersons
	}
	if o.AddressesSheet == "" {
		o.AddressesSheet = SheetAddresses
	}
	if o.Encoding == "" {
		o.Encoding = "auto"
	}
	return o
}

// ForFormat returns the appropriate parser for the given format.
// Supported formats: "json", "csv", "xlsx".
func ForFormat(format string, opts Options) Parser {
	opts = opts.withDefaults()
	switch strings.ToLower(format) {
	case "json":
		return &JSONParser{opts: opts}
	case "csv":
		return &CSVParser{opts: opts}
	case "xlsx", "excel":
		return &ExcelParser{opts: opts}
	default:
		return nil
	}
}

// ForFile returns the appropriate parser based on file extension.
func ForFile(filename string, opts Options) Parser {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".json":
		return ForFormat("json", opts)
	case ".csv", ".tsv", ".txt":
		return ForFormat("csv", opts)
	case ".xlsx", ".xlsm":
		return ForFormat("xlsx", opts)
	default:
		return nil
	}
}

// NormalizeHeader lower-cases a column name and replaces spaces with underscores.
func NormalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Join(strings.Fields(h), "_")
}

// cellValue maps an empty cell to nil so absence survives the boundary.
func cellValue(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
