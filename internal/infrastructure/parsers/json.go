package parsers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// JSONParser parses roster sheets from JSON.
//
// A top-level array is the persons sheet. A top-level object carries one array
// per sheet, keyed by the configured sheet names.
type JSONParser struct {
	opts Options
}

// Parse reads JSON from the reader and returns the parsed sheets.
func (p *JSONParser) Parse(r io.Reader) (*Sheets, error) {
	var doc any

	decoder := json.NewDecoder(r)
	decoder.UseNumber()
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}

	switch v := doc.(type) {
	case []any:
		persons, err := toRows(v, SheetPersons)
		if err != nil {
			return nil, err
		}
		return &Sheets{Persons: persons}, nil
	case map[string]any:
		return p.parseWorkbook(v)
	default:
		return nil, fmt.Errorf("parsing JSON: expected array or object at top level")
	}
}

func (p *JSONParser) parseWorkbook(doc map[string]any) (*Sheets, error) {
	opts := p.opts.withDefaults()
	personsKey := NormalizeHeader(opts.PersonsSheet)
	addressesKey := NormalizeHeader(opts.AddressesSheet)

	sheets := &Sheets{}
	for key, raw := range doc {
		arr, ok := raw.([]any)
		if !ok {
			continue
		}
		switch NormalizeHeader(key) {
		case personsKey:
			rows, err := toRows(arr, SheetPersons)
			if err != nil {
				return nil, err
			}
			sheets.Persons = rows
		case addressesKey:
			rows, err := toRows(arr, SheetAddresses)
			if err != nil {
				return nil, err
			}
			sheets.Addresses = rows
		}
	}
	if sheets.Persons == nil {
		return nil, fmt.Errorf("parsing JSON: missing %q array", opts.PersonsSheet)
	}
	return sheets, nil
}

// toRows converts an array of objects to RawRows; line numbers are array index + 1.
func toRows(arr []any, sheet string) ([]RawRow, error) {
	rows := make([]RawRow, 0, len(arr))
	for i, item := range arr {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("parsing JSON: %s[%d] is not an object", sheet, i)
		}

		fields := make(map[string]any, len(obj))
		for k, v := range obj {
			fields[NormalizeHeader(k)] = flattenValue(v)
		}
		rows = append(rows, RawRow{Line: i + 1, Fields: fields})
	}
	return rows, nil
}

// flattenValue turns list values into a comma-joined string so that list-shaped
// group fields go through the same splitting as spreadsheet cells.
func flattenValue(v any) any {
	switch t := v.(type) {
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if item == nil {
				continue
			}
			parts = append(parts, fmt.Sprint(item))
		}
		if len(parts) == 0 {
			return nil
		}
		return strings.Join(parts, ", ")
	case map[string]any:
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(t); err != nil {
			return nil
		}
		return strings.TrimSpace(buf.String())
	case string:
		return cellValue(t)
	default:
		return v
	}
}
