package parsers

import (
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// ExcelParser parses roster sheets from an XLSX workbook.
type ExcelParser struct {
	opts Options
}

// Parse reads the persons sheet and, when present, the addresses sheet.
// If no sheet matches the persons name, the first sheet is used.
func (p *ExcelParser) Parse(r io.Reader) (*Sheets, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer f.Close()

	list := f.GetSheetList()
	if len(list) == 0 {
		return nil, fmt.Errorf("workbook has no sheets")
	}

	personsSheet := findSheet(list, p.opts.PersonsSheet)
	if personsSheet == "" {
		personsSheet = list[0]
	}

	persons, err := p.readSheet(f, personsSheet)
	if err != nil {
		return nil, err
	}

	sheets := &Sheets{Persons: persons}
	if addrSheet := findSheet(list, p.opts.AddressesSheet); addrSheet != "" && addrSheet != personsSheet {
		sheets.Addresses, err = p.readSheet(f, addrSheet)
		if err != nil {
			return nil, err
		}
	}
	return sheets, nil
}

// readSheet reads one sheet. The first non-empty row is the header; Line is the
// spreadsheet row number.
func (p *ExcelParser) readSheet(f *excelize.File, sheet string) ([]RawRow, error) {
	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheet, err)
	}

	headerIdx := -1
	for i, rec := range records {
		if !isEmptyRecord(rec) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, nil
	}

	header := make([]string, len(records[headerIdx]))
	for i, col := range records[headerIdx] {
		header[i] = NormalizeHeader(col)
	}

	rows := make([]RawRow, 0, len(records)-headerIdx-1)
	for i := headerIdx + 1; i < len(records); i++ {
		rec := records[i]
		fields := make(map[string]any, len(header))
		for j, col := range header {
			if col == "" || j >= len(rec) {
				continue
			}
			fields[col] = cellValue(rec[j])
		}
		rows = append(rows, RawRow{Line: i + 1, Fields: fields})
	}
	return rows, nil
}

func findSheet(list []string, name string) string {
	for _, s := range list {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return s
		}
	}
	return ""
}

func isEmptyRecord(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
