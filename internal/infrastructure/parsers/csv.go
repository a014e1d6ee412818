package parsers

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// CSVParser parses the persons sheet from delimited text.
type CSVParser struct {
	opts Options
}

// Parse reads CSV from the reader and returns the rows as the persons sheet.
// The first record is the header; column names are normalized.
func (p *CSVParser) Parse(r io.Reader) (*Sheets, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}

	text, err := p.decode(data)
	if err != nil {
		return nil, err
	}

	delim := p.opts.Delimiter
	if delim == 0 {
		delim = sniffDelimiter(text)
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = delim
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := p.readHeader(reader)
	if err != nil {
		return nil, err
	}

	rows, err := p.readRecords(reader, header)
	if err != nil {
		return nil, err
	}
	return &Sheets{Persons: rows}, nil
}

// decode converts legacy single-byte encodings to UTF-8.
func (p *CSVParser) decode(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	var enc encoding.Encoding
	switch strings.ToLower(p.opts.Encoding) {
	case "utf-8", "utf8":
		if !utf8.Valid(data) {
			return "", fmt.Errorf("decoding CSV: input is not valid UTF-8")
		}
		return string(data), nil
	case "windows-1250", "cp1250":
		enc = charmap.Windows1250
	case "iso-8859-2", "latin2":
		enc = charmap.ISO8859_2
	default:
		if utf8.Valid(data) {
			return string(data), nil
		}
		enc = charmap.Windows1250
	}

	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", fmt.Errorf("decoding CSV: %w", err)
	}
	return string(decoded), nil
}

// readHeader reads the header row and returns normalized column names.
func (p *CSVParser) readHeader(reader *csv.Reader) ([]string, error) {
	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("reading CSV header: empty input")
	}
	if err != nil {
		return nil, fmt.Errorf("reading CSV header: %w", err)
	}

	cols := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, col := range header {
		name := NormalizeHeader(col)
		if name != "" && seen[name] {
			return nil, fmt.Errorf("duplicate column: %s", name)
		}
		seen[name] = true
		cols[i] = name
	}
	return cols, nil
}

// readRecords reads all data rows and converts them to RawRows.
func (p *CSVParser) readRecords(reader *csv.Reader, header []string) ([]RawRow, error) {
	var rows []RawRow

	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading CSV record: %w", err)
		}
		// Quoted cells may span lines, so ask the reader where the record started.
		lineNum, _ := reader.FieldPos(0)

		fields := make(map[string]any, len(header))
		for i, col := range header {
			if col == "" || i >= len(record) {
				continue
			}
			fields[col] = cellValue(record[i])
		}
		rows = append(rows, RawRow{Line: lineNum, Fields: fields})
	}

	return rows, nil
}

// sniffDelimiter picks the most frequent candidate separator on the first line.
func sniffDelimiter(text string) rune {
	first := text
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		first = text[:i]
	}

	best, bestCount := ',', 0
	for _, c := range []rune{',', ';', '\t', '|'} {
		if n := strings.Count(first, string(c)); n > bestCount {
			best, bestCount = c, n
		}
	}
	return best
}
