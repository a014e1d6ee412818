// Package output serializes an import dataset to JSON and CSV files.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/ersonp/roster-core/internal/domain/entities"
	"github.com/ersonp/roster-core/internal/domain/services"
)

// Supported output formats.
const (
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// File names written into the output directory.
const (
	EntitiesFile    = "entities"
	GroupsFile      = "groups"
	MembershipsFile = "memberships"
	StatisticsFile  = "import_statistics.json"
)

// ValidFormats lists the formats accepted by Writer.
var ValidFormats = []string{FormatJSON, FormatCSV}

// Writer writes the normalized collections of a dataset into one directory.
type Writer struct {
	dir     string
	formats []string
}

// NewWriter creates a writer for dir. Unknown formats are rejected.
func NewWriter(dir string, formats []string) (*Writer, error) {
	if dir == "" {
		return nil, errors.New("output directory is required")
	}
	if len(formats) == 0 {
		formats = ValidFormats
	}
	for _, f := range formats {
		if !IsValidFormat(f) {
			return nil, fmt.Errorf("invalid output format %q, valid formats: %v", f, ValidFormats)
		}
	}
	return &Writer{dir: dir, formats: formats}, nil
}

// IsValidFormat reports whether format is supported.
func IsValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Write serializes the dataset in every configured format and returns the paths
// written. The statistics file is written only when stats is non-nil.
func (w *Writer) Write(ds *entities.Dataset, stats *services.Statistics) ([]string, error) {
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	var written []string
	for _, format := range w.formats {
		paths, err := w.writeFormat(format, ds)
		written = append(written, paths...)
		if err != nil {
			return written, err
		}
	}

	if stats != nil {
		path := filepath.Join(w.dir, StatisticsFile)
		if err := writeFile(path, func(f *os.File) error { return encodeJSON(f, stats) }); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func (w *Writer) writeFormat(format string, ds *entities.Dataset) ([]string, error) {
	type collection struct {
		name   string
		encode func(f *os.File) error
	}

	var collections []collection
	switch format {
	case FormatJSON:
		collections = []collection{
			{EntitiesFile, func(f *os.File) error { return FormatEntitiesJSON(f, ds.Entities) }},
			{GroupsFile, func(f *os.File) error { return FormatGroupsJSON(f, ds.Groups) }},
			{MembershipsFile, func(f *os.File) error { return FormatMembershipsJSON(f, ds.Memberships) }},
		}
	case FormatCSV:
		collections = []collection{
			{EntitiesFile, func(f *os.File) error { return FormatEntitiesCSV(f, ds.Entities) }},
			{GroupsFile, func(f *os.File) error { return FormatGroupsCSV(f, ds.Groups) }},
			{MembershipsFile, func(f *os.File) error { return FormatMembershipsCSV(f, ds.Memberships) }},
		}
	default:
		return nil, fmt.Errorf("unknown format: %s", format)
	}

	written := make([]string, 0, len(collections))
	for _, c := range collections {
		path := filepath.Join(w.dir, c.name+"."+format)
		if err := writeFile(path, c.encode); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func writeFile(path string, encode func(f *os.File) error) (err error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing file: %w", cerr)
		}
	}()

	if err := encode(f); err != nil {
		return fmt.Errorf("formatting %s: %w", filepath.Base(path), err)
	}
	return nil
}

// ParseFormats splits a comma separated format list, e.g. "json,csv".
func ParseFormats(s string) []string {
	var formats []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			formats = append(formats, f)
		}
	}
	return formats
}
