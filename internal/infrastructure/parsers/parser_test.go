package parsers

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

func TestJSONParser_Parse_ValidInput(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []RawRow
	}{
		{
			name:  "single row",
			input: `[{"id": "p1", "First Name": "Jan", "groups": "KURZ A"}]`,
			expected: []RawRow{
				{Line: 1, Fields: map[string]any{"id": "p1", "first_name": "Jan", "groups": "KURZ A"}},
			},
		},
		{
			name:     "empty array",
			input:    "[]",
			expected: []RawRow{},
		},
		{
			name:  "blank and null values are absent",
			input: `[{"id": "p1", "email": "  ", "phone": null}]`,
			expected: []RawRow{
				{Line: 1, Fields: map[string]any{"id": "p1", "email": nil, "phone": nil}},
			},
		},
		{
			name:  "list values are joined",
			input: `[{"id": "p1", "groups": ["KURZ A", "KURZ B"]}]`,
			expected: []RawRow{
				{Line: 1, Fields: map[string]any{"id": "p1", "groups": "KURZ A, KURZ B"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := &JSONParser{}
			result, err := parser.Parse(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result.Persons)
			assert.Nil(t, result.Addresses)
		})
	}
}

func TestJSONParser_Parse_Numbers(t *testing.T) {
	parser := &JSONParser{}
	result, err := parser.Parse(strings.NewReader(`[{"id": 17, "phone": 777123456}]`))
	require.NoError(t, err)
	require.Len(t, result.Persons, 1)

	assert.Equal(t, json.Number("17"), result.Persons[0].Fields["id"])
	assert.Equal(t, json.Number("777123456"), result.Persons[0].Fields["phone"])
}

func TestJSONParser_Parse_Workbook(t *testing.T) {
	input := `{
		"Persons": [{"id": "p1", "name": "Jan"}, {"id": "p2", "name": "Eva"}],
		"addresses": [{"user_id": "p1", "address_city": "Brno"}]
	}`

	parser := &JSONParser{}
	result, err := parser.Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, result.Persons, 2)
	require.Len(t, result.Addresses, 1)

	assert.Equal(t, 2, result.Persons[1].Line)
	assert.Equal(t, "Brno", result.Addresses[0].Fields["address_city"])
}

func TestJSONParser_Parse_ConfiguredSheetNames(t *testing.T) {
	input := `{
		"Osoby": [{"id": "p1", "name": "Jan"}],
		"Adresy": [{"id": "p1", "address_city": "Brno"}],
		"persons": [{"id": "ignored"}]
	}`

	parser := ForFormat("json", Options{PersonsSheet: "osoby", AddressesSheet: "adresy"})
	result, err := parser.Parse(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, result.Persons, 1)
	require.Len(t, result.Addresses, 1)
	assert.Equal(t, "p1", result.Persons[0].Fields["id"])
	assert.Equal(t, "Brno", result.Addresses[0].Fields["address_city"])

	_, err = ForFormat("json", Options{PersonsSheet: "students"}).Parse(strings.NewReader(input))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `missing "students" array`)
}

func TestJSONParser_Parse_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "not json", input: "not json"},
		{name: "scalar", input: `"hello"`},
		{name: "non-object row", input: `[1, 2]`},
		{name: "workbook without persons", input: `{"addresses": []}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := &JSONParser{}
			_, err := parser.Parse(strings.NewReader(tt.input))
			require.Error(t, err)
		})
	}
}

func TestCSVParser_Parse_ValidInput(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []RawRow
	}{
		{
			name:  "comma separated",
			input: "id,name,groups\np1,Jan,\"KURZ A, KURZ B\"\n",
			expected: []RawRow{
				{Line: 2, Fields: map[string]any{"id": "p1", "name": "Jan", "groups": "KURZ A, KURZ B"}},
			},
		},
		{
			name:  "semicolon separated with spaced header",
			input: "ID;First Name;Email\np1;Jan;jan@example.com\n",
			expected: []RawRow{
				{Line: 2, Fields: map[string]any{"id": "p1", "first_name": "Jan", "email": "jan@example.com"}},
			},
		},
		{
			name:  "byte order mark is dropped",
			input: "\xef\xbb\xbfid,name\np1,Jan\n",
			expected: []RawRow{
				{Line: 2, Fields: map[string]any{"id": "p1", "name": "Jan"}},
			},
		},
		{
			name:  "short record and empty cells",
			input: "id,name,email\np1,,\np2\n",
			expected: []RawRow{
				{Line: 2, Fields: map[string]any{"id": "p1", "name": nil, "email": nil}},
				{Line: 3, Fields: map[string]any{"id": "p2"}},
			},
		},
		{
			name:  "multi-line quoted cell keeps the starting line",
			input: "id,note\np1,\"line one\nline two\"\np2,x\n",
			expected: []RawRow{
				{Line: 2, Fields: map[string]any{"id": "p1", "note": "line one\nline two"}},
				{Line: 4, Fields: map[string]any{"id": "p2", "note": "x"}},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := &CSVParser{opts: Options{}.withDefaults()}
			result, err := parser.Parse(strings.NewReader(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result.Persons)
		})
	}
}

func TestCSVParser_Parse_Windows1250(t *testing.T) {
	encoded, err := charmap.Windows1250.NewEncoder().String("id;name;groups\np1;Jiří;SEMINÁŘ\n")
	require.NoError(t, err)

	parser := &CSVParser{opts: Options{}.withDefaults()}
	result, err := parser.Parse(strings.NewReader(encoded))
	require.NoError(t, err)
	require.Len(t, result.Persons, 1)

	assert.Equal(t, "Jiří", result.Persons[0].Fields["name"])
	assert.Equal(t, "SEMINÁŘ", result.Persons[0].Fields["groups"])
}

func TestCSVParser_Parse_StrictUTF8(t *testing.T) {
	encoded, err := charmap.Windows1250.NewEncoder().String("id,name\np1,Jiří\n")
	require.NoError(t, err)

	parser := &CSVParser{opts: Options{Encoding: "utf-8"}.withDefaults()}
	_, err = parser.Parse(strings.NewReader(encoded))
	require.Error(t, err)
}

func TestCSVParser_Parse_InvalidInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "empty input", input: ""},
		{name: "duplicate column", input: "id,ID\n1,2\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parser := &CSVParser{opts: Options{}.withDefaults()}
			_, err := parser.Parse(strings.NewReader(tt.input))
			require.Error(t, err)
		})
	}
}

func TestSniffDelimiter(t *testing.T) {
	assert.Equal(t, ',', sniffDelimiter("a,b,c\n1;2"))
	assert.Equal(t, ';', sniffDelimiter("a;b;c"))
	assert.Equal(t, '\t', sniffDelimiter("a\tb"))
	assert.Equal(t, '|', sniffDelimiter("a|b|c"))
	assert.Equal(t, ',', sniffDelimiter("single"))
}

func newWorkbook(t *testing.T, sheets map[string][][]any, order ...string) *bytes.Buffer {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	for i, name := range order {
		if i == 0 {
			require.NoError(t, f.SetSheetName("Sheet1", name))
		} else {
			_, err := f.NewSheet(name)
			require.NoError(t, err)
		}
		for r, row := range sheets[name] {
			cell, err := excelize.CoordinatesToCellName(1, r+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, cell, &row))
		}
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestExcelParser_Parse_TwoSheets(t *testing.T) {
	buf := newWorkbook(t, map[string][][]any{
		"Persons": {
			{"id", "name", "surname", "groups"},
			{"p1", "Jan", "Novák", "KURZ A"},
			{"p2", "Eva", "", ""},
		},
		"addresses": {
			{"user_id", "address_city"},
			{"p1", "Brno"},
		},
	}, "Persons", "addresses")

	parser := ForFormat("xlsx", Options{})
	result, err := parser.Parse(buf)
	require.NoError(t, err)

	require.Len(t, result.Persons, 2)
	assert.Equal(t, 2, result.Persons[0].Line)
	assert.Equal(t, "Novák", result.Persons[0].Fields["surname"])
	assert.Nil(t, result.Persons[1].Get("surname"))

	require.Len(t, result.Addresses, 1)
	assert.Equal(t, 2, result.Addresses[0].Line)
	assert.Equal(t, "Brno", result.Addresses[0].Fields["address_city"])
}

func TestExcelParser_Parse_FallsBackToFirstSheet(t *testing.T) {
	buf := newWorkbook(t, map[string][][]any{
		"Roster": {
			{"id", "email"},
			{"p1", "jan@example.com"},
		},
	}, "Roster")

	parser := ForFormat("xlsx", Options{})
	result, err := parser.Parse(buf)
	require.NoError(t, err)
	require.Len(t, result.Persons, 1)
	assert.Nil(t, result.Addresses)
}

func TestExcelParser_Parse_InvalidInput(t *testing.T) {
	parser := ForFormat("xlsx", Options{})
	_, err := parser.Parse(strings.NewReader("not a workbook"))
	require.Error(t, err)
}

func TestRawRow(t *testing.T) {
	row := RawRow{Line: 2, Fields: map[string]any{"name": nil, "first_name": "Jan", "blank": "  "}}

	assert.Equal(t, "Jan", row.Get("name", "first_name"))
	assert.Nil(t, row.Get("missing"))
	assert.False(t, row.IsBlank())

	blank := RawRow{Fields: map[string]any{"a": nil, "b": " "}}
	assert.True(t, blank.IsBlank())
}

func TestForFile(t *testing.T) {
	tests := []struct {
		filename string
		expected Parser
	}{
		{"roster.json", &JSONParser{opts: Options{}.withDefaults()}},
		{"roster.CSV", &CSVParser{opts: Options{}.withDefaults()}},
		{"roster.xlsx", &ExcelParser{opts: Options{}.withDefaults()}},
		{"roster.xml", nil},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			assert.Equal(t, tt.expected, ForFile(tt.filename, Options{}))
		})
	}
}

func TestNormalizeHeader(t *testing.T) {
	assert.Equal(t, "first_name", NormalizeHeader("  First   Name "))
	assert.Equal(t, "id", NormalizeHeader("\ufeffID"))
	assert.Equal(t, "", NormalizeHeader("   "))
}
