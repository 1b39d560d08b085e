package source

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"

	"ergopulse/internal/survey"
)

// ErrEmptyTable is returned when input has no header row
var ErrEmptyTable = errors.New("table has no header row")

var utf8BOM = []byte{0xef, 0xbb, 0xbf}

// Format is the tabular encoding of the input
type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// DetectFormat decides between XLSX and delimited text. XLSX files are zip
// archives; anything else is read as CSV.
func DetectFormat(data []byte) Format {
	if bytes.HasPrefix(data, zipMagic) {
		return FormatXLSX
	}
	return FormatCSV
}

// Decode turns uploaded or fetched bytes into a RawTable, unwrapping gzip,
// bzip2 or xz first. limit caps the decompressed size when positive.
func Decode(name string, data []byte, limit int64) (*survey.RawTable, error) {
	plain, _, err := Decompress(data, limit)
	if err != nil {
		return nil, err
	}

	var table *survey.RawTable
	switch DetectFormat(plain) {
	case FormatXLSX:
		table, err = DecodeXLSX(bytes.NewReader(plain))
	default:
		table, err = DecodeCSV(bytes.NewReader(plain))
	}
	if err != nil {
		return nil, err
	}
	table.Source = name
	return table, nil
}

// DecodeCSV reads delimited text. The delimiter is sniffed from the header
// line among comma, semicolon and tab.
func DecodeCSV(r io.Reader) (*survey.RawTable, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}
	return fromRows(records)
}

// DecodeXLSX reads the first sheet of a workbook.
func DecodeXLSX(r io.Reader) (*survey.RawTable, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("no sheets found in xlsx file")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return fromRows(rows)
}

// FromValues converts a spreadsheet API value grid to rows of text.
func FromValues(values [][]interface{}) (*survey.RawTable, error) {
	rows := make([][]string, len(values))
	for i, row := range values {
		cells := make([]string, len(row))
		for j, v := range row {
			if v != nil {
				cells[j] = fmt.Sprint(v)
			}
		}
		rows[i] = cells
	}
	return fromRows(rows)
}

func fromRows(rows [][]string) (*survey.RawTable, error) {
	if len(rows) == 0 {
		return nil, ErrEmptyTable
	}
	table := &survey.RawTable{Headers: NormalizeHeaders(rows[0])}
	for _, row := range rows[1:] {
		if blank(row) {
			continue
		}
		table.Rows = append(table.Rows, row)
	}
	return table, nil
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	best, bestCount := ',', 0
	for _, d := range []rune{',', ';', '\t'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// NormalizeHeaders cleans header labels and names empty ones Unnamed_A,
// Unnamed_B and so on.
func NormalizeHeaders(header []string) []string {
	normalized := make([]string, len(header))
	empty := 0
	for i, h := range header {
		h = survey.Clean(h)
		if h == "" {
			h = "Unnamed_" + columnLetters(empty)
			empty++
		}
		normalized[i] = h
	}
	return normalized
}

// columnLetters converts a 0-based index to A, B, ..., Z, AA, AB, ...
func columnLetters(index int) string {
	result := ""
	index++
	for index > 0 {
		index--
		result = string(rune('A'+index%26)) + result
		index /= 26
	}
	return result
}
