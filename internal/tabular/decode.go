package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"
)

// ── Tabular Decoder ─────────────────────────────────────────
// Parses a delimited-text or spreadsheet-binary byte stream into
// records keyed by normalized header names, plus advisory per-column
// metadata for schema inference. Only the first sheet of a workbook
// is read.

// Format identifies the wire format of an uploaded source.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
	FormatXLSX Format = "xlsx"
)

// FormatFromFilename maps a file extension to a Format.
// Returns "" for unknown extensions.
func FormatFromFilename(name string) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".csv":
		return FormatCSV
	case ".tsv", ".tab":
		return FormatTSV
	case ".xlsx", ".xlsm":
		return FormatXLSX
	default:
		return ""
	}
}

var (
	ErrEmptyInput        = errors.New("tabular: empty input")
	ErrUnsupportedFormat = errors.New("tabular: unsupported format")
	ErrMissingHeader     = errors.New("tabular: header row not found")
)

// Record is one decoded source row: normalized column name → raw value.
// Missing and empty cells are stored as nil.
type Record map[string]any

// Dataset is the result of decoding one source.
type Dataset struct {
	Columns    []string // normalized header names, source order
	Records    []Record
	Meta       []ColumnMeta
	SampleSize int
}

// TotalRows returns the number of decoded data rows.
func (d *Dataset) TotalRows() int { return len(d.Records) }

// Slice returns the records in [start, end), clamped to the dataset.
func (d *Dataset) Slice(start, end int) []Record {
	if start < 0 {
		start = 0
	}
	if end > len(d.Records) {
		end = len(d.Records)
	}
	if start >= end {
		return nil
	}
	return d.Records[start:end]
}

// Decode parses sourceBytes according to format. sampleSize bounds how
// many rows are scanned per column for metadata classification.
func Decode(sourceBytes []byte, format Format, sampleSize int) (*Dataset, error) {
	if len(sourceBytes) == 0 {
		return nil, ErrEmptyInput
	}
	if sampleSize <= 0 {
		sampleSize = 100
	}

	var (
		rows [][]string
		err  error
	)
	switch format {
	case FormatCSV:
		rows, err = decodeDelimited(sourceBytes, ',')
	case FormatTSV:
		rows, err = decodeDelimited(sourceBytes, '\t')
	case FormatXLSX:
		rows, err = decodeWorkbook(sourceBytes)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}

	return buildDataset(rows, sampleSize)
}

// decodeDelimited parses CSV/TSV text. Input that is not valid UTF-8 is
// re-decoded as Latin-1 instead of aborting — exports from older tools
// routinely arrive in legacy single-byte encodings.
func decodeDelimited(data []byte, comma rune) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")) // UTF-8 BOM

	if !utf8.Valid(data) {
		decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(data)
		if err == nil {
			data = decoded
		}
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = comma
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse delimited text: %w", err)
	}
	return rows, nil
}

// decodeWorkbook reads the first sheet of an XLSX workbook.
func decodeWorkbook(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrMissingHeader
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, nil
}

// buildDataset turns raw rows into normalized records and column metadata.
// The first row is the header row; rows that are entirely empty after
// parsing are dropped.
func buildDataset(rows [][]string, sampleSize int) (*Dataset, error) {
	if len(rows) == 0 {
		return nil, ErrMissingHeader
	}

	header := rows[0]
	hasLabel := false
	for _, h := range header {
		if strings.TrimSpace(h) != "" {
			hasLabel = true
			break
		}
	}
	if !hasLabel {
		return nil, ErrMissingHeader
	}

	// Distinct source labels can normalize to the same name ("Order ID"
	// and "order-id"). Suffix collisions so no record key is lost.
	columns := make([]string, len(header))
	seen := make(map[string]bool, len(header))
	for i, h := range header {
		base := NormalizeHeader(strings.TrimSpace(h))
		name := base
		for n := 2; seen[name]; n++ {
			name = fmt.Sprintf("%s_%d", base, n)
		}
		seen[name] = true
		columns[i] = name
	}

	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		rec := make(Record, len(columns))
		empty := true
		for i, col := range columns {
			var v any
			if i < len(row) {
				if cell := strings.TrimSpace(row[i]); cell != "" {
					v = cell
					empty = false
				}
			}
			rec[col] = v
		}
		if empty {
			continue
		}
		records = append(records, rec)
	}

	ds := &Dataset{
		Columns:    columns,
		Records:    records,
		SampleSize: sampleSize,
	}
	ds.Meta = scanColumns(ds)
	return ds, nil
}
