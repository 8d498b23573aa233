package tabular

import (
	"strconv"
	"strings"
	"time"
)

// ── Column Metadata ────────────────────────────────────────
// Advisory per-column classification used to help the schema-inference
// collaborator propose a descriptor. It is never the authoritative
// coercion type: the declared schema always wins at import time.

// ColumnMeta describes one column of a decoded dataset.
type ColumnMeta struct {
	Name      string `json:"name"`
	Type      string `json:"type"` // "null" | "int" | "double" | "boolean" | "date" | "string"
	NullCount int    `json:"nullCount"`
	Sample    []any  `json:"sample"`
}

const maxSampleValues = 5

// scanColumns classifies each column from the first non-empty value
// within the dataset's sample window, and counts nulls across it.
func scanColumns(ds *Dataset) []ColumnMeta {
	limit := ds.SampleSize
	if limit > len(ds.Records) {
		limit = len(ds.Records)
	}

	meta := make([]ColumnMeta, len(ds.Columns))
	for i, col := range ds.Columns {
		m := ColumnMeta{Name: col, Type: "null"}
		for _, rec := range ds.Records[:limit] {
			v := rec[col]
			if v == nil {
				m.NullCount++
				continue
			}
			if m.Type == "null" {
				m.Type = classifyValue(v)
			}
			if len(m.Sample) < maxSampleValues {
				m.Sample = append(m.Sample, v)
			}
		}
		meta[i] = m
	}
	return meta
}

// MetaPayload is the shape handed to the schema-inference collaborator.
type MetaPayload struct {
	TotalRows  int              `json:"totalRows"`
	Columns    []string         `json:"columns"`
	DataTypes  map[string]string `json:"dataTypes"`
	NullCounts map[string]int    `json:"nullCounts"`
	SampleSize int              `json:"sampleSize"`
	SampleData []Record         `json:"sampleData"`
}

// Metadata builds the inference payload for this dataset.
func (d *Dataset) Metadata() MetaPayload {
	p := MetaPayload{
		TotalRows:  len(d.Records),
		Columns:    d.Columns,
		DataTypes:  make(map[string]string, len(d.Meta)),
		NullCounts: make(map[string]int, len(d.Meta)),
		SampleSize: d.SampleSize,
	}
	for _, m := range d.Meta {
		p.DataTypes[m.Name] = m.Type
		p.NullCounts[m.Name] = m.NullCount
	}
	n := maxSampleValues
	if n > len(d.Records) {
		n = len(d.Records)
	}
	p.SampleData = d.Records[:n]
	return p
}

var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"02-01-2006",
	"Jan 2, 2006",
	"2 Jan 2006",
	time.RFC3339,
	"2006-01-02 15:04:05",
}

// classifyValue buckets a raw cell into one of the advisory primitive
// types. Numeric strings are cleaned of thousands separators and
// currency symbols before classification.
func classifyValue(v any) string {
	s, ok := v.(string)
	if !ok {
		switch v.(type) {
		case bool:
			return "boolean"
		case int, int64:
			return "int"
		case float32, float64:
			return "double"
		default:
			return "string"
		}
	}

	s = strings.TrimSpace(s)
	if s == "" {
		return "null"
	}

	if cleaned, numeric := CleanNumeric(s); numeric {
		if _, err := strconv.ParseInt(cleaned, 10, 64); err == nil {
			return "int"
		}
		if _, err := strconv.ParseFloat(cleaned, 64); err == nil {
			return "double"
		}
	}

	switch strings.ToLower(s) {
	case "true", "false":
		return "boolean"
	}

	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return "date"
		}
	}

	return "string"
}

// CleanNumeric strips thousands separators, currency symbols, and
// accounting-style parentheses from a candidate numeric string. The
// second return reports whether the remainder looks numeric at all.
func CleanNumeric(s string) (string, bool) {
	s = strings.TrimSpace(s)

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	for _, sym := range []string{"$", "€", "£", "¥", "%"} {
		s = strings.ReplaceAll(s, sym, "")
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	if s == "" {
		return "", false
	}
	if negative {
		s = "-" + s
	}

	for i, r := range s {
		if r >= '0' && r <= '9' {
			continue
		}
		switch r {
		case '.', 'e', 'E':
			continue
		case '+', '-':
			if i == 0 || s[i-1] == 'e' || s[i-1] == 'E' {
				continue
			}
		}
		return s, false
	}
	return s, true
}

// ParseDate tries the supported date layouts in order.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
