package ingest

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"chartly/internal/schema"
	"chartly/internal/tabular"
)

// ── Type Coercion Engine ───────────────────────────────────
// Converts raw per-record values into the types the schema declares.
// The descriptor's ordered field list is traversed by index; fields
// the schema does not declare never reach the output document, and a
// value that fails to coerce is omitted rather than stored as null.

// converter turns a raw value into its declared type.
// Returns (value, false) when the raw value cannot be coerced.
type converter func(raw any) (any, bool)

// Coerce maps raw records onto documents according to the descriptor.
// The descriptor must already be normalized; record keys are normalized
// column names by construction.
func Coerce(records []tabular.Record, desc *schema.Descriptor) []Document {
	convs := make([]converter, len(desc.Fields))
	for i, f := range desc.Fields {
		convs[i] = converterFor(f.Type)
	}

	docs := make([]Document, 0, len(records))
	for _, rec := range records {
		doc := make(Document, len(desc.Fields))
		for i, f := range desc.Fields {
			raw, ok := rec[f.Name]
			if !ok || raw == nil {
				continue
			}
			if v, ok := convs[i](raw); ok {
				doc[f.Name] = v
			}
		}
		docs = append(docs, doc)
	}
	return docs
}

func converterFor(t schema.FieldType) converter {
	switch t {
	case schema.TypeInt:
		return coerceInt
	case schema.TypeDouble:
		return coerceDouble
	case schema.TypeBoolean:
		return coerceBool
	case schema.TypeDate:
		return coerceDate
	default:
		return coerceString
	}
}

func coerceString(raw any) (any, bool) {
	switch s := raw.(type) {
	case string:
		return s, true
	default:
		return fmt.Sprint(raw), true
	}
}

func coerceInt(raw any) (any, bool) {
	switch n := raw.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	case string:
		cleaned, numeric := tabular.CleanNumeric(n)
		if !numeric {
			return nil, false
		}
		if i, err := strconv.ParseInt(cleaned, 10, 64); err == nil {
			return i, true
		}
		// "1,234.00" style input: accept a float with no fraction.
		if f, err := strconv.ParseFloat(cleaned, 64); err == nil && f == float64(int64(f)) {
			return int64(f), true
		}
		return nil, false
	default:
		return nil, false
	}
}

func coerceDouble(raw any) (any, bool) {
	switch n := raw.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		cleaned, numeric := tabular.CleanNumeric(n)
		if !numeric {
			return nil, false
		}
		if f, err := strconv.ParseFloat(cleaned, 64); err == nil {
			return f, true
		}
		return nil, false
	default:
		return nil, false
	}
}

func coerceBool(raw any) (any, bool) {
	switch b := raw.(type) {
	case bool:
		return b, true
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "1":
			return true, true
		case "false", "0":
			return false, true
		}
		return nil, false
	case int:
		return b != 0, true
	case float64:
		return b != 0, true
	default:
		return nil, false
	}
}

func coerceDate(raw any) (any, bool) {
	switch d := raw.(type) {
	case time.Time:
		return d, true
	case string:
		if t, ok := tabular.ParseDate(d); ok {
			return t, true
		}
		return nil, false
	default:
		return nil, false
	}
}
