package schema

import (
	"context"

	"chartly/internal/tabular"
)

// ── Schema Suggestion ──────────────────────────────────────
// A Suggester proposes a Descriptor from decoded column metadata. The
// production implementation calls the AI service; HeuristicSuggester is
// the built-in fallback and the default for tests and local runs.
// Either way the result is advisory — the caller may edit it before
// starting an import.

// Suggester proposes a collection schema from dataset metadata.
type Suggester interface {
	Suggest(ctx context.Context, collectionName string, meta tabular.MetaPayload) (*Descriptor, error)
}

// HeuristicSuggester maps advisory column types straight to field
// definitions, indexing columns that look like identifiers.
type HeuristicSuggester struct{}

func (HeuristicSuggester) Suggest(_ context.Context, collectionName string, meta tabular.MetaPayload) (*Descriptor, error) {
	desc := &Descriptor{
		CollectionName: collectionName,
		Fields:         make([]FieldDef, 0, len(meta.Columns)),
	}

	for _, col := range meta.Columns {
		ft := fieldTypeFor(meta.DataTypes[col])
		f := FieldDef{
			Name:     col,
			Type:     ft,
			Required: meta.NullCounts[col] == 0 && meta.SampleSize > 0,
		}
		if looksLikeID(col) {
			f.Indexed = true
			desc.Indexes = append(desc.Indexes, IndexDef{Fields: []string{col}})
		}
		desc.Fields = append(desc.Fields, f)
	}

	return desc.Normalize(), nil
}

func fieldTypeFor(advisory string) FieldType {
	switch advisory {
	case "int":
		return TypeInt
	case "double":
		return TypeDouble
	case "boolean":
		return TypeBoolean
	case "date":
		return TypeDate
	default:
		// "null" and "string" both fall back to string: an all-null
		// sample tells us nothing about the real type.
		return TypeString
	}
}

func looksLikeID(col string) bool {
	if col == "id" || col == "_id" {
		return true
	}
	n := len(col)
	return n > 3 && col[n-3:] == "_id"
}
