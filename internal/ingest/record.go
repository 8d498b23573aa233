package ingest

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"chartly/internal/schema"
)

// ── Import pipeline types ──────────────────────────────────
// Raw records come out of the decoder keyed by normalized column
// names; Documents are what the coercion engine produces and the
// insertion engine persists.

// Document is a coerced record ready for the document store.
type Document = bson.M

// ProvenanceRecord is the persisted bookkeeping entity for one import
// session: one per (user, source), created on the first page and
// updated on every page after that. Never deleted by the pipeline.
type ProvenanceRecord struct {
	UserID         string         `bson:"userId" json:"userId"`
	SourceRef      string         `bson:"sourceRef" json:"sourceRef"`
	CollectionName string         `bson:"collectionName" json:"collectionName"`
	RowCount       int            `bson:"rowCount" json:"rowCount"`
	SchemaMetadata SchemaMetadata `bson:"schemaMetadata" json:"schemaMetadata"`
	LastUpdated    time.Time      `bson:"lastUpdated" json:"lastUpdated"`
}

// SchemaMetadata is the import-progress block nested inside a
// ProvenanceRecord.
type SchemaMetadata struct {
	Fields            []schema.FieldDef `bson:"fields" json:"fields"`
	ImportedCount     int               `bson:"importedCount" json:"importedCount"`
	TotalRows         int               `bson:"totalRows" json:"totalRows"`
	ImportProgress    int               `bson:"importProgress" json:"importProgress"`
	ImportComplete    bool              `bson:"importComplete" json:"importComplete"`
	ImportCompletedAt *time.Time        `bson:"importCompletedAt,omitempty" json:"importCompletedAt,omitempty"`
	ImportError       string            `bson:"importError,omitempty" json:"importError,omitempty"`
}
