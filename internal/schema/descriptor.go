package schema

import (
	"fmt"

	"chartly/internal/tabular"
)

// ── Schema Descriptor ──────────────────────────────────────
// Declarative shape of a target collection: field types, constraints,
// and secondary indexes. Produced by the AI collaborator (or a caller)
// and applied once per import session.
//
// Field names are stored in normalized form. Normalize is called once
// when a descriptor enters the pipeline, so coercion and storage never
// have to reconcile naming conventions on the fly.

// FieldType enumerates the primitive types a field can declare.
type FieldType string

const (
	TypeString  FieldType = "string"
	TypeInt     FieldType = "int"
	TypeDouble  FieldType = "double"
	TypeBoolean FieldType = "boolean"
	TypeDate    FieldType = "date"
)

// FieldDef declares one field of the target collection.
type FieldDef struct {
	Name        string    `json:"name"`
	Type        FieldType `json:"type"`
	Required    bool      `json:"required,omitempty"`
	Unique      bool      `json:"unique,omitempty"`
	Indexed     bool      `json:"indexed,omitempty"`
	Description string    `json:"description,omitempty"`
}

// IndexDef declares one secondary index.
type IndexDef struct {
	Fields []string `json:"fields"`
	Kind   string   `json:"kind,omitempty"` // "unique" | ""
}

// Descriptor declares the target collection shape. Fields is an ordered
// list traversed by index — no runtime key iteration.
type Descriptor struct {
	CollectionName  string         `json:"collectionName"`
	Fields          []FieldDef     `json:"fields"`
	Indexes         []IndexDef     `json:"indexes,omitempty"`
	ValidationRules map[string]any `json:"validationRules,omitempty"`
}

// Normalize canonicalizes every field and index name in place and
// returns the descriptor for chaining. Idempotent.
func (d *Descriptor) Normalize() *Descriptor {
	for i := range d.Fields {
		d.Fields[i].Name = tabular.NormalizeHeader(d.Fields[i].Name)
	}
	for i := range d.Indexes {
		for j := range d.Indexes[i].Fields {
			d.Indexes[i].Fields[j] = tabular.NormalizeHeader(d.Indexes[i].Fields[j])
		}
	}
	return d
}

// Validate checks the descriptor is usable for provisioning.
func (d *Descriptor) Validate() error {
	if d.CollectionName == "" {
		return fmt.Errorf("schema: collection name required")
	}
	if len(d.Fields) == 0 {
		return fmt.Errorf("schema: at least one field required")
	}
	seen := make(map[string]bool, len(d.Fields))
	for _, f := range d.Fields {
		if f.Name == "" {
			return fmt.Errorf("schema: field with empty name")
		}
		if seen[f.Name] {
			return fmt.Errorf("schema: duplicate field %q", f.Name)
		}
		seen[f.Name] = true
		switch f.Type {
		case TypeString, TypeInt, TypeDouble, TypeBoolean, TypeDate:
		default:
			return fmt.Errorf("schema: field %q has unknown type %q", f.Name, f.Type)
		}
	}
	return nil
}

// Field returns the definition for a normalized field name, if declared.
func (d *Descriptor) Field(name string) (FieldDef, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldDef{}, false
}

// FieldNames returns the declared field names in order.
func (d *Descriptor) FieldNames() []string {
	names := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		names[i] = f.Name
	}
	return names
}
