package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"chartly/internal/ingest"
	"chartly/internal/schema"
)

// ── Schema Applier ─────────────────────────────────────────
// Provisions a target collection from a schema descriptor. An existing
// collection is reused unchanged — destructive resets only happen when
// the orchestrator explicitly drops first. New collections get a
// $jsonSchema validator in "warn" mode: ingestion sources are
// imperfectly typed, and hard-rejecting on the first violation would
// make imports all-or-nothing.

// Provision creates the collection for desc if absent, with advisory
// validation and every declared secondary index, and returns a writer
// for it. Implements ingest.SchemaApplier together with Collection and
// Drop.
func (s *Store) Provision(ctx context.Context, desc *schema.Descriptor) (ingest.DocumentWriter, error) {
	exists, err := s.CollectionExists(ctx, desc.CollectionName)
	if err != nil {
		return nil, err
	}
	if exists {
		s.log.WithField("collection", desc.CollectionName).Debug("collection exists, reusing")
		return s.Collection(desc.CollectionName), nil
	}

	opts := options.CreateCollection().
		SetValidator(bson.M{"$jsonSchema": jsonSchemaFor(desc)}).
		SetValidationAction("warn").
		SetValidationLevel("moderate")

	if err := s.db.CreateCollection(ctx, desc.CollectionName, opts); err != nil {
		return nil, fmt.Errorf("create collection %q: %w", desc.CollectionName, err)
	}

	models := indexModelsFor(desc)
	if len(models) > 0 {
		coll := s.db.Collection(desc.CollectionName)
		if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
			return nil, fmt.Errorf("create indexes on %q: %w", desc.CollectionName, err)
		}
	}

	s.log.WithFields(map[string]any{
		"collection": desc.CollectionName,
		"fields":     len(desc.Fields),
		"indexes":    len(models),
	}).Info("collection provisioned")

	return s.Collection(desc.CollectionName), nil
}

// Collection returns a writer for an existing collection.
func (s *Store) Collection(name string) ingest.DocumentWriter {
	return &collectionWriter{coll: s.db.Collection(name)}
}

// jsonSchemaFor builds the $jsonSchema document for a descriptor.
// Numeric fields accept the wider BSON numeric family so that,
// e.g., an int that arrives as a long does not trip the validator.
func jsonSchemaFor(desc *schema.Descriptor) bson.M {
	props := bson.M{}
	var required []string

	for _, f := range desc.Fields {
		prop := bson.M{}
		switch f.Type {
		case schema.TypeInt:
			prop["bsonType"] = bson.A{"int", "long"}
		case schema.TypeDouble:
			prop["bsonType"] = bson.A{"double", "int", "long", "decimal"}
		case schema.TypeBoolean:
			prop["bsonType"] = "bool"
		case schema.TypeDate:
			prop["bsonType"] = "date"
		default:
			prop["bsonType"] = "string"
		}
		if f.Description != "" {
			prop["description"] = f.Description
		}
		props[f.Name] = prop

		if f.Required {
			required = append(required, f.Name)
		}
	}

	js := bson.M{
		"bsonType":   "object",
		"properties": props,
	}
	if len(required) > 0 {
		js["required"] = required
	}
	for k, v := range desc.ValidationRules {
		js[k] = v
	}
	return js
}

// indexModelsFor collects declared indexes plus per-field
// indexed/unique flags, deduplicating single-field overlaps.
func indexModelsFor(desc *schema.Descriptor) []mongo.IndexModel {
	var models []mongo.IndexModel
	covered := make(map[string]bool)

	for _, idx := range desc.Indexes {
		if len(idx.Fields) == 0 {
			continue
		}
		keys := bson.D{}
		for _, f := range idx.Fields {
			keys = append(keys, bson.E{Key: f, Value: 1})
		}
		m := mongo.IndexModel{Keys: keys}
		if idx.Kind == "unique" {
			m.Options = options.Index().SetUnique(true)
		}
		models = append(models, m)
		if len(idx.Fields) == 1 {
			covered[idx.Fields[0]] = true
		}
	}

	for _, f := range desc.Fields {
		if !f.Indexed && !f.Unique {
			continue
		}
		if covered[f.Name] {
			continue
		}
		m := mongo.IndexModel{Keys: bson.D{{Key: f.Name, Value: 1}}}
		if f.Unique {
			m.Options = options.Index().SetUnique(true)
		}
		models = append(models, m)
		covered[f.Name] = true
	}

	return models
}
