package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"chartly/internal/ingest"
)

// ── Provenance Store ───────────────────────────────────────
// Persists one ProvenanceRecord per (user, source) in its own
// collection, separate from the imported data.

// ProvenanceCollection is where import bookkeeping lives.
const ProvenanceCollection = "dataset_files"

// ErrProvenanceNotFound is returned when no record exists for the
// requested (user, source) pair.
var ErrProvenanceNotFound = errors.New("store: provenance record not found")

// ProvenanceStore implements ingest.ProvenanceUpdater on MongoDB.
type ProvenanceStore struct {
	coll *mongo.Collection
	log  *logrus.Logger
}

func NewProvenanceStore(s *Store) *ProvenanceStore {
	return &ProvenanceStore{
		coll: s.db.Collection(ProvenanceCollection),
		log:  s.log,
	}
}

// EnsureIndexes builds the unique (userId, sourceRef) index that backs
// the one-record-per-source invariant.
func (p *ProvenanceStore) EnsureIndexes(ctx context.Context) error {
	_, err := p.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "userId", Value: 1}, {Key: "sourceRef", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("provenance indexes: %w", err)
	}
	return nil
}

// Upsert writes the record keyed by (userId, sourceRef).
func (p *ProvenanceStore) Upsert(ctx context.Context, rec *ingest.ProvenanceRecord) error {
	filter := bson.M{"userId": rec.UserID, "sourceRef": rec.SourceRef}
	_, err := p.coll.ReplaceOne(ctx, filter, rec, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert provenance: %w", err)
	}
	return nil
}

// Get fetches the record for a (user, source) pair.
func (p *ProvenanceStore) Get(ctx context.Context, userID, sourceRef string) (*ingest.ProvenanceRecord, error) {
	var rec ingest.ProvenanceRecord
	err := p.coll.FindOne(ctx, bson.M{"userId": userID, "sourceRef": sourceRef}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrProvenanceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get provenance: %w", err)
	}
	return &rec, nil
}

// ListByUser returns all provenance records for a user.
func (p *ProvenanceStore) ListByUser(ctx context.Context, userID string) ([]ingest.ProvenanceRecord, error) {
	cursor, err := p.coll.Find(ctx, bson.M{"userId": userID})
	if err != nil {
		return nil, fmt.Errorf("list provenance: %w", err)
	}
	defer cursor.Close(ctx)

	var recs []ingest.ProvenanceRecord
	if err := cursor.All(ctx, &recs); err != nil {
		return nil, fmt.Errorf("decode provenance: %w", err)
	}
	return recs, nil
}

// AnnotateError best-effort records an error message on the record.
// Failures are logged, never returned, so annotation cannot mask the
// original import error.
func (p *ProvenanceStore) AnnotateError(ctx context.Context, userID, sourceRef, msg string) {
	filter := bson.M{"userId": userID, "sourceRef": sourceRef}
	update := bson.M{"$set": bson.M{
		"schemaMetadata.importError": msg,
		"lastUpdated":                time.Now(),
	}}
	if _, err := p.coll.UpdateOne(ctx, filter, update, options.UpdateOne().SetUpsert(true)); err != nil {
		p.log.WithFields(logrus.Fields{
			"userId":    userID,
			"sourceRef": sourceRef,
		}).WithError(err).Warn("failed to annotate provenance record")
	}
}
