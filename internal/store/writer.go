package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"chartly/internal/ingest"
)

// collectionWriter adapts a mongo collection to ingest.DocumentWriter.
// Data-level failures (duplicate keys, write errors on individual
// documents) are wrapped with ingest.ErrDocumentRejected so the
// insertion engine can salvage the rest; anything else is treated as
// an infrastructure fault and propagates untouched.
type collectionWriter struct {
	coll *mongo.Collection
}

func (w *collectionWriter) InsertMany(ctx context.Context, docs []ingest.Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	_, err := w.coll.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err == nil {
		return len(docs), nil
	}

	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) {
		inserted := len(docs) - len(bwe.WriteErrors)
		if inserted < 0 {
			inserted = 0
		}
		return inserted, fmt.Errorf("%d of %d documents rejected: %w", len(bwe.WriteErrors), len(docs), ingest.ErrDocumentRejected)
	}

	return 0, err
}

func (w *collectionWriter) InsertOne(ctx context.Context, doc ingest.Document) error {
	_, err := w.coll.InsertOne(ctx, doc)
	if err == nil {
		return nil
	}

	var we mongo.WriteException
	if mongo.IsDuplicateKeyError(err) || errors.As(err, &we) {
		return fmt.Errorf("%v: %w", err, ingest.ErrDocumentRejected)
	}

	return err
}
