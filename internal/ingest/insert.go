package ingest

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

// ── Batch Insertion Engine ─────────────────────────────────
// Writes coerced documents in fixed-size chunks using unordered
// multi-document inserts, degrading to per-document writes when a
// chunk is refused as a batch. Externally sourced data is often
// partially malformed, so the engine salvages every row it can and
// never fails the whole batch over individual rejections.

// DefaultBatchSize is the chunk size when the caller does not set one.
const DefaultBatchSize = 1000

// ErrDocumentRejected marks errors caused by the data itself (schema
// violation, duplicate key) rather than the infrastructure. Writers
// wrap per-document rejections with it so the engine can tell
// salvageable failures from fatal ones.
var ErrDocumentRejected = errors.New("ingest: document rejected")

// DocumentWriter is the destination for coerced documents. Implemented
// by the mongo-backed collection writer; tests supply fakes.
type DocumentWriter interface {
	// InsertMany performs an unordered multi-document insert. When some
	// documents are rejected but the rest land, it returns the number
	// inserted together with an error wrapping ErrDocumentRejected.
	InsertMany(ctx context.Context, docs []Document) (int, error)

	// InsertOne inserts a single document. A data-level rejection is
	// reported as an error wrapping ErrDocumentRejected.
	InsertOne(ctx context.Context, doc Document) error
}

// Inserter is the batch insertion engine.
type Inserter struct {
	BatchSize int
	Log       *logrus.Logger
}

// NewInserter returns an Inserter with the default chunk size.
func NewInserter(log *logrus.Logger) *Inserter {
	return &Inserter{BatchSize: DefaultBatchSize, Log: log}
}

// Insert writes docs to w in chunks and returns the best-effort count
// of documents that landed. Partial failure never produces an error:
// rejected documents are logged and skipped. Only infrastructure
// faults propagate, alongside whatever count was reached before them.
func (in *Inserter) Insert(ctx context.Context, w DocumentWriter, docs []Document) (int, error) {
	size := in.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	inserted := 0
	for start := 0; start < len(docs); start += size {
		end := start + size
		if end > len(docs) {
			end = len(docs)
		}
		chunk := docs[start:end]

		n, err := w.InsertMany(ctx, chunk)
		switch {
		case err == nil:
			inserted += n

		case errors.Is(err, ErrDocumentRejected) && n > 0:
			// The unordered write already salvaged everything it could.
			inserted += n
			in.Log.WithFields(logrus.Fields{
				"chunkStart": start,
				"inserted":   n,
				"rejected":   len(chunk) - n,
			}).Warn("chunk partially inserted")

		case errors.Is(err, ErrDocumentRejected):
			// Whole chunk refused as a batch: retry one document at a
			// time so a single bad row cannot sink its neighbours.
			n, err := in.insertOneByOne(ctx, w, chunk, start)
			inserted += n
			if err != nil {
				return inserted, err
			}

		default:
			return inserted, err
		}
	}
	return inserted, nil
}

func (in *Inserter) insertOneByOne(ctx context.Context, w DocumentWriter, chunk []Document, offset int) (int, error) {
	inserted := 0
	for i, doc := range chunk {
		err := w.InsertOne(ctx, doc)
		if err == nil {
			inserted++
			continue
		}
		if errors.Is(err, ErrDocumentRejected) {
			in.Log.WithFields(logrus.Fields{
				"index": offset + i,
				"error": err.Error(),
			}).Warn("document rejected, skipping")
			continue
		}
		return inserted, err
	}
	return inserted, nil
}
