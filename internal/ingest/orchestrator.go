package ingest

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"chartly/internal/schema"
	"chartly/internal/tabular"
)

// ── Import Orchestrator ────────────────────────────────────
// Drives one page of an import end-to-end: optional drop, schema
// provisioning, slicing the decoded dataset, coercion, insertion, and
// the provenance update. Paging is caller-driven — there is no
// internal scheduler; each RunPage call is one synchronous unit.

// DefaultPageSize bounds a single page when the caller does not set one.
const DefaultPageSize = 1000

// ErrSchemaUnavailable is returned when no schema was supplied and none
// could be derived.
var ErrSchemaUnavailable = fmt.Errorf("ingest: no schema available")

// SchemaApplier provisions target collections. Implemented by the
// mongo store.
type SchemaApplier interface {
	// Provision creates the collection if absent (advisory validation,
	// declared indexes) and returns a writer for it. An existing
	// collection is reused unchanged.
	Provision(ctx context.Context, desc *schema.Descriptor) (DocumentWriter, error)

	// Collection returns a writer for an already-provisioned collection.
	Collection(name string) DocumentWriter

	// Drop removes the named collection. Dropping a collection that
	// does not exist is a no-op.
	Drop(ctx context.Context, name string) error
}

// ProvenanceUpdater persists import bookkeeping.
type ProvenanceUpdater interface {
	Upsert(ctx context.Context, rec *ProvenanceRecord) error

	// AnnotateError best-effort records an error message on the
	// provenance record. It must not fail the import path.
	AnnotateError(ctx context.Context, userID, sourceRef, msg string)
}

// PageRequest is the input for one page of an import session.
type PageRequest struct {
	UserID         string
	SourceRef      string
	Dataset        *tabular.Dataset
	Schema         *schema.Descriptor
	CollectionName string // overrides Schema.CollectionName when set
	DropCollection bool   // honored on page 1 only
	CurrentPage    int    // 1-based
	PageSize       int
}

// PageResult is the outcome of one page.
type PageResult struct {
	CollectionName string            `json:"collectionName"`
	TotalRows      int               `json:"totalRows"`
	InsertedCount  int               `json:"insertedCount"`
	HasMoreData    bool              `json:"hasMoreData"`
	Fields         []schema.FieldDef `json:"fields"`
}

// Orchestrator wires the schema applier, inserter, and provenance
// store together. All collaborators are injected.
type Orchestrator struct {
	applier    SchemaApplier
	inserter   *Inserter
	provenance ProvenanceUpdater
	log        *logrus.Logger
}

func NewOrchestrator(applier SchemaApplier, inserter *Inserter, provenance ProvenanceUpdater, log *logrus.Logger) *Orchestrator {
	return &Orchestrator{
		applier:    applier,
		inserter:   inserter,
		provenance: provenance,
		log:        log,
	}
}

// RunPage executes one page of an import session. On error the
// provenance record is best-effort annotated before the error is
// returned; a partial page still yields a result.
func (o *Orchestrator) RunPage(ctx context.Context, req PageRequest) (*PageResult, error) {
	res, err := o.runPage(ctx, req)
	if err != nil {
		o.provenance.AnnotateError(ctx, req.UserID, req.SourceRef, err.Error())
		return nil, err
	}
	return res, nil
}

func (o *Orchestrator) runPage(ctx context.Context, req PageRequest) (*PageResult, error) {
	if req.Dataset == nil {
		return nil, fmt.Errorf("ingest: no dataset")
	}
	if req.Schema == nil {
		return nil, ErrSchemaUnavailable
	}
	if req.CurrentPage < 1 {
		return nil, fmt.Errorf("ingest: invalid page %d", req.CurrentPage)
	}
	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	desc := req.Schema.Normalize()
	if req.CollectionName != "" {
		desc.CollectionName = req.CollectionName
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	collName := desc.CollectionName

	logger := o.log.WithFields(logrus.Fields{
		"collection": collName,
		"sourceRef":  req.SourceRef,
		"page":       req.CurrentPage,
	})

	// Drop is only honored on page 1 so a stray flag on a later page
	// cannot reset the collection mid-import.
	var writer DocumentWriter
	if req.CurrentPage == 1 {
		if req.DropCollection {
			if err := o.applier.Drop(ctx, collName); err != nil {
				return nil, fmt.Errorf("drop collection: %w", err)
			}
			logger.Info("collection dropped before import")
		}
		w, err := o.applier.Provision(ctx, desc)
		if err != nil {
			return nil, fmt.Errorf("provision schema: %w", err)
		}
		writer = w
	} else {
		writer = o.applier.Collection(collName)
	}

	totalRows := req.Dataset.TotalRows()
	sliceStart := (req.CurrentPage - 1) * pageSize
	sliceEnd := sliceStart + pageSize
	if sliceEnd > totalRows {
		sliceEnd = totalRows
	}

	inserted := 0
	if sliceStart < totalRows {
		docs := Coerce(req.Dataset.Slice(sliceStart, sliceEnd), desc)
		n, err := o.inserter.Insert(ctx, writer, docs)
		inserted = n
		if err != nil {
			return nil, fmt.Errorf("insert page: %w", err)
		}
	}

	hasMore := sliceEnd < totalRows

	importedCount := sliceStart + inserted
	if importedCount > totalRows {
		importedCount = totalRows
	}

	rec := &ProvenanceRecord{
		UserID:         req.UserID,
		SourceRef:      req.SourceRef,
		CollectionName: collName,
		RowCount:       totalRows,
		SchemaMetadata: SchemaMetadata{
			Fields:         desc.Fields,
			ImportedCount:  importedCount,
			TotalRows:      totalRows,
			ImportProgress: progressPct(importedCount, totalRows),
		},
		LastUpdated: time.Now(),
	}

	if !hasMore {
		now := time.Now()
		rec.SchemaMetadata.ImportComplete = true
		rec.SchemaMetadata.ImportCompletedAt = &now
		if importedCount != totalRows {
			// Best-effort completion: some rows were rejected along the
			// way. The job is complete, the counts just shrink to match
			// what actually landed.
			logger.WithFields(logrus.Fields{
				"expected": totalRows,
				"imported": importedCount,
			}).Warn("import finished with fewer rows than the source")
			rec.RowCount = importedCount
			rec.SchemaMetadata.TotalRows = importedCount
			rec.SchemaMetadata.ImportProgress = progressPct(importedCount, importedCount)
		}
	}

	if err := o.provenance.Upsert(ctx, rec); err != nil {
		return nil, fmt.Errorf("update provenance: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"inserted": inserted,
		"hasMore":  hasMore,
	}).Info("import page completed")

	return &PageResult{
		CollectionName: collName,
		TotalRows:      totalRows,
		InsertedCount:  inserted,
		HasMoreData:    hasMore,
		Fields:         desc.Fields,
	}, nil
}

func progressPct(imported, total int) int {
	if total <= 0 {
		return 100
	}
	return int(math.Round(float64(imported) / float64(total) * 100))
}
