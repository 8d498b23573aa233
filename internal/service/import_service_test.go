package service_test

import (
	"context"
	"io"
	"path/filepath"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chartly/internal/domain"
	"chartly/internal/ingest"
	"chartly/internal/schema"
	"chartly/internal/service"
	"chartly/internal/sources"
	"chartly/internal/storage"
	"chartly/internal/tabular"
)

// ─────────────────────────────────────────────────────────────
// ImportService tests — real SQLite job store, in-memory document
// store fakes behind the orchestrator.
// ─────────────────────────────────────────────────────────────

type memWriter struct {
	mu   sync.Mutex
	docs []ingest.Document
}

func (w *memWriter) InsertMany(_ context.Context, docs []ingest.Document) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.docs = append(w.docs, docs...)
	return len(docs), nil
}

func (w *memWriter) InsertOne(_ context.Context, doc ingest.Document) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.docs = append(w.docs, doc)
	return nil
}

type memApplier struct {
	writer     *memWriter
	provisions int
	dropped    []string
}

func (a *memApplier) Provision(_ context.Context, _ *schema.Descriptor) (ingest.DocumentWriter, error) {
	a.provisions++
	return a.writer, nil
}

func (a *memApplier) Collection(_ string) ingest.DocumentWriter { return a.writer }

func (a *memApplier) Drop(_ context.Context, name string) error {
	a.dropped = append(a.dropped, name)
	return nil
}

type memProvenance struct {
	records []ingest.ProvenanceRecord
	errs    []string
}

func (p *memProvenance) Upsert(_ context.Context, rec *ingest.ProvenanceRecord) error {
	p.records = append(p.records, *rec)
	return nil
}

func (p *memProvenance) AnnotateError(_ context.Context, _, _, msg string) {
	p.errs = append(p.errs, msg)
}

// stubSource serves a fixed cell grid.
type stubSource struct {
	rows [][]string
}

func (s *stubSource) Spec() sources.SourceSpec {
	return sources.SourceSpec{Type: "stub", Label: "Stub"}
}

func (s *stubSource) Resolve(_ context.Context, _ sources.SourceConfig, sampleSize int) (*tabular.Dataset, error) {
	return tabular.FromRows(s.rows, sampleSize)
}

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestService(t *testing.T, pageSize int) (*service.ImportService, *memApplier, *memProvenance) {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.New(filepath.Join(dir, "app.db"), filepath.Join(dir, "uploads"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	applier := &memApplier{writer: &memWriter{}}
	prov := &memProvenance{}
	log := quietLogger()

	orch := ingest.NewOrchestrator(applier, ingest.NewInserter(log), prov, log)
	registry := sources.NewRegistry(&stubSource{rows: [][]string{
		{"Order ID", "Total", "Shipped"},
		{"1", "$10.50", "true"},
		{"2", "20", "false"},
		{"3", "30", "true"},
		{"4", "40", "false"},
		{"5", "50", "true"},
	}})

	svc := service.NewImportService(storage.NewJobStore(db), registry, orch, nil, log, pageSize, 50)
	return svc, applier, prov
}

func TestImportService_JobCRUD(t *testing.T) {
	svc, _, _ := newTestService(t, 2)
	ctx := context.Background()

	_, err := svc.CreateJob(ctx, "u1", service.ImportJobInput{Name: "Bad", SourceType: "nope"})
	assert.Error(t, err)

	job, err := svc.CreateJob(ctx, "u1", service.ImportJobInput{
		Name:           "Orders",
		SourceType:     "stub",
		CollectionName: "orders",
		Enabled:        true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, domain.TriggerManual, job.TriggerType)

	jobs, err := svc.ListJobs(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	err = svc.UpdateJob(ctx, job.ID, service.ImportJobInput{
		Name:           "Orders v2",
		SourceType:     "stub",
		CollectionName: "orders",
	})
	require.NoError(t, err)

	got, err := svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, "Orders v2", got.Name)

	require.NoError(t, svc.DeleteJob(ctx, job.ID))
	_, err = svc.GetJob(ctx, job.ID)
	assert.Error(t, err)
}

func TestImportService_RunJobFullImport(t *testing.T) {
	svc, applier, prov := newTestService(t, 2)
	ctx := context.Background()

	job, err := svc.CreateJob(ctx, "u1", service.ImportJobInput{
		Name:           "Orders",
		SourceType:     "stub",
		SourceConfig:   map[string]any{"uploadId": "u-42"},
		CollectionName: "orders",
		DropOnRun:      true,
		Enabled:        true,
	})
	require.NoError(t, err)

	runLog, err := svc.RunJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusSuccess, runLog.Status)
	assert.Equal(t, 5, runLog.RowsRead)
	assert.Equal(t, 5, runLog.RowsInserted)

	// 5 rows at page size 2 → 3 pages, schema provisioned once,
	// collection dropped once.
	assert.Equal(t, 1, applier.provisions)
	assert.Equal(t, []string{"orders"}, applier.dropped)
	assert.Len(t, applier.writer.docs, 5)

	// Coercion went through the suggested schema.
	first := applier.writer.docs[0]
	assert.Equal(t, int64(1), first["order_id"])
	assert.Equal(t, 10.5, first["total"])
	assert.Equal(t, true, first["shipped"])

	// Final provenance record is marked complete.
	require.NotEmpty(t, prov.records)
	last := prov.records[len(prov.records)-1]
	assert.True(t, last.SchemaMetadata.ImportComplete)
	assert.Equal(t, 100, last.SchemaMetadata.ImportProgress)
	assert.Equal(t, "stub:u-42", last.SourceRef)

	// Job status and run logs landed in SQLite.
	got, err := svc.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusSuccess, got.LastStatus)

	logs, err := svc.ListRunLogs(ctx, job.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, 5, logs[0].RowsInserted)
}

func TestImportService_RunJobPinnedSchema(t *testing.T) {
	svc, applier, _ := newTestService(t, 10)
	ctx := context.Background()

	job, err := svc.CreateJob(ctx, "u1", service.ImportJobInput{
		Name:       "Orders",
		SourceType: "stub",
		SchemaJSON: `{"collectionName":"pinned","fields":[{"name":"order_id","type":"string"}]}`,
		Enabled:    true,
	})
	require.NoError(t, err)

	runLog, err := svc.RunJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 5, runLog.RowsInserted)

	// Only the pinned field survives coercion.
	first := applier.writer.docs[0]
	assert.Equal(t, "1", first["order_id"])
	_, hasTotal := first["total"]
	assert.False(t, hasTotal)
}

func TestImportService_ImportPage(t *testing.T) {
	svc, applier, _ := newTestService(t, 2)
	ctx := context.Background()

	desc := &schema.Descriptor{
		CollectionName: "orders",
		Fields: []schema.FieldDef{
			{Name: "order_id", Type: schema.TypeInt},
			{Name: "total", Type: schema.TypeDouble},
		},
	}

	input := service.ImportPageInput{
		UserID:         "u1",
		SourceType:     "stub",
		SourceConfig:   map[string]any{"uploadId": "u-42"},
		Schema:         desc,
		DropCollection: true,
		CurrentPage:    1,
		PageSize:       2,
	}

	var pages []bool
	for {
		res, err := svc.ImportPage(ctx, input)
		require.NoError(t, err)
		pages = append(pages, res.HasMoreData)
		if !res.HasMoreData {
			break
		}
		input.CurrentPage++
	}
	assert.Equal(t, []bool{true, true, false}, pages)
	assert.Len(t, applier.writer.docs, 5)
	assert.Equal(t, 1, applier.provisions)
}

func TestImportService_PreviewAndSuggest(t *testing.T) {
	svc, _, _ := newTestService(t, 2)
	ctx := context.Background()

	preview, err := svc.Preview(ctx, "stub", nil)
	require.NoError(t, err)
	assert.Equal(t, 5, preview.Meta.TotalRows)
	assert.Len(t, preview.Records, 5)
	assert.Equal(t, "boolean", preview.Meta.DataTypes["shipped"])

	desc, err := svc.SuggestSchema(ctx, "stub", nil, "orders")
	require.NoError(t, err)
	assert.Equal(t, "orders", desc.CollectionName)
	got, ok := desc.Field("order_id")
	require.True(t, ok)
	assert.True(t, got.Indexed)
}

func TestImportService_StopIdempotent(t *testing.T) {
	svc, _, _ := newTestService(t, 2)
	svc.Stop()
	svc.Stop()
}

func TestImportService_RestartWatchersConcurrent(t *testing.T) {
	// Job CRUD handlers restart the watchers from concurrent requests;
	// overlapping restarts and a final Stop must not race or leak.
	svc, _, _ := newTestService(t, 2)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.RestartWatchers(ctx)
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		svc.Stop()
	}()
	wg.Wait()
	svc.Stop()
}
