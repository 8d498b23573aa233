package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chartly/internal/ingest"
	"chartly/internal/schema"
	"chartly/internal/service"
	"chartly/internal/sources"
	"chartly/internal/storage"
	"chartly/internal/web"
)

// ─────────────────────────────────────────────────────────────
// HTTP API tests — real SQLite stores behind the handlers, an
// in-memory document store behind the orchestrator.
// ─────────────────────────────────────────────────────────────

type memWriter struct {
	docs []ingest.Document
}

func (w *memWriter) InsertMany(_ context.Context, docs []ingest.Document) (int, error) {
	w.docs = append(w.docs, docs...)
	return len(docs), nil
}

func (w *memWriter) InsertOne(_ context.Context, doc ingest.Document) error {
	w.docs = append(w.docs, doc)
	return nil
}

type memApplier struct {
	writer *memWriter
}

func (a *memApplier) Provision(_ context.Context, _ *schema.Descriptor) (ingest.DocumentWriter, error) {
	return a.writer, nil
}

func (a *memApplier) Collection(_ string) ingest.DocumentWriter { return a.writer }
func (a *memApplier) Drop(_ context.Context, _ string) error    { return nil }

// memProvenance backs both the orchestrator writes and the API reads.
type memProvenance struct {
	records map[string]ingest.ProvenanceRecord
}

func (p *memProvenance) key(userID, ref string) string { return userID + "|" + ref }

func (p *memProvenance) Upsert(_ context.Context, rec *ingest.ProvenanceRecord) error {
	if p.records == nil {
		p.records = map[string]ingest.ProvenanceRecord{}
	}
	p.records[p.key(rec.UserID, rec.SourceRef)] = *rec
	return nil
}

func (p *memProvenance) AnnotateError(_ context.Context, _, _, _ string) {}

func (p *memProvenance) Get(_ context.Context, userID, ref string) (*ingest.ProvenanceRecord, error) {
	rec, ok := p.records[p.key(userID, ref)]
	if !ok {
		return nil, fmt.Errorf("provenance not found")
	}
	return &rec, nil
}

func (p *memProvenance) ListByUser(_ context.Context, userID string) ([]ingest.ProvenanceRecord, error) {
	var out []ingest.ProvenanceRecord
	for _, rec := range p.records {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func newTestServer(t *testing.T) (*web.Server, *memWriter) {
	t.Helper()
	dir := t.TempDir()
	db, err := storage.New(filepath.Join(dir, "app.db"), filepath.Join(dir, "uploads"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	log := logrus.New()
	log.SetOutput(io.Discard)

	uploads := storage.NewUploadStore(db)
	writer := &memWriter{}
	prov := &memProvenance{}
	orch := ingest.NewOrchestrator(&memApplier{writer: writer}, ingest.NewInserter(log), prov, log)

	registry := sources.NewRegistry(sources.NewUploadSource(uploads))
	imports := service.NewImportService(storage.NewJobStore(db), registry, orch, nil, log, 100, 50)
	conns := service.NewConnectionService(storage.NewConnectionStore(db), nil)

	return web.NewServer(imports, conns, uploads, prov, log, 1<<20), writer
}

func doJSON(t *testing.T, srv *web.Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", "u1")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func uploadCSV(t *testing.T, srv *web.Server, filename, content string) string {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/uploads", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("X-User-ID", "u1")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var up struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &up))
	return up.ID
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUploadImportFlow(t *testing.T) {
	srv, writer := newTestServer(t)
	uploadID := uploadCSV(t, srv, "orders.csv", "Order ID,Total\n1,$10.50\n2,20\n3,30\n")

	// Suggest a schema from the upload.
	rec := doJSON(t, srv, http.MethodPost, "/api/schema/suggest", map[string]any{
		"sourceType":     "upload",
		"sourceConfig":   map[string]any{"uploadId": uploadID},
		"collectionName": "orders",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var desc schema.Descriptor
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &desc))
	assert.Equal(t, "orders", desc.CollectionName)

	// Import the single page.
	rec = doJSON(t, srv, http.MethodPost, "/api/imports/page", map[string]any{
		"sourceType":   "upload",
		"sourceConfig": map[string]any{"uploadId": uploadID},
		"schema":       desc,
		"currentPage":  1,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res ingest.PageResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, 3, res.InsertedCount)
	assert.False(t, res.HasMoreData)
	assert.Len(t, writer.docs, 3)

	// Status reflects the completed import.
	rec = doJSON(t, srv, http.MethodGet, "/api/imports/status?sourceRef=upload:"+uploadID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var prov ingest.ProvenanceRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &prov))
	assert.True(t, prov.SchemaMetadata.ImportComplete)
	assert.Equal(t, 3, prov.RowCount)

	rec = doJSON(t, srv, http.MethodGet, "/api/imports", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestPreviewUnknownSource(t *testing.T) {
	srv, _ := newTestServer(t)
	rec := doJSON(t, srv, http.MethodPost, "/api/preview", map[string]any{
		"sourceType": "ftp",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestJobEndpoints(t *testing.T) {
	srv, writer := newTestServer(t)
	uploadID := uploadCSV(t, srv, "orders.csv", "Order ID,Total\n1,10\n2,20\n")

	rec := doJSON(t, srv, http.MethodPost, "/api/jobs", map[string]any{
		"name":           "Orders",
		"sourceType":     "upload",
		"sourceConfig":   map[string]any{"uploadId": uploadID},
		"collectionName": "orders",
		"enabled":        true,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var job struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))

	rec = doJSON(t, srv, http.MethodPost, "/api/jobs/"+job.ID+"/run", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Len(t, writer.docs, 2)

	rec = doJSON(t, srv, http.MethodGet, "/api/jobs/"+job.ID+"/logs", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, srv, http.MethodDelete, "/api/jobs/"+job.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestConnectionCRUD(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/api/connections", map[string]any{
		"name":     "warehouse",
		"driver":   "postgres",
		"host":     "db.internal",
		"port":     5432,
		"database": "warehouse",
		"username": "reader",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var conn struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conn))

	rec = doJSON(t, srv, http.MethodGet, "/api/connections", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "warehouse")

	rec = doJSON(t, srv, http.MethodDelete, "/api/connections/"+conn.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
