// Package web provides the HTTP API for uploads, schema suggestion,
// and imports.
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"chartly/internal/ingest"
	"chartly/internal/service"
	"chartly/internal/storage"
)

// ProvenanceReader exposes import bookkeeping to the API. Implemented
// by the mongo provenance store.
type ProvenanceReader interface {
	Get(ctx context.Context, userID, sourceRef string) (*ingest.ProvenanceRecord, error)
	ListByUser(ctx context.Context, userID string) ([]ingest.ProvenanceRecord, error)
}

// Server is the HTTP server for the import API.
type Server struct {
	imports       *service.ImportService
	conns         *service.ConnectionService
	uploads       *storage.UploadStore
	provenance    ProvenanceReader
	log           *logrus.Logger
	maxUploadSize int64

	router *chi.Mux
	server *http.Server
}

func NewServer(
	imports *service.ImportService,
	conns *service.ConnectionService,
	uploads *storage.UploadStore,
	provenance ProvenanceReader,
	log *logrus.Logger,
	maxUploadSize int64,
) *Server {
	s := &Server{
		imports:       imports,
		conns:         conns,
		uploads:       uploads,
		provenance:    provenance,
		log:           log,
		maxUploadSize: maxUploadSize,
		router:        chi.NewRouter(),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
	s.router.Use(middleware.Timeout(5 * time.Minute))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		// Uploads
		r.Post("/uploads", s.handleCreateUpload)
		r.Get("/uploads", s.handleListUploads)
		r.Delete("/uploads/{uploadID}", s.handleDeleteUpload)

		// Sources, preview, schema suggestion
		r.Get("/sources", s.handleListSources)
		r.Post("/preview", s.handlePreview)
		r.Post("/schema/suggest", s.handleSuggestSchema)

		// Page-by-page imports + provenance
		r.Post("/imports/page", s.handleImportPage)
		r.Get("/imports", s.handleListImports)
		r.Get("/imports/status", s.handleImportStatus)

		// Saved connections
		r.Get("/connections", s.handleListConnections)
		r.Post("/connections", s.handleCreateConnection)
		r.Post("/connections/test", s.handleTestConnection)
		r.Put("/connections/{connID}", s.handleUpdateConnection)
		r.Delete("/connections/{connID}", s.handleDeleteConnection)

		// Saved import jobs
		r.Get("/jobs", s.handleListJobs)
		r.Post("/jobs", s.handleCreateJob)
		r.Get("/jobs/{jobID}", s.handleGetJob)
		r.Put("/jobs/{jobID}", s.handleUpdateJob)
		r.Delete("/jobs/{jobID}", s.handleDeleteJob)
		r.Post("/jobs/{jobID}/run", s.handleRunJob)
		r.Get("/jobs/{jobID}/logs", s.handleListRunLogs)
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  60 * time.Second,
	}
	s.log.WithField("addr", addr).Info("http server listening")
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, map[string]string{"status": "ok"})
}

// userID identifies the caller. Authentication happens upstream at the
// gateway; it forwards the user in a header.
func userID(r *http.Request) string {
	if uid := r.Header.Get("X-User-ID"); uid != "" {
		return uid
	}
	return "default"
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.log.WithError(err).WithField("status", status).Warn("request failed")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Error("json encode")
	}
}

func decodeBody(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}
