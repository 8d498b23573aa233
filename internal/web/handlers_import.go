package web

import (
	"fmt"
	"net/http"

	"chartly/internal/service"
	"chartly/internal/sources"
)

func (s *Server) handleListSources(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, s.imports.ListSources())
}

type sourceRequest struct {
	SourceType     string         `json:"sourceType"`
	SourceConfig   map[string]any `json:"sourceConfig"`
	CollectionName string         `json:"collectionName"`
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req sourceRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	preview, err := s.imports.Preview(r.Context(), req.SourceType, sources.SourceConfig(req.SourceConfig))
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.writeJSON(w, preview)
}

func (s *Server) handleSuggestSchema(w http.ResponseWriter, r *http.Request) {
	var req sourceRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	desc, err := s.imports.SuggestSchema(r.Context(), req.SourceType, sources.SourceConfig(req.SourceConfig), req.CollectionName)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.writeJSON(w, desc)
}

// handleImportPage runs one page of an import. Clients call it again
// with currentPage+1 while hasMoreData is true.
func (s *Server) handleImportPage(w http.ResponseWriter, r *http.Request) {
	var input service.ImportPageInput
	if err := decodeBody(r, &input); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	input.UserID = userID(r)

	res, err := s.imports.ImportPage(r.Context(), input)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.writeJSON(w, res)
}

func (s *Server) handleListImports(w http.ResponseWriter, r *http.Request) {
	recs, err := s.provenance.ListByUser(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, recs)
}

func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	ref := r.URL.Query().Get("sourceRef")
	if ref == "" {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("sourceRef query parameter is required"))
		return
	}

	rec, err := s.provenance.Get(r.Context(), userID(r), ref)
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	s.writeJSON(w, rec)
}
