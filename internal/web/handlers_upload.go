package web

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// handleCreateUpload accepts a multipart file and stores it for later
// import.
func (s *Server) handleCreateUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadSize)
	if err := r.ParseMultipartForm(s.maxUploadSize); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("parse multipart form: %w", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("missing file field: %w", err))
		return
	}
	defer file.Close()

	up, err := s.uploads.Save(r.Context(), userID(r), header.Filename, file)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	s.writeJSON(w, up)
}

func (s *Server) handleListUploads(w http.ResponseWriter, r *http.Request) {
	ups, err := s.uploads.ListByUser(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, ups)
}

func (s *Server) handleDeleteUpload(w http.ResponseWriter, r *http.Request) {
	if err := s.uploads.Delete(r.Context(), chi.URLParam(r, "uploadID")); err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
