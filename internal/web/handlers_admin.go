package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"chartly/internal/service"
)

// ── Saved connections ──────────────────────────────────────

func (s *Server) handleListConnections(w http.ResponseWriter, r *http.Request) {
	conns, err := s.conns.List(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, conns)
}

func (s *Server) handleCreateConnection(w http.ResponseWriter, r *http.Request) {
	var input service.ConnInput
	if err := decodeBody(r, &input); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	conn, err := s.conns.Create(r.Context(), userID(r), input)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	s.writeJSON(w, conn)
}

func (s *Server) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	var input service.ConnInput
	if err := decodeBody(r, &input); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.conns.TestConnection(r.Context(), input); err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.writeJSON(w, map[string]string{"status": "ok"})
}

func (s *Server) handleUpdateConnection(w http.ResponseWriter, r *http.Request) {
	var input service.ConnInput
	if err := decodeBody(r, &input); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.conns.Update(r.Context(), chi.URLParam(r, "connID"), input); err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteConnection(w http.ResponseWriter, r *http.Request) {
	if err := s.conns.Delete(r.Context(), chi.URLParam(r, "connID")); err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── Import jobs ────────────────────────────────────────────

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := s.imports.ListJobs(r.Context(), userID(r))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, jobs)
}

func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var input service.ImportJobInput
	if err := decodeBody(r, &input); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	job, err := s.imports.CreateJob(r.Context(), userID(r), input)
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
	s.writeJSON(w, job)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	job, err := s.imports.GetJob(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	s.writeJSON(w, job)
}

func (s *Server) handleUpdateJob(w http.ResponseWriter, r *http.Request) {
	var input service.ImportJobInput
	if err := decodeBody(r, &input); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := s.imports.UpdateJob(r.Context(), chi.URLParam(r, "jobID"), input); err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteJob(w http.ResponseWriter, r *http.Request) {
	if err := s.imports.DeleteJob(r.Context(), chi.URLParam(r, "jobID")); err != nil {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRunJob(w http.ResponseWriter, r *http.Request) {
	runLog, err := s.imports.RunJob(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		// The run log still carries partial counts when the run failed
		// part way through.
		if runLog != nil {
			w.WriteHeader(http.StatusUnprocessableEntity)
			s.writeJSON(w, runLog)
			return
		}
		s.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	s.writeJSON(w, runLog)
}

func (s *Server) handleListRunLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := s.imports.ListRunLogs(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, logs)
}
