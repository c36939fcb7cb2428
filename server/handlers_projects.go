package server

import (
	"net/http"

	"github.com/jrsteele09/media-admin/projects"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ListProjectsHandler answers GET /api/projects with every project.
func (s *Server) ListProjectsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all, err := s.deps.Projects.List(r.Context())
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, all)
	}
}

// CreateProjectHandler answers POST /api/projects with 201 and the new project.
func (s *Server) CreateProjectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req projects.CreateRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, err)
			return
		}

		project, err := s.deps.Projects.Create(r.Context(), req)
		if err != nil {
			writeError(w, r, err)
			return
		}
		auditEvent(r).Str("project_id", project.ProjectID).Msg("project created")
		writeJSON(w, http.StatusCreated, project)
	}
}

func (s *Server) DeleteProjectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := r.PathValue("projectId")
		if err := s.deps.Projects.Delete(r.Context(), projectID); err != nil {
			writeError(w, r, err)
			return
		}
		auditEvent(r).Str("project_id", projectID).Msg("project deleted")
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

// auditEvent starts an info line carrying the caller's email.
func auditEvent(r *http.Request) *zerolog.Event {
	event := log.Ctx(r.Context()).Info()
	if user, ok := UserFromContext(r.Context()); ok {
		event = event.Str("email", user.Email)
	}
	return event
}
