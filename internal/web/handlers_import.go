package web

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/subtrack/internal/core"
	"github.com/go-chi/chi/v5"
)

// multipartMemory is how much of a multipart upload is held in memory
// before the rest spills to a temp file.
const multipartMemory = 8 << 20

// multipartOverhead allows for form boundaries and headers on top of the file.
const multipartOverhead = 1 << 20

// handleUpload accepts a multipart "file" field and opens a session.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxSize := s.service.MaxFileSize()
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			s.respondError(w, r, &core.FileError{Kind: core.FileTooLarge, Limit: maxSize, Err: err})
			return
		}
		badRequest(w, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		badRequest(w, "no file provided")
		return
	}
	defer file.Close()

	session, err := s.service.Upload(r.Context(), header.Filename, file)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, session.File)
}

// handlePreview parses the staged file and suggests a mapping.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	handle := chi.URLParam(r, "handle")
	entityType := r.URL.Query().Get("entity_type")
	if entityType == "" {
		badRequest(w, "missing entity_type query parameter")
		return
	}

	preview, err := s.service.Preview(r.Context(), handle, entityType)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, preview)
}

// ExecuteRequest is the body of POST /import/{entityType}.
type ExecuteRequest struct {
	Handle  string            `json:"handle"`
	Mapping core.FieldMapping `json:"mapping"`
}

// handleExecute runs the import of a session against an entity type.
func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "ref")

	var req ExecuteRequest
	if err := decodeJSON(r, &req); err != nil {
		badRequest(w, err.Error())
		return
	}
	if req.Handle == "" {
		badRequest(w, "missing handle")
		return
	}

	result, err := s.service.Execute(r.Context(), req.Handle, entityType, req.Mapping)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// handleTemplate returns an empty import file for an entity type.
func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	entityType := chi.URLParam(r, "entityType")

	format, err := core.ParseTemplateFormat(r.URL.Query().Get("format"))
	if err != nil {
		badRequest(w, err.Error())
		return
	}

	tpl, err := s.service.Template(entityType, format)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", tpl.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, tpl.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(tpl.Data)))
	w.Write(tpl.Data)
}

// SchemaListResponse is the body of GET /import/schemas.
type SchemaListResponse struct {
	Schemas []core.EntitySchema `json:"schemas"`
}

// handleListSchemas returns all importable entity types with their fields.
func (s *Server) handleListSchemas(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, SchemaListResponse{Schemas: s.service.Schemas()})
}

// handleSessionStatus returns a snapshot of a live session.
func (s *Server) handleSessionStatus(w http.ResponseWriter, r *http.Request) {
	session, err := s.service.Get(chi.URLParam(r, "ref"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// handleConfirmPreview acknowledges the preview and moves the session to mapping.
func (s *Server) handleConfirmPreview(w http.ResponseWriter, r *http.Request) {
	session, err := s.service.ConfirmPreview(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, session)
}

// handleAbort ends a session and discards its staged file.
func (s *Server) handleAbort(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Abort(r.Context(), chi.URLParam(r, "ref")); err != nil {
		s.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
