package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/hyperjump/brandguard/internal/models"
	bgerr "github.com/hyperjump/brandguard/pkg/errors"
)

// ImageField is the multipart field carrying the candidate logo.
const ImageField = "image"

const defaultReferenceLimit = 100

// multipartOverhead is the slack allowed for multipart headers and boundaries.
const multipartOverhead = 1 << 20

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	limit := s.config.MaxUploadBytes
	bodyLimit := limit + multipartOverhead
	r.Body = http.MaxBytesReader(w, r.Body, bodyLimit)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || r.ContentLength > bodyLimit {
			s.respondError(w, http.StatusRequestEntityTooLarge, "image too large")
			return
		}
		s.respondError(w, http.StatusBadRequest, "expected multipart form with an image field")
		return
	}
	file, header, err := r.FormFile(ImageField)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "image field is required")
		return
	}
	defer file.Close()
	if header.Size > limit {
		s.respondError(w, http.StatusRequestEntityTooLarge, "image too large")
		return
	}
	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "cannot read image")
		return
	}

	query := models.SearchQuery{Image: data}
	if raw := r.URL.Query().Get("k"); raw != "" {
		k, err := strconv.Atoi(raw)
		if err != nil || k < 1 {
			s.respondError(w, http.StatusBadRequest, "k must be a positive integer")
			return
		}
		query.K = k
	}
	if raw := r.URL.Query().Get("hints"); raw != "" {
		hints, err := strconv.ParseBool(raw)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, "hints must be a boolean")
			return
		}
		query.Hints = hints
	}

	s.logger.Debug("search request",
		zap.String("filename", header.Filename),
		zap.Int("bytes", len(data)),
		zap.Int("k", query.K))
	response, err := s.engine.Search(r.Context(), &query)
	if err != nil {
		s.respondFailure(w, "search failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

type referencesResponse struct {
	References []*models.ReferenceEntry `json:"references"`
	Count      int                      `json:"count"`
	Suggestion string                   `json:"suggestion,omitempty"`
}

func (s *Server) handleReferences(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	limit := defaultReferenceLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			s.respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	entries, suggestion, err := s.engine.References(r.Context(), q, limit)
	if err != nil {
		s.respondFailure(w, "list references failed", err)
		return
	}
	if entries == nil {
		entries = []*models.ReferenceEntry{}
	}
	s.respondJSON(w, http.StatusOK, referencesResponse{
		References: entries,
		Count:      len(entries),
		Suggestion: suggestion,
	})
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	s.logger.Info("reindex requested")
	report, err := s.catalog.Rebuild(r.Context())
	if err != nil {
		s.respondFailure(w, "reindex failed", err)
		return
	}
	s.respondJSON(w, http.StatusOK, report)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.catalog.Status())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// respondFailure maps err to its API status. Server-side failures are logged.
func (s *Server) respondFailure(w http.ResponseWriter, msg string, err error) {
	status := bgerr.HTTPStatus(err)
	if status == http.StatusServiceUnavailable {
		s.respondError(w, status, "search unavailable")
		return
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error(msg, zap.Error(err), zap.String("code", string(bgerr.CodeOf(err))))
	}
	s.respondJSON(w, status, map[string]string{
		"error": err.Error(),
		"code":  string(bgerr.CodeOf(err)),
	})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
