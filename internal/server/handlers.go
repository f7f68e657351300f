package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/hyperjump/pad/internal/keyword"
	"github.com/hyperjump/pad/internal/notes"
	"github.com/hyperjump/pad/internal/semantic"
)

// AddNoteRequest is the body of POST /api/v1/notes.
type AddNoteRequest struct {
	Text     string `json:"text"`
	Category string `json:"category,omitempty"`
}

// RemoveNoteRequest is the body of DELETE /api/v1/notes.
type RemoveNoteRequest struct {
	Text string `json:"text"`
}

// SearchRequest is the body of the search endpoints.
type SearchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
	// Fuzzy applies to keyword search only.
	Fuzzy bool `json:"fuzzy,omitempty"`
}

// SearchHit is one ranked semantic result.
type SearchHit struct {
	Text     string  `json:"text"`
	Distance float32 `json:"distance"`
	Rank     int     `json:"rank"`
}

// SearchResponse is the body returned by POST /api/v1/search.
type SearchResponse struct {
	Query   string      `json:"query"`
	Results []SearchHit `json:"results"`
}

// KeywordResponse is the body returned by POST /api/v1/search/keyword.
type KeywordResponse struct {
	Query      string        `json:"query"`
	Results    []keyword.Hit `json:"results"`
	Suggestion string        `json:"suggestion,omitempty"`
}

func (s *Server) handleAddNote(w http.ResponseWriter, r *http.Request) {
	var req AddNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	text := notes.CleanText(req.Text)
	if text == "" {
		s.respondError(w, http.StatusBadRequest, "text is required")
		return
	}

	if err := s.svc.AddNote(r.Context(), text); err != nil {
		s.respondServiceError(w, "add note", err)
		return
	}
	if s.notes != nil {
		if _, err := s.notes.Append(req.Category, text); err != nil {
			s.logger.Error("append to notes file", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, "note indexed but not written to notes file")
			return
		}
	}
	s.respondJSON(w, http.StatusCreated, map[string]interface{}{
		"text":    text,
		"records": s.svc.Size(),
	})
}

func (s *Server) handleRemoveNote(w http.ResponseWriter, r *http.Request) {
	var req RemoveNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	text := notes.CleanText(req.Text)
	if text == "" {
		s.respondError(w, http.StatusBadRequest, "text is required")
		return
	}

	removed, err := s.svc.RemoveNote(r.Context(), text)
	if err != nil {
		s.respondServiceError(w, "remove note", err)
		return
	}
	if s.notes != nil {
		if _, err := s.notes.DeleteText(text); err != nil {
			s.logger.Error("delete from notes file", zap.Error(err))
			s.respondError(w, http.StatusInternalServerError, "note removed from index but not from notes file")
			return
		}
	}
	s.respondJSON(w, http.StatusOK, map[string]int{"removed": removed})
}

func (s *Server) handleListNotes(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"notes": s.svc.Texts(),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeSearch(w, r)
	if !ok {
		return
	}

	results, err := s.svc.Search(r.Context(), req.Query, req.Limit)
	if err != nil {
		s.respondServiceError(w, "search", err)
		return
	}
	hits := make([]SearchHit, 0, len(results))
	for _, res := range results {
		if s.search.MaxDistance > 0 && float64(res.Distance) > s.search.MaxDistance {
			continue
		}
		hits = append(hits, SearchHit{Text: res.Text, Distance: res.Distance, Rank: len(hits) + 1})
	}
	s.respondJSON(w, http.StatusOK, SearchResponse{Query: req.Query, Results: hits})
}

func (s *Server) handleKeywordSearch(w http.ResponseWriter, r *http.Request) {
	if s.notes == nil {
		s.respondError(w, http.StatusNotFound, "keyword search needs a notes file")
		return
	}
	req, ok := s.decodeSearch(w, r)
	if !ok {
		return
	}

	all, err := s.notes.Read()
	if err != nil {
		s.logger.Error("read notes file", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "failed to read notes")
		return
	}
	hits, suggestion, err := keyword.SearchNotes(r.Context(), all, req.Query, req.Limit,
		&keyword.SearchOptions{Fuzzy: req.Fuzzy})
	if err != nil {
		s.logger.Error("keyword search", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, "keyword search failed")
		return
	}
	s.respondJSON(w, http.StatusOK, KeywordResponse{Query: req.Query, Results: hits, Suggestion: suggestion})
}

// decodeSearch reads a search request and clamps its limit.
func (s *Server) decodeSearch(w http.ResponseWriter, r *http.Request) (SearchRequest, bool) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	if strings.TrimSpace(req.Query) == "" {
		s.respondError(w, http.StatusBadRequest, "query is required")
		return req, false
	}
	if req.Limit < 0 {
		s.respondError(w, http.StatusBadRequest, "limit must not be negative")
		return req, false
	}
	if req.Limit == 0 {
		req.Limit = s.search.DefaultLimit
	}
	if s.search.MaxLimit > 0 && req.Limit > s.search.MaxLimit {
		req.Limit = s.search.MaxLimit
	}
	return req, true
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]interface{}{
		"index": s.svc.Status(),
	}
	if s.notes != nil {
		resp["notes_file"] = s.notes.Path()
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// statusFor maps the service error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, semantic.ErrEmptyText):
		return http.StatusBadRequest
	case errors.Is(err, semantic.ErrEmbedding):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondServiceError(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", zap.Error(err))
	}
	s.respondError(w, status, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
