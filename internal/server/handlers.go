package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/chajda/internal/export"
	"github.com/hyperjump/chajda/internal/models"
	"github.com/hyperjump/chajda/internal/search"
	"github.com/hyperjump/chajda/internal/storage"
	"github.com/hyperjump/chajda/internal/subject"
)

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("response encode failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, search.ErrIndexUnavailable),
		errors.Is(err, storage.ErrSchemaUnresolved),
		errors.Is(err, storage.ErrStorageUnavailable),
		errors.Is(err, storage.ErrStaleIndex):
		status = http.StatusServiceUnavailable
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusResponse struct {
	EngineState  string `json:"engine_state"`
	SnapshotPath string `json:"snapshot_path"`
	Concepts     int64  `json:"concepts"`
	Literals     int64  `json:"literals"`
	DictTerms    uint64 `json:"dictionary_terms,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	out := statusResponse{
		EngineState:  s.engine.State().String(),
		SnapshotPath: s.cfg.Storage.SnapshotPath,
	}
	var err error
	if out.Concepts, err = s.store.CountConcepts(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	if out.Literals, err = s.store.CountLiterals(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	if s.dict != nil {
		if n, err := s.dict.Count(); err == nil {
			out.DictTerms = n
		}
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) decodeQuery(r *http.Request) (models.SearchQuery, error) {
	var q models.SearchQuery
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		return q, fmt.Errorf("malformed request body: %w", err)
	}
	if q.Limit <= 0 || q.Limit > s.cfg.Search.MaxLimit {
		q.Limit = s.cfg.Search.DefaultLimit
	}
	if !s.cfg.Search.DedupOrDefault() {
		q.NoDedup = true
	}
	return q, nil
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q, err := s.decodeQuery(r)
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	resp, err := s.engine.Search(r.Context(), q)
	if err != nil {
		// An empty query is user input, not a failure; it gets a no-op
		// result rather than an error status.
		if errors.Is(err, search.ErrEmptyQuery) {
			s.writeJSON(w, http.StatusOK, &models.SearchResponse{
				Rows: []models.ResultRow{}, Term: q.Term,
			})
			return
		}
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

type exportRequest struct {
	models.SearchQuery
	Format string `json:"format"`
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeJSON(w, http.StatusBadRequest,
			errorResponse{Error: "malformed request body: " + err.Error()})
		return
	}
	q := req.SearchQuery
	if q.Limit <= 0 || q.Limit > s.cfg.Search.MaxLimit {
		q.Limit = s.cfg.Search.MaxLimit
	}
	if !s.cfg.Search.DedupOrDefault() {
		q.NoDedup = true
	}

	resp, err := s.engine.Search(r.Context(), q)
	if err != nil {
		if errors.Is(err, search.ErrEmptyQuery) {
			resp = &models.SearchResponse{Term: q.Term}
		} else {
			s.writeError(w, err)
			return
		}
	}

	stamp := time.Now().Format("20060102-150405")
	switch req.Format {
	case "", "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf(`attachment; filename="results-%s.csv"`, stamp))
		if err := export.WriteCSV(w, resp.Rows); err != nil {
			s.logger.Warn("csv export failed", zap.Error(err))
		}
	case "xlsx":
		w.Header().Set("Content-Type",
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition",
			fmt.Sprintf(`attachment; filename="results-%s.xlsx"`, stamp))
		if err := export.WriteXLSX(w, resp.Rows); err != nil {
			s.logger.Warn("xlsx export failed", zap.Error(err))
		}
	default:
		s.writeJSON(w, http.StatusBadRequest,
			errorResponse{Error: fmt.Sprintf("unsupported format %q", req.Format)})
	}
}

func conceptID(r *http.Request) string {
	id := chi.URLParam(r, "id")
	if decoded, err := url.PathUnescape(id); err == nil {
		id = decoded
	}
	return id
}

type conceptResponse struct {
	ConceptID string           `json:"concept_id"`
	Type      string           `json:"type,omitempty"`
	PrefLabel string           `json:"pref_label,omitempty"`
	Subject   string           `json:"subject,omitempty"`
	Labels    []models.Literal `json:"labels,omitempty"`
	Synonyms  []string         `json:"synonyms,omitempty"`
	LinkURL   string           `json:"link_url,omitempty"`
}

func (s *Server) handleConcept(w http.ResponseWriter, r *http.Request) {
	id := conceptID(r)
	ctx := r.Context()

	labels, err := s.store.LiteralsFor(ctx, id, models.LabelPredicates)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if len(labels) == 0 {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: "concept not found"})
		return
	}

	out := conceptResponse{ConceptID: id, Labels: labels}
	if c, err := s.store.Concept(ctx, id); err == nil && c != nil {
		out.Type = c.Type
	}
	if pref, err := s.resolver.PreferredLabel(ctx, id); err == nil && pref != "" {
		out.PrefLabel = pref
		out.Subject = subject.Format(pref, id)
	}
	if syn, err := s.resolver.Synonyms(ctx, id); err == nil {
		out.Synonyms = syn
	}
	out.LinkURL = subject.LinkURL(id)
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleNeighbors(w http.ResponseWriter, r *http.Request) {
	id := conceptID(r)
	n, err := s.resolver.Neighbors(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, n)
}
