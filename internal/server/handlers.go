package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hyperjump/rstagree/internal/cli"
	"github.com/hyperjump/rstagree/internal/corpus"
	"github.com/hyperjump/rstagree/internal/keyword"
	"github.com/hyperjump/rstagree/internal/models"
	"github.com/hyperjump/rstagree/internal/storage"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	runs, err := s.storage.CountRuns(r.Context())
	if err != nil {
		s.logger.Error("status: count runs failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{"runs": runs}
	if s.index != nil {
		if n, err := s.index.DocCount(); err == nil {
			resp["relations"] = n
		}
	}
	st := s.config.Storage
	if diskBytes, err := storage.DiskUsageBytes(st.DatabasePath, st.RelationIndexPath); err == nil {
		resp["disk_usage_bytes"] = diskBytes
	}
	resp["config"] = map[string]interface{}{
		"dimensions":          s.config.Agreement.Dimensions,
		"segment_strict":      s.config.Agreement.SegmentStrict,
		"discussion_sweep":    s.config.Agreement.DiscussionSweep,
		"workers":             s.config.Agreement.Workers,
		"database_path":       st.DatabasePath,
		"relation_index_path": st.RelationIndexPath,
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 20)
	runs, err := s.storage.ListRuns(r.Context(), offset, limit)
	if err != nil {
		s.logger.Error("list runs failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []*models.Run{}
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"runs": runs})
}

func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req models.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	job, err := corpus.NewJob(s.config, &req)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("run request",
		zap.String("source_dir", req.SourceDir),
		zap.String("checks", job.Options.Checks.String()))
	res, err := job.Execute(r.Context(), s.logger)
	if err != nil {
		s.logger.Error("run failed", zap.Error(err))
		s.respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	run := job.NewRun()
	if !req.Store {
		run.Files = len(res.Files)
		run.Skipped = res.Skipped()
		run.Report = res.Report
		s.respondJSON(w, http.StatusOK, run)
		return
	}
	if err := corpus.Store(r.Context(), s.storage, run, res); err != nil {
		s.logger.Error("storing run failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.respondJSON(w, http.StatusCreated, run)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := s.storage.GetRun(r.Context(), id)
	if err != nil {
		s.respondStorageError(w, err)
		return
	}
	files, err := s.storage.GetFiles(r.Context(), id)
	if err != nil {
		s.respondStorageError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{"run": run, "files": files})
}

func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	s.logger.Debug("delete run request", zap.String("id", id))
	if err := s.storage.DeleteRun(r.Context(), id); err != nil {
		s.respondStorageError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleRunReport serves the report of a stored run as JSON, plain text
// (?format=text) or an XLSX workbook (?format=xlsx).
func (s *Server) handleRunReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := s.storage.GetRun(r.Context(), id)
	if err != nil {
		s.respondStorageError(w, err)
		return
	}
	switch r.URL.Query().Get("format") {
	case "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_ = cli.WriteReport(w, run.Report, cli.OutputText)
	case "xlsx":
		files, err := s.storage.GetFiles(r.Context(), id)
		if err != nil {
			s.respondStorageError(w, err)
			return
		}
		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", `attachment; filename="`+id+`.xlsx"`)
		if err := cli.WriteExcel(w, run.Report, files); err != nil {
			s.logger.Error("xlsx export failed", zap.Error(err))
		}
	default:
		s.respondJSON(w, http.StatusOK, run.Report)
	}
}

// handleRelations lists instances of ?relation= or, without it, the
// relation names in the index.
func (s *Server) handleRelations(w http.ResponseWriter, r *http.Request) {
	if s.index == nil {
		s.respondError(w, http.StatusNotImplemented, "relation index not enabled")
		return
	}
	rel := r.URL.Query().Get("relation")
	if rel == "" {
		names, err := s.index.RelationNames()
		if err != nil {
			s.respondError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.respondJSON(w, http.StatusOK, map[string]interface{}{"relations": names})
		return
	}
	q := &models.RelationQuery{Relation: rel, Query: r.URL.Query().Get("q"), Limit: queryInt(r, "limit", 0)}
	s.searchRelations(w, r, q, nil)
}

type relationSearchRequest struct {
	models.RelationQuery
	Fuzzy bool `json:"fuzzy,omitempty"`
}

func (s *Server) handleRelationSearch(w http.ResponseWriter, r *http.Request) {
	if s.index == nil {
		s.respondError(w, http.StatusNotImplemented, "relation index not enabled")
		return
	}
	var req relationSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.searchRelations(w, r, &req.RelationQuery, &keyword.SearchOptions{FuzzyEnabled: req.Fuzzy})
}

func (s *Server) searchRelations(w http.ResponseWriter, r *http.Request, q *models.RelationQuery, opts *keyword.SearchOptions) {
	if err := q.Validate(); err != nil {
		s.respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.logger.Debug("relation search", zap.String("query", q.Query), zap.String("relation", q.Relation))
	hits, err := s.index.Search(r.Context(), q, opts)
	if err != nil {
		s.logger.Error("relation search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}
	resp := map[string]interface{}{"hits": hits, "total": len(hits)}
	if len(hits) == 0 && q.Relation != "" {
		if names, err := s.index.RelationNames(); err == nil {
			if sugg := keyword.SuggestRelations(q.Relation, names, 0); len(sugg) > 0 {
				resp["did_you_mean"] = sugg
			}
		}
	}
	s.respondJSON(w, http.StatusOK, resp)
}

func queryInt(r *http.Request, name string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil {
		return def
	}
	return v
}

func (s *Server) respondStorageError(w http.ResponseWriter, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		s.respondError(w, http.StatusNotFound, "run not found")
		return
	}
	s.logger.Error("storage request failed", zap.Error(err))
	s.respondError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
