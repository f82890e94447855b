package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/dgallion1/casefinder/internal/blobstore"
	"github.com/dgallion1/casefinder/internal/store"
	"github.com/go-chi/chi/v5"
)

// caseID parses the {caseID} URL parameter, writing a 400 on failure.
func caseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "caseID"), 10, 64)
	if err != nil || id <= 0 {
		jsonError(w, "invalid case id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// loadCase fetches a case, writing a 404 or 500 on failure.
func (s *Server) loadCase(w http.ResponseWriter, r *http.Request) (*store.Case, bool) {
	id, ok := caseID(w, r)
	if !ok {
		return nil, false
	}
	c, err := s.cases.GetCase(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "case not found", http.StatusNotFound)
		return nil, false
	}
	if err != nil {
		s.log.Error("get case failed", "case_id", id, "error", err)
		jsonError(w, "failed to load case", http.StatusInternalServerError)
		return nil, false
	}
	return c, true
}

func (s *Server) handleListCases(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	keyword := strings.TrimSpace(r.URL.Query().Get("q"))

	cases, err := s.cases.SearchCases(ctx, keyword)
	if err != nil {
		s.log.Error("search failed", "keyword", keyword, "error", err)
		jsonError(w, "search failed", http.StatusInternalServerError)
		return
	}
	total, err := s.cases.CountCases(ctx)
	if err != nil {
		s.log.Error("count failed", "error", err)
		jsonError(w, "search failed", http.StatusInternalServerError)
		return
	}
	if cases == nil {
		cases = []store.Case{}
	}
	s.log.Debug("search", "keyword", keyword, "hits", len(cases), "total", total)

	writeJSON(w, http.StatusOK, map[string]any{
		"cases":       cases,
		"keyword":     keyword,
		"total_count": total,
	})
}

func (s *Server) handleGetCase(w http.ResponseWriter, r *http.Request) {
	c, ok := s.loadCase(w, r)
	if !ok {
		return
	}
	sum, err := s.cases.LatestSummary(r.Context(), c.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		s.log.Error("latest summary failed", "case_id", c.ID, "error", err)
		jsonError(w, "failed to load summary", http.StatusInternalServerError)
		return
	}
	// sum is nil when the case has no summary yet.
	writeJSON(w, http.StatusOK, map[string]any{"case": c, "summary": sum})
}

func (s *Server) handleDeleteCase(w http.ResponseWriter, r *http.Request) {
	c, ok := s.loadCase(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	log := s.log.With("case_id", c.ID)

	if err := s.cases.DeleteCase(ctx, c.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			jsonError(w, "case not found", http.StatusNotFound)
			return
		}
		log.Error("delete case failed", "error", err)
		jsonError(w, "failed to delete case", http.StatusInternalServerError)
		return
	}

	fileDeleted := true
	if err := s.blobs.Delete(ctx, c.StoredPath); err != nil {
		fileDeleted = false
		if !errors.Is(err, blobstore.ErrNotFound) {
			log.Warn("stored file not removed", "key", c.StoredPath, "error", err)
		}
	}

	log.Info("case deleted", "file_deleted", fileDeleted)
	writeJSON(w, http.StatusOK, map[string]any{
		"status":       "deleted",
		"case_id":      c.ID,
		"file_deleted": fileDeleted,
	})
}

type metadataRequest struct {
	CustomerName string `json:"customer_name"`
	SystemName   string `json:"system_name"`
}

func (s *Server) handleUpdateMetadata(w http.ResponseWriter, r *http.Request) {
	id, ok := caseID(w, r)
	if !ok {
		return
	}
	var req metadataRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}

	customer := strings.TrimSpace(req.CustomerName)
	system := strings.TrimSpace(req.SystemName)
	err := s.cases.UpdateMetadata(r.Context(), id, customer, system)
	if errors.Is(err, store.ErrNotFound) {
		jsonError(w, "case not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.log.Error("update metadata failed", "case_id", id, "error", err)
		jsonError(w, "failed to update metadata", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "success",
		"customer_name": customer,
		"system_name":   system,
	})
}

type summaryRequest struct {
	Problem  string `json:"problem"`
	Solution string `json:"solution"`
	Outcome  string `json:"outcome"`
}

func (s *Server) handleSaveSummary(w http.ResponseWriter, r *http.Request) {
	c, ok := s.loadCase(w, r)
	if !ok {
		return
	}
	var req summaryRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		jsonError(w, "invalid JSON body: "+err.Error(), http.StatusBadRequest)
		return
	}

	sum := store.Summary{
		CaseID:   c.ID,
		Problem:  strings.TrimSpace(req.Problem),
		Solution: strings.TrimSpace(req.Solution),
		Outcome:  strings.TrimSpace(req.Outcome),
	}
	if sum.Problem == "" || sum.Solution == "" || sum.Outcome == "" {
		jsonError(w, "problem, solution and outcome are all required", http.StatusBadRequest)
		return
	}
	s.storeSummary(w, r, sum)
}

func (s *Server) handleAutoSummary(w http.ResponseWriter, r *http.Request) {
	c, ok := s.loadCase(w, r)
	if !ok {
		return
	}
	res := s.extractor.Extract(c.TextContent)
	if res.Empty() {
		jsonError(w, "could not summarize", http.StatusUnprocessableEntity)
		return
	}
	s.storeSummary(w, r, store.Summary{
		CaseID:   c.ID,
		Problem:  res.Problem,
		Solution: res.Solution,
		Outcome:  res.Outcome,
	})
}

// storeSummary inserts sum and responds 201 with the stored row.
func (s *Server) storeSummary(w http.ResponseWriter, r *http.Request, sum store.Summary) {
	ctx := r.Context()
	if _, err := s.cases.InsertSummary(ctx, sum); err != nil {
		s.log.Error("insert summary failed", "case_id", sum.CaseID, "error", err)
		jsonError(w, "failed to save summary", http.StatusInternalServerError)
		return
	}
	stored, err := s.cases.LatestSummary(ctx, sum.CaseID)
	if err != nil {
		s.log.Error("reload summary failed", "case_id", sum.CaseID, "error", err)
		jsonError(w, "failed to load summary", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}
