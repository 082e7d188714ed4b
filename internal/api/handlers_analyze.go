package api

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/zhreader/internal/analyze"
	"github.com/dgallion1/zhreader/internal/pipeline"
)

type analyzeChapterRequest struct {
	Force    bool             `json:"force"`
	Readings analyze.Readings `json:"readings"`
}

// handleAnalyzeChapter queues an analysis job for one chapter.
func (s *Server) handleAnalyzeChapter(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "bookID")
	index, ok := parseIndex(chi.URLParam(r, "index"))
	if !ok {
		jsonError(w, "invalid chapter index", http.StatusBadRequest)
		return
	}

	var req analyzeChapterRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if _, err := s.library.Chapter(r.Context(), bookID, index); err != nil {
		s.libraryError(w, err, "chapter")
		return
	}

	job := pipeline.NewJob(bookID, index, req.Force, req.Readings)
	if err := s.orchestrator.Submit(job); err != nil {
		if errors.Is(err, pipeline.ErrChapterBusy) {
			resp := map[string]any{"error": err.Error()}
			if active := s.orchestrator.ActiveJob(bookID, index); active != nil {
				resp["job_id"] = active.ID
			}
			writeJSON(w, http.StatusConflict, resp)
			return
		}
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   job.ID,
		"status":   job.Snapshot().Status,
		"poll_url": fmt.Sprintf("/api/analyze/%s/status", job.ID),
	})
}

func (s *Server) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	job := s.orchestrator.GetJob(chi.URLParam(r, "jobID"))
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	found, cancelled := s.orchestrator.Cancel(jobID)
	if !found {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	if !cancelled {
		jsonError(w, "job already finished", http.StatusConflict)
		return
	}
	s.log.Info("job cancel requested", "job_id", jobID)
	writeJSON(w, http.StatusAccepted, s.orchestrator.GetJob(jobID).Snapshot())
}

type analyzeSentencesRequest struct {
	Sentence  string           `json:"sentence"`
	Sentences []string         `json:"sentences"`
	Readings  analyze.Readings `json:"readings"`
}

// handleAnalyzeSentences analyzes up to one batch of sentences synchronously.
func (s *Server) handleAnalyzeSentences(w http.ResponseWriter, r *http.Request) {
	var req analyzeSentencesRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	var sentences []string
	for _, text := range append([]string{req.Sentence}, req.Sentences...) {
		if text = strings.TrimSpace(text); text != "" {
			sentences = append(sentences, text)
		}
	}
	if len(sentences) == 0 {
		jsonError(w, "sentence or sentences is required", http.StatusBadRequest)
		return
	}
	if len(sentences) > s.cfg.AnalysisBatchSize {
		jsonError(w, fmt.Sprintf("at most %d sentences per request", s.cfg.AnalysisBatchSize), http.StatusBadRequest)
		return
	}

	results, err := s.claude.AnalyzeSentences(r.Context(), sentences, s.readings.Merge(req.Readings))
	if err != nil {
		var retryErr *analyze.RetryableError
		if errors.As(err, &retryErr) {
			if retryErr.RetryAfter > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryErr.RetryAfter.Seconds()))))
			}
			jsonError(w, "analysis service busy, retry later", http.StatusServiceUnavailable)
			return
		}
		s.log.Error("sentence analysis failed", "error", err)
		jsonError(w, "analysis failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	valid := make([]bool, len(results))
	for i := range results {
		valid[i] = analyze.ValidateAnalysis(&results[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"analyses": results,
		"valid":    valid,
	})
}
