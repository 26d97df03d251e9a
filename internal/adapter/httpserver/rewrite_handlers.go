package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/fairyhunter13/cv-match-advisor/internal/domain"
)

// rewriteEnvelope is the session view returned by the rewrite endpoints.
// The full session, including the evaluation projection, stays server side.
func rewriteEnvelope(s domain.RewriteSession) map[string]any {
	m := map[string]any{
		"job_id":           s.JobID,
		"phase":            string(s.Phase),
		"draft_markdown":   s.DraftMarkdown,
		"feedback_round":   s.FeedbackRound,
		"rounds_remaining": s.RoundsRemaining(),
	}
	if s.DocumentPath != "" {
		m["document_ready"] = true
	}
	return m
}

// RewriteStartHandler drafts a rewritten CV for a completed evaluation.
func (s *Server) RewriteStartHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		id := chi.URLParam(r, "id")
		if id == "" {
			writeError(w, r, fmt.Errorf("%w: id missing", domain.ErrInvalidArgument), nil)
			return
		}
		sess, err := s.Rewrite.Start(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusCreated, rewriteEnvelope(sess))
	}
}

// RewriteFeedbackHandler applies one round of user feedback.
func (s *Server) RewriteFeedbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		id := chi.URLParam(r, "id")
		if id == "" {
			writeError(w, r, fmt.Errorf("%w: id missing", domain.ErrInvalidArgument), nil)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		var req struct {
			Feedback string `json:"feedback" validate:"required,max=10000"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument), nil)
			return
		}
		if err := getValidator().Struct(req); err != nil {
			writeError(w, r, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument), validationDetails(err))
			return
		}
		sess, err := s.Rewrite.Feedback(r.Context(), id, req.Feedback)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, rewriteEnvelope(sess))
	}
}

// RewriteFinalizeHandler renders the current draft to a document.
func (s *Server) RewriteFinalizeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		id := chi.URLParam(r, "id")
		if id == "" {
			writeError(w, r, fmt.Errorf("%w: id missing", domain.ErrInvalidArgument), nil)
			return
		}
		sess, err := s.Rewrite.Finalize(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		writeJSON(w, http.StatusOK, rewriteEnvelope(sess))
	}
}

// RewriteDocumentHandler serves the rendered document for download.
func (s *Server) RewriteDocumentHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			writeError(w, r, fmt.Errorf("%w: id missing", domain.ErrInvalidArgument), nil)
			return
		}
		path, err := s.Rewrite.DocumentPath(r.Context(), id)
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.wordprocessingml.document")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
		http.ServeFile(w, r, path)
	}
}
