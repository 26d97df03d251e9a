package httpserver_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/cv-match-advisor/internal/domain"
)

func TestRewriteStartCreatesSession(t *testing.T) {
	f := newFixture(t)
	f.seedCompletedJob("c1")

	rec := doJSON(t, f, http.MethodPost, "/v1/result/c1/rewrite", nil, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	body := decodeBody(t, rec)
	require.Equal(t, "c1", body["job_id"])
	require.Equal(t, string(domain.RewriteAwaitingFeedback), body["phase"])
	require.Contains(t, body["draft_markdown"], "Rewritten CV body.")
	require.InDelta(t, 2, body["rounds_remaining"].(float64), 0.001)
	require.NotContains(t, body, "document_ready")
}

func TestRewriteStartRequiresCompletedJob(t *testing.T) {
	f := newFixture(t)
	now := time.Now().UTC()
	f.jobs.m["p1"] = domain.Job{ID: "p1", Status: domain.JobProcessing, CreatedAt: now, UpdatedAt: now}

	rec := doJSON(t, f, http.MethodPost, "/v1/result/p1/rewrite", nil, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "INVALID_TRANSITION", decodeBody(t, rec)["error"].(map[string]any)["code"])
}

func TestRewriteStartConflictOnLiveSession(t *testing.T) {
	f := newFixture(t)
	f.seedCompletedJob("c1")

	rec := doJSON(t, f, http.MethodPost, "/v1/result/c1/rewrite", nil, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	rec = doJSON(t, f, http.MethodPost, "/v1/result/c1/rewrite", nil, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "CONFLICT", decodeBody(t, rec)["error"].(map[string]any)["code"])
}

func TestRewriteFeedbackRounds(t *testing.T) {
	f := newFixture(t)
	f.seedCompletedJob("c1")
	require.Equal(t, http.StatusCreated, doJSON(t, f, http.MethodPost, "/v1/result/c1/rewrite", nil, nil).Code)

	rec := doJSON(t, f, http.MethodPost, "/v1/result/c1/rewrite/feedback",
		map[string]string{"feedback": "shorter summary"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Contains(t, body["draft_markdown"], "Revised CV body.")
	require.InDelta(t, 1, body["feedback_round"].(float64), 0.001)
	require.Equal(t, string(domain.RewriteAwaitingFeedback), body["phase"])

	rec = doJSON(t, f, http.MethodPost, "/v1/result/c1/rewrite/feedback",
		map[string]string{"feedback": "tighter bullets"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, string(domain.RewriteFinalizing), decodeBody(t, rec)["phase"])

	// Rounds spent; the phase no longer accepts feedback.
	rec = doJSON(t, f, http.MethodPost, "/v1/result/c1/rewrite/feedback",
		map[string]string{"feedback": "one more"}, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "INVALID_TRANSITION", decodeBody(t, rec)["error"].(map[string]any)["code"])
}

func TestRewriteFeedbackExhaustedCode(t *testing.T) {
	f := newFixture(t)
	f.seedCompletedJob("c1")
	// A session stuck awaiting feedback with all rounds spent.
	f.sessions.m["c1"] = domain.RewriteSession{
		ID:            "sess-1",
		JobID:         "c1",
		Phase:         domain.RewriteAwaitingFeedback,
		DraftMarkdown: "# Draft",
		FeedbackRound: 2,
		MaxRounds:     2,
	}

	rec := doJSON(t, f, http.MethodPost, "/v1/result/c1/rewrite/feedback",
		map[string]string{"feedback": "again"}, nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	require.Equal(t, "FEEDBACK_EXHAUSTED", decodeBody(t, rec)["error"].(map[string]any)["code"])
}

func TestRewriteFeedbackValidation(t *testing.T) {
	f := newFixture(t)
	f.seedCompletedJob("c1")
	require.Equal(t, http.StatusCreated, doJSON(t, f, http.MethodPost, "/v1/result/c1/rewrite", nil, nil).Code)

	rec := doJSON(t, f, http.MethodPost, "/v1/result/c1/rewrite/feedback",
		map[string]string{"feedback": ""}, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRewriteFinalizeAndDownload(t *testing.T) {
	f := newFixture(t)
	f.seedCompletedJob("c1")
	require.Equal(t, http.StatusCreated, doJSON(t, f, http.MethodPost, "/v1/result/c1/rewrite", nil, nil).Code)

	// Document is not available before finalize.
	rec := doJSON(t, f, http.MethodGet, "/v1/result/c1/rewrite/document", nil, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, f, http.MethodPost, "/v1/result/c1/rewrite/finalize", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, string(domain.RewriteDone), body["phase"])
	require.Equal(t, true, body["document_ready"])
}

func TestRewriteFeedbackWithoutSession(t *testing.T) {
	f := newFixture(t)
	f.seedCompletedJob("c1")

	rec := doJSON(t, f, http.MethodPost, "/v1/result/c1/rewrite/feedback",
		map[string]string{"feedback": "hello"}, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
