package usecase_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/cv-match-advisor/internal/domain"
	"github.com/fairyhunter13/cv-match-advisor/internal/usecase"
)

func seedJob(t *testing.T, jobs *fakeJobRepo, status domain.JobStatus, updatedAt time.Time) domain.Job {
	t.Helper()
	job := domain.Job{
		ID:          "job-1",
		Status:      status,
		CVUploadID:  "up-1",
		JobUploadID: "up-2",
		CreatedAt:   updatedAt,
		UpdatedAt:   updatedAt,
	}
	_, err := jobs.Create(context.Background(), job)
	require.NoError(t, err)
	return job
}

func TestFetchQueuedJob(t *testing.T) {
	jobs := newFakeJobRepo()
	seedJob(t, jobs, domain.JobQueued, time.Now().UTC())
	svc := usecase.NewResultService(jobs, newFakeResultRepo())

	status, body, etag, err := svc.Fetch(context.Background(), "job-1", "")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "queued", body["status"])
	require.NotEmpty(t, etag)
	require.NotContains(t, body, "result")
	require.NotContains(t, body, "error")
}

func TestFetchUnknownJob(t *testing.T) {
	svc := usecase.NewResultService(newFakeJobRepo(), newFakeResultRepo())
	_, _, _, err := svc.Fetch(context.Background(), "missing", "")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFetchStaleJobReportsTimeout(t *testing.T) {
	jobs := newFakeJobRepo()
	seedJob(t, jobs, domain.JobProcessing, time.Now().UTC().Add(-time.Hour))
	svc := usecase.NewResultService(jobs, newFakeResultRepo())

	status, body, _, err := svc.Fetch(context.Background(), "job-1", "")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "failed", body["status"])
	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "TIMEOUT", errObj["code"])
}

func TestFetchFailedJobMapsErrorCode(t *testing.T) {
	jobs := newFakeJobRepo()
	job := seedJob(t, jobs, domain.JobFailed, time.Now().UTC())
	msg := "stage extraction: upstream timeout"
	require.NoError(t, jobs.UpdateStatus(context.Background(), job.ID, domain.JobFailed, &msg))
	svc := usecase.NewResultService(jobs, newFakeResultRepo())

	_, body, _, err := svc.Fetch(context.Background(), "job-1", "")
	require.NoError(t, err)
	errObj := body["error"].(map[string]any)
	require.Equal(t, "EXTRACTION_FAILED", errObj["code"])
	require.Equal(t, msg, errObj["message"])
}

func TestFetchCompletedJobReturnsResultEnvelope(t *testing.T) {
	jobs := newFakeJobRepo()
	seedJob(t, jobs, domain.JobCompleted, time.Now().UTC())
	results := newFakeResultRepo()
	require.NoError(t, results.Upsert(context.Background(), domain.Result{
		JobID:          "job-1",
		Decision:       domain.DecisionGood,
		WeightedScore:  73.25,
		Recommendation: "Solid fit with gaps in cloud experience.",
		Strengths:      []string{"Go services"},
		Weaknesses:     []string{"No AWS"},
	}))
	svc := usecase.NewResultService(jobs, results)

	status, body, etag, err := svc.Fetch(context.Background(), "job-1", "")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "completed", body["status"])

	res := body["result"].(map[string]any)
	require.Equal(t, "Good Match", res["decision"])
	require.InDelta(t, 73.25, res["weighted_score"].(float64), 0.001)
	// Nil slices serialize as empty arrays, never null.
	require.Equal(t, []string{}, res["focus_areas"])
	require.Equal(t, []string{}, res["red_flags"])
	require.NotEmpty(t, etag)
}

func TestFetchETagNotModified(t *testing.T) {
	jobs := newFakeJobRepo()
	seedJob(t, jobs, domain.JobQueued, time.Now().UTC())
	svc := usecase.NewResultService(jobs, newFakeResultRepo())
	ctx := context.Background()

	_, _, etag, err := svc.Fetch(ctx, "job-1", "")
	require.NoError(t, err)

	status, body, etag2, err := svc.Fetch(ctx, "job-1", etag)
	require.NoError(t, err)
	require.Equal(t, http.StatusNotModified, status)
	require.Nil(t, body)
	require.Equal(t, etag, etag2)

	// Status change invalidates the tag.
	require.NoError(t, jobs.UpdateStatus(ctx, "job-1", domain.JobProcessing, nil))
	status, body, etag3, err := svc.Fetch(ctx, "job-1", etag)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "processing", body["status"])
	require.NotEqual(t, etag, etag3)
}

func TestFetchCompletedWithoutResultReportsProcessing(t *testing.T) {
	jobs := newFakeJobRepo()
	seedJob(t, jobs, domain.JobCompleted, time.Now().UTC())
	svc := usecase.NewResultService(jobs, newFakeResultRepo())

	status, body, _, err := svc.Fetch(context.Background(), "job-1", "")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, "processing", body["status"])
}
