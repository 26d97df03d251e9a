package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fairyhunter13/cv-match-advisor/internal/domain"
)

// staleJobTimeout bounds how long a job may sit in queued or processing
// before Fetch reports it failed.
const staleJobTimeout = 10 * time.Minute

// ResultService reads job status and completed evaluation results.
type ResultService struct {
	Jobs    domain.JobRepository
	Results domain.ResultRepository
}

// NewResultService constructs a ResultService.
func NewResultService(jobs domain.JobRepository, results domain.ResultRepository) ResultService {
	return ResultService{Jobs: jobs, Results: results}
}

// Fetch returns the HTTP status, response body, and ETag for a job. When
// ifNoneMatch equals the current ETag the body is nil and the status is
// 304 Not Modified.
func (s ResultService) Fetch(ctx context.Context, id, ifNoneMatch string) (int, map[string]any, string, error) {
	job, err := s.Jobs.Get(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return 0, nil, "", fmt.Errorf("%w: job %s", domain.ErrNotFound, id)
		}
		return 0, nil, "", fmt.Errorf("op=result.fetch load job: %w", err)
	}

	switch job.Status {
	case domain.JobQueued, domain.JobProcessing:
		if time.Since(job.UpdatedAt) > staleJobTimeout {
			body := map[string]any{
				"id":     job.ID,
				"status": string(domain.JobFailed),
				"error": map[string]any{
					"code":    "TIMEOUT",
					"message": "evaluation did not complete in time",
				},
			}
			return finish(http.StatusOK, body, ifNoneMatch)
		}
		body := map[string]any{
			"id":     job.ID,
			"status": string(job.Status),
		}
		return finish(http.StatusOK, body, ifNoneMatch)

	case domain.JobFailed:
		body := map[string]any{
			"id":     job.ID,
			"status": string(domain.JobFailed),
			"error": map[string]any{
				"code":    errorCodeFromJobError(job.Error),
				"message": job.Error,
			},
		}
		return finish(http.StatusOK, body, ifNoneMatch)
	}

	res, err := s.Results.GetByJobID(ctx, job.ID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			// Completed without a stored result means the store write raced;
			// report still-processing so clients retry.
			body := map[string]any{
				"id":     job.ID,
				"status": string(domain.JobProcessing),
			}
			return finish(http.StatusOK, body, ifNoneMatch)
		}
		return 0, nil, "", fmt.Errorf("op=result.fetch load result: %w", err)
	}

	body := map[string]any{
		"id":     job.ID,
		"status": string(domain.JobCompleted),
		"result": map[string]any{
			"decision":       string(res.Decision),
			"weighted_score": res.WeightedScore,
			"recommendation": res.Recommendation,
			"strengths":      emptySlice(res.Strengths),
			"weaknesses":     emptySlice(res.Weaknesses),
			"focus_areas":    emptySlice(res.FocusAreas),
			"red_flags":      emptySlice(res.RedFlags),
			"dimensions":     res.Evaluation.Dimensions,
			"weights":        res.Evaluation.Weights,
		},
	}
	return finish(http.StatusOK, body, ifNoneMatch)
}

// finish computes the ETag and collapses matching conditional requests.
func finish(status int, body map[string]any, ifNoneMatch string) (int, map[string]any, string, error) {
	etag, err := makeETag(body)
	if err != nil {
		return 0, nil, "", err
	}
	if ifNoneMatch != "" && ifNoneMatch == etag {
		return http.StatusNotModified, nil, etag, nil
	}
	return status, body, etag, nil
}

// makeETag derives a strong ETag from the canonical JSON encoding.
func makeETag(body map[string]any) (string, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("op=result.etag: %w", err)
	}
	sum := sha256.Sum256(b)
	return `"` + hex.EncodeToString(sum[:8]) + `"`, nil
}

// errorCodeFromJobError maps a stored failure message to a stable code.
func errorCodeFromJobError(msg string) string {
	switch {
	case strings.Contains(msg, "extraction"):
		return "EXTRACTION_FAILED"
	case strings.Contains(msg, "weighting"):
		return "WEIGHTING_FAILED"
	case strings.Contains(msg, "scoring"):
		return "SCORING_FAILED"
	case strings.Contains(msg, "evaluation"):
		return "EVALUATION_FAILED"
	case strings.Contains(msg, "enqueue"):
		return "ENQUEUE_FAILED"
	default:
		return "INTERNAL"
	}
}

func emptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
