package redpanda

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fairyhunter13/cv-match-advisor/internal/adapter/observability"
	"github.com/fairyhunter13/cv-match-advisor/internal/domain"
	"github.com/fairyhunter13/cv-match-advisor/internal/pipeline"
)

// EvaluationHandler runs the evaluation pipeline for dequeued jobs and
// persists the outcome.
type EvaluationHandler struct {
	Uploads domain.UploadRepository
	Jobs    domain.JobRepository
	Results domain.ResultRepository
	Runner  *pipeline.Runner
}

// NewEvaluationHandler constructs an EvaluationHandler.
func NewEvaluationHandler(uploads domain.UploadRepository, jobs domain.JobRepository, results domain.ResultRepository, runner *pipeline.Runner) *EvaluationHandler {
	return &EvaluationHandler{Uploads: uploads, Jobs: jobs, Results: results, Runner: runner}
}

// HandleEvaluate processes one evaluate task end to end. Transient errors
// are returned so the record is redelivered; a job that already completed
// is skipped, which keeps redelivery idempotent.
func (h *EvaluationHandler) HandleEvaluate(ctx context.Context, payload domain.EvaluateTaskPayload) error {
	tracer := otel.Tracer("queue.evaluate")
	ctx, span := tracer.Start(ctx, "HandleEvaluate", trace.WithAttributes(
		attribute.String("job_id", payload.JobID),
	))
	defer span.End()

	job, err := h.Jobs.Get(ctx, payload.JobID)
	if err != nil {
		return fmt.Errorf("op=handler.evaluate load job: %w", err)
	}
	if job.Status == domain.JobCompleted {
		slog.Info("job already completed, skipping", slog.String("job_id", job.ID))
		return nil
	}

	observability.StartProcessingJob("evaluate")
	if err := h.Jobs.UpdateStatus(ctx, job.ID, domain.JobProcessing, nil); err != nil {
		observability.FailJob("evaluate")
		return fmt.Errorf("op=handler.evaluate mark processing: %w", err)
	}

	cvUpload, err := h.Uploads.Get(ctx, payload.CVUploadID)
	if err != nil {
		return h.fail(ctx, job.ID, fmt.Errorf("op=handler.evaluate load cv upload: %w", err))
	}
	jobUpload, err := h.Uploads.Get(ctx, payload.JobUploadID)
	if err != nil {
		return h.fail(ctx, job.ID, fmt.Errorf("op=handler.evaluate load job upload: %w", err))
	}

	start := time.Now()
	state, err := h.Runner.Evaluate(ctx, job.ID, cvUpload.Text, jobUpload.Text)
	if err != nil {
		phase := domain.FailurePhase(err)
		msg := fmt.Sprintf("evaluation failed during %s", phase)
		if uerr := h.Jobs.UpdateStatus(ctx, job.ID, domain.JobFailed, &msg); uerr != nil {
			slog.Error("failed to mark job failed", slog.String("job_id", job.ID), slog.Any("error", uerr))
		}
		observability.FailJob("evaluate")
		slog.Error("evaluation pipeline failed",
			slog.String("job_id", job.ID),
			slog.String("phase", phase),
			slog.Any("error", err))
		// The failure is recorded on the job; do not redeliver.
		return nil
	}

	result := domain.Result{
		JobID:          job.ID,
		Decision:       state.Scoring.Decision,
		WeightedScore:  state.Scoring.WeightedScore,
		Recommendation: state.Scoring.Recommendation,
		Strengths:      state.Scoring.Strengths,
		Weaknesses:     state.Scoring.Weaknesses,
		FocusAreas:     state.Scoring.FocusAreas,
		RedFlags:       state.Scoring.RedFlags,
		Evaluation: domain.EvaluationPayload{
			CVText:     cvUpload.Text,
			CVProfile:  *state.CVProfile,
			JobProfile: *state.JobProfile,
			Dimensions: state.Results(),
			Weights:    *state.Weights,
		},
	}
	if err := h.Results.Upsert(ctx, result); err != nil {
		return h.fail(ctx, job.ID, fmt.Errorf("op=handler.evaluate persist result: %w", err))
	}
	if err := h.Jobs.UpdateStatus(ctx, job.ID, domain.JobCompleted, nil); err != nil {
		return h.fail(ctx, job.ID, fmt.Errorf("op=handler.evaluate mark completed: %w", err))
	}

	observability.CompleteJob("evaluate")
	observability.ObserveDecision(string(result.Decision), result.WeightedScore)
	slog.Info("evaluation completed",
		slog.String("job_id", job.ID),
		slog.String("decision", string(result.Decision)),
		slog.Float64("weighted_score", result.WeightedScore),
		slog.Duration("took", time.Since(start)))
	return nil
}

// fail marks the job failed with a generic message and returns the cause
// so the record is redelivered for transient store errors.
func (h *EvaluationHandler) fail(ctx context.Context, jobID string, cause error) error {
	msg := "internal error"
	if uerr := h.Jobs.UpdateStatus(ctx, jobID, domain.JobFailed, &msg); uerr != nil {
		slog.Error("failed to mark job failed", slog.String("job_id", jobID), slog.Any("error", uerr))
	}
	observability.FailJob("evaluate")
	return cause
}
