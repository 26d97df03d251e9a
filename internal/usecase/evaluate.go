package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fairyhunter13/cv-match-advisor/internal/domain"
)

// EvaluateService creates evaluation jobs and enqueues them for the worker.
type EvaluateService struct {
	Jobs  domain.JobRepository
	Queue domain.Queue
}

// NewEvaluateService constructs an EvaluateService.
func NewEvaluateService(jobs domain.JobRepository, queue domain.Queue) EvaluateService {
	return EvaluateService{Jobs: jobs, Queue: queue}
}

// Enqueue creates a queued job for the given upload pair and enqueues an
// evaluation task. When idemKey is non-empty and a job with the same key
// already exists, that job's id is returned instead of creating a new one.
func (s EvaluateService) Enqueue(ctx context.Context, cvUploadID, jobUploadID, idemKey string) (string, error) {
	if cvUploadID == "" || jobUploadID == "" {
		return "", fmt.Errorf("%w: cv and job upload ids are required", domain.ErrInvalidArgument)
	}

	if idemKey != "" {
		existing, err := s.Jobs.FindByIdempotencyKey(ctx, idemKey)
		if err == nil {
			slog.Info("idempotent enqueue, returning existing job",
				slog.String("job_id", existing.ID),
				slog.String("idempotency_key", idemKey))
			return existing.ID, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return "", fmt.Errorf("op=evaluate.enqueue idempotency lookup: %w", err)
		}
	}

	now := time.Now().UTC()
	job := domain.Job{
		ID:          uuid.NewString(),
		Status:      domain.JobQueued,
		CVUploadID:  cvUploadID,
		JobUploadID: jobUploadID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if idemKey != "" {
		job.IdemKey = &idemKey
	}
	jobID, err := s.Jobs.Create(ctx, job)
	if err != nil {
		return "", fmt.Errorf("op=evaluate.enqueue create job: %w", err)
	}

	_, err = s.Queue.EnqueueEvaluate(ctx, domain.EvaluateTaskPayload{
		JobID:       jobID,
		CVUploadID:  cvUploadID,
		JobUploadID: jobUploadID,
	})
	if err != nil {
		msg := "failed to enqueue evaluation task"
		if uerr := s.Jobs.UpdateStatus(ctx, jobID, domain.JobFailed, &msg); uerr != nil {
			slog.Error("failed to mark job failed after enqueue error",
				slog.String("job_id", jobID), slog.Any("error", uerr))
		}
		return "", fmt.Errorf("op=evaluate.enqueue: %w", err)
	}
	return jobID, nil
}
