package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"

	"github.com/fairyhunter13/cv-match-advisor/internal/domain"
)

// JobRepo persists and loads evaluation jobs.
type JobRepo struct{ Pool PgxPool }

// NewJobRepo constructs a JobRepo with the given pool.
func NewJobRepo(p PgxPool) *JobRepo { return &JobRepo{Pool: p} }

const jobColumns = `id, status, COALESCE(error,''), cv_upload_id, job_upload_id, idempotency_key, created_at, updated_at`

// Create inserts a new job and returns its id.
func (r *JobRepo) Create(ctx context.Context, j domain.Job) (string, error) {
	tracer := otel.Tracer("repo.jobs")
	ctx, span := tracer.Start(ctx, "jobs.Create")
	defer span.End()
	id := j.ID
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now().UTC()
	q := `INSERT INTO jobs (id, status, error, cv_upload_id, job_upload_id, idempotency_key, created_at, updated_at) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`
	_, err := r.Pool.Exec(ctx, q, id, j.Status, j.Error, j.CVUploadID, j.JobUploadID, j.IdemKey, now, now)
	if err != nil {
		return "", fmt.Errorf("op=job.create: %w", err)
	}
	return id, nil
}

// UpdateStatus updates a job's status and optional error message.
func (r *JobRepo) UpdateStatus(ctx context.Context, id string, status domain.JobStatus, errMsg *string) error {
	tracer := otel.Tracer("repo.jobs")
	ctx, span := tracer.Start(ctx, "jobs.UpdateStatus")
	defer span.End()
	errVal := ""
	if errMsg != nil {
		errVal = *errMsg
	}
	q := `UPDATE jobs SET status=$2, error=$3, updated_at=$4 WHERE id=$1`
	_, err := r.Pool.Exec(ctx, q, id, status, errVal, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("op=job.update_status: %w", err)
	}
	return nil
}

// Get loads a job by id.
func (r *JobRepo) Get(ctx context.Context, id string) (domain.Job, error) {
	tracer := otel.Tracer("repo.jobs")
	ctx, span := tracer.Start(ctx, "jobs.Get")
	defer span.End()
	row := r.Pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id=$1`, id)
	return scanJob(row, "job.get")
}

// FindByIdempotencyKey loads a job by idempotency key.
func (r *JobRepo) FindByIdempotencyKey(ctx context.Context, key string) (domain.Job, error) {
	tracer := otel.Tracer("repo.jobs")
	ctx, span := tracer.Start(ctx, "jobs.FindByIdempotencyKey")
	defer span.End()
	row := r.Pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE idempotency_key=$1 LIMIT 1`, key)
	return scanJob(row, "job.find_idem")
}

func scanJob(row pgx.Row, op string) (domain.Job, error) {
	var j domain.Job
	if err := row.Scan(&j.ID, &j.Status, &j.Error, &j.CVUploadID, &j.JobUploadID, &j.IdemKey, &j.CreatedAt, &j.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Job{}, fmt.Errorf("op=%s: %w", op, domain.ErrNotFound)
		}
		return domain.Job{}, fmt.Errorf("op=%s: %w", op, err)
	}
	return j, nil
}
