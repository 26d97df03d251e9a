package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/cv-match-advisor/internal/domain"
	"github.com/fairyhunter13/cv-match-advisor/internal/usecase"
)

func TestEnqueueCreatesJobAndTask(t *testing.T) {
	jobs := newFakeJobRepo()
	queue := &fakeQueue{}
	svc := usecase.NewEvaluateService(jobs, queue)

	id, err := svc.Enqueue(context.Background(), "up-cv", "up-job", "")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	job, err := jobs.Get(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, domain.JobQueued, job.Status)
	require.Nil(t, job.IdemKey)

	require.Len(t, queue.enqueued, 1)
	require.Equal(t, id, queue.enqueued[0].JobID)
	require.Equal(t, "up-cv", queue.enqueued[0].CVUploadID)
	require.Equal(t, "up-job", queue.enqueued[0].JobUploadID)
}

func TestEnqueueRequiresBothUploads(t *testing.T) {
	svc := usecase.NewEvaluateService(newFakeJobRepo(), &fakeQueue{})

	_, err := svc.Enqueue(context.Background(), "", "up-job", "")
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
	_, err = svc.Enqueue(context.Background(), "up-cv", "", "")
	require.ErrorIs(t, err, domain.ErrInvalidArgument)
}

func TestEnqueueIdempotencyShortCircuit(t *testing.T) {
	jobs := newFakeJobRepo()
	queue := &fakeQueue{}
	svc := usecase.NewEvaluateService(jobs, queue)
	ctx := context.Background()

	first, err := svc.Enqueue(ctx, "up-cv", "up-job", "key-1")
	require.NoError(t, err)

	second, err := svc.Enqueue(ctx, "up-cv", "up-job", "key-1")
	require.NoError(t, err)
	require.Equal(t, first, second)
	// Replay does not enqueue a second task.
	require.Len(t, queue.enqueued, 1)

	third, err := svc.Enqueue(ctx, "up-cv", "up-job", "key-2")
	require.NoError(t, err)
	require.NotEqual(t, first, third)
	require.Len(t, queue.enqueued, 2)
}

func TestEnqueueFailureMarksJobFailed(t *testing.T) {
	jobs := newFakeJobRepo()
	queue := &fakeQueue{fail: domain.ErrInternal}
	svc := usecase.NewEvaluateService(jobs, queue)

	_, err := svc.Enqueue(context.Background(), "up-cv", "up-job", "")
	require.ErrorIs(t, err, domain.ErrInternal)

	var failed *domain.Job
	for _, j := range jobs.jobs {
		j := j
		failed = &j
	}
	require.NotNil(t, failed)
	require.Equal(t, domain.JobFailed, failed.Status)
	require.Contains(t, failed.Error, "enqueue")
}
