package usecase_test

import (
	"context"
	"fmt"
	"sync"

	"github.com/fairyhunter13/cv-match-advisor/internal/domain"
)

// In-memory fakes for the repository and queue ports.

type fakeUploadRepo struct {
	mu      sync.Mutex
	uploads map[string]domain.Upload
	nextID  int
}

func newFakeUploadRepo() *fakeUploadRepo {
	return &fakeUploadRepo{uploads: map[string]domain.Upload{}}
}

func (r *fakeUploadRepo) Create(_ context.Context, u domain.Upload) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	u.ID = fmt.Sprintf("up-%d", r.nextID)
	r.uploads[u.ID] = u
	return u.ID, nil
}

func (r *fakeUploadRepo) Get(_ context.Context, id string) (domain.Upload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.uploads[id]
	if !ok {
		return domain.Upload{}, domain.ErrNotFound
	}
	return u, nil
}

type fakeJobRepo struct {
	mu   sync.Mutex
	jobs map[string]domain.Job
}

func newFakeJobRepo() *fakeJobRepo { return &fakeJobRepo{jobs: map[string]domain.Job{}} }

func (r *fakeJobRepo) Create(_ context.Context, j domain.Job) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[j.ID] = j
	return j.ID, nil
}

func (r *fakeJobRepo) UpdateStatus(_ context.Context, id string, status domain.JobStatus, errMsg *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return domain.ErrNotFound
	}
	j.Status = status
	if errMsg != nil {
		j.Error = *errMsg
	}
	r.jobs[id] = j
	return nil
}

func (r *fakeJobRepo) Get(_ context.Context, id string) (domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	if !ok {
		return domain.Job{}, domain.ErrNotFound
	}
	return j, nil
}

func (r *fakeJobRepo) FindByIdempotencyKey(_ context.Context, key string) (domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.jobs {
		if j.IdemKey != nil && *j.IdemKey == key {
			return j, nil
		}
	}
	return domain.Job{}, domain.ErrNotFound
}

type fakeResultRepo struct {
	mu      sync.Mutex
	results map[string]domain.Result
}

func newFakeResultRepo() *fakeResultRepo { return &fakeResultRepo{results: map[string]domain.Result{}} }

func (r *fakeResultRepo) Upsert(_ context.Context, res domain.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[res.JobID] = res
	return nil
}

func (r *fakeResultRepo) GetByJobID(_ context.Context, jobID string) (domain.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.results[jobID]
	if !ok {
		return domain.Result{}, domain.ErrNotFound
	}
	return res, nil
}

type fakeQueue struct {
	mu       sync.Mutex
	enqueued []domain.EvaluateTaskPayload
	fail     error
}

func (q *fakeQueue) EnqueueEvaluate(_ context.Context, p domain.EvaluateTaskPayload) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.fail != nil {
		return "", q.fail
	}
	q.enqueued = append(q.enqueued, p)
	return p.JobID, nil
}

type fakeSessionStore struct {
	mu       sync.Mutex
	sessions map[string]domain.RewriteSession
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: map[string]domain.RewriteSession{}}
}

func (s *fakeSessionStore) Save(_ context.Context, sess domain.RewriteSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.JobID] = sess
	return nil
}

func (s *fakeSessionStore) Get(_ context.Context, jobID string) (domain.RewriteSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[jobID]
	if !ok {
		return domain.RewriteSession{}, domain.ErrNotFound
	}
	return sess, nil
}

func (s *fakeSessionStore) Delete(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, jobID)
	return nil
}
