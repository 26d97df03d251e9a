package httpserver_test

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fairyhunter13/cv-match-advisor/internal/adapter/ai"
	"github.com/fairyhunter13/cv-match-advisor/internal/adapter/httpserver"
	"github.com/fairyhunter13/cv-match-advisor/internal/config"
	"github.com/fairyhunter13/cv-match-advisor/internal/domain"
	"github.com/fairyhunter13/cv-match-advisor/internal/rewrite"
	"github.com/fairyhunter13/cv-match-advisor/internal/usecase"
)

// In-memory port fakes backing the handler fixtures.

type memUploads struct {
	mu   sync.Mutex
	m    map[string]domain.Upload
	next int
}

func (r *memUploads) Create(_ context.Context, u domain.Upload) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.next++
	u.ID = fmt.Sprintf("up-%d", r.next)
	r.m[u.ID] = u
	return u.ID, nil
}

func (r *memUploads) Get(_ context.Context, id string) (domain.Upload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.m[id]
	if !ok {
		return domain.Upload{}, domain.ErrNotFound
	}
	return u, nil
}

type memJobs struct {
	mu sync.Mutex
	m  map[string]domain.Job
}

func (r *memJobs) Create(_ context.Context, j domain.Job) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[j.ID] = j
	return j.ID, nil
}

func (r *memJobs) UpdateStatus(_ context.Context, id string, status domain.JobStatus, errMsg *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.m[id]
	if !ok {
		return domain.ErrNotFound
	}
	j.Status = status
	if errMsg != nil {
		j.Error = *errMsg
	}
	r.m[id] = j
	return nil
}

func (r *memJobs) Get(_ context.Context, id string) (domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.m[id]
	if !ok {
		return domain.Job{}, domain.ErrNotFound
	}
	return j, nil
}

func (r *memJobs) FindByIdempotencyKey(_ context.Context, key string) (domain.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, j := range r.m {
		if j.IdemKey != nil && *j.IdemKey == key {
			return j, nil
		}
	}
	return domain.Job{}, domain.ErrNotFound
}

type memResults struct {
	mu sync.Mutex
	m  map[string]domain.Result
}

func (r *memResults) Upsert(_ context.Context, res domain.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.m[res.JobID] = res
	return nil
}

func (r *memResults) GetByJobID(_ context.Context, jobID string) (domain.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.m[jobID]
	if !ok {
		return domain.Result{}, domain.ErrNotFound
	}
	return res, nil
}

type memSessions struct {
	mu sync.Mutex
	m  map[string]domain.RewriteSession
}

func (s *memSessions) Save(_ context.Context, sess domain.RewriteSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[sess.JobID] = sess
	return nil
}

func (s *memSessions) Get(_ context.Context, jobID string) (domain.RewriteSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.m[jobID]
	if !ok {
		return domain.RewriteSession{}, domain.ErrNotFound
	}
	return sess, nil
}

func (s *memSessions) Delete(_ context.Context, jobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, jobID)
	return nil
}

type memQueue struct {
	mu   sync.Mutex
	sent []domain.EvaluateTaskPayload
}

func (q *memQueue) EnqueueEvaluate(_ context.Context, p domain.EvaluateTaskPayload) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.sent = append(q.sent, p)
	return p.JobID, nil
}

type stubExtractor struct{ text string }

func (e stubExtractor) ExtractPath(_ context.Context, _, _ string) (string, error) { return e.text, nil }
func (e stubExtractor) ExtractURL(_ context.Context, _ string) (string, error)     { return e.text, nil }

type stubRenderer struct{}

func (stubRenderer) Render(_, outputDir string) (string, error) {
	return filepath.Join(outputDir, "cv.docx"), nil
}

// fixture bundles the server with the stores the tests seed directly.
type fixture struct {
	srv      *httpserver.Server
	jobs     *memJobs
	results  *memResults
	sessions *memSessions
	queue    *memQueue
	router   chi.Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	jobs := &memJobs{m: map[string]domain.Job{}}
	results := &memResults{m: map[string]domain.Result{}}
	sessions := &memSessions{m: map[string]domain.RewriteSession{}}
	queue := &memQueue{}
	uploads := &memUploads{m: map[string]domain.Upload{}}

	client := ai.NewScriptedClient()
	client.RespondRaw("cv_draft", "# Jordan Doe\n\nRewritten CV body.")
	client.RespondRaw("cv_revise", "# Jordan Doe\n\nRevised CV body.")
	engine := &rewrite.Engine{
		AI:              client,
		Renderer:        stubRenderer{},
		OutputDir:       t.TempDir(),
		MaxRounds:       2,
		MaxOutputTokens: 2048,
	}

	cfg := config.Config{MaxUploadMB: 8}
	srv := httpserver.NewServer(cfg,
		usecase.NewIngestService(uploads, stubExtractor{text: "extracted text"}, cfg.MaxUploadMB),
		usecase.NewEvaluateService(jobs, queue),
		usecase.NewResultService(jobs, results),
		usecase.NewRewriteService(jobs, results, sessions, engine),
		nil, nil, nil)

	r := chi.NewRouter()
	r.Post("/v1/evaluate", srv.EvaluateHandler())
	r.Get("/v1/result/{id}", srv.ResultHandler())
	r.Post("/v1/result/{id}/rewrite", srv.RewriteStartHandler())
	r.Post("/v1/result/{id}/rewrite/feedback", srv.RewriteFeedbackHandler())
	r.Post("/v1/result/{id}/rewrite/finalize", srv.RewriteFinalizeHandler())
	r.Get("/v1/result/{id}/rewrite/document", srv.RewriteDocumentHandler())
	r.Get("/readyz", srv.ReadyzHandler())

	return &fixture{srv: srv, jobs: jobs, results: results, sessions: sessions, queue: queue, router: r}
}

func (f *fixture) seedCompletedJob(jobID string) {
	now := time.Now().UTC()
	f.jobs.m[jobID] = domain.Job{ID: jobID, Status: domain.JobCompleted, CreatedAt: now, UpdatedAt: now}
	f.results.m[jobID] = domain.Result{
		JobID:          jobID,
		Decision:       domain.DecisionGood,
		WeightedScore:  73.25,
		Recommendation: "Solid fit.",
		Strengths:      []string{"Go services"},
		Weaknesses:     []string{"No AWS"},
	}
}
