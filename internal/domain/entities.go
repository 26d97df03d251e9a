// Package domain holds the core entities and ports of the CV match advisor.
package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrSchemaInvalid      = errors.New("schema invalid")
	ErrRefusal            = errors.New("model refused")
	ErrFeedbackExhausted  = errors.New("feedback rounds exhausted")
	ErrInvalidTransition  = errors.New("invalid rewrite transition")
	ErrUpstreamTimeout    = errors.New("upstream timeout")
	ErrUpstreamRateLimit  = errors.New("upstream rate limit")
	ErrInternal           = errors.New("internal error")
)

// DocumentKind enumerates the two ingested document kinds.
const (
	DocumentKindCV  = "cv"
	DocumentKindJob = "job_description"
)

// Upload represents resolved plain text and metadata for a CV or a job description.
// Invariants: Kind in {cv, job_description}; Text sanitized and non-empty.
type Upload struct {
	ID         string
	Kind       string
	Text       string
	SourceName string
	MIME       string
	Size       int64
	CreatedAt  time.Time
}

// JobStatus tracks the lifecycle of one evaluation request.
type JobStatus string

// Job statuses.
const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Job is one evaluation request binding a CV upload to a job-description upload.
type Job struct {
	ID          string
	Status      JobStatus
	Error       string
	CVUploadID  string
	JobUploadID string
	IdemKey     *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Result is the persisted outcome of a completed evaluation.
// Evaluation carries the full per-dimension evidence so the rewrite
// loop can be started later without re-running the pipeline.
type Result struct {
	JobID          string
	Decision       Decision
	WeightedScore  float64
	Recommendation string
	Strengths      []string
	Weaknesses     []string
	FocusAreas     []string
	RedFlags       []string
	Evaluation     EvaluationPayload
	CreatedAt      time.Time
}

// EvaluationPayload is the evidence bundle stored alongside the decision.
type EvaluationPayload struct {
	CVText     string             `json:"cv_text"`
	CVProfile  CVProfile          `json:"cv_profile"`
	JobProfile JobProfile         `json:"job_profile"`
	Dimensions DimensionResults   `json:"dimensions"`
	Weights    WeightingStrategy  `json:"weights"`
}

// Repositories (ports)

type UploadRepository interface {
	Create(ctx context.Context, u Upload) (string, error)
	Get(ctx context.Context, id string) (Upload, error)
}

type JobRepository interface {
	Create(ctx context.Context, j Job) (string, error)
	UpdateStatus(ctx context.Context, id string, status JobStatus, errMsg *string) error
	Get(ctx context.Context, id string) (Job, error)
	FindByIdempotencyKey(ctx context.Context, key string) (Job, error)
}

type ResultRepository interface {
	Upsert(ctx context.Context, r Result) error
	GetByJobID(ctx context.Context, jobID string) (Result, error)
}

// SessionStore persists rewrite sessions keyed by job id. One live session
// per job; Save overwrites.
type SessionStore interface {
	Save(ctx context.Context, s RewriteSession) error
	Get(ctx context.Context, jobID string) (RewriteSession, error)
	Delete(ctx context.Context, jobID string) error
}

// Queue (port)

type Queue interface {
	EnqueueEvaluate(ctx context.Context, payload EvaluateTaskPayload) (string, error)
}

// AIClient (port)
// ChatJSON returns raw model output expected to be a single JSON object
// matching the schema described in the prompts; callers decode and validate.
type AIClient interface {
	ChatJSON(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
}

// TextExtractor (port)
// ExtractPath extracts plain text from a file at path with its original
// filename; ExtractURL fetches a remote document and extracts its text.
type TextExtractor interface {
	ExtractPath(ctx context.Context, fileName, path string) (string, error)
	ExtractURL(ctx context.Context, url string) (string, error)
}

// DocumentRenderer (port)
// Render converts a Markdown draft into a word-processor document under
// outputDir and returns the file path. Given identical Markdown the
// document's readable text content is reproducible.
type DocumentRenderer interface {
	Render(markdown, outputDir string) (string, error)
}

// EvaluateTaskPayload is the queue message for one evaluation.
type EvaluateTaskPayload struct {
	JobID       string `json:"job_id"`
	CVUploadID  string `json:"cv_upload_id"`
	JobUploadID string `json:"job_upload_id"`
}
