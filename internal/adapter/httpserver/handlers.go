package httpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/fairyhunter13/cv-match-advisor/internal/config"
	"github.com/fairyhunter13/cv-match-advisor/internal/domain"
	"github.com/fairyhunter13/cv-match-advisor/internal/usecase"
)

// Server aggregates handler dependencies.
type Server struct {
	Cfg        config.Config
	Ingest     usecase.IngestService
	Evaluate   usecase.EvaluateService
	Results    usecase.ResultService
	Rewrite    usecase.RewriteService
	DBCheck    func(ctx context.Context) error
	RedisCheck func(ctx context.Context) error
	TikaCheck  func(ctx context.Context) error
}

// NewServer constructs an HTTP server with all handlers and checks wired.
func NewServer(cfg config.Config, ingest usecase.IngestService, eval usecase.EvaluateService, results usecase.ResultService, rw usecase.RewriteService, dbCheck, redisCheck, tikaCheck func(context.Context) error) *Server {
	return &Server{Cfg: cfg, Ingest: ingest, Evaluate: eval, Results: results, Rewrite: rw, DBCheck: dbCheck, RedisCheck: redisCheck, TikaCheck: tikaCheck}
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

// acceptsJSON rejects requests that explicitly refuse JSON responses.
func acceptsJSON(w http.ResponseWriter, r *http.Request) bool {
	if a := r.Header.Get("Accept"); a != "" && a != "*/*" && !strings.Contains(a, "application/json") {
		writeJSON(w, http.StatusNotAcceptable, errorEnvelope{Error: apiError{
			Code: "INVALID_ARGUMENT", Message: "not acceptable", Details: map[string]any{"accept": a},
		}})
		return false
	}
	return true
}

// EvaluateHandler accepts a CV and a job description, each as pasted text,
// an uploaded file, or a URL, creates a queued job, and responds 202.
//
// multipart/form-data fields: cv_text|cv_file|cv_url and
// job_text|job_file|job_url. application/json body: {"cv": {"text"|"url"},
// "job": {"text"|"url"}}.
func (s *Server) EvaluateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		ctx := r.Context()

		var cvSrc, jobSrc usecase.DocumentSource
		ct := r.Header.Get("Content-Type")
		switch {
		case strings.Contains(ct, "multipart/form-data"):
			maxBytes := s.Cfg.MaxUploadMB * 1024 * 1024
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes*2)
			if err := r.ParseMultipartForm(maxBytes * 2); err != nil {
				if strings.Contains(strings.ToLower(err.Error()), "too large") {
					writeJSON(w, http.StatusRequestEntityTooLarge, errorEnvelope{Error: apiError{
						Code: "INVALID_ARGUMENT", Message: "payload too large",
						Details: map[string]any{"max_mb": s.Cfg.MaxUploadMB},
					}})
					return
				}
				writeError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err), nil)
				return
			}
			cvSrc = formSource(r, "cv")
			jobSrc = formSource(r, "job")
		case strings.Contains(ct, "application/json"), ct == "":
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
			var req struct {
				CV  documentInput `json:"cv" validate:"required"`
				Job documentInput `json:"job" validate:"required"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeError(w, r, fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument), nil)
				return
			}
			if err := getValidator().Struct(req); err != nil {
				writeError(w, r, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument), validationDetails(err))
				return
			}
			cvSrc = usecase.DocumentSource{Text: req.CV.Text, URL: req.CV.URL}
			jobSrc = usecase.DocumentSource{Text: req.Job.Text, URL: req.Job.URL}
		default:
			writeError(w, r, fmt.Errorf("%w: unsupported content type %q", domain.ErrInvalidArgument, ct), nil)
			return
		}

		cvID, err := s.Ingest.IngestDocument(ctx, domain.DocumentKindCV, cvSrc)
		if err != nil {
			writeError(w, r, fmt.Errorf("ingest cv: %w", err), map[string]string{"field": "cv"})
			return
		}
		jobID, err := s.Ingest.IngestDocument(ctx, domain.DocumentKindJob, jobSrc)
		if err != nil {
			writeError(w, r, fmt.Errorf("ingest job description: %w", err), map[string]string{"field": "job"})
			return
		}

		id, err := s.Evaluate.Enqueue(ctx, cvID, jobID, r.Header.Get("Idempotency-Key"))
		if err != nil {
			writeError(w, r, fmt.Errorf("enqueue: %w", err), nil)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"id": id, "status": string(domain.JobQueued)})
	}
}

type documentInput struct {
	Text string `json:"text" validate:"omitempty,max=200000"`
	URL  string `json:"url" validate:"omitempty,url"`
}

func formSource(r *http.Request, prefix string) usecase.DocumentSource {
	src := usecase.DocumentSource{
		Text: strings.TrimSpace(r.FormValue(prefix + "_text")),
		URL:  strings.TrimSpace(r.FormValue(prefix + "_url")),
	}
	if r.MultipartForm != nil {
		if fhs := r.MultipartForm.File[prefix+"_file"]; len(fhs) > 0 {
			src.File = fhs[0]
		}
	}
	return src
}

func validationDetails(err error) map[string]string {
	verrs := map[string]string{}
	if ve, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range ve {
			verrs[strings.ToLower(fe.Field())] = fe.Tag()
		}
	}
	return verrs
}

// ResultHandler returns job status and the result when completed.
func (s *Server) ResultHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !acceptsJSON(w, r) {
			return
		}
		id := chi.URLParam(r, "id")
		if id == "" {
			writeError(w, r, fmt.Errorf("%w: id missing", domain.ErrInvalidArgument), nil)
			return
		}
		status, res, etag, err := s.Results.Fetch(r.Context(), id, r.Header.Get("If-None-Match"))
		if err != nil {
			writeError(w, r, err, nil)
			return
		}
		w.Header().Set("ETag", etag)
		if status == http.StatusNotModified {
			w.WriteHeader(status)
			return
		}
		writeJSON(w, status, res)
	}
}

// ReadyzHandler probes the database, Redis, and Tika.
func (s *Server) ReadyzHandler() http.HandlerFunc {
	type check struct {
		Name    string `json:"name"`
		OK      bool   `json:"ok"`
		Details string `json:"details,omitempty"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		probes := []struct {
			name string
			fn   func(context.Context) error
		}{
			{"db", s.DBCheck},
			{"redis", s.RedisCheck},
			{"tika", s.TikaCheck},
		}
		checks := make([]check, 0, len(probes))
		ok := true
		for _, p := range probes {
			if p.fn == nil {
				continue
			}
			if err := p.fn(ctx); err != nil {
				ok = false
				checks = append(checks, check{Name: p.name, OK: false, Details: err.Error()})
			} else {
				checks = append(checks, check{Name: p.name, OK: true})
			}
		}
		st := http.StatusOK
		if !ok {
			st = http.StatusServiceUnavailable
		}
		writeJSON(w, st, map[string]any{"checks": checks})
	}
}
