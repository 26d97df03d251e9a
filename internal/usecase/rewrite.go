package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/fairyhunter13/cv-match-advisor/internal/domain"
	"github.com/fairyhunter13/cv-match-advisor/internal/rewrite"
)

// RewriteService drives the CV rewrite loop for completed jobs, persisting
// the session between calls.
type RewriteService struct {
	Jobs     domain.JobRepository
	Results  domain.ResultRepository
	Sessions domain.SessionStore
	Engine   *rewrite.Engine
}

// NewRewriteService constructs a RewriteService.
func NewRewriteService(jobs domain.JobRepository, results domain.ResultRepository, sessions domain.SessionStore, engine *rewrite.Engine) RewriteService {
	return RewriteService{Jobs: jobs, Results: results, Sessions: sessions, Engine: engine}
}

// Start creates a session from the job's stored result and drafts the first
// rewrite. A job that already has a live session conflicts.
func (s RewriteService) Start(ctx context.Context, jobID string) (domain.RewriteSession, error) {
	job, err := s.Jobs.Get(ctx, jobID)
	if err != nil {
		return domain.RewriteSession{}, fmt.Errorf("op=rewrite.start load job: %w", err)
	}
	if job.Status != domain.JobCompleted {
		return domain.RewriteSession{}, fmt.Errorf("%w: job %s is %s, rewrite requires a completed evaluation",
			domain.ErrInvalidTransition, jobID, job.Status)
	}

	if existing, err := s.Sessions.Get(ctx, jobID); err == nil {
		if existing.Phase != domain.RewriteDone {
			return domain.RewriteSession{}, fmt.Errorf("%w: rewrite session already active for job %s",
				domain.ErrConflict, jobID)
		}
		// A finished session may be replaced by a fresh one.
		slog.Info("replacing finished rewrite session", slog.String("job_id", jobID))
	} else if !errors.Is(err, domain.ErrNotFound) {
		return domain.RewriteSession{}, fmt.Errorf("op=rewrite.start load session: %w", err)
	}

	res, err := s.Results.GetByJobID(ctx, jobID)
	if err != nil {
		return domain.RewriteSession{}, fmt.Errorf("op=rewrite.start load result: %w", err)
	}

	sess := rewrite.NewSessionFromResult(res, s.Engine.MaxRounds)
	if err := s.Engine.Start(ctx, &sess); err != nil {
		return domain.RewriteSession{}, err
	}
	if err := s.Sessions.Save(ctx, sess); err != nil {
		return domain.RewriteSession{}, fmt.Errorf("op=rewrite.start save session: %w", err)
	}
	return sess, nil
}

// Feedback applies one round of user feedback to the job's session.
func (s RewriteService) Feedback(ctx context.Context, jobID, feedback string) (domain.RewriteSession, error) {
	sess, err := s.Sessions.Get(ctx, jobID)
	if err != nil {
		return domain.RewriteSession{}, fmt.Errorf("op=rewrite.feedback load session: %w", err)
	}
	if err := s.Engine.ApplyFeedback(ctx, &sess, feedback); err != nil {
		return domain.RewriteSession{}, err
	}
	if err := s.Sessions.Save(ctx, sess); err != nil {
		return domain.RewriteSession{}, fmt.Errorf("op=rewrite.feedback save session: %w", err)
	}
	return sess, nil
}

// Finalize renders the current draft to a document and returns the session.
func (s RewriteService) Finalize(ctx context.Context, jobID string) (domain.RewriteSession, error) {
	sess, err := s.Sessions.Get(ctx, jobID)
	if err != nil {
		return domain.RewriteSession{}, fmt.Errorf("op=rewrite.finalize load session: %w", err)
	}
	if err := s.Engine.Finalize(ctx, &sess); err != nil {
		return domain.RewriteSession{}, err
	}
	if err := s.Sessions.Save(ctx, sess); err != nil {
		return domain.RewriteSession{}, fmt.Errorf("op=rewrite.finalize save session: %w", err)
	}
	return sess, nil
}

// DocumentPath returns the rendered document path for a finalized session.
func (s RewriteService) DocumentPath(ctx context.Context, jobID string) (string, error) {
	sess, err := s.Sessions.Get(ctx, jobID)
	if err != nil {
		return "", fmt.Errorf("op=rewrite.document load session: %w", err)
	}
	if sess.Phase != domain.RewriteDone || sess.DocumentPath == "" {
		return "", fmt.Errorf("%w: no rendered document for job %s", domain.ErrNotFound, jobID)
	}
	return sess.DocumentPath, nil
}
