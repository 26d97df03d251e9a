package rewrite

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/fairyhunter13/cv-match-advisor/internal/adapter/ai"
	"github.com/fairyhunter13/cv-match-advisor/internal/adapter/observability"
	"github.com/fairyhunter13/cv-match-advisor/internal/domain"
)

// Engine runs the rewrite state machine over one session at a time. The
// session is the only carried state; callers persist it between calls.
// LLM failures leave the session exactly as it was.
type Engine struct {
	AI              domain.AIClient
	Renderer        domain.DocumentRenderer
	OutputDir       string
	MaxRounds       int
	MaxOutputTokens int
}

// NewSessionFromResult reduces a completed evaluation into the projection
// the drafting prompts work from. Full pipeline state never enters the loop.
func NewSessionFromResult(res domain.Result, maxRounds int) domain.RewriteSession {
	ev := res.Evaluation
	d := ev.Dimensions
	now := time.Now().UTC()
	s := domain.RewriteSession{
		ID:             ulid.Make().String(),
		JobID:          res.JobID,
		Phase:          domain.RewriteIdle,
		OriginalCV:     ev.CVProfile,
		TargetJob:      ev.JobProfile,
		OriginalCVText: ev.CVText,

		MatchedSkills:       d.Skills.MatchedItems,
		PartialSkillMatches: d.Skills.PartialMatches,
		MatchedKeywords:     d.Keyword.MatchedKeywords,
		MissingKeywords:     d.Keyword.MissingKeywords,

		MustHavesSatisfied:   d.Requirements.MustHaveSatisfied,
		MustHavesMissing:     d.Requirements.MustHaveMissing,
		NiceToHavesSatisfied: d.Requirements.NiceToHaveSatisfied,

		RecentRelevantExperience: d.Recency.RecentRelevantExperience,
		MatchedDomains:           d.Domain.MatchedItems,
		TransferableDomains:      d.Domain.TransferableExperience,

		CandidateLevel: d.Seniority.CandidateLevel,
		RequiredLevel:  d.Seniority.RequiredLevel,
		TitleAlignment: d.Seniority.TitleAlignment,

		TopStrengths:  head(res.Strengths, 5),
		KeyWeaknesses: head(res.Weaknesses, 3),
		RedFlags:      res.RedFlags,

		KeywordFrequencyTargets: d.Keyword.KeywordFrequency,
		FocusAreas:              res.FocusAreas,

		MaxRounds: maxRounds,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.Normalize()
	return s
}

func head(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// Start drafts the first rewritten CV. Valid only from Idle.
func (e *Engine) Start(ctx context.Context, s *domain.RewriteSession) error {
	if s.Phase != domain.RewriteIdle {
		return fmt.Errorf("%w: cannot start from phase %s", domain.ErrInvalidTransition, s.Phase)
	}
	draft, err := e.chatMarkdown(ctx, draftSystem, draftUser(s))
	if err != nil {
		return fmt.Errorf("op=rewrite.Start: %w", err)
	}
	s.DraftMarkdown = draft
	s.Phase = domain.RewriteAwaitingFeedback
	if s.RoundsRemaining() == 0 {
		s.Phase = domain.RewriteFinalizing
	}
	s.UpdatedAt = time.Now().UTC()
	slog.Info("rewrite draft complete",
		slog.String("job_id", s.JobID),
		slog.Int("rounds_remaining", s.RoundsRemaining()))
	return nil
}

// ApplyFeedback runs one revision round. Valid only from AwaitingFeedback
// with rounds remaining; the counter advances by exactly one per success.
func (e *Engine) ApplyFeedback(ctx context.Context, s *domain.RewriteSession, feedback string) error {
	feedback = strings.TrimSpace(feedback)
	if feedback == "" {
		return fmt.Errorf("%w: feedback must not be empty", domain.ErrInvalidArgument)
	}
	if s.Phase != domain.RewriteAwaitingFeedback {
		return fmt.Errorf("%w: cannot apply feedback from phase %s", domain.ErrInvalidTransition, s.Phase)
	}
	if s.RoundsRemaining() == 0 {
		return fmt.Errorf("%w: %d rounds used", domain.ErrFeedbackExhausted, s.FeedbackRound)
	}
	draft, err := e.chatMarkdown(ctx, reviseSystem, reviseUser(s, feedback))
	if err != nil {
		return fmt.Errorf("op=rewrite.ApplyFeedback: %w", err)
	}
	s.DraftMarkdown = draft
	s.UserFeedback = feedback
	s.FeedbackRound++
	s.Phase = domain.RewriteAwaitingFeedback
	if s.RoundsRemaining() == 0 {
		s.Phase = domain.RewriteFinalizing
	}
	s.UpdatedAt = time.Now().UTC()
	slog.Info("rewrite revision complete",
		slog.String("job_id", s.JobID),
		slog.Int("feedback_round", s.FeedbackRound),
		slog.Int("rounds_remaining", s.RoundsRemaining()))
	return nil
}

// Finalize renders the current draft to a document. Valid from
// AwaitingFeedback or Finalizing; the draft is retained so the session can
// be re-finalized, and an unchanged draft skips the render.
func (e *Engine) Finalize(ctx context.Context, s *domain.RewriteSession) error {
	if s.Phase != domain.RewriteAwaitingFeedback && s.Phase != domain.RewriteFinalizing && s.Phase != domain.RewriteDone {
		return fmt.Errorf("%w: cannot finalize from phase %s", domain.ErrInvalidTransition, s.Phase)
	}
	if strings.TrimSpace(s.DraftMarkdown) == "" {
		return fmt.Errorf("%w: no draft to finalize", domain.ErrInvalidTransition)
	}
	digest := draftDigest(s.DraftMarkdown)
	if s.Phase == domain.RewriteDone && s.RenderedFrom == digest && s.DocumentPath != "" {
		return nil
	}
	path, err := e.Renderer.Render(s.DraftMarkdown, e.OutputDir)
	if err != nil {
		return fmt.Errorf("op=rewrite.Finalize: %w", err)
	}
	s.DocumentPath = path
	s.RenderedFrom = digest
	s.Phase = domain.RewriteDone
	s.UpdatedAt = time.Now().UTC()
	observability.ObserveRewriteRounds(s.FeedbackRound)
	slog.Info("rewrite finalized",
		slog.String("job_id", s.JobID),
		slog.String("document_path", path),
		slog.Int("feedback_rounds", s.FeedbackRound))
	return nil
}

// chatMarkdown runs one chat call expecting Markdown prose, with refusal
// checking and fence stripping.
func (e *Engine) chatMarkdown(ctx context.Context, system, user string) (string, error) {
	raw, err := e.AI.ChatJSON(ctx, system, user, e.MaxOutputTokens)
	if err != nil {
		return "", err
	}
	if ai.IsRefusal(raw) {
		return "", fmt.Errorf("%w: draft refused", domain.ErrRefusal)
	}
	out := strings.TrimSpace(raw)
	out = strings.TrimPrefix(out, "```markdown")
	out = strings.TrimPrefix(out, "```")
	out = strings.TrimSuffix(out, "```")
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("%w: empty draft", domain.ErrSchemaInvalid)
	}
	return out, nil
}

func draftDigest(markdown string) string {
	sum := sha256.Sum256([]byte(markdown))
	return hex.EncodeToString(sum[:])
}
