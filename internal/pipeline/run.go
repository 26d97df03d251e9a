package pipeline

import (
	"context"
	"time"

	"github.com/fairyhunter13/cv-match-advisor/internal/adapter/ai/tokencount"
	"github.com/fairyhunter13/cv-match-advisor/internal/config"
	"github.com/fairyhunter13/cv-match-advisor/internal/domain"
)

// Runner owns one full evaluation: extraction fan-out, seven dimension
// stages, weighting, scoring.
type Runner struct {
	AI              domain.AIClient
	Guidance        config.ArchetypeGuidance
	Tolerance       float64
	Model           string
	TokenBudget     int
	MaxOutputTokens int
	Concurrency     int
	StageTimeout    time.Duration
}

// NewRunner builds a Runner from configuration.
func NewRunner(client domain.AIClient, cfg config.Config, guidance config.ArchetypeGuidance) *Runner {
	return &Runner{
		AI:              client,
		Guidance:        guidance,
		Tolerance:       cfg.WeightSumTolerance,
		Model:           cfg.ChatModel,
		TokenBudget:     cfg.PromptTokenBudget,
		MaxOutputTokens: cfg.MaxOutputTokens,
		Concurrency:     cfg.StageConcurrency,
		StageTimeout:    cfg.StageTimeout,
	}
}

// stages builds the static stage table. Both extractions run first, the
// seven dimensions fan out behind them, weighting starts once every
// dimension result is present, and scoring waits on everything.
func (r *Runner) stages() []Stage {
	dimDeps := []string{StageExtractCV, StageExtractJob}
	weightDeps := append([]string{StageExtractJob}, domain.Dimensions...)
	scoringDeps := append([]string{StageWeights}, domain.Dimensions...)
	return []Stage{
		{Name: StageExtractCV, Run: r.extractCV},
		{Name: StageExtractJob, Run: r.extractJob},
		{Name: domain.DimSkills, Deps: dimDeps, Run: r.runSkills},
		{Name: domain.DimKeyword, Deps: dimDeps, Run: r.runKeyword},
		{Name: domain.DimRequirements, Deps: dimDeps, Run: r.runRequirements},
		{Name: domain.DimSeniority, Deps: dimDeps, Run: r.runSeniority},
		{Name: domain.DimQualification, Deps: dimDeps, Run: r.runQualification},
		{Name: domain.DimRecency, Deps: dimDeps, Run: r.runRecency},
		{Name: domain.DimDomain, Deps: dimDeps, Run: r.runDomain},
		{Name: StageWeights, Deps: weightDeps, Run: r.runWeights},
		{Name: StageScoring, Deps: scoringDeps, Run: r.runScoring},
	}
}

// Evaluate runs the whole pipeline over the two resolved texts and returns
// the populated state. On failure the returned state keeps every slot that
// completed before the failing stage.
func (r *Runner) Evaluate(ctx context.Context, jobID, cvText, jobText string) (*domain.EvalState, error) {
	state := &domain.EvalState{JobID: jobID, CVText: cvText, JobText: jobText}
	sched := &Scheduler{
		Stages:       r.stages(),
		Concurrency:  r.Concurrency,
		StageTimeout: r.StageTimeout,
	}
	if err := sched.Run(ctx, state); err != nil {
		return state, err
	}
	return state, nil
}

// truncate bounds prompt material to the configured token budget.
func (r *Runner) truncate(text string) string {
	if r.TokenBudget <= 0 {
		return text
	}
	return tokencount.TruncateDefault(text, r.Model, r.TokenBudget)
}
