package pipeline

import (
	"context"
	"fmt"
	"math"

	"github.com/fairyhunter13/cv-match-advisor/internal/adapter/ai"
	"github.com/fairyhunter13/cv-match-advisor/internal/domain"
)

// Scores live in [0, maxDimensionScore]; only requirements_coverage uses
// the headroom above 100 via nice-to-have bonus points.
const maxDimensionScore = 130

func clampScore(score float64) float64 {
	return math.Max(0, math.Min(score, maxDimensionScore))
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func (r *Runner) runSkills(ctx context.Context, st *domain.EvalState) error {
	res, err := ai.ChatInto[domain.SkillsResult](ctx, r.AI, skillsSystem, r.truncate(skillsUser(st)), r.MaxOutputTokens)
	if err != nil {
		return fmt.Errorf("op=pipeline.runSkills: %w", err)
	}
	res.Score = math.Min(clampScore(res.Score), 100)
	res.MatchedItems = emptyIfNil(res.MatchedItems)
	res.MissingItems = emptyIfNil(res.MissingItems)
	res.PartialMatches = emptyIfNil(res.PartialMatches)
	res.BonusItems = emptyIfNil(res.BonusItems)
	res.RedFlags = emptyIfNil(res.RedFlags)
	st.Skills = &res
	return nil
}

func (r *Runner) runQualification(ctx context.Context, st *domain.EvalState) error {
	res, err := ai.ChatInto[domain.QualificationResult](ctx, r.AI, qualificationSystem, r.truncate(qualificationUser(st)), r.MaxOutputTokens)
	if err != nil {
		return fmt.Errorf("op=pipeline.runQualification: %w", err)
	}
	// Portfolio bonus is bounded even when the model overshoots.
	res.PortfolioBoost = math.Max(0, math.Min(res.PortfolioBoost, 20))
	res.Score = math.Min(clampScore(res.Score), 100)
	res.MatchedItems = emptyIfNil(res.MatchedItems)
	res.MissingItems = emptyIfNil(res.MissingItems)
	res.RedFlags = emptyIfNil(res.RedFlags)
	st.Qualification = &res
	return nil
}

func (r *Runner) runSeniority(ctx context.Context, st *domain.EvalState) error {
	res, err := ai.ChatInto[domain.SeniorityResult](ctx, r.AI, senioritySystem, r.truncate(seniorityUser(st)), r.MaxOutputTokens)
	if err != nil {
		return fmt.Errorf("op=pipeline.runSeniority: %w", err)
	}
	res.Score = math.Min(clampScore(res.Score), 100)
	res.RedFlags = emptyIfNil(res.RedFlags)
	// The years gap is arithmetic over extracted profiles, so it is
	// recomputed here rather than trusted from the model.
	if st.JobProfile.RequiredYearsExperience > 0 && st.CVProfile.TotalYearsExperience > 0 {
		res.YearsGap = st.CVProfile.TotalYearsExperience - st.JobProfile.RequiredYearsExperience
	}
	if res.YearsGap <= -2 && !hasUnderqualifiedFlag(res.RedFlags) {
		res.RedFlags = append(res.RedFlags, fmt.Sprintf(
			"underqualified by %.1f years against the stated requirement", -res.YearsGap))
	}
	st.Seniority = &res
	return nil
}

func hasUnderqualifiedFlag(flags []string) bool {
	for _, f := range flags {
		if containsFold(f, "underqualified") || containsFold(f, "under-qualified") {
			return true
		}
	}
	return false
}

func (r *Runner) runDomain(ctx context.Context, st *domain.EvalState) error {
	res, err := ai.ChatInto[domain.DomainResult](ctx, r.AI, domainSystem, r.truncate(domainUser(st)), r.MaxOutputTokens)
	if err != nil {
		return fmt.Errorf("op=pipeline.runDomain: %w", err)
	}
	res.Score = math.Min(clampScore(res.Score), 100)
	res.MatchedItems = emptyIfNil(res.MatchedItems)
	res.MissingItems = emptyIfNil(res.MissingItems)
	res.TransferableExperience = emptyIfNil(res.TransferableExperience)
	res.RedFlags = emptyIfNil(res.RedFlags)
	st.Domain = &res
	return nil
}

func (r *Runner) runRequirements(ctx context.Context, st *domain.EvalState) error {
	projection := r.truncate(cvSummaryProjection(st.CVProfile))
	res, err := ai.ChatInto[domain.RequirementsResult](ctx, r.AI, requirementsSystem, requirementsUser(st, projection), r.MaxOutputTokens)
	if err != nil {
		return fmt.Errorf("op=pipeline.runRequirements: %w", err)
	}
	res.Score = clampScore(res.Score)
	res.CoveragePercentage = math.Max(0, math.Min(res.CoveragePercentage, 100))
	res.MustHaveSatisfied = emptyIfNil(res.MustHaveSatisfied)
	res.MustHaveMissing = emptyIfNil(res.MustHaveMissing)
	res.NiceToHaveSatisfied = emptyIfNil(res.NiceToHaveSatisfied)
	res.RedFlags = emptyIfNil(res.RedFlags)
	st.Requirements = &res
	return nil
}

func (r *Runner) runRecency(ctx context.Context, st *domain.EvalState) error {
	res, err := ai.ChatInto[domain.RecencyResult](ctx, r.AI, recencySystem, r.truncate(recencyUser(st)), r.MaxOutputTokens)
	if err != nil {
		return fmt.Errorf("op=pipeline.runRecency: %w", err)
	}
	res.Score = math.Min(clampScore(res.Score), 100)
	res.RecentRelevantExperience = emptyIfNil(res.RecentRelevantExperience)
	res.OutdatedExperience = emptyIfNil(res.OutdatedExperience)
	res.RedFlags = emptyIfNil(res.RedFlags)
	st.Recency = &res
	return nil
}

// cvSummaryProjection renders the profile facts relevant to requirements
// checking, keeping the prompt bounded regardless of CV length.
func cvSummaryProjection(p *domain.CVProfile) string {
	return fmt.Sprintf(`Current title: %s
Total years experience: %.1f
Technical skills: %s
Experience: %s
Education: %s
Certifications: %s
Summary: %s`,
		p.CurrentTitle,
		p.TotalYearsExperience,
		mustJSON(p.SkillNames()),
		mustJSON(p.Experience),
		mustJSON(p.Education),
		mustJSON(p.Certifications),
		p.Summary)
}
