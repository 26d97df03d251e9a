package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/fairyhunter13/cv-match-advisor/internal/adapter/ai"
	"github.com/fairyhunter13/cv-match-advisor/internal/domain"
)

const redFlagThreshold = 5

const atsRiskNote = "Note: with a keyword score below 60 and keyword weight above 15%, this CV would likely be filtered out by automated screening before a human reads it."

// runScoring computes the weighted score as a plain dot product over the
// canonical dimension order, then asks the model for the decision band and
// narrative. The override rules are enforced here, not trusted to the model.
func (r *Runner) runScoring(ctx context.Context, st *domain.EvalState) error {
	weighted := 0.0
	var breakdown strings.Builder
	for _, dim := range domain.Dimensions {
		w := st.Weights.WeightFor(dim)
		s := st.DimensionScore(dim)
		weighted += w * s
		fmt.Fprintf(&breakdown, "%s: %.3f x %.1f = %.2f\n", dim, w, s, w*s)
	}

	out, err := ai.ChatInto[scoringOutput](ctx, r.AI, scoringSystem, r.truncate(scoringUser(st, weighted, breakdown.String())), r.MaxOutputTokens)
	if err != nil {
		return fmt.Errorf("op=pipeline.runScoring: %w", err)
	}
	decision := domain.Decision(out.Decision)
	if !decision.Valid() {
		return fmt.Errorf("%w: unknown decision band %q", domain.ErrSchemaInvalid, out.Decision)
	}

	allFlags := st.AllRedFlags()
	for _, f := range allFlags {
		if domain.IsCriticalRedFlag(f) {
			decision = decision.Cap(domain.DecisionPartial)
			break
		}
	}
	if len(allFlags) >= redFlagThreshold {
		decision = decision.Cap(domain.DecisionPartial)
	}

	outcome := domain.ScoringOutcome{
		Decision:       decision,
		WeightedScore:  weighted,
		Recommendation: out.Recommendation,
		Strengths:      emptyIfNil(out.Strengths),
		Weaknesses:     emptyIfNil(out.Weaknesses),
		FocusAreas:     emptyIfNil(out.FocusAreas),
		RedFlags:       allFlags,
	}
	if st.Keyword.Score < 60 && st.Weights.KeywordMatch > 0.15 {
		outcome.ATSRisk = true
		outcome.Recommendation = strings.TrimSpace(outcome.Recommendation + " " + atsRiskNote)
	}
	st.Scoring = &outcome
	return nil
}

// scoringOutput is the decision call's response shape; the numeric score
// and red flags come from Go, not the model.
type scoringOutput struct {
	Decision       string   `json:"decision" validate:"required"`
	Recommendation string   `json:"recommendation"`
	Strengths      []string `json:"strengths"`
	Weaknesses     []string `json:"weaknesses"`
	FocusAreas     []string `json:"focus_areas"`
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
