package pipeline

import (
	"context"
	"fmt"

	"github.com/fairyhunter13/cv-match-advisor/internal/adapter/ai"
	"github.com/fairyhunter13/cv-match-advisor/internal/domain"
)

// runWeights asks the model for a weighting strategy derived from the job
// profile alone. The candidate never influences the rubric. Out-of-tolerance
// sums are renormalized here; a non-positive sum fails the stage.
func (r *Runner) runWeights(ctx context.Context, st *domain.EvalState) error {
	user := weightsUser(st, r.Guidance.RenderPrompt())
	w, err := ai.ChatInto[domain.WeightingStrategy](ctx, r.AI, weightsSystem, r.truncate(user), r.MaxOutputTokens)
	if err != nil {
		return fmt.Errorf("op=pipeline.runWeights: %w", err)
	}
	if err := w.Normalize(r.Tolerance); err != nil {
		return fmt.Errorf("op=pipeline.runWeights: %w", err)
	}
	st.Weights = &w
	return nil
}
