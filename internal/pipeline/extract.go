package pipeline

import (
	"context"
	"fmt"

	"github.com/fairyhunter13/cv-match-advisor/internal/adapter/ai"
	"github.com/fairyhunter13/cv-match-advisor/internal/domain"
)

// extractCV turns raw CV text into a structured profile. Extraction never
// yields a partial profile: any decode or validation failure fails the stage.
func (r *Runner) extractCV(ctx context.Context, st *domain.EvalState) error {
	text := r.truncate(st.CVText)
	profile, err := ai.ChatInto[domain.CVProfile](ctx, r.AI, cvExtractionSystem, text, r.MaxOutputTokens)
	if err != nil {
		return fmt.Errorf("op=pipeline.extractCV: %w", err)
	}
	profile.Normalize()
	st.CVProfile = &profile
	return nil
}

// extractJob turns raw job-description text into a structured profile.
func (r *Runner) extractJob(ctx context.Context, st *domain.EvalState) error {
	text := r.truncate(st.JobText)
	profile, err := ai.ChatInto[domain.JobProfile](ctx, r.AI, jobExtractionSystem, text, r.MaxOutputTokens)
	if err != nil {
		return fmt.Errorf("op=pipeline.extractJob: %w", err)
	}
	profile.Normalize()
	st.JobProfile = &profile
	return nil
}
