package rewrite

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/fairyhunter13/cv-match-advisor/internal/domain"
)

func promptSession() *domain.RewriteSession {
	return &domain.RewriteSession{
		JobID:          "job-1",
		OriginalCVText: "Jordan Doe, backend engineer, 3 years of Go.",
		OriginalCV: domain.CVProfile{
			FullName:             "Jordan Doe",
			CurrentTitle:         "Backend Engineer",
			TotalYearsExperience: 3,
			TechnicalSkills: []domain.Skill{
				{Name: "Go", Years: 3},
				{Name: "PostgreSQL", Years: 2},
			},
			Experience: []domain.Experience{{
				Title:            "Backend Engineer",
				Company:          "Acme",
				Responsibilities: []string{"Built payment APIs in Go"},
			}},
		},
		TargetJob: domain.JobProfile{
			Title:            "Senior Backend Engineer",
			Company:          "Globex",
			CriticalKeywords: []string{"Go", "Kubernetes"},
		},
		MatchedSkills:   []string{"Go"},
		MatchedKeywords: []string{"Go"},
		MissingKeywords: []string{"Kubernetes"},
		TopStrengths:    []string{"Strong Go fundamentals"},
		KeyWeaknesses:   []string{"No orchestration experience"},
		MaxRounds:       2,
	}
}

func TestDraftUserCarriesOnlyProjectedEvidence(t *testing.T) {
	s := promptSession()
	prompt := draftUser(s)

	require.Contains(t, prompt, s.OriginalCVText)
	require.Contains(t, prompt, "Jordan Doe")
	require.Contains(t, prompt, `"Go"`)
	require.Contains(t, prompt, "Strong Go fundamentals")
	// Missing keywords carry the prohibition heading.
	idx := strings.Index(prompt, "Missing keywords (DO NOT ADD)")
	require.Greater(t, idx, 0)
	line := prompt[idx:]
	if nl := strings.IndexByte(line, '\n'); nl > 0 {
		line = line[:nl]
	}
	require.Contains(t, line, "Kubernetes")
}

func TestDraftSystemStatesFabricationRules(t *testing.T) {
	require.Contains(t, draftSystem, "ZERO FABRICATION")
	require.Contains(t, draftSystem, "omit the entire section")
}

func TestReviseUserEmbedsDraftAndFeedback(t *testing.T) {
	s := promptSession()
	s.DraftMarkdown = "# Jordan Doe\n\nDraft body."
	prompt := reviseUser(s, "shorten the summary")

	require.Contains(t, prompt, "shorten the summary")
	require.Contains(t, prompt, s.DraftMarkdown)
	require.Contains(t, prompt, "Built payment APIs in Go")
	// Guardrails quote the original CV, not the evaluation verdict.
	require.NotContains(t, prompt, "weighted")
}
