package domain

import "time"

// RewritePhase is the state of a CV rewrite session.
type RewritePhase string

// Rewrite phases.
const (
	RewriteIdle             RewritePhase = "idle"
	RewriteDrafting         RewritePhase = "drafting"
	RewriteAwaitingFeedback RewritePhase = "awaiting_feedback"
	RewriteRevising         RewritePhase = "revising"
	RewriteFinalizing       RewritePhase = "finalizing"
	RewriteDone             RewritePhase = "done"
)

// RewriteSession is the reduced projection a rewrite works from. It carries
// only the evaluation evidence the drafting prompts need, never the full
// pipeline state. One live session per job.
type RewriteSession struct {
	ID    string       `json:"id"`
	JobID string       `json:"job_id"`
	Phase RewritePhase `json:"phase"`

	// Original content
	OriginalCV     CVProfile  `json:"original_cv"`
	TargetJob      JobProfile `json:"target_job"`
	OriginalCVText string     `json:"original_cv_text"`

	// Matching evidence
	MatchedSkills       []string `json:"matched_skills"`
	PartialSkillMatches []string `json:"partial_skill_matches"`
	MatchedKeywords     []string `json:"matched_keywords"`
	MissingKeywords     []string `json:"missing_keywords"`

	// Requirements alignment
	MustHavesSatisfied   []string `json:"must_haves_satisfied"`
	MustHavesMissing     []string `json:"must_haves_missing"`
	NiceToHavesSatisfied []string `json:"nice_to_haves_satisfied"`

	// Experience relevance
	RecentRelevantExperience []string `json:"recent_relevant_experience"`
	MatchedDomains           []string `json:"matched_domains"`
	TransferableDomains      []string `json:"transferable_domains"`

	// Seniority context
	CandidateLevel string `json:"candidate_level"`
	RequiredLevel  string `json:"required_level"`
	TitleAlignment string `json:"title_alignment"`

	// Strategic guidance
	TopStrengths  []string `json:"top_strengths"`
	KeyWeaknesses []string `json:"key_weaknesses"`
	RedFlags      []string `json:"red_flags"`

	// Optimization priorities
	KeywordFrequencyTargets map[string]int `json:"keyword_frequency_targets"`
	FocusAreas              []string       `json:"focus_areas"`

	// Loop state
	DraftMarkdown string `json:"draft_markdown,omitempty"`
	UserFeedback  string `json:"user_feedback,omitempty"`
	FeedbackRound int    `json:"feedback_round"`
	MaxRounds     int    `json:"max_rounds"`

	// Finalization. RenderedFrom is a digest of the draft the document was
	// rendered from, so re-finalizing an unchanged draft skips rendering.
	DocumentPath string `json:"document_path,omitempty"`
	RenderedFrom string `json:"rendered_from,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RoundsRemaining reports how many feedback rounds are left.
func (s RewriteSession) RoundsRemaining() int {
	n := s.MaxRounds - s.FeedbackRound
	if n < 0 {
		return 0
	}
	return n
}

// CanAcceptFeedback reports whether the session is in a phase and round
// where user feedback can be applied.
func (s RewriteSession) CanAcceptFeedback() bool {
	return s.Phase == RewriteAwaitingFeedback && s.RoundsRemaining() > 0
}

// Normalize replaces nil collections with empty values so prompt builders
// and JSON encoding stay uniform.
func (s *RewriteSession) Normalize() {
	s.MatchedSkills = emptyIfNil(s.MatchedSkills)
	s.PartialSkillMatches = emptyIfNil(s.PartialSkillMatches)
	s.MatchedKeywords = emptyIfNil(s.MatchedKeywords)
	s.MissingKeywords = emptyIfNil(s.MissingKeywords)
	s.MustHavesSatisfied = emptyIfNil(s.MustHavesSatisfied)
	s.MustHavesMissing = emptyIfNil(s.MustHavesMissing)
	s.NiceToHavesSatisfied = emptyIfNil(s.NiceToHavesSatisfied)
	s.RecentRelevantExperience = emptyIfNil(s.RecentRelevantExperience)
	s.MatchedDomains = emptyIfNil(s.MatchedDomains)
	s.TransferableDomains = emptyIfNil(s.TransferableDomains)
	s.TopStrengths = emptyIfNil(s.TopStrengths)
	s.KeyWeaknesses = emptyIfNil(s.KeyWeaknesses)
	s.RedFlags = emptyIfNil(s.RedFlags)
	s.FocusAreas = emptyIfNil(s.FocusAreas)
	if s.KeywordFrequencyTargets == nil {
		s.KeywordFrequencyTargets = map[string]int{}
	}
}
