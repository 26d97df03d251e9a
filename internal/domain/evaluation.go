package domain

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Dimension names. The order of Dimensions is the canonical order used for
// weighted-score accumulation and red-flag consolidation.
const (
	DimSkills        = "skills_match"
	DimKeyword       = "keyword_match"
	DimRequirements  = "requirements_coverage"
	DimSeniority     = "seniority_match"
	DimQualification = "qualification_match"
	DimRecency       = "recency_relevance"
	DimDomain        = "domain_match"
)

// Dimensions lists every evaluation dimension in canonical order.
var Dimensions = []string{
	DimSkills,
	DimKeyword,
	DimRequirements,
	DimSeniority,
	DimQualification,
	DimRecency,
	DimDomain,
}

// SkillsResult scores semantic technical-skill alignment.
type SkillsResult struct {
	Score          float64  `json:"score"`
	MatchedItems   []string `json:"matched_items"`
	MissingItems   []string `json:"missing_items"`
	PartialMatches []string `json:"partial_matches"`
	BonusItems     []string `json:"bonus_items"`
	Reasoning      string   `json:"reasoning"`
	RedFlags       []string `json:"red_flags"`
}

// QualificationResult scores education/certifications with a bounded
// portfolio bonus that can partially offset missing formal education.
type QualificationResult struct {
	Score            float64  `json:"score"`
	MatchedItems     []string `json:"matched_items"`
	MissingItems     []string `json:"missing_items"`
	PortfolioQuality string   `json:"portfolio_quality"`
	PortfolioBoost   float64  `json:"portfolio_boost"`
	Reasoning        string   `json:"reasoning"`
	RedFlags         []string `json:"red_flags"`
}

// SeniorityResult scores experience-level fit. YearsGap is positive when the
// candidate is overqualified and negative when underqualified.
type SeniorityResult struct {
	Score          float64  `json:"score"`
	CandidateLevel string   `json:"candidate_level"`
	RequiredLevel  string   `json:"required_level"`
	YearsGap       float64  `json:"years_gap"`
	TitleAlignment string   `json:"title_alignment"`
	Reasoning      string   `json:"reasoning"`
	RedFlags       []string `json:"red_flags"`
}

// DomainResult scores industry/domain relevance with tiered bands.
type DomainResult struct {
	Score                  float64  `json:"score"`
	MatchedItems           []string `json:"matched_items"`
	MissingItems           []string `json:"missing_items"`
	TransferableExperience []string `json:"transferable_experience"`
	DomainDiversity        int      `json:"domain_diversity"`
	Reasoning              string   `json:"reasoning"`
	RedFlags               []string `json:"red_flags"`
}

// RecencyResult scores how current the candidate's experience is.
type RecencyResult struct {
	Score                    float64  `json:"score"`
	RecentRelevantExperience []string `json:"recent_relevant_experience"`
	OutdatedExperience       []string `json:"outdated_experience"`
	MostRecentRoleMatch      string   `json:"most_recent_role_match"`
	TechnologyFreshness      string   `json:"technology_freshness"`
	Reasoning                string   `json:"reasoning"`
	RedFlags                 []string `json:"red_flags"`
}

// RequirementsResult scores must-have coverage; the score may exceed 100
// through nice-to-have bonus points.
type RequirementsResult struct {
	Score               float64  `json:"score"`
	MustHaveSatisfied   []string `json:"must_have_satisfied"`
	MustHaveMissing     []string `json:"must_have_missing"`
	NiceToHaveSatisfied []string `json:"nice_to_have_satisfied"`
	BonusPoints         float64  `json:"bonus_points"`
	CoveragePercentage  float64  `json:"coverage_percentage"`
	Reasoning           string   `json:"reasoning"`
	RedFlags            []string `json:"red_flags"`
}

// KeywordResult is the literal ATS keyword check. Unlike the other
// dimensions it is computed, not judged: score = matched/total * 100.
type KeywordResult struct {
	Score            float64        `json:"score"`
	MatchedKeywords  []string       `json:"matched_keywords"`
	MissingKeywords  []string       `json:"missing_keywords"`
	KeywordFrequency map[string]int `json:"keyword_frequency"`
	Reasoning        string         `json:"reasoning"`
	RedFlags         []string       `json:"red_flags"`
}

// DimensionResults groups the seven per-dimension outcomes.
type DimensionResults struct {
	Skills        SkillsResult        `json:"skills_match"`
	Keyword       KeywordResult       `json:"keyword_match"`
	Requirements  RequirementsResult  `json:"requirements_coverage"`
	Seniority     SeniorityResult     `json:"seniority_match"`
	Qualification QualificationResult `json:"qualification_match"`
	Recency       RecencyResult       `json:"recency_relevance"`
	Domain        DomainResult        `json:"domain_match"`
}

// WeightingStrategy holds one weight per dimension plus the model's
// rationale. Weights are produced from the job profile alone and must be
// normalized by the orchestrator before use.
type WeightingStrategy struct {
	SkillsMatch          float64 `json:"skills_match" validate:"gte=0,lte=1"`
	KeywordMatch         float64 `json:"keyword_match" validate:"gte=0,lte=1"`
	RequirementsCoverage float64 `json:"requirements_coverage" validate:"gte=0,lte=1"`
	SeniorityMatch       float64 `json:"seniority_match" validate:"gte=0,lte=1"`
	QualificationMatch   float64 `json:"qualification_match" validate:"gte=0,lte=1"`
	RecencyRelevance     float64 `json:"recency_relevance" validate:"gte=0,lte=1"`
	DomainMatch          float64 `json:"domain_match" validate:"gte=0,lte=1"`
	Reasoning            string  `json:"reasoning"`
	RoleArchetype        string  `json:"role_archetype"`
}

// Sum returns the total of the seven weights.
func (w WeightingStrategy) Sum() float64 {
	return w.SkillsMatch + w.KeywordMatch + w.RequirementsCoverage +
		w.SeniorityMatch + w.QualificationMatch + w.RecencyRelevance + w.DomainMatch
}

// Normalize rescales the weights to sum to 1.0 when the raw sum deviates by
// more than tolerance. A non-positive sum cannot be repaired.
func (w *WeightingStrategy) Normalize(tolerance float64) error {
	sum := w.Sum()
	if sum <= 0 {
		return fmt.Errorf("%w: weight sum %.4f is not positive", ErrSchemaInvalid, sum)
	}
	if math.Abs(sum-1.0) <= tolerance {
		return nil
	}
	w.SkillsMatch /= sum
	w.KeywordMatch /= sum
	w.RequirementsCoverage /= sum
	w.SeniorityMatch /= sum
	w.QualificationMatch /= sum
	w.RecencyRelevance /= sum
	w.DomainMatch /= sum
	return nil
}

// WeightFor returns the weight of the named dimension.
func (w WeightingStrategy) WeightFor(dim string) float64 {
	switch dim {
	case DimSkills:
		return w.SkillsMatch
	case DimKeyword:
		return w.KeywordMatch
	case DimRequirements:
		return w.RequirementsCoverage
	case DimSeniority:
		return w.SeniorityMatch
	case DimQualification:
		return w.QualificationMatch
	case DimRecency:
		return w.RecencyRelevance
	case DimDomain:
		return w.DomainMatch
	}
	return 0
}

// Decision is one of five ordered match bands.
type Decision string

// Decision bands, best to worst.
const (
	DecisionStrong  Decision = "Strong Match"
	DecisionGood    Decision = "Good Match"
	DecisionPartial Decision = "Partial Match"
	DecisionWeak    Decision = "Weak Match"
	DecisionPoor    Decision = "Poor Match"
)

// rank orders decisions; higher is better.
func (d Decision) rank() int {
	switch d {
	case DecisionStrong:
		return 4
	case DecisionGood:
		return 3
	case DecisionPartial:
		return 2
	case DecisionWeak:
		return 1
	case DecisionPoor:
		return 0
	}
	return -1
}

// Valid reports whether d is one of the five bands.
func (d Decision) Valid() bool { return d.rank() >= 0 }

// Cap returns the worse of d and max, used for override rules that bound
// the decision regardless of the numeric score.
func (d Decision) Cap(max Decision) Decision {
	if d.rank() > max.rank() {
		return max
	}
	return d
}

// ScoringOutcome is the final aggregation over all dimensions.
type ScoringOutcome struct {
	Decision       Decision `json:"decision"`
	WeightedScore  float64  `json:"weighted_score"`
	Recommendation string   `json:"recommendation"`
	Strengths      []string `json:"strengths"`
	Weaknesses     []string `json:"weaknesses"`
	FocusAreas     []string `json:"focus_areas"`
	RedFlags       []string `json:"red_flags"`
	ATSRisk        bool     `json:"ats_risk"`
}

// EvalState is the shared pipeline state threaded through every stage.
// Each stage writes exactly one slot; stages read only slots produced by
// their declared dependencies, so concurrent stages never contend.
type EvalState struct {
	JobID string

	// Inputs
	CVText  string
	JobText string

	// Post-extraction
	CVProfile  *CVProfile
	JobProfile *JobProfile

	// Post-evaluation, one slot per dimension
	Skills        *SkillsResult
	Keyword       *KeywordResult
	Requirements  *RequirementsResult
	Seniority     *SeniorityResult
	Qualification *QualificationResult
	Recency       *RecencyResult
	Domain        *DomainResult

	// Post-weighting
	Weights *WeightingStrategy

	// Post-scoring
	Scoring *ScoringOutcome
}

// DimensionScore returns the numeric score of the named dimension slot.
// Missing slots score zero; the orchestrator guarantees they are populated
// before scoring runs.
func (s *EvalState) DimensionScore(dim string) float64 {
	switch dim {
	case DimSkills:
		if s.Skills != nil {
			return s.Skills.Score
		}
	case DimKeyword:
		if s.Keyword != nil {
			return s.Keyword.Score
		}
	case DimRequirements:
		if s.Requirements != nil {
			return s.Requirements.Score
		}
	case DimSeniority:
		if s.Seniority != nil {
			return s.Seniority.Score
		}
	case DimQualification:
		if s.Qualification != nil {
			return s.Qualification.Score
		}
	case DimRecency:
		if s.Recency != nil {
			return s.Recency.Score
		}
	case DimDomain:
		if s.Domain != nil {
			return s.Domain.Score
		}
	}
	return 0
}

// DimensionRedFlags returns the red flags of the named dimension slot.
func (s *EvalState) DimensionRedFlags(dim string) []string {
	switch dim {
	case DimSkills:
		if s.Skills != nil {
			return s.Skills.RedFlags
		}
	case DimKeyword:
		if s.Keyword != nil {
			return s.Keyword.RedFlags
		}
	case DimRequirements:
		if s.Requirements != nil {
			return s.Requirements.RedFlags
		}
	case DimSeniority:
		if s.Seniority != nil {
			return s.Seniority.RedFlags
		}
	case DimQualification:
		if s.Qualification != nil {
			return s.Qualification.RedFlags
		}
	case DimRecency:
		if s.Recency != nil {
			return s.Recency.RedFlags
		}
	case DimDomain:
		if s.Domain != nil {
			return s.Domain.RedFlags
		}
	}
	return nil
}

// AllRedFlags concatenates red flags across dimensions in canonical order.
func (s *EvalState) AllRedFlags() []string {
	out := []string{}
	for _, dim := range Dimensions {
		out = append(out, s.DimensionRedFlags(dim)...)
	}
	return out
}

// Results assembles the seven populated slots into a DimensionResults
// bundle. It must only be called once every dimension stage has completed.
func (s *EvalState) Results() DimensionResults {
	return DimensionResults{
		Skills:        *s.Skills,
		Keyword:       *s.Keyword,
		Requirements:  *s.Requirements,
		Seniority:     *s.Seniority,
		Qualification: *s.Qualification,
		Recency:       *s.Recency,
		Domain:        *s.Domain,
	}
}

// IsCriticalRedFlag reports whether a red flag marks a dealbreaker. Stage
// prompts instruct the model to prefix dealbreakers with "CRITICAL:".
func IsCriticalRedFlag(flag string) bool {
	return strings.Contains(strings.ToLower(flag), "critical")
}

// StageError wraps a stage failure with the stage name so callers can map
// it to a user-facing phase.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("stage %s: %v", e.Stage, e.Err) }

// Unwrap exposes the underlying cause for errors.Is/As.
func (e *StageError) Unwrap() error { return e.Err }

// FailurePhase maps a pipeline error to the user-facing phase name:
// one of extraction, evaluation, weighting, scoring, or internal.
func FailurePhase(err error) string {
	var se *StageError
	if !errors.As(err, &se) {
		return "internal"
	}
	switch se.Stage {
	case "extract_cv", "extract_job":
		return "extraction"
	case "weight_generation":
		return "weighting"
	case "scoring":
		return "scoring"
	default:
		return "evaluation"
	}
}
