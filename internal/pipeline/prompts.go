// Package pipeline implements the evaluation DAG: profile extraction,
// seven dimension stages, dynamic weighting, and final score aggregation.
package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fairyhunter13/cv-match-advisor/internal/domain"
)

// Stage names. These identify stages in the scheduler table, metrics,
// traces, and failure phases.
const (
	StageExtractCV  = "extract_cv"
	StageExtractJob = "extract_job"
	StageWeights    = "weight_generation"
	StageScoring    = "scoring"
)

const extractionRules = `You are extracting structured information from text into a JSON schema.

GENERAL RULES:
- Extract only information explicitly present in the text
- Do NOT infer, assume, or fabricate information
- If a field is missing or ambiguous, return null or an empty list
- Prefer omission over incorrect inference

NORMALIZATION RULES:
- Titles must contain only the core role name
- Remove locations, employment type, team names, and work mode
- Remove text in parentheses and text after separators: "-", "|"`

const cvExtractionSystem = extractionRules + `

CV RULES:
- Extract skills only if explicitly mentioned
- Do NOT infer proficiency or years of experience; populate them only if directly stated
- Seniority must be extracted only if explicitly written
- Domain must be populated only if clearly stated or directly implied
- Quantifiable achievements must include explicit numbers or metrics
- Calculate total_years_experience only if sufficient date information exists
- Extract projects only if explicitly labeled as projects or portfolio work

Respond with ONLY a JSON object matching this schema:
{"full_name": string, "current_title": string, "total_years_experience": number, "domains": [string], "technical_skills": [{"name": string, "proficiency": string, "years": number, "context": string}], "soft_skills": [{"name": string}], "experience": [{"title": string, "company": string, "domain": string, "start_date": string, "end_date": string, "responsibilities": [string], "technologies": [string], "quantifiable_achievements": [string], "seniority": string}], "projects": [{"name": string, "project_description": string, "technologies": [string]}], "education": [{"certification": string, "field": string, "institution": string, "graduation_year": string}], "certifications": [string], "spoken_languages": [string], "cv_summary": string}`

const jobExtractionSystem = extractionRules + `

JOB DESCRIPTION RULES:
- If a required skill states a minimum number of years ("2+ years", "at least 3 years"), set years to the minimum stated value ("2+ years" means 2.0)
- Do NOT infer years if no numeric value is stated
- Extract a domain only if clearly stated or strongly implied by repeated responsibilities; never from the job title alone
- critical_keywords are the literal terms an automated filter would scan for
- Do NOT invent requirements that are not supported by the text

Respond with ONLY a JSON object matching this schema:
{"job_title": string, "company": string, "required_years_experience": number, "required_domains": [string], "required_technical_skills": [{"name": string, "years": number}], "nice_to_have_skills": [{"name": string}], "soft_skills": [string], "responsibilities": [string], "must_have_requirements": [string], "nice_to_have_requirements": [string], "other_requirements": [string], "required_education": [string], "required_certifications": [string], "required_seniority": string, "critical_keywords": [string], "role_summary": string}`

const dimensionOutputFormat = `

Respond with ONLY a JSON object:
{"score": number, %s"reasoning": string, "red_flags": [string]}
Prefix any dealbreaker red flag with "CRITICAL:". Scores are 0-100 unless a rule above allows more.`

var skillsSystem = `You are a strict ATS analyst evaluating technical skills match (skills_match).

Matching rules:
1. Use semantic matching: "Python" matches "Python 3.x", "React" matches "React.js"
2. Consider skill hierarchies: "Deep Learning" implies "Machine Learning"
3. Full credit for required skills, partial credit for related skills
4. Nice-to-have skills are bonus points
5. Weight more recent skills higher

Scoring guide:
- 90-100: all required skills plus multiple nice-to-haves
- 70-89: most required skills, some gaps
- 50-69: partial match, significant gaps
- below 50: major mismatch` +
	fmt.Sprintf(dimensionOutputFormat, `"matched_items": [string], "missing_items": [string], "partial_matches": [string], "bonus_items": [string], `)

var qualificationSystem = `You are a strict ATS analyst evaluating education, certifications, and portfolio (qualification_match).

Matching rules:
1. Check education level against requirements (BSc/MSc/PhD) and field relevance
2. Evaluate certification relevance and recency
3. Portfolio bonus: well-documented projects with a relevant stack add 10-20 points; production-level projects are worth more than personal ones
4. A strong portfolio can offset missing formal education or 1-2 years of experience
5. portfolio_boost must not exceed 20

Portfolio quality: Excellent (3+ production-quality projects), Good (2+ solid projects), Fair (1-2 basic or dated projects), Poor (none or irrelevant)` +
	fmt.Sprintf(dimensionOutputFormat, `"matched_items": [string], "missing_items": [string], "portfolio_quality": string, "portfolio_boost": number, `)

var senioritySystem = `You are a strict ATS analyst evaluating seniority and experience level (seniority_match).

Matching rules:
1. Compare years of experience: exact match scores 100, minus 10 points per year of gap
2. Evaluate title progression (Junior, Mid, Senior, Lead, Principal)
3. Check whether the current title aligns with the job title level
4. Overqualification scores 70-80, not 100
5. Underqualification by 2 or more years is a red flag

Seniority levels: Junior 0-2y, Mid 2-5y, Senior 5-8y, Lead/Staff 8-12y, Principal/Architect 12+y.
years_gap is candidate years minus required years (negative means underqualified).` +
	fmt.Sprintf(dimensionOutputFormat, `"candidate_level": string, "required_level": string, "years_gap": number, "title_alignment": string, `)

var domainSystem = `You are a strict ATS analyst evaluating industry and domain relevance (domain_match).

Matching rules:
1. Exact domain match = 100 points
2. Related domains = 70-80 (fintech and banking, e-commerce and retail)
3. Transferable domains = 50-60 (healthcare to fintech when both are data-heavy)
4. No overlap but transferable skills = 30-40
5. If no specific domain is required, score on domain diversity` +
	fmt.Sprintf(dimensionOutputFormat, `"matched_items": [string], "missing_items": [string], "transferable_experience": [string], "domain_diversity": number, `)

var requirementsSystem = `You are a strict ATS analyst verifying job requirements coverage (requirements_coverage).

Scoring rules:
1. Each must-have requirement satisfied moves the score toward 100
2. Missing any must-have is a major penalty (20-40 points per item)
3. Nice-to-have requirements are bonus points and can push the score above 100 (never above 130)
4. Look for implicit satisfaction ("5 years Python" satisfies "proficient in Python")
coverage_percentage is must-haves satisfied over total must-haves, in percent.` +
	fmt.Sprintf(dimensionOutputFormat, `"must_have_satisfied": [string], "must_have_missing": [string], "nice_to_have_satisfied": [string], "bonus_points": number, "coverage_percentage": number, `)

var recencySystem = `You are an ATS analyst evaluating how recent and relevant the candidate's experience is (recency_relevance).

Evaluation rules:
1. The most recent role (current or last 2 years) carries the highest weight
2. Skills used in the last 3 years are fully relevant
3. Skills used 3-5 years ago are moderately relevant (70-80%)
4. Skills used 5+ years ago are outdated unless refreshed (40-60%)
5. Fast-changing tech (frameworks, libraries) decays in 2-3 years; languages and cloud platforms in 4-5; fundamentals in 6-8
technology_freshness is one of: current, aging, outdated.` +
	fmt.Sprintf(dimensionOutputFormat, `"recent_relevant_experience": [string], "outdated_experience": [string], "most_recent_role_match": string, "technology_freshness": string, `)

const weightsSystem = `You are an ATS configuration specialist (weight_generation). Determine optimal evaluation weights for this specific job posting.

Dimensions: skills_match, keyword_match, requirements_coverage, seniority_match, qualification_match, recency_relevance, domain_match.

Assign each a weight between 0.0 and 1.0 so that all seven sum to exactly 1.0, reflecting what matters most for this role. Identify the role archetype.

Respond with ONLY a JSON object:
{"skills_match": number, "keyword_match": number, "requirements_coverage": number, "seniority_match": number, "qualification_match": number, "recency_relevance": number, "domain_match": number, "reasoning": string, "role_archetype": string}`

const scoringSystem = `You are a senior ATS analyst (scoring) making the final recommendation. You are not deciding whether to hire; you are helping the candidate decide whether applying or tailoring their CV is worth the effort. Speak directly to the candidate.

Decision bands:
- "Strong Match" (85-100): nearly all critical requirements met, no major red flags
- "Good Match" (70-84): most requirements met, 1-2 addressable red flags
- "Partial Match" (55-69): significant gaps, multiple concerns
- "Weak Match" (40-54): major gaps in critical areas
- "Poor Match" (0-39): fundamental mismatch

Use the weighted score as a starting point, adjusted by the qualitative evidence.

Respond with ONLY a JSON object:
{"decision": string, "recommendation": string, "strengths": [string], "weaknesses": [string], "focus_areas": [string]}
decision must be exactly one of the five band names. strengths, weaknesses, and focus_areas each carry 3-5 specific bullet points grounded in the evidence.`

// mustJSON marshals a value for embedding in a prompt. The inputs are our
// own structs, so a failure is a programming error.
func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func skillsUser(st *domain.EvalState) string {
	return fmt.Sprintf(`Job requirements:
Required technical skills: %s
Nice-to-have skills: %s

Candidate skills:
Declared skills: %s
Skills from experience: %s`,
		mustJSON(st.JobProfile.RequiredTechnicalSkills),
		mustJSON(st.JobProfile.NiceToHaveSkillNames()),
		mustJSON(st.CVProfile.TechnicalSkills),
		mustJSON(st.CVProfile.ExperienceSkills()))
}

func qualificationUser(st *domain.EvalState) string {
	return fmt.Sprintf(`Job requirements:
Must-have requirements: %s
Required years of experience: %.1f
Required education: %s
Required certifications: %s

Candidate qualifications:
Education: %s
Certifications: %s
Total years experience: %.1f
Technical skills: %s

Candidate project portfolio:
%s`,
		mustJSON(st.JobProfile.MustHaveRequirements),
		st.JobProfile.RequiredYearsExperience,
		mustJSON(st.JobProfile.RequiredEducation),
		mustJSON(st.JobProfile.RequiredCertifications),
		mustJSON(st.CVProfile.Education),
		mustJSON(st.CVProfile.Certifications),
		st.CVProfile.TotalYearsExperience,
		mustJSON(st.CVProfile.SkillNames()),
		mustJSON(st.CVProfile.Projects))
}

func seniorityUser(st *domain.EvalState) string {
	titles := make([]string, 0, len(st.CVProfile.Experience))
	for _, e := range st.CVProfile.Experience {
		titles = append(titles, e.Title)
	}
	return fmt.Sprintf(`Job requirements:
Required years of experience: %.1f
Required seniority: %s
Job title: %s

Candidate experience:
Total years: %.1f
Career progression: %s
Current title: %s`,
		st.JobProfile.RequiredYearsExperience,
		st.JobProfile.RequiredSeniority,
		st.JobProfile.Title,
		st.CVProfile.TotalYearsExperience,
		strings.Join(titles, " -> "),
		st.CVProfile.CurrentTitle)
}

func domainUser(st *domain.EvalState) string {
	expDomains := make([]string, 0, len(st.CVProfile.Experience))
	for _, e := range st.CVProfile.Experience {
		if e.Domain != "" {
			expDomains = append(expDomains, e.Domain)
		}
	}
	return fmt.Sprintf(`Job requirements:
Required domains: %s
Company: %s

Candidate experience:
Declared domains: %s
Experience domains: %s`,
		mustJSON(st.JobProfile.RequiredDomains),
		st.JobProfile.Company,
		mustJSON(st.CVProfile.Domains),
		mustJSON(expDomains))
}

func requirementsUser(st *domain.EvalState, cvProjection string) string {
	return fmt.Sprintf(`Job requirements:
Must-have requirements: %s
Nice-to-have requirements: %s
Other requirements: %s

Candidate profile:
%s`,
		mustJSON(st.JobProfile.MustHaveRequirements),
		mustJSON(st.JobProfile.NiceToHaveRequirements),
		mustJSON(st.JobProfile.OtherRequirements),
		cvProjection)
}

func recencyUser(st *domain.EvalState) string {
	var b strings.Builder
	for _, e := range st.CVProfile.Experience {
		fmt.Fprintf(&b, "- %s at %s (%s to %s): %s\n",
			e.Title, e.Company, e.StartDate, e.EndDate, strings.Join(e.Technologies, ", "))
	}
	return fmt.Sprintf(`Job requirements:
Required skills: %s
Job title: %s

Candidate experience timeline:
%s`,
		mustJSON(st.JobProfile.RequiredSkillNames()),
		st.JobProfile.Title,
		b.String())
}

func weightsUser(st *domain.EvalState, guidance string) string {
	return fmt.Sprintf(`Job posting:
Job title: %s
Required years of experience: %.1f
Required seniority: %s
Required domains: %s
Required technical skills: %s
Required education: %s
Required certifications: %s
Must-have requirements: %s
Role summary: %s

%s`,
		st.JobProfile.Title,
		st.JobProfile.RequiredYearsExperience,
		st.JobProfile.RequiredSeniority,
		mustJSON(st.JobProfile.RequiredDomains),
		mustJSON(st.JobProfile.RequiredSkillNames()),
		mustJSON(st.JobProfile.RequiredEducation),
		mustJSON(st.JobProfile.RequiredCertifications),
		mustJSON(st.JobProfile.MustHaveRequirements),
		st.JobProfile.RoleSummary,
		guidance)
}

func scoringUser(st *domain.EvalState, weightedScore float64, breakdown string) string {
	w := st.Weights
	d := st.Keyword
	return fmt.Sprintf(`Job: %s at %s (required seniority %s, %.1f years)

Evaluation results:

1 skills_match (weight %.1f%%): score %.1f/100
  Matched: %s
  Missing: %s
  Red flags: %s

2 keyword_match (weight %.1f%%): score %.1f/100
  Missing keywords: %s
  Red flags: %s

3 requirements_coverage (weight %.1f%%): score %.1f/100
  Must-haves satisfied: %d/%d, coverage %.0f%%
  Red flags: %s

4 seniority_match (weight %.1f%%): score %.1f/100
  Candidate level: %s, required: %s, years gap %+.1f
  Red flags: %s

5 qualification_match (weight %.1f%%): score %.1f/100
  Portfolio: %s (boost +%.0f)
  Red flags: %s

6 recency_relevance (weight %.1f%%): score %.1f/100
  Tech freshness: %s
  Red flags: %s

7 domain_match (weight %.1f%%): score %.1f/100
  Matched domains: %s
  Red flags: %s

Weighted score calculation:
%s

Preliminary weighted score: %.1f/100`,
		st.JobProfile.Title, st.JobProfile.Company, st.JobProfile.RequiredSeniority, st.JobProfile.RequiredYearsExperience,
		w.SkillsMatch*100, st.Skills.Score, mustJSON(st.Skills.MatchedItems), mustJSON(st.Skills.MissingItems), mustJSON(st.Skills.RedFlags),
		w.KeywordMatch*100, d.Score, mustJSON(d.MissingKeywords), mustJSON(d.RedFlags),
		w.RequirementsCoverage*100, st.Requirements.Score, len(st.Requirements.MustHaveSatisfied), len(st.Requirements.MustHaveSatisfied)+len(st.Requirements.MustHaveMissing), st.Requirements.CoveragePercentage, mustJSON(st.Requirements.RedFlags),
		w.SeniorityMatch*100, st.Seniority.Score, st.Seniority.CandidateLevel, st.Seniority.RequiredLevel, st.Seniority.YearsGap, mustJSON(st.Seniority.RedFlags),
		w.QualificationMatch*100, st.Qualification.Score, st.Qualification.PortfolioQuality, st.Qualification.PortfolioBoost, mustJSON(st.Qualification.RedFlags),
		w.RecencyRelevance*100, st.Recency.Score, st.Recency.TechnologyFreshness, mustJSON(st.Recency.RedFlags),
		w.DomainMatch*100, st.Domain.Score, mustJSON(st.Domain.MatchedItems), mustJSON(st.Domain.RedFlags),
		breakdown, weightedScore)
}
