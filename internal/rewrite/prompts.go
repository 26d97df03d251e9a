// Package rewrite drives the iterative CV rewrite loop against a
// completed evaluation: draft, bounded feedback revisions, finalize.
package rewrite

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fairyhunter13/cv-match-advisor/internal/domain"
)

const draftSystem = `You are an expert ATS optimizer and resume editor (cv_draft). Rewrite the CV using ONLY the information explicitly provided. No inference, assumption, or fabrication is allowed.

OMISSION RULE: if a section has no content in the original CV, omit the entire section. No empty sections, no placeholder text.

ZERO FABRICATION:
- Do NOT invent experience, skills, tools, metrics, or domains
- Do NOT add keywords listed as missing
- Do NOT inflate or modify numbers
- Everything must be traceable to the provided material

Rewrite instructions:
1. Semantic translation: reword experience bullets with job-description terminology only when justified by matched or partial skills; rewording is allowed, scope expansion is not
2. Keyword integration: include every matched keyword, respect frequency targets, never include missing keywords
3. Prioritize within each role: satisfied must-haves, then recent relevant experience, then matched domains, then nice-to-haves
4. Professional summary: 3-4 sentences from the stated years, level, top matched skills, matched domains, and strengths; never claim higher seniority than stated
5. Skills section: only skills from the original CV, tiered by match
6. ATS-safe formatting: standard headers, linear layout, simple bullets, "Month YYYY - Month YYYY" dates

Return ONLY the full rewritten CV in clean Markdown.`

const reviseSystem = `You are an expert resume editor refining an already rewritten CV (cv_revise). This is a targeted revision pass driven by user feedback, not a fresh rewrite.

Editing rules:
1. User feedback overrides everything except facts; implement every valid request
2. Surgical changes only: modify the sections the feedback touches, do not rewrite or restructure the rest
3. Every retained or edited statement must be traceable to the original CV; if a request cannot be fulfilled without fabrication, do not implement it
4. You may reword, reorder, remove, or clarify existing content; you may not add roles, tools, metrics, skills, or scope

If some feedback could not be implemented as written, append a short section titled "Notes on Unimplemented Feedback" after the CV.

Return the FULL revised CV in clean Markdown.`

func js(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}

func draftUser(s *domain.RewriteSession) string {
	cv := s.OriginalCV
	job := s.TargetJob
	return fmt.Sprintf(`RAW ORIGINAL CV TEXT (reference only):
%s

ORIGINAL CV (source of truth):
Full name: %s
Current title: %s
Total years of experience: %.1f
Domains: %s
Technical skills: %s
Soft skills: %s
Work experience: %s
Projects: %s
Education: %s
Certifications: %s
Languages: %s

TARGET JOB:
Job title: %s
Company: %s
Required years of experience: %.1f
Required seniority: %s
Required domains: %s
Responsibilities: %s
Required technical skills: %s
Nice-to-have skills: %s
Critical ATS keywords: %s
Role summary: %s

MATCHING ANALYSIS:
Matched skills (emphasize): %s
Partial skill matches (reword with JD language, do not upgrade): %s
Matched ATS keywords (must appear): %s
Keyword frequency targets: %s
Missing keywords (DO NOT ADD): %s

REQUIREMENTS ALIGNMENT:
Must-haves satisfied (highlight prominently): %s
Must-haves missing (acknowledge implicitly, do not hide): %s
Nice-to-haves satisfied: %s

RELEVANCE:
Recent relevant experience (prioritize): %s
Matched domains (emphasize): %s
Transferable domains (secondary): %s

SENIORITY CONTEXT:
Candidate level: %s | Required level: %s | Title alignment: %s

STRATEGIC GUIDANCE:
Top strengths (build the narrative around these): %s
Key weaknesses (do not fabricate fixes): %s
Red flags (avoid triggering them): %s
Primary focus areas: %s`,
		s.OriginalCVText,
		cv.FullName, cv.CurrentTitle, cv.TotalYearsExperience, js(cv.Domains),
		js(cv.TechnicalSkills), js(cv.SoftSkills), js(cv.Experience), js(cv.Projects),
		js(cv.Education), js(cv.Certifications), js(cv.SpokenLanguages),
		job.Title, job.Company, job.RequiredYearsExperience, job.RequiredSeniority,
		js(job.RequiredDomains), js(job.Responsibilities), js(job.RequiredTechnicalSkills),
		js(job.NiceToHaveSkillNames()), js(job.CriticalKeywords), job.RoleSummary,
		js(s.MatchedSkills), js(s.PartialSkillMatches), js(s.MatchedKeywords),
		js(s.KeywordFrequencyTargets), js(s.MissingKeywords),
		js(s.MustHavesSatisfied), js(s.MustHavesMissing), js(s.NiceToHavesSatisfied),
		js(s.RecentRelevantExperience), js(s.MatchedDomains), js(s.TransferableDomains),
		s.CandidateLevel, s.RequiredLevel, s.TitleAlignment,
		js(s.TopStrengths), js(s.KeyWeaknesses), js(s.RedFlags), js(s.FocusAreas))
}

func reviseUser(s *domain.RewriteSession, feedback string) string {
	cv := s.OriginalCV
	var excerpts strings.Builder
	for _, e := range cv.Experience {
		fmt.Fprintf(&excerpts, "- %s at %s: %s\n", e.Title, e.Company, strings.Join(e.Responsibilities, "; "))
	}
	return fmt.Sprintf(`USER FEEDBACK (primary source of changes):
%s

PREVIOUS CV VERSION (base text, edit this):
%s

FACTUAL GUARDRAILS, ORIGINAL CV (do not exceed):
Full name: %s
Total years of experience: %.1f
All experience (original wording): %s
All technical skills: %s
All projects: %s

CONTEXT (secondary to feedback):
Target job: %s at %s
ATS keywords to preserve if possible: %s
Must-have requirements already met (do not weaken): %s`,
		feedback,
		s.DraftMarkdown,
		cv.FullName, cv.TotalYearsExperience,
		excerpts.String(), js(cv.SkillNames()), js(cv.Projects),
		s.TargetJob.Title, s.TargetJob.Company,
		js(s.MatchedKeywords), js(s.MustHavesSatisfied))
}
