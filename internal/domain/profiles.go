package domain

// Skill is one declared or required skill. Only Name is mandatory; the
// extractor leaves the rest empty when the source text does not state them.
type Skill struct {
	Name        string  `json:"name" validate:"required"`
	Proficiency string  `json:"proficiency,omitempty"`
	Years       float64 `json:"years,omitempty"`
	Context     string  `json:"context,omitempty"`
}

// Experience is one chronological work entry from a CV.
type Experience struct {
	Title                    string   `json:"title" validate:"required"`
	Company                  string   `json:"company,omitempty"`
	Domain                   string   `json:"domain,omitempty"`
	StartDate                string   `json:"start_date,omitempty"`
	EndDate                  string   `json:"end_date,omitempty"`
	Responsibilities         []string `json:"responsibilities"`
	Technologies             []string `json:"technologies"`
	QuantifiableAchievements []string `json:"quantifiable_achievements"`
	Seniority                string   `json:"seniority,omitempty"`
}

// Project is a personal, academic, or portfolio project.
type Project struct {
	Name           string   `json:"name" validate:"required"`
	Description    string   `json:"project_description,omitempty"`
	Technologies   []string `json:"technologies"`
	ExperienceLink string   `json:"experience_link,omitempty"`
}

// Education is one educational background entry.
type Education struct {
	Certification  string `json:"certification,omitempty"`
	Field          string `json:"field,omitempty"`
	Institution    string `json:"institution,omitempty"`
	GraduationYear string `json:"graduation_year,omitempty"`
}

// CVProfile is the structured representation of a candidate CV.
// List fields are never nil after Normalize so downstream stages can
// iterate without guards.
type CVProfile struct {
	FullName             string       `json:"full_name,omitempty"`
	CurrentTitle         string       `json:"current_title,omitempty"`
	TotalYearsExperience float64      `json:"total_years_experience,omitempty"`
	Domains              []string     `json:"domains"`
	TechnicalSkills      []Skill      `json:"technical_skills"`
	SoftSkills           []Skill      `json:"soft_skills"`
	Experience           []Experience `json:"experience"`
	Projects             []Project    `json:"projects"`
	Education            []Education  `json:"education"`
	Certifications       []string     `json:"certifications"`
	SpokenLanguages      []string     `json:"spoken_languages"`
	Summary              string       `json:"cv_summary,omitempty"`
}

// Normalize replaces nil list fields with empty slices.
func (p *CVProfile) Normalize() {
	p.Domains = emptyIfNil(p.Domains)
	p.Certifications = emptyIfNil(p.Certifications)
	p.SpokenLanguages = emptyIfNil(p.SpokenLanguages)
	if p.TechnicalSkills == nil {
		p.TechnicalSkills = []Skill{}
	}
	if p.SoftSkills == nil {
		p.SoftSkills = []Skill{}
	}
	if p.Experience == nil {
		p.Experience = []Experience{}
	}
	if p.Projects == nil {
		p.Projects = []Project{}
	}
	if p.Education == nil {
		p.Education = []Education{}
	}
	for i := range p.Experience {
		p.Experience[i].Responsibilities = emptyIfNil(p.Experience[i].Responsibilities)
		p.Experience[i].Technologies = emptyIfNil(p.Experience[i].Technologies)
		p.Experience[i].QuantifiableAchievements = emptyIfNil(p.Experience[i].QuantifiableAchievements)
	}
	for i := range p.Projects {
		p.Projects[i].Technologies = emptyIfNil(p.Projects[i].Technologies)
	}
}

// SkillNames returns the declared technical skill names.
func (p CVProfile) SkillNames() []string {
	out := make([]string, 0, len(p.TechnicalSkills))
	for _, s := range p.TechnicalSkills {
		out = append(out, s.Name)
	}
	return out
}

// ExperienceSkills returns every technology mentioned in experience entries.
func (p CVProfile) ExperienceSkills() []string {
	var out []string
	for _, e := range p.Experience {
		out = append(out, e.Technologies...)
	}
	if out == nil {
		out = []string{}
	}
	return out
}

// JobProfile is the structured representation of a target job description.
type JobProfile struct {
	Title                   string   `json:"job_title" validate:"required"`
	Company                 string   `json:"company,omitempty"`
	RequiredYearsExperience float64  `json:"required_years_experience,omitempty"`
	RequiredDomains         []string `json:"required_domains"`
	RequiredTechnicalSkills []Skill  `json:"required_technical_skills"`
	NiceToHaveSkills        []Skill  `json:"nice_to_have_skills"`
	SoftSkills              []string `json:"soft_skills"`
	Responsibilities        []string `json:"responsibilities"`
	MustHaveRequirements    []string `json:"must_have_requirements"`
	NiceToHaveRequirements  []string `json:"nice_to_have_requirements"`
	OtherRequirements       []string `json:"other_requirements"`
	RequiredEducation       []string `json:"required_education"`
	RequiredCertifications  []string `json:"required_certifications"`
	RequiredSeniority       string   `json:"required_seniority,omitempty"`
	CriticalKeywords        []string `json:"critical_keywords"`
	RoleSummary             string   `json:"role_summary,omitempty"`
}

// Normalize replaces nil list fields with empty slices.
func (p *JobProfile) Normalize() {
	p.RequiredDomains = emptyIfNil(p.RequiredDomains)
	p.SoftSkills = emptyIfNil(p.SoftSkills)
	p.Responsibilities = emptyIfNil(p.Responsibilities)
	p.MustHaveRequirements = emptyIfNil(p.MustHaveRequirements)
	p.NiceToHaveRequirements = emptyIfNil(p.NiceToHaveRequirements)
	p.OtherRequirements = emptyIfNil(p.OtherRequirements)
	p.RequiredEducation = emptyIfNil(p.RequiredEducation)
	p.RequiredCertifications = emptyIfNil(p.RequiredCertifications)
	p.CriticalKeywords = emptyIfNil(p.CriticalKeywords)
	if p.RequiredTechnicalSkills == nil {
		p.RequiredTechnicalSkills = []Skill{}
	}
	if p.NiceToHaveSkills == nil {
		p.NiceToHaveSkills = []Skill{}
	}
}

// RequiredSkillNames returns the names of mandatory technical skills.
func (p JobProfile) RequiredSkillNames() []string {
	out := make([]string, 0, len(p.RequiredTechnicalSkills))
	for _, s := range p.RequiredTechnicalSkills {
		out = append(out, s.Name)
	}
	return out
}

// NiceToHaveSkillNames returns the names of bonus technical skills.
func (p JobProfile) NiceToHaveSkillNames() []string {
	out := make([]string, 0, len(p.NiceToHaveSkills))
	for _, s := range p.NiceToHaveSkills {
		out = append(out, s.Name)
	}
	return out
}

func emptyIfNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
