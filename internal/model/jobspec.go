package model

// TargetSpecAnalysis is the structured analysis of the target job
// description. It is derived once per session and read-only thereafter;
// every section's generation prompts share the same instance.
type TargetSpecAnalysis struct {
	Keywords        []string `json:"keywords"`
	Requirements    []string `json:"requirements"`
	ExperienceLevel string   `json:"experience_level"`
	KeyTechnologies []string `json:"key_technologies"`
	Priorities      []string `json:"priorities"`
	SoftSkills      []string `json:"soft_skills"`
	HardSkills      []string `json:"hard_skills"`
	Industry        string   `json:"industry"`
	CompanySize     string   `json:"company_size"`
	RoleType        string   `json:"role_type"`
}

// DefaultTargetSpecAnalysis is the fallback used when job description
// analysis fails; neutral values that keep prompts well-formed.
func DefaultTargetSpecAnalysis() TargetSpecAnalysis {
	return TargetSpecAnalysis{
		ExperienceLevel: "mid",
		Industry:        "technology",
		CompanySize:     "medium",
		RoleType:        "individual_contributor",
	}
}
