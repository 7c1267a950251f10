package model

// PerspectiveKind is a fixed persona used to diversify generation across
// refinement iterations.
type PerspectiveKind string

const (
	PerspectiveHiringManager  PerspectiveKind = "hiring_manager"
	PerspectiveTechnicalLead  PerspectiveKind = "technical_lead"
	PerspectiveRecruiter      PerspectiveKind = "recruiter"
	PerspectiveATSOptimizer   PerspectiveKind = "ats_optimizer"
	PerspectiveIndustryExpert PerspectiveKind = "industry_expert"
	PerspectiveCareerCoach    PerspectiveKind = "career_coach"
)

// PerspectiveRotation is the round-robin order the refinement loop cycles
// through. Iteration i uses PerspectiveRotation[i % len].
var PerspectiveRotation = []PerspectiveKind{
	PerspectiveHiringManager,
	PerspectiveTechnicalLead,
	PerspectiveRecruiter,
	PerspectiveATSOptimizer,
	PerspectiveIndustryExpert,
	PerspectiveCareerCoach,
}
