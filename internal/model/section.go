package model

import (
	"time"
)

// SectionKind identifies one structural unit of a resume.
type SectionKind string

const (
	SectionContactInfo    SectionKind = "contact_info"
	SectionSummary        SectionKind = "summary"
	SectionSkills         SectionKind = "skills"
	SectionEducation      SectionKind = "education"
	SectionExperience     SectionKind = "experience"
	SectionProjects       SectionKind = "projects"
	SectionCertifications SectionKind = "certifications"
)

// AnalysisOrder is the fixed priority order in which sections are refined.
// Later sections' prompts may build on decisions made for earlier ones, so
// the order is part of the contract, not an implementation detail.
var AnalysisOrder = []SectionKind{
	SectionSkills,
	SectionEducation,
	SectionExperience,
	SectionProjects,
}

// ParseSectionKind maps a string to a known SectionKind.
func ParseSectionKind(s string) (SectionKind, bool) {
	switch SectionKind(s) {
	case SectionContactInfo, SectionSummary, SectionSkills, SectionEducation,
		SectionExperience, SectionProjects, SectionCertifications:
		return SectionKind(s), true
	default:
		return "", false
	}
}

// Section holds the full refinement state for one resume section.
// OriginalContent is the fabrication baseline for the section's entire
// lifetime and is never mutated. BestContent, FinalScore and Iterations are
// written only by the refinement loop.
type Section struct {
	Kind               SectionKind           `json:"section_type"`
	OriginalContent    string                `json:"original_content"`
	BestContent        string                `json:"improved_content,omitempty"`
	Iterations         []IterationRecord     `json:"iterations,omitempty"`
	FinalScore         int                   `json:"score"`
	Narrative          string                `json:"feedback"`
	NeedsClarification bool                  `json:"needs_clarification"`
	Clarification      *ClarificationRequest `json:"clarification_request,omitempty"`
}

// IterationRecord captures the outcome of a single refinement iteration.
// The list on a Section is append-only; records are never rewritten.
type IterationRecord struct {
	Version     int             `json:"version"`
	Content     string          `json:"content"`
	Perspective PerspectiveKind `json:"perspective"`
	Score       int             `json:"score"`
	Strengths   []string        `json:"strengths,omitempty"`
	Weaknesses  []string        `json:"weaknesses,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	Timestamp   time.Time       `json:"timestamp"`
}

// ClarificationRequest is a targeted question for the human, created when the
// engine detects a gap it cannot fill without inventing information.
type ClarificationRequest struct {
	Section         SectionKind `json:"section_type"`
	Question        string      `json:"question"`
	Context         string      `json:"context"`
	OriginalContent string      `json:"original_content"`
	Reason          string      `json:"reason"`
	Timestamp       time.Time   `json:"timestamp"`
}
