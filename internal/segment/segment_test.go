package segment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resumewise/refine-cli/internal/model"
)

const sampleResume = `Jane Smith
jane.smith@example.com | (555) 123-4567
linkedin.com/in/janesmith

PROFESSIONAL SUMMARY
Backend engineer with eight years of experience building payment systems.

WORK EXPERIENCE
Software Engineer, Acme Corp, 2019-2024
- Built internal reporting dashboards
- Improved database query performance by 30%

EDUCATION
B.S. Computer Science, State University, 2018

TECHNICAL SKILLS
Languages: Python, Go
Tools: Docker, Git

PROJECTS
Expense Tracker: personal budgeting app built with Go
`

func TestSplit_HeaderedResume(t *testing.T) {
	sections := Split(sampleResume)

	require.Contains(t, sections, model.SectionExperience)
	require.Contains(t, sections, model.SectionEducation)
	require.Contains(t, sections, model.SectionSkills)
	require.Contains(t, sections, model.SectionSummary)
	require.Contains(t, sections, model.SectionProjects)

	assert.Contains(t, sections[model.SectionExperience], "Acme Corp")
	assert.Contains(t, sections[model.SectionEducation], "State University")
	assert.Contains(t, sections[model.SectionSkills], "Languages: Python, Go")
	assert.NotContains(t, sections[model.SectionExperience], "State University")
}

func TestSplit_ExtractsContactInfo(t *testing.T) {
	sections := Split(sampleResume)

	require.Contains(t, sections, model.SectionContactInfo)
	contact := sections[model.SectionContactInfo]
	assert.Contains(t, contact, "Jane Smith")
	assert.Contains(t, contact, "jane.smith@example.com")
	assert.Contains(t, contact, "linkedin.com/in/janesmith")
}

func TestSplit_HeaderVariants(t *testing.T) {
	raw := `EMPLOYMENT HISTORY
Software Engineer at Initech

ACADEMIC BACKGROUND
B.A. Mathematics
`
	sections := Split(raw)
	assert.Contains(t, sections, model.SectionExperience)
	assert.Contains(t, sections, model.SectionEducation)
}

func TestSplit_DecoratedHeaders(t *testing.T) {
	raw := `=== Experience ===
Software Engineer at Initech

--- Education ---
B.A. Mathematics
`
	sections := Split(raw)
	assert.Contains(t, sections, model.SectionExperience)
	assert.Contains(t, sections, model.SectionEducation)
}

func TestSplit_NoHeadersFallsBackToClassification(t *testing.T) {
	raw := `Worked as a software developer at a large company where I led a team
and implemented several internal services, improving reliability.

University of Somewhere, Bachelor of Science degree in Computer Science,
graduated with a 3.8 GPA and relevant coursework in algorithms.
`
	sections := Split(raw)
	assert.Contains(t, sections, model.SectionExperience)
	assert.Contains(t, sections, model.SectionEducation)
}

func TestSplit_UnclassifiableTextBecomesSummary(t *testing.T) {
	raw := "Just a short note"
	sections := Split(raw)
	require.Contains(t, sections, model.SectionSummary)
	assert.Equal(t, "Just a short note", sections[model.SectionSummary])
}

func TestSplit_FirstOccurrenceWins(t *testing.T) {
	raw := `EXPERIENCE
First job listed here with details

EXPERIENCE
Duplicate header content
`
	sections := Split(raw)
	assert.Contains(t, sections[model.SectionExperience], "First job")
	assert.NotContains(t, sections[model.SectionExperience], "Duplicate header content")
}
