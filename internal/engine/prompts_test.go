package engine

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resumewise/refine-cli/internal/model"
)

func sampleSpec() model.TargetSpecAnalysis {
	spec := model.DefaultTargetSpecAnalysis()
	spec.Industry = "fintech"
	spec.KeyTechnologies = []string{"Go", "PostgreSQL", "Kafka"}
	spec.Priorities = []string{"reliability", "scaling"}
	return spec
}

func TestSystemPrompt_ExpandsPlaceholders(t *testing.T) {
	lib := DefaultPrompts()
	prompt := lib.SystemPrompt(model.SectionExperience, sampleSpec(), model.PerspectiveHiringManager, 1)

	assert.Contains(t, prompt, "fintech")
	assert.NotContains(t, prompt, "{{industry}}")
	assert.NotContains(t, prompt, "{{section}}")
	assert.Contains(t, prompt, "ITERATION CONTEXT: This is iteration 1.")
	assert.Contains(t, prompt, "Return ONLY the improved experience content.")
}

func TestSystemPrompt_SectionRulesLayered(t *testing.T) {
	lib := DefaultPrompts()
	skills := lib.SystemPrompt(model.SectionSkills, sampleSpec(), model.PerspectiveATSOptimizer, 2)
	education := lib.SystemPrompt(model.SectionEducation, sampleSpec(), model.PerspectiveATSOptimizer, 2)

	assert.NotEqual(t, skills, education)
	assert.Contains(t, skills, "CRITICAL RESUME RULES")
	assert.Contains(t, education, "CRITICAL RESUME RULES")
}

func TestSystemPrompt_AllPerspectivesDiffer(t *testing.T) {
	lib := DefaultPrompts()
	seen := make(map[string]model.PerspectiveKind)
	for _, p := range model.PerspectiveRotation {
		prompt := lib.SystemPrompt(model.SectionExperience, sampleSpec(), p, 1)
		if prior, dup := seen[prompt]; dup {
			t.Fatalf("perspectives %s and %s produced identical prompts", prior, p)
		}
		seen[prompt] = p
	}
}

func TestJoinLimit(t *testing.T) {
	assert.Equal(t, "general", joinLimit(nil, 5))
	assert.Equal(t, "a, b", joinLimit([]string{"a", "b"}, 5))
	assert.Equal(t, "a, b", joinLimit([]string{"a", "b", "c"}, 2))
}

func writePerspectiveFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "perspectives.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadPrompts_OverridesFraming(t *testing.T) {
	path := writePerspectiveFile(t, `
perspectives:
  recruiter: "You are a staffing specialist reviewing a {{section}} section for {{industry}} roles."
`)
	lib, err := LoadPrompts(path)
	require.NoError(t, err)

	prompt := lib.SystemPrompt(model.SectionSkills, sampleSpec(), model.PerspectiveRecruiter, 1)
	assert.True(t, strings.HasPrefix(prompt, "You are a staffing specialist reviewing a skills section for fintech roles."))

	// Other perspectives keep their defaults.
	def := DefaultPrompts().SystemPrompt(model.SectionSkills, sampleSpec(), model.PerspectiveHiringManager, 1)
	assert.Equal(t, def, lib.SystemPrompt(model.SectionSkills, sampleSpec(), model.PerspectiveHiringManager, 1))
}

func TestLoadPrompts_UnknownPerspective(t *testing.T) {
	path := writePerspectiveFile(t, `
perspectives:
  chief_vibes_officer: "framing"
`)
	_, err := LoadPrompts(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown perspective")
}

func TestLoadPrompts_EmptyFraming(t *testing.T) {
	path := writePerspectiveFile(t, `
perspectives:
  recruiter: "   "
`)
	_, err := LoadPrompts(path)
	require.Error(t, err)
}

func TestLoadPrompts_MissingFile(t *testing.T) {
	_, err := LoadPrompts(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
