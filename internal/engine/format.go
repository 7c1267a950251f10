package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/resumewise/refine-cli/internal/model"
	"github.com/resumewise/refine-cli/pkg/anthropic"
)

const formatSkillsPrompt = `FORMAT the following skills section to follow professional resume standards:

REQUIREMENTS:
- Use structured categorization with categories like: Languages, Frameworks, Databases, Tools, Cloud
- Format as: ▸ Category: skill1, skill2, skill3
- NO paragraph format allowed
- NO sentences like "Proficient in..." or "Skilled in..."
- Keep all original skills, just reorganize structure

ORIGINAL SKILLS:
%s

Return ONLY the formatted skills section:`

const formatExperiencePrompt = `FORMAT the following experience section for professional resume standards:

REQUIREMENTS:
- Use consistent bullet points (▸ or •)
- Each bullet should be concise and action-oriented
- Maintain original content, improve structure only
- No fabrication allowed

ORIGINAL EXPERIENCE:
%s

Return ONLY the formatted experience section:`

const formatEducationPrompt = `FORMAT the following education section for professional resume standards:

REQUIREMENTS:
- Keep educational entries concise and structured
- Include degree, institution, year in clean format
- NO fabricated projects or coursework details
- Maintain original content accuracy

ORIGINAL EDUCATION:
%s

Return ONLY the formatted education section:`

const formatProjectsPrompt = `FORMAT the following projects section for professional resume standards:

REQUIREMENTS:
- Use clear project titles and descriptions
- Include technologies used in consistent format
- Maintain original project details, no fabrication
- Use bullet points for project details

ORIGINAL PROJECTS:
%s

Return ONLY the formatted projects section:`

const formatGenericPrompt = `FORMAT the following resume section for professional standards:

REQUIREMENTS:
- Use consistent formatting and structure
- Improve readability without changing content
- No fabrication or content addition allowed

ORIGINAL CONTENT:
%s

Return ONLY the formatted content:`

// AssessFormattingNeeds returns the structural problems detected in content,
// or nil when it already meets baseline format standards. Pure heuristics,
// no model calls.
func AssessFormattingNeeds(content string, kind model.SectionKind) []string {
	var issues []string

	var lines []string
	for _, line := range strings.Split(content, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}

	switch kind {
	case model.SectionSkills:
		for _, line := range lines {
			if len(strings.Fields(line)) > 8 {
				issues = append(issues, "paragraph_format")
				break
			}
		}
		if !strings.Contains(content, ":") && len(lines) > 3 {
			issues = append(issues, "missing_categories")
		}
		bullets := strings.Count(content, "▸") + strings.Count(content, "•") +
			strings.Count(content, "-") + strings.Count(content, "*")
		if bullets < len(lines)/2 {
			issues = append(issues, "missing_bullets")
		}

	case model.SectionExperience:
		bullets := strings.Count(content, "•") + strings.Count(content, "-") + strings.Count(content, "▸")
		if bullets < len(lines)/3 {
			issues = append(issues, "missing_bullets")
		}
		consistent := false
		for i, line := range lines {
			if i == 0 {
				continue
			}
			if strings.HasPrefix(line, "•") || strings.HasPrefix(line, "-") || strings.HasPrefix(line, "▸") {
				consistent = true
				break
			}
		}
		if !consistent && len(lines) > 1 {
			issues = append(issues, "inconsistent_bullets")
		}

	case model.SectionEducation:
		for _, line := range lines {
			if len(strings.Fields(line)) > 15 {
				issues = append(issues, "verbose_format")
				break
			}
		}

	case model.SectionProjects:
		if strings.Count(content, ":") < len(lines)/4 {
			issues = append(issues, "missing_structure")
		}
	}

	return issues
}

// CleanupFormat applies a format-only rewrite when the content needs one.
// Already clean content is returned unchanged without a model call, which
// makes repeated cleanup idempotent.
func (g *Generator) CleanupFormat(ctx context.Context, content string, kind model.SectionKind) (string, error) {
	needs := AssessFormattingNeeds(content, kind)
	if len(needs) == 0 {
		return content, nil
	}

	zap.L().Info("engine: applying format cleanup",
		zap.String("section", string(kind)),
		zap.Strings("issues", needs),
	)

	var tmpl string
	switch kind {
	case model.SectionSkills:
		tmpl = formatSkillsPrompt
	case model.SectionExperience:
		tmpl = formatExperiencePrompt
	case model.SectionEducation:
		tmpl = formatEducationPrompt
	case model.SectionProjects:
		tmpl = formatProjectsPrompt
	default:
		tmpl = formatGenericPrompt
	}

	out, err := g.client.Complete(ctx, anthropic.CompletionRequest{
		Model:       g.model,
		Prompt:      fmt.Sprintf(tmpl, content),
		Temperature: 0.1,
		MaxTokens:   generateMaxTokens,
		Phase:       "format",
	})
	if err != nil {
		return "", eris.Wrapf(err, "engine: format cleanup %s", kind)
	}
	return strings.TrimSpace(out), nil
}
