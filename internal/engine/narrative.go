package engine

import (
	"strings"

	"github.com/resumewise/refine-cli/internal/diff"
	"github.com/resumewise/refine-cli/internal/model"
)

// fallback messages when change classification yields nothing specific.
var sectionNarratives = map[model.SectionKind]string{
	model.SectionSkills:     "Skills organization reviewed and optimized.",
	model.SectionExperience: "Experience descriptions enhanced for clarity.",
	model.SectionEducation:  "Educational background formatting improved.",
	model.SectionProjects:   "Project presentations refined.",
}

// BuildNarrative summarizes what actually changed between the original text
// and the best candidate, based on diff classification rather than what the
// iterations claimed to do.
func BuildNarrative(iterations []model.IterationRecord, kind model.SectionKind, original string) string {
	if len(iterations) == 0 {
		return "No changes applied."
	}

	best := iterations[0]
	for _, it := range iterations[1:] {
		if it.Score > best.Score {
			best = it
		}
	}

	report := diff.Compare(original, best.Content)
	if !report.HasMeaningfulChange {
		if report.Similarity > 0.98 {
			return "Content reviewed - no improvements needed."
		}
		return "Minor formatting adjustments applied."
	}
	if len(report.Descriptions) > 0 {
		return strings.Join(report.Descriptions, ". ") + "."
	}

	if msg, ok := sectionNarratives[kind]; ok {
		return msg
	}
	return "Content formatting reviewed."
}
