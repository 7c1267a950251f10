package guard

import (
	"fmt"
	"sort"
	"strings"

	"github.com/resumewise/refine-cli/internal/model"
)

// nearDuplicateThreshold is the word-overlap similarity above which a
// candidate clause is considered supported by an original clause.
const nearDuplicateThreshold = 0.6

// lengthBlowupFactor flags candidates that grow well past the original.
const lengthBlowupFactor = 1.5

// Verify checks a candidate rewrite against the immutable original content of
// a section. The general metric/achievement/length rules always run;
// section-specific rules are layered on top. The result is identical for
// identical inputs — no external calls, no randomness.
func Verify(original, candidate string, kind model.SectionKind) Result {
	var issues []Issue

	issues = append(issues, checkMetrics(original, candidate)...)
	issues = append(issues, checkAchievements(original, candidate)...)
	issues = append(issues, checkLength(original, candidate)...)

	switch kind {
	case model.SectionSkills:
		issues = append(issues, checkSkills(original, candidate)...)
	case model.SectionEducation:
		issues = append(issues, checkEducation(original, candidate)...)
	case model.SectionExperience, model.SectionProjects:
		issues = append(issues, checkResponsibilities(original, candidate)...)
	}

	return finalize(issues)
}

// checkMetrics flags metric tokens present in the candidate but absent from
// the original.
func checkMetrics(original, candidate string) []Issue {
	origMetrics := make(map[string]bool)
	for _, m := range ExtractMetrics(original) {
		origMetrics[m] = true
	}

	var issues []Issue
	for _, m := range ExtractMetrics(candidate) {
		if !origMetrics[m] {
			issues = append(issues, Issue{
				Severity:    SeverityCritical,
				Kind:        IssueFabricatedMetrics,
				Description: fmt.Sprintf("metric %q not present in original content", m),
			})
		}
	}
	return issues
}

// checkAchievements flags achievement clauses in the candidate that have no
// near-duplicate in the original and carry metric or impact language.
func checkAchievements(original, candidate string) []Issue {
	origClauses := splitClauses(original)

	var issues []Issue
	for _, clause := range AchievementClauses(candidate) {
		if !hasImpactLanguage(clause) {
			continue
		}
		supported := false
		for _, oc := range origClauses {
			if WordOverlap(clause, oc) > nearDuplicateThreshold {
				supported = true
				break
			}
		}
		if !supported {
			issues = append(issues, Issue{
				Severity:    SeverityCritical,
				Kind:        IssueFabricatedAchievement,
				Description: fmt.Sprintf("achievement claim has no support in original: %q", truncateClause(clause)),
			})
		}
	}
	return issues
}

func checkLength(original, candidate string) []Issue {
	origWords := len(strings.Fields(original))
	candWords := len(strings.Fields(candidate))
	if origWords == 0 || float64(candWords) <= float64(origWords)*lengthBlowupFactor {
		return nil
	}
	growth := (float64(candWords)/float64(origWords) - 1) * 100
	return []Issue{{
		Severity:    SeverityMedium,
		Kind:        IssueExcessiveContentAddition,
		Description: fmt.Sprintf("candidate is %.0f%% longer than original", growth),
	}}
}

func checkSkills(original, candidate string) []Issue {
	var issues []Issue

	if hasCategorizedStructure(original) && hasNarrativePhrasing(candidate) {
		issues = append(issues, Issue{
			Severity:    SeverityCritical,
			Kind:        IssueStructureViolation,
			Description: "original skills were structured with categories, candidate converts to narrative phrasing",
		})
	}

	origSkills := ExtractSkills(original)
	var fabricated []string
	for skill := range ExtractSkills(candidate) {
		if !origSkills[skill] {
			fabricated = append(fabricated, skill)
		}
	}
	if len(fabricated) > 0 {
		// Stable ordering for deterministic descriptions.
		sort.Strings(fabricated)
		issues = append(issues, Issue{
			Severity:    SeverityHigh,
			Kind:        IssueFabricatedContent,
			Description: fmt.Sprintf("skills not extractable from original: %s", strings.Join(fabricated, ", ")),
		})
	}
	return issues
}

func checkEducation(original, candidate string) []Issue {
	var issues []Issue

	lowerCand := strings.ToLower(candidate)
	lowerOrig := strings.ToLower(original)

	if strings.Contains(lowerCand, "project") && !strings.Contains(lowerOrig, "project") {
		issues = append(issues, Issue{
			Severity:    SeverityCritical,
			Kind:        IssueFabricatedProjects,
			Description: "candidate introduces projects not mentioned in original education content",
		})
	}

	// Coursework repackaged as project work is fabrication even when the
	// original already mentions a project elsewhere.
	if strings.Contains(lowerCand, "project") {
		for _, course := range ExtractCourseNames(original) {
			if strings.Contains(lowerCand, strings.ToLower(course)) {
				issues = append(issues, Issue{
					Severity:    SeverityCritical,
					Kind:        IssueCourseToProjectConversion,
					Description: fmt.Sprintf("coursework %q converted into a project description", course),
				})
			}
		}
	}
	return issues
}

func checkResponsibilities(original, candidate string) []Issue {
	origClauses := splitClauses(original)

	var issues []Issue
	for _, clause := range ResponsibilityClauses(candidate) {
		supported := false
		for _, oc := range origClauses {
			if WordOverlap(clause, oc) > nearDuplicateThreshold {
				supported = true
				break
			}
		}
		if !supported {
			issues = append(issues, Issue{
				Severity:    SeverityHigh,
				Kind:        IssueFabricatedResponsibility,
				Description: fmt.Sprintf("responsibility claim has no analog in original: %q", truncateClause(clause)),
			})
		}
	}
	return issues
}

func truncateClause(clause string) string {
	if len(clause) > 80 {
		return clause[:77] + "..."
	}
	return clause
}
