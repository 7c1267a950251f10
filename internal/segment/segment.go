// Package segment splits raw resume text into typed sections. Header
// detection runs first; when headers are missing or the critical sections
// do not surface, a keyword classifier over paragraph chunks takes over.
package segment

import (
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/resumewise/refine-cli/internal/model"
)

// headerPatterns maps each section kind to the heading variants that
// introduce it. Matched as full lines, case-insensitive, with decorative
// dashes/equals/colons around the words allowed.
var headerPatterns = map[model.SectionKind][]string{
	model.SectionContactInfo: {
		`contact\s+info(?:rmation)?`,
		`personal\s+info(?:rmation)?`,
		`contact\s+details`,
	},
	model.SectionSummary: {
		`(?:professional\s+)?summary`,
		`(?:career\s+)?profile`,
		`(?:professional\s+)?objective`,
		`about\s+me`,
		`overview`,
	},
	model.SectionExperience: {
		`(?:work\s+|professional\s+)?experience`,
		`employment\s+history`,
		`career\s+history`,
		`professional\s+background`,
		`work\s+history`,
	},
	model.SectionEducation: {
		`education(?:al\s+background)?`,
		`academic\s+background`,
		`qualifications`,
		`degrees?`,
		`academic\s+credentials`,
	},
	model.SectionSkills: {
		`(?:technical\s+)?skills`,
		`core\s+competencies`,
		`competencies`,
		`(?:technical\s+)?expertise`,
		`areas\s+of\s+expertise`,
		`programming\s+languages?`,
		`technologies`,
		`tools?\s+(?:and\s+)?technologies`,
	},
	model.SectionProjects: {
		`(?:personal\s+|key\s+|notable\s+|academic\s+)?projects?`,
		`project\s+experience`,
		`portfolio`,
	},
	model.SectionCertifications: {
		`(?:professional\s+)?certifications?`,
		`licenses?`,
		`credentials`,
	},
}

type compiledHeader struct {
	kind model.SectionKind
	re   *regexp.Regexp
}

var compiledHeaders = compileHeaders()

func compileHeaders() []compiledHeader {
	var out []compiledHeader
	for kind, patterns := range headerPatterns {
		for _, p := range patterns {
			out = append(out, compiledHeader{
				kind: kind,
				re:   regexp.MustCompile(`(?im)^[ \t\-=]*` + p + `[ \t\-=:]*$`),
			})
		}
	}
	return out
}

type headerMatch struct {
	start, end int
	kind       model.SectionKind
}

var blankRuns = regexp.MustCompile(`\n\s*\n\s*\n+`)

// Split partitions raw resume text by section. The first occurrence of each
// kind wins; downstream refinement treats the result as authoritative.
func Split(raw string) map[model.SectionKind]string {
	sections := make(map[model.SectionKind]string)

	if contact := extractContactInfo(raw); contact != "" {
		sections[model.SectionContactInfo] = contact
	}

	var matches []headerMatch
	for _, h := range compiledHeaders {
		for _, loc := range h.re.FindAllStringIndex(raw, -1) {
			matches = append(matches, headerMatch{start: loc[0], end: loc[1], kind: h.kind})
		}
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].start < matches[j].start })

	for i, m := range matches {
		end := len(raw)
		if i+1 < len(matches) {
			end = matches[i+1].start
		}
		if end < m.end {
			continue
		}
		content := strings.TrimSpace(raw[m.end:end])
		content = blankRuns.ReplaceAllString(content, "\n\n")
		if content == "" {
			continue
		}
		if _, seen := sections[m.kind]; seen {
			continue
		}
		sections[m.kind] = content
	}

	if !hasCriticalSections(sections) {
		zap.L().Info("segment: headers missing or incomplete, classifying by content")
		classifyChunks(raw, sections)
	}

	if len(sections) == 0 {
		sections[model.SectionSummary] = strings.TrimSpace(raw)
	}
	return sections
}

// hasCriticalSections reports whether header detection surfaced at least one
// of the sections the refinement order depends on most.
func hasCriticalSections(sections map[model.SectionKind]string) bool {
	_, edu := sections[model.SectionEducation]
	_, exp := sections[model.SectionExperience]
	return edu || exp
}

var contactPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[\w.\-]+@[\w.\-]+\.\w+`),
	regexp.MustCompile(`\+?[\d][\d\s\-().]{9,}`),
	regexp.MustCompile(`(?i)linkedin\.com/in/[\w\-]+`),
	regexp.MustCompile(`(?i)github\.com/[\w\-]+`),
}

var namePattern = regexp.MustCompile(`^[A-Z][a-z]+\s+[A-Z][a-z]+(?:\s+[A-Z][a-z]+)*$`)

// extractContactInfo pulls contact lines from the top of the resume.
func extractContactInfo(raw string) string {
	top := raw
	if len(top) > 500 {
		top = top[:500]
	}

	var found []string
	for _, re := range contactPatterns {
		found = append(found, re.FindAllString(top, -1)...)
	}

	lines := strings.Split(raw, "\n")
	if len(lines) > 5 {
		lines = lines[:5]
	}
	for _, line := range lines {
		if namePattern.MatchString(strings.TrimSpace(line)) {
			found = append([]string{strings.TrimSpace(line)}, found...)
			break
		}
	}
	return strings.Join(found, "\n")
}

// Indicator word groups for classifying anonymous chunks. A hit counts
// double because co-occurrence across groups is the real signal.
var chunkIndicators = map[model.SectionKind][][]string{
	model.SectionSkills: {
		{"python", "javascript", "java", "c++", "react", "node"},
		{"programming", "languages", "technologies", "frameworks"},
		{"aws", "azure", "docker", "kubernetes", "git"},
		{"sql", "mongodb", "postgresql", "database"},
	},
	model.SectionExperience: {
		{"worked", "developed", "managed", "led", "implemented"},
		{"company", "position", "role", "responsibilities"},
		{"achieved", "improved", "increased", "reduced"},
	},
	model.SectionEducation: {
		{"university", "college", "school", "institute"},
		{"degree", "bachelor", "master", "phd", "diploma"},
		{"gpa", "graduated", "coursework", "major"},
	},
	model.SectionProjects: {
		{"project", "built", "created", "developed"},
		{"github", "repository", "demo", "deployed"},
		{"application", "website", "app", "platform"},
	},
}

const (
	minChunkLength    = 30
	minIndicatorScore = 2
)

// classifyChunks assigns paragraph chunks to section kinds by keyword
// scoring, filling only kinds not already present.
func classifyChunks(raw string, sections map[model.SectionKind]string) {
	grouped := make(map[model.SectionKind][]string)

	for _, chunk := range strings.Split(raw, "\n\n") {
		chunk = strings.TrimSpace(chunk)
		if len(chunk) < minChunkLength {
			continue
		}
		kind, ok := classifyChunk(chunk)
		if !ok {
			continue
		}
		grouped[kind] = append(grouped[kind], chunk)
	}

	for kind, chunks := range grouped {
		if _, seen := sections[kind]; seen {
			continue
		}
		sections[kind] = strings.Join(chunks, "\n\n")
	}
}

func classifyChunk(chunk string) (model.SectionKind, bool) {
	lower := strings.ToLower(chunk)

	bestScore := 0
	var best model.SectionKind
	for kind, groups := range chunkIndicators {
		score := 0
		for _, group := range groups {
			hits := 0
			for _, word := range group {
				if strings.Contains(lower, word) {
					hits++
				}
			}
			if hits > 0 {
				score += hits * 2
			}
		}
		if score > bestScore {
			bestScore = score
			best = kind
		}
	}
	if bestScore < minIndicatorScore {
		return "", false
	}
	return best, true
}
