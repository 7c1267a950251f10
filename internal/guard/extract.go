package guard

import (
	"regexp"
	"strings"
)

// Metric token patterns: percentages, multipliers ("2x"), time-unit counts,
// currency amounts, and "increased/reduced by N" phrasings.
var metricPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d+(?:\.\d+)?\s*%`),
	regexp.MustCompile(`\b\d+(?:\.\d+)?x\b`),
	regexp.MustCompile(`\b\d+\+?\s*(?:years?|months?|weeks?|days?|hours?)\b`),
	regexp.MustCompile(`[$€£]\s?\d[\d,.]*\s*(?:[kmb]|million|billion|thousand)?\b`),
	regexp.MustCompile(`\b(?:increased|decreased|reduced|improved|grew|cut|boosted)\s+(?:\w+\s+){0,3}by\s+\d[\d,.]*\s*%?`),
}

// ExtractMetrics returns the lowercase metric tokens found in text, deduped,
// in first-appearance order.
func ExtractMetrics(text string) []string {
	lower := strings.ToLower(text)
	var metrics []string
	seen := make(map[string]bool)
	for _, re := range metricPatterns {
		for _, m := range re.FindAllString(lower, -1) {
			m = strings.Join(strings.Fields(m), " ")
			if !seen[m] {
				seen[m] = true
				metrics = append(metrics, m)
			}
		}
	}
	return metrics
}

// achievementVerbs lead clauses that claim an accomplishment.
var achievementVerbs = map[string]bool{
	"led": true, "achieved": true, "delivered": true, "improved": true,
	"reduced": true, "increased": true, "launched": true, "built": true,
	"created": true, "designed": true, "implemented": true, "developed": true,
	"managed": true, "spearheaded": true, "optimized": true, "drove": true,
	"grew": true, "boosted": true, "streamlined": true, "automated": true,
}

// impactWords signal a measurable outcome inside an achievement clause.
var impactWords = []string{
	"%", "percent", "revenue", "cost", "efficiency", "performance", "users",
	"customers", "clients", "time", "growth", "sales", "conversion", "uptime",
	"latency", "throughput", "savings", "budget", "team",
}

// AchievementClauses splits text into clauses (bullet lines and sentences)
// and returns the ones led by an achievement verb.
func AchievementClauses(text string) []string {
	var clauses []string
	for _, clause := range splitClauses(text) {
		words := strings.Fields(strings.ToLower(clause))
		if len(words) == 0 {
			continue
		}
		if achievementVerbs[strings.Trim(words[0], ".,;:")] {
			clauses = append(clauses, clause)
		}
	}
	return clauses
}

var responsibilityMarkers = []string{
	"responsible for", "duties included", "tasked with", "in charge of",
	"oversaw", "accountable for",
}

// ResponsibilityClauses returns clauses that claim a responsibility.
func ResponsibilityClauses(text string) []string {
	var clauses []string
	for _, clause := range splitClauses(text) {
		lower := strings.ToLower(clause)
		for _, marker := range responsibilityMarkers {
			if strings.Contains(lower, marker) {
				clauses = append(clauses, clause)
				break
			}
		}
	}
	return clauses
}

// splitClauses breaks text into candidate clauses: each non-empty line is
// split further on sentence boundaries, with list markers trimmed.
func splitClauses(text string) []string {
	var clauses []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimLeft(strings.TrimSpace(line), "▸•-* \t")
		if line == "" {
			continue
		}
		for _, sentence := range strings.FieldsFunc(line, func(r rune) bool {
			return r == '.' || r == ';'
		}) {
			sentence = strings.TrimSpace(sentence)
			if sentence != "" {
				clauses = append(clauses, sentence)
			}
		}
	}
	return clauses
}

// hasImpactLanguage reports whether a clause contains a metric or an impact
// word.
func hasImpactLanguage(clause string) bool {
	if len(ExtractMetrics(clause)) > 0 {
		return true
	}
	lower := strings.ToLower(clause)
	for _, w := range impactWords {
		if strings.Contains(lower, w) {
			return true
		}
	}
	return false
}

// WordOverlap computes word-set overlap similarity between two clauses,
// in [0, 1]: |intersection| / |smaller set|.
func WordOverlap(a, b string) float64 {
	wa := clauseWords(a)
	wb := clauseWords(b)
	if len(wa) == 0 || len(wb) == 0 {
		return 0.0
	}
	inter := 0
	for w := range wa {
		if wb[w] {
			inter++
		}
	}
	smaller := len(wa)
	if len(wb) < smaller {
		smaller = len(wb)
	}
	return float64(inter) / float64(smaller)
}

func clauseWords(clause string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(clause)) {
		w = strings.Trim(w, ".,;:!?()")
		if len(w) > 2 {
			words[w] = true
		}
	}
	return words
}

// knownTechnologies anchors skill extraction on common resume technologies.
var knownTechnologies = regexp.MustCompile(`(?i)\b(?:python|java|javascript|typescript|golang|rust|ruby|php|scala|kotlin|swift|c\+\+|c#|react|angular|vue|node\.js|django|flask|spring|rails|express|mongodb|postgresql|mysql|redis|elasticsearch|kafka|aws|azure|gcp|docker|kubernetes|terraform|git|jenkins|graphql|html|css\d?|sql|nosql|linux)\b`)

// ExtractSkills extracts lowercase skill tokens from text: known technology
// names plus items from comma/bullet-delimited lists.
func ExtractSkills(text string) map[string]bool {
	skills := make(map[string]bool)
	for _, m := range knownTechnologies.FindAllString(text, -1) {
		skills[strings.ToLower(m)] = true
	}

	// Category lines like "Languages: Python, Go" contribute each list item.
	for _, line := range strings.Split(text, "\n") {
		list := line
		if idx := strings.Index(line, ":"); idx >= 0 {
			list = line[idx+1:]
		}
		for _, item := range strings.FieldsFunc(list, func(r rune) bool {
			return r == ',' || r == '•' || r == '▸' || r == '|' || r == '/'
		}) {
			item = strings.ToLower(strings.TrimSpace(item))
			if item != "" && len(item) > 2 && len(strings.Fields(item)) <= 3 {
				skills[item] = true
			}
		}
	}
	return skills
}

var courseLinePattern = regexp.MustCompile(`(?i)(?:course\w*|relevant coursework)\s*:?\s*(.+)`)

// ExtractCourseNames pulls course names from coursework lines in an
// education section.
func ExtractCourseNames(text string) []string {
	var courses []string
	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(line)
		if !strings.Contains(lower, "course") && !strings.Contains(lower, "relevant") {
			continue
		}
		m := courseLinePattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		for _, c := range strings.Split(m[1], ",") {
			c = strings.TrimSpace(c)
			if len(c) > 3 {
				courses = append(courses, c)
			}
		}
	}
	return courses
}

// hasCategorizedStructure reports whether a skills text uses category or
// bullet list structure.
func hasCategorizedStructure(text string) bool {
	markers := []string{"▸", "•", "languages:", "framework", "database", "tools:", "cloud"}
	lower := strings.ToLower(text)
	for _, m := range markers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return strings.Contains(text, ":")
}

var narrativePhrases = []string{
	"proficient in", "skilled in", "experienced in", "competent in",
	"well-versed in", "strong knowledge of",
}

// hasNarrativePhrasing reports whether a skills text reads as prose instead
// of a structured list.
func hasNarrativePhrasing(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range narrativePhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
