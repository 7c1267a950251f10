// Package diff computes normalized similarity and structural-change
// classification between two versions of a resume section. Everything here is
// pure and deterministic so the refinement loop can call it every iteration
// and tests can assert exact reports.
package diff

import (
	"fmt"
	"strings"

	diffmatchpatch "github.com/sergi/go-diff/diffmatchpatch"
	"golang.org/x/text/unicode/norm"
)

// ChangeType classifies one kind of structural change between two texts.
type ChangeType string

const (
	ChangeStructure       ChangeType = "structure"
	ChangeCategorization  ChangeType = "categorization"
	ChangeFormatting      ChangeType = "formatting"
	ChangeContentAddition ChangeType = "content_addition"
)

// formattingOnlyThreshold is the Jaccard similarity above which two texts are
// treated as differing only in formatting.
const formattingOnlyThreshold = 0.95

// newWordLimit is the number of candidate-only words above which the report
// flags a content addition. A soft fabrication smell, not a hard reject.
const newWordLimit = 3

// ChangeReport describes how a candidate text differs from its original.
type ChangeReport struct {
	HasMeaningfulChange bool         `json:"has_meaningful_change"`
	Similarity          float64      `json:"similarity"`
	ChangeTypes         []ChangeType `json:"change_types,omitempty"`
	Descriptions        []string     `json:"descriptions,omitempty"`
	FormattingOnly      bool         `json:"formatting_only"`
}

// HasChange reports whether the given change type was detected.
func (r ChangeReport) HasChange(t ChangeType) bool {
	for _, ct := range r.ChangeTypes {
		if ct == t {
			return true
		}
	}
	return false
}

var listMarkerReplacer = strings.NewReplacer("▸", " ", "•", " ", "●", " ", "◦", " ", "*", " ", "-", " ")

// Normalize collapses whitespace, strips list-marker glyphs and lowercases,
// so that pure reformatting compares as identical content.
func Normalize(text string) string {
	s := norm.NFKC.String(text)
	s = listMarkerReplacer.Replace(s)
	s = strings.ToLower(strings.Join(strings.Fields(s), " "))
	return s
}

// Similarity computes Jaccard similarity over the word sets of the two
// normalized texts, in [0, 1].
func Similarity(a, b string) float64 {
	wa := wordSet(Normalize(a))
	wb := wordSet(Normalize(b))
	if len(wa) == 0 && len(wb) == 0 {
		return 1.0
	}
	if len(wa) == 0 || len(wb) == 0 {
		return 0.0
	}
	inter := 0
	for w := range wa {
		if wb[w] {
			inter++
		}
	}
	union := len(wa) + len(wb) - inter
	return float64(inter) / float64(union)
}

// Compare diffs original against candidate and classifies what changed.
func Compare(original, candidate string) ChangeReport {
	report := ChangeReport{
		Similarity: Similarity(original, candidate),
	}

	if report.Similarity > formattingOnlyThreshold {
		report.FormattingOnly = true
		report.Descriptions = append(report.Descriptions, "Minor formatting adjustments only")
		return report
	}

	report.HasMeaningfulChange = true

	if hasStructureImprovement(original, candidate) {
		report.ChangeTypes = append(report.ChangeTypes, ChangeStructure)
		report.Descriptions = append(report.Descriptions, "Improved content organization and structure")
	}
	if hasCategorizationImprovement(original, candidate) {
		report.ChangeTypes = append(report.ChangeTypes, ChangeCategorization)
		report.Descriptions = append(report.Descriptions, "Enhanced categorization and grouping")
	}
	if hasFormattingImprovement(original, candidate) {
		report.ChangeTypes = append(report.ChangeTypes, ChangeFormatting)
		report.Descriptions = append(report.Descriptions, "Applied professional formatting standards")
	}

	if added := NewWords(original, candidate); len(added) > newWordLimit {
		report.ChangeTypes = append(report.ChangeTypes, ChangeContentAddition)
		preview := added
		if len(preview) > 5 {
			preview = preview[:5]
		}
		report.Descriptions = append(report.Descriptions,
			fmt.Sprintf("Added content: %s", strings.Join(preview, ", ")))
	}

	if ins, del := editVolume(original, candidate); ins > 0 || del > 0 {
		report.Descriptions = append(report.Descriptions,
			fmt.Sprintf("Revised wording (%d characters added, %d removed)", ins, del))
	}

	return report
}

// NewWords returns the normalized words present in candidate but not in
// original, in first-appearance order.
func NewWords(original, candidate string) []string {
	origSet := wordSet(Normalize(original))
	var added []string
	seen := make(map[string]bool)
	for _, w := range strings.Fields(Normalize(candidate)) {
		if origSet[w] || seen[w] {
			continue
		}
		seen[w] = true
		added = append(added, w)
	}
	return added
}

func wordSet(normalized string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.Fields(normalized) {
		words[w] = true
	}
	return words
}

// bulletCount counts list-marker glyphs used for structural comparison.
func bulletCount(text string) int {
	return strings.Count(text, "•") + strings.Count(text, "-") + strings.Count(text, "▸")
}

func hasStructureImprovement(original, candidate string) bool {
	return bulletCount(candidate) > bulletCount(original) ||
		strings.Count(candidate, ":") > strings.Count(original, ":")
}

var categoryKeywords = []string{"languages:", "framework", "database", "tools:", "cloud", "skills:"}

func hasCategorizationImprovement(original, candidate string) bool {
	lo, lc := strings.ToLower(original), strings.ToLower(candidate)
	origCats, candCats := 0, 0
	for _, kw := range categoryKeywords {
		if strings.Contains(lo, kw) {
			origCats++
		}
		if strings.Contains(lc, kw) {
			candCats++
		}
	}
	return candCats > origCats
}

func hasFormattingImprovement(original, candidate string) bool {
	delta := nonEmptyLineCount(candidate) - nonEmptyLineCount(original)
	if delta < 0 {
		delta = -delta
	}
	return delta > 1
}

func nonEmptyLineCount(text string) int {
	n := 0
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			n++
		}
	}
	return n
}

// editVolume measures how many characters were inserted and deleted between
// the normalized texts, using semantic diff cleanup so small word tweaks are
// not counted letter by letter.
func editVolume(original, candidate string) (inserted, deleted int) {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(Normalize(original), Normalize(candidate), false)
	diffs = dmp.DiffCleanupSemantic(diffs)
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			inserted += len(d.Text)
		case diffmatchpatch.DiffDelete:
			deleted += len(d.Text)
		}
	}
	return inserted, deleted
}
