package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/resumewise/refine-cli/internal/model"
)

func iter(version, score int, content string) model.IterationRecord {
	return model.IterationRecord{
		Version:   version,
		Score:     score,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

func TestBuildNarrative_NoIterations(t *testing.T) {
	got := BuildNarrative(nil, model.SectionSkills, "anything")
	assert.Equal(t, "No changes applied.", got)
}

func TestBuildNarrative_IdenticalBest(t *testing.T) {
	original := "- Built the data pipeline"
	got := BuildNarrative([]model.IterationRecord{iter(1, 85, original)}, model.SectionExperience, original)
	assert.Equal(t, "Content reviewed - no improvements needed.", got)
}

func TestBuildNarrative_UsesBestScoringIteration(t *testing.T) {
	original := "Python Go Docker Kubernetes managed infrastructure"
	restructured := "Languages: Python, Go\nTools: Docker, Kubernetes\nManaged infrastructure"

	iterations := []model.IterationRecord{
		iter(1, 70, original),
		iter(2, 88, restructured),
		iter(3, 80, original),
	}
	got := BuildNarrative(iterations, model.SectionSkills, original)
	assert.Contains(t, got, "Improved content organization and structure")
}

func TestBuildNarrative_MeaningfulChangeJoinsDescriptions(t *testing.T) {
	original := "Maintained the billing service"
	changed := "Rebuilt the billing service with automated deployment pipelines and monitoring"

	got := BuildNarrative([]model.IterationRecord{iter(1, 90, changed)}, model.SectionExperience, original)
	assert.NotEqual(t, "No changes applied.", got)
	assert.True(t, len(got) > 0 && got[len(got)-1] == '.')
}
