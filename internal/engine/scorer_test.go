package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/resumewise/refine-cli/internal/model"
)

func TestScoreFast_ParsesNumber(t *testing.T) {
	stub := newStubCompleter()
	stub.queue("score", "85")

	s := NewScorer(stub, "test-model")
	got := s.ScoreFast(context.Background(), "content", model.SectionSkills, model.DefaultTargetSpecAnalysis())
	assert.Equal(t, 85, got)
}

func TestScoreFast_ExtractsNumberFromProse(t *testing.T) {
	stub := newStubCompleter()
	stub.queue("score", "Score: 72 out of 100")

	s := NewScorer(stub, "test-model")
	got := s.ScoreFast(context.Background(), "content", model.SectionSkills, model.DefaultTargetSpecAnalysis())
	assert.Equal(t, 72, got)
}

func TestScoreFast_NeutralOnError(t *testing.T) {
	stub := newStubCompleter()
	stub.failPhase("score", errors.New("timeout"))

	s := NewScorer(stub, "test-model")
	got := s.ScoreFast(context.Background(), "content", model.SectionSkills, model.DefaultTargetSpecAnalysis())
	assert.Equal(t, neutralScore, got)
}

func TestScoreFast_NeutralOnGarbage(t *testing.T) {
	stub := newStubCompleter()
	stub.queue("score", "excellent work")

	s := NewScorer(stub, "test-model")
	got := s.ScoreFast(context.Background(), "content", model.SectionSkills, model.DefaultTargetSpecAnalysis())
	assert.Equal(t, neutralScore, got)
}

func TestScoreFast_ClampsOutOfRange(t *testing.T) {
	stub := newStubCompleter()
	stub.queue("score", "250")

	s := NewScorer(stub, "test-model")
	got := s.ScoreFast(context.Background(), "content", model.SectionSkills, model.DefaultTargetSpecAnalysis())
	assert.Equal(t, 100, got)
}

func TestEvaluateDetailed_ParsesJSON(t *testing.T) {
	stub := newStubCompleter()
	stub.queue("evaluate", "```json\n"+stubEvaluation+"\n```")

	s := NewScorer(stub, "test-model")
	eval := s.EvaluateDetailed(context.Background(), "content", model.SectionSkills, model.DefaultTargetSpecAnalysis(), model.PerspectiveHiringManager)
	assert.Equal(t, 70, eval.Score)
	assert.Equal(t, []string{"Clear"}, eval.Strengths)
	assert.Equal(t, "Tighten the wording.", eval.Notes)
}

func TestEvaluateDetailed_FallbackOnError(t *testing.T) {
	stub := newStubCompleter()
	stub.failPhase("evaluate", errors.New("api down"))

	s := NewScorer(stub, "test-model")
	eval := s.EvaluateDetailed(context.Background(), "content", model.SectionSkills, model.DefaultTargetSpecAnalysis(), model.PerspectiveHiringManager)
	assert.Equal(t, fallbackEvaluation(), eval)
}

func TestEvaluateDetailed_FallbackOnUnparseable(t *testing.T) {
	stub := newStubCompleter()
	stub.queue("evaluate", "I think this resume is great!")

	s := NewScorer(stub, "test-model")
	eval := s.EvaluateDetailed(context.Background(), "content", model.SectionSkills, model.DefaultTargetSpecAnalysis(), model.PerspectiveHiringManager)
	assert.Equal(t, fallbackEvaluation(), eval)
}

func TestCleanJSON(t *testing.T) {
	raw := "Here is the result:\n```json\n{\"quality_score\": 80}\n```\nHope that helps."
	assert.Equal(t, `{"quality_score": 80}`, cleanJSON(raw))
}

func TestCleanJSON_PlainObject(t *testing.T) {
	assert.Equal(t, `{"a":1}`, cleanJSON(`{"a":1}`))
}

func TestClampScore(t *testing.T) {
	assert.Equal(t, 1, clampScore(-5))
	assert.Equal(t, 1, clampScore(0))
	assert.Equal(t, 55, clampScore(55))
	assert.Equal(t, 100, clampScore(140))
}
