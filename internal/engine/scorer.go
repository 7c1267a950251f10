package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/resumewise/refine-cli/internal/model"
	"github.com/resumewise/refine-cli/pkg/anthropic"
)

// neutralScore is returned whenever fast scoring fails for any reason, so a
// scorer outage degrades quality selection instead of aborting refinement.
const neutralScore = 50

const scoreFastPrompt = `Score this %s section from 1-100 based on:
- Professional formatting and structure (25%%)
- Relevance to job requirements (25%%)
- Clarity and conciseness (25%%)
- ATS compatibility (25%%)

Content:
%s

Job Requirements: %s

Respond with ONLY a number from 1-100.`

const evaluateSystem = `You are an expert resume evaluator conducting a rigorous quality assessment from a %s perspective.

EVALUATION CRITERIA:
1. CONTENT QUALITY (25 points): accuracy, relevance, completeness
2. PRESENTATION (25 points): professional language, structure, formatting
3. IMPACT DEMONSTRATION (25 points): metrics, achievements, results
4. JOB ALIGNMENT (25 points): keyword match, requirement coverage, relevance

TARGET JOB CONTEXT:
- Role: %s %s
- Industry: %s
- Required skills: %s
- Priorities: %s

Return ONLY a JSON object:
{
  "quality_score": integer (0-100),
  "strengths": array of strings (3-5 specific strengths),
  "weaknesses": array of strings (3-5 specific areas for improvement),
  "improvement_notes": string (suggestions for the next iteration)
}`

// Evaluation is the detailed critique of one candidate.
type Evaluation struct {
	Score      int      `json:"quality_score"`
	Strengths  []string `json:"strengths"`
	Weaknesses []string `json:"weaknesses"`
	Notes      string   `json:"improvement_notes"`
}

// fallbackEvaluation is used when the detailed evaluation call fails or
// returns unparseable output.
func fallbackEvaluation() Evaluation {
	return Evaluation{
		Score:      75,
		Strengths:  []string{"Professional presentation", "Relevant content"},
		Weaknesses: []string{"Could use more specific metrics", "Needs stronger action verbs"},
		Notes:      "Focus on quantifying achievements and using more impactful language.",
	}
}

// Scorer grades candidate content. ScoreFast drives accept/retry decisions in
// the refinement loop; EvaluateDetailed supplies the critique fed back into
// the next iteration. Neither method ever returns an error.
type Scorer struct {
	client anthropic.Completer
	model  string
}

// NewScorer creates a Scorer using the given model.
func NewScorer(client anthropic.Completer, modelName string) *Scorer {
	return &Scorer{client: client, model: modelName}
}

var firstNumber = regexp.MustCompile(`\d+`)

// ScoreFast returns a quality score in [1,100]. Any failure (transport,
// malformed output, cancellation) yields the neutral score.
func (s *Scorer) ScoreFast(ctx context.Context, content string, kind model.SectionKind, spec model.TargetSpecAnalysis) int {
	out, err := s.client.Complete(ctx, anthropic.CompletionRequest{
		Model:       s.model,
		Prompt:      fmt.Sprintf(scoreFastPrompt, kind, content, joinLimit(spec.Requirements, 10)),
		Temperature: 0.1,
		MaxTokens:   10,
		Phase:       "score",
	})
	if err != nil {
		zap.L().Warn("engine: fast scoring failed, using neutral score",
			zap.String("section", string(kind)),
			zap.Error(err),
		)
		return neutralScore
	}

	match := firstNumber.FindString(out)
	if match == "" {
		zap.L().Warn("engine: no score in response, using neutral score",
			zap.String("section", string(kind)),
			zap.String("response", out),
		)
		return neutralScore
	}
	score, err := strconv.Atoi(match)
	if err != nil {
		return neutralScore
	}
	return clampScore(score)
}

// EvaluateDetailed returns strengths, weaknesses and improvement notes for a
// candidate. Falls back to a fixed evaluation on any failure.
func (s *Scorer) EvaluateDetailed(ctx context.Context, content string, kind model.SectionKind, spec model.TargetSpecAnalysis, perspective model.PerspectiveKind) Evaluation {
	system := fmt.Sprintf(evaluateSystem,
		perspective,
		spec.ExperienceLevel, spec.RoleType,
		spec.Industry,
		joinLimit(spec.KeyTechnologies, 10),
		joinLimit(spec.Priorities, 8),
	)

	out, err := s.client.Complete(ctx, anthropic.CompletionRequest{
		Model:       s.model,
		System:      system,
		Prompt:      fmt.Sprintf("Evaluate this %s content from %s perspective:\n\n%s", kind, perspective, content),
		Temperature: 0.1,
		MaxTokens:   1024,
		Phase:       "evaluate",
	})
	if err != nil {
		zap.L().Warn("engine: detailed evaluation failed, using fallback",
			zap.String("section", string(kind)),
			zap.Error(err),
		)
		return fallbackEvaluation()
	}

	var eval Evaluation
	if err := json.Unmarshal([]byte(cleanJSON(out)), &eval); err != nil {
		zap.L().Warn("engine: unparseable evaluation, using fallback",
			zap.String("section", string(kind)),
			zap.Error(err),
		)
		return fallbackEvaluation()
	}
	eval.Score = clampScore(eval.Score)
	return eval
}

func clampScore(score int) int {
	if score < 1 {
		return 1
	}
	if score > 100 {
		return 100
	}
	return score
}

// cleanJSON strips markdown code fences and any prose around the outermost
// JSON object so the result can be unmarshaled directly.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}
