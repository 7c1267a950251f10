package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/resumewise/refine-cli/internal/diff"
	"github.com/resumewise/refine-cli/internal/guard"
	"github.com/resumewise/refine-cli/internal/model"
	"github.com/resumewise/refine-cli/internal/trace"
)

const (
	// DefaultMaxIterations is the refinement budget per section.
	DefaultMaxIterations = 5
	// DefaultQualityThreshold is the score at which a section converges.
	DefaultQualityThreshold = 90
	// blockedScore is assigned to sections waiting on clarification.
	blockedScore = 60
	// formatPassFloor: below this final score, a format-only pass is
	// preferred over the iterated candidate when it yields real change.
	formatPassFloor = 80
)

// Loop drives a section through generate-verify-score cycles until it
// converges, exhausts its budget, or blocks on a clarification.
type Loop struct {
	generator *Generator
	scorer    *Scorer
	gaps      *GapAnalyzer
	recorder  trace.Recorder

	maxIterations    int
	qualityThreshold int
}

// LoopOption configures a Loop.
type LoopOption func(*Loop)

// WithBudget overrides the iteration budget.
func WithBudget(n int) LoopOption {
	return func(l *Loop) { l.maxIterations = n }
}

// WithThreshold overrides the convergence score.
func WithThreshold(score int) LoopOption {
	return func(l *Loop) { l.qualityThreshold = score }
}

// NewLoop wires a refinement loop. A nil recorder disables tracing.
func NewLoop(gen *Generator, scorer *Scorer, gaps *GapAnalyzer, rec trace.Recorder, opts ...LoopOption) *Loop {
	l := &Loop{
		generator:        gen,
		scorer:           scorer,
		gaps:             gaps,
		recorder:         rec,
		maxIterations:    DefaultMaxIterations,
		qualityThreshold: DefaultQualityThreshold,
	}
	if l.recorder == nil {
		l.recorder = trace.Noop{}
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// RefineSection runs the full lifecycle for one section: gap analysis first,
// then iterative improvement. A section whose gap analysis demands human
// input comes back blocked with format-only content and a clarification.
func (l *Loop) RefineSection(ctx context.Context, sessionID, content string, kind model.SectionKind, spec model.TargetSpecAnalysis, targetSpecText string) model.Section {
	report := l.gaps.Analyze(ctx, kind, content, targetSpecText)
	if report.NeedsClarification() {
		return l.blockSection(ctx, sessionID, content, kind, report)
	}
	return l.iterate(ctx, sessionID, content, content, kind, spec)
}

// RefineWithAnswer re-runs refinement after the human answered a
// clarification. Gap analysis is skipped: the answer resolves it. The
// answer text extends the fabrication baseline, so human-supplied facts are
// allowed vocabulary, while OriginalContent stays the untouched original.
func (l *Loop) RefineWithAnswer(ctx context.Context, sessionID, original, answer string, kind model.SectionKind, spec model.TargetSpecAnalysis) model.Section {
	baseline := original + "\n\nAdditional details provided by the candidate:\n" + strings.TrimSpace(answer)
	section := l.iterate(ctx, sessionID, original, baseline, kind, spec)
	return section
}

func (l *Loop) blockSection(ctx context.Context, sessionID, content string, kind model.SectionKind, report GapReport) model.Section {
	safe, err := l.generator.CleanupFormat(ctx, content, kind)
	if err != nil || strings.TrimSpace(safe) == "" {
		safe = content
	}
	// The safe rendition must itself pass verification or it is discarded.
	if v := guard.Verify(content, safe, kind); !v.IsValid {
		safe = content
	}

	clar := report.BuildRequest(kind, content)

	l.record(kind, trace.DecisionEvent{
		SessionID: sessionID,
		Section:   string(kind),
		Context:   fmt.Sprintf("gap analysis found %d risks, %d open questions", len(report.Risks), len(report.NeedsInput)),
		Outcome:   "blocked",
		Reasoning: clar.Question,
	})

	return model.Section{
		Kind:               kind,
		OriginalContent:    content,
		BestContent:        safe,
		FinalScore:         blockedScore,
		Narrative:          "Additional information is needed before this section can be improved. Formatting has been cleaned up in the meantime.",
		NeedsClarification: true,
		Clarification:      clar,
	}
}

// iterate is the generate-verify-score cycle. original is what the section
// reports as its untouched content; baseline is what candidates are verified
// against (identical to original except after a clarification answer).
func (l *Loop) iterate(ctx context.Context, sessionID, original, baseline string, kind model.SectionKind, spec model.TargetSpecAnalysis) model.Section {
	current := baseline
	// Until an iteration produces a candidate, the only safe output is the
	// untouched original; the merged clarification baseline is prompt
	// scaffolding, not user-facing content.
	best := original
	bestScore := 0
	var iterations []model.IterationRecord

	for i := 0; i < l.maxIterations; i++ {
		if ctx.Err() != nil {
			zap.L().Warn("engine: refinement cancelled",
				zap.String("section", string(kind)),
				zap.Int("iteration", i+1),
			)
			break
		}

		perspective := model.PerspectiveRotation[i%len(model.PerspectiveRotation)]
		version := i + 1

		candidate, err := l.generator.Generate(ctx, current, kind, spec, perspective, version)
		if err != nil {
			zap.L().Error("engine: generation failed, aborting section",
				zap.String("section", string(kind)),
				zap.Int("iteration", version),
				zap.Error(err),
			)
			break
		}

		verification := guard.Verify(baseline, candidate, kind)
		if !verification.IsValid {
			for _, issue := range verification.Issues {
				zap.L().Warn("engine: candidate flagged",
					zap.String("section", string(kind)),
					zap.Int("iteration", version),
					zap.String("severity", string(issue.Severity)),
					zap.String("issue", issue.Description),
				)
			}
			if verification.Recommendation == guard.RecommendReject {
				// Fall back to a format-preserving cleanup of the baseline.
				cleaned, cleanErr := l.generator.CleanupFormat(ctx, baseline, kind)
				if cleanErr != nil {
					cleaned = baseline
				}
				if rv := guard.Verify(baseline, cleaned, kind); rv.IsValid {
					candidate = cleaned
				} else {
					candidate = baseline
				}
			}
		}

		score := l.scorer.ScoreFast(ctx, candidate, kind, spec)
		if penalty := verification.Penalty(); penalty > 0 {
			score -= penalty
			if score < 1 {
				score = 1
			}
			zap.L().Info("engine: applied verification penalty",
				zap.String("section", string(kind)),
				zap.Int("penalty", penalty),
				zap.Int("score", score),
			)
		}

		eval := l.scorer.EvaluateDetailed(ctx, candidate, kind, spec, perspective)
		weaknesses := eval.Weaknesses
		for _, issue := range verification.Issues {
			weaknesses = append(weaknesses, "Verification: "+issue.Description)
		}

		iterations = append(iterations, model.IterationRecord{
			Version:     version,
			Content:     candidate,
			Perspective: perspective,
			Score:       score,
			Strengths:   eval.Strengths,
			Weaknesses:  weaknesses,
			Notes:       eval.Notes,
			Timestamp:   time.Now().UTC(),
		})

		l.record(kind, trace.DecisionEvent{
			SessionID:  sessionID,
			Section:    string(kind),
			Iteration:  version,
			Context:    fmt.Sprintf("perspective %s, %d verification issues", perspective, len(verification.Issues)),
			Outcome:    fmt.Sprintf("score %d", score),
			Reasoning:  eval.Notes,
			Confidence: float64(score) / 100,
		})

		if score > bestScore {
			best = candidate
			bestScore = score
		}

		if score >= l.qualityThreshold {
			zap.L().Info("engine: section converged",
				zap.String("section", string(kind)),
				zap.Int("iterations", version),
				zap.Int("score", score),
			)
			break
		}

		if i < l.maxIterations-1 {
			refined, refineErr := l.generator.Refine(ctx, candidate, eval.Weaknesses, kind, spec)
			if refineErr != nil {
				zap.L().Warn("engine: critique refinement failed, reusing candidate",
					zap.String("section", string(kind)),
					zap.Error(refineErr),
				)
				refined = candidate
			}
			current = refined
		}
	}

	narrative := BuildNarrative(iterations, kind, original)

	// Low-quality or empty runs still deserve baseline formatting fixes.
	if bestScore < formatPassFloor || len(iterations) == 0 {
		if formatted, err := l.generator.CleanupFormat(ctx, original, kind); err == nil {
			if report := diff.Compare(original, formatted); report.HasMeaningfulChange {
				if v := guard.Verify(baseline, formatted, kind); v.IsValid {
					best = formatted
					narrative = strings.Join(report.Descriptions, ". ") + "."
				}
			}
		}
	}

	outcome := "exhausted"
	if bestScore >= l.qualityThreshold {
		outcome = "converged"
	}
	l.record(kind, trace.DecisionEvent{
		SessionID:  sessionID,
		Section:    string(kind),
		Iteration:  len(iterations),
		Context:    fmt.Sprintf("original length %d, %d iterations", len(original), len(iterations)),
		Outcome:    outcome,
		Reasoning:  narrative,
		Confidence: float64(bestScore) / 100,
	})

	return model.Section{
		Kind:            kind,
		OriginalContent: original,
		BestContent:     best,
		Iterations:      iterations,
		FinalScore:      bestScore,
		Narrative:       narrative,
	}
}

// record delivers a trace event without letting recorder failures reach the
// refinement path.
func (l *Loop) record(kind model.SectionKind, ev trace.DecisionEvent) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	if err := l.recorder.RecordDecision(context.Background(), ev); err != nil {
		zap.L().Warn("engine: trace record failed",
			zap.String("section", string(kind)),
			zap.Error(err),
		)
	}
}
