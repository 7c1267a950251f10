package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/resumewise/refine-cli/internal/model"
	"github.com/resumewise/refine-cli/pkg/anthropic"
)

const gapAnalysisPrompt = `FABRICATION DETECTION AND CLARIFICATION SYSTEM

You are a conservative resume enhancement system that NEVER fabricates information.
Your job is to identify areas where an improver might be tempted to add content not explicitly present in the original resume.

ORIGINAL %s CONTENT:
%s

JOB DESCRIPTION REQUIREMENTS:
%s

DETECTION RULES:
1. Identify any skills/technologies mentioned in the job description but NOT in the original content
2. Detect any potential projects/experiences that could be added but are not mentioned
3. Find any quantifiable achievements that could be assumed but are not stated
4. Mark items as safe to enhance (clearly in original) vs needing clarification (questionable)

Return ONLY a JSON object:
{
  "fabrication_risks": [
    {
      "item": "specific skill/achievement/detail",
      "risk_level": "high|medium|low",
      "reason": "why this might be fabricated",
      "clarification_question": "specific question to ask the candidate"
    }
  ],
  "safe_enhancements": ["items that can be safely improved from original content"],
  "needs_user_input": [
    {
      "category": "skills|experience|education|projects",
      "question": "specific clarification question",
      "context": "why this clarification is needed"
    }
  ]
}

Focus on being EXTREMELY conservative. When in doubt, ask for clarification rather than assuming.`

// GapRisk is one potential fabrication opportunity found before rewriting.
type GapRisk struct {
	Item                  string `json:"item"`
	RiskLevel             string `json:"risk_level"`
	Reason                string `json:"reason"`
	ClarificationQuestion string `json:"clarification_question"`
}

// GapQuestion is one question the candidate must answer before the engine
// can safely use related job-description material.
type GapQuestion struct {
	Category string `json:"category"`
	Question string `json:"question"`
	Context  string `json:"context"`
}

// GapReport is the outcome of pre-rewrite gap analysis for one section.
type GapReport struct {
	Risks            []GapRisk     `json:"fabrication_risks"`
	SafeEnhancements []string      `json:"safe_enhancements"`
	NeedsInput       []GapQuestion `json:"needs_user_input"`
}

// NeedsClarification reports whether refinement must block on human input:
// any high-risk gap or explicit question does.
func (r GapReport) NeedsClarification() bool {
	if len(r.NeedsInput) > 0 {
		return true
	}
	for _, risk := range r.Risks {
		if risk.RiskLevel == "high" {
			return true
		}
	}
	return false
}

// BuildRequest synthesizes the clarification request surfaced to the human.
func (r GapReport) BuildRequest(kind model.SectionKind, original string) *model.ClarificationRequest {
	req := &model.ClarificationRequest{
		Section:         kind,
		OriginalContent: original,
		Timestamp:       time.Now().UTC(),
	}
	if len(r.NeedsInput) > 0 {
		req.Question = r.NeedsInput[0].Question
		req.Context = r.NeedsInput[0].Context
		req.Reason = "Additional details are needed before this section can be safely improved."
		return req
	}
	for _, risk := range r.Risks {
		if risk.RiskLevel == "high" {
			req.Question = risk.ClarificationQuestion
			req.Context = risk.Reason
			req.Reason = fmt.Sprintf("Mentioning %q without confirmation would risk fabrication.", risk.Item)
			return req
		}
	}
	req.Question = "Please confirm the details to be enhanced in this section."
	req.Reason = "Gap analysis could not establish which additions are safe."
	return req
}

// failSafeGapReport assumes everything needs clarification; used when the
// analysis call itself fails.
func failSafeGapReport() GapReport {
	return GapReport{
		Risks: []GapRisk{{
			Item:                  "unknown",
			RiskLevel:             "high",
			Reason:                "gap analysis failed",
			ClarificationQuestion: "Please verify the content to be enhanced.",
		}},
		NeedsInput: []GapQuestion{{
			Category: "general",
			Question: "Please confirm all details to be enhanced.",
			Context:  "Automated verification was unavailable for this section.",
		}},
	}
}

// GapAnalyzer runs the pre-rewrite fabrication-risk analysis that decides
// whether a section enters the iterating state or blocks on clarification.
type GapAnalyzer struct {
	client anthropic.Completer
	model  string
}

// NewGapAnalyzer creates a GapAnalyzer using the given model.
func NewGapAnalyzer(client anthropic.Completer, modelName string) *GapAnalyzer {
	return &GapAnalyzer{client: client, model: modelName}
}

// Analyze compares the section against the target description and reports
// fabrication risks. Fails safe: an unusable response blocks the section.
func (a *GapAnalyzer) Analyze(ctx context.Context, kind model.SectionKind, original, targetSpec string) GapReport {
	out, err := a.client.Complete(ctx, anthropic.CompletionRequest{
		Model:       a.model,
		System:      fmt.Sprintf(gapAnalysisPrompt, kind, original, targetSpec),
		Prompt:      "Run the fabrication detection analysis and return the JSON object.",
		Temperature: 0.3,
		MaxTokens:   1000,
		Phase:       "gap-analysis",
	})
	if err != nil {
		zap.L().Warn("engine: gap analysis failed, assuming clarification needed",
			zap.String("section", string(kind)),
			zap.Error(err),
		)
		return failSafeGapReport()
	}

	var report GapReport
	if err := json.Unmarshal([]byte(cleanJSON(out)), &report); err != nil {
		zap.L().Warn("engine: unparseable gap analysis, assuming clarification needed",
			zap.String("section", string(kind)),
			zap.Error(err),
		)
		return failSafeGapReport()
	}
	return report
}
