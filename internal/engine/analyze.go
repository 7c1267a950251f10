package engine

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/resumewise/refine-cli/internal/model"
	"github.com/resumewise/refine-cli/pkg/anthropic"
)

const targetSpecSystem = `You are an expert talent acquisition specialist performing comprehensive job analysis.

Return ONLY a valid JSON object with these exact keys:
{
  "keywords": array of strings (15-25 important keywords),
  "requirements": array of strings (8-15 key requirements),
  "experience_level": string (entry/junior/mid/senior/lead/principal),
  "key_technologies": array of strings (10-20 technical skills),
  "priorities": array of strings (top 8-12 critical qualifications),
  "soft_skills": array of strings (5-10 soft skills),
  "hard_skills": array of strings (8-15 technical abilities),
  "industry": string (primary industry),
  "company_size": string (startup/small/medium/large/enterprise),
  "role_type": string (individual_contributor/team_lead/manager/director)
}`

// TargetAnalyzer derives the structured TargetSpecAnalysis from the raw
// target description, once per session.
type TargetAnalyzer struct {
	client anthropic.Completer
	model  string
}

// NewTargetAnalyzer creates a TargetAnalyzer using the given model.
func NewTargetAnalyzer(client anthropic.Completer, modelName string) *TargetAnalyzer {
	return &TargetAnalyzer{client: client, model: modelName}
}

// Analyze extracts structured requirements from a job description. Falls
// back to neutral defaults on any failure so refinement can still proceed.
func (a *TargetAnalyzer) Analyze(ctx context.Context, targetSpec string) model.TargetSpecAnalysis {
	out, err := a.client.Complete(ctx, anthropic.CompletionRequest{
		Model:       a.model,
		System:      targetSpecSystem,
		Prompt:      fmt.Sprintf("Analyze this job description comprehensively:\n\n%s", targetSpec),
		Temperature: 0,
		MaxTokens:   1500,
		Phase:       "analyze-target",
	})
	if err != nil {
		zap.L().Warn("engine: target analysis failed, using defaults", zap.Error(err))
		return model.DefaultTargetSpecAnalysis()
	}

	spec := model.DefaultTargetSpecAnalysis()
	if err := json.Unmarshal([]byte(cleanJSON(out)), &spec); err != nil {
		zap.L().Warn("engine: unparseable target analysis, using defaults", zap.Error(err))
		return model.DefaultTargetSpecAnalysis()
	}
	if spec.ExperienceLevel == "" {
		spec.ExperienceLevel = "mid"
	}
	if spec.Industry == "" {
		spec.Industry = "technology"
	}
	if spec.CompanySize == "" {
		spec.CompanySize = "medium"
	}
	if spec.RoleType == "" {
		spec.RoleType = "individual_contributor"
	}
	return spec
}
