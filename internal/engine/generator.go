package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/resumewise/refine-cli/internal/model"
	"github.com/resumewise/refine-cli/pkg/anthropic"
)

const (
	generateTemperature = 0.4
	generateMaxTokens   = 2000
	refineTemperature   = 0.3
)

const refineSystem = `You are a perfectionist resume editor focused on addressing specific weaknesses.

REFINEMENT MISSION: Address these specific weaknesses while preserving all strengths:
%s

REFINEMENT STRATEGY:
1. TARGET SPECIFIC ISSUES: address each weakness directly
2. PRESERVE STRENGTHS: keep what is working well
3. NEVER FABRICATE: improve only what already exists in the content

TARGET CONTEXT:
- Role: %s %s
- Industry: %s
- Required focus: %s

OUTPUT: Return ONLY the refined %s content.`

// Generator produces candidate rewrites of a section from a fixed
// professional perspective. A single Generate call maps to exactly one
// completion request; transient retry and pacing live inside the client.
type Generator struct {
	client  anthropic.Completer
	model   string
	prompts *PromptLibrary
}

// NewGenerator creates a Generator using the given model and prompt library.
func NewGenerator(client anthropic.Completer, modelName string, prompts *PromptLibrary) *Generator {
	if prompts == nil {
		prompts = DefaultPrompts()
	}
	return &Generator{client: client, model: modelName, prompts: prompts}
}

// Generate rewrites content from the given perspective. The iteration number
// is included in the prompt so later passes build on earlier ones.
func (g *Generator) Generate(ctx context.Context, content string, kind model.SectionKind, spec model.TargetSpecAnalysis, perspective model.PerspectiveKind, iteration int) (string, error) {
	out, err := g.client.Complete(ctx, anthropic.CompletionRequest{
		Model:       g.model,
		System:      g.prompts.SystemPrompt(kind, spec, perspective, iteration),
		Prompt:      fmt.Sprintf("Iteration %d - %s perspective enhancement:\n\n%s", iteration, perspective, content),
		Temperature: generateTemperature,
		MaxTokens:   generateMaxTokens,
		CacheSystem: true,
		Phase:       "generate",
	})
	if err != nil {
		return "", eris.Wrapf(err, "engine: generate %s iteration %d", kind, iteration)
	}
	return strings.TrimSpace(out), nil
}

// Refine rewrites content to address the listed weaknesses. At most three
// weaknesses are fed into the prompt to keep it focused.
func (g *Generator) Refine(ctx context.Context, content string, weaknesses []string, kind model.SectionKind, spec model.TargetSpecAnalysis) (string, error) {
	if len(weaknesses) > 3 {
		weaknesses = weaknesses[:3]
	}
	focus := strings.Join(weaknesses, "; ")

	system := fmt.Sprintf(refineSystem,
		focus,
		spec.ExperienceLevel, spec.RoleType,
		spec.Industry,
		joinLimit(spec.Priorities, 5),
		kind,
	)

	out, err := g.client.Complete(ctx, anthropic.CompletionRequest{
		Model:       g.model,
		System:      system,
		Prompt:      fmt.Sprintf("Refine this content to address weaknesses: %s\n\n%s", focus, content),
		Temperature: refineTemperature,
		MaxTokens:   generateMaxTokens,
		Phase:       "refine",
	})
	if err != nil {
		return "", eris.Wrapf(err, "engine: refine %s", kind)
	}
	return strings.TrimSpace(out), nil
}
