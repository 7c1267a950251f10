package engine

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/resumewise/refine-cli/internal/model"
)

// Perspective framings are templates with {{token}} placeholders filled from
// the target-spec analysis at prompt-build time. Overrides loaded from YAML
// use the same placeholder vocabulary, so a custom perspective can reference
// the derived job context without code changes.
var defaultFramings = map[model.PerspectiveKind]string{
	model.PerspectiveHiringManager: `You are a senior hiring manager at a {{company_size}} {{industry}} company with 10+ years of experience hiring {{experience_level}}-level professionals.

HIRING MANAGER PERSPECTIVE:
- Focus on BUSINESS IMPACT and measurable results
- Look for evidence of problem-solving and leadership
- Prioritize relevant experience and skill progression
- Emphasize achievements that solve business problems

HIRING PRIORITIES for this role:
- Must demonstrate: {{priorities}}
- Technical requirements: {{technologies}}
- Experience level: {{experience_level}}

Transform this {{section}} section to make me want to immediately schedule an interview:`,

	model.PerspectiveTechnicalLead: `You are a technical lead with deep expertise in {{industry}} technology stacks, evaluating candidates for technical excellence.

TECHNICAL LEAD PERSPECTIVE:
- Focus on TECHNICAL DEPTH and implementation details
- Look for evidence of system design and architecture skills
- Prioritize relevant technologies and frameworks
- Show technical problem-solving with specific methodologies

TECHNICAL REQUIREMENTS:
- Core technologies: {{technologies}}
- Required skills: {{hard_skills}}
- Experience level: {{experience_level}}

Enhance this {{section}} section to demonstrate exceptional technical competency:`,

	model.PerspectiveRecruiter: `You are an experienced technical recruiter who knows what makes candidates stand out in a competitive market.

RECRUITER PERSPECTIVE:
- Focus on MARKETABILITY and competitive positioning
- Ensure content passes automated screening with the right keywords
- Optimize for searchability and maximum readability
- Balance technical skills with communication abilities

MARKET POSITIONING:
- Target role: {{experience_level}} {{role_type}}
- Industry: {{industry}}
- Key differentiators needed: {{priorities}}

Optimize this {{section}} section for maximum market appeal:`,

	model.PerspectiveATSOptimizer: `You are an ATS (Applicant Tracking System) optimization expert focused on ensuring resumes pass automated screening.

ATS OPTIMIZATION PERSPECTIVE:
- Focus on KEYWORD DENSITY and semantic matching
- Use industry-standard section headers and formatting
- Include exact terminology from the job description
- Balance keyword optimization with readability

ATS OPTIMIZATION TARGETS:
- Primary keywords: {{keywords}}
- Required technologies: {{technologies}}
- Industry terms: {{industry}} terminology

Optimize this {{section}} section for maximum ATS scoring and automated ranking:`,

	model.PerspectiveIndustryExpert: `You are a recognized expert in the {{industry}} industry with deep knowledge of current trends, best practices, and market demands.

INDUSTRY EXPERT PERSPECTIVE:
- Focus on INDUSTRY RELEVANCE and current best practices
- Use proper industry terminology and standards
- Demonstrate understanding of industry challenges
- Position the candidate as an industry-aware professional

INDUSTRY CONTEXT:
- Industry: {{industry}}
- Market demands: {{priorities}}
- Required expertise: {{hard_skills}}

Enhance this {{section}} section with deep industry expertise and market awareness:`,

	model.PerspectiveCareerCoach: `You are a career coach specializing in advancement for {{experience_level}}-level professionals in {{industry}}.

CAREER COACH PERSPECTIVE:
- Focus on CAREER PROGRESSION and professional growth
- Emphasize leadership potential and strategic thinking
- Show increasing responsibility and impact over time
- Demonstrate communication and collaboration abilities

CAREER DEVELOPMENT FOCUS:
- Current level: {{experience_level}}
- Target growth: towards {{role_type}} excellence
- Leadership indicators: {{soft_skills}}

Elevate this {{section}} section to showcase leadership potential and career trajectory:`,
}

const baseRules = `CRITICAL RESUME RULES:
- NEVER FABRICATE: only use information that exists in the original content
- NEVER ADD SKILLS: do not mention technologies not in the original
- NEVER INVENT ACHIEVEMENTS: do not create metrics that were not provided
- NEVER HALLUCINATE EXPERIENCES: do not add roles, projects, or accomplishments`

const conservativeRules = `CONSERVATIVE ENHANCEMENT APPROACH:
1. AUDIT CHECK: before suggesting any addition, verify it exists in the original content
2. If considering adding something not in the original, STOP and leave it out
3. Focus on improving presentation of existing information
4. Use stronger action verbs and professional language
5. Reorganize content for better flow and readability
6. Only add context that can be reasonably inferred from existing content`

var sectionRules = map[model.SectionKind]string{
	model.SectionSkills: `SKILLS SECTION RULES:
- PRESERVE the original structure exactly: if the original uses categories
  ("Languages: Python, Go"), the output must keep the same categories
- NEVER convert structured skill lists into paragraphs or sentences
- FORBIDDEN phrases: "Proficient in", "Skilled in", "Experienced in"
- Keep comma-separated lists within categories; keep original category names
- Only reorganize existing skills, never add new ones
- Fix minor formatting inconsistencies (spacing, capitalization) only`,

	model.SectionEducation: `EDUCATION SECTION RULES:
- Institution name, degree, dates, GPA if provided, honors if mentioned
- Relevant coursework stays listed AS COURSEWORK, never as projects
- NEVER convert a course name into a project description
- NEVER add achievements or experience bullets under education
- Maintain academic tone and clean educational formatting`,

	model.SectionExperience: `EXPERIENCE SECTION RULES:
- Company, role, dates, then bullet points of accomplishments
- Only enhance existing bullet points, never add new ones
- Do not invent technologies or responsibilities not mentioned
- Use action verbs; quantify achievements only when the data already exists`,

	model.SectionProjects: `PROJECTS SECTION RULES:
- Only work with projects explicitly mentioned in the original
- Do not add projects even if they match the job requirements
- Format: project name, brief description, technologies used
- Focus on impact and outcomes when mentioned in the original`,
}

// joinLimit joins at most n items; empty input renders as "general".
func joinLimit(items []string, n int) string {
	if len(items) == 0 {
		return "general"
	}
	if len(items) > n {
		items = items[:n]
	}
	return strings.Join(items, ", ")
}

func expandPlaceholders(text string, kind model.SectionKind, spec model.TargetSpecAnalysis) string {
	r := strings.NewReplacer(
		"{{section}}", string(kind),
		"{{industry}}", spec.Industry,
		"{{company_size}}", spec.CompanySize,
		"{{experience_level}}", spec.ExperienceLevel,
		"{{role_type}}", spec.RoleType,
		"{{priorities}}", joinLimit(spec.Priorities, 6),
		"{{technologies}}", joinLimit(spec.KeyTechnologies, 10),
		"{{hard_skills}}", joinLimit(spec.HardSkills, 8),
		"{{soft_skills}}", joinLimit(spec.SoftSkills, 6),
		"{{keywords}}", joinLimit(spec.Keywords, 15),
	)
	return r.Replace(text)
}

// PromptLibrary resolves the system prompt for a generation call. The zero
// set of overrides gives the built-in six perspectives.
type PromptLibrary struct {
	framings map[model.PerspectiveKind]string
}

// DefaultPrompts returns a library with the built-in perspective framings.
func DefaultPrompts() *PromptLibrary {
	framings := make(map[model.PerspectiveKind]string, len(defaultFramings))
	for k, v := range defaultFramings {
		framings[k] = v
	}
	return &PromptLibrary{framings: framings}
}

type perspectiveFile struct {
	Perspectives map[string]string `yaml:"perspectives"`
}

// LoadPrompts reads perspective framing overrides from a YAML file and merges
// them over the defaults. Unknown perspective names are an error.
func LoadPrompts(path string) (*PromptLibrary, error) {
	lib := DefaultPrompts()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "engine: read perspectives file")
	}
	var pf perspectiveFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, eris.Wrap(err, "engine: parse perspectives file")
	}

	for name, framing := range pf.Perspectives {
		kind := model.PerspectiveKind(name)
		if _, ok := lib.framings[kind]; !ok {
			return nil, eris.Errorf("engine: unknown perspective %q in %s", name, path)
		}
		if strings.TrimSpace(framing) == "" {
			return nil, eris.Errorf("engine: empty framing for perspective %q in %s", name, path)
		}
		lib.framings[kind] = framing
	}
	return lib, nil
}

// SystemPrompt assembles the full system prompt for one generation call:
// perspective framing, iteration context, and the layered content rules.
func (l *PromptLibrary) SystemPrompt(kind model.SectionKind, spec model.TargetSpecAnalysis, perspective model.PerspectiveKind, iteration int) string {
	framing := expandPlaceholders(l.framings[perspective], kind, spec)

	var b strings.Builder
	b.WriteString(framing)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "ITERATION CONTEXT: This is iteration %d. Build upon any previous improvements while addressing remaining weaknesses.\n\n", iteration)
	b.WriteString(baseRules)
	b.WriteString("\n\n")
	if rules, ok := sectionRules[kind]; ok {
		b.WriteString(rules)
		b.WriteString("\n\n")
	}
	b.WriteString(conservativeRules)
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "OUTPUT: Return ONLY the improved %s content. No explanations or descriptions.", kind)
	return b.String()
}
