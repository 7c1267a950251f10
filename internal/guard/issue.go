// Package guard is the fabrication guard: it diffs a generated candidate
// against the immutable original section text and flags claims, metrics,
// skills or achievements that the original does not support. It is pure and
// synchronous so the refinement loop can run it on every iteration.
package guard

// Severity ranks how damaging an issue is.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// IssueKind is the closed set of detectable fabrication issues.
type IssueKind string

const (
	IssueFabricatedMetrics         IssueKind = "fabricated_metrics"
	IssueFabricatedAchievement     IssueKind = "fabricated_achievement"
	IssueFabricatedContent         IssueKind = "fabricated_content"
	IssueFabricatedProjects        IssueKind = "fabricated_projects"
	IssueFabricatedResponsibility  IssueKind = "fabricated_responsibility"
	IssueCourseToProjectConversion IssueKind = "course_to_project_conversion"
	IssueStructureViolation        IssueKind = "structure_violation"
	IssueExcessiveContentAddition  IssueKind = "excessive_content_addition"
)

// Issue is one detected problem with a candidate text.
type Issue struct {
	Severity    Severity  `json:"severity"`
	Kind        IssueKind `json:"kind"`
	Description string    `json:"description"`
}

// Recommendation is the guard's verdict on a candidate.
type Recommendation string

const (
	RecommendAccept Recommendation = "accept"
	RecommendReview Recommendation = "review"
	RecommendReject Recommendation = "reject"
)

// Result aggregates all issues found for one candidate.
type Result struct {
	IsValid        bool           `json:"is_valid"`
	Issues         []Issue        `json:"issues,omitempty"`
	Recommendation Recommendation `json:"recommendation"`
}

// Penalty returns the score deduction implied by the issues: critical −10,
// high −5, medium −2 each. The caller floors the adjusted score at 1.
func (r Result) Penalty() int {
	p := 0
	for _, issue := range r.Issues {
		switch issue.Severity {
		case SeverityCritical:
			p += 10
		case SeverityHigh:
			p += 5
		case SeverityMedium:
			p += 2
		}
	}
	return p
}

// HasSeverity reports whether any issue carries the given severity.
func (r Result) HasSeverity(s Severity) bool {
	for _, issue := range r.Issues {
		if issue.Severity == s {
			return true
		}
	}
	return false
}

// finalize computes IsValid and Recommendation from the collected issues.
func finalize(issues []Issue) Result {
	r := Result{Issues: issues, Recommendation: RecommendAccept}
	hasCritical := false
	for _, issue := range issues {
		if issue.Severity == SeverityCritical {
			hasCritical = true
		}
	}
	r.IsValid = !r.hasBlockingIssue()
	switch {
	case hasCritical:
		r.Recommendation = RecommendReject
	case len(issues) > 0:
		r.Recommendation = RecommendReview
	}
	return r
}

func (r Result) hasBlockingIssue() bool {
	for _, issue := range r.Issues {
		if issue.Severity == SeverityCritical || issue.Severity == SeverityHigh {
			return true
		}
	}
	return false
}
