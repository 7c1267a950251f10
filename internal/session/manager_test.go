package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resumewise/refine-cli/internal/engine"
	"github.com/resumewise/refine-cli/internal/model"
	"github.com/resumewise/refine-cli/pkg/anthropic"
)

// scriptedCompleter answers per phase; section-blocking behavior is driven by
// the gap-analysis script.
type scriptedCompleter struct {
	mu        sync.Mutex
	responses map[string][]string
	calls     map[string]int
}

func newScriptedCompleter() *scriptedCompleter {
	return &scriptedCompleter{
		responses: make(map[string][]string),
		calls:     make(map[string]int),
	}
}

func (s *scriptedCompleter) queue(phase string, responses ...string) {
	s.responses[phase] = append(s.responses[phase], responses...)
}

func (s *scriptedCompleter) Complete(_ context.Context, req anthropic.CompletionRequest) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[req.Phase]++
	queue := s.responses[req.Phase]
	if len(queue) == 0 {
		return "", fmt.Errorf("no scripted response for phase %q", req.Phase)
	}
	resp := queue[0]
	if len(queue) > 1 {
		s.responses[req.Phase] = queue[1:]
	}
	return resp, nil
}

const cleanGap = `{"fabrication_risks": [], "safe_enhancements": [], "needs_user_input": []}`

const blockedGap = `{"fabrication_risks": [{"item": "metrics", "risk_level": "high", "reason": "no metrics stated", "clarification_question": "What metrics can you share?"}], "safe_enhancements": [], "needs_user_input": []}`

const passEval = `{"quality_score": 92, "strengths": ["Strong"], "weaknesses": [], "improvement_notes": "Looks good."}`

const testResume = `Jane Smith
jane.smith@example.com

TECHNICAL SKILLS
- Languages: Python, Go
- Tools: Docker, Git

EDUCATION
B.S. Computer Science, State University, 2018

WORK EXPERIENCE
- Maintained internal reporting tools
- Supported the data platform migration

PROJECTS
Expense Tracker: budgeting app built with Go
`

// echoer answers generate calls with the prompt's original content so guard
// verification always passes.
func newManagerWithScript(t *testing.T, script func(*scriptedCompleter)) (*Manager, *scriptedCompleter) {
	t.Helper()
	stub := newScriptedCompleter()
	script(stub)

	gen := engine.NewGenerator(stub, "test-model", nil)
	scorer := engine.NewScorer(stub, "test-model")
	gaps := engine.NewGapAnalyzer(stub, "test-model")
	analyzer := engine.NewTargetAnalyzer(stub, "test-model")
	loop := engine.NewLoop(gen, scorer, gaps, nil)

	store := NewStore(0)
	t.Cleanup(store.Close)
	return NewManager(store, loop, analyzer), stub
}

// allCleanScript lets every section converge on its first iteration with its
// original content.
func allCleanScript(stub *scriptedCompleter) {
	stub.queue("analyze-target", `{"industry": "technology"}`)
	stub.queue("gap-analysis", cleanGap)
	stub.queue("score", "95")
	stub.queue("evaluate", passEval)
	// Echo sections back unchanged, in analysis order.
	stub.queue("generate",
		"- Languages: Python, Go\n- Tools: Docker, Git",
		"B.S. Computer Science, State University, 2018",
		"- Maintained internal reporting tools\n- Supported the data platform migration",
		"Expense Tracker: budgeting app built with Go",
	)
}

func TestStartAnalysis_AnalyzesSectionsInOrder(t *testing.T) {
	mgr, stub := newManagerWithScript(t, allCleanScript)

	sess, err := mgr.StartAnalysis(context.Background(), testResume, "Backend Engineer role")
	require.NoError(t, err)

	assert.Len(t, sess.Results, 4)
	for _, kind := range model.AnalysisOrder {
		require.Contains(t, sess.Results, kind)
		assert.False(t, sess.Results[kind].NeedsClarification)
		assert.Equal(t, 95, sess.Results[kind].FinalScore)
	}

	// One target analysis per session, one generation per section.
	assert.Equal(t, 1, stub.calls["analyze-target"])
	assert.Equal(t, 4, stub.calls["generate"])
	assert.Empty(t, sess.PendingClarifications())
}

func TestStartAnalysis_EmptyResume(t *testing.T) {
	mgr, _ := newManagerWithScript(t, allCleanScript)
	_, err := mgr.StartAnalysis(context.Background(), "   \n ", "job")
	require.Error(t, err)
}

// blockedFirstScript blocks the skills section on clarification and lets the
// rest pass.
func blockedFirstScript(stub *scriptedCompleter) {
	stub.queue("analyze-target", `{"industry": "technology"}`)
	// Skills blocks; education, experience, projects run clean.
	stub.queue("gap-analysis", blockedGap, cleanGap, cleanGap, cleanGap)
	stub.queue("score", "95")
	stub.queue("evaluate", passEval)
	stub.queue("generate",
		"B.S. Computer Science, State University, 2018",
		"- Maintained internal reporting tools\n- Supported the data platform migration",
		"Expense Tracker: budgeting app built with Go",
	)
}

func TestStartAnalysis_BlockedSectionDoesNotStopRun(t *testing.T) {
	mgr, _ := newManagerWithScript(t, blockedFirstScript)

	sess, err := mgr.StartAnalysis(context.Background(), testResume, "job")
	require.NoError(t, err)

	require.Contains(t, sess.Results, model.SectionSkills)
	assert.True(t, sess.Results[model.SectionSkills].NeedsClarification)
	assert.False(t, sess.Results[model.SectionExperience].NeedsClarification)

	pending := sess.PendingClarifications()
	require.Len(t, pending, 1)
	assert.Equal(t, "What metrics can you share?", pending[0].Question)
}

// doubleBlockedScript blocks skills and experience; education and projects
// run clean.
func doubleBlockedScript(stub *scriptedCompleter) {
	stub.queue("analyze-target", `{"industry": "technology"}`)
	stub.queue("gap-analysis", blockedGap, cleanGap, blockedGap, cleanGap)
	stub.queue("score", "95")
	stub.queue("evaluate", passEval)
	stub.queue("generate",
		"B.S. Computer Science, State University, 2018",
		"Expense Tracker: budgeting app built with Go",
	)
}

func TestStartAnalysis_BatchesClarificationsAcrossSections(t *testing.T) {
	mgr, _ := newManagerWithScript(t, doubleBlockedScript)

	sess, err := mgr.StartAnalysis(context.Background(), testResume, "job")
	require.NoError(t, err)

	assert.True(t, sess.Results[model.SectionSkills].NeedsClarification)
	assert.True(t, sess.Results[model.SectionExperience].NeedsClarification)

	// Later sections are still analyzed despite two earlier blocks.
	assert.False(t, sess.Results[model.SectionEducation].NeedsClarification)
	assert.False(t, sess.Results[model.SectionProjects].NeedsClarification)
	assert.Equal(t, 95, sess.Results[model.SectionEducation].FinalScore)
	assert.Equal(t, 95, sess.Results[model.SectionProjects].FinalScore)

	// Both questions surface in one batch, in analysis order.
	pending := sess.PendingClarifications()
	require.Len(t, pending, 2)
	assert.Equal(t, model.SectionSkills, pending[0].Section)
	assert.Equal(t, model.SectionExperience, pending[1].Section)
}

func TestProvideClarification_ResolvesOneWay(t *testing.T) {
	mgr, stub := newManagerWithScript(t, blockedFirstScript)

	sess, err := mgr.StartAnalysis(context.Background(), testResume, "job")
	require.NoError(t, err)

	improved := "- Languages: Python, Go\n- Tools: Docker, Git, Jenkins"
	stub.mu.Lock()
	stub.responses["generate"] = []string{improved}
	stub.mu.Unlock()

	section, err := mgr.ProvideClarification(context.Background(), sess.ID, model.SectionSkills, "I also use Jenkins for CI")
	require.NoError(t, err)

	assert.False(t, section.NeedsClarification)
	assert.Nil(t, section.Clarification)
	assert.Equal(t, improved, section.BestContent)

	// Resolution is one-way: a second answer has nothing to resolve.
	_, err = mgr.ProvideClarification(context.Background(), sess.ID, model.SectionSkills, "more details")
	assert.ErrorIs(t, err, ErrNoPendingClarification)
}

func TestProvideClarification_UnknownSession(t *testing.T) {
	mgr, _ := newManagerWithScript(t, allCleanScript)
	_, err := mgr.ProvideClarification(context.Background(), "nope", model.SectionSkills, "answer")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestProvideClarification_UnknownSection(t *testing.T) {
	mgr, _ := newManagerWithScript(t, allCleanScript)
	sess, err := mgr.StartAnalysis(context.Background(), testResume, "job")
	require.NoError(t, err)

	_, err = mgr.ProvideClarification(context.Background(), sess.ID, model.SectionCertifications, "answer")
	assert.ErrorIs(t, err, ErrSectionNotFound)
}

func TestAcceptChanges_ClearsBlock(t *testing.T) {
	mgr, _ := newManagerWithScript(t, blockedFirstScript)
	sess, err := mgr.StartAnalysis(context.Background(), testResume, "job")
	require.NoError(t, err)

	require.NoError(t, mgr.AcceptChanges(sess.ID, model.SectionSkills, true))
	assert.False(t, sess.Results[model.SectionSkills].NeedsClarification)
	assert.Empty(t, sess.PendingClarifications())
}

func TestAcceptChanges_UnknownSession(t *testing.T) {
	mgr, _ := newManagerWithScript(t, allCleanScript)
	assert.ErrorIs(t, mgr.AcceptChanges("nope", model.SectionSkills, true), ErrSessionNotFound)
}

func TestGenerateFinal_RejectedSectionIsByteForByteOriginal(t *testing.T) {
	mgr, _ := newManagerWithScript(t, allCleanScript)
	sess, err := mgr.StartAnalysis(context.Background(), testResume, "job")
	require.NoError(t, err)

	original := sess.Results[model.SectionExperience].OriginalContent
	require.NoError(t, mgr.AcceptChanges(sess.ID, model.SectionExperience, false))

	final, err := mgr.GenerateFinal(sess.ID)
	require.NoError(t, err)
	assert.Contains(t, final, "=== EXPERIENCE ===\n"+original)
}

func TestGenerateFinal_BlockedUndecidedUsesOriginal(t *testing.T) {
	mgr, _ := newManagerWithScript(t, blockedFirstScript)
	sess, err := mgr.StartAnalysis(context.Background(), testResume, "job")
	require.NoError(t, err)

	original := sess.Results[model.SectionSkills].OriginalContent

	final, err := mgr.GenerateFinal(sess.ID)
	require.NoError(t, err)
	assert.Contains(t, final, "=== SKILLS ===\n"+original)
}

func TestGenerateFinal_IncludesUnanalyzedSections(t *testing.T) {
	mgr, _ := newManagerWithScript(t, allCleanScript)
	sess, err := mgr.StartAnalysis(context.Background(), testResume, "job")
	require.NoError(t, err)

	final, err := mgr.GenerateFinal(sess.ID)
	require.NoError(t, err)

	// Contact info is carried through untouched.
	assert.Contains(t, final, "=== CONTACT INFO ===")
	assert.Contains(t, final, "jane.smith@example.com")

	// Section order follows document order, not analysis order.
	skillsAt := strings.Index(final, "=== SKILLS ===")
	eduAt := strings.Index(final, "=== EDUCATION ===")
	expAt := strings.Index(final, "=== EXPERIENCE ===")
	require.True(t, skillsAt >= 0 && eduAt >= 0 && expAt >= 0)
	assert.Less(t, skillsAt, eduAt)
	assert.Less(t, eduAt, expAt)
}

func TestGenerateFinal_UnknownSession(t *testing.T) {
	mgr, _ := newManagerWithScript(t, allCleanScript)
	_, err := mgr.GenerateFinal("nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestStatus(t *testing.T) {
	mgr, _ := newManagerWithScript(t, blockedFirstScript)
	sess, err := mgr.StartAnalysis(context.Background(), testResume, "job")
	require.NoError(t, err)

	st, err := mgr.Status(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "awaiting_clarification", st.Phase)
	assert.Equal(t, 4, st.SectionsAnalyzed)
	assert.Equal(t, 1, st.PendingClarifications)

	require.NoError(t, mgr.AcceptChanges(sess.ID, model.SectionSkills, true))
	st, err = mgr.Status(sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "completed", st.Phase)
}

func TestStatus_UnknownSession(t *testing.T) {
	mgr, _ := newManagerWithScript(t, allCleanScript)
	_, err := mgr.Status("nope")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
