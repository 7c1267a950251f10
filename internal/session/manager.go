package session

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/resumewise/refine-cli/internal/engine"
	"github.com/resumewise/refine-cli/internal/model"
	"github.com/resumewise/refine-cli/internal/segment"
)

// Sentinel errors for unknown identifiers; the HTTP layer maps them to 404.
var (
	ErrSessionNotFound        = eris.New("session: not found")
	ErrSectionNotFound        = eris.New("session: section not found")
	ErrNoPendingClarification = eris.New("session: no pending clarification")
)

// degradedScore marks sections whose analysis failed outright.
const degradedScore = 50

// Manager owns the full session lifecycle: analysis, clarification,
// accept/reject decisions, and final assembly.
type Manager struct {
	store    *Store
	loop     *engine.Loop
	analyzer *engine.TargetAnalyzer
}

// NewManager wires a Manager over the given store, loop, and analyzer.
func NewManager(store *Store, loop *engine.Loop, analyzer *engine.TargetAnalyzer) *Manager {
	return &Manager{store: store, loop: loop, analyzer: analyzer}
}

// Store exposes the underlying session store.
func (m *Manager) Store() *Store { return m.store }

// StartAnalysis segments the resume, derives the target-spec analysis once,
// and refines each section in the fixed priority order. Blocked sections do
// not stop the run; their clarifications are batched for the caller. A
// failing section degrades to its original content instead of failing the
// session.
func (m *Manager) StartAnalysis(ctx context.Context, resumeText, targetSpec string) (*Session, error) {
	if strings.TrimSpace(resumeText) == "" {
		return nil, eris.New("session: empty resume text")
	}

	parsed := segment.Split(resumeText)
	analysis := m.analyzer.Analyze(ctx, targetSpec)
	sess := m.store.Create(resumeText, targetSpec, analysis, parsed)

	zap.L().Info("session: starting analysis",
		zap.String("session_id", sess.ID),
		zap.Int("sections", len(parsed)),
	)

	for _, kind := range model.AnalysisOrder {
		content, ok := parsed[kind]
		if !ok || strings.TrimSpace(content) == "" {
			continue
		}

		section := m.refineSafely(ctx, sess.ID, content, kind, analysis, targetSpec)

		sess.mu.Lock()
		sess.Results[kind] = &section
		sess.UpdatedAt = time.Now().UTC()
		sess.mu.Unlock()

		zap.L().Info("session: section analyzed",
			zap.String("session_id", sess.ID),
			zap.String("section", string(kind)),
			zap.Int("iterations", len(section.Iterations)),
			zap.Int("score", section.FinalScore),
			zap.Bool("blocked", section.NeedsClarification),
		)
	}

	return sess, nil
}

// refineSafely shields the session run from a panicking or failing section.
func (m *Manager) refineSafely(ctx context.Context, sessionID, content string, kind model.SectionKind, analysis model.TargetSpecAnalysis, targetSpec string) (section model.Section) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("session: section analysis panicked",
				zap.String("session_id", sessionID),
				zap.String("section", string(kind)),
				zap.Any("panic", r),
			)
			section = degradedSection(content, kind)
		}
	}()
	return m.loop.RefineSection(ctx, sessionID, content, kind, analysis, targetSpec)
}

func degradedSection(content string, kind model.SectionKind) model.Section {
	return model.Section{
		Kind:            kind,
		OriginalContent: content,
		FinalScore:      degradedScore,
		Narrative:       "Iterative analysis temporarily unavailable.",
	}
}

// ProvideClarification resolves a pending clarification with the human's
// answer and re-runs refinement for that section. Resolution is one-way: the
// resulting section never re-blocks.
func (m *Manager) ProvideClarification(ctx context.Context, id string, kind model.SectionKind, answer string) (*model.Section, error) {
	sess := m.store.Get(id)
	if sess == nil {
		return nil, ErrSessionNotFound
	}

	sess.mu.Lock()
	existing, ok := sess.Results[kind]
	if !ok {
		sess.mu.Unlock()
		return nil, ErrSectionNotFound
	}
	if !existing.NeedsClarification {
		sess.mu.Unlock()
		return nil, ErrNoPendingClarification
	}
	original := existing.OriginalContent
	analysis := sess.Analysis
	sess.mu.Unlock()

	section := m.loop.RefineWithAnswer(ctx, id, original, answer, kind, analysis)
	section.NeedsClarification = false
	section.Clarification = nil

	sess.mu.Lock()
	sess.Results[kind] = &section
	delete(sess.Accepted, kind)
	sess.UpdatedAt = time.Now().UTC()
	sess.mu.Unlock()

	return &section, nil
}

// AcceptChanges records the human's decision for a section. Decisions can be
// changed until final generation. Accepting a blocked section clears its
// block without an answer.
func (m *Manager) AcceptChanges(id string, kind model.SectionKind, accept bool) error {
	sess := m.store.Get(id)
	if sess == nil {
		return ErrSessionNotFound
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	sec, ok := sess.Results[kind]
	if !ok {
		return ErrSectionNotFound
	}

	sess.Accepted[kind] = accept
	if accept && sec.NeedsClarification {
		sec.NeedsClarification = false
		sec.Clarification = nil
	}
	sess.UpdatedAt = time.Now().UTC()

	zap.L().Info("session: decision recorded",
		zap.String("session_id", id),
		zap.String("section", string(kind)),
		zap.Bool("accepted", accept),
	)
	return nil
}

// assemblyOrder is the order sections appear in the final document.
var assemblyOrder = []model.SectionKind{
	model.SectionContactInfo,
	model.SectionSummary,
	model.SectionSkills,
	model.SectionEducation,
	model.SectionExperience,
	model.SectionProjects,
	model.SectionCertifications,
}

// GenerateFinal assembles the final resume. Accepted sections use their best
// content, rejected ones their byte-for-byte original. Undecided sections
// default to the improvement unless they are still blocked, in which case
// only the untouched original is safe to emit.
func (m *Manager) GenerateFinal(id string) (string, error) {
	sess := m.store.Get(id)
	if sess == nil {
		return "", ErrSessionNotFound
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	var parts []string
	for _, kind := range assemblyOrder {
		content := m.finalContent(sess, kind)
		if strings.TrimSpace(content) == "" {
			continue
		}
		title := strings.ToUpper(strings.ReplaceAll(string(kind), "_", " "))
		parts = append(parts, fmt.Sprintf("=== %s ===\n%s", title, content))
	}

	sess.UpdatedAt = time.Now().UTC()
	return strings.Join(parts, "\n\n"), nil
}

// finalContent picks the text for one section of the final document.
func (m *Manager) finalContent(sess *Session, kind model.SectionKind) string {
	sec, analyzed := sess.Results[kind]
	if !analyzed {
		return sess.Parsed[kind]
	}

	accept, decided := sess.Accepted[kind]
	switch {
	case decided && !accept:
		return sec.OriginalContent
	case !decided && sec.NeedsClarification:
		return sec.OriginalContent
	default:
		if sec.BestContent != "" {
			return sec.BestContent
		}
		return sec.OriginalContent
	}
}

// Status summarizes a session for polling clients.
type Status struct {
	SessionID             string    `json:"session_id"`
	Phase                 string    `json:"current_phase"`
	SectionsAnalyzed      int       `json:"sections_analyzed"`
	PendingClarifications int       `json:"pending_clarifications"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// Status reports progress for a session.
func (m *Manager) Status(id string) (Status, error) {
	sess := m.store.Get(id)
	if sess == nil {
		return Status{}, ErrSessionNotFound
	}

	pending := len(sess.PendingClarifications())

	sess.mu.Lock()
	defer sess.mu.Unlock()

	phase := "completed"
	if pending > 0 {
		phase = "awaiting_clarification"
	}
	return Status{
		SessionID:             sess.ID,
		Phase:                 phase,
		SectionsAnalyzed:      len(sess.Results),
		PendingClarifications: pending,
		CreatedAt:             sess.CreatedAt,
		UpdatedAt:             sess.UpdatedAt,
	}, nil
}
