package session

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/resumewise/refine-cli/internal/model"
)

// Session holds all state for one analysis: the immutable inputs, the
// per-section results, and the human's accept/reject decisions.
type Session struct {
	ID         string
	ResumeText string
	TargetSpec string
	Analysis   model.TargetSpecAnalysis

	// Parsed holds the raw section texts from segmentation.
	Parsed map[model.SectionKind]string
	// Results holds the refinement outcome per analyzed section.
	Results map[model.SectionKind]*model.Section
	// Accepted records explicit accept/reject decisions. Absence means
	// the human has not decided yet.
	Accepted map[model.SectionKind]bool

	CreatedAt time.Time
	UpdatedAt time.Time

	mu sync.Mutex
}

// SectionsInOrder returns the analyzed sections in analysis order. Callers
// outside the manager must use this rather than reading Results directly.
func (s *Session) SectionsInOrder() []*model.Section {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*model.Section, 0, len(s.Results))
	for _, kind := range model.AnalysisOrder {
		if sec, ok := s.Results[kind]; ok {
			out = append(out, sec)
		}
	}
	return out
}

// PendingClarifications returns the open clarification requests across all
// sections, in analysis order.
func (s *Session) PendingClarifications() []model.ClarificationRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []model.ClarificationRequest
	for _, kind := range model.AnalysisOrder {
		sec, ok := s.Results[kind]
		if !ok || !sec.NeedsClarification || sec.Clarification == nil {
			continue
		}
		pending = append(pending, *sec.Clarification)
	}
	return pending
}

// Store is an in-memory session registry with TTL eviction. Sessions idle
// past the TTL are removed by a background sweeper.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	ttl      time.Duration

	done     chan struct{}
	closeOne sync.Once
}

const defaultSweepInterval = time.Minute

// NewStore creates a store evicting sessions idle longer than ttl. A zero
// ttl disables eviction.
func NewStore(ttl time.Duration) *Store {
	s := &Store{
		sessions: make(map[string]*Session),
		ttl:      ttl,
		done:     make(chan struct{}),
	}
	if ttl > 0 {
		go s.sweep()
	}
	return s
}

func (s *Store) sweep() {
	ticker := time.NewTicker(defaultSweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			s.evictIdle(now)
		}
	}
}

func (s *Store) evictIdle(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, sess := range s.sessions {
		sess.mu.Lock()
		idle := now.Sub(sess.UpdatedAt)
		sess.mu.Unlock()
		if idle > s.ttl {
			delete(s.sessions, id)
			zap.L().Info("session: evicted idle session",
				zap.String("session_id", id),
				zap.Duration("idle", idle),
			)
		}
	}
}

// Create registers a new session with a fresh ID.
func (s *Store) Create(resumeText, targetSpec string, analysis model.TargetSpecAnalysis, parsed map[model.SectionKind]string) *Session {
	now := time.Now().UTC()
	sess := &Session{
		ID:         uuid.NewString(),
		ResumeText: resumeText,
		TargetSpec: targetSpec,
		Analysis:   analysis,
		Parsed:     parsed,
		Results:    make(map[model.SectionKind]*model.Section),
		Accepted:   make(map[model.SectionKind]bool),
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

// Get returns the session for id, or nil if unknown or evicted.
func (s *Store) Get(id string) *Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessions[id]
}

// Delete removes a session.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// List returns all sessions ordered by creation time.
func (s *Store) List() []*Session {
	s.mu.RLock()
	out := make([]*Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close stops the eviction sweeper.
func (s *Store) Close() {
	s.closeOne.Do(func() { close(s.done) })
}
