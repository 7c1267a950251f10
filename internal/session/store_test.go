package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resumewise/refine-cli/internal/model"
)

func newTestStore(t *testing.T, ttl time.Duration) *Store {
	t.Helper()
	s := NewStore(ttl)
	t.Cleanup(s.Close)
	return s
}

func createSession(s *Store) *Session {
	return s.Create("resume text", "job text", model.DefaultTargetSpecAnalysis(), map[model.SectionKind]string{
		model.SectionSkills: "Python, Go",
	})
}

func TestStore_CreateAndGet(t *testing.T) {
	s := newTestStore(t, 0)
	sess := createSession(s)

	require.NotEmpty(t, sess.ID)
	assert.Same(t, sess, s.Get(sess.ID))
	assert.Nil(t, s.Get("unknown"))
	assert.Equal(t, 1, s.Len())
}

func TestStore_UniqueIDs(t *testing.T) {
	s := newTestStore(t, 0)
	a := createSession(s)
	b := createSession(s)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestStore_Delete(t *testing.T) {
	s := newTestStore(t, 0)
	sess := createSession(s)
	s.Delete(sess.ID)
	assert.Nil(t, s.Get(sess.ID))
	assert.Zero(t, s.Len())
}

func TestStore_ListOrderedByCreation(t *testing.T) {
	s := newTestStore(t, 0)
	a := createSession(s)
	b := createSession(s)
	b.CreatedAt = a.CreatedAt.Add(time.Second)

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, a.ID, list[0].ID)
	assert.Equal(t, b.ID, list[1].ID)
}

func TestStore_EvictIdle(t *testing.T) {
	s := newTestStore(t, time.Minute)
	fresh := createSession(s)
	stale := createSession(s)

	stale.mu.Lock()
	stale.UpdatedAt = time.Now().UTC().Add(-2 * time.Minute)
	stale.mu.Unlock()

	s.evictIdle(time.Now().UTC())

	assert.Nil(t, s.Get(stale.ID))
	assert.NotNil(t, s.Get(fresh.ID))
}

func TestPendingClarifications_AnalysisOrder(t *testing.T) {
	s := newTestStore(t, 0)
	sess := createSession(s)

	sess.Results[model.SectionExperience] = &model.Section{
		Kind:               model.SectionExperience,
		NeedsClarification: true,
		Clarification:      &model.ClarificationRequest{Section: model.SectionExperience, Question: "exp?"},
	}
	sess.Results[model.SectionSkills] = &model.Section{
		Kind:               model.SectionSkills,
		NeedsClarification: true,
		Clarification:      &model.ClarificationRequest{Section: model.SectionSkills, Question: "skills?"},
	}
	sess.Results[model.SectionEducation] = &model.Section{Kind: model.SectionEducation}

	pending := sess.PendingClarifications()
	require.Len(t, pending, 2)
	assert.Equal(t, model.SectionSkills, pending[0].Section)
	assert.Equal(t, model.SectionExperience, pending[1].Section)
}

func TestSectionsInOrder(t *testing.T) {
	s := newTestStore(t, 0)
	sess := createSession(s)

	sess.Results[model.SectionExperience] = &model.Section{Kind: model.SectionExperience}
	sess.Results[model.SectionSkills] = &model.Section{Kind: model.SectionSkills}

	sections := sess.SectionsInOrder()
	require.Len(t, sections, 2)
	assert.Equal(t, model.SectionSkills, sections[0].Kind)
	assert.Equal(t, model.SectionExperience, sections[1].Kind)
}
