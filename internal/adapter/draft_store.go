package adapter

import (
	"context"
	"strings"
	"time"

	"quiz-arena/internal/cache"
	"quiz-arena/internal/domain"
)

const (
	draftServiceName = "attempt"
	draftObjectType  = "draft"

	draftFieldAttemptID = "attempt_id"
	draftFieldOrder     = "order"
	draftAnswerPrefix   = "answer:"
)

// CacheDraftStore implements domain.DraftStore on top of the Cache port,
// one hash per (contestant, quiz): the active attempt id, the persisted
// question order, and one field per committed answer. Every write refreshes
// the TTL so an attempt in active use never expires mid-session.
type CacheDraftStore struct {
	cache domain.Cache
	ttl   time.Duration
}

// NewCacheDraftStore creates a draft store with the given idle TTL.
func NewCacheDraftStore(c domain.Cache, ttl time.Duration) *CacheDraftStore {
	return &CacheDraftStore{cache: c, ttl: ttl}
}

func draftKey(contestantID, quizID string) string {
	return cache.GenerateCacheKey(draftServiceName, draftObjectType, contestantID, quizID)
}

// Get returns the stored draft, or nil when none exists. A hash missing its
// attempt id field counts as absent; partial writes never produce a draft
// that rehydration would trust.
func (s *CacheDraftStore) Get(ctx context.Context, contestantID, quizID string) (*domain.AttemptDraft, error) {
	fields, err := s.cache.HGetAll(ctx, draftKey(contestantID, quizID))
	if err != nil {
		if err == domain.ErrCacheMiss {
			return nil, nil
		}
		return nil, err
	}
	attemptID, ok := fields[draftFieldAttemptID]
	if !ok || attemptID == "" {
		return nil, nil
	}

	draft := &domain.AttemptDraft{
		AttemptID: attemptID,
		Answers:   make(domain.AnswerSet),
	}
	if order := fields[draftFieldOrder]; order != "" {
		draft.QuestionOrder = strings.Split(order, ",")
	}
	for field, value := range fields {
		if questionID, found := strings.CutPrefix(field, draftAnswerPrefix); found {
			draft.Answers[questionID] = value
		}
	}
	return draft, nil
}

// Put stores or replaces the draft for the given scope.
func (s *CacheDraftStore) Put(ctx context.Context, contestantID, quizID string, draft *domain.AttemptDraft) error {
	key := draftKey(contestantID, quizID)

	// Replace wholesale so answers from a previous attempt cannot leak in.
	if err := s.cache.Delete(ctx, key); err != nil {
		return err
	}
	if err := s.cache.HSet(ctx, key, draftFieldAttemptID, draft.AttemptID); err != nil {
		return err
	}
	if err := s.cache.HSet(ctx, key, draftFieldOrder, strings.Join(draft.QuestionOrder, ",")); err != nil {
		return err
	}
	for questionID, encoded := range draft.Answers {
		if err := s.cache.HSet(ctx, key, draftAnswerPrefix+questionID, encoded); err != nil {
			return err
		}
	}
	return s.cache.Expire(ctx, key, s.ttl)
}

// PutAnswer writes through a single answer change.
func (s *CacheDraftStore) PutAnswer(ctx context.Context, contestantID, quizID, questionID, encoded string) error {
	key := draftKey(contestantID, quizID)
	if err := s.cache.HSet(ctx, key, draftAnswerPrefix+questionID, encoded); err != nil {
		return err
	}
	return s.cache.Expire(ctx, key, s.ttl)
}

// Clear removes the draft. Called only after a confirmed submission.
func (s *CacheDraftStore) Clear(ctx context.Context, contestantID, quizID string) error {
	return s.cache.Delete(ctx, draftKey(contestantID, quizID))
}
