package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"quiz-arena/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func testQuiz() *domain.QuizDefinition {
	limit := 60
	return &domain.QuizDefinition{
		ID:               "quiz1",
		Name:             "Algebra Finals",
		TimeLimitMinutes: &limit,
		Status:           domain.QuizStatusPublished,
		Questions: []domain.QuestionDefinition{
			{ID: "q1", AnswerType: domain.SingleSelection, CorrectAnswer: "B", Options: domain.PlaceholderOptions()},
			{ID: "q2", AnswerType: domain.MultipleSelection, CorrectAnswer: "A,C", Options: domain.PlaceholderOptions()},
			{ID: "q3", AnswerType: domain.Binary, CorrectAnswer: "true"},
		},
	}
}

func testAttempt(start time.Time) *domain.Attempt {
	deadline := start.Add(60 * time.Minute)
	return &domain.Attempt{
		ID:            "attempt1",
		QuizID:        "quiz1",
		ContestantID:  "contestant1",
		QuestionOrder: []string{"q2", "q1", "q3"},
		Answers:       domain.AnswerSet{},
		Status:        domain.AttemptInProgress,
		StartedAt:     start,
		Deadline:      &deadline,
	}
}

// newTestManager builds a manager on a fake clock with a fast tick.
func newTestManager(clock *fakeClock, attempts *MockAttemptRepository, drafts *MockDraftStore) *Manager {
	m := NewManager(new(MockQuizRepository), attempts, drafts)
	m.now = clock.Now
	m.tick = time.Millisecond
	return m
}

func TestSetAnswer_WritesThroughDraftStore(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	attempts := new(MockAttemptRepository)
	drafts := new(MockDraftStore)
	m := newTestManager(clock, attempts, drafts)

	drafts.On("PutAnswer", mock.Anything, "contestant1", "quiz1", "q2", "A,C").Return(nil)

	s := m.StartSession(testAttempt(clock.Now()), testQuiz(), nil)
	err := s.SetAnswer(context.Background(), "q2", []string{"C", "A"})
	assert.NoError(t, err)
	assert.Equal(t, "A,C", s.Answers()["q2"])
	drafts.AssertExpectations(t)
}

func TestSetAnswer_UnknownQuestion(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	m := newTestManager(clock, new(MockAttemptRepository), new(MockDraftStore))

	s := m.StartSession(testAttempt(clock.Now()), testQuiz(), nil)
	err := s.SetAnswer(context.Background(), "ghost", []string{"A"})

	var domainErr *domain.DomainError
	assert.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.CodeNotFound, domainErr.Code)
}

func TestSetAnswer_InvalidSelection(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	m := newTestManager(clock, new(MockAttemptRepository), new(MockDraftStore))

	s := m.StartSession(testAttempt(clock.Now()), testQuiz(), nil)
	err := s.SetAnswer(context.Background(), "q1", []string{"A", "B"})

	var domainErr *domain.DomainError
	assert.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.CodeInvalidSelection, domainErr.Code)
	assert.Empty(t, s.Answers())
}

func TestSetAnswer_IgnoredAfterSubmission(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	attempt := testAttempt(clock.Now())
	attempt.Status = domain.AttemptSubmitted
	m := newTestManager(clock, new(MockAttemptRepository), new(MockDraftStore))

	s := m.StartSession(attempt, testQuiz(), nil)
	assert.Equal(t, StateSubmitted, s.State())

	// No error, no mutation, no draft write
	err := s.SetAnswer(context.Background(), "q1", []string{"B"})
	assert.NoError(t, err)
	assert.Empty(t, s.Answers())
}

func TestSetAnswer_DraftWriteFailureKeepsMemory(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	attempts := new(MockAttemptRepository)
	drafts := new(MockDraftStore)
	m := newTestManager(clock, attempts, drafts)

	drafts.On("PutAnswer", mock.Anything, "contestant1", "quiz1", "q1", "B").Return(errors.New("redis down"))

	s := m.StartSession(testAttempt(clock.Now()), testQuiz(), nil)
	err := s.SetAnswer(context.Background(), "q1", []string{"B"})
	assert.Error(t, err)
	// The change survives in memory and still counts at submission
	assert.Equal(t, "B", s.Answers()["q1"])
}

func TestFinish_ManualSubmission(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	attempts := new(MockAttemptRepository)
	drafts := new(MockDraftStore)
	m := newTestManager(clock, attempts, drafts)

	drafts.On("PutAnswer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	drafts.On("Clear", mock.Anything, "contestant1", "quiz1").Return(nil)
	attempts.On("SubmitAttempt", mock.Anything, "attempt1", mock.Anything, 600, 2, mock.Anything).Return(nil).Once()

	s := m.StartSession(testAttempt(clock.Now()), testQuiz(), nil)
	assert.NoError(t, s.SetAnswer(context.Background(), "q1", []string{"B"}))
	assert.NoError(t, s.SetAnswer(context.Background(), "q2", []string{"A", "C"}))
	assert.NoError(t, s.SetAnswer(context.Background(), "q3", []string{"false"}))

	clock.Advance(10 * time.Minute)
	result, err := s.Finish(context.Background(), TriggerManual)
	assert.NoError(t, err)
	assert.Equal(t, 2, result.Score)
	assert.Equal(t, 3, result.TotalQuestions)
	assert.Equal(t, 600, result.ElapsedSeconds)
	assert.Equal(t, StateSubmitted, s.State())

	// A second finish returns the stored result without touching the gateway
	again, err := s.Finish(context.Background(), TriggerManual)
	assert.NoError(t, err)
	assert.Equal(t, result, again)
	attempts.AssertExpectations(t)
	drafts.AssertExpectations(t)
}

func TestFinish_AtMostOnceUnderRace(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	attempts := new(MockAttemptRepository)
	drafts := new(MockDraftStore)
	m := newTestManager(clock, attempts, drafts)

	drafts.On("Clear", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	attempts.On("SubmitAttempt", mock.Anything, "attempt1", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil).Once()

	s := m.StartSession(testAttempt(clock.Now()), testQuiz(), nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Finish(context.Background(), TriggerManual)
		}()
	}
	wg.Wait()

	assert.Equal(t, StateSubmitted, s.State())
	attempts.AssertNumberOfCalls(t, "SubmitAttempt", 1)
}

func TestFinish_GatewayFailureAllowsRetry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	attempts := new(MockAttemptRepository)
	drafts := new(MockDraftStore)
	m := newTestManager(clock, attempts, drafts)

	drafts.On("PutAnswer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	drafts.On("Clear", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	attempts.On("SubmitAttempt", mock.Anything, "attempt1", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("network error")).Once()
	attempts.On("SubmitAttempt", mock.Anything, "attempt1", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(nil).Once()

	s := m.StartSession(testAttempt(clock.Now()), testQuiz(), nil)
	assert.NoError(t, s.SetAnswer(context.Background(), "q1", []string{"B"}))

	_, err := s.Finish(context.Background(), TriggerManual)
	assert.Error(t, err)
	assert.Equal(t, StateReady, s.State())

	// Answers survive the failure; the retried finish submits the latest set
	assert.NoError(t, s.SetAnswer(context.Background(), "q3", []string{"true"}))
	result, err := s.Finish(context.Background(), TriggerManual)
	assert.NoError(t, err)
	assert.Equal(t, 2, result.Score)
	attempts.AssertExpectations(t)
}

func TestFinish_ConvergesOnStoredOutcome(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	attempts := new(MockAttemptRepository)
	drafts := new(MockDraftStore)
	m := newTestManager(clock, attempts, drafts)

	storedElapsed := 1200
	storedScore := 3
	submittedAt := clock.Now().Add(20 * time.Minute)
	stored := testAttempt(clock.Now())
	stored.Status = domain.AttemptSubmitted
	stored.ElapsedSeconds = &storedElapsed
	stored.Score = &storedScore
	stored.SubmittedAt = &submittedAt

	drafts.On("Clear", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	attempts.On("SubmitAttempt", mock.Anything, "attempt1", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(domain.NewAttemptAlreadySubmittedError("attempt1"))
	attempts.On("GetByID", mock.Anything, "attempt1").Return(stored, nil)

	s := m.StartSession(testAttempt(clock.Now()), testQuiz(), nil)
	result, err := s.Finish(context.Background(), TriggerManual)
	assert.NoError(t, err)
	assert.Equal(t, storedScore, result.Score)
	assert.Equal(t, storedElapsed, result.ElapsedSeconds)
	assert.True(t, submittedAt.Equal(result.SubmittedAt))
	assert.Equal(t, StateSubmitted, s.State())
}

func TestManager_TimeoutAutoSubmits(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	attempts := new(MockAttemptRepository)
	drafts := new(MockDraftStore)
	m := newTestManager(clock, attempts, drafts)

	drafts.On("PutAnswer", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	drafts.On("Clear", mock.Anything, "contestant1", "quiz1").Return(nil)
	// Elapsed is capped at the full time limit regardless of when the tick lands
	attempts.On("SubmitAttempt", mock.Anything, "attempt1", mock.Anything, 3600, 1, mock.Anything).Return(nil).Once()

	s := m.StartSession(testAttempt(clock.Now()), testQuiz(), nil)
	assert.NoError(t, s.SetAnswer(context.Background(), "q1", []string{"B"}))

	clock.Advance(61 * time.Minute)
	assert.True(t, waitFor(t, 2*time.Second, func() bool { return s.State() == StateSubmitted }))

	result := s.Result()
	assert.NotNil(t, result)
	assert.Equal(t, 1, result.Score)
	assert.Equal(t, 3600, result.ElapsedSeconds)
	attempts.AssertExpectations(t)
}

func TestManager_OverdueAttemptSubmitsImmediately(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	attempts := new(MockAttemptRepository)
	drafts := new(MockDraftStore)
	m := newTestManager(clock, attempts, drafts)

	drafts.On("Clear", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	attempts.On("SubmitAttempt", mock.Anything, "attempt1", mock.Anything, 3600, 1, mock.Anything).Return(nil).Once()

	// Started two hours ago with a one hour limit
	attempt := testAttempt(clock.Now().Add(-2 * time.Hour))
	s := m.StartSession(attempt, testQuiz(), domain.AnswerSet{"q3": "true"})

	assert.Equal(t, StateSubmitted, s.State())
	attempts.AssertExpectations(t)
}

func TestManager_StartSessionReturnsExisting(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	m := newTestManager(clock, new(MockAttemptRepository), new(MockDraftStore))

	attempt := testAttempt(clock.Now())
	first := m.StartSession(attempt, testQuiz(), nil)
	second := m.StartSession(attempt, testQuiz(), domain.AnswerSet{"q1": "A"})
	assert.Same(t, first, second)

	got, ok := m.Get("attempt1")
	assert.True(t, ok)
	assert.Same(t, first, got)
}

func TestManager_RestoreInProgress(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	quizzes := new(MockQuizRepository)
	attempts := new(MockAttemptRepository)
	drafts := new(MockDraftStore)
	m := NewManager(quizzes, attempts, drafts)
	m.now = clock.Now
	m.tick = time.Millisecond

	attempt := testAttempt(clock.Now())
	attempts.On("ListInProgress", mock.Anything).Return([]*domain.Attempt{attempt}, nil)
	quizzes.On("GetQuizWithQuestions", mock.Anything, "quiz1").Return(testQuiz(), nil)
	drafts.On("Get", mock.Anything, "contestant1", "quiz1").Return(&domain.AttemptDraft{
		AttemptID:     "attempt1",
		QuestionOrder: attempt.QuestionOrder,
		Answers:       domain.AnswerSet{"q1": "B"},
	}, nil)

	assert.NoError(t, m.RestoreInProgress(context.Background()))

	s, ok := m.Get("attempt1")
	assert.True(t, ok)
	assert.Equal(t, "B", s.Answers()["q1"])
	assert.Equal(t, StateReady, s.State())
	m.Shutdown()
}

func TestManager_RestoreSkipsDraftFromOtherAttempt(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	quizzes := new(MockQuizRepository)
	attempts := new(MockAttemptRepository)
	drafts := new(MockDraftStore)
	m := NewManager(quizzes, attempts, drafts)
	m.now = clock.Now
	m.tick = time.Millisecond

	attempt := testAttempt(clock.Now())
	attempts.On("ListInProgress", mock.Anything).Return([]*domain.Attempt{attempt}, nil)
	quizzes.On("GetQuizWithQuestions", mock.Anything, "quiz1").Return(testQuiz(), nil)
	drafts.On("Get", mock.Anything, "contestant1", "quiz1").Return(&domain.AttemptDraft{
		AttemptID: "some-older-attempt",
		Answers:   domain.AnswerSet{"q1": "B"},
	}, nil)

	assert.NoError(t, m.RestoreInProgress(context.Background()))

	s, _ := m.Get("attempt1")
	assert.Empty(t, s.Answers())
	m.Shutdown()
}

func TestManager_SubmittedAttemptCarriesStoredResult(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 11, 0, 0, 0, time.UTC)}
	attempts := new(MockAttemptRepository)
	m := newTestManager(clock, attempts, new(MockDraftStore))

	score := 2
	elapsed := 1800
	submittedAt := clock.Now().Add(-30 * time.Minute)
	attempt := testAttempt(clock.Now().Add(-time.Hour))
	attempt.Status = domain.AttemptSubmitted
	attempt.Score = &score
	attempt.ElapsedSeconds = &elapsed
	attempt.SubmittedAt = &submittedAt

	s := m.StartSession(attempt, testQuiz(), nil)
	assert.Equal(t, StateSubmitted, s.State())

	// A retried finish returns the original outcome without touching the gateway.
	result, err := s.Finish(context.Background(), TriggerManual)
	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, "attempt1", result.AttemptID)
	assert.Equal(t, 2, result.Score)
	assert.Equal(t, 3, result.TotalQuestions)
	assert.Equal(t, 1800, result.ElapsedSeconds)
	assert.Equal(t, submittedAt, result.SubmittedAt)
	attempts.AssertNumberOfCalls(t, "SubmitAttempt", 0)
}

func TestManager_GetObservesArmedDeadline(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)}
	m := newTestManager(clock, new(MockAttemptRepository), new(MockDraftStore))

	// Readers polling through Get must never see a time-limited attempt as
	// unlimited, even while StartSession is still running.
	stop := make(chan struct{})
	var sawUnlimited int32
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if s, ok := m.Get("attempt1"); ok {
					if _, limited := s.RemainingSeconds(); !limited {
						atomic.AddInt32(&sawUnlimited, 1)
					}
				}
			}
		}()
	}

	s := m.StartSession(testAttempt(clock.Now()), testQuiz(), nil)
	close(stop)
	wg.Wait()

	assert.Equal(t, int32(0), atomic.LoadInt32(&sawUnlimited))
	remaining, limited := s.RemainingSeconds()
	assert.True(t, limited)
	assert.Equal(t, 3600, remaining)
	m.Shutdown()
}
