package session

import (
	"context"
	"sync"
	"time"

	"quiz-arena/internal/domain"
	"quiz-arena/internal/logger"

	"go.uber.org/zap"
)

// Manager keeps the active sessions, one per attempt id, and re-arms their
// deadline timers after a restart so an unattended expiring attempt still
// auto-submits.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	repo   domain.QuizRepository
	atrepo domain.AttemptRepository
	drafts domain.DraftStore
	now    func() time.Time
	tick   time.Duration
}

// NewManager creates a session manager.
func NewManager(quizzes domain.QuizRepository, attempts domain.AttemptRepository, drafts domain.DraftStore) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		repo:     quizzes,
		atrepo:   attempts,
		drafts:   drafts,
		now:      time.Now,
		tick:     time.Second,
	}
}

// Get returns the live session for an attempt, if one exists in this process.
func (m *Manager) Get(attemptID string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[attemptID]
	return s, ok
}

// StartSession creates (or returns) the session for an attempt, arming its
// deadline controller. Answers are the rehydrated answer set; the caller has
// already merged the draft. An attempt whose deadline has passed before the
// session existed (server restart, long-dead client) is submitted
// immediately with whatever answers survived.
func (m *Manager) StartSession(attempt *domain.Attempt, quiz *domain.QuizDefinition, answers domain.AnswerSet) *Session {
	m.mu.Lock()
	if existing, ok := m.sessions[attempt.ID]; ok {
		m.mu.Unlock()
		return existing
	}

	if answers == nil {
		answers = make(domain.AnswerSet)
	}
	s := &Session{
		state:   StateReady,
		attempt: attempt,
		quiz:    quiz,
		answers: answers,
		repo:    m.atrepo,
		drafts:  m.drafts,
		now:     m.now,
	}
	if attempt.Status == domain.AttemptSubmitted {
		s.state = StateSubmitted
		s.result = storedResult(attempt, quiz)
	}
	// The session must be complete before it is visible through Get; the
	// deadline field in particular is read without the session mutex.
	overdue := false
	if s.state == StateReady && attempt.Deadline != nil {
		if attempt.Deadline.After(m.now()) {
			s.deadline = newDeadlineControllerWithClock(*attempt.Deadline, m.tick, m.now, func() {
				if _, err := s.Finish(context.Background(), TriggerTimeout); err != nil {
					logger.Get().Error("Deadline-triggered submission failed",
						zap.String("attempt_id", attempt.ID),
						zap.Error(err))
				}
			})
		} else {
			overdue = true
		}
	}
	m.sessions[attempt.ID] = s
	m.mu.Unlock()

	if s.deadline != nil {
		s.deadline.Start()
	}
	if overdue {
		// Already over time: submit now rather than ticking.
		if _, err := s.Finish(context.Background(), TriggerTimeout); err != nil {
			logger.Get().Error("Overdue attempt submission failed",
				zap.String("attempt_id", attempt.ID),
				zap.Error(err))
		}
	}
	return s
}

// storedResult rebuilds the submission result of an attempt that was already
// submitted before this process saw it, so a retried finish can still return
// the original outcome.
func storedResult(attempt *domain.Attempt, quiz *domain.QuizDefinition) *domain.SubmissionResult {
	result := &domain.SubmissionResult{
		AttemptID:      attempt.ID,
		TotalQuestions: len(quiz.Questions),
	}
	if attempt.Score != nil {
		result.Score = *attempt.Score
	}
	if attempt.ElapsedSeconds != nil {
		result.ElapsedSeconds = *attempt.ElapsedSeconds
	}
	if attempt.SubmittedAt != nil {
		result.SubmittedAt = *attempt.SubmittedAt
	}
	return result
}

// RestoreInProgress rebuilds sessions for every attempt the system of record
// still considers in progress, merging any surviving draft answers. Run once
// at startup.
func (m *Manager) RestoreInProgress(ctx context.Context) error {
	attempts, err := m.atrepo.ListInProgress(ctx)
	if err != nil {
		return err
	}
	for _, attempt := range attempts {
		quiz, err := m.repo.GetQuizWithQuestions(ctx, attempt.QuizID)
		if err != nil || quiz == nil {
			logger.Get().Warn("Skipping restore of attempt with unloadable quiz",
				zap.String("attempt_id", attempt.ID),
				zap.String("quiz_id", attempt.QuizID),
				zap.Error(err))
			continue
		}
		answers := make(domain.AnswerSet)
		if draft, err := m.drafts.Get(ctx, attempt.ContestantID, attempt.QuizID); err == nil && draft != nil && draft.AttemptID == attempt.ID {
			answers = draft.Answers
		}
		m.StartSession(attempt, quiz, answers)
	}
	if len(attempts) > 0 {
		logger.Get().Info("Restored in-progress attempt sessions", zap.Int("count", len(attempts)))
	}
	return nil
}

// Shutdown stops every session's deadline controller so no timer fires into
// a closing process.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.deadline != nil {
			s.deadline.Stop()
		}
	}
}
