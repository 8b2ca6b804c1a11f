package session

import (
	"context"
	"sync"
	"time"

	"quiz-arena/internal/domain"
	"quiz-arena/internal/logger"

	"go.uber.org/zap"
)

// State is the lifecycle state of an active attempt session.
type State string

const (
	StateReady      State = "READY"
	StateSubmitting State = "SUBMITTING"
	StateSubmitted  State = "SUBMITTED"
)

// Trigger identifies what initiated a finish call.
type Trigger string

const (
	TriggerManual  Trigger = "manual"
	TriggerTimeout Trigger = "timeout"
)

// Session orchestrates one in-progress attempt: it owns the fixed question
// order, the in-memory answer set (written through to the draft store on
// every change), the deadline controller, and the at-most-once submission
// guarantee. All mutations go through the session mutex; the state tag under
// that mutex is the only exclusion primitive the finish path needs.
type Session struct {
	mu       sync.Mutex
	state    State
	attempt  *domain.Attempt
	quiz     *domain.QuizDefinition
	answers  domain.AnswerSet
	position int
	deadline *DeadlineController
	result   *domain.SubmissionResult

	repo   domain.AttemptRepository
	drafts domain.DraftStore
	now    func() time.Time
}

// Attempt returns the attempt this session runs.
func (s *Session) Attempt() *domain.Attempt {
	return s.attempt
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Answers returns a snapshot of the current answer set.
func (s *Session) Answers() domain.AnswerSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.answers.Clone()
}

// Question looks up a question of the session's quiz by id.
func (s *Session) Question(questionID string) *domain.QuestionDefinition {
	return s.quiz.QuestionByID(questionID)
}

// Result returns the submission result, or nil before submission.
func (s *Session) Result() *domain.SubmissionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// RemainingSeconds reports whole seconds until the deadline; the second
// value is false for unlimited attempts.
func (s *Session) RemainingSeconds() (int, bool) {
	if s.deadline == nil {
		return 0, false
	}
	return int(s.deadline.Remaining() / time.Second), true
}

// SetAnswer records the contestant's selection for a question and writes it
// through to the draft store, so a crash mid-session loses at most the
// in-flight change. Rejected silently (no error, no mutation) once the
// session has left Ready: a save racing a submission must not fail loudly.
func (s *Session) SetAnswer(ctx context.Context, questionID string, labels []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateReady {
		logger.Get().Debug("Ignoring answer change on non-ready session",
			zap.String("attempt_id", s.attempt.ID),
			zap.String("state", string(s.state)))
		return nil
	}

	question := s.quiz.QuestionByID(questionID)
	if question == nil {
		return domain.NewNotFoundError("question not found in quiz: " + questionID)
	}

	encoded, err := domain.EncodeSelection(question.AnswerType, labels)
	if err != nil {
		return err
	}

	s.answers[questionID] = encoded
	if err := s.drafts.PutAnswer(ctx, s.attempt.ContestantID, s.attempt.QuizID, questionID, encoded); err != nil {
		// The in-memory set keeps the change; the draft write is retried
		// implicitly by the next answer change. Surface the failure so the
		// client can show a retryable error.
		return domain.NewInternalError("failed to persist answer draft", err)
	}
	return nil
}

// Navigate moves the contestant's position in the question order. Purely a
// view concern: out-of-bounds indices clamp silently instead of erroring.
func (s *Session) Navigate(index int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	last := len(s.attempt.QuestionOrder) - 1
	if index < 0 {
		index = 0
	}
	if index > last {
		index = last
	}
	s.position = index
	return index
}

// Position returns the current navigator index.
func (s *Session) Position() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

// Finish is the single submission entry point, idempotent under concurrent
// invocation: a timeout expiry and a manual click may race, and only the
// first caller proceeds to the gateway. Later callers on a submitted session
// get the stored result; a caller racing an in-flight submission gets the
// already-submitted outcome, which the whole stack treats as success.
//
// On gateway failure the session returns to Ready and the draft store is
// untouched, so a manual retry or reload resubmits the current answer set.
func (s *Session) Finish(ctx context.Context, trigger Trigger) (*domain.SubmissionResult, error) {
	s.mu.Lock()
	switch s.state {
	case StateSubmitted:
		result := s.result
		s.mu.Unlock()
		return result, nil
	case StateSubmitting:
		s.mu.Unlock()
		return nil, domain.NewAttemptAlreadySubmittedError(s.attempt.ID)
	}
	s.state = StateSubmitting
	// Recomputed from current state on every call, never captured once: a
	// retried finish after a network failure submits the latest answers.
	answers := s.answers.Clone()
	s.mu.Unlock()

	now := s.now()
	elapsed := s.attempt.Elapsed(now)
	score := domain.ScoreAnswers(s.quiz.Questions, answers)

	err := s.repo.SubmitAttempt(ctx, s.attempt.ID, answers, elapsed, score, now)
	if err != nil && !domain.IsAlreadySubmitted(err) {
		s.mu.Lock()
		s.state = StateReady
		s.mu.Unlock()
		logger.Get().Error("Attempt submission failed, session stays ready for retry",
			zap.String("attempt_id", s.attempt.ID),
			zap.String("trigger", string(trigger)),
			zap.Error(err))
		return nil, err
	}
	if domain.IsAlreadySubmitted(err) {
		// An earlier race winner already landed. Benign: converge on the
		// persisted outcome.
		logger.Get().Info("Attempt was already submitted, converging",
			zap.String("attempt_id", s.attempt.ID),
			zap.String("trigger", string(trigger)))
		if stored, getErr := s.repo.GetByID(ctx, s.attempt.ID); getErr == nil && stored != nil && stored.Status == domain.AttemptSubmitted {
			elapsed = 0
			if stored.ElapsedSeconds != nil {
				elapsed = *stored.ElapsedSeconds
			}
			score = 0
			if stored.Score != nil {
				score = *stored.Score
			}
			if stored.SubmittedAt != nil {
				now = *stored.SubmittedAt
			}
		}
	}

	result := &domain.SubmissionResult{
		AttemptID:      s.attempt.ID,
		Score:          score,
		TotalQuestions: len(s.quiz.Questions),
		ElapsedSeconds: elapsed,
		SubmittedAt:    now,
	}

	// Clear the resume cache only now that the submission is confirmed. A
	// failed clear leaves a stale draft behind; start-attempt ignores drafts
	// for submitted attempts, so that is cosmetic.
	if err := s.drafts.Clear(ctx, s.attempt.ContestantID, s.attempt.QuizID); err != nil {
		logger.Get().Warn("Failed to clear draft after submission",
			zap.String("attempt_id", s.attempt.ID),
			zap.Error(err))
	}
	if s.deadline != nil {
		s.deadline.Stop()
	}

	s.mu.Lock()
	s.state = StateSubmitted
	s.result = result
	s.mu.Unlock()

	logger.Get().Info("Attempt submitted",
		zap.String("attempt_id", s.attempt.ID),
		zap.String("quiz_id", s.attempt.QuizID),
		zap.String("trigger", string(trigger)),
		zap.Int("score", score),
		zap.Int("elapsed_seconds", elapsed))
	return result, nil
}
