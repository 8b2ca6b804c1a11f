package service

import (
	"context"
	"encoding/json"
	"time"

	"quiz-arena/internal/cache"
	"quiz-arena/internal/domain"
	"quiz-arena/internal/logger"
	"quiz-arena/internal/session"
	"quiz-arena/internal/util"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"quiz-arena/internal/dto"
)

// QuizDefinitionCacheTTL bounds how long a quiz definition is served from
// cache. Definitions are immutable once attempts exist, so staleness only
// delays publication-window changes.
const QuizDefinitionCacheTTL = 5 * time.Minute

// AttemptService drives the timed attempt lifecycle end to end.
type AttemptService interface {
	StartAttempt(ctx context.Context, contestantID, quizID string) (*dto.StartAttemptResponse, error)
	SaveAnswer(ctx context.Context, contestantID, attemptID, questionID string, selections []string) (*dto.SaveAnswerResponse, error)
	SubmitAttempt(ctx context.Context, contestantID, attemptID string) (*dto.SubmitAttemptResponse, error)
	GetAttemptState(ctx context.Context, contestantID, attemptID string) (*dto.AttemptStateResponse, error)
	GetResult(ctx context.Context, contestantID, attemptID string) (*dto.SubmitAttemptResponse, error)
}

// attemptService implements AttemptService
type attemptService struct {
	quizzes  domain.QuizRepository
	attempts domain.AttemptRepository
	drafts   domain.DraftStore
	cache    domain.Cache
	sessions *session.Manager
	flight   singleflight.Group
	now      func() time.Time
}

// NewAttemptService creates a new instance of attemptService.
func NewAttemptService(
	quizzes domain.QuizRepository,
	attempts domain.AttemptRepository,
	drafts domain.DraftStore,
	cacheAdapter domain.Cache,
	sessions *session.Manager,
) AttemptService {
	return &attemptService{
		quizzes:  quizzes,
		attempts: attempts,
		drafts:   drafts,
		cache:    cacheAdapter,
		sessions: sessions,
		now:      time.Now,
	}
}

// loadQuiz fetches a quiz definition through the cache, deduplicating
// concurrent loads for the same quiz (a contest start is exactly the moment
// hundreds of contestants fetch one quiz at once).
func (s *attemptService) loadQuiz(ctx context.Context, quizID string) (*domain.QuizDefinition, error) {
	v, err, _ := s.flight.Do(quizID, func() (interface{}, error) {
		cacheKey := cache.GenerateCacheKey("quiz", "definition", quizID)
		if s.cache != nil {
			if raw, err := s.cache.Get(ctx, cacheKey); err == nil {
				var quiz domain.QuizDefinition
				if err := json.Unmarshal([]byte(raw), &quiz); err == nil {
					return &quiz, nil
				}
				logger.Get().Warn("Discarding undecodable cached quiz definition", zap.String("quiz_id", quizID))
			}
		}

		quiz, err := s.quizzes.GetQuizWithQuestions(ctx, quizID)
		if err != nil {
			return nil, domain.NewInternalError("failed to load quiz", err)
		}
		if quiz == nil {
			return (*domain.QuizDefinition)(nil), nil
		}

		if s.cache != nil {
			if raw, err := json.Marshal(quiz); err == nil {
				if err := s.cache.Set(ctx, cacheKey, string(raw), QuizDefinitionCacheTTL); err != nil {
					logger.Get().Warn("Failed to cache quiz definition", zap.String("quiz_id", quizID), zap.Error(err))
				}
			}
		}
		return quiz, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.QuizDefinition), nil
}

// StartAttempt opens (or resumes) the contestant's attempt at a quiz. Safe to
// call repeatedly: an existing in-progress attempt is returned with its
// original question order and any draft answers; a fresh attempt is created
// with a newly shuffled order otherwise.
func (s *attemptService) StartAttempt(ctx context.Context, contestantID, quizID string) (*dto.StartAttemptResponse, error) {
	quiz, err := s.loadQuiz(ctx, quizID)
	if err != nil {
		return nil, err
	}
	if quiz == nil {
		return nil, domain.NewQuizUnavailableError(quizID, "not found")
	}
	now := s.now()
	if ok, reason := quiz.AvailableAt(now); !ok {
		return nil, domain.NewQuizUnavailableError(quizID, reason)
	}

	attempt, err := s.attempts.GetByQuizAndContestant(ctx, quizID, contestantID)
	if err != nil {
		return nil, domain.NewInternalError("failed to look up attempt", err)
	}
	if attempt == nil {
		newAttempt := &domain.Attempt{
			ID:            util.NewULID(),
			QuizID:        quizID,
			ContestantID:  contestantID,
			QuestionOrder: domain.ShuffleQuestions(quiz.Questions, nil),
			Answers:       make(domain.AnswerSet),
			Status:        domain.AttemptInProgress,
			StartedAt:     now,
		}
		if limit, ok := quiz.TimeLimit(); ok {
			deadline := now.Add(limit)
			newAttempt.Deadline = &deadline
		}
		attempt, err = s.attempts.CreateAttempt(ctx, newAttempt)
		if err != nil {
			return nil, domain.NewInternalError("failed to create attempt", err)
		}
		logger.Get().Info("Attempt started",
			zap.String("attempt_id", attempt.ID),
			zap.String("quiz_id", quizID),
			zap.String("contestant_id", contestantID))
	}
	if attempt.Status == domain.AttemptSubmitted {
		return nil, domain.NewQuizUnavailableError(quizID, "already completed")
	}

	answers := make(domain.AnswerSet)
	draft, err := s.drafts.Get(ctx, contestantID, quizID)
	if err != nil {
		logger.Get().Warn("Draft lookup failed, starting with server state only",
			zap.String("attempt_id", attempt.ID), zap.Error(err))
	}
	if draft != nil && draft.AttemptID == attempt.ID {
		answers = draft.Answers
	}
	// (Re)seed the resume cache with the authoritative order and whatever
	// answers survived, covering both first start and cache loss.
	if err := s.drafts.Put(ctx, contestantID, quizID, &domain.AttemptDraft{
		AttemptID:     attempt.ID,
		QuestionOrder: attempt.QuestionOrder,
		Answers:       answers,
	}); err != nil {
		logger.Get().Warn("Failed to seed draft cache", zap.String("attempt_id", attempt.ID), zap.Error(err))
	}

	sess := s.sessions.StartSession(attempt, quiz, answers)
	if sess.State() == session.StateSubmitted {
		// The deadline passed while nobody was looking and the session
		// auto-submitted during hydration.
		return nil, domain.NewQuizUnavailableError(quizID, "already completed")
	}

	return buildStartResponse(quiz, attempt, sess), nil
}

func buildStartResponse(quiz *domain.QuizDefinition, attempt *domain.Attempt, sess *session.Session) *dto.StartAttemptResponse {
	ordered := domain.OrderQuestions(quiz.Questions, attempt.QuestionOrder)
	questions := make([]dto.QuestionResponse, 0, len(ordered))
	for _, q := range ordered {
		options := make([]dto.OptionResponse, 0, len(q.Options))
		for _, opt := range q.Options {
			options = append(options, dto.OptionResponse{Label: opt.Label, Text: opt.Text})
		}
		questions = append(questions, dto.QuestionResponse{
			ID:         q.ID,
			Prompt:     q.Prompt,
			ImageRef:   q.ImageRef,
			AnswerType: string(q.AnswerType),
			Options:    options,
		})
	}

	resp := &dto.StartAttemptResponse{
		AttemptID:        attempt.ID,
		QuizID:           quiz.ID,
		QuizName:         quiz.Name,
		Description:      quiz.Description,
		TimeLimitMinutes: quiz.TimeLimitMinutes,
		Questions:        questions,
		Answers:          sess.Answers(),
		Status:           string(sess.State()),
	}
	if remaining, ok := sess.RemainingSeconds(); ok {
		resp.RemainingSeconds = &remaining
	}
	return resp
}

// ensureSession returns the live session for an attempt, rehydrating it from
// the system of record and the draft cache when this process has not seen the
// attempt yet (reload after restart, or a different instance took the start).
func (s *attemptService) ensureSession(ctx context.Context, contestantID, attemptID string) (*session.Session, error) {
	if sess, ok := s.sessions.Get(attemptID); ok {
		if sess.Attempt().ContestantID != contestantID {
			return nil, domain.NewUnauthorizedError("attempt belongs to another contestant")
		}
		return sess, nil
	}

	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		return nil, domain.NewInternalError("failed to load attempt", err)
	}
	if attempt == nil {
		return nil, domain.NewAttemptNotFoundError(attemptID)
	}
	if attempt.ContestantID != contestantID {
		return nil, domain.NewUnauthorizedError("attempt belongs to another contestant")
	}

	quiz, err := s.loadQuiz(ctx, attempt.QuizID)
	if err != nil {
		return nil, err
	}
	if quiz == nil {
		return nil, domain.NewQuizUnavailableError(attempt.QuizID, "not found")
	}

	answers := attempt.Answers.Clone()
	if attempt.Status == domain.AttemptInProgress {
		if draft, err := s.drafts.Get(ctx, contestantID, attempt.QuizID); err == nil && draft != nil && draft.AttemptID == attempt.ID {
			answers = draft.Answers
		}
	}
	return s.sessions.StartSession(attempt, quiz, answers), nil
}

// SaveAnswer records a selection change. Saves against a submitted attempt
// are silently ignored rather than failed: the client may race the deadline.
func (s *attemptService) SaveAnswer(ctx context.Context, contestantID, attemptID, questionID string, selections []string) (*dto.SaveAnswerResponse, error) {
	sess, err := s.ensureSession(ctx, contestantID, attemptID)
	if err != nil {
		return nil, err
	}

	if err := sess.SetAnswer(ctx, questionID, selections); err != nil {
		return nil, err
	}

	encoded := sess.Answers()[questionID]
	answered := false
	if question := sess.Question(questionID); question != nil {
		answered = domain.IsComplete(question.AnswerType, encoded)
	}
	return &dto.SaveAnswerResponse{
		QuestionID: questionID,
		Encoded:    encoded,
		Answered:   answered,
	}, nil
}

// SubmitAttempt is the manual finish path.
func (s *attemptService) SubmitAttempt(ctx context.Context, contestantID, attemptID string) (*dto.SubmitAttemptResponse, error) {
	sess, err := s.ensureSession(ctx, contestantID, attemptID)
	if err != nil {
		return nil, err
	}

	result, err := sess.Finish(ctx, session.TriggerManual)
	if err != nil {
		if domain.IsAlreadySubmitted(err) {
			// Benign race outcome: another trigger won. If its result is
			// visible (on the session or in the system of record) return it;
			// a submission still in flight surfaces the conflict instead, so
			// the client retries the result fetch rather than seeing a
			// validation failure.
			if settled := sess.Result(); settled != nil {
				return submitResponse(settled), nil
			}
			if resp, getErr := s.GetResult(ctx, contestantID, attemptID); getErr == nil {
				return resp, nil
			}
			return nil, err
		}
		return nil, err
	}
	return submitResponse(result), nil
}

func submitResponse(result *domain.SubmissionResult) *dto.SubmitAttemptResponse {
	return &dto.SubmitAttemptResponse{
		AttemptID:      result.AttemptID,
		Score:          result.Score,
		TotalQuestions: result.TotalQuestions,
		ElapsedSeconds: result.ElapsedSeconds,
		SubmittedAt:    result.SubmittedAt,
	}
}

// GetAttemptState is the reload/rehydrate view of an attempt.
func (s *attemptService) GetAttemptState(ctx context.Context, contestantID, attemptID string) (*dto.AttemptStateResponse, error) {
	sess, err := s.ensureSession(ctx, contestantID, attemptID)
	if err != nil {
		return nil, err
	}

	attempt := sess.Attempt()
	resp := &dto.AttemptStateResponse{
		AttemptID:     attempt.ID,
		QuizID:        attempt.QuizID,
		Status:        string(sess.State()),
		QuestionOrder: attempt.QuestionOrder,
		Answers:       sess.Answers(),
	}
	if remaining, ok := sess.RemainingSeconds(); ok {
		resp.RemainingSeconds = &remaining
	}
	return resp, nil
}

// GetResult returns the result summary of a submitted attempt.
func (s *attemptService) GetResult(ctx context.Context, contestantID, attemptID string) (*dto.SubmitAttemptResponse, error) {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		return nil, domain.NewInternalError("failed to load attempt", err)
	}
	if attempt == nil {
		return nil, domain.NewAttemptNotFoundError(attemptID)
	}
	if attempt.ContestantID != contestantID {
		return nil, domain.NewUnauthorizedError("attempt belongs to another contestant")
	}
	if attempt.Status != domain.AttemptSubmitted {
		return nil, domain.NewInvalidInputError("attempt has not been submitted yet")
	}

	quiz, err := s.loadQuiz(ctx, attempt.QuizID)
	if err != nil {
		return nil, err
	}
	total := 0
	if quiz != nil {
		total = len(quiz.Questions)
	}

	resp := &dto.SubmitAttemptResponse{
		AttemptID:      attempt.ID,
		TotalQuestions: total,
	}
	if attempt.Score != nil {
		resp.Score = *attempt.Score
	}
	if attempt.ElapsedSeconds != nil {
		resp.ElapsedSeconds = *attempt.ElapsedSeconds
	}
	if attempt.SubmittedAt != nil {
		resp.SubmittedAt = *attempt.SubmittedAt
	}
	return resp, nil
}
