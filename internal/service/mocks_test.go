package service

import (
	"context"
	"time"

	"quiz-arena/internal/domain"

	"github.com/stretchr/testify/mock"
)

// --- MockQuizRepository ---
type MockQuizRepository struct {
	mock.Mock
}

func (m *MockQuizRepository) GetQuizWithQuestions(ctx context.Context, quizID string) (*domain.QuizDefinition, error) {
	args := m.Called(ctx, quizID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.QuizDefinition), args.Error(1)
}

// --- MockAttemptRepository ---
type MockAttemptRepository struct {
	mock.Mock
}

func (m *MockAttemptRepository) GetByID(ctx context.Context, attemptID string) (*domain.Attempt, error) {
	args := m.Called(ctx, attemptID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Attempt), args.Error(1)
}

func (m *MockAttemptRepository) GetByQuizAndContestant(ctx context.Context, quizID, contestantID string) (*domain.Attempt, error) {
	args := m.Called(ctx, quizID, contestantID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Attempt), args.Error(1)
}

func (m *MockAttemptRepository) CreateAttempt(ctx context.Context, attempt *domain.Attempt) (*domain.Attempt, error) {
	args := m.Called(ctx, attempt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Attempt), args.Error(1)
}

func (m *MockAttemptRepository) SubmitAttempt(ctx context.Context, attemptID string, answers domain.AnswerSet, elapsedSeconds int, score int, submittedAt time.Time) error {
	args := m.Called(ctx, attemptID, answers, elapsedSeconds, score, submittedAt)
	return args.Error(0)
}

func (m *MockAttemptRepository) ListInProgress(ctx context.Context) ([]*domain.Attempt, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Attempt), args.Error(1)
}

// --- MockDraftStore ---
type MockDraftStore struct {
	mock.Mock
}

func (m *MockDraftStore) Get(ctx context.Context, contestantID, quizID string) (*domain.AttemptDraft, error) {
	args := m.Called(ctx, contestantID, quizID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AttemptDraft), args.Error(1)
}

func (m *MockDraftStore) Put(ctx context.Context, contestantID, quizID string, draft *domain.AttemptDraft) error {
	args := m.Called(ctx, contestantID, quizID, draft)
	return args.Error(0)
}

func (m *MockDraftStore) PutAnswer(ctx context.Context, contestantID, quizID, questionID, encoded string) error {
	args := m.Called(ctx, contestantID, quizID, questionID, encoded)
	return args.Error(0)
}

func (m *MockDraftStore) Clear(ctx context.Context, contestantID, quizID string) error {
	args := m.Called(ctx, contestantID, quizID)
	return args.Error(0)
}
