package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"quiz-arena/internal/domain"
	"quiz-arena/internal/logger"
	"quiz-arena/internal/repository/models"
	"quiz-arena/internal/util"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// sqlxQuizRepository implements domain.QuizRepository using sqlx.
type sqlxQuizRepository struct {
	db *sqlx.DB
}

// NewSQLXQuizRepository creates a new instance of sqlxQuizRepository.
func NewSQLXQuizRepository(db *sqlx.DB) domain.QuizRepository {
	return &sqlxQuizRepository{db: db}
}

func toDomainQuiz(modelQuiz *models.Quiz, modelQuestions []models.Question) *domain.QuizDefinition {
	if modelQuiz == nil {
		return nil
	}

	quiz := &domain.QuizDefinition{
		ID:          modelQuiz.ID,
		Name:        modelQuiz.Name,
		Description: modelQuiz.Description.String,
		TargetGroup: modelQuiz.TargetGroup.String,
		Status:      modelQuiz.Status,
		OpenAt:      util.NullTimeToPtr(modelQuiz.OpenAt),
		CloseAt:     util.NullTimeToPtr(modelQuiz.CloseAt),
		CreatedAt:   modelQuiz.CreatedAt,
		UpdatedAt:   modelQuiz.UpdatedAt,
	}
	quiz.TimeLimitMinutes = util.NullInt64ToIntPtr(modelQuiz.TimeLimitMinutes)

	quiz.Questions = make([]domain.QuestionDefinition, 0, len(modelQuestions))
	for _, mq := range modelQuestions {
		// Validate the stored option payload here, at the ingestion boundary,
		// instead of re-deriving its shape at every render. Malformed data
		// degrades to the placeholder option set but never fails the load.
		options, ok := domain.NormalizeOptions(mq.Options)
		if !ok {
			logger.Get().Warn("Question has malformed options, using placeholder set",
				zap.String("quiz_id", mq.QuizID),
				zap.String("question_id", mq.ID))
		}
		quiz.Questions = append(quiz.Questions, domain.QuestionDefinition{
			ID:            mq.ID,
			Prompt:        mq.Prompt,
			ImageRef:      mq.ImageRef.String,
			AnswerType:    domain.AnswerType(mq.AnswerType),
			Options:       options,
			CorrectAnswer: mq.CorrectAnswer,
		})
	}
	return quiz
}

// GetQuizWithQuestions retrieves a quiz and its ordered question set.
func (r *sqlxQuizRepository) GetQuizWithQuestions(ctx context.Context, quizID string) (*domain.QuizDefinition, error) {
	var modelQuiz models.Quiz
	query := `SELECT id, name, description, target_group, time_limit_minutes, status, open_at, close_at, created_at, updated_at
	          FROM quizzes WHERE id = $1`
	if err := r.db.GetContext(ctx, &modelQuiz, query, quizID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get quiz %s: %w", quizID, err)
	}

	var modelQuestions []models.Question
	questionQuery := `SELECT id, quiz_id, position, prompt, image_ref, answer_type, options, correct_answer, created_at, updated_at
	                  FROM questions WHERE quiz_id = $1 ORDER BY position ASC`
	if err := r.db.SelectContext(ctx, &modelQuestions, questionQuery, quizID); err != nil {
		return nil, fmt.Errorf("failed to get questions for quiz %s: %w", quizID, err)
	}

	return toDomainQuiz(&modelQuiz, modelQuestions), nil
}
