package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"quiz-arena/internal/domain"
	"quiz-arena/internal/repository/models"
	"quiz-arena/internal/util"

	"github.com/jmoiron/sqlx"
)

// sqlxAttemptRepository implements domain.AttemptRepository using sqlx. It is
// the submission gateway: submits are conditional on IN_PROGRESS status, so
// concurrent writers for one attempt collapse to a single effect.
type sqlxAttemptRepository struct {
	db *sqlx.DB
}

// NewSQLXAttemptRepository creates a new instance of sqlxAttemptRepository.
func NewSQLXAttemptRepository(db *sqlx.DB) domain.AttemptRepository {
	return &sqlxAttemptRepository{db: db}
}

func toDomainAttempt(modelAttempt *models.Attempt) *domain.Attempt {
	if modelAttempt == nil {
		return nil
	}

	answers := make(domain.AnswerSet, len(modelAttempt.Answers))
	for questionID, encoded := range modelAttempt.Answers {
		answers[questionID] = encoded
	}

	return &domain.Attempt{
		ID:             modelAttempt.ID,
		QuizID:         modelAttempt.QuizID,
		ContestantID:   modelAttempt.ContestantID,
		QuestionOrder:  []string(modelAttempt.QuestionOrder),
		Answers:        answers,
		Status:         domain.AttemptStatus(modelAttempt.Status),
		StartedAt:      modelAttempt.StartedAt,
		Deadline:       util.NullTimeToPtr(modelAttempt.Deadline),
		SubmittedAt:    util.NullTimeToPtr(modelAttempt.SubmittedAt),
		ElapsedSeconds: util.NullInt64ToIntPtr(modelAttempt.ElapsedSeconds),
		Score:          util.NullInt64ToIntPtr(modelAttempt.Score),
		CreatedAt:      modelAttempt.CreatedAt,
		UpdatedAt:      modelAttempt.UpdatedAt,
	}
}

func fromDomainAttempt(domainAttempt *domain.Attempt) *models.Attempt {
	if domainAttempt == nil {
		return nil
	}

	answers := make(models.StringMap, len(domainAttempt.Answers))
	for questionID, encoded := range domainAttempt.Answers {
		answers[questionID] = encoded
	}

	return &models.Attempt{
		ID:             domainAttempt.ID,
		QuizID:         domainAttempt.QuizID,
		ContestantID:   domainAttempt.ContestantID,
		QuestionOrder:  models.StringSlice(domainAttempt.QuestionOrder),
		Answers:        answers,
		Status:         string(domainAttempt.Status),
		StartedAt:      domainAttempt.StartedAt,
		Deadline:       util.TimePtrToNullTime(domainAttempt.Deadline),
		SubmittedAt:    util.TimePtrToNullTime(domainAttempt.SubmittedAt),
		ElapsedSeconds: util.IntPtrToNullInt64(domainAttempt.ElapsedSeconds),
		Score:          util.IntPtrToNullInt64(domainAttempt.Score),
		CreatedAt:      domainAttempt.CreatedAt,
		UpdatedAt:      domainAttempt.UpdatedAt,
	}
}

const attemptColumns = `id, quiz_id, contestant_id, question_order, answers, status, started_at, deadline, submitted_at, elapsed_seconds, score, created_at, updated_at`

// GetByID retrieves an attempt by id.
func (r *sqlxAttemptRepository) GetByID(ctx context.Context, attemptID string) (*domain.Attempt, error) {
	var modelAttempt models.Attempt
	query := `SELECT ` + attemptColumns + ` FROM attempts WHERE id = $1`
	if err := r.db.GetContext(ctx, &modelAttempt, query, attemptID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get attempt %s: %w", attemptID, err)
	}
	return toDomainAttempt(&modelAttempt), nil
}

// GetByQuizAndContestant retrieves the contestant's attempt at a quiz.
func (r *sqlxAttemptRepository) GetByQuizAndContestant(ctx context.Context, quizID, contestantID string) (*domain.Attempt, error) {
	var modelAttempt models.Attempt
	query := `SELECT ` + attemptColumns + ` FROM attempts WHERE quiz_id = $1 AND contestant_id = $2`
	if err := r.db.GetContext(ctx, &modelAttempt, query, quizID, contestantID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get attempt for quiz %s contestant %s: %w", quizID, contestantID, err)
	}
	return toDomainAttempt(&modelAttempt), nil
}

// CreateAttempt persists a freshly started attempt. The unique constraint on
// (quiz_id, contestant_id) makes racing creators collapse onto one row; the
// loser's insert is a no-op and the stored row is re-read, so the caller
// always gets the winning attempt with its winning question order.
func (r *sqlxAttemptRepository) CreateAttempt(ctx context.Context, attempt *domain.Attempt) (*domain.Attempt, error) {
	modelAttempt := fromDomainAttempt(attempt)

	now := time.Now()
	if modelAttempt.CreatedAt.IsZero() {
		modelAttempt.CreatedAt = now
	}
	modelAttempt.UpdatedAt = now

	query := `INSERT INTO attempts (` + attemptColumns + `)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	          ON CONFLICT (quiz_id, contestant_id) DO NOTHING`
	_, err := r.db.ExecContext(ctx, query,
		modelAttempt.ID,
		modelAttempt.QuizID,
		modelAttempt.ContestantID,
		modelAttempt.QuestionOrder,
		modelAttempt.Answers,
		modelAttempt.Status,
		modelAttempt.StartedAt,
		modelAttempt.Deadline,
		modelAttempt.SubmittedAt,
		modelAttempt.ElapsedSeconds,
		modelAttempt.Score,
		modelAttempt.CreatedAt,
		modelAttempt.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create attempt: %w", err)
	}

	stored, err := r.GetByQuizAndContestant(ctx, attempt.QuizID, attempt.ContestantID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, domain.NewInternalError("attempt vanished after insert", nil)
	}
	return stored, nil
}

// SubmitAttempt finalizes an attempt. The WHERE clause on IN_PROGRESS status
// is the server-side idempotency guard: the first writer wins, every later
// writer affects zero rows and gets ATTEMPT_ALREADY_SUBMITTED.
func (r *sqlxAttemptRepository) SubmitAttempt(ctx context.Context, attemptID string, answers domain.AnswerSet, elapsedSeconds int, score int, submittedAt time.Time) error {
	modelAnswers := make(models.StringMap, len(answers))
	for questionID, encoded := range answers {
		modelAnswers[questionID] = encoded
	}

	query := `UPDATE attempts
	          SET answers = $1, status = $2, submitted_at = $3, elapsed_seconds = $4, score = $5, updated_at = $6
	          WHERE id = $7 AND status = $8`
	result, err := r.db.ExecContext(ctx, query,
		modelAnswers,
		string(domain.AttemptSubmitted),
		submittedAt,
		elapsedSeconds,
		score,
		time.Now(),
		attemptID,
		string(domain.AttemptInProgress),
	)
	if err != nil {
		return fmt.Errorf("failed to submit attempt %s: %w", attemptID, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read submit result for attempt %s: %w", attemptID, err)
	}
	if affected == 0 {
		stored, err := r.GetByID(ctx, attemptID)
		if err != nil {
			return err
		}
		if stored == nil {
			return domain.NewAttemptNotFoundError(attemptID)
		}
		return domain.NewAttemptAlreadySubmittedError(attemptID)
	}
	return nil
}

// ListInProgress returns all attempts still in progress.
func (r *sqlxAttemptRepository) ListInProgress(ctx context.Context) ([]*domain.Attempt, error) {
	var modelAttempts []models.Attempt
	query := `SELECT ` + attemptColumns + ` FROM attempts WHERE status = $1`
	if err := r.db.SelectContext(ctx, &modelAttempts, query, string(domain.AttemptInProgress)); err != nil {
		return nil, fmt.Errorf("failed to list in-progress attempts: %w", err)
	}

	attempts := make([]*domain.Attempt, 0, len(modelAttempts))
	for i := range modelAttempts {
		attempts = append(attempts, toDomainAttempt(&modelAttempts[i]))
	}
	return attempts, nil
}
