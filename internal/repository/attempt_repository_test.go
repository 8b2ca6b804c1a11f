package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"quiz-arena/internal/domain"
	"quiz-arena/internal/repository/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupAttemptTestDB creates a new sqlx.DB instance and sqlmock for attempt repository testing.
func setupAttemptTestDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}
	sqlxDB := sqlx.NewDb(mockDB, "sqlmock")
	return sqlxDB, mock
}

func attemptRowColumns() []string {
	return []string{"id", "quiz_id", "contestant_id", "question_order", "answers", "status", "started_at", "deadline", "submitted_at", "elapsed_seconds", "score", "created_at", "updated_at"}
}

// --- Tests for Converter Functions ---

func TestToDomainAttempt(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	deadline := now.Add(time.Hour)
	modelAttempt := &models.Attempt{
		ID:             "attempt1",
		QuizID:         "quiz1",
		ContestantID:   "contestant1",
		QuestionOrder:  models.StringSlice{"q2", "q1"},
		Answers:        models.StringMap{"q1": "B"},
		Status:         "IN_PROGRESS",
		StartedAt:      now,
		Deadline:       sql.NullTime{Time: deadline, Valid: true},
		SubmittedAt:    sql.NullTime{},
		ElapsedSeconds: sql.NullInt64{},
		Score:          sql.NullInt64{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	domainAttempt := toDomainAttempt(modelAttempt)
	require.NotNil(t, domainAttempt)
	assert.Equal(t, "attempt1", domainAttempt.ID)
	assert.Equal(t, []string{"q2", "q1"}, domainAttempt.QuestionOrder)
	assert.Equal(t, domain.AnswerSet{"q1": "B"}, domainAttempt.Answers)
	assert.Equal(t, domain.AttemptInProgress, domainAttempt.Status)
	require.NotNil(t, domainAttempt.Deadline)
	assert.True(t, deadline.Equal(*domainAttempt.Deadline))
	assert.Nil(t, domainAttempt.SubmittedAt)
	assert.Nil(t, domainAttempt.Score)

	assert.Nil(t, toDomainAttempt(nil))
}

func TestFromDomainAttempt(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	elapsed := 600
	score := 7
	domainAttempt := &domain.Attempt{
		ID:             "attempt1",
		QuizID:         "quiz1",
		ContestantID:   "contestant1",
		QuestionOrder:  []string{"q1", "q2"},
		Answers:        domain.AnswerSet{"q2": "A,C"},
		Status:         domain.AttemptSubmitted,
		StartedAt:      now,
		SubmittedAt:    &now,
		ElapsedSeconds: &elapsed,
		Score:          &score,
	}

	modelAttempt := fromDomainAttempt(domainAttempt)
	require.NotNil(t, modelAttempt)
	assert.Equal(t, models.StringSlice{"q1", "q2"}, modelAttempt.QuestionOrder)
	assert.Equal(t, models.StringMap{"q2": "A,C"}, modelAttempt.Answers)
	assert.Equal(t, "SUBMITTED", modelAttempt.Status)
	assert.False(t, modelAttempt.Deadline.Valid)
	assert.True(t, modelAttempt.SubmittedAt.Valid)
	assert.Equal(t, int64(600), modelAttempt.ElapsedSeconds.Int64)
	assert.Equal(t, int64(7), modelAttempt.Score.Int64)
}

// --- Repository Tests ---

func TestGetByID_NotFound(t *testing.T) {
	db, mock := setupAttemptTestDB(t)
	defer db.Close()
	repo := NewSQLXAttemptRepository(db)

	mock.ExpectQuery(`SELECT .* FROM attempts WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	attempt, err := repo.GetByID(context.Background(), "missing")
	assert.NoError(t, err)
	assert.Nil(t, attempt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByID_Found(t *testing.T) {
	db, mock := setupAttemptTestDB(t)
	defer db.Close()
	repo := NewSQLXAttemptRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(attemptRowColumns()).
		AddRow("attempt1", "quiz1", "contestant1", []byte(`["q2","q1"]`), []byte(`{"q1":"B"}`), "IN_PROGRESS", now, nil, nil, nil, nil, now, now)
	mock.ExpectQuery(`SELECT .* FROM attempts WHERE id = \$1`).
		WithArgs("attempt1").
		WillReturnRows(rows)

	attempt, err := repo.GetByID(context.Background(), "attempt1")
	require.NoError(t, err)
	require.NotNil(t, attempt)
	assert.Equal(t, []string{"q2", "q1"}, attempt.QuestionOrder)
	assert.Equal(t, "B", attempt.Answers["q1"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAttempt_ReturnsStoredRow(t *testing.T) {
	db, mock := setupAttemptTestDB(t)
	defer db.Close()
	repo := NewSQLXAttemptRepository(db)

	now := time.Now()
	attempt := &domain.Attempt{
		ID:            "attempt1",
		QuizID:        "quiz1",
		ContestantID:  "contestant1",
		QuestionOrder: []string{"q1", "q2"},
		Answers:       domain.AnswerSet{},
		Status:        domain.AttemptInProgress,
		StartedAt:     now,
	}

	mock.ExpectExec(`INSERT INTO attempts`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	rows := sqlmock.NewRows(attemptRowColumns()).
		AddRow("attempt1", "quiz1", "contestant1", []byte(`["q1","q2"]`), []byte(`{}`), "IN_PROGRESS", now, nil, nil, nil, nil, now, now)
	mock.ExpectQuery(`SELECT .* FROM attempts WHERE quiz_id = \$1 AND contestant_id = \$2`).
		WithArgs("quiz1", "contestant1").
		WillReturnRows(rows)

	stored, err := repo.CreateAttempt(context.Background(), attempt)
	require.NoError(t, err)
	assert.Equal(t, "attempt1", stored.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAttempt_LoserGetsWinningRow(t *testing.T) {
	db, mock := setupAttemptTestDB(t)
	defer db.Close()
	repo := NewSQLXAttemptRepository(db)

	now := time.Now()
	attempt := &domain.Attempt{
		ID:            "loser-attempt",
		QuizID:        "quiz1",
		ContestantID:  "contestant1",
		QuestionOrder: []string{"q2", "q1"},
		Answers:       domain.AnswerSet{},
		Status:        domain.AttemptInProgress,
		StartedAt:     now,
	}

	// ON CONFLICT DO NOTHING swallows the duplicate insert
	mock.ExpectExec(`INSERT INTO attempts`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	rows := sqlmock.NewRows(attemptRowColumns()).
		AddRow("winner-attempt", "quiz1", "contestant1", []byte(`["q1","q2"]`), []byte(`{}`), "IN_PROGRESS", now, nil, nil, nil, nil, now, now)
	mock.ExpectQuery(`SELECT .* FROM attempts WHERE quiz_id = \$1 AND contestant_id = \$2`).
		WithArgs("quiz1", "contestant1").
		WillReturnRows(rows)

	stored, err := repo.CreateAttempt(context.Background(), attempt)
	require.NoError(t, err)
	// The winner's attempt, including its question order, is authoritative
	assert.Equal(t, "winner-attempt", stored.ID)
	assert.Equal(t, []string{"q1", "q2"}, stored.QuestionOrder)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitAttempt_FirstWriterWins(t *testing.T) {
	db, mock := setupAttemptTestDB(t)
	defer db.Close()
	repo := NewSQLXAttemptRepository(db)

	mock.ExpectExec(`UPDATE attempts`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SubmitAttempt(context.Background(), "attempt1", domain.AnswerSet{"q1": "B"}, 600, 1, time.Now())
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitAttempt_SecondWriterGetsAlreadySubmitted(t *testing.T) {
	db, mock := setupAttemptTestDB(t)
	defer db.Close()
	repo := NewSQLXAttemptRepository(db)

	now := time.Now()
	mock.ExpectExec(`UPDATE attempts`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	rows := sqlmock.NewRows(attemptRowColumns()).
		AddRow("attempt1", "quiz1", "contestant1", []byte(`[]`), []byte(`{}`), "SUBMITTED", now, nil, now, 600, 5, now, now)
	mock.ExpectQuery(`SELECT .* FROM attempts WHERE id = \$1`).
		WithArgs("attempt1").
		WillReturnRows(rows)

	err := repo.SubmitAttempt(context.Background(), "attempt1", domain.AnswerSet{}, 700, 2, time.Now())
	assert.True(t, domain.IsAlreadySubmitted(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubmitAttempt_MissingAttempt(t *testing.T) {
	db, mock := setupAttemptTestDB(t)
	defer db.Close()
	repo := NewSQLXAttemptRepository(db)

	mock.ExpectExec(`UPDATE attempts`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT .* FROM attempts WHERE id = \$1`).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	err := repo.SubmitAttempt(context.Background(), "ghost", domain.AnswerSet{}, 0, 0, time.Now())

	var domainErr *domain.DomainError
	assert.ErrorAs(t, err, &domainErr)
	assert.Equal(t, domain.CodeAttemptNotFound, domainErr.Code)
}

func TestSubmitAttempt_DBError(t *testing.T) {
	db, mock := setupAttemptTestDB(t)
	defer db.Close()
	repo := NewSQLXAttemptRepository(db)

	mock.ExpectExec(`UPDATE attempts`).
		WillReturnError(errors.New("connection reset"))

	err := repo.SubmitAttempt(context.Background(), "attempt1", domain.AnswerSet{}, 0, 0, time.Now())
	assert.Error(t, err)
	assert.False(t, domain.IsAlreadySubmitted(err))
}

func TestListInProgress(t *testing.T) {
	db, mock := setupAttemptTestDB(t)
	defer db.Close()
	repo := NewSQLXAttemptRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(attemptRowColumns()).
		AddRow("a1", "quiz1", "c1", []byte(`["q1"]`), []byte(`{}`), "IN_PROGRESS", now, nil, nil, nil, nil, now, now).
		AddRow("a2", "quiz2", "c2", []byte(`["q1"]`), []byte(`{}`), "IN_PROGRESS", now, nil, nil, nil, nil, now, now)
	mock.ExpectQuery(`SELECT .* FROM attempts WHERE status = \$1`).
		WithArgs("IN_PROGRESS").
		WillReturnRows(rows)

	attempts, err := repo.ListInProgress(context.Background())
	require.NoError(t, err)
	assert.Len(t, attempts, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}
