package domain

import (
	"context"
	"time"
)

// QuizRepository defines the interface for quiz definition persistence.
type QuizRepository interface {
	// GetQuizWithQuestions retrieves a quiz and its ordered question set.
	// Returns nil when no such quiz exists.
	GetQuizWithQuestions(ctx context.Context, quizID string) (*QuizDefinition, error)
}

// AttemptRepository is the system of record for attempts. It is the
// submission gateway: SubmitAttempt is idempotent keyed by attempt id, so a
// retried submit neither double-scores nor errors.
type AttemptRepository interface {
	// GetByID retrieves an attempt by id. Returns nil when absent.
	GetByID(ctx context.Context, attemptID string) (*Attempt, error)

	// GetByQuizAndContestant retrieves the contestant's attempt at a quiz,
	// if one exists. At most one attempt exists per (quiz, contestant).
	GetByQuizAndContestant(ctx context.Context, quizID, contestantID string) (*Attempt, error)

	// CreateAttempt persists a freshly started attempt. Racing creators for
	// the same (quiz, contestant) collapse onto one row; the stored attempt
	// is returned either way.
	CreateAttempt(ctx context.Context, attempt *Attempt) (*Attempt, error)

	// SubmitAttempt finalizes an attempt with its answers, elapsed time and
	// score. Only an IN_PROGRESS attempt is updated; a second submit returns
	// an ATTEMPT_ALREADY_SUBMITTED error, which callers treat as success.
	SubmitAttempt(ctx context.Context, attemptID string, answers AnswerSet, elapsedSeconds int, score int, submittedAt time.Time) error

	// ListInProgress returns all attempts still in progress, used to re-arm
	// deadline timers after a restart.
	ListInProgress(ctx context.Context) ([]*Attempt, error)
}

// AttemptDraft is the resume snapshot held in the draft store: the active
// attempt id, the persisted question order, and every committed answer.
type AttemptDraft struct {
	AttemptID     string
	QuestionOrder []string
	Answers       AnswerSet
}

// DraftStore is the device-resume cache for in-progress answers, scoped per
// (contestant, quiz). It is not the system of record: the authoritative
// answer set lives behind AttemptRepository. It must tolerate absence (first
// visit) and must be cleared only after a confirmed successful submission,
// never speculatively, so a failed submit can still be retried from a reload.
type DraftStore interface {
	// Get returns the stored draft, or nil when none exists.
	Get(ctx context.Context, contestantID, quizID string) (*AttemptDraft, error)

	// Put stores or replaces the draft for the given scope.
	Put(ctx context.Context, contestantID, quizID string, draft *AttemptDraft) error

	// PutAnswer writes through a single answer change without rewriting the
	// whole draft.
	PutAnswer(ctx context.Context, contestantID, quizID, questionID, encoded string) error

	// Clear removes the draft. Called only after a confirmed submission.
	Clear(ctx context.Context, contestantID, quizID string) error
}
