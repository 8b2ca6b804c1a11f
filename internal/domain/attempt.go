package domain

import "time"

// AttemptStatus is the lifecycle state of an attempt as persisted.
type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "IN_PROGRESS"
	AttemptSubmitted  AttemptStatus = "SUBMITTED"
)

// AnswerSet maps question id to the canonical encoded answer string. A
// question absent from the set is unanswered.
type AnswerSet map[string]string

// Clone returns an independent copy of the answer set.
func (a AnswerSet) Clone() AnswerSet {
	out := make(AnswerSet, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Attempt is one contestant's run at a quiz. Created server-side the first
// time a contestant opens an unattempted quiz; transitions to SUBMITTED
// exactly once and is never deleted by the engine.
type Attempt struct {
	ID             string
	QuizID         string
	ContestantID   string
	QuestionOrder  []string // permutation of question ids, fixed for the attempt's lifetime
	Answers        AnswerSet
	Status         AttemptStatus
	StartedAt      time.Time
	Deadline       *time.Time // nil = unlimited
	SubmittedAt    *time.Time
	ElapsedSeconds *int
	Score          *int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Remaining returns the time left until the deadline at the given instant,
// clamped at zero. The second value is false for unlimited attempts.
func (a *Attempt) Remaining(now time.Time) (time.Duration, bool) {
	if a.Deadline == nil {
		return 0, false
	}
	remaining := a.Deadline.Sub(now)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

// Elapsed computes the elapsed seconds for scoring at the given instant,
// capped at the time limit when one exists. Wall-clock drift on the client is
// irrelevant: this is always derived from the server-issued start timestamp.
func (a *Attempt) Elapsed(now time.Time) int {
	elapsed := now.Sub(a.StartedAt)
	if elapsed < 0 {
		elapsed = 0
	}
	if a.Deadline != nil {
		if limit := a.Deadline.Sub(a.StartedAt); elapsed > limit {
			elapsed = limit
		}
	}
	return int(elapsed / time.Second)
}

// SubmissionResult is the summary returned once an attempt is submitted.
type SubmissionResult struct {
	AttemptID      string
	Score          int
	TotalQuestions int
	ElapsedSeconds int
	SubmittedAt    time.Time
}

// ScoreAnswers counts exact matches between the canonical encodings of the
// contestant's answers and the correct-answer specifications. Both sides use
// the same encoding, so comparison is plain string equality.
func ScoreAnswers(questions []QuestionDefinition, answers AnswerSet) int {
	score := 0
	for _, q := range questions {
		raw, ok := answers[q.ID]
		if !ok || raw == "" {
			continue
		}
		if raw == q.CorrectAnswer {
			score++
		}
	}
	return score
}
