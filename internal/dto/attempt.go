package dto

import "time"

// OptionResponse is one selectable choice of a question.
type OptionResponse struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// QuestionResponse is a question as presented to the contestant. The correct
// answer never leaves the server.
type QuestionResponse struct {
	ID         string           `json:"id"`
	Prompt     string           `json:"prompt"`
	ImageRef   string           `json:"image_ref,omitempty"`
	AnswerType string           `json:"answer_type"`
	Options    []OptionResponse `json:"options"`
}

// StartAttemptResponse is returned when a contestant opens a quiz. Questions
// come back in the attempt's fixed shuffled order; answers carry any draft
// the contestant already committed, so a reload resumes where it left off.
// @Description Attempt bootstrap payload
type StartAttemptResponse struct {
	AttemptID        string             `json:"attempt_id"`
	QuizID           string             `json:"quiz_id"`
	QuizName         string             `json:"quiz_name"`
	Description      string             `json:"description,omitempty"`
	TimeLimitMinutes *int               `json:"time_limit_minutes,omitempty"`
	RemainingSeconds *int               `json:"remaining_seconds,omitempty"`
	Questions        []QuestionResponse `json:"questions"`
	Answers          map[string]string  `json:"answers"`
	Status           string             `json:"status"`
}

// SaveAnswerRequest carries the contestant's selected option labels.
// @Description Request body for saving an answer
type SaveAnswerRequest struct {
	Selections []string `json:"selections"`
}

// SaveAnswerResponse confirms a saved answer with its canonical encoding.
type SaveAnswerResponse struct {
	QuestionID string `json:"question_id"`
	Encoded    string `json:"encoded"`
	Answered   bool   `json:"answered"`
}

// SubmitAttemptResponse is the result summary of a submitted attempt.
type SubmitAttemptResponse struct {
	AttemptID      string    `json:"attempt_id"`
	Score          int       `json:"score"`
	TotalQuestions int       `json:"total_questions"`
	ElapsedSeconds int       `json:"elapsed_seconds"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

// AttemptStateResponse is the rehydration payload for an in-flight attempt.
type AttemptStateResponse struct {
	AttemptID        string            `json:"attempt_id"`
	QuizID           string            `json:"quiz_id"`
	Status           string            `json:"status"`
	RemainingSeconds *int              `json:"remaining_seconds,omitempty"`
	QuestionOrder    []string          `json:"question_order"`
	Answers          map[string]string `json:"answers"`
}
