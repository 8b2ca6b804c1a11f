package domain

import (
	"encoding/json"
	"sort"
	"time"
)

// AnswerType classifies how a question is answered.
type AnswerType string

const (
	SingleSelection   AnswerType = "single_selection"
	MultipleSelection AnswerType = "multiple_selection"
	Binary            AnswerType = "binary"
)

// IsValid reports whether t is a known answer type.
func (t AnswerType) IsValid() bool {
	switch t {
	case SingleSelection, MultipleSelection, Binary:
		return true
	}
	return false
}

// Option is one selectable choice of a question. Labels are unique within a
// question ("A".."D" by convention).
type Option struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// QuestionDefinition is one question of a quiz. Immutable once an attempt
// has started against the owning quiz.
type QuestionDefinition struct {
	ID            string
	Prompt        string // may embed math markup, rendered client-side
	ImageRef      string
	AnswerType    AnswerType
	Options       []Option
	CorrectAnswer string // canonical encoding, same format as contestant answers
}

// QuizDefinition is the full definition of a quiz as served to an attempt.
type QuizDefinition struct {
	ID               string
	Name             string
	Description      string
	TargetGroup      string
	TimeLimitMinutes *int // nil = unlimited
	Status           string
	OpenAt           *time.Time
	CloseAt          *time.Time
	Questions        []QuestionDefinition
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// QuizStatusPublished is the only status an attempt may start against.
const QuizStatusPublished = "published"

// TimeLimit returns the quiz time limit as a duration, or false when unlimited.
func (q *QuizDefinition) TimeLimit() (time.Duration, bool) {
	if q.TimeLimitMinutes == nil || *q.TimeLimitMinutes <= 0 {
		return 0, false
	}
	return time.Duration(*q.TimeLimitMinutes) * time.Minute, true
}

// AvailableAt reports whether the quiz can accept a new or resumed attempt at
// the given instant. The reason is empty when available.
func (q *QuizDefinition) AvailableAt(now time.Time) (bool, string) {
	if q.Status != QuizStatusPublished {
		return false, "not published"
	}
	if q.OpenAt != nil && now.Before(*q.OpenAt) {
		return false, "not yet open"
	}
	if q.CloseAt != nil && now.After(*q.CloseAt) {
		return false, "already closed"
	}
	return true, ""
}

// QuestionByID returns the question with the given id, or nil.
func (q *QuizDefinition) QuestionByID(id string) *QuestionDefinition {
	for i := range q.Questions {
		if q.Questions[i].ID == id {
			return &q.Questions[i]
		}
	}
	return nil
}

// Validate validates the quiz definition.
func (q *QuizDefinition) Validate() error {
	if q.Name == "" {
		return NewInvalidInputError("name is required")
	}
	if len(q.Questions) == 0 {
		return NewInvalidInputError("at least one question is required")
	}
	for _, question := range q.Questions {
		if !question.AnswerType.IsValid() {
			return NewInvalidInputError("unknown answer type: " + string(question.AnswerType))
		}
	}
	return nil
}

// PlaceholderOptions is the fallback option set presented when a question's
// stored options are missing or malformed. Degrades the UI, never the attempt.
func PlaceholderOptions() []Option {
	return []Option{
		{Label: "A", Text: "Option A"},
		{Label: "B", Text: "Option B"},
		{Label: "C", Text: "Option C"},
		{Label: "D", Text: "Option D"},
	}
}

// NormalizeOptions parses a stored option payload into a validated option
// list. It accepts the two shapes that occur in the wild, an array of
// {label,text} objects or a plain label->text object, and falls back to
// PlaceholderOptions for anything else. The second return value is false when
// the fallback was taken, so the caller can log a data-quality warning.
func NormalizeOptions(raw []byte) ([]Option, bool) {
	if len(raw) == 0 {
		return PlaceholderOptions(), false
	}

	var asArray []Option
	if err := json.Unmarshal(raw, &asArray); err == nil && len(asArray) > 0 {
		seen := make(map[string]bool, len(asArray))
		valid := asArray[:0]
		for _, opt := range asArray {
			if opt.Label == "" || seen[opt.Label] {
				continue
			}
			seen[opt.Label] = true
			valid = append(valid, opt)
		}
		if len(valid) > 0 {
			return valid, true
		}
		return PlaceholderOptions(), false
	}

	var asMap map[string]string
	if err := json.Unmarshal(raw, &asMap); err == nil && len(asMap) > 0 {
		options := make([]Option, 0, len(asMap))
		for label, text := range asMap {
			if label == "" {
				continue
			}
			options = append(options, Option{Label: label, Text: text})
		}
		if len(options) > 0 {
			sort.Slice(options, func(i, j int) bool { return options[i].Label < options[j].Label })
			return options, true
		}
	}

	return PlaceholderOptions(), false
}
