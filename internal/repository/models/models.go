package models

import (
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// StringSlice stores a []string column as a JSON array string.
type StringSlice []string

// Value implements the driver.Valuer interface
func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	jsonData, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return string(jsonData), nil
}

// Scan implements the sql.Scanner interface
func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = StringSlice{}
		return nil
	}

	var bytesToParse []byte
	switch v := value.(type) {
	case []byte:
		bytesToParse = v
	case string:
		bytesToParse = []byte(v)
	default:
		return errors.New("StringSlice Scan: unsupported type " + fmt.Sprintf("%T", value))
	}

	if len(bytesToParse) == 0 || string(bytesToParse) == "null" {
		*s = StringSlice{}
		return nil
	}
	return json.Unmarshal(bytesToParse, s)
}

// StringMap stores a map[string]string column as a JSON object string.
type StringMap map[string]string

// Value implements the driver.Valuer interface
func (m StringMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	jsonData, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	return string(jsonData), nil
}

// Scan implements the sql.Scanner interface
func (m *StringMap) Scan(value interface{}) error {
	if value == nil {
		*m = StringMap{}
		return nil
	}

	var bytesToParse []byte
	switch v := value.(type) {
	case []byte:
		bytesToParse = v
	case string:
		bytesToParse = []byte(v)
	default:
		return errors.New("StringMap Scan: unsupported type " + fmt.Sprintf("%T", value))
	}

	if len(bytesToParse) == 0 || string(bytesToParse) == "null" {
		*m = StringMap{}
		return nil
	}
	return json.Unmarshal(bytesToParse, m)
}

// Quiz is the quizzes table row.
type Quiz struct {
	ID               string         `db:"id"`
	Name             string         `db:"name"`
	Description      sql.NullString `db:"description"`
	TargetGroup      sql.NullString `db:"target_group"`
	TimeLimitMinutes sql.NullInt64  `db:"time_limit_minutes"`
	Status           string         `db:"status"`
	OpenAt           sql.NullTime   `db:"open_at"`
	CloseAt          sql.NullTime   `db:"close_at"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

// Question is the questions table row. Options holds the raw stored option
// payload; shape validation happens at the domain conversion.
type Question struct {
	ID            string         `db:"id"`
	QuizID        string         `db:"quiz_id"`
	Position      int            `db:"position"`
	Prompt        string         `db:"prompt"`
	ImageRef      sql.NullString `db:"image_ref"`
	AnswerType    string         `db:"answer_type"`
	Options       []byte         `db:"options"`
	CorrectAnswer string         `db:"correct_answer"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

// Attempt is the attempts table row.
type Attempt struct {
	ID             string        `db:"id"`
	QuizID         string        `db:"quiz_id"`
	ContestantID   string        `db:"contestant_id"`
	QuestionOrder  StringSlice   `db:"question_order"`
	Answers        StringMap     `db:"answers"`
	Status         string        `db:"status"`
	StartedAt      time.Time     `db:"started_at"`
	Deadline       sql.NullTime  `db:"deadline"`
	SubmittedAt    sql.NullTime  `db:"submitted_at"`
	ElapsedSeconds sql.NullInt64 `db:"elapsed_seconds"`
	Score          sql.NullInt64 `db:"score"`
	CreatedAt      time.Time     `db:"created_at"`
	UpdatedAt      time.Time     `db:"updated_at"`
}
