package domain

import (
	"encoding/json"
	"fmt"
)

// ErrorCode identifies a class of domain failure.
type ErrorCode string

const (
	// Common errors
	CodeInternal     ErrorCode = "INTERNAL_ERROR"
	CodeInvalidInput ErrorCode = "INVALID_INPUT"
	CodeNotFound     ErrorCode = "NOT_FOUND"
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"
	CodeValidation   ErrorCode = "VALIDATION_FAILED"

	// Attempt engine errors
	CodeQuizUnavailable         ErrorCode = "QUIZ_UNAVAILABLE"
	CodeInvalidSelection        ErrorCode = "INVALID_SELECTION"
	CodeAttemptNotFound         ErrorCode = "ATTEMPT_NOT_FOUND"
	CodeAttemptAlreadySubmitted ErrorCode = "ATTEMPT_ALREADY_SUBMITTED"

	// Validation sub-codes
	CodeMissingField  ErrorCode = "MISSING_FIELD"
	CodeInvalidFormat ErrorCode = "INVALID_FORMAT"
	CodeOutOfRange    ErrorCode = "OUT_OF_RANGE"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Context map[string]interface{} `json:"context,omitempty"`
	Cause   error                  `json:"-"`
}

func (e *DomainError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Cause
}

// MarshalJSON implements the json.Marshaler interface
func (e *DomainError) MarshalJSON() ([]byte, error) {
	return json.Marshal(&struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}{
		Code:    string(e.Code),
		Message: e.Message,
	})
}

// NewError creates a new DomainError
func NewError(code ErrorCode, message string, cause error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Helper constructors for common errors

func NewInternalError(message string, cause error) *DomainError {
	return NewError(CodeInternal, message, cause)
}

func NewInvalidInputError(message string) *DomainError {
	return NewError(CodeInvalidInput, message, nil)
}

func NewNotFoundError(message string) *DomainError {
	return NewError(CodeNotFound, message, nil)
}

func NewUnauthorizedError(message string) *DomainError {
	return NewError(CodeUnauthorized, message, nil)
}

// NewQuizUnavailableError is returned when a quiz is unpublished, outside its
// open window, or its results have already been finalized. Fatal for the
// attempt: retrying the fetch will not change the outcome.
func NewQuizUnavailableError(quizID string, reason string) *DomainError {
	e := NewError(CodeQuizUnavailable, fmt.Sprintf("Quiz %s is not available: %s", quizID, reason), nil)
	e.Context = map[string]interface{}{"quiz_id": quizID, "reason": reason}
	return e
}

// NewInvalidSelectionError indicates a malformed encode call. The UI cannot
// produce one, so this surfaces programmer error, not user error.
func NewInvalidSelectionError(message string) *DomainError {
	return NewError(CodeInvalidSelection, message, nil)
}

func NewAttemptNotFoundError(attemptID string) *DomainError {
	return NewError(CodeAttemptNotFound, fmt.Sprintf("Attempt not found: %s", attemptID), nil)
}

// NewAttemptAlreadySubmittedError marks the benign race outcome where an
// earlier submit already landed for this attempt. Callers treat it as success.
func NewAttemptAlreadySubmittedError(attemptID string) *DomainError {
	return NewError(CodeAttemptAlreadySubmitted, fmt.Sprintf("Attempt already submitted: %s", attemptID), nil)
}

// IsAlreadySubmitted reports whether err is the benign already-submitted outcome.
func IsAlreadySubmitted(err error) bool {
	if de, ok := err.(*DomainError); ok {
		return de.Code == CodeAttemptAlreadySubmitted
	}
	return false
}

// ValidationError describes a single failed field check.
type ValidationError struct {
	Field   string    `json:"field"`
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors aggregates field-level validation failures for a request.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	return fmt.Sprintf("validation failed: %s", e[0].Error())
}

func NewMissingFieldError(field string) ValidationError {
	return ValidationError{Field: field, Code: CodeMissingField, Message: "is required"}
}

func NewInvalidFormatError(field string, value string) ValidationError {
	return ValidationError{Field: field, Code: CodeInvalidFormat, Message: fmt.Sprintf("has invalid format: %q", value)}
}

func NewOutOfRangeError(field string, got, min, max int) ValidationError {
	return ValidationError{Field: field, Code: CodeOutOfRange, Message: fmt.Sprintf("length %d is out of range [%d, %d]", got, min, max)}
}
