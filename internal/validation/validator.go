package validation

import (
	"quiz-arena/internal/domain"
	"regexp"
	"strings"
)

// Validator provides request validation functionality
type Validator struct{}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAttemptID validates an attempt id path parameter
func (v *Validator) ValidateAttemptID(attemptID string) domain.ValidationErrors {
	var errors domain.ValidationErrors

	if strings.TrimSpace(attemptID) == "" {
		errors = append(errors, domain.NewMissingFieldError("attempt_id"))
	} else if !isValidULID(attemptID) {
		errors = append(errors, domain.NewInvalidFormatError("attempt_id", attemptID))
	}

	return errors
}

// ValidateQuizID validates a quiz id path parameter
func (v *Validator) ValidateQuizID(quizID string) domain.ValidationErrors {
	var errors domain.ValidationErrors

	if strings.TrimSpace(quizID) == "" {
		errors = append(errors, domain.NewMissingFieldError("quiz_id"))
	} else if !isValidULID(quizID) {
		errors = append(errors, domain.NewInvalidFormatError("quiz_id", quizID))
	}

	return errors
}

// ValidateSaveAnswerRequest validates the save answer request
func (v *Validator) ValidateSaveAnswerRequest(attemptID, questionID string, selections []string) domain.ValidationErrors {
	var errors domain.ValidationErrors

	if idErrors := v.ValidateAttemptID(attemptID); len(idErrors) > 0 {
		errors = append(errors, idErrors...)
	}

	if strings.TrimSpace(questionID) == "" {
		errors = append(errors, domain.NewMissingFieldError("question_id"))
	}

	if len(selections) > 26 {
		errors = append(errors, domain.NewOutOfRangeError("selections", len(selections), 0, 26))
	}
	for _, label := range selections {
		if !isValidOptionLabel(label) {
			errors = append(errors, domain.NewInvalidFormatError("selections", label))
			break
		}
	}

	return errors
}

// Helper functions for validation

// isValidULID checks if the string is a valid ULID format
func isValidULID(s string) bool {
	// ULID is 26 characters long, base32 encoded
	if len(s) != 26 {
		return false
	}
	// Check if all characters are valid base32 (Crockford's Base32)
	validULID := regexp.MustCompile(`^[0-9A-HJKMNP-TV-Z]{26}$`)
	return validULID.MatchString(s)
}

// isValidOptionLabel checks if an answer option label is well formed
func isValidOptionLabel(s string) bool {
	// Labels are short identifiers such as "A" or "true"
	if len(s) == 0 || len(s) > 20 {
		return false
	}
	validLabel := regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	return validLabel.MatchString(s)
}
