package validator

import (
	"strings"
	"time"
)

// Code classifies a validation failure independently of its message.
type Code string

const CodeRequired Code = "required"

type ValidationError struct {
	Field   string
	Message string
	Code    Code
}

// Required builds the error for a missing field.
func Required(field string) ValidationError {
	return ValidationError{Field: field, Message: field + " is required", Code: CodeRequired}
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	var msgs []string
	for _, err := range v {
		msgs = append(msgs, err.Field+": "+err.Message)
	}
	return strings.Join(msgs, "; ")
}

// HasCode reports whether any error carries code.
func (v ValidationErrors) HasCode(code Code) bool {
	for _, err := range v {
		if err.Code == code {
			return true
		}
	}
	return false
}

func (v ValidationErrors) ToMap() map[string]string {
	result := make(map[string]string)
	for _, err := range v {
		result[err.Field] = err.Message
	}
	return result
}

// IsEmpty checks if a string is empty after trimming whitespace.
func IsEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}

// IsValidDate parses a civil date in "YYYY-MM-DD" format. The result is
// midnight UTC; callers needing the organization's zone re-parse in it.
func IsValidDate(dateStr string) (time.Time, bool) {
	date, err := time.Parse("2006-01-02", dateStr)
	return date, err == nil
}
