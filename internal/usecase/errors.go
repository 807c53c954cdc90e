package usecase

import "fmt"

// ErrorCode is the closed set of failure codes surfaced on the wire.
type ErrorCode string

const (
	ErrorValidation       ErrorCode = "VALIDATION_ERROR"
	ErrorQuestionNotFound ErrorCode = "QUESTION_NOT_FOUND"
	ErrorQuestionClosed   ErrorCode = "QUESTION_CLOSED"
	ErrorQuotaExceeded    ErrorCode = "AGENT_QUOTA_EXCEEDED"
	ErrorInternal         ErrorCode = "SERVER_ERROR"
)

// Error carries a wire-level code and message plus optional field details.
// Handlers switch on Code to pick the HTTP status.
type Error struct {
	Code    ErrorCode
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("usecase: %s: %s: %v", e.Code, e.Message, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func validationError(message string, details map[string]any) *Error {
	return &Error{Code: ErrorValidation, Message: message, Details: details}
}

func requiredField(field, message string) *Error {
	return validationError(message, map[string]any{"field": field, "constraint": "required"})
}

func rangeField(field, message string, min, max int) *Error {
	return validationError(message, map[string]any{"field": field, "constraint": "range", "min": min, "max": max})
}
