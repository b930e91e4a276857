package types

import (
	"errors"
	"fmt"
)

// ErrorCode is a stable, machine-readable error classification.
type ErrorCode string

// Error code constants
const (
	CodeInvalidInput        ErrorCode = "invalid_input"
	CodeNotFound            ErrorCode = "not_found"
	CodeUnknownQuestionType ErrorCode = "unknown_question_type"
	CodeIO                  ErrorCode = "io"
)

var (
	// ErrNotFound indicates that the requested session, inquiry or memory does not exist.
	ErrNotFound = errors.New("resource not found")

	// ErrInvalidInput indicates that the input parameters are invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownQuestionType indicates a question type outside the closed set.
	ErrUnknownQuestionType = errors.New("unknown question type")
)

// Error is a structured error value with a stable code.
// Extractable via errors.As(). Supports Unwrap().
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

// NewError builds an *Error wrapping err.
func NewError(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil && !isSentinel(e.Err) {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func isSentinel(err error) bool {
	return err == ErrNotFound || err == ErrInvalidInput || err == ErrUnknownQuestionType
}

func (e *Error) Unwrap() error { return e.Err }

// CodeOf returns the code of the first *Error in err's chain, or "" if none.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
