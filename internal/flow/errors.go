package flow

import (
	"errors"
	"fmt"
)

// ErrPollTimeout is surfaced when the poller exhausts its consecutive
// failure budget. The flow stops polling and the user gets an escape hatch,
// never an endless spinner.
var ErrPollTimeout = errors.New("status polling gave up after repeated failures")

// ErrorKind classifies a failure for screen-level presentation.
type ErrorKind string

const (
	ErrorKindNetwork    ErrorKind = "NETWORK"
	ErrorKindAuth       ErrorKind = "AUTH"
	ErrorKindNotReady   ErrorKind = "NOT_READY" // 404: matching has not run yet
	ErrorKindNoMatch    ErrorKind = "NO_MATCH"  // 404: matching ran, no partner
	ErrorKindValidation ErrorKind = "VALIDATION"
	ErrorKindServer     ErrorKind = "SERVER"
)

// Error is a user-presentable failure. The backend's {"error": ...} message
// is carried verbatim where practical.
type Error struct {
	Kind    ErrorKind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.cause }

// Retriable reports whether the user re-triggering the action can help.
// Dispatcher actions are never auto-retried.
func (e *Error) Retriable() bool {
	switch e.Kind {
	case ErrorKindNetwork, ErrorKindServer, ErrorKindNotReady:
		return true
	}
	return false
}

func newError(kind ErrorKind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, cause: cause}
}
