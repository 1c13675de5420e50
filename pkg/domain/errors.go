package domain

import (
	"errors"
	"fmt"
)

// Wire-level error type names, as they appear in response envelopes.
const (
	ErrTypeValidation        = "ValidationError"
	ErrTypeInvalidTransition = "InvalidTransitionError"
	ErrTypeUnknownMethod     = "UnknownMethodError"
	ErrTypeUnknownSession    = "UnknownSessionError"
	ErrTypeDuplicateMethod   = "DuplicateMethodError"
	ErrTypePersistence       = "PersistenceError"
	ErrTypeInternal          = "InternalError"
)

// ErrSessionExists is returned when attaching a session whose id is
// already live.
var ErrSessionExists = errors.New("session already attached")

// ValidationError reports a command payload that failed validation.
// Raised before any state is touched and before any persistence attempt.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid payload: field %q %s", e.Field, e.Reason)
}

// MissingField is the common validation failure: a required payload
// field that is absent or empty.
func MissingField(field string) *ValidationError {
	return &ValidationError{Field: field, Reason: "is required"}
}

// InvalidTransitionError reports a task lifecycle operation that is not
// legal from the task's current state. Raised before any mutation.
type InvalidTransitionError struct {
	TaskID string
	From   TaskState
	Op     string

	// Reason replaces the default from-state detail when the violation
	// is a session-level precondition rather than the task's own state.
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("task %q: cannot %s: %s", e.TaskID, e.Op, e.Reason)
	}
	return fmt.Sprintf("task %q: cannot %s from %s", e.TaskID, e.Op, e.From)
}

// UnknownMethodError reports a dispatch to a method nobody registered.
type UnknownMethodError struct {
	Method Method
}

func (e *UnknownMethodError) Error() string {
	return fmt.Sprintf("unknown method %q", e.Method)
}

// UnknownSessionError reports a command addressed to a session that is
// not live (never attached, or already torn down).
type UnknownSessionError struct {
	SessionID string
}

func (e *UnknownSessionError) Error() string {
	return fmt.Sprintf("unknown session %q", e.SessionID)
}

// DuplicateMethodError reports a second registration under a name that
// is already taken. Registration happens at startup, so this aborts boot.
type DuplicateMethodError struct {
	Method Method
}

func (e *DuplicateMethodError) Error() string {
	return fmt.Sprintf("method %q already registered", e.Method)
}

// PersistenceError wraps a backing-service failure that interrupted a
// command after its local effects, if any, were already applied. The
// classification is the data client's terminal verdict (for example
// TIMEOUT or NETWORK_ERROR); callers branch on it, never on transport
// detail.
type PersistenceError struct {
	Classification string
	Err            error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed (%s): %v", e.Classification, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// Classify maps an error to its response envelope form. This is the
// single place dispatch failures become wire errors; anything the
// taxonomy does not recognize is reported as InternalError with its
// detail withheld from the caller.
func Classify(err error) *ErrorInfo {
	var (
		validation *ValidationError
		transition *InvalidTransitionError
		method     *UnknownMethodError
		session    *UnknownSessionError
		duplicate  *DuplicateMethodError
		persist    *PersistenceError
	)
	switch {
	case errors.As(err, &validation):
		return &ErrorInfo{Type: ErrTypeValidation, Message: validation.Error()}
	case errors.As(err, &transition):
		return &ErrorInfo{Type: ErrTypeInvalidTransition, Message: transition.Error()}
	case errors.As(err, &method):
		return &ErrorInfo{Type: ErrTypeUnknownMethod, Message: method.Error()}
	case errors.As(err, &session):
		return &ErrorInfo{Type: ErrTypeUnknownSession, Message: session.Error()}
	case errors.As(err, &duplicate):
		return &ErrorInfo{Type: ErrTypeDuplicateMethod, Message: duplicate.Error()}
	case errors.As(err, &persist):
		return &ErrorInfo{
			Type:           ErrTypePersistence,
			Classification: persist.Classification,
			Message:        persist.Error(),
		}
	default:
		return &ErrorInfo{Type: ErrTypeInternal, Message: "internal error"}
	}
}
