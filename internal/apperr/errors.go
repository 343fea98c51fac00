// Package apperr defines the client-facing error taxonomy of the dispatch API.
package apperr

import (
	"errors"
	"fmt"
)

// Code is a machine-readable error identifier returned to API clients
type Code string

// Client error codes
const (
	CodeAgentNotFound       Code = "AGENT_NOT_FOUND"
	CodeTaskNotFound        Code = "TASK_NOT_FOUND"
	CodeTaskNotOwned        Code = "TASK_NOT_OWNED"
	CodeTaskNotActive       Code = "TASK_NOT_ACTIVE"
	CodeImplausibleLocation Code = "IMPLAUSIBLE_LOCATION"
	CodeMalformedRequest    Code = "MALFORMED_REQUEST"
	CodeValidationFailed    Code = "VALIDATION_FAILED"
	CodeInvalidIdentifier   Code = "INVALID_IDENTIFIER"
	CodeInvalidGeometry     Code = "INVALID_GEOMETRY"
	CodeArchiveNotFound     Code = "ARCHIVE_NOT_FOUND"
)

// Error is a client error: the request was understood but cannot be served
// as sent. Anything that is not an *Error is an internal failure.
type Error struct {
	Code    Code              `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"errors,omitempty"`
	Err     error             `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error carrying the same code, so errors.Is(err, ErrTaskNotFound)
// holds for every error built by TaskNotFound.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// Sentinels for errors.Is checks
var (
	ErrAgentNotFound       = &Error{Code: CodeAgentNotFound}
	ErrTaskNotFound        = &Error{Code: CodeTaskNotFound}
	ErrTaskNotOwned        = &Error{Code: CodeTaskNotOwned}
	ErrTaskNotActive       = &Error{Code: CodeTaskNotActive}
	ErrImplausibleLocation = &Error{Code: CodeImplausibleLocation}
	ErrMalformedRequest    = &Error{Code: CodeMalformedRequest}
	ErrValidationFailed    = &Error{Code: CodeValidationFailed}
	ErrInvalidIdentifier   = &Error{Code: CodeInvalidIdentifier}
	ErrInvalidGeometry     = &Error{Code: CodeInvalidGeometry}
	ErrArchiveNotFound     = &Error{Code: CodeArchiveNotFound}
)

// New creates a client error
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap creates a client error that keeps the underlying cause
func Wrap(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// AgentNotFound reports that no agent is linked to the user
func AgentNotFound(userID int64) *Error {
	return New(CodeAgentNotFound, fmt.Sprintf("no agent linked to user %d", userID))
}

// TaskNotFound reports a missing task
func TaskNotFound(taskID int64) *Error {
	return New(CodeTaskNotFound, fmt.Sprintf("task %d not found", taskID))
}

// TaskNotOwned reports that the task is assigned to another agent
func TaskNotOwned(taskID, agentID int64) *Error {
	return New(CodeTaskNotOwned, fmt.Sprintf("task %d is not assigned to agent %d", taskID, agentID))
}

// TaskNotActive reports a task that no longer accepts location events
func TaskNotActive(taskID int64, status string) *Error {
	return New(CodeTaskNotActive, fmt.Sprintf("task %d is %s and does not accept locations", taskID, status))
}

// ImplausibleLocation reports a reading rejected by the credibility rules
func ImplausibleLocation() *Error {
	return New(CodeImplausibleLocation, "location reading is not physically plausible")
}

// MalformedRequest reports a body that is not valid JSON or does not match the schema
func MalformedRequest(err error) *Error {
	return Wrap(CodeMalformedRequest, "malformed request body", err)
}

// ValidationFailed reports field-level constraint failures keyed by JSON path
func ValidationFailed(fields map[string]string) *Error {
	return &Error{Code: CodeValidationFailed, Message: "request validation failed", Fields: fields}
}

// InvalidIdentifier reports an opaque identifier that cannot be decoded
func InvalidIdentifier(kind string, err error) *Error {
	return Wrap(CodeInvalidIdentifier, fmt.Sprintf("invalid %s identifier", kind), err)
}

// InvalidGeometry reports stored or supplied geometry that cannot be parsed
func InvalidGeometry(err error) *Error {
	return Wrap(CodeInvalidGeometry, "invalid geometry", err)
}

// ArchiveNotFound reports that a task has not been archived yet
func ArchiveNotFound(taskID int64) *Error {
	return New(CodeArchiveNotFound, fmt.Sprintf("no trajectory archive for task %d", taskID))
}

// As extracts a client error from an error chain
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
