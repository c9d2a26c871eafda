// Package errors provides the error taxonomy for the round engine.
//
// # Error Types
//
// Four structured error types cover every failure the engine reports:
//   - ValidationError: a draft was rejected locally before any remote call
//   - ConcurrentSubmissionError: a submission was attempted while another
//     one is outstanding
//   - ResolutionError: the remote turn resolver failed, returned garbage, or
//     timed out
//   - StateInconsistencyError: the current snapshot lacks data a dependent
//     operation needs; fatal to the session
//
// Turn-order violations that are not one of the above are reported with
// sentinel errors (ErrNotYourTurn, ErrSessionEnded, ErrNoSession).
//
// # Usage
//
//	var resErr *errors.ResolutionError
//	if errors.As(err, &resErr) {
//	    show(resErr.UserMessage())
//	}
//
//	if errors.Is(err, errors.ErrTimeout) { ... }
//	if errors.IsRetryable(err) { ... }
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Re-export standard library functions for convenience.
// This allows callers to import only this package for all error handling.
var (
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
	New    = errors.New
	Join   = errors.Join
)

// Severity represents the severity level of an error.
type Severity int

const (
	// SeverityDebug is for errors that are useful for debugging but not critical.
	SeverityDebug Severity = iota
	// SeverityInfo is for informational errors that don't indicate a problem.
	SeverityInfo
	// SeverityWarning is for errors that might indicate a problem but aren't critical.
	SeverityWarning
	// SeverityError is for errors that indicate a real problem.
	SeverityError
	// SeverityCritical is for errors that end the session.
	SeverityCritical
)

// String returns the string representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// -----------------------------------------------------------------------------
// Sentinel Errors
// -----------------------------------------------------------------------------

// Turn-order sentinel errors
var (
	// ErrNoSession indicates that no session has been started yet.
	ErrNoSession = New("no active session")
	// ErrSessionEnded indicates that the session reached its terminal phase.
	ErrSessionEnded = New("session has ended")
	// ErrNotYourTurn indicates that the acting party does not hold the turn.
	ErrNotYourTurn = New("not this actor's turn")
	// ErrInvalidTransition indicates a phase transition the state machine forbids.
	ErrInvalidTransition = New("invalid phase transition")
	// ErrSubmissionInFlight indicates that a submission is already outstanding.
	ErrSubmissionInFlight = New("submission already in flight")
)

// Remote and state sentinel errors
var (
	// ErrRemoteFailure indicates the remote resolver reported a failure.
	ErrRemoteFailure = New("remote resolver failure")
	// ErrMalformedSnapshot indicates the remote resolver returned an unusable body.
	ErrMalformedSnapshot = New("malformed snapshot")
	// ErrMissingArticle indicates a snapshot without an article.
	ErrMissingArticle = New("snapshot has no article")
	// ErrMissingPlatforms indicates a snapshot without platform status.
	ErrMissingPlatforms = New("snapshot has no platform status")
	// ErrRewriteUnavailable indicates no content-rewrite service is configured.
	ErrRewriteUnavailable = New("content rewrite service not configured")
)

// General sentinel errors
var (
	// ErrTimeout indicates that an operation timed out.
	ErrTimeout = New("operation timed out")
	// ErrCanceled indicates that an operation was canceled.
	ErrCanceled = New("operation canceled")
	// ErrInvalidInput indicates that input validation failed.
	ErrInvalidInput = New("invalid input")
)

// -----------------------------------------------------------------------------
// Base Error Interface
// -----------------------------------------------------------------------------

// GameError is the base interface for all engine errors.
type GameError interface {
	error

	// Unwrap returns the underlying error, if any.
	Unwrap() error

	// Severity returns the severity level of this error.
	Severity() Severity

	// IsRetryable returns true if a fresh call of the same operation may succeed.
	IsRetryable() bool

	// IsUserFacing returns true if the error message is safe to display
	// to end users.
	IsUserFacing() bool
}

// baseError provides common functionality for all error types.
type baseError struct {
	message    string
	cause      error
	severity   Severity
	retryable  bool
	userFacing bool
}

// Error returns the error message.
func (e *baseError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Unwrap returns the underlying error.
func (e *baseError) Unwrap() error {
	return e.cause
}

// Severity returns the error severity.
func (e *baseError) Severity() Severity {
	return e.severity
}

// IsRetryable returns whether the error is retryable.
func (e *baseError) IsRetryable() bool {
	return e.retryable
}

// IsUserFacing returns whether the error is safe to show users.
func (e *baseError) IsUserFacing() bool {
	return e.userFacing
}

// -----------------------------------------------------------------------------
// ValidationError
// -----------------------------------------------------------------------------

// FieldError describes one rejected field of a draft.
type FieldError struct {
	Field   string
	Value   any
	Message string
}

// String formats the field error as "field: message".
func (f FieldError) String() string {
	return fmt.Sprintf("%s: %s", f.Field, f.Message)
}

// ValidationError is returned when a player draft fails local checks.
// It never reaches the remote resolver and never mutates session state.
//
// Example:
//
//	err := errors.NewValidationError("draft rejected").
//	    WithField("title", "", "must not be blank")
type ValidationError struct {
	baseError
	Fields []FieldError
}

// NewValidationError creates a new ValidationError.
func NewValidationError(message string) *ValidationError {
	return &ValidationError{
		baseError: baseError{
			message:    message,
			severity:   SeverityWarning,
			retryable:  false,
			userFacing: true,
		},
	}
}

// WithField appends a rejected field.
func (e *ValidationError) WithField(field string, value any, message string) *ValidationError {
	e.Fields = append(e.Fields, FieldError{Field: field, Value: value, Message: message})
	return e
}

// WithCause adds a cause to the error.
func (e *ValidationError) WithCause(cause error) *ValidationError {
	e.cause = cause
	return e
}

// HasField reports whether the named field was rejected.
func (e *ValidationError) HasField(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

// Error returns the formatted error message.
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation error: " + e.message
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.String())
	}
	return fmt.Sprintf("validation error: %s [%s]", e.message, strings.Join(parts, "; "))
}

// Is checks if this error matches the target.
func (e *ValidationError) Is(target error) bool {
	if _, ok := target.(*ValidationError); ok {
		return true
	}
	if target == ErrInvalidInput {
		return true
	}
	return e.cause != nil && errors.Is(e.cause, target)
}

// -----------------------------------------------------------------------------
// ConcurrentSubmissionError
// -----------------------------------------------------------------------------

// ConcurrentSubmissionError is returned when a submission arrives while
// another one for the same session is still outstanding.
type ConcurrentSubmissionError struct {
	baseError
	SessionID string
	Round     int
	Pending   string // actor whose submission is outstanding
}

// NewConcurrentSubmissionError creates a new ConcurrentSubmissionError.
func NewConcurrentSubmissionError(sessionID string, round int, pending string) *ConcurrentSubmissionError {
	return &ConcurrentSubmissionError{
		baseError: baseError{
			message:    "a submission is already outstanding",
			cause:      ErrSubmissionInFlight,
			severity:   SeverityWarning,
			retryable:  true,
			userFacing: true,
		},
		SessionID: sessionID,
		Round:     round,
		Pending:   pending,
	}
}

// Error returns the formatted error message.
func (e *ConcurrentSubmissionError) Error() string {
	return fmt.Sprintf("concurrent submission [session=%s, round=%d, pending=%s]: %s",
		e.SessionID, e.Round, e.Pending, e.message)
}

// Is checks if this error matches the target.
func (e *ConcurrentSubmissionError) Is(target error) bool {
	if _, ok := target.(*ConcurrentSubmissionError); ok {
		return true
	}
	return target == ErrSubmissionInFlight
}

// -----------------------------------------------------------------------------
// ResolutionError
// -----------------------------------------------------------------------------

// DefaultResolutionMessage is shown when the remote resolver gave no reason.
const DefaultResolutionMessage = "the turn could not be resolved, please try again"

// ResolutionError is returned when the remote turn resolver fails: transport
// error, non-success status, malformed body, or timeout.
//
// Example:
//
//	err := errors.NewResolutionError("player-turn", cause).
//	    WithStatus(500).
//	    WithRemoteMessage("game not found")
type ResolutionError struct {
	baseError
	Operation     string
	StatusCode    int
	RemoteMessage string
}

// NewResolutionError creates a new ResolutionError.
func NewResolutionError(operation string, cause error) *ResolutionError {
	return &ResolutionError{
		baseError: baseError{
			message:    "turn resolution failed",
			cause:      cause,
			severity:   SeverityError,
			retryable:  true,
			userFacing: true,
		},
		Operation: operation,
	}
}

// WithStatus records the HTTP status code (or 0 for transport errors).
func (e *ResolutionError) WithStatus(code int) *ResolutionError {
	e.StatusCode = code
	return e
}

// WithRemoteMessage records the message reported by the remote resolver.
func (e *ResolutionError) WithRemoteMessage(msg string) *ResolutionError {
	e.RemoteMessage = strings.TrimSpace(msg)
	return e
}

// UserMessage returns the remote message, or a generic one when the remote
// reported nothing.
func (e *ResolutionError) UserMessage() string {
	if e.RemoteMessage != "" {
		return e.RemoteMessage
	}
	if Is(e.cause, ErrTimeout) {
		return "the turn resolver did not answer in time"
	}
	return DefaultResolutionMessage
}

// Error returns the formatted error message.
func (e *ResolutionError) Error() string {
	var parts []string
	if e.Operation != "" {
		parts = append(parts, "op="+e.Operation)
	}
	if e.StatusCode != 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}

	prefix := "resolution error"
	if len(parts) > 0 {
		prefix = fmt.Sprintf("resolution error [%s]", strings.Join(parts, ", "))
	}
	msg := e.message
	if e.RemoteMessage != "" {
		msg = e.RemoteMessage
	}
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", prefix, msg, e.cause)
	}
	return fmt.Sprintf("%s: %s", prefix, msg)
}

// Is checks if this error matches the target.
func (e *ResolutionError) Is(target error) bool {
	if _, ok := target.(*ResolutionError); ok {
		return true
	}
	return e.cause != nil && errors.Is(e.cause, target)
}

// -----------------------------------------------------------------------------
// StateInconsistencyError
// -----------------------------------------------------------------------------

// StateInconsistencyError is returned when a snapshot lacks fields that a
// dependent operation needs. It is fatal: the session ends and must be
// started again.
type StateInconsistencyError struct {
	baseError
	SessionID string
	Round     int
	Missing   []string
}

// NewStateInconsistencyError creates a new StateInconsistencyError.
func NewStateInconsistencyError(sessionID string, round int, causes ...error) *StateInconsistencyError {
	e := &StateInconsistencyError{
		baseError: baseError{
			message:    "session state is inconsistent",
			cause:      Join(causes...),
			severity:   SeverityCritical,
			retryable:  false,
			userFacing: true,
		},
		SessionID: sessionID,
		Round:     round,
	}
	for _, c := range causes {
		e.Missing = append(e.Missing, c.Error())
	}
	return e
}

// Error returns the formatted error message.
func (e *StateInconsistencyError) Error() string {
	return fmt.Sprintf("state inconsistency [session=%s, round=%d]: %s (%s)",
		e.SessionID, e.Round, e.message, strings.Join(e.Missing, "; "))
}

// Is checks if this error matches the target.
func (e *StateInconsistencyError) Is(target error) bool {
	if _, ok := target.(*StateInconsistencyError); ok {
		return true
	}
	return e.cause != nil && errors.Is(e.cause, target)
}

// -----------------------------------------------------------------------------
// Error Classification Helpers
// -----------------------------------------------------------------------------

// IsRetryable returns true if a fresh call of the failed operation may
// succeed. The engine itself never retries; this is for callers.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var gameErr GameError
	if As(err, &gameErr) {
		return gameErr.IsRetryable()
	}

	return Is(err, ErrTimeout)
}

// IsUserFacing returns true if the error message is safe to display to end users.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}

	var gameErr GameError
	if As(err, &gameErr) {
		return gameErr.IsUserFacing()
	}

	return Is(err, ErrNotYourTurn) || Is(err, ErrSessionEnded) || Is(err, ErrNoSession)
}

// IsFatal returns true if the error ended the session.
func IsFatal(err error) bool {
	var inconsistent *StateInconsistencyError
	return As(err, &inconsistent)
}

// GetSeverity returns the severity level of the error.
// Returns SeverityError for errors that don't implement GameError.
func GetSeverity(err error) Severity {
	if err == nil {
		return SeverityDebug
	}

	var gameErr GameError
	if As(err, &gameErr) {
		return gameErr.Severity()
	}

	return SeverityError
}

// UserMessage returns a message suitable for display.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var resErr *ResolutionError
	if As(err, &resErr) {
		return resErr.UserMessage()
	}
	if IsUserFacing(err) {
		return err.Error()
	}
	return "an internal error occurred"
}

// Kind returns a short label for the error class, used as a metric and log label.
func Kind(err error) string {
	var (
		validation   *ValidationError
		concurrent   *ConcurrentSubmissionError
		resolution   *ResolutionError
		inconsistent *StateInconsistencyError
	)
	switch {
	case err == nil:
		return "none"
	case As(err, &validation):
		return "validation"
	case As(err, &concurrent):
		return "concurrent"
	case As(err, &resolution):
		return "resolution"
	case As(err, &inconsistent):
		return "inconsistent"
	case Is(err, ErrNotYourTurn), Is(err, ErrSessionEnded), Is(err, ErrNoSession):
		return "turn_order"
	default:
		return "internal"
	}
}

// -----------------------------------------------------------------------------
// Convenience Constructors
// -----------------------------------------------------------------------------

// Wrap wraps an error with additional context message.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with a formatted context message.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
