package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// -----------------------------------------------------------------------------
// Severity Tests
// -----------------------------------------------------------------------------

func TestSeverity_String(t *testing.T) {
	tests := []struct {
		severity Severity
		want     string
	}{
		{SeverityDebug, "debug"},
		{SeverityInfo, "info"},
		{SeverityWarning, "warning"},
		{SeverityError, "error"},
		{SeverityCritical, "critical"},
		{Severity(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.severity.String(); got != tt.want {
				t.Errorf("Severity.String() = %q, want %q", got, tt.want)
			}
		})
	}
}

// -----------------------------------------------------------------------------
// ValidationError Tests
// -----------------------------------------------------------------------------

func TestValidationError_Fields(t *testing.T) {
	err := NewValidationError("draft rejected").
		WithField("title", "", "must not be blank").
		WithField("target_platform", "Myspace", "must be one of the session platforms")

	if len(err.Fields) != 2 {
		t.Fatalf("len(Fields) = %d, want 2", len(err.Fields))
	}
	if !err.HasField("title") {
		t.Error("HasField(title) = false, want true")
	}
	if err.HasField("content") {
		t.Error("HasField(content) = true, want false")
	}

	msg := err.Error()
	for _, want := range []string{"draft rejected", "title: must not be blank", "target_platform"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Error() = %q, missing %q", msg, want)
		}
	}
}

func TestValidationError_Is(t *testing.T) {
	err := NewValidationError("bad")

	if !errors.Is(err, ErrInvalidInput) {
		t.Error("ValidationError should match ErrInvalidInput")
	}
	var target *ValidationError
	if !errors.As(fmt.Errorf("wrapped: %w", err), &target) {
		t.Error("errors.As should find a wrapped ValidationError")
	}
	if errors.Is(err, ErrTimeout) {
		t.Error("ValidationError should not match ErrTimeout")
	}
}

// -----------------------------------------------------------------------------
// ConcurrentSubmissionError Tests
// -----------------------------------------------------------------------------

func TestConcurrentSubmissionError(t *testing.T) {
	err := NewConcurrentSubmissionError("sess-1", 3, "player")

	if !errors.Is(err, ErrSubmissionInFlight) {
		t.Error("should match ErrSubmissionInFlight")
	}
	if !IsRetryable(err) {
		t.Error("concurrent submission should be retryable once the first call settles")
	}
	if got := err.Error(); !strings.Contains(got, "session=sess-1") || !strings.Contains(got, "round=3") {
		t.Errorf("Error() = %q, want session and round context", got)
	}
}

// -----------------------------------------------------------------------------
// ResolutionError Tests
// -----------------------------------------------------------------------------

func TestResolutionError_UserMessage(t *testing.T) {
	tests := []struct {
		name string
		err  *ResolutionError
		want string
	}{
		{
			name: "remote message wins",
			err:  NewResolutionError("player-turn", ErrRemoteFailure).WithStatus(404).WithRemoteMessage("  game not found "),
			want: "game not found",
		},
		{
			name: "timeout has its own message",
			err:  NewResolutionError("ai-turn", ErrTimeout),
			want: "the turn resolver did not answer in time",
		},
		{
			name: "generic fallback",
			err:  NewResolutionError("start", errors.New("connection refused")),
			want: DefaultResolutionMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.UserMessage(); got != tt.want {
				t.Errorf("UserMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolutionError_ErrorAndIs(t *testing.T) {
	err := NewResolutionError("player-turn", ErrTimeout).WithStatus(504)

	if !errors.Is(err, ErrTimeout) {
		t.Error("should unwrap to ErrTimeout")
	}
	if !strings.Contains(err.Error(), "op=player-turn, status=504") {
		t.Errorf("Error() = %q, want op and status", err.Error())
	}
	if GetSeverity(err) != SeverityError {
		t.Errorf("GetSeverity() = %v, want error", GetSeverity(err))
	}
}

// -----------------------------------------------------------------------------
// StateInconsistencyError Tests
// -----------------------------------------------------------------------------

func TestStateInconsistencyError(t *testing.T) {
	err := NewStateInconsistencyError("sess-9", 2, ErrMissingArticle, ErrMissingPlatforms)

	if !errors.Is(err, ErrMissingArticle) || !errors.Is(err, ErrMissingPlatforms) {
		t.Error("should match both missing-field sentinels")
	}
	if !IsFatal(err) {
		t.Error("IsFatal() = false, want true")
	}
	if IsRetryable(err) {
		t.Error("inconsistency must not be retryable")
	}
	if GetSeverity(err) != SeverityCritical {
		t.Errorf("GetSeverity() = %v, want critical", GetSeverity(err))
	}
	if len(err.Missing) != 2 {
		t.Errorf("len(Missing) = %d, want 2", len(err.Missing))
	}
}

// -----------------------------------------------------------------------------
// Classification Tests
// -----------------------------------------------------------------------------

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, "none"},
		{NewValidationError("x"), "validation"},
		{NewConcurrentSubmissionError("s", 1, "ai"), "concurrent"},
		{Wrap(NewResolutionError("start", nil), "starting"), "resolution"},
		{NewStateInconsistencyError("s", 1, ErrMissingArticle), "inconsistent"},
		{fmt.Errorf("submit: %w", ErrNotYourTurn), "turn_order"},
		{errors.New("boom"), "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := Kind(tt.err); got != tt.want {
				t.Errorf("Kind() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	if got := UserMessage(nil); got != "" {
		t.Errorf("UserMessage(nil) = %q, want empty", got)
	}
	if got := UserMessage(errors.New("secret internals")); got != "an internal error occurred" {
		t.Errorf("UserMessage(internal) = %q", got)
	}
	if got := UserMessage(ErrSessionEnded); got != ErrSessionEnded.Error() {
		t.Errorf("UserMessage(ErrSessionEnded) = %q", got)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"validation", NewValidationError("draft rejected"), true},
		{"concurrent", NewConcurrentSubmissionError("s", 1, "player"), true},
		{"wrapped resolution", fmt.Errorf("advance: %w", NewResolutionError("ai_turn", ErrTimeout)), true},
		{"inconsistent", NewStateInconsistencyError("s", 2, ErrMissingPlatforms), true},
		{"not your turn", fmt.Errorf("submit: %w", ErrNotYourTurn), true},
		{"no session", ErrNoSession, true},
		{"plain error", errors.New("dial tcp: refused"), false},
		{"timeout sentinel", ErrTimeout, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	if Wrap(nil, "ctx") != nil {
		t.Error("Wrap(nil) should be nil")
	}
	err := Wrapf(ErrCanceled, "round %d", 4)
	if !errors.Is(err, ErrCanceled) {
		t.Error("Wrapf should preserve the chain")
	}
	if err.Error() != "round 4: operation canceled" {
		t.Errorf("Wrapf() = %q", err.Error())
	}
}
