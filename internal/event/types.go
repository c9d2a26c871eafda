package event

import (
	"time"

	"github.com/sustainet/sustainet/internal/game"
	"github.com/sustainet/sustainet/internal/trust"
)

// Event is the interface that all events must implement.
// It provides a common way to identify and timestamp events.
type Event interface {
	// EventType returns a string identifier for this event type.
	// Convention: "category.action" (e.g., "session.started", "round.resolved")
	EventType() string

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// Event type names.
const (
	TypeSessionStarted   = "session.started"
	TypePhaseChanged     = "phase.changed"
	TypeRoundResolved    = "round.resolved"
	TypeAdvanceScheduled = "advance.scheduled"
	TypeSubmissionFailed = "submission.failed"
	TypeDraftPolished    = "draft.polished"
	TypeSessionEnded     = "session.ended"
)

// baseEvent provides common fields for all events.
// Embed this in concrete event types to satisfy the Event interface.
type baseEvent struct {
	eventType string
	timestamp time.Time
}

func (e baseEvent) EventType() string    { return e.eventType }
func (e baseEvent) Timestamp() time.Time { return e.timestamp }

// newBaseEvent creates a baseEvent with the current time.
func newBaseEvent(eventType string) baseEvent {
	return baseEvent{
		eventType: eventType,
		timestamp: time.Now(),
	}
}

// -----------------------------------------------------------------------------
// Session Lifecycle Events
// -----------------------------------------------------------------------------

// SessionStartedEvent is emitted when the opening snapshot is committed.
type SessionStartedEvent struct {
	baseEvent
	SessionID string
	Round     int
	Platforms []string
}

// NewSessionStartedEvent creates a SessionStartedEvent.
func NewSessionStartedEvent(sessionID string, round int, platforms []string) SessionStartedEvent {
	return SessionStartedEvent{
		baseEvent: newBaseEvent(TypeSessionStarted),
		SessionID: sessionID,
		Round:     round,
		Platforms: platforms,
	}
}

// SessionEndedEvent is emitted once when the session reaches its terminal phase.
type SessionEndedEvent struct {
	baseEvent
	SessionID   string
	Round       int
	Reason      trust.Reason
	Winner      trust.Winner
	PlayerTotal int
	AITotal     int
}

// NewSessionEndedEvent creates a SessionEndedEvent.
func NewSessionEndedEvent(sessionID string, round int, verdict trust.Verdict) SessionEndedEvent {
	return SessionEndedEvent{
		baseEvent:   newBaseEvent(TypeSessionEnded),
		SessionID:   sessionID,
		Round:       round,
		Reason:      verdict.Reason,
		Winner:      verdict.Winner,
		PlayerTotal: verdict.PlayerTotal,
		AITotal:     verdict.AITotal,
	}
}

// -----------------------------------------------------------------------------
// Turn Events
// -----------------------------------------------------------------------------

// PhaseChangedEvent is emitted after every turn phase transition.
type PhaseChangedEvent struct {
	baseEvent
	SessionID string
	From      string
	To        string
	Holder    game.Actor
	Reason    string
}

// NewPhaseChangedEvent creates a PhaseChangedEvent.
func NewPhaseChangedEvent(sessionID, from, to string, holder game.Actor, reason string) PhaseChangedEvent {
	return PhaseChangedEvent{
		baseEvent: newBaseEvent(TypePhaseChanged),
		SessionID: sessionID,
		From:      from,
		To:        to,
		Holder:    holder,
		Reason:    reason,
	}
}

// RoundResolvedEvent is emitted after a turn's snapshot, delta and ledger
// entry are committed.
type RoundResolvedEvent struct {
	baseEvent
	Snapshot game.Snapshot
	Action   game.ActionKind
	Deltas   []trust.Delta
}

// NewRoundResolvedEvent creates a RoundResolvedEvent.
func NewRoundResolvedEvent(snapshot game.Snapshot, action game.ActionKind, deltas []trust.Delta) RoundResolvedEvent {
	return RoundResolvedEvent{
		baseEvent: newBaseEvent(TypeRoundResolved),
		Snapshot:  snapshot,
		Action:    action,
		Deltas:    deltas,
	}
}

// AdvanceScheduledEvent is emitted when the opponent's turn is queued.
type AdvanceScheduledEvent struct {
	baseEvent
	SessionID string
	NextRound int
	Delay     time.Duration
}

// NewAdvanceScheduledEvent creates an AdvanceScheduledEvent.
func NewAdvanceScheduledEvent(sessionID string, nextRound int, delay time.Duration) AdvanceScheduledEvent {
	return AdvanceScheduledEvent{
		baseEvent: newBaseEvent(TypeAdvanceScheduled),
		SessionID: sessionID,
		NextRound: nextRound,
		Delay:     delay,
	}
}

// SubmissionFailedEvent is emitted when a submission or advance fails.
type SubmissionFailedEvent struct {
	baseEvent
	SessionID string
	Round     int
	Actor     game.Actor
	Kind      string // errors.Kind label
	Message   string // safe for display
	Err       error
}

// NewSubmissionFailedEvent creates a SubmissionFailedEvent.
func NewSubmissionFailedEvent(sessionID string, round int, actor game.Actor, kind, message string, err error) SubmissionFailedEvent {
	return SubmissionFailedEvent{
		baseEvent: newBaseEvent(TypeSubmissionFailed),
		SessionID: sessionID,
		Round:     round,
		Actor:     actor,
		Kind:      kind,
		Message:   message,
		Err:       err,
	}
}

// DraftPolishedEvent is emitted when the rewrite service returns new content.
type DraftPolishedEvent struct {
	baseEvent
	SessionID string
	Platform  string
	Content   string
}

// NewDraftPolishedEvent creates a DraftPolishedEvent.
func NewDraftPolishedEvent(sessionID, platform, content string) DraftPolishedEvent {
	return DraftPolishedEvent{
		baseEvent: newBaseEvent(TypeDraftPolished),
		SessionID: sessionID,
		Platform:  platform,
		Content:   content,
	}
}
