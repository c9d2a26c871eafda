// Package event provides a pub-sub event bus that lets a game session notify
// presentation layers and metrics without depending on them.
//
// # Main Types
//
//   - [Event]: Interface that all events must implement, providing EventType() and Timestamp()
//   - [Bus]: Synchronous pub-sub event dispatcher with thread-safe operations
//   - [Handler]: Function type for event handlers (func(Event))
//
// # Event Types
//
//   - [SessionStartedEvent]: the opening snapshot was committed
//   - [PhaseChangedEvent]: the turn state machine changed phase or holder
//   - [RoundResolvedEvent]: a turn's snapshot, deltas and ledger entry were committed
//   - [AdvanceScheduledEvent]: the opponent's turn was queued
//   - [SubmissionFailedEvent]: a submission or advance was rejected or failed
//   - [DraftPolishedEvent]: the rewrite service returned new draft content
//   - [SessionEndedEvent]: the session reached its terminal phase
//
// # Thread Safety
//
// The [Bus] type is safe for concurrent use. Handlers are called
// synchronously on the publishing goroutine and protected against panics.
// Handlers must not call back into the session that published the event.
//
// # Basic Usage
//
//	bus := event.NewBus(logger)
//
//	bus.Subscribe(event.TypeRoundResolved, func(e event.Event) {
//	    resolved := e.(event.RoundResolvedEvent)
//	    fmt.Println(resolved.Snapshot.RoundNumber)
//	})
//
//	id := bus.SubscribeAll(logEverything)
//	bus.Unsubscribe(id)
package event
