// Package logging provides structured logging for game sessions.
//
// The package wraps Go's log/slog with a JSON handler. Child loggers carry
// persistent attributes so that every line written while a round is being
// resolved can be traced back to its session, round, and actor.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger("/path/to/logs", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	logger.Info("session started", "platforms", 3)
//
// # Context Propagation
//
//	roundLogger := logger.WithSession("game_001").WithRound(2).WithActor("player")
//	roundLogger.Info("turn resolved", "reach_count", 390)
//
// Output:
//
//	{"time":"...","level":"INFO","msg":"turn resolved","session_id":"game_001","round":2,"actor":"player","reach_count":390}
//
// # Testing
//
// Use [NopLogger] to discard output, or [NewLoggerWriter] to capture it.
//
// # Configuration
//
//	logging:
//	  enabled: true
//	  level: info
//	  dir: ""   # empty writes to stderr
package logging
