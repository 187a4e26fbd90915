// Package logger provides a structured logging facility based on Zap.
//
// It offers a configured logger instance that supports different environments
// (development vs production) and is shared by the CLI commands and the sync
// engine.
//
// # Session Awareness
//
// Every sync run is identified by a session id. The WithSession helper
// attaches that id to the logger so all entries produced during one
// plan-then-execute cycle can be correlated.
//
// # Configuration
//
// The package supports configuration for:
//   - Level: debug, info, warn, error
//   - Encoding: json (production) or console (development)
//
// # Usage
//
//	log, _ := logger.New(&logger.Config{Level: "info"})
//	log.Info("Engine started")
//
//	// In a sync run:
//	l := logger.WithSession(log, session.ID)
//	l.Error("Action failed", zap.Error(err))
package logger
