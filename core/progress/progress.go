package progress

import "go.uber.org/zap"

// Update is one progress notification for a session-scoped destination.
type Update struct {
	// Session identifies the sync run the update belongs to.
	Session string

	// Percent is the overall completion percentage, 0-100.
	Percent int

	// Status is a short machine-readable phase code (e.g., "planning",
	// "executing", "done").
	Status string

	// Message is a human-readable description of the current step.
	Message string
}

// Reporter pushes progress updates to a session-scoped destination.
// Publishing is best-effort: implementations log delivery failures and never
// surface them to the engine.
type Reporter interface {
	Publish(update Update)
}

// LogReporter reports progress through the application logger.
type LogReporter struct {
	log *zap.Logger
}

// NewLogReporter creates a Reporter backed by the given logger.
func NewLogReporter(l *zap.Logger) *LogReporter {
	return &LogReporter{log: l}
}

func (r *LogReporter) Publish(u Update) {
	r.log.Info("progress",
		zap.String("session", u.Session),
		zap.Int("percent", u.Percent),
		zap.String("status", u.Status),
		zap.String("message", u.Message),
	)
}

// NopReporter discards all updates.
type NopReporter struct{}

func (NopReporter) Publish(Update) {}
