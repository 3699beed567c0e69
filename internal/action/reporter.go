package action

import "log/slog"

// LogReporter logs invocation outcomes. Failures and timeouts log at Warn.
type LogReporter struct {
	logger *slog.Logger
}

// NewLogReporter creates a reporter that writes to logger
func NewLogReporter(logger *slog.Logger) *LogReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogReporter{logger: logger}
}

// Report logs r
func (l *LogReporter) Report(r Report) {
	attrs := []any{
		"command", r.Command,
		"mode", r.Mode.Name,
		"gesture", r.Gesture.String(),
		"status", r.Status.String(),
		"duration", r.Duration,
	}
	if r.Message != "" {
		attrs = append(attrs, "message", r.Message)
	}

	switch r.Status {
	case StatusSuccess:
		l.logger.Info("command finished", attrs...)
	default:
		if r.Err != nil {
			attrs = append(attrs, "err", r.Err)
		}
		l.logger.Warn("command failed", attrs...)
	}
}
