package journal

import (
	"context"
	"errors"
	"log/slog"

	"github.com/JonMunkholm/auditdash/internal/core"
)

// Logger is a journal that writes each event as a structured log line.
type Logger struct {
	logger *slog.Logger
}

// NewLogger returns a journal that logs through logger (slog.Default when nil).
func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{logger: logger.With("component", "journal")}
}

// Record logs ev. Write failures log at warn, everything else at info.
func (l *Logger) Record(ctx context.Context, ev core.Event) error {
	level := slog.LevelInfo
	if ev.Kind == core.EventWriteFailed || ev.Kind == core.EventLoadFailed {
		level = slog.LevelWarn
	}

	attrs := []slog.Attr{
		slog.String("session_id", ev.SessionID),
		slog.String("kind", string(ev.Kind)),
		slog.String("source", string(ev.Source)),
		slog.Int("completed", ev.Completed),
		slog.Int("total", ev.Total),
	}
	if ev.SpreadsheetID != "" {
		attrs = append(attrs, slog.String("spreadsheet_id", ev.SpreadsheetID))
	}
	if ev.Selector != "" {
		attrs = append(attrs, slog.String("selector", ev.Selector))
	}
	if ev.RecordIndex != nil {
		attrs = append(attrs, slog.Int("record_index", *ev.RecordIndex))
	}
	if ev.Decision != "" {
		attrs = append(attrs, slog.String("decision", string(ev.Decision)))
	}
	if ev.Error != "" {
		attrs = append(attrs, slog.String("error", ev.Error))
	}
	if ev.IPAddress != "" {
		attrs = append(attrs, slog.String("ip", ev.IPAddress))
	}

	l.logger.LogAttrs(ctx, level, "audit event", attrs...)
	return nil
}

// Multi fans an event out to several journals. Every journal is called; the
// errors are joined.
type Multi []core.Journal

// Record sends ev to every journal in m.
func (m Multi) Record(ctx context.Context, ev core.Event) error {
	var errs []error
	for _, j := range m {
		if err := j.Record(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
