// Package slog logs engine activity with log/slog.
package slog

import (
	"context"
	"log/slog"

	"github.com/fwojciec/harvest"
)

var _ harvest.EventSink = (*EventLogger)(nil)

// EventLogger writes engine events as structured log records.
type EventLogger struct {
	logger *slog.Logger
}

// NewEventLogger creates a new EventLogger.
func NewEventLogger(logger *slog.Logger) *EventLogger {
	return &EventLogger{logger: logger}
}

// Emit implements harvest.EventSink. Zero-valued event fields are omitted.
func (l *EventLogger) Emit(e harvest.Event) {
	level := eventLevel(e.Type)
	ctx := context.Background()
	if !l.logger.Enabled(ctx, level) {
		return
	}

	attrs := make([]slog.Attr, 0, 8)
	if e.Job != "" {
		attrs = append(attrs, slog.String("job", e.Job))
	}
	if e.Key != "" {
		attrs = append(attrs, slog.String("key", e.Key))
	}
	if e.URL != "" {
		attrs = append(attrs, slog.String("url", e.URL))
	}
	if e.Attempt > 0 {
		attrs = append(attrs, slog.Int("attempt", e.Attempt))
	}
	if e.Kind != "" {
		attrs = append(attrs, slog.String("kind", string(e.Kind)))
	}
	if e.Status != 0 {
		attrs = append(attrs, slog.Int("status", e.Status))
	}
	switch e.Type {
	case harvest.EventBatchFlushed, harvest.EventBatchWriteFailed:
		attrs = append(attrs, slog.Int("batch", e.Batch), slog.Int("size", e.Size))
	case harvest.EventJobStarted:
		attrs = append(attrs, slog.Int("size", e.Size))
	}
	if e.Delay > 0 {
		attrs = append(attrs, slog.Duration("delay", e.Delay))
	}
	if e.Err != nil {
		attrs = append(attrs, slog.String("err", e.Err.Error()))
	}

	l.logger.LogAttrs(ctx, level, e.Type.String(), attrs...)
}

func eventLevel(t harvest.EventType) slog.Level {
	switch t {
	case harvest.EventAttemptStarted, harvest.EventSucceeded, harvest.EventBackoff:
		return slog.LevelDebug
	case harvest.EventAttemptFailed, harvest.EventCredentialRefreshFailed,
		harvest.EventFailed, harvest.EventDuplicateCompletion, harvest.EventJobAborted:
		return slog.LevelWarn
	case harvest.EventBatchWriteFailed:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
