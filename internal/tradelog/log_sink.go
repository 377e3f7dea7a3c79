package tradelog

import (
	"context"

	"github.com/wonny/ibdash/pkg/logger"
)

// LogSink writes records as structured log events
type LogSink struct {
	logger *logger.Logger
}

// NewLogSink creates a sink that logs through log
func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{logger: log.WithField("component", "tradelog")}
}

// Append implements Sink
func (s *LogSink) Append(_ context.Context, rec Record) error {
	zl := s.logger.Zerolog()
	ev := zl.Info()
	if rec.Error != "" {
		ev = zl.Warn().Str("error", rec.Error)
	}

	ev.Time("timestamp", rec.Timestamp).
		Str("symbol", rec.Symbol).
		Str("direction", string(rec.Intent.Side)).
		Str("order_type", string(rec.Intent.Kind)).
		Float64("size", rec.Intent.Size).
		Str("tif", string(rec.Intent.TIF)).
		Bool("bracket", rec.Intent.IsBracket()).
		Bool("dry_run", rec.DryRun).
		Str("status", rec.Status()).
		Interface("legs", rec.Legs).
		Msg("Trade logged")
	return nil
}
