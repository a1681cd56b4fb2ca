package logging

import (
	"log/slog"

	"github.com/petal-labs/imagine/core"
)

// Telemetry logs the generation lifecycle. Attempts and retries are logged at
// debug level, failures of the whole call at warn.
type Telemetry struct {
	logger *slog.Logger
}

// NewTelemetry returns a hook writing to logger.
func NewTelemetry(logger *slog.Logger) *Telemetry {
	if logger == nil {
		logger = Discard()
	}
	return &Telemetry{logger: logger}
}

func (t *Telemetry) OnRequestStart(e core.RequestStartEvent) {
	t.logger.Debug("generation started", Model(e.Model), slog.Int("max_attempts", e.MaxAttempts))
}

func (t *Telemetry) OnAttempt(e core.AttemptEvent) {
	attrs := []any{
		Model(e.Model),
		slog.Int("attempt", e.Attempt),
		slog.Duration("duration", e.Duration),
	}
	if e.Status != 0 {
		attrs = append(attrs, slog.Int("status", e.Status))
	}
	if e.Kind != "" {
		attrs = append(attrs, slog.String("kind", string(e.Kind)))
	}
	t.logger.Debug("attempt finished", attrs...)
}

func (t *Telemetry) OnRetry(e core.RetryEvent) {
	t.logger.Info("retrying",
		Model(e.Model),
		slog.Int("attempt", e.Attempt),
		slog.Duration("delay", e.Delay),
		slog.String("kind", string(e.Kind)),
	)
}

func (t *Telemetry) OnRequestEnd(e core.RequestEndEvent) {
	attrs := []any{
		Model(e.Model),
		slog.String("state", string(e.State)),
		slog.Int("attempts", e.Attempts),
		slog.Duration("duration", e.Duration()),
	}
	if e.Err != nil {
		t.logger.Warn("generation failed", append(attrs, slog.String("kind", string(core.KindOf(e.Err))), Err(e.Err))...)
		return
	}
	t.logger.Debug("generation finished", append(attrs, slog.Int("images", e.Images))...)
}

var _ core.TelemetryHook = (*Telemetry)(nil)
