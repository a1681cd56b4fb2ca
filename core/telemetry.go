package core

import "time"

// TelemetryHook receives notifications about the generation lifecycle.
//
// Events carry operational metadata only: model, attempt numbers, timing,
// HTTP status and error kind. They never include the credential, the prompt
// or image bytes, so hooks may log them freely.
type TelemetryHook interface {
	// OnRequestStart is called once before the first attempt.
	OnRequestStart(e RequestStartEvent)

	// OnAttempt is called after every single attempt.
	OnAttempt(e AttemptEvent)

	// OnRetry is called when a retry has been scheduled.
	OnRetry(e RetryEvent)

	// OnRequestEnd is called once when the orchestrated call terminates.
	OnRequestEnd(e RequestEndEvent)
}

// RequestStartEvent describes a starting generation call.
type RequestStartEvent struct {
	Model       ModelID
	MaxAttempts int
	Start       time.Time
}

// AttemptEvent describes one finished attempt.
type AttemptEvent struct {
	Model    ModelID
	Attempt  int // 1-based
	Status   int // HTTP status, 0 when no response was received
	Duration time.Duration
	Kind     ErrorKind // empty on success
}

// RetryEvent describes a scheduled retry.
type RetryEvent struct {
	Model   ModelID
	Attempt int // 1-based number of the attempt that failed
	Delay   time.Duration
	Kind    ErrorKind
}

// RequestEndEvent describes a finished generation call.
type RequestEndEvent struct {
	Model    ModelID
	State    State
	Attempts int
	Start    time.Time
	End      time.Time
	Images   int
	Err      error
}

// Duration returns the elapsed time for the call.
func (e RequestEndEvent) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// NoopTelemetryHook is the default hook.
type NoopTelemetryHook struct{}

func (NoopTelemetryHook) OnRequestStart(RequestStartEvent) {}
func (NoopTelemetryHook) OnAttempt(AttemptEvent)           {}
func (NoopTelemetryHook) OnRetry(RetryEvent)               {}
func (NoopTelemetryHook) OnRequestEnd(RequestEndEvent)     {}

var _ TelemetryHook = NoopTelemetryHook{}
